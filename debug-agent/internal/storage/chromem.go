package storage

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/processing"
)

const DefaultCollection = "codebase_index"

// Chromem is an embedded vector store, persisted to disk when a path is given.
type Chromem struct {
	db       *chromem.DB
	name     string
	embedder embeddings.Embedder
	col      *chromem.Collection
}

// NewChromem opens the collection. An empty path keeps everything in memory.
func NewChromem(path, collection string, embedder embeddings.Embedder) (*Chromem, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db at %s: %w", path, err)
		}
	}
	c := &Chromem{db: db, name: collection, embedder: embedder}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Chromem) open() error {
	col, err := c.db.GetOrCreateCollection(c.name, nil, c.embedder.EmbedQuery)
	if err != nil {
		return fmt.Errorf("opening collection %s: %w", c.name, err)
	}
	c.col = col
	return nil
}

func (c *Chromem) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	n := c.col.Count()
	if n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}
	qemb, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	res, err := c.col.QueryEmbedding(ctx, qemb, k, nil, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Snippet, len(res))
	for i, r := range res {
		out[i] = Snippet{Path: r.Metadata["path"], Content: r.Content, Score: r.Similarity}
	}
	return out, nil
}

func (c *Chromem) Reset(context.Context) error {
	if err := c.db.DeleteCollection(c.name); err != nil {
		return fmt.Errorf("deleting collection %s: %w", c.name, err)
	}
	return c.open()
}

func (c *Chromem) Add(ctx context.Context, chunks []processing.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	vecs, err := c.embedder.EmbedDocuments(ctx, contents(chunks))
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("got %d embeddings for %d chunks", len(vecs), len(chunks))
	}
	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = chromem.Document{
			ID:        ch.ID,
			Content:   ch.Content,
			Embedding: vecs[i],
			Metadata: map[string]string{
				"path":  ch.Path,
				"index": strconv.Itoa(ch.Index),
			},
		}
	}
	return c.col.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (c *Chromem) Close() error { return nil }
