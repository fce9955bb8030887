// Package storage holds the code index backends and the run history.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/logging"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/processing"
)

var ErrUnknownBackend = errors.New("unknown vector store backend")

// Snippet is one search hit.
type Snippet struct {
	Path    string
	Content string
	Score   float32
}

// String renders the snippet the way it is shown to the model.
func (s Snippet) String() string {
	return fmt.Sprintf("File: %s\n%s", s.Path, s.Content)
}

// VectorStore is a similarity index over code chunks.
type VectorStore interface {
	// Search returns at most k snippets, most similar first. An empty
	// index yields no snippets and no error.
	Search(ctx context.Context, query string, k int) ([]Snippet, error)
	Reset(ctx context.Context) error
	Add(ctx context.Context, chunks []processing.Chunk) error
	Close() error
}

// Index guards a VectorStore so searches run concurrently while a
// re-index has exclusive access. A search never sees a half-built index.
type Index struct {
	mu     sync.RWMutex
	store  VectorStore
	logger *zap.Logger
}

func NewIndex(store VectorStore, logger *zap.Logger) *Index {
	return &Index{store: store, logger: logging.OrNop(logger)}
}

// Retrieve returns up to k rendered snippets for query.
func (i *Index) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	hits, err := i.store.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]string, len(hits))
	for n, h := range hits {
		out[n] = h.String()
	}
	return out, nil
}

// Replacer is a VectorStore that swaps its whole contents in one step,
// keeping the previous contents when the swap fails.
type Replacer interface {
	Replace(ctx context.Context, chunks []processing.Chunk) error
}

// Reindex replaces the whole index with chunks. Stores implementing
// Replacer keep their old contents on failure; any other store is reset
// first and is left empty when the add fails.
func (i *Index) Reindex(ctx context.Context, chunks []processing.Chunk) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if r, ok := i.store.(Replacer); ok {
		if err := r.Replace(ctx, chunks); err != nil {
			return fmt.Errorf("replacing index with %d chunks: %w", len(chunks), err)
		}
		i.logger.Info("index rebuilt", zap.Int("chunks", len(chunks)))
		return nil
	}
	if err := i.store.Reset(ctx); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	if err := i.store.Add(ctx, chunks); err != nil {
		return fmt.Errorf("adding %d chunks: %w", len(chunks), err)
	}
	i.logger.Info("index rebuilt", zap.Int("chunks", len(chunks)))
	return nil
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.store.Close()
}

func contents(chunks []processing.Chunk) []string {
	out := make([]string, len(chunks))
	for n, c := range chunks {
		out[n] = c.Content
	}
	return out
}
