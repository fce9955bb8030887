package storage

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/processing"
)

// QdrantConfig addresses a qdrant server over gRPC.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// Qdrant stores chunks in a qdrant collection. The collection is created
// on the first Add, sized from the first embedding.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	embedder   embeddings.Embedder
}

func NewQdrant(cfg QdrantConfig, embedder embeddings.Embedder) (*Qdrant, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}
	return &Qdrant{client: client, collection: cfg.Collection, embedder: embedder}, nil
}

func (q *Qdrant) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return nil, fmt.Errorf("checking collection %s: %w", q.collection, err)
	}
	if !exists {
		return nil, nil
	}
	qemb, err := q.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(qemb...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", q.collection, err)
	}
	out := make([]Snippet, len(points))
	for i, p := range points {
		out[i] = Snippet{
			Path:    p.Payload["path"].GetStringValue(),
			Content: p.Payload["content"].GetStringValue(),
			Score:   p.Score,
		}
	}
	return out, nil
}

func (q *Qdrant) Reset(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", q.collection, err)
	}
	if !exists {
		return nil
	}
	return q.client.DeleteCollection(ctx, q.collection)
}

func (q *Qdrant) Add(ctx context.Context, chunks []processing.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	vecs, err := q.embedder.EmbedDocuments(ctx, contents(chunks))
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("got %d embeddings for %d chunks", len(vecs), len(chunks))
	}
	if err := q.ensureCollection(ctx, uint64(len(vecs[0]))); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(c.ID),
			Vectors: qdrant.NewVectors(vecs[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"path":    c.Path,
				"index":   c.Index,
				"content": c.Content,
			}),
		}
	}
	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

func (q *Qdrant) ensureCollection(ctx context.Context, dim uint64) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", q.collection, err)
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", q.collection, err)
	}
	return nil
}

func (q *Qdrant) Close() error {
	return q.client.Close()
}
