package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
)

// BackendConfig selects and addresses a vector store.
type BackendConfig struct {
	Backend     string // chromem, pgvector or qdrant
	Collection  string
	ChromemPath string
	PostgresURL string
	Qdrant      QdrantConfig
}

// OpenVectorStore connects the configured backend.
func OpenVectorStore(ctx context.Context, cfg BackendConfig, embedder embeddings.Embedder) (VectorStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "chromem":
		return NewChromem(cfg.ChromemPath, cfg.Collection, embedder)
	case "pgvector", "postgres":
		pool, err := ConnectPool(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		store, err := NewPGVector(ctx, pool, embedder)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	case "qdrant":
		q := cfg.Qdrant
		if q.Collection == "" {
			q.Collection = cfg.Collection
		}
		return NewQdrant(q, embedder)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
