package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/processing"
)

const pgvectorSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS code_chunks (
	id          UUID PRIMARY KEY,
	path        TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	content     TEXT NOT NULL,
	imported_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	embedding   vector NOT NULL
)`

var _ Replacer = (*PGVector)(nil)

// PGVector stores chunks in Postgres with the pgvector extension.
type PGVector struct {
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
}

// NewPGVector creates the schema if needed. The pool is owned by the store.
func NewPGVector(ctx context.Context, pool *pgxpool.Pool, embedder embeddings.Embedder) (*PGVector, error) {
	if _, err := pool.Exec(ctx, pgvectorSchema); err != nil {
		return nil, fmt.Errorf("creating code_chunks schema: %w", err)
	}
	return &PGVector{pool: pool, embedder: embedder}, nil
}

func (p *PGVector) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	qemb, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	rows, err := p.pool.Query(ctx,
		"SELECT path, content, 1 - (embedding <=> $1) FROM code_chunks ORDER BY embedding <=> $1 LIMIT $2",
		pgvector.NewVector(qemb), k)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []Snippet
	for rows.Next() {
		var s Snippet
		var score float64
		if err := rows.Scan(&s.Path, &s.Content, &score); err != nil {
			return nil, err
		}
		s.Score = float32(score)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PGVector) Reset(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, "TRUNCATE code_chunks")
	return err
}

func (p *PGVector) Add(ctx context.Context, chunks []processing.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	batch, err := p.insertBatch(ctx, chunks)
	if err != nil {
		return err
	}
	return execBatch(p.pool.SendBatch(ctx, batch), chunks)
}

// Replace truncates and refills code_chunks in one transaction. Chunks are
// embedded before the transaction starts, so a failing embedder leaves the
// table untouched.
func (p *PGVector) Replace(ctx context.Context, chunks []processing.Chunk) error {
	var batch *pgx.Batch
	if len(chunks) > 0 {
		var err error
		if batch, err = p.insertBatch(ctx, chunks); err != nil {
			return err
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE code_chunks"); err != nil {
		return fmt.Errorf("truncating code_chunks: %w", err)
	}
	if batch != nil {
		if err := execBatch(tx.SendBatch(ctx, batch), chunks); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (p *PGVector) insertBatch(ctx context.Context, chunks []processing.Chunk) (*pgx.Batch, error) {
	vecs, err := p.embedder.EmbedDocuments(ctx, contents(chunks))
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("got %d embeddings for %d chunks", len(vecs), len(chunks))
	}

	batch := &pgx.Batch{}
	for i, c := range chunks {
		batch.Queue(
			"INSERT INTO code_chunks (id, path, chunk_index, content, imported_at, embedding) VALUES ($1, $2, $3, $4, $5, $6)",
			c.ID, c.Path, c.Index, c.Content, c.ImportedAt, pgvector.NewVector(vecs[i]))
	}
	return batch, nil
}

func execBatch(br pgx.BatchResults, chunks []processing.Chunk) error {
	defer br.Close()
	for i := range chunks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunks[i].ID, err)
		}
	}
	return br.Close()
}

func (p *PGVector) Close() error {
	p.pool.Close()
	return nil
}
