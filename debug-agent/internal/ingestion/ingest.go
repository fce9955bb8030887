// Package ingestion builds the code index from a directory tree.
package ingestion

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/logging"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/processing"
)

// Reindexer replaces the contents of an index.
type Reindexer interface {
	Reindex(ctx context.Context, chunks []processing.Chunk) error
}

// Report summarises one ingestion run.
type Report struct {
	Files    int           `json:"files"`
	Chunks   int           `json:"chunks"`
	Skipped  int           `json:"skipped"`
	Indexed  bool          `json:"indexed"`
	Duration time.Duration `json:"-"`
}

// Ingester walks Root and rebuilds the index from what it finds.
type Ingester struct {
	Root         string
	Suffixes     []string
	ChunkSize    int
	ChunkOverlap int
	Workers      int

	index  Reindexer
	logger *zap.Logger
}

func NewIngester(index Reindexer, root string, logger *zap.Logger) *Ingester {
	return &Ingester{
		Root:         root,
		Suffixes:     DefaultSuffixes,
		ChunkSize:    processing.DefaultChunkSize,
		ChunkOverlap: processing.DefaultChunkOverlap,
		Workers:      runtime.NumCPU(),
		index:        index,
		logger:       logging.OrNop(logger),
	}
}

// Run loads, chunks and re-indexes. When nothing yields a chunk the index
// is left as it was.
func (in *Ingester) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	var rep Report

	in.logger.Info("loading files", zap.String("root", in.Root))
	paths, err := LoadLocalFiles(in.Root, in.Suffixes)
	if err != nil {
		return rep, fmt.Errorf("loading files from %s: %w", in.Root, err)
	}
	rep.Files = len(paths)
	if len(paths) == 0 {
		in.logger.Warn("no files found, index unchanged", zap.String("root", in.Root))
		rep.Duration = time.Since(start)
		return rep, nil
	}

	perFile := make([][]processing.Chunk, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if in.Workers > 0 {
		g.SetLimit(in.Workers)
	}
	importedAt := time.Now().UTC()
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunks, err := in.chunkFile(path, importedAt)
			if err != nil {
				in.logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
				return nil
			}
			perFile[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}

	var all []processing.Chunk
	for _, chunks := range perFile {
		if len(chunks) == 0 {
			rep.Skipped++
			continue
		}
		all = append(all, chunks...)
	}
	rep.Chunks = len(all)
	if len(all) == 0 {
		in.logger.Warn("no chunks produced, index unchanged", zap.Int("files", rep.Files))
		rep.Duration = time.Since(start)
		return rep, nil
	}

	in.logger.Info("re-indexing", zap.Int("files", rep.Files), zap.Int("chunks", rep.Chunks))
	if err := in.index.Reindex(ctx, all); err != nil {
		return rep, err
	}
	rep.Indexed = true
	rep.Duration = time.Since(start)
	in.logger.Info("ingestion complete",
		zap.Int("files", rep.Files),
		zap.Int("chunks", rep.Chunks),
		zap.Int("skipped", rep.Skipped),
		zap.Duration("took", rep.Duration))
	return rep, nil
}

func (in *Ingester) chunkFile(path string, at time.Time) ([]processing.Chunk, error) {
	text, err := ExtractText(path)
	if err != nil {
		return nil, err
	}
	pieces, err := processing.ChunkText(text, in.ChunkSize, in.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(in.Root, path)
	if err != nil {
		rel = path
	}
	return processing.NewChunks(filepath.ToSlash(rel), pieces, at), nil
}
