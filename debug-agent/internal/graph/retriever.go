package graph

import (
	"context"

	"go.uber.org/zap"
)

// retrieve fetches context for the query once per invocation and resets
// the attempt counter.
func (e *Engine) retrieve(ctx context.Context, s *State) error {
	e.logger.Info("searching codebase", zap.Int("k", e.k))
	snippets, err := e.retriever.Retrieve(ctx, s.Query, e.k)
	if err != nil {
		return err
	}
	if len(snippets) > e.k {
		snippets = snippets[:e.k]
	}
	s.Context = snippets
	s.Iterations = 0
	e.logger.Debug("retrieved context", zap.Int("snippets", len(snippets)))
	return nil
}
