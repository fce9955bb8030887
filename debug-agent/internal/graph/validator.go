package graph

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// validate checks the code extracted from the current answer. A checker
// failure is recorded as the diagnostic text so the next attempt sees it.
func (e *Engine) validate(ctx context.Context, s *State) {
	code := ExtractCode(s.Answer)
	diag, err := e.checker.CheckDiagnostics(ctx, code, e.filter)
	if err != nil {
		e.logger.Warn("static check failed", zap.Error(err))
		s.LastError = "static check failed: " + err.Error()
		return
	}
	if strings.TrimSpace(diag) == "" {
		e.logger.Info("validation passed", zap.Int("attempt", s.Iterations))
		s.LastError = NoError
		return
	}
	e.logger.Info("validation failed",
		zap.Int("attempt", s.Iterations),
		zap.String("diagnostic", firstLine(diag)))
	s.LastError = diag
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
