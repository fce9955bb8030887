package graph

import "go.uber.org/zap"

// answer builds the caller-facing result from the final state.
func (e *Engine) answer(s *State) *Result {
	res := s.result()
	if res.Validated {
		e.logger.Info("fix validated", zap.Int("iterations", res.Iterations))
	} else {
		e.logger.Warn("max retries reached, returning best guess",
			zap.Int("iterations", res.Iterations),
			zap.String("diagnostic", firstLine(res.LastError)))
	}
	return res
}
