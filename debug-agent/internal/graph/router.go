package graph

// Route picks the stage after validate: analyze again while diagnostics
// remain and attempts are left, otherwise terminate.
func Route(s *State, maxRetries int) Stage {
	if s.LastError == NoError {
		return StageTerminated
	}
	if s.Iterations >= maxRetries {
		return StageTerminated
	}
	return StageAnalyze
}
