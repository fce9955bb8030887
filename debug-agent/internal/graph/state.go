package graph

// NoError is the LastError value meaning the latest validation found no
// qualifying diagnostics.
const NoError = ""

// State is threaded through every stage of one workflow invocation and
// discarded when Invoke returns.
type State struct {
	Query      string   // error report as submitted, never modified
	Context    []string // retrieved snippets, set once by the retrieve stage
	Answer     string   // latest raw candidate fix
	LastError  string   // diagnostics for Answer, or NoError
	Iterations int      // analyze attempts so far
}

// Result is what a caller of Invoke gets back.
// Validated is false when the retry ceiling was hit with diagnostics still present.
type Result struct {
	Answer     string `json:"answer"`
	Iterations int    `json:"iterations"`
	Validated  bool   `json:"validated"`
	LastError  string `json:"last_error,omitempty"`
}

func (s *State) result() *Result {
	return &Result{
		Answer:     s.Answer,
		Iterations: s.Iterations,
		Validated:  s.LastError == NoError,
		LastError:  s.LastError,
	}
}

// Stage is a node of the workflow state machine.
type Stage int

const (
	StageRetrieve Stage = iota
	StageAnalyze
	StageValidate
	StageTerminated
)

func (s Stage) String() string {
	switch s {
	case StageRetrieve:
		return "retrieve"
	case StageAnalyze:
		return "analyze"
	case StageValidate:
		return "validate"
	case StageTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// transitions is the complete edge set. Retrieve is never re-entered and
// Terminated is only reachable from Validate.
var transitions = map[Stage][]Stage{
	StageRetrieve: {StageAnalyze},
	StageAnalyze:  {StageValidate},
	StageValidate: {StageAnalyze, StageTerminated},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Stage) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
