package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/checker"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/logging"
)

const (
	DefaultMaxRetries = 3
	DefaultRetrievalK = 3
)

var (
	// ErrEmptyQuery is returned by Invoke for a blank error report.
	ErrEmptyQuery = errors.New("query must not be empty")
	// ErrInvalidOption is returned by New for an unusable configuration.
	ErrInvalidOption = errors.New("invalid workflow option")
)

var tracer = otel.Tracer("github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/graph")

// Retriever returns up to k snippets relevant to query, most relevant first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// Generator turns a prompt into a model completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Checker reports diagnostics for source restricted to filter, "" when clean.
type Checker interface {
	CheckDiagnostics(ctx context.Context, source string, filter []checker.Category) (string, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, query string, k int) ([]string, error)

func (f RetrieverFunc) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	return f(ctx, query, k)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, source string, filter []checker.Category) (string, error)

func (f CheckerFunc) CheckDiagnostics(ctx context.Context, source string, filter []checker.Category) (string, error) {
	return f(ctx, source, filter)
}

// StageError wraps a failure of the retrieve or analyze stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Engine runs the retrieve, analyze, validate loop. It holds no per-request
// state and is safe for concurrent Invoke calls.
type Engine struct {
	retriever Retriever
	generator Generator
	checker   Checker

	maxRetries int
	k          int
	filter     []checker.Category
	prompt     *template.Template
	logger     *zap.Logger
	metrics    *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxRetries sets the analyze attempt ceiling.
func WithMaxRetries(n int) Option {
	return func(e *Engine) { e.maxRetries = n }
}

// WithRetrievalK sets how many snippets the retrieve stage asks for.
func WithRetrievalK(k int) Option {
	return func(e *Engine) { e.k = k }
}

// WithSeverityFilter sets the diagnostic categories that fail validation.
func WithSeverityFilter(filter []checker.Category) Option {
	return func(e *Engine) { e.filter = filter }
}

// WithPromptTemplate replaces the built-in analyze prompt.
func WithPromptTemplate(t *template.Template) Option {
	return func(e *Engine) { e.prompt = t }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New builds an Engine around the three collaborators.
func New(r Retriever, g Generator, c Checker, opts ...Option) (*Engine, error) {
	if r == nil || g == nil || c == nil {
		return nil, fmt.Errorf("%w: retriever, generator and checker are required", ErrInvalidOption)
	}
	e := &Engine{
		retriever:  r,
		generator:  g,
		checker:    c,
		maxRetries: DefaultMaxRetries,
		k:          DefaultRetrievalK,
		filter:     checker.DefaultFilter,
		prompt:     defaultPrompt,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxRetries < 1 {
		return nil, fmt.Errorf("%w: max retries must be at least 1, got %d", ErrInvalidOption, e.maxRetries)
	}
	if e.k < 1 {
		return nil, fmt.Errorf("%w: retrieval k must be at least 1, got %d", ErrInvalidOption, e.k)
	}
	if len(e.filter) == 0 {
		return nil, fmt.Errorf("%w: severity filter must not be empty", ErrInvalidOption)
	}
	if e.prompt == nil {
		return nil, fmt.Errorf("%w: prompt template is nil", ErrInvalidOption)
	}
	return e, nil
}

// MaxRetries returns the configured attempt ceiling.
func (e *Engine) MaxRetries() int { return e.maxRetries }

// Invoke runs one debugging request to completion.
// Retrieve and analyze failures abort the run with a *StageError; checker
// failures never do.
func (e *Engine) Invoke(ctx context.Context, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	ctx, span := tracer.Start(ctx, "workflow.invoke")
	defer span.End()

	start := time.Now()
	s := &State{Query: query}
	stage := StageRetrieve
	for stage != StageTerminated {
		next, err := e.step(ctx, stage, s)
		if err != nil {
			span.RecordError(err)
			e.metrics.observeRun(outcomeError, s.Iterations, time.Since(start))
			e.logger.Error("workflow failed",
				zap.Stringer("stage", stage),
				zap.Int("iterations", s.Iterations),
				zap.Error(err))
			return nil, err
		}
		if !CanTransition(stage, next) {
			return nil, fmt.Errorf("illegal transition %s -> %s", stage, next)
		}
		stage = next
	}

	res := e.answer(s)
	span.SetAttributes(
		attribute.Int("workflow.iterations", res.Iterations),
		attribute.Bool("workflow.validated", res.Validated),
	)
	outcome := outcomeValidated
	if !res.Validated {
		outcome = outcomeBestEffort
	}
	e.metrics.observeRun(outcome, res.Iterations, time.Since(start))
	return res, nil
}

func (e *Engine) step(ctx context.Context, stage Stage, s *State) (Stage, error) {
	ctx, span := tracer.Start(ctx, "workflow."+stage.String())
	defer span.End()
	defer e.metrics.observeStage(stage, time.Now())

	switch stage {
	case StageRetrieve:
		if err := e.retrieve(ctx, s); err != nil {
			return stage, &StageError{Stage: stage, Err: err}
		}
		return StageAnalyze, nil
	case StageAnalyze:
		if err := e.analyze(ctx, s); err != nil {
			return stage, &StageError{Stage: stage, Err: err}
		}
		span.SetAttributes(attribute.Int("workflow.attempt", s.Iterations))
		return StageValidate, nil
	case StageValidate:
		e.validate(ctx, s)
		return Route(s, e.maxRetries), nil
	default:
		return stage, fmt.Errorf("no handler for stage %s", stage)
	}
}
