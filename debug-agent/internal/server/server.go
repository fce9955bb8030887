// Package server exposes the debugger over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/graph"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/ingestion"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/logging"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/storage"
)

const (
	shutdownTimeout = 30 * time.Second
	maxBodyBytes    = 1 << 20
)

// Debugger runs one repair workflow.
type Debugger interface {
	Invoke(ctx context.Context, query string) (*graph.Result, error)
}

// Ingester rebuilds the code index.
type Ingester interface {
	Run(ctx context.Context) (ingestion.Report, error)
}

// RunStore records finished runs.
type RunStore interface {
	Record(ctx context.Context, run storage.Run) (storage.Run, error)
	Get(ctx context.Context, id string) (storage.Run, error)
	List(ctx context.Context, limit int) ([]storage.Run, error)
}

// Pinger is a dependency checked by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Port           int
	RateLimit      float64 // requests per second on /debug and /ingest, 0 disables
	Burst          int
	AllowedOrigins []string

	// History enables the /runs routes when set.
	History RunStore
	Checks  map[string]Pinger

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
}

type Server struct {
	debugger Debugger
	ingester Ingester
	opts     Options
	limiter  *rate.Limiter
	logger   *zap.Logger

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	handler http.Handler
}

type debugRequest struct {
	ErrorMessage string `json:"error_message"`
}

type debugResponse struct {
	Success    bool   `json:"success"`
	Fix        string `json:"fix"`
	Iterations int    `json:"iterations"`
	Validated  bool   `json:"validated"`
	LastError  string `json:"last_error,omitempty"`
	RunID      string `json:"run_id,omitempty"`
}

type ingestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Files   int    `json:"files"`
	Chunks  int    `json:"chunks"`
	Skipped int    `json:"skipped"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// New builds the router. A nil Registerer gets a private registry.
func New(d Debugger, in Ingester, opts Options) *Server {
	opts.Logger = logging.OrNop(opts.Logger)
	if opts.Registerer == nil {
		reg := prometheus.NewRegistry()
		opts.Registerer, opts.Gatherer = reg, reg
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	s := &Server{
		debugger: d,
		ingester: in,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   opts.Logger,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debugger_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "debugger_http_request_duration_seconds",
				Help: "Duration of HTTP requests",
			},
			[]string{"route", "method"},
		),
	}
	opts.Registerer.MustRegister(s.requestsTotal, s.requestDuration)
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()
	router.Use(s.instrument)

	router.Handle("/debug", s.limited(http.HandlerFunc(s.handleDebug))).Methods(http.MethodPost)
	router.Handle("/ingest", s.limited(http.HandlerFunc(s.handleIngest))).Methods(http.MethodPost)
	if s.opts.History != nil {
		router.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
		router.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	}
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.opts.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(cors(router))
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.opts.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.Int("port", s.opts.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server exited")
	return nil
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req debugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ErrorMessage) == "" {
		writeError(w, http.StatusBadRequest, "error_message is required")
		return
	}

	start := time.Now()
	res, err := s.debugger.Invoke(r.Context(), req.ErrorMessage)
	if err != nil {
		s.logger.Error("debug run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := debugResponse{
		Success:    true,
		Fix:        res.Answer,
		Iterations: res.Iterations,
		Validated:  res.Validated,
		LastError:  res.LastError,
	}
	if s.opts.History != nil {
		run, err := s.opts.History.Record(r.Context(), storage.Run{
			Query:      req.ErrorMessage,
			Answer:     res.Answer,
			Iterations: res.Iterations,
			Validated:  res.Validated,
			LastError:  res.LastError,
			DurationMS: time.Since(start).Milliseconds(),
		})
		if err != nil {
			s.logger.Warn("recording run failed", zap.Error(err))
		} else {
			resp.RunID = run.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	report, err := s.ingester.Run(r.Context())
	if err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	msg := "Database Updated Successfully"
	if !report.Indexed {
		msg = "No source files found, index unchanged"
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		Success: true,
		Message: msg,
		Files:   report.Files,
		Chunks:  report.Chunks,
		Skipped: report.Skipped,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.opts.History.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	run, err := s.opts.History.Get(r.Context(), id)
	if errors.Is(err, storage.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("loading run failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	components := make(map[string]string, len(s.opts.Checks))
	for name, p := range s.opts.Checks {
		if err := p.Ping(ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"service":    "debug-agent",
		"components": components,
	})
}

// limited rejects requests beyond the configured rate with 429.
func (s *Server) limited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.logger.Warn("rate limit exceeded", zap.String("path", r.URL.Path))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		s.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Success: false, Error: msg})
}
