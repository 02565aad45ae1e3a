package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/copyleftdev/gridsearch/internal/config"
	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/harness"
	"github.com/copyleftdev/gridsearch/internal/logging"
	"github.com/copyleftdev/gridsearch/internal/optimization"
	"github.com/copyleftdev/gridsearch/internal/registry"
	"github.com/copyleftdev/gridsearch/internal/scenario"
)

const component = "server"

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Job states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// SolveRequest is the body of POST /api/v1/solve and the parameter of
// gridsearch.start.
type SolveRequest struct {
	Problem   string    `json:"problem"`
	Params    []float64 `json:"params,omitempty"`
	Low       []float64 `json:"low"`
	High      []float64 `json:"high"`
	Tolerance *float64  `json:"tolerance,omitempty"`
	Solver    string    `json:"solver,omitempty"`
	Step      []float64 `json:"step"`
	Direction []int     `json:"direction,omitempty"`
	History   bool      `json:"history,omitempty"`
}

// Scenario converts the request to the scenario the harness runs.
func (r SolveRequest) Scenario() *scenario.File {
	return &scenario.File{
		Problem: scenario.Problem{Name: r.Problem, Params: r.Params},
		Region:  scenario.Region{Low: r.Low, High: r.High, Tolerance: r.Tolerance},
		Search: scenario.Search{
			Solver:    r.Solver,
			Step:      r.Step,
			Direction: r.Direction,
			History:   r.History,
		},
	}
}

// JobStatus is the externally visible state of a job.
type JobStatus struct {
	ID          string                    `json:"job_id"`
	Status      string                    `json:"status"`
	StartTime   time.Time                 `json:"start_time"`
	EndTime     *time.Time                `json:"end_time,omitempty"`
	LastUpdated time.Time                 `json:"last_update"`
	Evaluations int                       `json:"evaluations"`
	Result      *harness.Result           `json:"result,omitempty"`
	History     []optimization.Evaluation `json:"history,omitempty"`
	Error       string                    `json:"error,omitempty"`
	Code        string                    `json:"code,omitempty"`
}

// job tracks one search. All fields are guarded by Server.jobsMu.
type job struct {
	status JobStatus
	cancel context.CancelFunc
}

func (j *job) terminal() bool {
	switch j.status.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Server implements the HTTP and JSON-RPC server for the search service.
// It manages search jobs and provides endpoints to start, monitor, and
// cancel them.
type Server struct {
	cfg      *config.Config
	logger   Logger
	registry *registry.Registry
	harness  *harness.Harness
	metrics  *Metrics

	// slots bounds the number of jobs searching at once.
	slots chan struct{}
	seq   atomic.Uint64
	wg    sync.WaitGroup

	jobs   map[string]*job
	jobsMu sync.RWMutex
}

type serverOptions struct {
	searchLogger *zap.Logger
	registerer   prometheus.Registerer
	sink         *logging.Sink
}

// Option configures a Server.
type Option func(*serverOptions)

// WithSearchLogger sets the logger handed to the harness.
func WithSearchLogger(logger *zap.Logger) Option {
	return func(o *serverOptions) { o.searchLogger = logger }
}

// WithRegisterer sets where job metrics are registered. The default is a
// private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *serverOptions) { o.registerer = reg }
}

// WithSink shares the error log sink with the harness.
func WithSink(sink *logging.Sink) Option {
	return func(o *serverOptions) { o.sink = sink }
}

// NewServer creates a new server instance resolving problems and solvers from
// reg. The logger parameter accepts any type that implements the Logger
// interface.
func NewServer(cfg *config.Config, logger Logger, reg *registry.Registry, opts ...Option) *Server {
	o := serverOptions{searchLogger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}

	workers := cfg.Optimization.WorkerCount
	if workers < 1 {
		workers = 1
	}

	return &Server{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		harness: harness.New(reg,
			harness.WithLogger(o.searchLogger),
			harness.WithSink(o.sink),
			harness.WithTolerance(cfg.Solver.Tolerance),
			harness.WithMaxEvaluations(cfg.Solver.MaxPoints),
		),
		metrics: NewMetrics(o.registerer),
		slots:   make(chan struct{}, workers),
		jobs:    make(map[string]*job),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/solve", s.handleSolve)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/solve/{id}", s.handleCancel)
		r.Get("/problems", s.handleProblems)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// Start validates req and queues a job for it. The returned status is the
// job's initial state.
func (s *Server) Start(req SolveRequest) (JobStatus, error) {
	sc := req.Scenario()
	if err := sc.Validate(); err != nil {
		return JobStatus{}, err
	}
	if !slices.Contains(s.registry.Names(registry.KindProblem), req.Problem) {
		return JobStatus{}, errors.E(errors.CodeElemNotFound, component, "Start").
			WithMessage(fmt.Sprintf("unknown problem %q", req.Problem))
	}
	if !slices.Contains(s.registry.Names(registry.KindSolver), sc.Search.SolverName()) {
		return JobStatus{}, errors.E(errors.CodeElemNotFound, component, "Start").
			WithMessage(fmt.Sprintf("unknown solver %q", sc.Search.SolverName()))
	}

	now := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		status: JobStatus{
			ID:          fmt.Sprintf("job_%d", s.seq.Add(1)),
			Status:      StatusPending,
			StartTime:   now,
			LastUpdated: now,
		},
		cancel: cancel,
	}

	s.jobsMu.Lock()
	s.jobs[j.status.ID] = j
	s.jobsMu.Unlock()

	s.logger.Info("Job queued", map[string]interface{}{
		"job_id":  j.status.ID,
		"problem": req.Problem,
	})

	s.wg.Add(1)
	go s.run(ctx, j, sc)

	return j.status, nil
}

// Status returns a snapshot of the job with the given id.
func (s *Server) Status(id string) (JobStatus, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return JobStatus{}, errors.E(errors.CodeElemNotFound, component, "Status").
			WithMessage(fmt.Sprintf("no job %q", id))
	}
	return j.status, nil
}

// Cancel stops a pending or running job. Jobs that already finished cannot
// be cancelled.
func (s *Server) Cancel(id string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return errors.E(errors.CodeElemNotFound, component, "Cancel").
			WithMessage(fmt.Sprintf("no job %q", id))
	}
	if j.terminal() {
		return errors.E(errors.CodeInvalidParams, component, "Cancel").
			WithMessage(fmt.Sprintf("cannot cancel job with status %s", j.status.Status))
	}

	j.cancel()
	s.finishLocked(j, StatusCancelled)

	s.logger.Info("Job cancelled", map[string]interface{}{"job_id": id})
	return nil
}

// run waits for a worker slot and drives the search.
func (s *Server) run(ctx context.Context, j *job, sc *scenario.File) {
	defer s.wg.Done()
	defer j.cancel()

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return
	}

	s.jobsMu.Lock()
	if j.terminal() {
		s.jobsMu.Unlock()
		return
	}
	j.status.Status = StatusRunning
	j.status.LastUpdated = time.Now()
	s.jobsMu.Unlock()

	s.metrics.Running.Inc()
	defer s.metrics.Running.Dec()

	res, err := s.harness.Run(ctx, sc, func(optimization.Evaluation) {
		s.metrics.Evaluations.Inc()
		s.jobsMu.Lock()
		j.status.Evaluations++
		j.status.LastUpdated = time.Now()
		s.jobsMu.Unlock()
	})

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if j.terminal() {
		return
	}
	if err != nil {
		j.status.Error = err.Error()
		j.status.Code = errors.CodeOf(err).String()
		s.finishLocked(j, StatusFailed)
		s.logger.Error("Job failed", map[string]interface{}{
			"job_id": j.status.ID,
			"code":   j.status.Code,
			"error":  j.status.Error,
		})
		return
	}

	j.status.Result = res
	j.status.History = res.History
	j.status.Evaluations = res.Evaluations
	s.finishLocked(j, StatusCompleted)
	s.logger.Info("Job completed", map[string]interface{}{
		"job_id":      j.status.ID,
		"evaluations": res.Evaluations,
		"value":       res.Value,
	})
}

func (s *Server) finishLocked(j *job, status string) {
	now := time.Now()
	j.status.Status = status
	j.status.EndTime = &now
	j.status.LastUpdated = now
	s.metrics.Jobs.WithLabelValues(status).Inc()
	s.metrics.Duration.Observe(now.Sub(j.status.StartTime).Seconds())
}

// Close cancels every unfinished job and waits for the workers to return.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	for _, j := range s.jobs {
		if !j.terminal() {
			j.cancel()
			s.finishLocked(j, StatusCancelled)
		}
	}
	s.jobsMu.Unlock()

	s.wg.Wait()
	return nil
}

// rpcRequest is a JSON-RPC 2.0 request. Params is positional; every method
// takes a single object.
type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      interface{}       `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params,omitempty"`
}

type jobRef struct {
	JobID string `json:"job_id"`
}

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
)

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, rpcParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, rpcInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "gridsearch.start":
		var req SolveRequest
		if !s.decodeParams(w, request, &req) {
			return
		}
		result, err = s.Start(req)
	case "gridsearch.status":
		var ref jobRef
		if !s.decodeParams(w, request, &ref) {
			return
		}
		result, err = s.Status(ref.JobID)
	case "gridsearch.cancel":
		var ref jobRef
		if !s.decodeParams(w, request, &ref) {
			return
		}
		if err = s.Cancel(ref.JobID); err == nil {
			result = map[string]string{"status": StatusCancelled}
		}
	case "gridsearch.problems":
		result = s.registry.Names(registry.KindProblem)
	default:
		s.respondWithError(w, rpcMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, rpcServerError, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// decodeParams decodes the first positional parameter into dst, answering
// with an invalid-params error when it is missing or malformed.
func (s *Server) decodeParams(w http.ResponseWriter, request rpcRequest, dst interface{}) bool {
	if len(request.Params) == 0 {
		s.respondWithError(w, rpcInvalidParams, "missing required parameters", request.ID)
		return false
	}
	if err := json.Unmarshal(request.Params[0], dst); err != nil {
		s.respondWithError(w, rpcInvalidParams, "invalid parameter format, expected object", request.ID)
		return false
	}
	return true
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	body := map[string]interface{}{
		"error": err.Error(),
		"code":  errors.CodeOf(err).String(),
	}
	s.respondJSON(w, errors.StatusFor(err), body)
}

// handleSolve handles POST /api/v1/solve
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("Invalid request body: %v", err),
		})
		return
	}

	status, err := s.Start(req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": status.ID,
		"status": status.Status,
	})
}

// handleStatus handles GET /api/v1/status/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.Status(chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

// handleCancel handles DELETE /api/v1/solve/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.Cancel(chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "cancellation requested",
	})
}

// handleProblems handles GET /api/v1/problems
func (s *Server) handleProblems(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string][]string{
		"problems": s.registry.Names(registry.KindProblem),
		"solvers":  s.registry.Names(registry.KindSolver),
	})
}
