// Package server exposes scan sessions, single extractions and refinement over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/notescan/internal/async"
	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/entity"
	"github.com/joseph-ayodele/notescan/internal/extract"
	"github.com/joseph-ayodele/notescan/internal/pipeline"
)

const (
	maxBodyBytes = 64 << 20
	maxRetries   = 5
)

type SessionRunner interface {
	RunSession(ctx context.Context, photos []entity.CapturedPhoto, opts pipeline.SessionOptions) (string, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, req extract.Request) (string, error)
	Refine(ctx context.Context, text, language string) string
}

// JobQueue runs scan sessions in the background.
type JobQueue interface {
	Enqueue(ctx context.Context, job async.Job) error
	Result(id string) (async.Result, bool)
}

type ScanService struct {
	runner    SessionRunner
	extractor TextExtractor
	jobs      JobQueue
	logger    *slog.Logger
}

// NewScanService builds the HTTP handlers. jobs may be nil, which disables the
// background scan-job routes.
func NewScanService(runner SessionRunner, extractor TextExtractor, jobs JobQueue, logger *slog.Logger) *ScanService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanService{runner: runner, extractor: extractor, jobs: jobs, logger: logger}
}

// NewRouter wires the HTTP API.
func NewRouter(svc *ScanService) *mux.Router {
	r := mux.NewRouter()
	r.Use(svc.requestID)
	r.HandleFunc("/healthz", svc.Health).Methods(http.MethodGet)
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/scans", svc.CreateScan).Methods(http.MethodPost)
	v1.HandleFunc("/extract", svc.Extract).Methods(http.MethodPost)
	v1.HandleFunc("/refine", svc.Refine).Methods(http.MethodPost)
	if svc.jobs != nil {
		v1.HandleFunc("/scan-jobs", svc.SubmitScanJob).Methods(http.MethodPost)
		v1.HandleFunc("/scan-jobs/{id}", svc.GetScanJob).Methods(http.MethodGet)
	}
	return r
}

// requestID tags every request with an id and logs its outcome.
func (s *ScanService) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", rid)
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(common.WithRequestID(r.Context(), rid)))
		s.logger.Info("http.request",
			"req_id", rid,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
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
