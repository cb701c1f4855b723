// Package async runs scan sessions on a bounded worker pool and keeps their
// outcome until it is collected or expires.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/entity"
	"github.com/joseph-ayodele/notescan/internal/pipeline"
)

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

var (
	ErrQueueFull = common.UserError(common.ErrUnavailable, "Scan queue is full. Try again shortly.")
	ErrClosed    = common.UserError(common.ErrUnavailable, "Scan queue is shutting down.")
)

// Job is one scan session submitted for background processing.
type Job struct {
	ID          string
	Photos      []entity.CapturedPhoto
	Options     pipeline.SessionOptions
	SubmittedAt time.Time
}

type Result struct {
	ID          string    `json:"session_id"`
	Status      Status    `json:"status"`
	Text        string    `json:"text,omitempty"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

type SessionRunner interface {
	RunSession(ctx context.Context, photos []entity.CapturedPhoto, opts pipeline.SessionOptions) (string, error)
}

type SessionQueue struct {
	runner    SessionRunner
	logger    *slog.Logger
	workers   int
	timeout   time.Duration
	retention time.Duration
	now       func() time.Time

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.Mutex
	closed  bool
	results map[string]*Result
}

type Option func(*SessionQueue)

func WithWorkers(n int) Option {
	return func(q *SessionQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *SessionQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithSessionTimeout(d time.Duration) Option {
	return func(q *SessionQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithRetention sets how long finished results stay available.
func WithRetention(d time.Duration) Option {
	return func(q *SessionQueue) {
		if d > 0 {
			q.retention = d
		}
	}
}

func NewSessionQueue(runner SessionRunner, logger *slog.Logger, opts ...Option) *SessionQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &SessionQueue{
		runner:    runner,
		logger:    logger,
		workers:   2,
		timeout:   5 * time.Minute,
		retention: 15 * time.Minute,
		now:       time.Now,
		ch:        make(chan Job, 64),
		results:   map[string]*Result{},
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *SessionQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *SessionQueue) run(workerID int, job Job) {
	q.setStatus(job.ID, StatusRunning)

	ctx, cancel := context.WithTimeout(common.WithSessionID(context.Background(), job.ID), q.timeout)
	text, err := q.runner.RunSession(ctx, job.Photos, job.Options)
	cancel()

	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.results[job.ID]
	if !ok {
		return
	}
	r.FinishedAt = q.now()
	if err != nil {
		r.Status, r.Error = StatusFailed, err.Error()
		q.logger.Error("async.session.failed", "worker_id", workerID, "session_id", job.ID, "error", err)
		return
	}
	r.Status, r.Text = StatusDone, text
	q.logger.Info("async.session.done", "worker_id", workerID, "session_id", job.ID, "chars", len(text))
}

func (q *SessionQueue) setStatus(id string, s Status) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if r, ok := q.results[id]; ok {
		r.Status = s
	}
}

// Enqueue submits a job without blocking; a full queue is reported as ErrQueueFull.
func (q *SessionQueue) Enqueue(_ context.Context, job Job) error {
	if job.ID == "" {
		return errors.New("job id is required")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = q.now()
	}
	q.evictLocked()
	select {
	case q.ch <- job:
		q.results[job.ID] = &Result{ID: job.ID, Status: StatusQueued, SubmittedAt: job.SubmittedAt}
		q.logger.Info("async.session.queued", "session_id", job.ID, "photos", len(job.Photos))
		return nil
	default:
		q.logger.Warn("async.queue.full", "session_id", job.ID)
		return ErrQueueFull
	}
}

// Result returns a copy of the job's current state.
func (q *SessionQueue) Result(id string) (Result, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.evictLocked()
	r, ok := q.results[id]
	if !ok {
		return Result{}, false
	}
	return *r, true
}

func (q *SessionQueue) evictLocked() {
	cutoff := q.now().Add(-q.retention)
	for id, r := range q.results {
		if !r.FinishedAt.IsZero() && r.FinishedAt.Before(cutoff) {
			delete(q.results, id)
		}
	}
}

// Shutdown stops accepting jobs and waits for running ones until ctx is done.
func (q *SessionQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()
	select {
	case <-done:
		q.logger.Info("async.queue.drained")
	case <-ctx.Done():
		q.logger.Warn("async.queue.shutdown_timeout", "error", ctx.Err())
	}
}
