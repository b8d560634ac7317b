// Package tracker follows analysis jobs on the server until they finish.
//
// Each job is polled by its own goroutine. The interval between status checks
// grows as min(interval * factor, max) without jitter. Failures to check status
// are logged and retried at the initial interval, without limit.
package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	apijobs "github.com/opst/seqmap/pkg/api/types/jobs"
	"github.com/opst/seqmap/pkg/backoff"
	"github.com/opst/seqmap/pkg/domain"
	"github.com/opst/seqmap/pkg/fasta"
	"github.com/opst/seqmap/pkg/hook"
)

// ErrPollingTimeout is returned from Wait when a job does not finish in the timeout.
var ErrPollingTimeout = errors.New("polling timed out")

// Client is the part of the analysis API the tracker needs.
type Client interface {
	UploadSequence(ctx context.Context, filename string, content io.Reader, model string) (string, error)
	GetJobStatus(ctx context.Context, jobId string) (apijobs.Detail, error)
}

// Resolver builds the result of a completed job.
type Resolver interface {
	Resolve(ctx context.Context, job domain.AnalysisJob) (domain.UserSequenceResult, error)
}

type Upload struct {
	// file name. Its extension is checked.
	Name string

	// FASTA content
	Body io.Reader

	// embedding model
	Model string

	// Monitor wraps the validated content just before sending, if not nil.
	// Use this to observe upload progress.
	Monitor func(content io.Reader, size int64) io.Reader
}

type entry struct {
	job domain.AnalysisJob

	result    *domain.UserSequenceResult
	resultErr error

	// non-nil while a poll loop is running.
	cancel context.CancelFunc

	// closed when the running (or last) poll loop ends.
	done chan struct{}

	// error the last poll loop ended with.
	loopErr error

	// incremented when polling is stopped. Responses for older generations are discarded.
	generation uint64
}

// unresolved reports whether the job is completed but neither its result nor
// an error of resolving it is known.
func (e *entry) unresolved() bool {
	return e.job.Status == domain.Completed && e.result == nil && e.resultErr == nil
}

type Tracker struct {
	client   Client
	resolver Resolver
	policy   backoff.Capped
	logger   *log.Logger
	hook     hook.Hook[domain.StatusChange]
	metrics  *Metrics
	timeout  time.Duration
	now      func() time.Time

	checkTimeout time.Duration

	mu   sync.Mutex
	jobs map[string]*entry
}

type Option func(*Tracker) *Tracker

// WithPolicy sets the polling interval policy. Default is backoff.Default().
func WithPolicy(policy backoff.Capped) Option {
	return func(t *Tracker) *Tracker {
		t.policy = policy
		return t
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(t *Tracker) *Tracker {
		t.logger = logger
		return t
	}
}

// WithHook sets a hook notified with status changes.
//
// Hook failures are logged, and never stop polling.
func WithHook(h hook.Hook[domain.StatusChange]) Option {
	return func(t *Tracker) *Tracker {
		t.hook = h
		return t
	}
}

func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) *Tracker {
		t.metrics = m
		return t
	}
}

// WithTimeout limits how long a job is polled. 0 means no limit (default).
func WithTimeout(d time.Duration) Option {
	return func(t *Tracker) *Tracker {
		t.timeout = d
		return t
	}
}

// WithCheckTimeout limits how long one status check waits for the server.
// A check timed out is retried as a failed check. 0 means no limit (default).
func WithCheckTimeout(d time.Duration) Option {
	return func(t *Tracker) *Tracker {
		t.checkTimeout = d
		return t
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) *Tracker {
		t.now = now
		return t
	}
}

func New(client Client, resolver Resolver, options ...Option) *Tracker {
	t := &Tracker{
		client:   client,
		resolver: resolver,
		policy:   backoff.Default(),
		logger:   log.New(io.Discard, "", 0),
		hook:     hook.None[domain.StatusChange]{},
		now:      time.Now,
		jobs:     map[string]*entry{},
	}
	for _, opt := range options {
		t = opt(t)
	}
	return t
}

// Submit validates and uploads a FASTA file, then starts tracking the created job as queued.
//
// Polling is not started. Call StartPolling.
//
// Any failure is domain.ErrUpload, and no job is created then.
func (t *Tracker) Submit(ctx context.Context, upload Upload) (string, error) {
	if upload.Body == nil {
		return "", fmt.Errorf("%w: no content", domain.ErrUpload)
	}
	content, err := fasta.Validate(upload.Name, upload.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrUpload, upload.Name, err)
	}

	var body io.Reader = bytes.NewReader(content)
	if upload.Monitor != nil {
		body = upload.Monitor(body, int64(len(content)))
	}

	jobId, err := t.client.UploadSequence(ctx, upload.Name, body, upload.Model)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrUpload, upload.Name, err)
	}

	t.Track(jobId, upload.Model)
	return jobId, nil
}

// Track starts tracking a job which already exists on the server, as queued.
//
// model is the embedding model the job is analysed with. Empty means the default model.
//
// If the job is tracked already, it does nothing.
func (t *Tracker) Track(jobId string, model string) domain.AnalysisJob {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.jobs[jobId]; ok {
		return e.job
	}
	e := &entry{
		job: domain.AnalysisJob{
			JobId:        jobId,
			Status:       domain.Queued,
			Model:        model,
			SubmittedAt:  t.now(),
			PollInterval: t.policy.First(),
		},
	}
	t.jobs[jobId] = e
	return e.job
}

// StartPolling starts polling status of the job in background, and returns immediately.
//
// The first check is done at once. It does nothing when the job is being polled
// or has finished already. A completed job whose result has not been resolved
// (polling was stopped while resolving) is polled again to resolve it.
//
// The poll loop lives until the job finishes, StopPolling is called or ctx is done.
func (t *Tracker) StartPolling(ctx context.Context, jobId string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[jobId]
	if !ok {
		return domain.NewJobError(jobId, domain.ErrUnknownJob)
	}
	if e.cancel != nil || (e.job.Status.IsTerminal() && !e.unresolved()) {
		return nil
	}

	var cancel context.CancelFunc
	if 0 < t.timeout {
		ctx, cancel = context.WithTimeoutCause(
			ctx, t.timeout, domain.NewJobError(jobId, ErrPollingTimeout),
		)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	e.cancel = cancel
	e.done = make(chan struct{})
	e.loopErr = nil

	t.metrics.started()
	go t.poll(ctx, jobId, e.generation, e.done)
	return nil
}

// StopPolling stops polling the job. It is idempotent.
//
// A response arriving after this is discarded.
func (t *Tracker) StopPolling(jobId string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.jobs[jobId]; ok {
		t.stop(e)
	}
}

// stop polling. caller should hold t.mu.
func (t *Tracker) stop(e *entry) {
	e.generation += 1
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Dismiss stops polling and forgets the job.
func (t *Tracker) Dismiss(jobId string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[jobId]
	if !ok {
		return domain.NewJobError(jobId, domain.ErrUnknownJob)
	}
	t.stop(e)
	delete(t.jobs, jobId)
	return nil
}

// Job returns the current state of the job.
func (t *Tracker) Job(jobId string) (domain.AnalysisJob, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[jobId]
	if !ok {
		return domain.AnalysisJob{}, domain.NewJobError(jobId, domain.ErrUnknownJob)
	}
	return e.job, nil
}

// Polling reports whether the job is being polled.
func (t *Tracker) Polling(jobId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[jobId]
	return ok && e.cancel != nil
}

// Jobs returns all tracked jobs, ordered by submission.
func (t *Tracker) Jobs() []domain.AnalysisJob {
	t.mu.Lock()
	ret := make([]domain.AnalysisJob, 0, len(t.jobs))
	for _, e := range t.jobs {
		ret = append(ret, e.job)
	}
	t.mu.Unlock()

	sort.Slice(ret, func(i, j int) bool {
		if !ret[i].SubmittedAt.Equal(ret[j].SubmittedAt) {
			return ret[i].SubmittedAt.Before(ret[j].SubmittedAt)
		}
		return ret[i].JobId < ret[j].JobId
	})
	return ret
}

// Result returns the result of the job, resolved when it was completed.
//
// # Errors
//
// All errors are *domain.JobError.
//
// - domain.ErrUnknownJob
//
// - domain.ErrJobFailed: the server reported the job as failed.
//
// - domain.ErrIncompleteJob: the job is not completed, or its result is being resolved.
//
// - others: error caused while resolving the result.
func (t *Tracker) Result(jobId string) (domain.UserSequenceResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[jobId]
	if !ok {
		return domain.UserSequenceResult{}, domain.NewJobError(jobId, domain.ErrUnknownJob)
	}

	switch {
	case e.job.Status == domain.Failed:
		return domain.UserSequenceResult{}, domain.NewJobError(
			jobId, fmt.Errorf("%w: %s", domain.ErrJobFailed, e.job.ErrorMessage),
		)
	case e.job.Status != domain.Completed:
		return domain.UserSequenceResult{}, domain.NewJobError(
			jobId, fmt.Errorf("%w (status: %s)", domain.ErrIncompleteJob, e.job.Status),
		)
	case e.resultErr != nil:
		return domain.UserSequenceResult{}, e.resultErr
	case e.result == nil:
		return domain.UserSequenceResult{}, domain.NewJobError(
			jobId, fmt.Errorf("%w: result is not resolved yet", domain.ErrIncompleteJob),
		)
	default:
		return *e.result, nil
	}
}

// Resolve resolves the result of the job now, and keeps it.
//
// It fails with domain.ErrIncompleteJob unless the job has been completed.
func (t *Tracker) Resolve(ctx context.Context, jobId string) (domain.UserSequenceResult, error) {
	job, err := t.Job(jobId)
	if err != nil {
		return domain.UserSequenceResult{}, err
	}

	result, err := t.resolver.Resolve(ctx, job)

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.jobs[jobId]; ok && e.job.Status == domain.Completed {
		if err != nil {
			e.resultErr = err
		} else {
			e.result, e.resultErr = &result, nil
		}
	}
	return result, err
}

// Wait blocks until the poll loop of the job ends, and returns the job then.
//
// It returns at once when the job is not being polled.
//
// # Errors
//
// - domain.ErrUnknownJob
//
// - ErrPollingTimeout: the job did not finish in time.
//
// - ctx.Err(): ctx is done before the loop ends.
func (t *Tracker) Wait(ctx context.Context, jobId string) (domain.AnalysisJob, error) {
	t.mu.Lock()
	e, ok := t.jobs[jobId]
	if !ok {
		t.mu.Unlock()
		return domain.AnalysisJob{}, domain.NewJobError(jobId, domain.ErrUnknownJob)
	}
	done := e.done
	t.mu.Unlock()

	if done != nil {
		select {
		case <-ctx.Done():
			return domain.AnalysisJob{}, ctx.Err()
		case <-done:
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return e.job, e.loopErr
}
