package tracker

import (
	"context"
	"errors"

	"github.com/opst/seqmap/pkg/domain"
	"github.com/opst/seqmap/pkg/loop"
)

type pollState struct {
	// number of successful status checks.
	polled int
}

func (t *Tracker) poll(ctx context.Context, jobId string, generation uint64, done chan struct{}) {
	defer close(done)
	defer t.metrics.stopped()

	options := []loop.Option{}
	if 0 < t.checkTimeout {
		options = append(options, loop.WithTimeout(t.checkTimeout))
	}
	_, err := loop.Start(ctx, pollState{}, func(checkCtx context.Context, s pollState) (pollState, loop.Next) {
		return t.check(ctx, checkCtx, jobId, generation, s)
	}, options...)

	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrPollingTimeout) {
			t.logger.Printf("job %s: stop polling: %s", jobId, cause)
			err = cause
		} else if errors.Is(err, context.Canceled) {
			err = nil
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.jobs[jobId]
	if !ok || e.generation != generation {
		return
	}
	e.loopErr = err
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// check the job status once.
//
// ctx lives as long as the poll loop. checkCtx is for the status request only.
func (t *Tracker) check(ctx, checkCtx context.Context, jobId string, generation uint64, s pollState) (pollState, loop.Next) {
	detail, err := t.client.GetJobStatus(checkCtx, jobId)
	if ctx.Err() != nil {
		t.metrics.poll(OutcomeDiscarded)
		return s, loop.Break(ctx.Err())
	}
	var status domain.Status
	if err == nil {
		status, err = domain.AsStatus(detail.Status)
	}
	if err != nil {
		t.metrics.poll(OutcomeError)
		t.logger.Printf(
			"job %s: status check failed, retry in %s: %s", jobId, t.policy.First(), err,
		)
		return s, loop.Continue(t.policy.First())
	}

	t.mu.Lock()
	e, ok := t.jobs[jobId]
	if !ok || e.generation != generation {
		t.mu.Unlock()
		t.metrics.poll(OutcomeDiscarded)
		return s, loop.Break(nil)
	}
	t.metrics.poll(OutcomeOk)

	if 0 < s.polled {
		e.job.PollInterval = t.policy.Next(e.job.PollInterval)
	}
	s.polled += 1

	e.job.LastPolledAt = t.now()
	if detail.EmbeddingId != "" {
		e.job.EmbeddingId = detail.EmbeddingId
	}
	if detail.Error != "" {
		e.job.ErrorMessage = detail.Error
	}

	var change *domain.StatusChange
	if from := e.job.Status; from != status {
		e.job.Status = status
		change = &domain.StatusChange{
			JobId: jobId, From: from, To: status,
			At: e.job.LastPolledAt, ErrorMessage: e.job.ErrorMessage,
		}
	}
	job := e.job
	t.mu.Unlock()

	if change != nil {
		t.notify(ctx, *change)
	}

	switch status {
	case domain.Failed:
		t.logger.Printf("job %s: failed: %s", jobId, job.ErrorMessage)
		return s, loop.Break(nil)
	case domain.Completed:
		t.complete(ctx, job, generation)
		return s, loop.Break(nil)
	default:
		return s, loop.Continue(job.PollInterval)
	}
}

func (t *Tracker) notify(ctx context.Context, change domain.StatusChange) {
	t.metrics.statusChanged(change.To)
	t.logger.Printf("job %s: %s -> %s", change.JobId, change.From, change.To)
	if err := t.hook.Notify(ctx, change); err != nil {
		t.logger.Printf("job %s: status change hook failed: %s", change.JobId, err)
	}
}

// complete runs the result phase of a completed job.
func (t *Tracker) complete(ctx context.Context, job domain.AnalysisJob, generation uint64) {
	result, err := t.resolver.Resolve(ctx, job)

	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.jobs[job.JobId]
	if !ok || e.generation != generation {
		return
	}
	if err != nil {
		t.logger.Printf("job %s: cannot resolve result: %s", job.JobId, err)
		e.resultErr = err
		return
	}
	e.result, e.resultErr = &result, nil
}
