package domain

import (
	"errors"
	"fmt"
)

var (
	// uploaded file or model is rejected before a job is created.
	ErrUpload = errors.New("upload rejected")

	// reference dataset can not be fetched.
	ErrFetch = errors.New("failed to fetch reference sequences")

	// a result is requested for a job which is not completed.
	ErrIncompleteJob = errors.New("job is not completed")

	// no reference sequence matches.
	ErrNotFound = errors.New("not found")

	// the job id is not tracked.
	ErrUnknownJob = errors.New("unknown job")

	// the server reported the job as failed.
	ErrJobFailed = errors.New("job failed")
)

// JobError is an error caused on a specific job.
type JobError struct {
	JobId string
	Err   error
}

func NewJobError(jobId string, err error) *JobError {
	return &JobError{JobId: jobId, Err: err}
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s: %s", e.JobId, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}
