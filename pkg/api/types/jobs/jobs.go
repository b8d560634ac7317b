package jobs

import (
	"time"

	"github.com/opst/seqmap/pkg/domain"
)

// Created is a response of POST /sequence/embed
type Created struct {
	JobId string `json:"job_id"`
}

// Detail is a response of GET /jobs/{job_id}
type Detail struct {
	// one of "queued", "embedding", "projecting", "similarity", "completed" or "failed".
	Status string `json:"status"`

	EmbeddingId string `json:"embedding_id,omitempty"`

	// reason of failure.
	Error string `json:"error,omitempty"`
}

func (d Detail) Equal(o Detail) bool {
	return d.Status == o.Status &&
		d.EmbeddingId == o.EmbeddingId &&
		d.Error == o.Error
}

// Summary is a job tracked by seqmap dashboard backend.
type Summary struct {
	JobId        string     `json:"job_id"`
	Status       string     `json:"status"`
	Model        string     `json:"model,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	LastPolledAt *time.Time `json:"last_polled_at,omitempty"`

	// Go duration format, like "1.5s"
	PollInterval string `json:"poll_interval"`

	// whether the status is being polled.
	Polling bool `json:"polling"`

	EmbeddingId string `json:"embedding_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

func ComposeSummary(job domain.AnalysisJob, polling bool) Summary {
	s := Summary{
		JobId:        job.JobId,
		Status:       job.Status.String(),
		Model:        job.Model,
		SubmittedAt:  job.SubmittedAt,
		PollInterval: job.PollInterval.String(),
		Polling:      polling,
		EmbeddingId:  job.EmbeddingId,
		Error:        job.ErrorMessage,
	}
	if !job.LastPolledAt.IsZero() {
		t := job.LastPolledAt
		s.LastPolledAt = &t
	}
	return s
}
