package domain

import (
	"fmt"
	"time"
)

type Status string

const (
	// The job is accepted and waiting for workers.
	Queued Status = "queued"

	// The uploaded sequence is being embedded.
	Embedding Status = "embedding"

	// The embedding is being projected into UMAP space.
	Projecting Status = "projecting"

	// Similar sequences are being searched.
	Similarity Status = "similarity"

	// The job has been done, successfully.
	Completed Status = "completed"

	// The job stopped with error.
	Failed Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

// Statuses in the order a job goes through.
func Statuses() []Status {
	return []Status{Queued, Embedding, Projecting, Similarity, Completed, Failed}
}

func AsStatus(status string) (Status, error) {
	switch status {
	case string(Queued):
		return Queued, nil
	case string(Embedding):
		return Embedding, nil
	case string(Projecting):
		return Projecting, nil
	case string(Similarity):
		return Similarity, nil
	case string(Completed):
		return Completed, nil
	case string(Failed):
		return Failed, nil
	default:
		return "", fmt.Errorf("'%s' is not job status", status)
	}
}

// IsTerminal returns true if no more transition happens from the status.
func (s Status) IsTerminal() bool {
	switch s {
	case Completed, Failed:
		return true
	default:
		return false
	}
}

// AnalysisJob is a server-side analysis of one uploaded sequence.
type AnalysisJob struct {
	JobId  string
	Status Status

	// embedding model the sequence is analysed with. Empty means the default model.
	Model string

	SubmittedAt  time.Time
	LastPolledAt time.Time

	// interval to wait before the next status check.
	PollInterval time.Duration

	// EmbeddingId is given by the server once the sequence is embedded.
	// Empty when not known yet.
	EmbeddingId string

	// ErrorMessage is the reason of failure reported by the server.
	ErrorMessage string
}

// StatusChange is an event emitted when a job is observed in a new status.
type StatusChange struct {
	JobId        string    `json:"job_id"`
	From         Status    `json:"from"`
	To           Status    `json:"to"`
	At           time.Time `json:"at"`
	ErrorMessage string    `json:"error,omitempty"`
}
