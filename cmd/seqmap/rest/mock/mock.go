package mock

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/opst/seqmap/cmd/seqmap/rest"
	apijobs "github.com/opst/seqmap/pkg/api/types/jobs"
	apiseq "github.com/opst/seqmap/pkg/api/types/sequences"
)

type UploadSequenceArgs struct {
	Filename string
	Content  []byte
	Model    string
}

type GetSimilarSequencesArgs struct {
	JobId string
	Query apiseq.SimilarQuery
}

func New(t *testing.T) *MockClient {
	return &MockClient{t: t}
}

// MockClient is safe to be called from multiple goroutines.
// Read Calls after goroutines calling it are done.
type MockClient struct {
	t    *testing.T
	mu   sync.Mutex
	Impl struct {
		UploadSequence      func(ctx context.Context, filename string, content io.Reader, model string) (string, error)
		GetJobStatus        func(ctx context.Context, jobId string) (apijobs.Detail, error)
		GetUmapProjection   func(ctx context.Context, jobId string) (apiseq.Projection, error)
		GetSimilarSequences func(ctx context.Context, jobId string, query apiseq.SimilarQuery) ([]apiseq.Similar, error)
		GetAllSequences     func(ctx context.Context, model string) ([]apiseq.Record, error)
	}
	Calls struct {
		UploadSequence      []UploadSequenceArgs
		GetJobStatus        []string
		GetUmapProjection   []string
		GetSimilarSequences []GetSimilarSequencesArgs
		GetAllSequences     []string
	}
}

var _ rest.Client = &MockClient{}

// UploadSequence records the whole content, then passes it to Impl.UploadSequence.
func (m *MockClient) UploadSequence(ctx context.Context, filename string, content io.Reader, model string) (string, error) {
	m.t.Helper()

	buf, err := io.ReadAll(content)
	if err != nil {
		m.t.Fatal(err)
	}
	m.mu.Lock()
	m.Calls.UploadSequence = append(
		m.Calls.UploadSequence,
		UploadSequenceArgs{Filename: filename, Content: buf, Model: model},
	)
	m.mu.Unlock()
	if m.Impl.UploadSequence == nil {
		m.t.Fatal("UploadSequence is not ready to be called")
	}
	return m.Impl.UploadSequence(ctx, filename, bytes.NewReader(buf), model)
}

func (m *MockClient) GetJobStatus(ctx context.Context, jobId string) (apijobs.Detail, error) {
	m.t.Helper()

	m.mu.Lock()
	m.Calls.GetJobStatus = append(m.Calls.GetJobStatus, jobId)
	m.mu.Unlock()
	if m.Impl.GetJobStatus == nil {
		m.t.Fatal("GetJobStatus is not ready to be called")
	}
	return m.Impl.GetJobStatus(ctx, jobId)
}

func (m *MockClient) GetUmapProjection(ctx context.Context, jobId string) (apiseq.Projection, error) {
	m.t.Helper()

	m.mu.Lock()
	m.Calls.GetUmapProjection = append(m.Calls.GetUmapProjection, jobId)
	m.mu.Unlock()
	if m.Impl.GetUmapProjection == nil {
		m.t.Fatal("GetUmapProjection is not ready to be called")
	}
	return m.Impl.GetUmapProjection(ctx, jobId)
}

func (m *MockClient) GetSimilarSequences(ctx context.Context, jobId string, query apiseq.SimilarQuery) ([]apiseq.Similar, error) {
	m.t.Helper()

	m.mu.Lock()
	m.Calls.GetSimilarSequences = append(
		m.Calls.GetSimilarSequences, GetSimilarSequencesArgs{JobId: jobId, Query: query},
	)
	m.mu.Unlock()
	if m.Impl.GetSimilarSequences == nil {
		m.t.Fatal("GetSimilarSequences is not ready to be called")
	}
	return m.Impl.GetSimilarSequences(ctx, jobId, query)
}

func (m *MockClient) GetAllSequences(ctx context.Context, model string) ([]apiseq.Record, error) {
	m.t.Helper()

	m.mu.Lock()
	m.Calls.GetAllSequences = append(m.Calls.GetAllSequences, model)
	m.mu.Unlock()
	if m.Impl.GetAllSequences == nil {
		m.t.Fatal("GetAllSequences is not ready to be called")
	}
	return m.Impl.GetAllSequences(ctx, model)
}
