package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/opst/seqmap/pkg/api/types/sequences"
	"github.com/opst/seqmap/pkg/domain"
	"github.com/opst/seqmap/pkg/similarity"
)

// Candidate is a reference sequence reported as similar to the uploaded one.
type Candidate struct {
	Accession    string
	SequenceHash string

	// in [0, 1]
	Score float64
}

// Strategy finds sequences similar to the one of a job.
type Strategy interface {
	Similar(ctx context.Context, job domain.AnalysisJob) ([]Candidate, error)
}

// SimilarClient asks the analysis server for similar sequences.
type SimilarClient interface {
	GetSimilarSequences(ctx context.Context, jobId string, query sequences.SimilarQuery) ([]sequences.Similar, error)
}

type serverStrategy struct {
	client SimilarClient
	query  sequences.SimilarQuery
}

// Server is a Strategy asking the analysis server.
//
// Every element in the response becomes a Candidate, in the order of the response.
// Elements without similarity are scored 0.
func Server(client SimilarClient, query sequences.SimilarQuery) Strategy {
	return &serverStrategy{client: client, query: query}
}

func (s *serverStrategy) Similar(ctx context.Context, job domain.AnalysisJob) ([]Candidate, error) {
	resp, err := s.client.GetSimilarSequences(ctx, job.JobId, s.query)
	if err != nil {
		return nil, err
	}
	ret := make([]Candidate, 0, len(resp))
	for _, r := range resp {
		score := 0.0
		if r.Similarity != nil {
			score = similarity.Clamp(*r.Similarity)
		}
		ret = append(ret, Candidate{
			Accession:    r.Accession,
			SequenceHash: r.SequenceHash,
			Score:        score,
		})
	}
	return ret, nil
}

var ErrNoEmbedding = errors.New("embedding of the uploaded sequence is not available")

type localStrategy struct {
	caches  Caches
	options similarity.Options
}

// Local is a Strategy computing cosine similarity over cached embeddings.
//
// The embedding of the uploaded sequence is looked up from the dataset of
// the job's model by the job's embedding id as sequence hash. When it is missing,
// the dataset is refreshed once. The uploaded sequence itself is excluded from results.
func Local(caches Caches, options similarity.Options) Strategy {
	return &localStrategy{caches: caches, options: options}
}

func (l *localStrategy) Similar(ctx context.Context, job domain.AnalysisJob) ([]Candidate, error) {
	if job.EmbeddingId == "" {
		return nil, fmt.Errorf("%w: server did not tell embedding id", ErrNoEmbedding)
	}

	cache := l.caches(job.Model)
	refs, err := cache.Load(ctx, false)
	if err != nil {
		return nil, err
	}
	query, err := cache.FindByHash(job.EmbeddingId)
	if errors.Is(err, domain.ErrNotFound) {
		if refs, err = cache.Load(ctx, true); err != nil {
			return nil, err
		}
		query, err = cache.FindByHash(job.EmbeddingId)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoEmbedding, err)
	}
	if len(query.Embedding) == 0 {
		return nil, fmt.Errorf("%w: dataset has no embeddings (embedding id: %s)", ErrNoEmbedding, job.EmbeddingId)
	}

	opts := l.options
	opts.ExcludeHash = job.EmbeddingId
	scored := similarity.Search(query.Embedding, refs, opts)

	ret := make([]Candidate, 0, len(scored))
	for _, s := range scored {
		ret = append(ret, Candidate{
			Accession:    s.Reference.AccessionId,
			SequenceHash: s.Reference.SequenceHash,
			Score:        s.Score,
		})
	}
	return ret, nil
}
