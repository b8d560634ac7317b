// Package resolver joins results of a completed job with the reference dataset.
package resolver

import (
	"context"
	"fmt"

	"github.com/opst/seqmap/pkg/accession"
	"github.com/opst/seqmap/pkg/api/types/sequences"
	"github.com/opst/seqmap/pkg/domain"
	"github.com/opst/seqmap/pkg/similarity"
)

// Projector fetches UMAP coordinates of the uploaded sequence.
type Projector interface {
	GetUmapProjection(ctx context.Context, jobId string) (sequences.Projection, error)
}

// Cache is the reference dataset.
type Cache interface {
	Load(ctx context.Context, force bool) ([]domain.ReferenceSequence, error)
	FindByAccession(query string) (domain.ReferenceSequence, accession.Strategy, error)
	FindByHash(hash string) (domain.ReferenceSequence, error)
}

// Caches returns the reference dataset of an embedding model.
//
// Empty model means the default model.
type Caches func(model string) Cache

// Single uses one dataset for every model.
func Single(c Cache) Caches {
	return func(string) Cache { return c }
}

type Resolver struct {
	Projector Projector
	Strategy  Strategy
	Caches    Caches
}

// Resolve builds the result of a completed job.
//
// Every candidate found by the Strategy yields one SimilarMatch, in order.
// Candidates not found in the dataset are kept with absent coordinates.
//
// # Errors
//
// All errors are *domain.JobError.
//
// - domain.ErrIncompleteJob: the job is not completed.
//
// - domain.ErrFetch: the reference dataset can not be loaded.
//
// - others: errors from the analysis server.
func (r *Resolver) Resolve(ctx context.Context, job domain.AnalysisJob) (domain.UserSequenceResult, error) {
	if job.Status != domain.Completed {
		return domain.UserSequenceResult{}, domain.NewJobError(
			job.JobId, fmt.Errorf("%w (status: %s)", domain.ErrIncompleteJob, job.Status),
		)
	}

	proj, err := r.Projector.GetUmapProjection(ctx, job.JobId)
	if err != nil {
		return domain.UserSequenceResult{}, domain.NewJobError(job.JobId, fmt.Errorf("projection: %w", err))
	}

	cache := r.Caches(job.Model)
	if _, err := cache.Load(ctx, false); err != nil {
		return domain.UserSequenceResult{}, domain.NewJobError(job.JobId, err)
	}

	candidates, err := r.Strategy.Similar(ctx, job)
	if err != nil {
		return domain.UserSequenceResult{}, domain.NewJobError(job.JobId, fmt.Errorf("similar sequences: %w", err))
	}

	matches := make([]domain.SimilarMatch, 0, len(candidates))
	for _, c := range candidates {
		m := domain.SimilarMatch{
			ReferenceAccessionId: c.Accession,
			SimilarityScore:      similarity.Clamp(c.Score),
		}
		if ref, ok := lookup(cache, c); ok {
			coord := ref.Coordinates
			m.Coordinates = &coord
			if m.ReferenceAccessionId == "" {
				m.ReferenceAccessionId = ref.AccessionId
			}
		}
		matches = append(matches, m)
	}

	return domain.UserSequenceResult{
		JobId:            job.JobId,
		Model:            job.Model,
		Coordinates:      domain.Coordinates{X: proj.X, Y: proj.Y},
		SimilarSequences: matches,
	}, nil
}

// lookup by accession. Candidates without accession are looked up by sequence hash.
func lookup(cache Cache, c Candidate) (domain.ReferenceSequence, bool) {
	if c.Accession != "" {
		ref, _, err := cache.FindByAccession(c.Accession)
		return ref, err == nil
	}
	ref, err := cache.FindByHash(c.SequenceHash)
	return ref, err == nil
}
