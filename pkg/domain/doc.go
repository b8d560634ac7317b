package domain

// domain package contains the Domain Models for seqmap.
//
// `domain/job.go` has the analysis job entity and its status machine.
// `domain/sequence.go` has reference sequences and the result of an analysis.
// `domain/errors.go` has the error taxonomy shared by the cache, tracker and resolver.
//
// # Entities
//
// - `ReferenceSequence`: a known sequence with its UMAP coordinates.
// They are fetched in bulk from the analysis API and held by the Sequence Cache (pkg/seqcache).
// A ReferenceSequence is never mutated; the cache replaces the whole dataset on refresh.
//
// - `AnalysisJob`: one asynchronous analysis request for an uploaded sequence.
// The Job Tracker (pkg/tracker) drives its status from "queued" to "completed" or "failed".
//
// - `UserSequenceResult`: coordinates of the uploaded sequence and its similar sequences.
// It is built by the Similarity Resolver (pkg/resolver) once a job is completed,
// and is passed to the visualization adapter (pkg/visualize).
//
