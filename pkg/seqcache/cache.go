// Package seqcache holds the reference dataset fetched from the analysis server.
//
// The dataset is replaced as a whole. Readers see a consistent snapshot and
// never wait for a refresh; refreshes are serialized, and concurrent callers
// of Load share a single in-flight fetch.
package seqcache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/opst/seqmap/pkg/accession"
	"github.com/opst/seqmap/pkg/api/types/sequences"
	"github.com/opst/seqmap/pkg/domain"
	"golang.org/x/sync/singleflight"
)

// Fetcher fetches whole reference dataset of an embedding model.
type Fetcher interface {
	GetAllSequences(ctx context.Context, model string) ([]sequences.Record, error)
}

type snapshot struct {
	refs       []domain.ReferenceSequence
	accessions []string
	byHash     map[string]int
	loadedAt   time.Time
}

type Cache struct {
	fetcher Fetcher
	model   string
	now     func() time.Time

	group   singleflight.Group
	current atomic.Pointer[snapshot]
}

type Option func(*Cache) *Cache

// WithClock replaces the clock used for LoadedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) *Cache {
		c.now = now
		return c
	}
}

func New(fetcher Fetcher, model string, options ...Option) *Cache {
	c := &Cache{fetcher: fetcher, model: model, now: time.Now}
	for _, opt := range options {
		c = opt(c)
	}
	return c
}

// Model is the embedding model of the dataset.
func (c *Cache) Model() string {
	return c.model
}

// Load returns the reference dataset, fetching it when not loaded yet or force is true.
//
// Concurrent calls share one fetch. The fetch outlives a caller whose ctx is done,
// so other callers waiting on it are not affected.
//
// The returned slice is shared. Callers must not modify it.
//
// Errors wrap domain.ErrFetch. Failed fetches are not retried and keep the previous snapshot.
func (c *Cache) Load(ctx context.Context, force bool) ([]domain.ReferenceSequence, error) {
	if !force {
		if s := c.current.Load(); s != nil {
			return s.refs, nil
		}
	}

	ch := c.group.DoChan(c.model, func() (any, error) {
		records, err := c.fetcher.GetAllSequences(context.WithoutCancel(ctx), c.model)
		if err != nil {
			return nil, err
		}
		s := build(records, c.now())
		c.current.Store(s)
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, fmt.Errorf("%w (model: %s): %w", domain.ErrFetch, c.model, r.Err)
		}
		return r.Val.(*snapshot).refs, nil
	}
}

func build(records []sequences.Record, loadedAt time.Time) *snapshot {
	s := &snapshot{
		refs:       make([]domain.ReferenceSequence, 0, len(records)),
		accessions: make([]string, 0, len(records)),
		byHash:     make(map[string]int, len(records)),
		loadedAt:   loadedAt,
	}
	for _, r := range records {
		ref := domain.ReferenceSequence{
			AccessionId:       r.Accession,
			SequenceHash:      r.SequenceHash,
			Coordinates:       domain.Coordinates{X: r.Coordinates.X, Y: r.Coordinates.Y},
			Country:           orUnknown(r.FirstCountry),
			FirstObservedDate: orUnknown(r.FirstDate),
			Embedding:         r.Embedding,
		}
		if ref.SequenceHash != "" {
			if _, ok := s.byHash[ref.SequenceHash]; !ok {
				s.byHash[ref.SequenceHash] = len(s.refs)
			}
		}
		s.refs = append(s.refs, ref)
		s.accessions = append(s.accessions, ref.AccessionId)
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return domain.Unknown
	}
	return s
}

// FindByAccession looks up a reference sequence by accession.
//
// It tries, in order: exact, case-insensitive, version-stripped and containment match.
// The first hit wins. It returns domain.ErrNotFound on miss or when nothing is loaded.
func (c *Cache) FindByAccession(query string) (domain.ReferenceSequence, accession.Strategy, error) {
	s := c.current.Load()
	if s == nil {
		return domain.ReferenceSequence{}, accession.None, fmt.Errorf("%w: %s (dataset not loaded)", domain.ErrNotFound, query)
	}
	nth, strategy, ok := accession.Match(query, s.accessions)
	if !ok {
		return domain.ReferenceSequence{}, accession.None, fmt.Errorf("%w: %s", domain.ErrNotFound, query)
	}
	return s.refs[nth], strategy, nil
}

// FindByHash looks up a reference sequence by its sequence hash.
func (c *Cache) FindByHash(hash string) (domain.ReferenceSequence, error) {
	s := c.current.Load()
	if s == nil || hash == "" {
		return domain.ReferenceSequence{}, fmt.Errorf("%w: sequence hash %q", domain.ErrNotFound, hash)
	}
	nth, ok := s.byHash[hash]
	if !ok {
		return domain.ReferenceSequence{}, fmt.Errorf("%w: sequence hash %q", domain.ErrNotFound, hash)
	}
	return s.refs[nth], nil
}

// Snapshot returns the current dataset without fetching. nil when not loaded.
func (c *Cache) Snapshot() []domain.ReferenceSequence {
	if s := c.current.Load(); s != nil {
		return s.refs
	}
	return nil
}

func (c *Cache) Loaded() bool {
	return c.current.Load() != nil
}

// LoadedAt returns when the current snapshot was fetched. Zero when not loaded.
func (c *Cache) LoadedAt() time.Time {
	if s := c.current.Load(); s != nil {
		return s.loadedAt
	}
	return time.Time{}
}

// Lookup finds a reference sequence by accession, like FindByAccession, and describes the hit.
func (c *Cache) Lookup(query string) (sequences.Lookup, error) {
	ref, strategy, err := c.FindByAccession(query)
	if err != nil {
		return sequences.Lookup{}, err
	}
	return sequences.Lookup{
		Query:        query,
		Accession:    ref.AccessionId,
		SequenceHash: ref.SequenceHash,
		Coordinates:  sequences.Coordinates{X: ref.Coordinates.X, Y: ref.Coordinates.Y},
		Country:      ref.Country,
		Date:         ref.FirstObservedDate,
		Strategy:     strategy.String(),
	}, nil
}
