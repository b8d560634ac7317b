package seqcache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opst/seqmap/pkg/accession"
	"github.com/opst/seqmap/pkg/api/types/sequences"
	"github.com/opst/seqmap/pkg/domain"
	"github.com/opst/seqmap/pkg/seqcache"
	"github.com/opst/seqmap/pkg/utils/try"
)

type fetcher struct {
	calls atomic.Int64

	// if not nil, fetch blocks until it is closed.
	gate chan struct{}

	records []sequences.Record
	err     error
}

func (f *fetcher) GetAllSequences(ctx context.Context, model string) ([]sequences.Record, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.records, f.err
}

func records() []sequences.Record {
	return []sequences.Record{
		{
			SequenceHash: "h1", Accession: "NZ_AB123.1",
			Coordinates: sequences.Coordinates{X: 1, Y: 2}, FirstCountry: "Japan", FirstDate: "2020-01-01",
		},
		{
			SequenceHash: "h2", Accession: "CD456.2",
			Coordinates: sequences.Coordinates{X: 3, Y: 4},
		},
		{
			SequenceHash: "h3", Accession: "",
			Coordinates: sequences.Coordinates{X: 5, Y: 6}, FirstCountry: "Kenya",
		},
	}
}

func TestLoad(t *testing.T) {
	t.Run("it fetches once and serves snapshot afterwards", func(t *testing.T) {
		f := &fetcher{records: records()}
		loadedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		testee := seqcache.New(f, "model-a", seqcache.WithClock(func() time.Time { return loadedAt }))

		if testee.Loaded() {
			t.Fatal("loaded before Load")
		}

		first := try.To(testee.Load(context.Background(), false)).OrFatal(t)
		second := try.To(testee.Load(context.Background(), false)).OrFatal(t)

		if n := f.calls.Load(); n != 1 {
			t.Errorf("fetched %d times", n)
		}
		if len(first) != 3 || len(second) != 3 {
			t.Errorf("unexpected size: %d, %d", len(first), len(second))
		}
		if !testee.Loaded() || !testee.LoadedAt().Equal(loadedAt) {
			t.Errorf("unexpected loaded state: %v, %s", testee.Loaded(), testee.LoadedAt())
		}
	})

	t.Run("force refetches and replaces snapshot", func(t *testing.T) {
		f := &fetcher{records: records()}
		testee := seqcache.New(f, "model-a")
		try.To(testee.Load(context.Background(), false)).OrFatal(t)

		f.records = records()[:1]
		refs := try.To(testee.Load(context.Background(), true)).OrFatal(t)

		if n := f.calls.Load(); n != 2 {
			t.Errorf("fetched %d times", n)
		}
		if len(refs) != 1 || len(testee.Snapshot()) != 1 {
			t.Errorf("snapshot is not replaced: %v", testee.Snapshot())
		}
	})

	t.Run("concurrent loads share one fetch", func(t *testing.T) {
		f := &fetcher{records: records(), gate: make(chan struct{})}
		testee := seqcache.New(f, "model-a")

		callers := 10
		started := make(chan struct{}, callers)
		wg := new(sync.WaitGroup)
		results := make([][]domain.ReferenceSequence, callers)
		errs := make([]error, callers)
		for n := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				started <- struct{}{}
				results[n], errs[n] = testee.Load(context.Background(), n%2 == 0)
			}()
		}
		for range callers {
			<-started
		}
		// let goroutines enter Load.
		time.Sleep(20 * time.Millisecond)
		close(f.gate)
		wg.Wait()

		if n := f.calls.Load(); n != 1 {
			t.Errorf("fetched %d times", n)
		}
		for n := range callers {
			if errs[n] != nil {
				t.Errorf("caller %d: unexpected error: %v", n, errs[n])
			}
			if len(results[n]) != 3 {
				t.Errorf("caller %d: unexpected result: %v", n, results[n])
			}
		}
	})

	t.Run("fetch error wraps ErrFetch and keeps previous snapshot", func(t *testing.T) {
		f := &fetcher{records: records()}
		testee := seqcache.New(f, "model-a")
		try.To(testee.Load(context.Background(), false)).OrFatal(t)

		cause := errors.New("connection refused")
		f.err = cause
		_, err := testee.Load(context.Background(), true)
		if !errors.Is(err, domain.ErrFetch) || !errors.Is(err, cause) {
			t.Errorf("unexpected error: %v", err)
		}
		if len(testee.Snapshot()) != 3 {
			t.Errorf("snapshot is lost: %v", testee.Snapshot())
		}
	})

	t.Run("fetch error on first load leaves cache unloaded", func(t *testing.T) {
		f := &fetcher{err: errors.New("boom")}
		testee := seqcache.New(f, "model-a")

		if _, err := testee.Load(context.Background(), false); !errors.Is(err, domain.ErrFetch) {
			t.Errorf("unexpected error: %v", err)
		}
		if testee.Loaded() || testee.Snapshot() != nil {
			t.Error("cache should not be loaded")
		}
	})

	t.Run("cancelled caller gives up waiting", func(t *testing.T) {
		f := &fetcher{records: records(), gate: make(chan struct{})}
		defer close(f.gate)
		testee := seqcache.New(f, "model-a")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := testee.Load(ctx, false)
		if !errors.Is(err, domain.ErrFetch) || !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestFindByAccession(t *testing.T) {
	t.Run("not loaded", func(t *testing.T) {
		testee := seqcache.New(&fetcher{}, "model-a")
		if _, _, err := testee.FindByAccession("AB123"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	testee := seqcache.New(&fetcher{records: records()}, "model-a")
	try.To(testee.Load(context.Background(), false)).OrFatal(t)

	type Then struct {
		accession string
		strategy  accession.Strategy
		err       error
	}

	theory := func(query string, then Then) func(*testing.T) {
		return func(t *testing.T) {
			ref, strategy, err := testee.FindByAccession(query)
			if then.err != nil {
				if !errors.Is(err, then.err) {
					t.Errorf("expected %v, but got %v", then.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ref.AccessionId != then.accession || strategy != then.strategy {
				t.Errorf(
					"unexpected: (%s, %s), expected (%s, %s)",
					ref.AccessionId, strategy, then.accession, then.strategy,
				)
			}
		}
	}

	t.Run("exact", theory("NZ_AB123.1", Then{accession: "NZ_AB123.1", strategy: accession.Exact}))
	t.Run("case-insensitive", theory("cd456.2", Then{accession: "CD456.2", strategy: accession.CaseInsensitive}))
	t.Run("version-stripped", theory("CD456.9", Then{accession: "CD456.2", strategy: accession.VersionStripped}))
	t.Run("prefixed record found by bare accession", theory("AB123", Then{accession: "NZ_AB123.1", strategy: accession.Containment}))
	t.Run("missing", theory("ZZ999", Then{err: domain.ErrNotFound}))
	t.Run("empty query", theory("", Then{err: domain.ErrNotFound}))
}

func TestRecordDefaults(t *testing.T) {
	testee := seqcache.New(&fetcher{records: records()}, "model-a")
	try.To(testee.Load(context.Background(), false)).OrFatal(t)

	ref := try.To(testee.FindByHash("h2")).OrFatal(t)
	if ref.Country != domain.Unknown || ref.FirstObservedDate != domain.Unknown {
		t.Errorf("missing fields should be Unknown: %+v", ref)
	}
	if ref.Coordinates != (domain.Coordinates{X: 3, Y: 4}) {
		t.Errorf("unexpected coordinates: %+v", ref.Coordinates)
	}

	noAccession := try.To(testee.FindByHash("h3")).OrFatal(t)
	if noAccession.Country != "Kenya" || noAccession.FirstObservedDate != domain.Unknown {
		t.Errorf("unexpected: %+v", noAccession)
	}

	if _, err := testee.FindByHash("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLookup(t *testing.T) {
	testee := seqcache.New(&fetcher{records: records()}, "model-a")
	try.To(testee.Load(context.Background(), false)).OrFatal(t)

	t.Run("it describes the hit", func(t *testing.T) {
		got := try.To(testee.Lookup("cd456.2")).OrFatal(t)
		want := sequences.Lookup{
			Query:        "cd456.2",
			Accession:    "CD456.2",
			SequenceHash: "h2",
			Coordinates:  sequences.Coordinates{X: 3, Y: 4},
			Country:      domain.Unknown,
			Date:         domain.Unknown,
			Strategy:     "case-insensitive",
		}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("it fails on miss", func(t *testing.T) {
		if _, err := testee.Lookup("ZZ999"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
