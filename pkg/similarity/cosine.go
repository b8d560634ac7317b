package similarity

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/opst/seqmap/pkg/domain"
)

// Cosine returns cosine similarity of a and b, clamped into [0, 1].
//
// It returns 0 when either vector has zero magnitude, or when their lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}

	sim := dot / math.Sqrt(na*nb)
	return Clamp(sim)
}

// Clamp v into [0, 1]. NaN is 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case 1 < v:
		return 1
	default:
		return v
	}
}

type Options struct {
	// max number of results. Non-positive means unlimited.
	Limit int

	// results less similar than this are dropped.
	MinSimilarity float64

	// references first observed after this year are dropped. 0 means no limit.
	MaxYear int

	// whether references with unknown date are kept when MaxYear is set.
	IncludeUnknownDates bool

	// sequence hash to be excluded (typically, the query itself).
	ExcludeHash string
}

type Scored struct {
	Reference domain.ReferenceSequence
	Score     float64
}

// Search scores references having embedding against query.
//
// Results are sorted by score (descending), then by accession (ascending).
func Search(query []float64, refs []domain.ReferenceSequence, opts Options) []Scored {
	ret := []Scored{}
	for _, r := range refs {
		if len(r.Embedding) == 0 {
			continue
		}
		if opts.ExcludeHash != "" && r.SequenceHash == opts.ExcludeHash {
			continue
		}
		if !opts.acceptsDate(r.FirstObservedDate) {
			continue
		}
		score := Cosine(query, r.Embedding)
		if score < opts.MinSimilarity {
			continue
		}
		ret = append(ret, Scored{Reference: r, Score: score})
	}

	sort.SliceStable(ret, func(i, j int) bool {
		if ret[i].Score != ret[j].Score {
			return ret[i].Score > ret[j].Score
		}
		return ret[i].Reference.AccessionId < ret[j].Reference.AccessionId
	})

	if 0 < opts.Limit && opts.Limit < len(ret) {
		ret = ret[:opts.Limit]
	}
	return ret
}

func (o Options) acceptsDate(date string) bool {
	if o.MaxYear <= 0 {
		return true
	}
	year, ok := Year(date)
	if !ok {
		return o.IncludeUnknownDates
	}
	return year <= o.MaxYear
}

// Year extracts a leading 4-digit year from date like "2020-03-01" or "2020".
func Year(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 || strings.EqualFold(date, domain.Unknown) {
		return 0, false
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}
