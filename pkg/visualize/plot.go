// Package visualize turns analysis results into payloads for plotting.
//
// A Plot has two views of the same data: a scatter of UMAP coordinates and
// counts per country for a map. Rendering them is up to an Adapter.
package visualize

import (
	"sort"

	"github.com/opst/seqmap/pkg/accession"
	"github.com/opst/seqmap/pkg/domain"
)

type Role string

const (
	RoleReference Role = "reference"
	RoleSimilar   Role = "similar"
	RoleUser      Role = "user"
)

// Point is a marker in the scatter plot.
type Point struct {
	Role      Role    `json:"role"`
	Accession string  `json:"accession,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`

	// only for RoleSimilar.
	Similarity *float64 `json:"similarity,omitempty"`

	Country string `json:"country,omitempty"`
	Date    string `json:"date,omitempty"`
}

// UnresolvedMatch is a similar sequence which can not be plotted,
// since its coordinates are unknown.
type UnresolvedMatch struct {
	Accession  string  `json:"accession"`
	Similarity float64 `json:"similarity"`
}

type CountryCount struct {
	Country    string `json:"country"`
	References int    `json:"references"`
	Similar    int    `json:"similar"`
}

type Plot struct {
	JobId string `json:"job_id,omitempty"`

	// reference points first, then similar points by similarity, and the user point at last.
	Scatter []Point `json:"scatter"`

	Unresolved []UnresolvedMatch `json:"unresolved"`

	// ordered by References desc, then Country.
	Countries []CountryCount `json:"countries"`
}

// References converts reference sequences into scatter points, keeping their order.
func References(refs []domain.ReferenceSequence) []Point {
	points := make([]Point, 0, len(refs))
	for _, r := range refs {
		points = append(points, Point{
			Role:      RoleReference,
			Accession: r.AccessionId,
			X:         r.Coordinates.X,
			Y:         r.Coordinates.Y,
			Country:   r.Country,
			Date:      r.FirstObservedDate,
		})
	}
	return points
}

// Build makes a Plot from a result and the reference dataset.
//
// Similar sequences are plotted over the references, and the uploaded
// sequence over them. Similar sequences without coordinates are listed in Unresolved.
// Country and date of a similar sequence are looked up with the accession matcher.
func Build(result domain.UserSequenceResult, refs []domain.ReferenceSequence) Plot {
	accessions := make([]string, len(refs))
	for i, r := range refs {
		accessions[i] = r.AccessionId
	}

	countries := map[string]*CountryCount{}
	count := func(country string) *CountryCount {
		if country == "" {
			country = domain.Unknown
		}
		c, ok := countries[country]
		if !ok {
			c = &CountryCount{Country: country}
			countries[country] = c
		}
		return c
	}

	scatter := References(refs)
	for _, r := range refs {
		count(r.Country).References += 1
	}

	matches := append([]domain.SimilarMatch{}, result.SimilarSequences...)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})

	unresolved := []UnresolvedMatch{}
	for _, m := range matches {
		if !m.Resolved() {
			unresolved = append(unresolved, UnresolvedMatch{
				Accession: m.ReferenceAccessionId, Similarity: m.SimilarityScore,
			})
			continue
		}
		score := m.SimilarityScore
		p := Point{
			Role:       RoleSimilar,
			Accession:  m.ReferenceAccessionId,
			X:          m.Coordinates.X,
			Y:          m.Coordinates.Y,
			Similarity: &score,
			Country:    domain.Unknown,
			Date:       domain.Unknown,
		}
		if nth, _, ok := accession.Match(m.ReferenceAccessionId, accessions); ok {
			p.Country = refs[nth].Country
			p.Date = refs[nth].FirstObservedDate
		}
		count(p.Country).Similar += 1
		scatter = append(scatter, p)
	}

	scatter = append(scatter, Point{
		Role: RoleUser,
		X:    result.Coordinates.X,
		Y:    result.Coordinates.Y,
	})

	counts := make([]CountryCount, 0, len(countries))
	for _, c := range countries {
		counts = append(counts, *c)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].References != counts[j].References {
			return counts[i].References > counts[j].References
		}
		return counts[i].Country < counts[j].Country
	})

	return Plot{
		JobId:      result.JobId,
		Scatter:    scatter,
		Unresolved: unresolved,
		Countries:  counts,
	}
}
