package sequences

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Coordinates is a point in UMAP space.
//
// The server sends it as a pair `[x, y]` or as an object `{"x": x, "y": y}`.
// It is always marshalled as an object.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (c *Coordinates) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("coordinates: empty")
	}
	if b[0] == '[' {
		pair := []float64{}
		if err := json.Unmarshal(b, &pair); err != nil {
			return fmt.Errorf("coordinates: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("coordinates: should be [x, y], but has %d elements", len(pair))
		}
		c.X, c.Y = pair[0], pair[1]
		return nil
	}

	obj := new(struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	})
	if err := json.Unmarshal(b, obj); err != nil {
		return fmt.Errorf("coordinates: %w", err)
	}
	if obj.X == nil || obj.Y == nil {
		return fmt.Errorf(`coordinates: required field missing: "x" and "y"`)
	}
	c.X, c.Y = *obj.X, *obj.Y
	return nil
}

// Projection is a response of POST /sequence/umap
type Projection = Coordinates

// Record is a line of GET /umap/all (NDJSON).
type Record struct {
	SequenceHash string      `json:"sequence_hash"`
	Accession    string      `json:"accession"`
	Coordinates  Coordinates `json:"coordinates"`
	FirstCountry string      `json:"first_country,omitempty"`
	FirstDate    string      `json:"first_date,omitempty"`

	// present only when the dataset is requested with embeddings.
	Embedding []float64 `json:"embedding,omitempty"`
}

// SimilarQuery is a request body of POST /sequence/similar
type SimilarQuery struct {
	NResults            int     `json:"n_results"`
	MinDistance         float64 `json:"min_distance"`
	MaxYear             int     `json:"max_year"`
	IncludeUnknownDates bool    `json:"include_unknown_dates"`
}

// Similar is an element of a response of POST /sequence/similar
type Similar struct {
	Accession    string       `json:"accession"`
	SequenceHash string       `json:"sequence_hash"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	FirstCountry string       `json:"first_country,omitempty"`
	FirstDate    string       `json:"first_date,omitempty"`

	// nil when the server does not score the match.
	Similarity *float64 `json:"similarity,omitempty"`
}

// Lookup is a reference sequence found by an accession query.
//
// It is a response of seqmap dashboard backend, and an output of `seqmap reference find`.
type Lookup struct {
	Query        string      `json:"query"`
	Accession    string      `json:"accession"`
	SequenceHash string      `json:"sequence_hash"`
	Coordinates  Coordinates `json:"coordinates"`
	Country      string      `json:"country"`
	Date         string      `json:"date"`

	// how the query matched: "exact", "case-insensitive", "version-stripped" or "containment"
	Strategy string `json:"strategy"`
}
