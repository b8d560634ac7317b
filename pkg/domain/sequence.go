package domain

import "fmt"

// Value used for missing country or date of a ReferenceSequence.
const Unknown = "Unknown"

type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%g, %g)", c.X, c.Y)
}

type ReferenceSequence struct {
	AccessionId       string
	SequenceHash      string
	Coordinates       Coordinates
	Country           string
	FirstObservedDate string

	// nil when the dataset was fetched without embeddings.
	Embedding []float64
}

// SimilarMatch is a reference sequence similar to an uploaded sequence.
type SimilarMatch struct {
	// empty if the server did not tell it.
	ReferenceAccessionId string `json:"accession,omitempty"`

	// in [0, 1]
	SimilarityScore float64 `json:"similarity"`

	// nil if the accession could not be found in the reference dataset.
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

func (m SimilarMatch) Resolved() bool {
	return m.Coordinates != nil
}

type UserSequenceResult struct {
	JobId            string         `json:"job_id"`
	Model            string         `json:"model,omitempty"`
	Coordinates      Coordinates    `json:"coordinates"`
	SimilarSequences []SimilarMatch `json:"similar_sequences"`
}

// Unresolved returns matches which have no coordinates.
func (r UserSequenceResult) Unresolved() []SimilarMatch {
	ret := []SimilarMatch{}
	for _, m := range r.SimilarSequences {
		if !m.Resolved() {
			ret = append(ret, m)
		}
	}
	return ret
}
