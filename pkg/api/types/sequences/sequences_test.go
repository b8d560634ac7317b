package sequences_test

import (
	"encoding/json"
	"testing"

	"github.com/opst/seqmap/pkg/api/types/sequences"
)

func TestCoordinates_UnmarshalJSON(t *testing.T) {
	for name, testcase := range map[string]struct {
		json     string
		expected sequences.Coordinates
	}{
		"pair":             {json: `[1.5, -2]`, expected: sequences.Coordinates{X: 1.5, Y: -2}},
		"object":           {json: `{"x": 3, "y": 4.25}`, expected: sequences.Coordinates{X: 3, Y: 4.25}},
		"object with zero": {json: `{"x": 0, "y": 0}`, expected: sequences.Coordinates{}},
	} {
		t.Run("it accepts "+name, func(t *testing.T) {
			actual := sequences.Coordinates{}
			if err := json.Unmarshal([]byte(testcase.json), &actual); err != nil {
				t.Fatal(err)
			}
			if actual != testcase.expected {
				t.Errorf("actual = %+v, expected = %+v", actual, testcase.expected)
			}
		})
	}

	for name, payload := range map[string]string{
		"short pair":     `[1]`,
		"long pair":      `[1, 2, 3]`,
		"missing y":      `{"x": 1}`,
		"not a number":   `["a", "b"]`,
		"not coordinate": `"1,2"`,
	} {
		t.Run("it rejects "+name, func(t *testing.T) {
			actual := sequences.Coordinates{}
			if err := json.Unmarshal([]byte(payload), &actual); err == nil {
				t.Errorf("no error: %+v", actual)
			}
		})
	}
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	payload := `{"sequence_hash":"h1","accession":"NZ_AB123.1","coordinates":[1,2],"first_country":"Japan","first_date":"2020-01-01","embedding":[0.1,0.2]}`

	actual := sequences.Record{}
	if err := json.Unmarshal([]byte(payload), &actual); err != nil {
		t.Fatal(err)
	}

	if actual.SequenceHash != "h1" || actual.Accession != "NZ_AB123.1" ||
		actual.Coordinates != (sequences.Coordinates{X: 1, Y: 2}) ||
		actual.FirstCountry != "Japan" || actual.FirstDate != "2020-01-01" ||
		len(actual.Embedding) != 2 {
		t.Errorf("unexpected record: %+v", actual)
	}
}
