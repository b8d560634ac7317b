package accession_test

import (
	"testing"

	"github.com/opst/seqmap/pkg/accession"
)

func TestMatch(t *testing.T) {
	type When struct {
		query      string
		candidates []string
	}
	type Then struct {
		index    int
		strategy accession.Strategy
		ok       bool
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			index, strategy, ok := accession.Match(when.query, when.candidates)
			if index != then.index || strategy != then.strategy || ok != then.ok {
				t.Errorf(
					"Match(%q, %v) = (%d, %s, %v), expected (%d, %s, %v)",
					when.query, when.candidates,
					index, strategy, ok,
					then.index, then.strategy, then.ok,
				)
			}
		}
	}

	t.Run("exact match wins over looser ones", theory(
		When{query: "AB123.1", candidates: []string{"ab123.1", "AB123", "AB123.1"}},
		Then{index: 2, strategy: accession.Exact, ok: true},
	))

	t.Run("case-insensitive match is tried second", theory(
		When{query: "ab123.1", candidates: []string{"AB123", "AB123.1"}},
		Then{index: 1, strategy: accession.CaseInsensitive, ok: true},
	))

	t.Run("version suffix is ignored third", theory(
		When{query: "AB123.2", candidates: []string{"XAB123.1", "ab123.1"}},
		Then{index: 1, strategy: accession.VersionStripped, ok: true},
	))

	t.Run("a query without version matches a versioned accession", theory(
		When{query: "AB123", candidates: []string{"AB123.4"}},
		Then{index: 0, strategy: accession.VersionStripped, ok: true},
	))

	t.Run("query contained in the accession matches last", theory(
		When{query: "AB123", candidates: []string{"NZ_AB123.1"}},
		Then{index: 0, strategy: accession.Containment, ok: true},
	))

	t.Run("accession contained in the query matches last", theory(
		When{query: "gb|NZ_AB123.1|", candidates: []string{"CD999", "nz_ab123.1"}},
		Then{index: 1, strategy: accession.Containment, ok: true},
	))

	t.Run("it returns first candidate in order for ties", theory(
		When{query: "AB1", candidates: []string{"XAB10", "AB11"}},
		Then{index: 0, strategy: accession.Containment, ok: true},
	))

	t.Run("it does not match anything", theory(
		When{query: "ZZ999", candidates: []string{"AB123", "CD456.1"}},
		Then{index: -1, strategy: accession.None, ok: false},
	))

	t.Run("empty query does not match", theory(
		When{query: "  ", candidates: []string{"AB123"}},
		Then{index: -1, strategy: accession.None, ok: false},
	))

	t.Run("empty candidate is never matched", theory(
		When{query: "AB123", candidates: []string{"", "AB123"}},
		Then{index: 1, strategy: accession.Exact, ok: true},
	))

	t.Run("version-only query falls through to containment", theory(
		When{query: ".1", candidates: []string{"AB123.1"}},
		Then{index: 0, strategy: accession.Containment, ok: true},
	))
}

func TestMatch_satisfiesTheRule(t *testing.T) {
	candidates := []string{"NZ_AB123.1", "cd456", "EF789.2", "GH000"}
	queries := []string{"NZ_AB123.1", "CD456", "ef789", "AB123", "gh000.3", "nothing", "F78", ""}

	for _, q := range queries {
		index, strategy, ok := accession.Match(q, candidates)
		if !ok {
			for _, s := range accession.Strategies() {
				for _, c := range candidates {
					if s.Matches(q, c) {
						t.Errorf("%q is not found, but %q matches with %s", q, c, s)
					}
				}
			}
			continue
		}
		if !strategy.Matches(q, candidates[index]) {
			t.Errorf("%q matches %q by %s, but the rule does not hold", q, candidates[index], strategy)
		}
	}
}

func TestStripVersion(t *testing.T) {
	for in, expected := range map[string]string{
		"AB123.1":   "AB123",
		"AB123":     "AB123",
		"AB123.1.2": "AB123",
		".1":        "",
	} {
		if actual := accession.StripVersion(in); actual != expected {
			t.Errorf("StripVersion(%q) = %q, expected %q", in, actual, expected)
		}
	}
}
