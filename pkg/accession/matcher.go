// Package accession matches accession identifiers whose formats vary between sources.
//
// Upstream records disagree on prefixes ("NZ_AB123" vs "AB123"),
// letter case and version suffixes ("AB123.1" vs "AB123").
// Match tries strategies from the strictest to the loosest, and returns the first hit.
package accession

import "strings"

type Strategy int

const (
	// Strategy is not determined (= not found).
	None Strategy = iota

	// query == candidate
	Exact

	// query == candidate, ignoring case.
	CaseInsensitive

	// query == candidate, ignoring case and a version suffix (".1", ".2", ...).
	VersionStripped

	// query is a substring of the candidate, or the candidate is a substring of query. case insensitive.
	Containment
)

func (s Strategy) String() string {
	switch s {
	case Exact:
		return "exact"
	case CaseInsensitive:
		return "case-insensitive"
	case VersionStripped:
		return "version-stripped"
	case Containment:
		return "containment"
	default:
		return "none"
	}
}

// Strategies in order they are tried.
func Strategies() []Strategy {
	return []Strategy{Exact, CaseInsensitive, VersionStripped, Containment}
}

// StripVersion removes the text after the first "." .
//
//	StripVersion("NZ_AB123.1") == "NZ_AB123"
func StripVersion(accession string) string {
	base, _, _ := strings.Cut(accession, ".")
	return base
}

// Matches reports whether query matches the candidate with the strategy.
//
// Empty query or candidate never matches.
func (s Strategy) Matches(query, candidate string) bool {
	if query == "" || candidate == "" {
		return false
	}
	switch s {
	case Exact:
		return query == candidate
	case CaseInsensitive:
		return strings.EqualFold(query, candidate)
	case VersionStripped:
		q, c := StripVersion(query), StripVersion(candidate)
		return q != "" && c != "" && strings.EqualFold(q, c)
	case Containment:
		q, c := strings.ToLower(query), strings.ToLower(candidate)
		return strings.Contains(c, q) || strings.Contains(q, c)
	default:
		return false
	}
}

// Match finds the candidate matching with query.
//
// Strategies are tried in the order of Strategies(), and for each strategy,
// candidates are tried in the given order.
//
// # Returns
//
// - int: index of the matched candidate. -1 if not found.
//
// - Strategy: the strategy which hits. None if not found.
//
// - bool: true if found.
func Match(query string, candidates []string) (int, Strategy, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return -1, None, false
	}
	for _, s := range Strategies() {
		for nth, c := range candidates {
			if s.Matches(query, c) {
				return nth, s, true
			}
		}
	}
	return -1, None, false
}
