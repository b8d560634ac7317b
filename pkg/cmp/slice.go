package cmp

import "math"

func SliceEq[T comparable](a []T, b []T) bool {
	return SliceEqWith(a, b, func(a, b T) bool { return a == b })
}

func SliceEqWith[T any, U any](a []T, b []U, pred func(a T, b U) bool) bool {
	if len(a) != len(b) {
		return false
	}

	for nth := range a {
		if !pred(a[nth], b[nth]) {
			return false
		}
	}

	return true
}

// *a == *b, in context of pred. Two nils are equal.
func PEqualWith[T any](a, b *T, pred func(T, T) bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return pred(*a, *b)
}

// Near returns a predicator which checks |a - b| <= tolerance.
func Near(tolerance float64) func(a, b float64) bool {
	return func(a, b float64) bool {
		return math.Abs(a-b) <= tolerance
	}
}
