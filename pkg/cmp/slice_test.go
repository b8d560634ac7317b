package cmp_test

import (
	"testing"

	"github.com/opst/seqmap/pkg/cmp"
)

func TestSliceEq(t *testing.T) {
	for name, testcase := range map[string]struct {
		a, b     []int
		expected bool
	}{
		"same":            {a: []int{1, 2, 3}, b: []int{1, 2, 3}, expected: true},
		"empty":           {a: []int{}, b: nil, expected: true},
		"different order": {a: []int{1, 2, 3}, b: []int{3, 2, 1}, expected: false},
		"different size":  {a: []int{1, 2}, b: []int{1, 2, 3}, expected: false},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := cmp.SliceEq(testcase.a, testcase.b); actual != testcase.expected {
				t.Errorf("SliceEq(%v, %v) = %v", testcase.a, testcase.b, actual)
			}
		})
	}
}

func TestPEqualWith(t *testing.T) {
	one, another := 1.0, 1.0+1e-12
	near := cmp.Near(1e-9)

	if !cmp.PEqualWith[float64](nil, nil, near) {
		t.Error("nils should be equal")
	}
	if cmp.PEqualWith(&one, nil, near) {
		t.Error("nil and non-nil should not be equal")
	}
	if !cmp.PEqualWith(&one, &another, near) {
		t.Error("near values should be equal")
	}
}
