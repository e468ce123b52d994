// Package binning assigns values to histogram bins.
//
// Bins are described by a Spec: either n equal-width bins over [min, max], or an
// explicit ascending list of edges. Intervals are closed-open, edges[i] <= v <
// edges[i+1], except the last bin, which is closed on both sides so that the
// maximum edge value is counted. Values outside [edges[0], edges[n]], and NaNs,
// are assigned OutOfRange.
package binning

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// OutOfRange is the bin index of a value that falls outside every bin.
const OutOfRange = -1

// ErrInvalidSpec is returned for a Spec whose edges are not strictly increasing.
var ErrInvalidSpec = errors.New("invalid bin spec")

// Spec describes a set of bins.
type Spec struct {
	n        int
	min, max float64
	edges    []float64
}

// Uniform describes n equal-width bins spanning [min, max].
func Uniform(n int, min, max float64) Spec {
	return Spec{n: n, min: min, max: max}
}

// Edges describes bins with explicit boundaries; len(edges)-1 bins.
func Edges(edges ...float64) Spec {
	e := make([]float64, len(edges))
	copy(e, edges)
	return Spec{edges: e}
}

func (s Spec) explicit() bool { return s.edges != nil }

// NBins returns the number of bins described.
func (s Spec) NBins() int {
	if s.explicit() {
		if len(s.edges) < 2 {
			return 0
		}
		return len(s.edges) - 1
	}
	if s.n < 0 {
		return 0
	}
	return s.n
}

// Validate reports whether the spec can produce strictly increasing edges. A spec
// with zero bins is valid and yields no bins.
func (s Spec) Validate() error {
	if s.explicit() {
		if len(s.edges) == 1 {
			return fmt.Errorf("%w: a single edge does not bound a bin", ErrInvalidSpec)
		}
		for i, e := range s.edges {
			if math.IsNaN(e) || math.IsInf(e, 0) {
				return fmt.Errorf("%w: edge %d is %g", ErrInvalidSpec, i, e)
			}
			if i > 0 && !(e > s.edges[i-1]) {
				return fmt.Errorf("%w: edges must be strictly increasing (edge %d = %g after %g)", ErrInvalidSpec, i, e, s.edges[i-1])
			}
		}
		return nil
	}

	if s.n < 0 {
		return fmt.Errorf("%w: nbins %d is negative", ErrInvalidSpec, s.n)
	}
	if s.n == 0 {
		return nil
	}
	if math.IsNaN(s.min) || math.IsNaN(s.max) || math.IsInf(s.min, 0) || math.IsInf(s.max, 0) {
		return fmt.Errorf("%w: range [%g, %g] is not finite", ErrInvalidSpec, s.min, s.max)
	}
	if !(s.max > s.min) {
		return fmt.Errorf("%w: max %g must exceed min %g", ErrInvalidSpec, s.max, s.min)
	}
	return nil
}

// BinEdges returns the n+1 bin edges, or nil for a spec without bins.
func (s Spec) BinEdges() ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.NBins() == 0 {
		return nil, nil
	}
	if s.explicit() {
		e := make([]float64, len(s.edges))
		copy(e, s.edges)
		return e, nil
	}
	e := floats.Span(make([]float64, s.n+1), s.min, s.max)
	e[s.n] = s.max
	return e, nil
}

// Centers returns the midpoints of consecutive edges.
func Centers(edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	c := make([]float64, len(edges)-1)
	for i := range c {
		c[i] = (edges[i] + edges[i+1]) / 2
	}
	return c
}

// Assignment is the result of binning a set of values.
type Assignment struct {
	// Index holds the bin of each value, or OutOfRange.
	Index []int

	Edges   []float64
	Centers []float64

	// Counts holds the number of values that landed in each bin.
	Counts []int
}

// NBins returns the number of bins.
func (a *Assignment) NBins() int { return len(a.Centers) }

// Assign bins every value according to spec. An empty values slice or a spec
// with zero bins is not an error; every value is then OutOfRange.
func Assign(values []float64, spec Spec) (*Assignment, error) {
	edges, err := spec.BinEdges()
	if err != nil {
		return nil, err
	}

	a := &Assignment{
		Index:   make([]int, len(values)),
		Edges:   edges,
		Centers: Centers(edges),
	}
	a.Counts = make([]int, len(a.Centers))

	for i, v := range values {
		b := Locate(edges, v)
		a.Index[i] = b
		if b != OutOfRange {
			a.Counts[b]++
		}
	}

	return a, nil
}

// Locate returns the bin of v within edges, or OutOfRange.
func Locate(edges []float64, v float64) int {
	n := len(edges) - 1
	if n < 1 || math.IsNaN(v) || v < edges[0] || v > edges[n] {
		return OutOfRange
	}
	if v == edges[n] {
		return n - 1
	}
	// first edge strictly greater than v, minus one
	i := sort.Search(len(edges), func(k int) bool { return edges[k] > v })
	return i - 1
}
