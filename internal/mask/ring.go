package mask

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/scattering-tools/internal/binning"
	"github.com/ironsheep/scattering-tools/internal/detector"
)

// ErrInvalidBins is returned when ring edges cannot define at least one ring.
var ErrInvalidBins = errors.New("ring bins need at least two increasing edges")

// RingStatistics holds the intensity statistics of each ring.
type RingStatistics struct {
	Edges []float64 `json:"edges"`
	Mean  []float64 `json:"mean"`
	// Std is the population standard deviation.
	Std   []float64 `json:"std"`
	Count []int     `json:"count"`

	// index is the ring of each pixel, or binning.OutOfRange.
	index []int
}

// Rings returns the number of rings.
func (rs *RingStatistics) Rings() int { return len(rs.Mean) }

// checkInputs validates shapes and returns the effective starting mask.
func checkInputs(img, q *detector.Frame, bins []float64, m *detector.Mask) (*detector.Mask, error) {
	if len(bins) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBins, len(bins))
	}
	if err := detector.CheckShape("q map", img.Shape(), q.Shape()); err != nil {
		return nil, err
	}
	if m == nil {
		return detector.NewMaskFor(img), nil
	}
	if err := detector.CheckShape("mask", img.Shape(), m.Shape()); err != nil {
		return nil, err
	}
	return m.Copy(), nil
}

// RingStats groups pixels into rings by their q value and computes the mean and
// standard deviation of each ring's intensities. Only pixels kept by m (all
// pixels when m is nil) whose q lies within [bins[0], bins[last]] contribute.
// Rings without contributing pixels have a zero Count.
func RingStats(img, q *detector.Frame, bins []float64, m *detector.Mask) (*RingStatistics, error) {
	start, err := checkInputs(img, q, bins, m)
	if err != nil {
		return nil, err
	}
	return ringStats(img, q, bins, start)
}

func ringStats(img, q *detector.Frame, bins []float64, m *detector.Mask) (*RingStatistics, error) {
	assigned, err := binning.Assign(q.Pix, binning.Edges(bins...))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBins, err)
	}

	rings := assigned.NBins()
	members := make([][]float64, rings)
	for pix, ring := range assigned.Index {
		if ring == binning.OutOfRange || !m.Keep[pix] {
			continue
		}
		members[ring] = append(members[ring], img.Pix[pix])
	}

	rs := &RingStatistics{
		Edges: assigned.Edges,
		Mean:  make([]float64, rings),
		Std:   make([]float64, rings),
		Count: make([]int, rings),
		index: assigned.Index,
	}
	for ring, vals := range members {
		rs.Count[ring] = len(vals)
		if len(vals) == 0 {
			continue
		}
		mean, std := stat.PopMeanStdDev(vals, nil)
		if math.IsNaN(std) && !math.IsNaN(mean) {
			// Rounding can leave a tiny negative variance for near-constant rings.
			std = 0
		}
		rs.Mean[ring], rs.Std[ring] = mean, std
	}
	return rs, nil
}

// RefineRing excludes pixels whose intensity deviates from their ring's mean by
// more than alpha standard deviations.
//
// The starting mask is m, or all pixels when m is nil; the input mask is not
// modified. Ring membership comes from q and bins, which must hold at least two
// increasing edges. A pixel is excluded if its intensity is below
// mean - alpha*std or above mean + alpha*std for its ring. Pixels outside the
// bin range, and pixels in rings with no valid pixels, keep their current state.
//
// RefineRing is meant to be applied repeatedly, feeding each result back in,
// until the mask stops changing.
func RefineRing(img, q *detector.Frame, alpha Alpha, bins []float64, m *detector.Mask) (*detector.Mask, error) {
	refined, _, err := refineRing(img, q, alpha, bins, m)
	return refined, err
}

func refineRing(img, q *detector.Frame, alpha Alpha, bins []float64, m *detector.Mask) (*detector.Mask, int, error) {
	out, err := checkInputs(img, q, bins, m)
	if err != nil {
		return nil, 0, err
	}

	rs, err := ringStats(img, q, bins, out)
	if err != nil {
		return nil, 0, err
	}

	alphas, err := factors(alpha, rs.Rings())
	if err != nil {
		return nil, 0, err
	}

	lower := make([]float64, rs.Rings())
	upper := make([]float64, rs.Rings())
	for ring := range lower {
		threshold := alphas[ring] * rs.Std[ring]
		lower[ring] = rs.Mean[ring] - threshold
		upper[ring] = rs.Mean[ring] + threshold
	}

	excluded := 0
	for pix, ring := range rs.index {
		if ring == binning.OutOfRange || rs.Count[ring] == 0 || !out.Keep[pix] {
			continue
		}
		v := img.Pix[pix]
		if v < lower[ring] || v > upper[ring] {
			out.Keep[pix] = false
			excluded++
		}
	}

	return out, excluded, nil
}

// RefineRingIter applies RefineRing until a pass excludes no new pixel or
// maxPasses passes have run. It returns the final mask and the number of passes.
func RefineRingIter(img, q *detector.Frame, alpha Alpha, bins []float64, m *detector.Mask, maxPasses int) (*detector.Mask, int, error) {
	if maxPasses < 1 {
		return nil, 0, fmt.Errorf("maxPasses %d must be at least 1", maxPasses)
	}

	cur := m
	for pass := 1; pass <= maxPasses; pass++ {
		next, excluded, err := refineRing(img, q, alpha, bins, cur)
		if err != nil {
			return nil, 0, err
		}
		cur = next
		if excluded == 0 {
			return cur, pass, nil
		}
	}
	return cur, maxPasses, nil
}
