package mask

import (
	"fmt"
	"math"

	"github.com/ironsheep/scattering-tools/internal/detector"
)

// Threshold excludes every pixel of img whose value is at or above threshold.
// Pixels already excluded by m stay excluded; m is not modified.
func Threshold(img *detector.Frame, threshold float64, m *detector.Mask) (*detector.Mask, error) {
	out := detector.NewMaskFor(img)
	if m != nil {
		if err := detector.CheckShape("mask", img.Shape(), m.Shape()); err != nil {
			return nil, err
		}
		out = m.Copy()
	}
	for i, v := range img.Pix {
		if v >= threshold {
			out.Keep[i] = false
		}
	}
	return out, nil
}

// Finite excludes every NaN or infinite pixel of img, such as the blanks of a
// float FITS frame or the frames ReplaceBad substitutes. Pixels already excluded
// by m stay excluded; m is not modified.
func Finite(img *detector.Frame, m *detector.Mask) (*detector.Mask, error) {
	out := detector.NewMaskFor(img)
	if m != nil {
		if err := detector.CheckShape("mask", img.Shape(), m.Shape()); err != nil {
			return nil, err
		}
		out = m.Copy()
	}
	for i, v := range img.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out.Keep[i] = false
		}
	}
	return out, nil
}

// ThresholdStack applies Threshold to each frame in turn, carrying exclusions
// forward. Element i of the result holds the mask after frames[0..i]; a pixel
// hot in any of those frames is excluded.
func ThresholdStack(frames []*detector.Frame, threshold float64, m *detector.Mask) ([]*detector.Mask, error) {
	out := make([]*detector.Mask, 0, len(frames))
	cur := m
	for i, f := range frames {
		next, err := Threshold(f, threshold, cur)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}

// Edge returns a mask excluding size pixels along every border of a frame of
// the given shape. A size of 0 keeps every pixel.
func Edge(shape detector.Shape, size int) (*detector.Mask, error) {
	if size < 0 {
		return nil, fmt.Errorf("edge size %d must not be negative", size)
	}
	m := detector.NewMask(shape.Cols, shape.Rows)
	for y := 0; y < shape.Rows; y++ {
		for x := 0; x < shape.Cols; x++ {
			if x < size || y < size || x >= shape.Cols-size || y >= shape.Rows-size {
				m.Set(x, y, false)
			}
		}
	}
	return m, nil
}
