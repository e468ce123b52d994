// Package projector integrates detector frames over azimuthal angle, producing
// 1-D intensity profiles as a function of radius.
//
// A RadialProjector is built once per detector geometry. Construction computes the
// radius and angle of every pixel, assigns pixels to radial bins, applies the
// optional angular wedge, and groups the selected pixels by bin. Projecting a
// frame then only sums the grouped pixels, so the same projector can be applied
// to many frames cheaply.
//
// # Example
//
//	p, err := projector.New(frame.Shape(), projector.Config{
//	    Geometry: geometry.Geometry{CenterX: 512, CenterY: 512, Cartesian: true},
//	    RMin:     20,
//	    RMax:     500,
//	    NBins:    240,
//	    Wedge:    &projector.Wedge{PhiMin: 5, PhiMax: 60},
//	    Norm:     true,
//	})
//	profile, err := p.Project(frame)
//
// # Thread Safety
//
// A RadialProjector is immutable after New. Project and ProjectMasked may be
// called concurrently; each call allocates its own output.
package projector

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/scattering-tools/internal/binning"
	"github.com/ironsheep/scattering-tools/internal/detector"
	"github.com/ironsheep/scattering-tools/internal/geometry"
)

// ErrInvalidConfig is returned when a projector cannot be built from its Config.
var ErrInvalidConfig = errors.New("invalid projector config")

// Wedge restricts a projection to azimuthal angles PhiMin <= φ < PhiMax, in
// degrees within [0, 360]. When PhiMin > PhiMax the wedge wraps through 0°.
type Wedge struct {
	PhiMin float64 `json:"phimin" yaml:"phimin"`
	PhiMax float64 `json:"phimax" yaml:"phimax"`
}

// Validate checks that both bounds lie in [0, 360] and select a non-empty
// sector. A PhiMin of 360 is the same angle as 0.
func (w Wedge) Validate() error {
	for _, v := range []float64{w.PhiMin, w.PhiMax} {
		if math.IsNaN(v) || v < 0 || v > 360 {
			return fmt.Errorf("wedge bound %g outside [0, 360]", v)
		}
	}
	if w.PhiMin == w.PhiMax || w.start() == w.PhiMax {
		return fmt.Errorf("wedge [%g, %g) is empty", w.PhiMin, w.PhiMax)
	}
	return nil
}

func (w Wedge) start() float64 {
	if w.PhiMin == 360 {
		return 0
	}
	return w.PhiMin
}

// Contains reports whether angle phi, in [0, 360), lies in the wedge.
func (w Wedge) Contains(phi float64) bool {
	lo := w.start()
	if lo < w.PhiMax {
		return phi >= lo && phi < w.PhiMax
	}
	return phi >= lo || phi < w.PhiMax
}

// Config describes a radial projection.
type Config struct {
	Geometry geometry.Geometry

	// RMin and RMax bound the radial range, in pixel-size units.
	RMin float64
	RMax float64
	// NBins is the number of equal-width radial bins.
	NBins int

	// Wedge, if set, restricts the projection to an angular sector.
	Wedge *Wedge

	// Norm averages each bin instead of summing it.
	Norm bool

	// Mapper supplies coordinate maps; geometry.Default when nil.
	Mapper *geometry.Mapper
}

// RadialProjector bins frames of one shape into radial profiles.
type RadialProjector struct {
	shape   detector.Shape
	norm    bool
	edges   []float64
	centers []float64

	// Selected pixels grouped by bin: the pixels of bin b are
	// pixels[offsets[b]:offsets[b+1]], in ascending pixel order.
	offsets []int
	pixels  []int
}

// New builds a projector for frames of the given shape.
func New(shape detector.Shape, cfg Config) (*RadialProjector, error) {
	if cfg.NBins <= 0 {
		return nil, fmt.Errorf("%w: nbins %d must be positive", ErrInvalidConfig, cfg.NBins)
	}
	if !(cfg.RMax > cfg.RMin) {
		return nil, fmt.Errorf("%w: rmax %g must exceed rmin %g", ErrInvalidConfig, cfg.RMax, cfg.RMin)
	}
	if cfg.Wedge != nil {
		if err := cfg.Wedge.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	mapper := cfg.Mapper
	if mapper == nil {
		mapper = geometry.Default
	}
	maps, err := mapper.Maps(shape, cfg.Geometry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	radial, err := binning.Assign(maps.Radius.Pix, binning.Uniform(cfg.NBins, cfg.RMin, cfg.RMax))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	p := &RadialProjector{
		shape:   shape,
		norm:    cfg.Norm,
		edges:   radial.Edges,
		centers: radial.Centers,
		offsets: make([]int, cfg.NBins+1),
	}

	selected := func(pix int) bool {
		if radial.Index[pix] == binning.OutOfRange {
			return false
		}
		return cfg.Wedge == nil || cfg.Wedge.Contains(maps.Angle.Pix[pix])
	}

	// Counting sort of the selected pixels by bin.
	for pix, b := range radial.Index {
		if selected(pix) {
			p.offsets[b+1]++
		}
	}
	for b := 0; b < cfg.NBins; b++ {
		p.offsets[b+1] += p.offsets[b]
	}
	p.pixels = make([]int, p.offsets[cfg.NBins])
	next := make([]int, cfg.NBins)
	copy(next, p.offsets[:cfg.NBins])
	for pix, b := range radial.Index {
		if selected(pix) {
			p.pixels[next[b]] = pix
			next[b]++
		}
	}

	return p, nil
}

// Shape returns the frame shape the projector accepts.
func (p *RadialProjector) Shape() detector.Shape { return p.shape }

// NBins returns the number of radial bins.
func (p *RadialProjector) NBins() int { return len(p.centers) }

// BinCenters returns the midpoints of the radial bins. They depend only on
// RMin, RMax and NBins.
func (p *RadialProjector) BinCenters() []float64 { return append([]float64(nil), p.centers...) }

// BinEdges returns the NBins+1 radial bin edges.
func (p *RadialProjector) BinEdges() []float64 { return append([]float64(nil), p.edges...) }

// Counts returns the number of selected pixels in each bin.
func (p *RadialProjector) Counts() []int {
	c := make([]int, p.NBins())
	for b := range c {
		c[b] = p.offsets[b+1] - p.offsets[b]
	}
	return c
}

// Pixels returns the indices of the pixels that contribute to bin b, in row-major order.
func (p *RadialProjector) Pixels(b int) []int {
	return append([]int(nil), p.pixels[p.offsets[b]:p.offsets[b+1]]...)
}

// Project returns the radial profile of img: the sum of each bin's pixels, or
// their mean when the projector normalizes. Empty bins are 0.
func (p *RadialProjector) Project(img *detector.Frame) ([]float64, error) {
	if err := detector.CheckShape("frame", p.shape, img.Shape()); err != nil {
		return nil, err
	}
	return p.project(img, nil), nil
}

// ProjectMasked is Project restricted to pixels kept by m. Normalization divides
// by the number of kept pixels in each bin.
func (p *RadialProjector) ProjectMasked(img *detector.Frame, m *detector.Mask) ([]float64, error) {
	if err := detector.CheckShape("frame", p.shape, img.Shape()); err != nil {
		return nil, err
	}
	if err := detector.CheckShape("mask", p.shape, m.Shape()); err != nil {
		return nil, err
	}
	return p.project(img, m), nil
}

func (p *RadialProjector) project(img *detector.Frame, m *detector.Mask) []float64 {
	profile := make([]float64, p.NBins())

	for b := range profile {
		sum := 0.0
		n := 0
		for _, pix := range p.pixels[p.offsets[b]:p.offsets[b+1]] {
			if m != nil && !m.Keep[pix] {
				continue
			}
			sum += img.Pix[pix]
			n++
		}
		if p.norm {
			if n == 0 {
				continue
			}
			sum /= float64(n)
		}
		profile[b] = sum
	}

	return profile
}
