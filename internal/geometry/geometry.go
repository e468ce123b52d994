// Package geometry maps detector pixels to radial and angular coordinates.
//
// A Geometry describes the beam center on the detector, the physical pixel size,
// and optionally the sample-to-detector distance and X-ray wavelength. Compute
// turns a frame shape and a Geometry into per-pixel radius and azimuthal angle
// maps; QMap and TwoThetaMap extend that to scattering coordinates.
//
// # Axis Conventions
//
// Detector arrays arrive in two axis orders, selected by Geometry.Cartesian:
//   - Cartesian: x runs along columns and y along rows, so pixel (row i, col j)
//     sits at dx = j - CenterX, dy = i - CenterY.
//   - Polar (matrix order): x runs along rows and y along columns, so pixel
//     (row i, col j) sits at dx = i - CenterX, dy = j - CenterY.
//
// Angles are atan2(dy, dx) in degrees, mapped into [0, 360).
//
// # Caching
//
// Maps are pure functions of (shape, geometry). Mapper caches them so repeated
// projections over frames of the same detector reuse one computation. Cached maps
// are shared and must not be modified.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry is returned when a Geometry cannot describe a detector.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Geometry describes the detector placement. Zero PixelSizeX/PixelSizeY mean
// unit pixels; zero Distance or Wavelength mean unknown.
//
// Geometry is a comparable value and is used directly as a cache key.
type Geometry struct {
	CenterX    float64 `json:"center_x" yaml:"center_x"`
	CenterY    float64 `json:"center_y" yaml:"center_y"`
	PixelSizeX float64 `json:"pixel_size_x,omitempty" yaml:"pixel_size_x"`
	PixelSizeY float64 `json:"pixel_size_y,omitempty" yaml:"pixel_size_y"`
	Distance   float64 `json:"distance,omitempty" yaml:"distance"`
	Wavelength float64 `json:"wavelength,omitempty" yaml:"wavelength"`
	Cartesian  bool    `json:"cartesian" yaml:"cartesian"`
}

// Option configures a Geometry built by New.
type Option func(*Geometry) error

// New returns a Cartesian geometry centered at (cx, cy) with the given options applied.
func New(cx, cy float64, opts ...Option) (Geometry, error) {
	g := Geometry{CenterX: cx, CenterY: cy, Cartesian: true}
	for _, opt := range opts {
		if err := opt(&g); err != nil {
			return Geometry{}, err
		}
	}
	return g, g.Validate()
}

// WithPixelSize sets the physical pixel size along x and y. Both must be positive.
func WithPixelSize(px, py float64) Option {
	return func(g *Geometry) error {
		if !(px > 0) || !(py > 0) {
			return fmt.Errorf("%w: pixel size (%g, %g) must be positive", ErrInvalidGeometry, px, py)
		}
		g.PixelSizeX, g.PixelSizeY = px, py
		return nil
	}
}

// WithDistance sets the sample-to-detector distance, in the same units as the pixel size.
func WithDistance(d float64) Option {
	return func(g *Geometry) error {
		if !(d > 0) {
			return fmt.Errorf("%w: distance %g must be positive", ErrInvalidGeometry, d)
		}
		g.Distance = d
		return nil
	}
}

// WithWavelength sets the X-ray wavelength in Angstroms.
func WithWavelength(l float64) Option {
	return func(g *Geometry) error {
		if !(l > 0) {
			return fmt.Errorf("%w: wavelength %g must be positive", ErrInvalidGeometry, l)
		}
		g.Wavelength = l
		return nil
	}
}

// Polar selects matrix axis order (x along rows).
func Polar() Option {
	return func(g *Geometry) error {
		g.Cartesian = false
		return nil
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Validate checks that every field is finite and no size is negative.
func (g Geometry) Validate() error {
	if !finite(g.CenterX) || !finite(g.CenterY) {
		return fmt.Errorf("%w: center (%g, %g) is not finite", ErrInvalidGeometry, g.CenterX, g.CenterY)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"pixel_size_x", g.PixelSizeX},
		{"pixel_size_y", g.PixelSizeY},
		{"distance", g.Distance},
		{"wavelength", g.Wavelength},
	} {
		if !finite(f.v) || f.v < 0 {
			return fmt.Errorf("%w: %s %g must be positive", ErrInvalidGeometry, f.name, f.v)
		}
	}
	if (g.PixelSizeX == 0) != (g.PixelSizeY == 0) {
		return fmt.Errorf("%w: pixel size must be given for both axes", ErrInvalidGeometry)
	}
	return nil
}

// pixelScale returns the per-axis scale factors, defaulting to unit pixels.
func (g Geometry) pixelScale() (float64, float64) {
	if g.PixelSizeX == 0 {
		return 1, 1
	}
	return g.PixelSizeX, g.PixelSizeY
}

// Offset returns the scaled displacement of pixel (row, col) from the center,
// in the geometry's axis convention.
func (g Geometry) Offset(row, col int) (dx, dy float64) {
	px, py := g.pixelScale()
	if g.Cartesian {
		return (float64(col) - g.CenterX) * px, (float64(row) - g.CenterY) * py
	}
	return (float64(row) - g.CenterX) * px, (float64(col) - g.CenterY) * py
}

// Angle maps atan2(dy, dx) into degrees in [0, 360).
func Angle(dy, dx float64) float64 {
	deg := math.Atan2(dy, dx) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}
