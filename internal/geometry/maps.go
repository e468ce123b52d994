package geometry

import (
	"fmt"
	"math"
	"sync"

	"github.com/ironsheep/scattering-tools/internal/detector"
)

// Maps holds per-pixel radius and angle for one (shape, geometry) pair.
// Radius is in pixel-size units; Angle is in degrees in [0, 360).
type Maps struct {
	Radius *detector.Frame
	Angle  *detector.Frame
}

// Compute returns the radius and angle maps for a frame of the given shape.
func Compute(shape detector.Shape, g Geometry) (*Maps, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if shape.Rows < 0 || shape.Cols < 0 {
		return nil, fmt.Errorf("%w: negative shape %s", ErrInvalidGeometry, shape)
	}

	radius := detector.NewFrame(shape.Cols, shape.Rows)
	angle := detector.NewFrame(shape.Cols, shape.Rows)

	for i := 0; i < shape.Rows; i++ {
		for j := 0; j < shape.Cols; j++ {
			dx, dy := g.Offset(i, j)
			radius.Set(j, i, math.Hypot(dx, dy))
			angle.Set(j, i, Angle(dy, dx))
		}
	}

	return &Maps{Radius: radius, Angle: angle}, nil
}

// TwoThetaMap returns the scattering angle 2θ, in degrees, of every pixel.
// The geometry must have a distance.
func TwoThetaMap(shape detector.Shape, g Geometry) (*detector.Frame, error) {
	if g.Distance <= 0 {
		return nil, fmt.Errorf("%w: two-theta needs a sample-to-detector distance", ErrInvalidGeometry)
	}
	maps, err := Compute(shape, g)
	if err != nil {
		return nil, err
	}

	tth := detector.NewFrame(shape.Cols, shape.Rows)
	for p, r := range maps.Radius.Pix {
		tth.Pix[p] = math.Atan2(r, g.Distance) * 180 / math.Pi
	}
	return tth, nil
}

// QMap returns the scattering vector magnitude q = 4π/λ·sin(θ) of every pixel, in
// inverse wavelength units. The geometry must have a distance and a wavelength.
func QMap(shape detector.Shape, g Geometry) (*detector.Frame, error) {
	if g.Wavelength <= 0 {
		return nil, fmt.Errorf("%w: q needs a wavelength", ErrInvalidGeometry)
	}
	tth, err := TwoThetaMap(shape, g)
	if err != nil {
		return nil, err
	}

	q := detector.NewFrame(shape.Cols, shape.Rows)
	k := 4 * math.Pi / g.Wavelength
	for p, t := range tth.Pix {
		q.Pix[p] = k * math.Sin(t*math.Pi/360)
	}
	return q, nil
}

type mapKey struct {
	shape    detector.Shape
	geometry Geometry
}

// Mapper caches coordinate maps per (shape, geometry).
//
// Mapper is safe for concurrent use. Returned maps are shared between callers
// and must be treated as read-only.
type Mapper struct {
	mu   sync.RWMutex
	maps map[mapKey]*Maps
}

// NewMapper returns an empty map cache.
func NewMapper() *Mapper {
	return &Mapper{maps: make(map[mapKey]*Maps)}
}

// Default is the process-wide mapper used when no other is supplied.
var Default = NewMapper()

// Maps returns cached maps for (shape, g), computing them on first use.
func (m *Mapper) Maps(shape detector.Shape, g Geometry) (*Maps, error) {
	key := mapKey{shape: shape, geometry: g}

	m.mu.RLock()
	if cached, ok := m.maps[key]; ok {
		m.mu.RUnlock()
		return cached, nil
	}
	m.mu.RUnlock()

	computed, err := Compute(shape, g)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another goroutine may have stored an identical result meanwhile; keep the first.
	if cached, ok := m.maps[key]; ok {
		return cached, nil
	}
	m.maps[key] = computed
	return computed, nil
}

// Evict drops the maps for (shape, g), if cached.
func (m *Mapper) Evict(shape detector.Shape, g Geometry) {
	m.mu.Lock()
	delete(m.maps, mapKey{shape: shape, geometry: g})
	m.mu.Unlock()
}

// Clear drops every cached map.
func (m *Mapper) Clear() {
	m.mu.Lock()
	m.maps = make(map[mapKey]*Maps)
	m.mu.Unlock()
}

// Len returns the number of cached entries.
func (m *Mapper) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.maps)
}
