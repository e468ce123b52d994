package geometry

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/ironsheep/scattering-tools/internal/detector"
)

func TestNew_Options(t *testing.T) {
	g, err := New(10, 20, WithPixelSize(0.1, 0.2), WithDistance(1000), WithWavelength(1.5), Polar())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	want := Geometry{CenterX: 10, CenterY: 20, PixelSizeX: 0.1, PixelSizeY: 0.2, Distance: 1000, Wavelength: 1.5}
	if g != want {
		t.Errorf("got %+v, want %+v", g, want)
	}

	tests := []struct {
		name string
		opt  Option
	}{
		{"zero pixel size", WithPixelSize(0, 1)},
		{"negative pixel size", WithPixelSize(1, -1)},
		{"zero distance", WithDistance(0)},
		{"nan wavelength", WithWavelength(math.NaN())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(0, 0, tt.opt); !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("expected ErrInvalidGeometry, got %v", err)
			}
		})
	}
}

func TestGeometry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		g       Geometry
		wantErr bool
	}{
		{"zero value", Geometry{}, false},
		{"nan center", Geometry{CenterX: math.NaN()}, true},
		{"inf center", Geometry{CenterY: math.Inf(1)}, true},
		{"negative pixel", Geometry{PixelSizeX: -1, PixelSizeY: 1}, true},
		{"one axis pixel", Geometry{PixelSizeX: 1}, true},
		{"negative distance", Geometry{Distance: -5}, true},
		{"full", Geometry{PixelSizeX: 1, PixelSizeY: 2, Distance: 3, Wavelength: 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.g.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("err: got %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAngle(t *testing.T) {
	tests := []struct {
		name   string
		dy, dx float64
		want   float64
	}{
		{"east", 0, 1, 0},
		{"north", 1, 0, 90},
		{"west", 0, -1, 180},
		{"south", -1, 0, 270},
		{"diagonal", 1, 1, 45},
		{"fourth quadrant", -1, 1, 315},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Angle(tt.dy, tt.dx)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if got < 0 || got >= 360 {
				t.Errorf("angle %v outside [0, 360)", got)
			}
		})
	}
}

func TestCompute_Cartesian(t *testing.T) {
	g := Geometry{CenterX: 1, CenterY: 2, Cartesian: true}
	maps, err := Compute(detector.Shape{Rows: 5, Cols: 4}, g)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	// (row 2, col 3): dx = 3-1 = 2, dy = 2-2 = 0
	if r := maps.Radius.At(3, 2); r != 2 {
		t.Errorf("radius: got %v, want 2", r)
	}
	if a := maps.Angle.At(3, 2); a != 0 {
		t.Errorf("angle: got %v, want 0", a)
	}
	// (row 4, col 1): dx = 0, dy = 2
	if a := maps.Angle.At(1, 4); math.Abs(a-90) > 1e-9 {
		t.Errorf("angle: got %v, want 90", a)
	}
}

func TestCompute_PolarIsTransposedCartesian(t *testing.T) {
	cart := Geometry{CenterX: 1.5, CenterY: 2.5, Cartesian: true}
	polar := Geometry{CenterX: 1.5, CenterY: 2.5}

	shape := detector.Shape{Rows: 6, Cols: 4}
	transposed := detector.Shape{Rows: 4, Cols: 6}

	cm, err := Compute(shape, cart)
	if err != nil {
		t.Fatal(err)
	}
	pm, err := Compute(transposed, polar)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < shape.Rows; i++ {
		for j := 0; j < shape.Cols; j++ {
			if cm.Radius.At(j, i) != pm.Radius.At(i, j) {
				t.Fatalf("radius (%d,%d): %v vs %v", i, j, cm.Radius.At(j, i), pm.Radius.At(i, j))
			}
			if cm.Angle.At(j, i) != pm.Angle.At(i, j) {
				t.Fatalf("angle (%d,%d): %v vs %v", i, j, cm.Angle.At(j, i), pm.Angle.At(i, j))
			}
		}
	}
}

func TestCompute_NonSquarePixels(t *testing.T) {
	g := Geometry{PixelSizeX: 2, PixelSizeY: 3, Cartesian: true}
	maps, err := Compute(detector.Shape{Rows: 3, Cols: 3}, g)
	if err != nil {
		t.Fatal(err)
	}
	if r := maps.Radius.At(1, 0); r != 2 {
		t.Errorf("x step: got %v, want 2", r)
	}
	if r := maps.Radius.At(0, 1); r != 3 {
		t.Errorf("y step: got %v, want 3", r)
	}
	if r := maps.Radius.At(2, 2); math.Abs(r-math.Hypot(4, 6)) > 1e-12 {
		t.Errorf("diagonal: got %v", r)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	g := Geometry{CenterX: 3.3, CenterY: 7.1, PixelSizeX: 0.172, PixelSizeY: 0.172}
	shape := detector.Shape{Rows: 16, Cols: 12}
	a, _ := Compute(shape, g)
	b, _ := Compute(shape, g)
	for p := range a.Radius.Pix {
		if a.Radius.Pix[p] != b.Radius.Pix[p] || a.Angle.Pix[p] != b.Angle.Pix[p] {
			t.Fatalf("pixel %d differs between runs", p)
		}
	}
}

func TestCompute_InvalidGeometry(t *testing.T) {
	_, err := Compute(detector.Shape{Rows: 2, Cols: 2}, Geometry{CenterX: math.NaN()})
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestQMap(t *testing.T) {
	g := Geometry{CenterX: 0, CenterY: 0, PixelSizeX: 0.1, PixelSizeY: 0.1, Distance: 100, Wavelength: 1, Cartesian: true}
	shape := detector.Shape{Rows: 1, Cols: 50}

	q, err := QMap(shape, g)
	if err != nil {
		t.Fatalf("QMap failed: %v", err)
	}

	if q.At(0, 0) != 0 {
		t.Errorf("q at center: got %v, want 0", q.At(0, 0))
	}
	for x := 1; x < shape.Cols; x++ {
		if q.At(x, 0) <= q.At(x-1, 0) {
			t.Fatalf("q not increasing with radius at x=%d", x)
		}
	}

	// pixel 10: r = 1, 2θ = atan(1/100)
	want := 4 * math.Pi * math.Sin(math.Atan(0.01)/2)
	if math.Abs(q.At(10, 0)-want) > 1e-12 {
		t.Errorf("q(10): got %v, want %v", q.At(10, 0), want)
	}
}

func TestQMap_RequiresDistanceAndWavelength(t *testing.T) {
	shape := detector.Shape{Rows: 2, Cols: 2}
	if _, err := QMap(shape, Geometry{Wavelength: 1}); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("missing distance: got %v", err)
	}
	if _, err := QMap(shape, Geometry{Distance: 1}); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("missing wavelength: got %v", err)
	}
	if _, err := TwoThetaMap(shape, Geometry{}); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("two-theta without distance: got %v", err)
	}
}

func TestMapper_Caches(t *testing.T) {
	m := NewMapper()
	shape := detector.Shape{Rows: 8, Cols: 8}
	g := Geometry{CenterX: 4, CenterY: 4, Cartesian: true}

	a, err := m.Maps(shape, g)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := m.Maps(shape, g)
	if a != b {
		t.Error("expected the cached maps on second call")
	}

	c, _ := m.Maps(shape, Geometry{CenterX: 4, CenterY: 4})
	if c == a {
		t.Error("different geometry must not share maps")
	}
	if m.Len() != 2 {
		t.Errorf("Len: got %d, want 2", m.Len())
	}

	m.Evict(shape, g)
	d, _ := m.Maps(shape, g)
	if d == a {
		t.Error("expected fresh maps after Evict")
	}
	if d.Radius.Pix[0] != a.Radius.Pix[0] {
		t.Error("recomputed maps differ")
	}

	m.Clear()
	if m.Len() != 0 {
		t.Errorf("Len after Clear: got %d", m.Len())
	}

	if _, err := m.Maps(shape, Geometry{CenterX: math.Inf(-1)}); err == nil {
		t.Error("expected error for invalid geometry")
	}
	if m.Len() != 0 {
		t.Error("failed computation must not be cached")
	}
}

func TestMapper_Concurrent(t *testing.T) {
	m := NewMapper()
	shape := detector.Shape{Rows: 32, Cols: 32}
	g := Geometry{CenterX: 16, CenterY: 16, Cartesian: true}

	results := make([]*Maps, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = m.Maps(shape, g)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent callers received different map instances")
		}
	}
}
