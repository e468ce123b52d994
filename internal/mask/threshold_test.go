package mask

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/ironsheep/scattering-tools/internal/detector"
)

func TestThreshold(t *testing.T) {
	img := mustFrame(t, 1, 5, 10, 4.99)

	m, err := Threshold(img, 5, nil)
	if err != nil {
		t.Fatalf("Threshold failed: %v", err)
	}
	want := []bool{true, false, false, true}
	if !reflect.DeepEqual(m.Keep, want) {
		t.Errorf("got %v, want %v", m.Keep, want)
	}
}

func TestThreshold_KeepsPriorExclusions(t *testing.T) {
	img := mustFrame(t, 1, 2, 3)
	start := detector.NewMaskFor(img)
	start.Keep[0] = false

	m, err := Threshold(img, 3, start)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m.Keep, []bool{false, true, false}) {
		t.Errorf("got %v", m.Keep)
	}
	if !start.Keep[1] || !start.Keep[2] {
		t.Error("input mask was modified")
	}

	if _, err := Threshold(img, 3, detector.NewMask(2, 1)); !errors.Is(err, detector.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestFinite(t *testing.T) {
	img := mustFrame(t, 1, math.NaN(), math.Inf(1), math.Inf(-1), 5)
	start := detector.NewMaskFor(img)
	start.Keep[4] = false

	m, err := Finite(img, start)
	if err != nil {
		t.Fatalf("Finite failed: %v", err)
	}
	if want := []bool{true, false, false, false, false}; !reflect.DeepEqual(m.Keep, want) {
		t.Errorf("got %v, want %v", m.Keep, want)
	}
	if !start.Keep[1] {
		t.Error("input mask was modified")
	}

	if _, err := Finite(img, detector.NewMask(2, 1)); !errors.Is(err, detector.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestFinite_LetsRefinementSeeOutliers(t *testing.T) {
	img, q := ringWithOutlier(t)
	img.Pix[3] = math.NaN()

	// A NaN makes the ring statistics NaN, so nothing can be excluded.
	m, err := RefineRing(img, q, Scalar(3), []float64{0, 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Count() != 20 {
		t.Errorf("unfiltered: got %d kept, want 20", m.Count())
	}

	finite, err := Finite(img, nil)
	if err != nil {
		t.Fatal(err)
	}
	m, err = RefineRing(img, q, Scalar(3), []float64{0, 1}, finite)
	if err != nil {
		t.Fatal(err)
	}
	if m.Count() != 18 || m.Keep[3] || m.Keep[7] {
		t.Errorf("got %d kept (NaN kept %v, outlier kept %v), want 18", m.Count(), m.Keep[3], m.Keep[7])
	}

	rs, err := RingStats(img, q, []float64{0, 1}, m)
	if err != nil {
		t.Fatal(err)
	}
	if rs.Mean[0] != 10 || rs.Std[0] != 0 || rs.Count[0] != 18 {
		t.Errorf("ring 0: got mean %v std %v count %d", rs.Mean[0], rs.Std[0], rs.Count[0])
	}
}

func TestThresholdStack_Accumulates(t *testing.T) {
	frames := []*detector.Frame{
		mustFrame(t, 9, 1, 1),
		mustFrame(t, 1, 1, 9),
		mustFrame(t, 1, 1, 1),
	}

	masks, err := ThresholdStack(frames, 5, nil)
	if err != nil {
		t.Fatalf("ThresholdStack failed: %v", err)
	}
	want := [][]bool{
		{false, true, true},
		{false, true, false},
		{false, true, false},
	}
	if len(masks) != len(want) {
		t.Fatalf("got %d masks, want %d", len(masks), len(want))
	}
	for i := range want {
		if !reflect.DeepEqual(masks[i].Keep, want[i]) {
			t.Errorf("mask %d: got %v, want %v", i, masks[i].Keep, want[i])
		}
	}
}

func TestThresholdStack_ShapeMismatch(t *testing.T) {
	frames := []*detector.Frame{mustFrame(t, 1, 2), mustFrame(t, 1, 2, 3)}
	if _, err := ThresholdStack(frames, 5, nil); !errors.Is(err, detector.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestEdge(t *testing.T) {
	shape := detector.Shape{Rows: 4, Cols: 5}

	tests := []struct {
		size     int
		wantKept int
	}{
		{0, 20},
		{1, 6},
		{2, 0},
		{3, 0},
	}

	for _, tt := range tests {
		m, err := Edge(shape, tt.size)
		if err != nil {
			t.Fatalf("size %d: %v", tt.size, err)
		}
		if m.Shape() != shape {
			t.Errorf("size %d: shape %v", tt.size, m.Shape())
		}
		if m.Count() != tt.wantKept {
			t.Errorf("size %d: kept %d, want %d", tt.size, m.Count(), tt.wantKept)
		}
	}

	m, _ := Edge(shape, 1)
	if m.At(0, 0) || !m.At(1, 1) || m.At(4, 3) || !m.At(3, 2) {
		t.Errorf("unexpected border layout: %v", m.Keep)
	}

	if _, err := Edge(shape, -1); err == nil {
		t.Error("expected error for negative size")
	}
}
