package detector

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/scattering-tools/internal/metadata"
)

// ErrShapeMismatch is returned when frames, masks or maps that must share a shape do not.
var ErrShapeMismatch = errors.New("shape mismatch")

// Shape is the extent of a frame in rows and columns.
type Shape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Len returns the number of pixels.
func (s Shape) Len() int { return s.Rows * s.Cols }

func (s Shape) String() string { return fmt.Sprintf("%dx%d", s.Rows, s.Cols) }

// CheckShape returns a wrapped ErrShapeMismatch if got differs from want.
func CheckShape(what string, want, got Shape) error {
	if want != got {
		return fmt.Errorf("%s is %s, expected %s: %w", what, got, want, ErrShapeMismatch)
	}
	return nil
}

// Frame is a 2-D detector image stored row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []float64

	// Meta holds optional metadata about where the frame came from.
	Meta *metadata.Tree
}

// NewFrame returns a zero-filled frame.
func NewFrame(width, height int) *Frame {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// NewFrameFrom wraps pix, which must hold exactly width*height values.
func NewFrameFrom(width, height int, pix []float64) (*Frame, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("pixel data has %d values, expected %d: %w", len(pix), width*height, ErrShapeMismatch)
	}
	return &Frame{Width: width, Height: height, Pix: pix}, nil
}

// Shape returns the frame extent.
func (f *Frame) Shape() Shape { return Shape{Rows: f.Height, Cols: f.Width} }

// At returns the intensity at column x, row y.
func (f *Frame) At(x, y int) float64 { return f.Pix[y*f.Width+x] }

// Set stores v at column x, row y.
func (f *Frame) Set(x, y int, v float64) { f.Pix[y*f.Width+x] = v }

// Copy returns a deep copy of the pixel data. Metadata is shared.
func (f *Frame) Copy() *Frame {
	g := &Frame{Width: f.Width, Height: f.Height, Pix: make([]float64, len(f.Pix)), Meta: f.Meta}
	copy(g.Pix, f.Pix)
	return g
}

// FrameStats summarises the finite intensities of a frame.
type FrameStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Pixels int     `json:"pixels"`
	NaNs   int     `json:"nans"`
}

// Stats computes min, max and mean over the finite pixels.
func (f *Frame) Stats() FrameStats {
	finite := make([]float64, 0, len(f.Pix))
	nans := 0
	for _, v := range f.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			nans++
			continue
		}
		finite = append(finite, v)
	}
	st := FrameStats{Pixels: len(f.Pix), NaNs: nans}
	if len(finite) == 0 {
		return st
	}
	st.Min = floats.Min(finite)
	st.Max = floats.Max(finite)
	st.Mean = floats.Sum(finite) / float64(len(finite))
	return st
}

// FromImage converts any image to a frame of 16-bit gray intensities in [0, 65535].
func FromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	f := NewFrame(bounds.Dx(), bounds.Dy())

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				f.Set(x, y, float64(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y))
			}
		}
	case *image.Gray:
		// Scale 8-bit to the same range as Gray16 so thresholds don't depend on bit depth.
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				f.Set(x, y, float64(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)*257)
			}
		}
	default:
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				f.Set(x, y, float64(g.Y))
			}
		}
	}

	return f
}
