package detector

import "fmt"

// Mask marks which pixels of a frame are valid. Keep[i] == true keeps pixel i.
type Mask struct {
	Width  int
	Height int
	Keep   []bool
}

// NewMask returns a mask that keeps every pixel.
func NewMask(width, height int) *Mask {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	m := &Mask{Width: width, Height: height, Keep: make([]bool, width*height)}
	for i := range m.Keep {
		m.Keep[i] = true
	}
	return m
}

// NewMaskFor returns an all-keep mask matching the frame's shape.
func NewMaskFor(f *Frame) *Mask { return NewMask(f.Width, f.Height) }

// Shape returns the mask extent.
func (m *Mask) Shape() Shape { return Shape{Rows: m.Height, Cols: m.Width} }

// At reports whether the pixel at column x, row y is kept.
func (m *Mask) At(x, y int) bool { return m.Keep[y*m.Width+x] }

// Set keeps (v true) or excludes the pixel at column x, row y.
func (m *Mask) Set(x, y int, v bool) { m.Keep[y*m.Width+x] = v }

// Copy returns an independent copy of the mask.
func (m *Mask) Copy() *Mask {
	c := &Mask{Width: m.Width, Height: m.Height, Keep: make([]bool, len(m.Keep))}
	copy(c.Keep, m.Keep)
	return c
}

// Count returns the number of kept pixels.
func (m *Mask) Count() int {
	n := 0
	for _, k := range m.Keep {
		if k {
			n++
		}
	}
	return n
}

// And returns a new mask keeping pixels kept by both m and other.
func (m *Mask) And(other *Mask) (*Mask, error) {
	if err := CheckShape("mask", m.Shape(), other.Shape()); err != nil {
		return nil, err
	}
	out := m.Copy()
	for i, k := range other.Keep {
		out.Keep[i] = out.Keep[i] && k
	}
	return out, nil
}

// Equal reports whether both masks have the same shape and keep the same pixels.
func (m *Mask) Equal(other *Mask) bool {
	if m.Shape() != other.Shape() {
		return false
	}
	for i := range m.Keep {
		if m.Keep[i] != other.Keep[i] {
			return false
		}
	}
	return true
}

func (m *Mask) String() string {
	return fmt.Sprintf("mask[%s, %d kept]", m.Shape(), m.Count())
}
