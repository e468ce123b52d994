package detector

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrNoReference is returned when a frame series does not start with a reference frame.
var ErrNoReference = errors.New("first frame is not a reference frame")

// SubtractReferences subtracts background/dark-current references from a series of
// measured frames. isReference flags each frame; every measured frame has the most
// recent preceding reference subtracted from it. The result holds only the
// corrected measured frames, in their original order.
func SubtractReferences(frames []*Frame, isReference []bool) ([]*Frame, error) {
	if len(frames) != len(isReference) {
		return nil, fmt.Errorf("%d frames but %d reference flags", len(frames), len(isReference))
	}
	if len(frames) == 0 || !isReference[0] {
		return nil, ErrNoReference
	}

	ref := frames[0]
	shape := ref.Shape()
	out := make([]*Frame, 0, len(frames))

	for i := 1; i < len(frames); i++ {
		f := frames[i]
		if err := CheckShape(fmt.Sprintf("frame %d", i), shape, f.Shape()); err != nil {
			return nil, err
		}
		if isReference[i] {
			ref = f
			continue
		}

		corrected := NewFrame(f.Width, f.Height)
		corrected.Meta = f.Meta
		floats.SubTo(corrected.Pix, f.Pix, ref.Pix)
		out = append(out, corrected)
	}

	return out, nil
}

// ReplaceBad returns the frames with every index listed in bad replaced by a frame
// of NaNs. All replaced positions share one NaN frame, which must not be mutated.
func ReplaceBad(frames []*Frame, bad []int) []*Frame {
	isBad := make(map[int]bool, len(bad))
	for _, b := range bad {
		isBad[b] = true
	}

	var nanFrame *Frame
	out := make([]*Frame, len(frames))
	for i, f := range frames {
		if !isBad[i] {
			out[i] = f
			continue
		}
		if nanFrame == nil {
			nanFrame = NewFrame(f.Width, f.Height)
			for p := range nanFrame.Pix {
				nanFrame.Pix[p] = math.NaN()
			}
		}
		out[i] = nanFrame
	}
	return out
}
