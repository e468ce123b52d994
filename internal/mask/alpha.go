package mask

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrAlphaShape is returned when an Alpha cannot supply one factor per ring.
var ErrAlphaShape = errors.New("alpha must be a scalar, a (low, high) pair, or one value per ring")

// Alpha gives the number of standard deviations a pixel may deviate from its
// ring mean before it is excluded. The implementations are Scalar, Linear and
// PerRing.
type Alpha interface {
	// Factors returns one factor per ring.
	Factors(rings int) ([]float64, error)
}

// Scalar applies the same factor to every ring.
type Scalar float64

// Factors returns rings copies of the scalar.
func (a Scalar) Factors(rings int) ([]float64, error) {
	f := make([]float64, rings)
	for i := range f {
		f[i] = float64(a)
	}
	return f, nil
}

// Linear interpolates the factor linearly from Low at the first ring to High at the last.
type Linear struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Factors returns rings evenly spaced values from Low to High inclusive. A
// single ring gets Low.
func (a Linear) Factors(rings int) ([]float64, error) {
	switch rings {
	case 0:
		return []float64{}, nil
	case 1:
		return []float64{a.Low}, nil
	}
	return floats.Span(make([]float64, rings), a.Low, a.High), nil
}

// PerRing gives an explicit factor for each ring.
type PerRing []float64

// Factors returns a copy of the values, which must number exactly rings.
func (a PerRing) Factors(rings int) ([]float64, error) {
	if len(a) != rings {
		return nil, fmt.Errorf("%w: got %d values for %d rings", ErrAlphaShape, len(a), rings)
	}
	return append([]float64(nil), a...), nil
}

func factors(alpha Alpha, rings int) ([]float64, error) {
	if alpha == nil {
		return nil, fmt.Errorf("%w: alpha is nil", ErrAlphaShape)
	}
	return alpha.Factors(rings)
}
