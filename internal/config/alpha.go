package config

import (
	"encoding/json"
	"fmt"

	"github.com/ironsheep/scattering-tools/internal/mask"
)

// AlphaValue carries a mask.Alpha through YAML and JSON. It is written as a
// number (mask.Scalar), a {low, high} mapping (mask.Linear) or a list with one
// value per ring (mask.PerRing).
type AlphaValue struct {
	Alpha mask.Alpha
}

// AlphaOf wraps a for use in a Config or tool arguments.
func AlphaOf(a mask.Alpha) AlphaValue { return AlphaValue{Alpha: a} }

// IsSet reports whether an alpha was given.
func (a AlphaValue) IsSet() bool { return a.Alpha != nil }

// UnmarshalYAML accepts a number, a low/high mapping or a list of numbers.
func (a *AlphaValue) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	alpha, err := alphaFrom(raw)
	if err != nil {
		return err
	}
	a.Alpha = alpha
	return nil
}

func (a AlphaValue) MarshalYAML() (interface{}, error) {
	return a.plain()
}

// UnmarshalJSON accepts the same shapes as UnmarshalYAML.
func (a *AlphaValue) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	alpha, err := alphaFrom(raw)
	if err != nil {
		return err
	}
	a.Alpha = alpha
	return nil
}

func (a AlphaValue) MarshalJSON() ([]byte, error) {
	v, err := a.plain()
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func (a AlphaValue) plain() (interface{}, error) {
	switch v := a.Alpha.(type) {
	case nil:
		return nil, nil
	case mask.Scalar:
		return float64(v), nil
	case mask.Linear:
		return map[string]float64{"low": v.Low, "high": v.High}, nil
	case mask.PerRing:
		return []float64(v), nil
	default:
		return nil, fmt.Errorf("unsupported alpha type %T", a.Alpha)
	}
}

// alphaFrom converts a decoded YAML or JSON value into an Alpha.
func alphaFrom(raw interface{}) (mask.Alpha, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		per := make(mask.PerRing, len(v))
		for i, e := range v {
			f, ok := number(e)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T", mask.ErrAlphaShape, i, e)
			}
			per[i] = f
		}
		return per, nil
	case map[string]interface{}:
		return linearFrom(func(k string) (interface{}, bool) {
			e, ok := v[k]
			return e, ok
		}, len(v))
	case map[interface{}]interface{}:
		// yaml.v2 decodes mappings with interface{} keys.
		return linearFrom(func(k string) (interface{}, bool) {
			e, ok := v[k]
			return e, ok
		}, len(v))
	}
	if f, ok := number(raw); ok {
		return mask.Scalar(f), nil
	}
	return nil, fmt.Errorf("%w: got %T", mask.ErrAlphaShape, raw)
}

func linearFrom(get func(string) (interface{}, bool), size int) (mask.Alpha, error) {
	var bounds [2]float64
	for i, k := range []string{"low", "high"} {
		e, ok := get(k)
		if !ok {
			return nil, fmt.Errorf("%w: missing %q", mask.ErrAlphaShape, k)
		}
		f, ok := number(e)
		if !ok {
			return nil, fmt.Errorf("%w: %q is %T", mask.ErrAlphaShape, k, e)
		}
		bounds[i] = f
	}
	if size != 2 {
		return nil, fmt.Errorf("%w: mapping must hold only low and high", mask.ErrAlphaShape)
	}
	return mask.Linear{Low: bounds[0], High: bounds[1]}, nil
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
