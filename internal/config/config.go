// Package config loads the default analysis parameters for the server from YAML.
//
// Every field has a default (see Default), so a config file only needs the
// values that differ. Tool arguments override the config on a per-call basis.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ironsheep/scattering-tools/internal/geometry"
	"github.com/ironsheep/scattering-tools/internal/mask"
	"github.com/ironsheep/scattering-tools/internal/projector"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full set of server defaults: the detector geometry, the radial
// projection and the ring refinement mask.
type Config struct {
	Geometry   geometry.Geometry `yaml:"geometry"`
	Projection Projection        `yaml:"projection"`
	RingMask   RingMask          `yaml:"ring_mask"`
}

// Projection holds the radial profile defaults.
type Projection struct {
	RMin  float64          `yaml:"rmin"`
	RMax  float64          `yaml:"rmax"`
	NBins int              `yaml:"nbins"`
	Norm  bool             `yaml:"norm"`
	Wedge *projector.Wedge `yaml:"wedge,omitempty"`
}

// RingMask holds the ring refinement defaults.
type RingMask struct {
	Alpha AlphaValue `yaml:"alpha"`
	NBins int        `yaml:"nbins"`
	// QMin and QMax bound the rings; when both are zero the range of the q map is used.
	QMin       float64 `yaml:"qmin"`
	QMax       float64 `yaml:"qmax"`
	Iterations int     `yaml:"iterations"`
	// Edge is the border width excluded before refinement.
	Edge int `yaml:"edge"`
	// Threshold excludes hot pixels before refinement; zero disables it.
	Threshold float64 `yaml:"threshold"`
}

// HasQRange reports whether the ring range is fixed rather than taken from the q map.
func (r RingMask) HasQRange() bool { return r.QMin != 0 || r.QMax != 0 }

// Default returns the built-in defaults: a Cartesian geometry centred at the
// origin, 250 averaged radial bins out to 500, and three passes of 3σ ring
// refinement over 100 rings.
func Default() Config {
	return Config{
		Geometry: geometry.Geometry{Cartesian: true},
		Projection: Projection{
			RMax:  500,
			NBins: 250,
			Norm:  true,
		},
		RingMask: RingMask{
			Alpha:      AlphaOf(mask.Scalar(3)),
			NBins:      100,
			Iterations: 3,
		},
	}
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports the first invalid setting as an error wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	p := c.Projection
	if p.NBins <= 0 {
		return fmt.Errorf("%w: projection nbins %d must be positive", ErrInvalidConfig, p.NBins)
	}
	if !(p.RMax > p.RMin) {
		return fmt.Errorf("%w: projection rmax %g must exceed rmin %g", ErrInvalidConfig, p.RMax, p.RMin)
	}
	if p.Wedge != nil {
		if err := p.Wedge.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	r := c.RingMask
	switch {
	case r.Alpha.Alpha == nil:
		return fmt.Errorf("%w: ring_mask alpha is required", ErrInvalidConfig)
	case r.NBins <= 0:
		return fmt.Errorf("%w: ring_mask nbins %d must be positive", ErrInvalidConfig, r.NBins)
	case r.HasQRange() && !(r.QMax > r.QMin):
		return fmt.Errorf("%w: ring_mask qmax %g must exceed qmin %g", ErrInvalidConfig, r.QMax, r.QMin)
	case r.Iterations < 1:
		return fmt.Errorf("%w: ring_mask iterations %d must be at least 1", ErrInvalidConfig, r.Iterations)
	case r.Edge < 0:
		return fmt.Errorf("%w: ring_mask edge %d must not be negative", ErrInvalidConfig, r.Edge)
	case r.Threshold < 0:
		return fmt.Errorf("%w: ring_mask threshold %g must not be negative", ErrInvalidConfig, r.Threshold)
	}
	return nil
}

// AsYAML renders the config, including defaults, as YAML.
func (c Config) AsYAML() (string, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(b), nil
}

// ProjectorConfig returns the projector settings described by the config.
func (c Config) ProjectorConfig() projector.Config {
	return projector.Config{
		Geometry: c.Geometry,
		RMin:     c.Projection.RMin,
		RMax:     c.Projection.RMax,
		NBins:    c.Projection.NBins,
		Wedge:    c.Projection.Wedge,
		Norm:     c.Projection.Norm,
	}
}
