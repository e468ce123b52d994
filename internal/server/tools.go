package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the detector frame (PNG, TIFF, JPEG, GIF, BMP or FITS)",
	}
}

func numberProperty(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

func integerProperty(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

// geometryProperties returns the optional geometry overrides shared by the analysis tools.
func geometryProperties() map[string]interface{} {
	return map[string]interface{}{
		"center_x":     numberProperty("Beam center x, in pixels. Defaults to the server config"),
		"center_y":     numberProperty("Beam center y, in pixels. Defaults to the server config"),
		"pixel_size_x": numberProperty("Physical pixel size along x. Give together with pixel_size_y"),
		"pixel_size_y": numberProperty("Physical pixel size along y. Give together with pixel_size_x"),
		"distance":     numberProperty("Sample-to-detector distance, in pixel-size units"),
		"wavelength":   numberProperty("X-ray wavelength. With distance, rings are defined in q instead of radius"),
		"cartesian": map[string]interface{}{
			"type":        "boolean",
			"description": "true: x runs along columns. false: matrix order, x runs along rows",
		},
	}
}

// maskProperties returns the masking parameters shared by ring_mask and the
// radial_profile mask block.
func maskProperties() map[string]interface{} {
	return map[string]interface{}{
		"alpha": map[string]interface{}{
			"description": "Allowed deviation from the ring mean in standard deviations: a number, {\"low\": a, \"high\": b} interpolated from the first to the last ring, or an array with one value per ring",
			"oneOf": []interface{}{
				map[string]interface{}{"type": "number"},
				map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"low":  map[string]interface{}{"type": "number"},
						"high": map[string]interface{}{"type": "number"},
					},
					"required": []string{"low", "high"},
				},
				map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "number"}},
			},
		},
		"bins": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "number"},
			"description": "Explicit ascending ring edges. Overrides nbins/qmin/qmax",
		},
		"nbins":      integerProperty("Number of equal-width rings"),
		"qmin":       numberProperty("Lower ring bound. Defaults to the config, then to the smallest q on the frame"),
		"qmax":       numberProperty("Upper ring bound. Defaults to the config, then to the largest q on the frame"),
		"iterations": integerProperty("Maximum refinement passes; stops early once no pixel changes"),
		"threshold":  numberProperty("Exclude pixels at or above this intensity before refinement. 0 disables"),
		"edge":       integerProperty("Exclude this many pixels along every border"),
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Frame Information
		{
			Name:        "detector_load",
			Description: "Load a detector frame and return its dimensions, format, intensity statistics (min, max, mean, NaN count) and metadata keys.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "detector_dimensions",
			Description: "Get the width and height of a detector frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Integration
		{
			Name:        "radial_profile",
			Description: "Integrate a frame over azimuthal angle into a 1-D profile versus radius. Optionally restrict to a wedge [phimin, phimax) in degrees (wraps through 0 when phimin > phimax) and apply hot-pixel, edge and ring-outlier masks first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(geometryProperties(), map[string]interface{}{
					"path":   pathProperty(),
					"rmin":   numberProperty("Inner radius, in pixel-size units"),
					"rmax":   numberProperty("Outer radius, in pixel-size units"),
					"nbins":  integerProperty("Number of radial bins"),
					"phimin": numberProperty("Wedge start angle in degrees [0, 360]. Give together with phimax"),
					"phimax": numberProperty("Wedge end angle in degrees [0, 360]. Give together with phimin"),
					"norm": map[string]interface{}{
						"type":        "boolean",
						"description": "Average each bin instead of summing it",
					},
					"mask": map[string]interface{}{
						"type":        "object",
						"description": "Masks applied before integration. Ring refinement runs only when alpha is given",
						"properties":  maskProperties(),
					},
				}),
				"required": []string{"path"},
			},
		},

		// Masking
		{
			Name:        "ring_mask",
			Description: "Build a bad-pixel mask by iterated ring statistics: pixels deviating from their ring's mean intensity by more than alpha standard deviations are excluded. Returns kept/excluded counts, passes used and per-ring mean, std and count.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": withProperties(withProperties(geometryProperties(), maskProperties()), map[string]interface{}{"path": pathProperty()}),
				"required":   []string{"path"},
			},
		},

		// Background
		{
			Name:        "subtract_reference",
			Description: "Subtract reference (dark/background) frames from a series. Each measured frame has the nearest preceding reference subtracted; the first frame must be a reference. Returns statistics of every corrected frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       pathProperty(),
						"description": "Frames in acquisition order",
					},
					"is_reference": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "boolean"},
						"description": "One flag per path, true for reference frames",
					},
					"bad": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "integer"},
						"description": "Indices of frames to discard; they become NaN frames",
					},
				},
				"required": []string{"paths", "is_reference"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return s.result(req.ID, map[string]interface{}{
		"tools": GetToolDefinitions(),
	})
}
