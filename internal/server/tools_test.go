package server

import (
	"encoding/json"
	"strings"
	"testing"
)

var expectedTools = []string{
	"detector_load",
	"detector_dimensions",
	"radial_profile",
	"ring_mask",
	"subtract_reference",
}

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("Duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok || len(props) == 0 {
				t.Fatal("InputSchema missing 'properties'")
			}

			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("'required' should be a string slice")
			}
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required parameter %q has no property", r)
				}
			}

			// Definitions are sent to clients as JSON.
			if _, err := json.Marshal(tool); err != nil {
				t.Errorf("tool does not marshal: %v", err)
			}
		})
	}
}

func TestToolDefinitions_SharedParameters(t *testing.T) {
	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	tests := []struct {
		tool   string
		params []string
	}{
		{"radial_profile", []string{"path", "center_x", "center_y", "cartesian", "rmin", "rmax", "nbins", "phimin", "phimax", "norm", "mask"}},
		{"ring_mask", []string{"path", "center_x", "wavelength", "alpha", "bins", "nbins", "qmin", "qmax", "iterations", "threshold", "edge"}},
		{"subtract_reference", []string{"paths", "is_reference", "bad"}},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			props := toolMap[tt.tool].InputSchema["properties"].(map[string]interface{})
			for _, p := range tt.params {
				if _, ok := props[p]; !ok {
					t.Errorf("missing parameter %q", p)
				}
			}
		})
	}
}

func TestExecuteTool_AllToolsDispatch(t *testing.T) {
	s := New()
	for _, name := range expectedTools {
		t.Run(name, func(t *testing.T) {
			_, err := s.executeTool(name, json.RawMessage(`{}`))
			if err != nil && strings.Contains(err.Error(), "unknown tool") {
				t.Errorf("tool %s is not dispatched", name)
			}
		})
	}
}
