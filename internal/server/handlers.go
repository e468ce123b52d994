package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/scattering-tools/internal/binning"
	"github.com/ironsheep/scattering-tools/internal/config"
	"github.com/ironsheep/scattering-tools/internal/detector"
	"github.com/ironsheep/scattering-tools/internal/geometry"
	"github.com/ironsheep/scattering-tools/internal/mask"
	"github.com/ironsheep/scattering-tools/internal/projector"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "detector_load", "radial_profile").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors, including a panicking tool, return a JSON-RPC error
// response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.runTool(params.Name, params.Arguments)
	if s.debug {
		log.Printf("tools/call %s finished in %v (error: %v)", params.Name, time.Since(start), err)
	}
	if err != nil {
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Printf("Failed to encode %s result: %v", params.Name, err)
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return s.result(req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(text),
			},
		},
	})
}

// runTool is executeTool with a panic turned into an error, so one bad frame
// cannot take the server down.
func (s *Server) runTool(name string, args json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("tool %s panicked: %v", name, r)
			result, err = nil, fmt.Errorf("tool %s panicked: %v", name, r)
		}
	}()
	return s.executeTool(name, args)
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Fills omitted parameters from the server config
//  3. Loads frames from cache as needed
//  4. Calls the detector/projector/mask functions
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "detector_load":
		return s.handleDetectorLoad(args)
	case "detector_dimensions":
		return s.handleDetectorDimensions(args)
	case "radial_profile":
		return s.handleRadialProfile(args)
	case "ring_mask":
		return s.handleRingMask(args)
	case "subtract_reference":
		return s.handleSubtractReference(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// override replaces *dst with *v when the argument was supplied.
func override[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// === Frame Information Handlers ===

type detectorLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleDetectorLoad(args json.RawMessage) (interface{}, error) {
	var a detectorLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return detector.LoadFrameInfo(s.cache, a.Path)
}

func (s *Server) handleDetectorDimensions(args json.RawMessage) (interface{}, error) {
	var a detectorLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return detector.GetDimensions(s.cache, a.Path)
}

// === Geometry ===

// geometryArgs are the optional geometry overrides shared by the analysis tools.
type geometryArgs struct {
	CenterX    *float64 `json:"center_x"`
	CenterY    *float64 `json:"center_y"`
	PixelSizeX *float64 `json:"pixel_size_x"`
	PixelSizeY *float64 `json:"pixel_size_y"`
	Distance   *float64 `json:"distance"`
	Wavelength *float64 `json:"wavelength"`
	Cartesian  *bool    `json:"cartesian"`
}

func (a geometryArgs) resolve(g geometry.Geometry) (geometry.Geometry, error) {
	override(&g.CenterX, a.CenterX)
	override(&g.CenterY, a.CenterY)
	override(&g.PixelSizeX, a.PixelSizeX)
	override(&g.PixelSizeY, a.PixelSizeY)
	override(&g.Distance, a.Distance)
	override(&g.Wavelength, a.Wavelength)
	override(&g.Cartesian, a.Cartesian)
	return g, g.Validate()
}

// ringCoordinates returns the map that defines rings: q when the geometry has a
// distance and wavelength, the radius otherwise.
func (s *Server) ringCoordinates(shape detector.Shape, g geometry.Geometry) (*detector.Frame, string, error) {
	if g.Distance > 0 && g.Wavelength > 0 {
		q, err := geometry.QMap(shape, g)
		return q, "q", err
	}
	maps, err := s.mapper.Maps(shape, g)
	if err != nil {
		return nil, "", err
	}
	return maps.Radius, "radius", nil
}

// === Masking ===

// maskArgs select the masks applied before an analysis. Omitted values come
// from the ring_mask section of the config.
type maskArgs struct {
	Alpha      config.AlphaValue `json:"alpha"`
	Bins       []float64         `json:"bins"`
	NBins      *int              `json:"nbins"`
	QMin       *float64          `json:"qmin"`
	QMax       *float64          `json:"qmax"`
	Iterations *int              `json:"iterations"`
	Threshold  *float64          `json:"threshold"`
	Edge       *int              `json:"edge"`
}

// MaskSummary describes a mask built for a tool call.
type MaskSummary struct {
	Kept     int `json:"kept"`
	Excluded int `json:"excluded"`

	// Set only when ring refinement ran.
	Passes  int                  `json:"passes,omitempty"`
	QSource string               `json:"q_source,omitempty"`
	Bins    []float64            `json:"bins,omitempty"`
	Rings   *mask.RingStatistics `json:"rings,omitempty"`
}

// buildMask excludes non-finite pixels, then applies the edge mask, the hot-pixel
// threshold and, when refine is set or an alpha is given, iterated ring refinement.
func (s *Server) buildMask(f *detector.Frame, g geometry.Geometry, a maskArgs, refine bool) (*detector.Mask, *MaskSummary, error) {
	rm := s.cfg.RingMask
	override(&rm.NBins, a.NBins)
	override(&rm.Iterations, a.Iterations)
	override(&rm.Threshold, a.Threshold)
	override(&rm.Edge, a.Edge)
	if a.Alpha.IsSet() {
		rm.Alpha = a.Alpha
		refine = true
	}

	m, err := mask.Edge(f.Shape(), rm.Edge)
	if err != nil {
		return nil, nil, err
	}
	if m, err = mask.Finite(f, m); err != nil {
		return nil, nil, err
	}
	if rm.Threshold > 0 {
		if m, err = mask.Threshold(f, rm.Threshold, m); err != nil {
			return nil, nil, err
		}
	}

	summary := &MaskSummary{}
	if refine {
		q, source, err := s.ringCoordinates(f.Shape(), g)
		if err != nil {
			return nil, nil, err
		}

		bins := a.Bins
		if len(bins) == 0 {
			if bins, err = ringEdges(q, rm, a); err != nil {
				return nil, nil, err
			}
		}

		if m, summary.Passes, err = mask.RefineRingIter(f, q, rm.Alpha.Alpha, bins, m, rm.Iterations); err != nil {
			return nil, nil, err
		}
		if summary.Rings, err = mask.RingStats(f, q, bins, m); err != nil {
			return nil, nil, err
		}
		summary.QSource = source
		summary.Bins = bins
	}

	summary.Kept = m.Count()
	summary.Excluded = len(m.Keep) - summary.Kept
	return m, summary, nil
}

// ringEdges spaces rm.NBins rings evenly over the q range: the arguments, then
// the config, then the extent of the q map.
func ringEdges(q *detector.Frame, rm config.RingMask, a maskArgs) ([]float64, error) {
	qmin, qmax := rm.QMin, rm.QMax
	if !rm.HasQRange() {
		if len(q.Pix) == 0 {
			return nil, errors.New("cannot derive rings from an empty frame")
		}
		qmin, qmax = floats.Min(q.Pix), floats.Max(q.Pix)
	}
	override(&qmin, a.QMin)
	override(&qmax, a.QMax)
	return binning.Uniform(rm.NBins, qmin, qmax).BinEdges()
}

// === Radial Profile Handler ===

type radialProfileArgs struct {
	Path string `json:"path"`
	geometryArgs
	RMin   *float64  `json:"rmin"`
	RMax   *float64  `json:"rmax"`
	NBins  *int      `json:"nbins"`
	PhiMin *float64  `json:"phimin"`
	PhiMax *float64  `json:"phimax"`
	Norm   *bool     `json:"norm"`
	Mask   *maskArgs `json:"mask"`
}

// RadialProfileResult is the output of the radial_profile tool.
type RadialProfileResult struct {
	BinCenters []float64 `json:"bin_centers"`
	Profile    []float64 `json:"profile"`
	// Counts is the number of contributing pixels per bin.
	Counts []int            `json:"counts"`
	Norm   bool             `json:"norm"`
	Wedge  *projector.Wedge `json:"wedge,omitempty"`
	Mask   *MaskSummary     `json:"mask,omitempty"`
}

func (s *Server) handleRadialProfile(args json.RawMessage) (interface{}, error) {
	var a radialProfileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	f, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	cfg := s.cfg.ProjectorConfig()
	cfg.Mapper = s.mapper
	if cfg.Geometry, err = a.resolve(cfg.Geometry); err != nil {
		return nil, err
	}
	override(&cfg.RMin, a.RMin)
	override(&cfg.RMax, a.RMax)
	override(&cfg.NBins, a.NBins)
	override(&cfg.Norm, a.Norm)
	switch {
	case a.PhiMin != nil && a.PhiMax != nil:
		cfg.Wedge = &projector.Wedge{PhiMin: *a.PhiMin, PhiMax: *a.PhiMax}
	case a.PhiMin != nil || a.PhiMax != nil:
		return nil, errors.New("phimin and phimax must be given together")
	}

	p, err := projector.New(f.Shape(), cfg)
	if err != nil {
		return nil, err
	}

	result := &RadialProfileResult{
		BinCenters: p.BinCenters(),
		Norm:       cfg.Norm,
		Wedge:      cfg.Wedge,
	}

	if a.Mask == nil {
		finite, err := mask.Finite(f, nil)
		if err != nil {
			return nil, err
		}
		if finite.Count() == len(finite.Keep) {
			result.Counts = p.Counts()
			result.Profile, err = p.Project(f)
			return result, err
		}
		// NaN or Inf pixels would poison their bins.
		if result.Profile, err = p.ProjectMasked(f, finite); err != nil {
			return nil, err
		}
		result.Counts = keptCounts(p, finite)
		return result, nil
	}

	m, summary, err := s.buildMask(f, cfg.Geometry, *a.Mask, false)
	if err != nil {
		return nil, err
	}
	if result.Profile, err = p.ProjectMasked(f, m); err != nil {
		return nil, err
	}
	result.Counts = keptCounts(p, m)
	result.Mask = summary
	return result, nil
}

func keptCounts(p *projector.RadialProjector, m *detector.Mask) []int {
	counts := make([]int, p.NBins())
	for b := range counts {
		for _, pix := range p.Pixels(b) {
			if m.Keep[pix] {
				counts[b]++
			}
		}
	}
	return counts
}

// === Ring Mask Handler ===

type ringMaskArgs struct {
	Path string `json:"path"`
	geometryArgs
	maskArgs
}

func (s *Server) handleRingMask(args json.RawMessage) (interface{}, error) {
	var a ringMaskArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	f, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	g, err := a.resolve(s.cfg.Geometry)
	if err != nil {
		return nil, err
	}

	_, summary, err := s.buildMask(f, g, a.maskArgs, true)
	return summary, err
}

// === Reference Subtraction Handler ===

type subtractReferenceArgs struct {
	Paths       []string `json:"paths"`
	IsReference []bool   `json:"is_reference"`
	// Bad lists indices of frames to discard; they are replaced by NaN frames.
	Bad []int `json:"bad"`
}

// SubtractedFrame describes one background-subtracted frame.
type SubtractedFrame struct {
	// Source is the index into the request's paths.
	Source int                 `json:"source"`
	Path   string              `json:"path"`
	Stats  detector.FrameStats `json:"stats"`
}

func (s *Server) handleSubtractReference(args json.RawMessage) (interface{}, error) {
	var a subtractReferenceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths must not be empty")
	}

	frames := make([]*detector.Frame, len(a.Paths))
	for i, path := range a.Paths {
		f, err := s.cache.Load(path)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		frames[i] = f
	}
	for _, b := range a.Bad {
		if b < 0 || b >= len(frames) {
			return nil, fmt.Errorf("bad frame index %d out of range [0, %d)", b, len(frames))
		}
	}
	frames = detector.ReplaceBad(frames, a.Bad)

	subtracted, err := detector.SubtractReferences(frames, a.IsReference)
	if err != nil {
		return nil, err
	}

	out := make([]SubtractedFrame, 0, len(subtracted))
	next := 0
	for i, ref := range a.IsReference {
		if ref {
			continue
		}
		out = append(out, SubtractedFrame{Source: i, Path: a.Paths[i], Stats: subtracted[next].Stats()})
		next++
	}
	return out, nil
}
