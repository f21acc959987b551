package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"github.com/ironsheep/annotation-consensus/internal/consensus"
	"github.com/ironsheep/annotation-consensus/internal/imaging"
	"github.com/ironsheep/annotation-consensus/internal/model"
	"github.com/ironsheep/annotation-consensus/internal/raster"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "consensus_clicks").
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
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing arguments for %s", name)
	}

	switch name {
	case "consensus_clicks":
		return s.handleClicks(args)
	case "consensus_polygons":
		return s.handlePolygons(args)
	case "consensus_threshold":
		return s.handleThreshold(args)
	case "consensus_render":
		return s.handleRender(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// maxGridFactor bounds per-call grid overrides to this multiple of the
// configured grid on each axis.
const maxGridFactor = 4

// space returns the grid for a call, falling back to the configured size.
func (s *Server) space(width, height int) (*raster.Space, error) {
	if width == 0 {
		width = s.cfg.Width
	}
	if height == 0 {
		height = s.cfg.Height
	}
	maxW, maxH := maxGridFactor*s.cfg.Width, maxGridFactor*s.cfg.Height
	if width > maxW || height > maxH {
		return nil, fmt.Errorf("grid %dx%d exceeds the %dx%d limit", width, height, maxW, maxH)
	}
	return raster.NewSpace(width, height)
}

// === Consensus Handlers ===

type clicksArgs struct {
	Image     *model.Image `json:"image"`
	Sigma     *float64     `json:"sigma"`
	Threshold *float64     `json:"threshold"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
}

type clicksToolResult struct {
	Result    *model.ClickResult `json:"result"`
	Threshold float64            `json:"threshold"`
	Maxima    int                `json:"maxima"`
}

func (s *Server) handleClicks(args json.RawMessage) (interface{}, error) {
	var a clicksArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Image == nil {
		return nil, fmt.Errorf("image is required")
	}

	opts := s.cfg.ClickOptions()
	if a.Sigma != nil {
		opts.Sigma = *a.Sigma
	}
	if a.Threshold != nil {
		opts.Threshold = *a.Threshold
	}
	space, err := s.space(a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	engine, err := consensus.NewClickEngine(space, opts)
	if err != nil {
		return nil, err
	}

	analysis, err := engine.Analyze(a.Image)
	if err != nil {
		return nil, err
	}
	return &clicksToolResult{
		Result:    analysis.Result,
		Threshold: analysis.Threshold,
		Maxima:    len(analysis.Maxima),
	}, nil
}

type polygonsArgs struct {
	Image     *model.Image `json:"image"`
	Threshold *float64     `json:"threshold"`
	MinArea   *float64     `json:"min_area"`
	Window    *int         `json:"window"`
	Tolerance *float64     `json:"tolerance"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
}

type polygonsToolResult struct {
	Result     *model.SurfaceResult `json:"result"`
	Annotators int                  `json:"annotators"`
	Threshold  float64              `json:"threshold"`
	MaskPixels int                  `json:"mask_pixels"`
}

func (s *Server) handlePolygons(args json.RawMessage) (interface{}, error) {
	var a polygonsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Image == nil {
		return nil, fmt.Errorf("image is required")
	}

	opts := s.cfg.RegionOptions()
	if a.Threshold != nil {
		opts.Threshold = *a.Threshold
	}
	if a.MinArea != nil {
		opts.MinArea = *a.MinArea
	}
	if a.Window != nil {
		opts.Window = *a.Window
	}
	if a.Tolerance != nil {
		opts.Tolerance = *a.Tolerance
	}
	space, err := s.space(a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	engine, err := consensus.NewRegionEngine(space, opts)
	if err != nil {
		return nil, err
	}

	analysis, err := engine.Analyze(a.Image)
	if err != nil {
		return nil, err
	}
	return &polygonsToolResult{
		Result:     analysis.Result,
		Annotators: analysis.Annotators,
		Threshold:  analysis.Threshold,
		MaskPixels: analysis.Mask.Count(),
	}, nil
}

type thresholdArgs struct {
	Threshold  float64 `json:"threshold"`
	Annotators int     `json:"annotators"`
}

func (s *Server) handleThreshold(args json.RawMessage) (interface{}, error) {
	var a thresholdArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Threshold < 0 {
		return nil, fmt.Errorf("threshold must be non-negative, got %v", a.Threshold)
	}
	if a.Annotators < 0 {
		return nil, fmt.Errorf("annotators must be non-negative, got %d", a.Annotators)
	}
	return map[string]interface{}{
		"threshold": consensus.ResolveThreshold(a.Threshold, a.Annotators),
	}, nil
}

type renderArgs struct {
	Image      *model.Image `json:"image"`
	Phase      model.Phase  `json:"phase"`
	ImageType  string       `json:"image_type"`
	SourcePath string       `json:"source_path"`
	Fetch      bool         `json:"fetch"`
}

type renderToolResult struct {
	ID model.ID `json:"id"`
	*imaging.EncodedImage
}

func (s *Server) handleRender(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Image == nil {
		return nil, fmt.Errorf("image is required")
	}
	if a.Phase == "" {
		a.Phase = model.PhaseClick
		if len(a.Image.Polygons) > 0 {
			a.Phase = model.PhaseSurface
		}
	}
	if a.ImageType == "" {
		a.ImageType = string(imaging.SurfaceThreshold)
	}

	var bg image.Image
	switch {
	case a.SourcePath != "":
		img, err := s.cache.Load(a.SourcePath)
		if err != nil {
			return nil, err
		}
		bg = img
	case a.Fetch:
		bg = s.renderer.Source(ctx, s.fetcher, a.Phase, a.Image.ID)
	}

	space, err := s.space(0, 0)
	if err != nil {
		return nil, err
	}

	var out image.Image
	switch a.Phase {
	case model.PhaseClick:
		engine, err := consensus.NewClickEngine(space, s.cfg.ClickOptions())
		if err != nil {
			return nil, err
		}
		analysis, err := engine.Analyze(a.Image)
		if err != nil {
			return nil, err
		}
		out = s.renderer.Clicks(bg, a.Image, analysis)
	case model.PhaseSurface:
		kind, err := imaging.ParseSurfaceKind(a.ImageType)
		if err != nil {
			return nil, err
		}
		engine, err := consensus.NewRegionEngine(space, s.cfg.RegionOptions())
		if err != nil {
			return nil, err
		}
		analysis, err := engine.Analyze(a.Image)
		if err != nil {
			return nil, err
		}
		if out, err = s.renderer.Surfaces(bg, a.Image.ID, analysis, kind); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown phase %q (want %q or %q)", a.Phase, model.PhaseClick, model.PhaseSurface)
	}

	encoded, err := imaging.Encode(out)
	if err != nil {
		return nil, err
	}
	return &renderToolResult{ID: a.Image.ID, EncodedImage: encoded}, nil
}
