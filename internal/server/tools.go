package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// imageSchema describes an annotation image argument.
var imageSchema = map[string]interface{}{
	"type":        "object",
	"description": "Annotation image: {\"id\", \"clicks\": [{\"x\", \"y\", \"action\"}], \"polygons\": [{\"points\": [{\"x\", \"y\"}], \"action\": {\"actorId\"}}]}",
}

func gridProperties(props map[string]interface{}) map[string]interface{} {
	props["width"] = map[string]interface{}{
		"type":        "integer",
		"description": "Grid width in pixels, at most four times the configured width. Defaults to the server configuration (400)",
	}
	props["height"] = map[string]interface{}{
		"type":        "integer",
		"description": "Grid height in pixels, at most four times the configured height. Defaults to the server configuration (400)",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "consensus_clicks",
			Description: "Merge the clicks of one image into consensus points. Each click adds a Gaussian kernel with peak 1; local maxima of the summed density that reach the threshold are returned with their density as score. Returns a null result when no point survives.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": gridProperties(map[string]interface{}{
					"image": imageSchema,
					"sigma": map[string]interface{}{
						"type":        "number",
						"description": "Kernel bandwidth in pixels (default 25)",
					},
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Absolute density when >= 1, otherwise a fraction of the click count (default 2.0)",
					},
				}),
				"required": []string{"image"},
			},
		},
		{
			Name:        "consensus_polygons",
			Description: "Merge the polygons of one image into consensus regions. Polygon interiors are voted, smoothed and thresholded; outer boundaries above the minimum area are simplified and scored with their mean vote. Returns a null result when no region survives.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": gridProperties(map[string]interface{}{
					"image": imageSchema,
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Absolute vote level when >= 1, otherwise a fraction of the distinct annotators (default 0.45)",
					},
					"min_area": map[string]interface{}{
						"type":        "number",
						"description": "Minimum region area in square pixels (default 100)",
					},
					"window": map[string]interface{}{
						"type":        "integer",
						"description": "Odd box smoothing window (default 3)",
					},
					"tolerance": map[string]interface{}{
						"type":        "number",
						"description": "Simplification tolerance as a fraction of the perimeter (default 0.01)",
					},
				}),
				"required": []string{"image"},
			},
		},
		{
			Name:        "consensus_threshold",
			Description: "Resolve a configured threshold into an absolute one: values >= 1 are absolute, values below 1 are multiplied by the annotator count.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Configured threshold",
					},
					"annotators": map[string]interface{}{
						"type":        "integer",
						"description": "Number of annotators",
					},
				},
				"required": []string{"threshold", "annotators"},
			},
		},
		{
			Name:        "consensus_render",
			Description: "Run consensus on one image with the server settings and return a PNG render as base64. Click renders show the density heat map, the clicks and the kept maxima; surface renders show the mask, the polygons or both.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image": imageSchema,
					"phase": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"click", "surf"},
						"description": "Annotation phase to render. Defaults to surf when the image has polygons, click otherwise",
					},
					"image_type": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"threshold", "polygon", "all"},
						"description": "Surface render kind (default threshold)",
						"default":     "threshold",
					},
					"source_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional local source image drawn under the overlay",
					},
					"fetch": map[string]interface{}{
						"type":        "boolean",
						"description": "Download the source image from the imagery server when no source_path is given",
						"default":     false,
					},
				},
				"required": []string{"image"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
