package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/annotation-consensus/internal/model"
)

// callTool runs tools/call for name and returns the response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()
	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeContent unmarshals the text content of a successful tool response.
func decodeContent(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result: %v\n%s", err, text)
	}
}

func expectToolError(t *testing.T, resp *MCPResponse) {
	t.Helper()
	if resp.Error == nil {
		t.Fatal("Expected error response")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func clusterImage() map[string]interface{} {
	return map[string]interface{}{
		"id": "IMG_1",
		"clicks": []map[string]interface{}{
			{"x": 50, "y": 50, "action": map[string]interface{}{"actorId": 1}},
			{"x": 52, "y": 50, "action": map[string]interface{}{"actorId": 2}},
			{"x": 50, "y": 52, "action": map[string]interface{}{"actorId": 3}},
		},
	}
}

func squaresImage() map[string]interface{} {
	square := func(actor string) map[string]interface{} {
		return map[string]interface{}{
			"points": []map[string]int{{"x": 20, "y": 20}, {"x": 60, "y": 20}, {"x": 60, "y": 60}, {"x": 20, "y": 60}},
			"action": map[string]interface{}{"actorId": actor},
		}
	}
	return map[string]interface{}{
		"id":       "IMG_2",
		"polygons": []map[string]interface{}{square("alice"), square("bob")},
	}
}

type clicksResponse struct {
	Result    *model.ClickResult `json:"result"`
	Threshold float64            `json:"threshold"`
	Maxima    int                `json:"maxima"`
}

func TestHandleToolsCall_Clicks(t *testing.T) {
	s := newTestServer(t)

	var got clicksResponse
	decodeContent(t, callTool(t, s, "consensus_clicks", map[string]interface{}{"image": clusterImage()}), &got)

	if got.Result == nil || len(got.Result.Clicks) != 1 {
		t.Fatalf("expected one consensus point, got %+v", got.Result)
	}
	if got.Result.ID != "IMG_1" {
		t.Errorf("ID: got %s", got.Result.ID)
	}
	p := got.Result.Clicks[0]
	if p.X < 49 || p.X > 52 || p.Y < 49 || p.Y > 52 {
		t.Errorf("consensus point off the cluster: %+v", p)
	}
	if p.Score == nil || *p.Score <= 2 || *p.Score > 3 {
		t.Errorf("score: %v", p.Score)
	}
	if got.Threshold != 2 || got.Maxima != 1 {
		t.Errorf("threshold/maxima: %v/%d", got.Threshold, got.Maxima)
	}
}

func TestHandleToolsCall_Clicks_Overrides(t *testing.T) {
	s := newTestServer(t)

	var got clicksResponse
	decodeContent(t, callTool(t, s, "consensus_clicks", map[string]interface{}{
		"image":     clusterImage(),
		"threshold": 5,
	}), &got)
	if got.Result != nil {
		t.Errorf("threshold above the peak should yield a null result, got %+v", got.Result)
	}

	// A larger grid accepts clicks the default one would reject.
	img := clusterImage()
	img["clicks"] = []map[string]interface{}{{"x": 150, "y": 10}}
	decodeContent(t, callTool(t, s, "consensus_clicks", map[string]interface{}{
		"image":     img,
		"threshold": 1,
		"width":     200,
	}), &got)
	if got.Result == nil || got.Result.Clicks[0].X != 150 {
		t.Errorf("expected the lone click back, got %+v", got.Result)
	}
}

func TestHandleToolsCall_Clicks_Invalid(t *testing.T) {
	s := newTestServer(t)

	img := clusterImage()
	img["clicks"] = []map[string]interface{}{{"x": 150, "y": 10}}
	resp := callTool(t, s, "consensus_clicks", map[string]interface{}{"image": img})
	expectToolError(t, resp)
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "invalid annotation") {
		t.Errorf("error should name the invalid annotation: %v", resp.Error.Data)
	}

	expectToolError(t, callTool(t, s, "consensus_clicks", map[string]interface{}{"sigma": 3}))
	expectToolError(t, callTool(t, s, "consensus_clicks", map[string]interface{}{"image": clusterImage(), "sigma": 0}))
}

func TestHandleToolsCall_GridLimit(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		tool string
		args map[string]interface{}
	}{
		{"consensus_clicks", map[string]interface{}{"image": clusterImage(), "width": 401}},
		{"consensus_clicks", map[string]interface{}{"image": clusterImage(), "height": 1000000}},
		{"consensus_polygons", map[string]interface{}{"image": squaresImage(), "width": 100000, "height": 100000}},
	}
	for _, tt := range tests {
		resp := callTool(t, s, tt.tool, tt.args)
		expectToolError(t, resp)
		if data, _ := resp.Error.Data.(string); !strings.Contains(data, "limit") {
			t.Errorf("%s %v: error should name the grid limit: %v", tt.tool, tt.args, resp.Error.Data)
		}
	}

	// The limit itself is accepted.
	var got clicksResponse
	decodeContent(t, callTool(t, s, "consensus_clicks", map[string]interface{}{
		"image": clusterImage(),
		"width": 400,
	}), &got)
}

func TestHandleToolsCall_Polygons(t *testing.T) {
	s := newTestServer(t)

	var got struct {
		Result     *model.SurfaceResult `json:"result"`
		Annotators int                  `json:"annotators"`
		Threshold  float64              `json:"threshold"`
		MaskPixels int                  `json:"mask_pixels"`
	}
	decodeContent(t, callTool(t, s, "consensus_polygons", map[string]interface{}{"image": squaresImage()}), &got)

	if got.Annotators != 2 || got.Threshold != 0.9 {
		t.Errorf("annotators/threshold: %d/%v", got.Annotators, got.Threshold)
	}
	if got.Result == nil || len(got.Result.Polygons) != 1 {
		t.Fatalf("expected one consensus polygon, got %+v", got.Result)
	}
	poly := got.Result.Polygons[0]
	if poly.Score == nil || *poly.Score <= 1 || *poly.Score > 2 {
		t.Errorf("score: %v", poly.Score)
	}
	if poly.Area == nil || *poly.Area < 1500 || *poly.Area > 1600 {
		t.Errorf("area: %v", poly.Area)
	}
	if got.MaskPixels == 0 {
		t.Error("mask should not be empty")
	}

	// An area floor above the region drops it.
	decodeContent(t, callTool(t, s, "consensus_polygons", map[string]interface{}{
		"image":    squaresImage(),
		"min_area": 5000,
	}), &got)
	if got.Result != nil {
		t.Errorf("expected a null result, got %+v", got.Result)
	}

	expectToolError(t, callTool(t, s, "consensus_polygons", map[string]interface{}{"image": squaresImage(), "window": 2}))
}

func TestHandleToolsCall_Threshold(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		threshold  float64
		annotators int
		want       float64
	}{
		{0.5, 4, 2},
		{3, 10, 3},
		{0.45, 0, 0},
	}
	for _, tt := range tests {
		var got struct {
			Threshold float64 `json:"threshold"`
		}
		decodeContent(t, callTool(t, s, "consensus_threshold", map[string]interface{}{
			"threshold":  tt.threshold,
			"annotators": tt.annotators,
		}), &got)
		if got.Threshold != tt.want {
			t.Errorf("threshold(%v, %d) = %v, want %v", tt.threshold, tt.annotators, got.Threshold, tt.want)
		}
	}

	expectToolError(t, callTool(t, s, "consensus_threshold", map[string]interface{}{"threshold": -1, "annotators": 3}))
	expectToolError(t, callTool(t, s, "consensus_threshold", map[string]interface{}{"threshold": 0.5, "annotators": -3}))
}

type renderResponse struct {
	ID          model.ID `json:"id"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	ImageBase64 string   `json:"image_base64"`
	MimeType    string   `json:"mime_type"`
}

func decodePNG(t *testing.T, r renderResponse) image.Image {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(r.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	return img
}

func TestHandleToolsCall_Render(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		id   model.ID
	}{
		{"clicks", map[string]interface{}{"image": clusterImage()}, "IMG_1"},
		{"surfaces default", map[string]interface{}{"image": squaresImage()}, "IMG_2"},
		{"threshold", map[string]interface{}{"image": squaresImage(), "image_type": "threshold"}, "IMG_2"},
		{"polygon", map[string]interface{}{"image": squaresImage(), "image_type": "polygon"}, "IMG_2"},
		{"surface phase without polygons", map[string]interface{}{"image": clusterImage(), "phase": "surf"}, "IMG_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got renderResponse
			decodeContent(t, callTool(t, s, "consensus_render", tt.args), &got)
			if got.ID != tt.id || got.MimeType != "image/png" {
				t.Errorf("unexpected result: id=%s mime=%s", got.ID, got.MimeType)
			}
			if got.Width != 100 || got.Height != 100 {
				t.Errorf("dimensions: got %dx%d, want 100x100", got.Width, got.Height)
			}
			if b := decodePNG(t, got).Bounds(); b.Dx() != 100 {
				t.Errorf("decoded width: got %d", b.Dx())
			}
		})
	}
}

func TestHandleToolsCall_Render_DefaultImageType(t *testing.T) {
	s := newTestServer(t)

	render := func(args map[string]interface{}) string {
		t.Helper()
		var got renderResponse
		decodeContent(t, callTool(t, s, "consensus_render", args), &got)
		return got.ImageBase64
	}
	def := render(map[string]interface{}{"image": squaresImage()})
	if def != render(map[string]interface{}{"image": squaresImage(), "image_type": "threshold"}) {
		t.Error("surface renders should default to the threshold mask")
	}
	if def == render(map[string]interface{}{"image": squaresImage(), "image_type": "all"}) {
		t.Error("threshold and all renders should differ")
	}
}

func TestHandleToolsCall_Render_SourcePath(t *testing.T) {
	s := newTestServer(t)

	path := filepath.Join(t.TempDir(), "source.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 400, 400))); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	f.Close()

	var got renderResponse
	decodeContent(t, callTool(t, s, "consensus_render", map[string]interface{}{
		"image":       clusterImage(),
		"source_path": path,
	}), &got)
	if got.Width != 100 {
		t.Errorf("source should be resized onto the grid, got width %d", got.Width)
	}
	if s.cache.Len() != 1 {
		t.Errorf("source should be cached, got %d entries", s.cache.Len())
	}

	expectToolError(t, callTool(t, s, "consensus_render", map[string]interface{}{
		"image":       clusterImage(),
		"source_path": filepath.Join(t.TempDir(), "missing.png"),
	}))
}

func TestHandleToolsCall_Render_Invalid(t *testing.T) {
	s := newTestServer(t)

	expectToolError(t, callTool(t, s, "consensus_render", map[string]interface{}{"image": squaresImage(), "image_type": "heatmap"}))
	expectToolError(t, callTool(t, s, "consensus_render", map[string]interface{}{"image": squaresImage(), "phase": "review"}))
	expectToolError(t, callTool(t, s, "consensus_render", map[string]interface{}{"phase": "click"}))
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := newTestServer(t)
	resp := callTool(t, s, "image_crop", map[string]interface{}{"path": "/tmp/x.png"})
	expectToolError(t, resp)
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "unknown tool") {
		t.Errorf("error data: %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_MissingArguments(t *testing.T) {
	s := newTestServer(t)
	expectToolError(t, callTool(t, s, "consensus_clicks", nil))
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp == nil || resp.Error == nil {
		t.Fatal("Expected error response")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}
