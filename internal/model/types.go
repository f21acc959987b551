package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies an image or an annotator.
//
// Upstream exports write identifiers either as JSON numbers or as strings;
// both decode into the same textual form.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	// Integral floats such as 42.0 come out of some exporters.
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		*id = ID(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

// Float64 returns a pointer to v, for optional score and area fields.
func Float64(v float64) *float64 {
	return &v
}

// Point is a location in image pixel space with an optional score.
//
// Scores are only set on consensus output.
type Point struct {
	X     int      `json:"x"`
	Y     int      `json:"y"`
	Score *float64 `json:"score,omitempty"`
}

// Action records the provenance of one annotation event.
type Action struct {
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	Date    string `json:"date,omitempty"`
	ActorID ID     `json:"actorId"`
}

// Click is a point annotation together with the action that produced it.
type Click struct {
	X      int      `json:"x"`
	Y      int      `json:"y"`
	Score  *float64 `json:"score,omitempty"`
	Action *Action  `json:"action,omitempty"`
}

// Point returns the click location without its provenance.
func (c Click) Point() Point {
	return Point{X: c.X, Y: c.Y, Score: c.Score}
}

// Polygon is a closed outline. Input polygons carry an Action; consensus
// polygons carry Score and Area instead.
type Polygon struct {
	Points []Point  `json:"points"`
	Action *Action  `json:"action,omitempty"`
	Score  *float64 `json:"score,omitempty"`
	Area   *float64 `json:"area,omitempty"`
}

// Image holds every annotation collected for one source image.
type Image struct {
	ID         ID     `json:"id"`
	City       string `json:"city,omitempty"`
	Department string `json:"department,omitempty"`
	Region     string `json:"region,omitempty"`
	InstallID  ID     `json:"install_id,omitempty"`

	Clicks []Click `json:"clicks"`

	// NotPVActions are answers stating that the image shows no installation.
	NotPVActions []Action `json:"notPvActions,omitempty"`

	Polygons []Polygon `json:"polygons"`
}

// DistinctActors returns the number of distinct actor ids among the image
// polygons. Polygons without an action are not counted.
func (img *Image) DistinctActors() int {
	actors := make(map[ID]struct{}, len(img.Polygons))
	for _, poly := range img.Polygons {
		if poly.Action == nil {
			continue
		}
		actors[poly.Action.ActorID] = struct{}{}
	}
	return len(actors)
}

// ClickResult holds the consensus points of one image.
type ClickResult struct {
	ID     ID      `json:"id"`
	Clicks []Point `json:"clicks"`
}

// SurfaceResult holds the consensus polygons of one image.
type SurfaceResult struct {
	ID       ID        `json:"id"`
	Polygons []Polygon `json:"polygons"`
}

// Campaign names the imagery source an annotation campaign ran on.
type Campaign string

const (
	CampaignGoogle Campaign = "google"
	CampaignIGN    Campaign = "ign"
)

// ParseCampaign validates a campaign name.
func ParseCampaign(s string) (Campaign, error) {
	switch Campaign(s) {
	case CampaignGoogle, CampaignIGN:
		return Campaign(s), nil
	default:
		return "", fmt.Errorf("unknown campaign %q (want %q or %q)", s, CampaignGoogle, CampaignIGN)
	}
}

// Phase names the annotation task: clicking installations or outlining them.
type Phase string

const (
	PhaseClick   Phase = "click"
	PhaseSurface Phase = "surf"
)
