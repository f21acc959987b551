package model

import (
	"errors"
	"fmt"
)

// ErrInvalidAnnotation marks input that cannot be processed: polygons with
// fewer than three points, coordinates outside the grid, polygons without
// an annotator.
var ErrInvalidAnnotation = errors.New("invalid annotation")

// InvalidAnnotationError reports which image was malformed and why.
// It matches ErrInvalidAnnotation under errors.Is.
type InvalidAnnotationError struct {
	ImageID ID
	Reason  string
}

func (e *InvalidAnnotationError) Error() string {
	return fmt.Sprintf("image %s: %v: %s", e.ImageID, ErrInvalidAnnotation, e.Reason)
}

func (e *InvalidAnnotationError) Unwrap() error {
	return ErrInvalidAnnotation
}

func invalid(id ID, format string, args ...interface{}) error {
	return &InvalidAnnotationError{ImageID: id, Reason: fmt.Sprintf(format, args...)}
}

// ValidateClicks checks every click lies on a width x height grid.
func (img *Image) ValidateClicks(width, height int) error {
	for i, c := range img.Clicks {
		if c.X < 0 || c.X >= width || c.Y < 0 || c.Y >= height {
			return invalid(img.ID, "click %d at (%d,%d) outside %dx%d grid", i, c.X, c.Y, width, height)
		}
	}
	return nil
}

// ValidatePolygons checks every polygon has at least three points on a
// width x height grid and names its annotator.
func (img *Image) ValidatePolygons(width, height int) error {
	for i, poly := range img.Polygons {
		if len(poly.Points) < 3 {
			return invalid(img.ID, "polygon %d has %d points, need at least 3", i, len(poly.Points))
		}
		if poly.Action == nil {
			return invalid(img.ID, "polygon %d has no action", i)
		}
		for j, p := range poly.Points {
			if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
				return invalid(img.ID, "polygon %d point %d at (%d,%d) outside %dx%d grid", i, j, p.X, p.Y, width, height)
			}
		}
	}
	return nil
}
