package consensus

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"github.com/ironsheep/annotation-consensus/internal/model"
	"github.com/ironsheep/annotation-consensus/internal/raster"
)

// Region engine defaults.
const (
	DefaultRegionThreshold = 0.45
	DefaultMinArea         = 100.0
	DefaultWindow          = 3
	DefaultTolerance       = 0.01
)

// RegionOptions configures a RegionEngine.
type RegionOptions struct {
	// Threshold is the minimum smoothed vote, absolute when >= 1 and a
	// fraction of the distinct annotators otherwise.
	Threshold float64

	// MinArea drops traced regions smaller than this many square pixels.
	MinArea float64

	// Window is the side of the box filter applied to the vote field.
	Window int

	// Tolerance is the simplification tolerance as a fraction of each
	// contour's perimeter.
	Tolerance float64
}

// DefaultRegionOptions returns the options annotations were tuned with.
func DefaultRegionOptions() RegionOptions {
	return RegionOptions{
		Threshold: DefaultRegionThreshold,
		MinArea:   DefaultMinArea,
		Window:    DefaultWindow,
		Tolerance: DefaultTolerance,
	}
}

// Validate reports whether the options can drive an engine.
func (o RegionOptions) Validate() error {
	switch {
	case !(o.Threshold >= 0):
		return fmt.Errorf("%w: region threshold must not be negative, got %v", ErrInvalidOptions, o.Threshold)
	case !(o.MinArea >= 0):
		return fmt.Errorf("%w: minimum area must not be negative, got %v", ErrInvalidOptions, o.MinArea)
	case o.Window < 1 || o.Window%2 == 0:
		return fmt.Errorf("%w: smoothing window must be odd and positive, got %d", ErrInvalidOptions, o.Window)
	case !(o.Tolerance >= 0):
		return fmt.Errorf("%w: tolerance must not be negative, got %v", ErrInvalidOptions, o.Tolerance)
	}
	return nil
}

// RegionEngine finds consensus outlines in polygon annotations.
type RegionEngine struct {
	space *raster.Space
	opts  RegionOptions
}

// NewRegionEngine returns an engine over space.
func NewRegionEngine(space *raster.Space, opts RegionOptions) (*RegionEngine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &RegionEngine{space: space, opts: opts}, nil
}

// Options returns the engine configuration.
func (e *RegionEngine) Options() RegionOptions { return e.opts }

// RegionAnalysis exposes the intermediate products of one region run, for
// rendering.
type RegionAnalysis struct {
	// Votes counts the polygons covering each pixel.
	Votes *raster.Field

	// Smoothed is Votes after the box filter; scores are read from it.
	Smoothed *raster.Field

	// Annotators is the number of distinct actors among the polygons.
	Annotators int

	// Threshold is the resolved absolute threshold.
	Threshold float64

	// Mask is Smoothed binarized at Threshold.
	Mask *raster.Mask

	// Result is the consensus, nil when no region survived.
	Result *model.SurfaceResult
}

// Process returns the consensus polygons of img, or nil when none survive.
func (e *RegionEngine) Process(img *model.Image) (*model.SurfaceResult, error) {
	if len(img.Polygons) == 0 {
		return nil, nil
	}
	a, err := e.Analyze(img)
	if err != nil {
		return nil, err
	}
	return a.Result, nil
}

// Analyze runs region consensus on img and keeps the intermediate fields.
// An image without polygons yields empty fields and a nil result.
//
// # Algorithm
//
//  1. Every polygon interior adds one vote per pixel (even-odd scanline fill).
//  2. The vote field is smoothed with a Window×Window box mean.
//  3. The smoothed field is binarized at the resolved threshold, with the
//     distinct actor count as annotator count.
//  4. Outer boundaries of the 8-connected regions are traced; holes are
//     ignored.
//  5. Boundaries enclosing less than MinArea are dropped.
//  6. Survivors are simplified with Douglas-Peucker at Tolerance × perimeter.
//  7. Each simplified outline is scored with the mean smoothed vote inside
//     it. The reported area is that of the traced boundary.
func (e *RegionEngine) Analyze(img *model.Image) (*RegionAnalysis, error) {
	if len(img.Polygons) == 0 {
		return &RegionAnalysis{
			Votes:    e.space.NewField(),
			Smoothed: e.space.NewField(),
			Mask:     e.space.NewMask(),
		}, nil
	}
	if err := img.ValidatePolygons(e.space.Width(), e.space.Height()); err != nil {
		return nil, err
	}

	votes := e.space.NewField()
	for _, poly := range img.Polygons {
		e.space.Rasterize(toRing(poly.Points), func(x, y int) {
			votes.Add(x, y, 1)
		})
	}

	smoothed, err := votes.BoxMean(e.opts.Window)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	annotators := img.DistinctActors()
	threshold := ResolveThreshold(e.opts.Threshold, annotators)
	mask := smoothed.Threshold(threshold)

	polygons := make([]model.Polygon, 0)
	for _, contour := range mask.ExternalContours() {
		area := raster.Area(contour)
		if area < e.opts.MinArea {
			continue
		}

		outline := e.simplify(contour)
		if len(outline) < 3 {
			continue
		}

		score, count := e.space.MeanInside(smoothed, outline)
		if count == 0 {
			continue
		}

		points := e.toPoints(outline)
		if len(points) < 3 {
			continue
		}

		polygons = append(polygons, model.Polygon{
			Points: points,
			Score:  model.Float64(score),
			Area:   model.Float64(area),
		})
	}

	a := &RegionAnalysis{
		Votes:      votes,
		Smoothed:   smoothed,
		Annotators: annotators,
		Threshold:  threshold,
		Mask:       mask,
	}
	if len(polygons) > 0 {
		a.Result = &model.SurfaceResult{ID: img.ID, Polygons: polygons}
	}
	return a, nil
}

// simplify reduces a closed contour with Douglas-Peucker and returns the
// open vertex list.
func (e *RegionEngine) simplify(contour orb.Ring) orb.Ring {
	tolerance := e.opts.Tolerance * raster.Perimeter(contour)

	ls := orb.LineString(raster.Close(contour))
	simplified, ok := simplify.DouglasPeucker(tolerance).Simplify(ls.Clone()).(orb.LineString)
	if !ok {
		return nil
	}
	return raster.Open(orb.Ring(simplified))
}

// toPoints rounds outline vertices onto grid pixels. Contours run along
// pixel corners, so regions touching the right or bottom edge have corners
// at x = W or y = H; those are pulled back onto the last column or row.
// Consecutive duplicates left by the clamp are dropped.
func (e *RegionEngine) toPoints(outline orb.Ring) []model.Point {
	maxX, maxY := e.space.Width()-1, e.space.Height()-1
	points := make([]model.Point, 0, len(outline))
	for _, v := range outline {
		p := model.Point{
			X: min(max(int(math.Round(v[0])), 0), maxX),
			Y: min(max(int(math.Round(v[1])), 0), maxY),
		}
		if n := len(points); n > 0 && points[n-1] == p {
			continue
		}
		points = append(points, p)
	}
	if n := len(points); n > 1 && points[0] == points[n-1] {
		points = points[:n-1]
	}
	return points
}

func toRing(points []model.Point) orb.Ring {
	ring := make(orb.Ring, len(points))
	for i, p := range points {
		ring[i] = orb.Point{float64(p.X), float64(p.Y)}
	}
	return ring
}
