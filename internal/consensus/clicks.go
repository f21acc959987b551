package consensus

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/annotation-consensus/internal/model"
	"github.com/ironsheep/annotation-consensus/internal/raster"
)

// Click engine defaults.
const (
	DefaultSigma          = 25.0
	DefaultClickThreshold = 2.0
)

// ClickOptions configures a ClickEngine.
type ClickOptions struct {
	// Sigma is the Gaussian kernel bandwidth in pixels.
	Sigma float64

	// Threshold is the minimum cluster score, absolute when >= 1 and a
	// fraction of the click count otherwise.
	Threshold float64
}

// DefaultClickOptions returns the options annotations were tuned with.
func DefaultClickOptions() ClickOptions {
	return ClickOptions{Sigma: DefaultSigma, Threshold: DefaultClickThreshold}
}

// Validate reports whether the options can drive an engine.
func (o ClickOptions) Validate() error {
	if !(o.Sigma > 0) || math.IsInf(o.Sigma, 0) {
		return fmt.Errorf("%w: sigma must be positive, got %v", ErrInvalidOptions, o.Sigma)
	}
	if !(o.Threshold >= 0) {
		return fmt.Errorf("%w: click threshold must not be negative, got %v", ErrInvalidOptions, o.Threshold)
	}
	return nil
}

// ClickEngine finds consensus points in click annotations.
type ClickEngine struct {
	space *raster.Space
	opts  ClickOptions
}

// NewClickEngine returns an engine over space.
func NewClickEngine(space *raster.Space, opts ClickOptions) (*ClickEngine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &ClickEngine{space: space, opts: opts}, nil
}

// Options returns the engine configuration.
func (e *ClickEngine) Options() ClickOptions { return e.opts }

// ClickAnalysis exposes the intermediate products of one click run, for
// rendering.
type ClickAnalysis struct {
	// Density is the accumulated kernel field.
	Density *raster.Field

	// Threshold is the resolved absolute threshold.
	Threshold float64

	// Maxima lists every local maximum of Density, kept or not.
	Maxima []image.Point

	// Result is the consensus, nil when no maximum reached Threshold.
	Result *model.ClickResult
}

// Process returns the consensus points of img, or nil when none survive.
func (e *ClickEngine) Process(img *model.Image) (*model.ClickResult, error) {
	a, err := e.Analyze(img)
	if err != nil {
		return nil, err
	}
	return a.Result, nil
}

// Analyze runs click consensus on img and keeps the intermediate field.
//
// # Algorithm
//
//  1. Each click adds exp(-0.5 * d² / σ²), scaled so its own peak is 1.
//     The kernel is separable, so it is built from one vector per axis and
//     accumulated as an outer product.
//  2. Local maxima of the density are found with an 8-neighbour scan.
//  3. Maxima whose density reaches the resolved threshold are kept, scored
//     with their density. The annotator count is the number of clicks.
func (e *ClickEngine) Analyze(img *model.Image) (*ClickAnalysis, error) {
	if err := img.ValidateClicks(e.space.Width(), e.space.Height()); err != nil {
		return nil, err
	}

	density := e.space.NewField()
	for _, c := range img.Clicks {
		e.addKernel(density, float64(c.X), float64(c.Y))
	}

	threshold := ResolveThreshold(e.opts.Threshold, len(img.Clicks))
	maxima := density.LocalMaxima(0)

	points := make([]model.Point, 0, len(maxima))
	for _, p := range maxima {
		score := density.At(p.X, p.Y)
		if score < threshold {
			continue
		}
		points = append(points, model.Point{X: p.X, Y: p.Y, Score: model.Float64(score)})
	}

	a := &ClickAnalysis{Density: density, Threshold: threshold, Maxima: maxima}
	if len(points) > 0 {
		a.Result = &model.ClickResult{ID: img.ID, Clicks: points}
	}
	return a, nil
}

// addKernel accumulates one normalised Gaussian centred on (cx, cy).
func (e *ClickEngine) addKernel(density *raster.Field, cx, cy float64) {
	gx := gaussian(e.space.MeshX(), cx, e.opts.Sigma)
	gy := gaussian(e.space.MeshY(), cy, e.opts.Sigma)

	peak := floats.Max(gx.RawVector().Data) * floats.Max(gy.RawVector().Data)
	if peak == 0 {
		return
	}
	density.AddOuter(1/peak, gy, gx)
}

func gaussian(mesh mat.Vector, centre, sigma float64) *mat.VecDense {
	n := mesh.Len()
	g := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		d := mesh.AtVec(i) - centre
		g.SetVec(i, math.Exp(-0.5*d*d/(sigma*sigma)))
	}
	return g
}
