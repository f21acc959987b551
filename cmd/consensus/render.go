package main

import (
	"context"

	"github.com/ironsheep/annotation-consensus/internal/batch"
	"github.com/ironsheep/annotation-consensus/internal/consensus"
	"github.com/ironsheep/annotation-consensus/internal/imaging"
	"github.com/ironsheep/annotation-consensus/internal/model"
)

// renderStage writes one PNG per processed image next to the consensus.
type renderStage struct {
	renderer *imaging.Renderer
	fetcher  *imaging.Fetcher // nil renders on black
	dir      string
	kind     imaging.SurfaceKind
}

func (r *renderStage) clicks(e *consensus.ClickEngine) batch.Func {
	return func(ctx context.Context, img *model.Image) (model.Record, error) {
		a, err := e.Analyze(img)
		if err != nil {
			return nil, err
		}
		bg := r.renderer.Source(ctx, r.fetcher, model.PhaseClick, img.ID)
		if _, err := imaging.Save(r.dir, img.ID, r.renderer.Clicks(bg, img, a)); err != nil {
			return nil, err
		}
		if a.Result == nil {
			return nil, nil
		}
		return a.Result, nil
	}
}

func (r *renderStage) regions(e *consensus.RegionEngine) batch.Func {
	return func(ctx context.Context, img *model.Image) (model.Record, error) {
		// Images without polygons have nothing to draw.
		if len(img.Polygons) == 0 {
			return nil, nil
		}
		a, err := e.Analyze(img)
		if err != nil {
			return nil, err
		}
		bg := r.renderer.Source(ctx, r.fetcher, model.PhaseSurface, img.ID)
		out, err := r.renderer.Surfaces(bg, img.ID, a, r.kind)
		if err != nil {
			return nil, err
		}
		if _, err := imaging.Save(r.dir, img.ID, out); err != nil {
			return nil, err
		}
		if a.Result == nil {
			return nil, nil
		}
		return a.Result, nil
	}
}
