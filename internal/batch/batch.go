package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/annotation-consensus/internal/consensus"
	"github.com/ironsheep/annotation-consensus/internal/model"
)

// Func computes the consensus of one image. A nil record means nothing
// survived.
type Func func(ctx context.Context, img *model.Image) (model.Record, error)

// Clicks adapts a click engine to a Func.
func Clicks(e *consensus.ClickEngine) Func {
	return func(_ context.Context, img *model.Image) (model.Record, error) {
		res, err := e.Process(img)
		if err != nil || res == nil {
			return nil, err
		}
		return res, nil
	}
}

// Regions adapts a region engine to a Func.
func Regions(e *consensus.RegionEngine) Func {
	return func(_ context.Context, img *model.Image) (model.Record, error) {
		res, err := e.Process(img)
		if err != nil || res == nil {
			return nil, err
		}
		return res, nil
	}
}

// Outcome is the per-image result of a run. Exactly one of Result and Err
// is meaningful: a nil Result with a nil Err means no consensus.
type Outcome struct {
	Index   int
	ImageID model.ID
	Result  model.Record
	Err     error
	Skipped bool
}

// Runner drives a Func over many images.
type Runner struct {
	// Workers bounds the images processed at once. Values below 2 process
	// images sequentially.
	Workers int

	// IDs restricts the run to these image ids when non-empty.
	IDs []model.ID
}

// Run applies fn to every image and returns one Outcome per image, in input
// order, with a Summary of the run.
//
// A failing image never stops the run: its error is recorded in its Outcome
// and logged. Cancelling ctx stops dispatching; images not yet started are
// reported with ctx's error.
func (r Runner) Run(ctx context.Context, images []*model.Image, fn Func) ([]Outcome, Summary) {
	start := time.Now()
	sum := Summary{RunID: uuid.NewString(), Total: len(images)}
	log := slog.With("run_id", sum.RunID)

	log.Info("batch started",
		"images", humanize.Comma(int64(len(images))),
		"workers", r.workers())

	keep := r.filter()
	outcomes := make([]Outcome, len(images))

	var mu sync.Mutex
	record := func(o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[o.Index] = o
		sum.add(o)
	}

	process := func(i int, img *model.Image) {
		o := Outcome{Index: i, ImageID: img.ID}
		if err := ctx.Err(); err != nil {
			o.Err = err
			record(o)
			return
		}
		o.Result, o.Err = fn(ctx, img)
		if o.Err != nil {
			log.Error("image failed", "image_id", img.ID, "error", o.Err)
		} else if o.Result == nil {
			log.Debug("no consensus", "image_id", img.ID)
		}
		record(o)
	}

	g := new(errgroup.Group)
	g.SetLimit(r.workers())
	for i, img := range images {
		if keep != nil {
			if _, ok := keep[img.ID]; !ok {
				record(Outcome{Index: i, ImageID: img.ID, Skipped: true})
				continue
			}
		}
		if r.workers() == 1 {
			process(i, img)
			continue
		}
		i, img := i, img
		g.Go(func() error {
			process(i, img)
			return nil
		})
	}
	_ = g.Wait()

	sum.Elapsed = time.Since(start)
	log.Info("batch finished",
		"accepted", humanize.Comma(int64(sum.Accepted)),
		"absent", humanize.Comma(int64(sum.Absent)),
		"failed", humanize.Comma(int64(sum.Failed)),
		"skipped", humanize.Comma(int64(sum.Skipped)),
		"elapsed", sum.Elapsed.Round(time.Millisecond).String())

	return outcomes, sum
}

func (r Runner) workers() int {
	if r.Workers < 1 {
		return 1
	}
	return r.Workers
}

func (r Runner) filter() map[model.ID]struct{} {
	if len(r.IDs) == 0 {
		return nil
	}
	keep := make(map[model.ID]struct{}, len(r.IDs))
	for _, id := range r.IDs {
		keep[id] = struct{}{}
	}
	return keep
}

// Results returns the consensus records of outcomes, in input order.
func Results(outcomes []Outcome) []model.Record {
	records := make([]model.Record, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err == nil && o.Result != nil {
			records = append(records, o.Result)
		}
	}
	return records
}

// Failures returns the outcomes that ended in an error.
func Failures(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}
