package imaging

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/paulmach/orb"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/annotation-consensus/internal/consensus"
	"github.com/ironsheep/annotation-consensus/internal/model"
	"github.com/ironsheep/annotation-consensus/internal/raster"
)

// heatFloor is the density below which the click heat map stays transparent.
const heatFloor = 0.1

// SurfaceKind selects what a surface render shows.
type SurfaceKind string

const (
	// SurfaceThreshold shows the binarized vote mask.
	SurfaceThreshold SurfaceKind = "threshold"
	// SurfacePolygon fills each consensus polygon, coloured by score.
	SurfacePolygon SurfaceKind = "polygon"
	// SurfaceAll colours the vote level inside the mask and outlines the
	// consensus polygons.
	SurfaceAll SurfaceKind = "all"
)

// ParseSurfaceKind validates a surface render kind.
func ParseSurfaceKind(s string) (SurfaceKind, error) {
	switch SurfaceKind(s) {
	case SurfaceThreshold, SurfacePolygon, SurfaceAll:
		return SurfaceKind(s), nil
	default:
		return "", fmt.Errorf("unknown image type %q (want threshold, polygon or all)", s)
	}
}

// Renderer draws consensus analyses over their source imagery.
type Renderer struct {
	palette palette
	cache   *ImageCache
}

// NewRenderer parses style. A nil cache gets a fresh one.
func NewRenderer(style Style, cache *ImageCache) (*Renderer, error) {
	p, err := style.parse()
	if err != nil {
		return nil, err
	}
	if cache == nil {
		cache = NewImageCache()
	}
	return &Renderer{palette: p, cache: cache}, nil
}

// Source returns the source image of id for phase, or nil when it cannot be
// fetched or decoded. Renders fall back to a black background.
func (r *Renderer) Source(ctx context.Context, f *Fetcher, phase model.Phase, id model.ID) image.Image {
	if f == nil {
		return nil
	}
	path, err := f.Fetch(ctx, phase, id)
	if err != nil {
		slog.Warn("source image unavailable", "image_id", id, "phase", phase, "error", err)
		return nil
	}
	img, err := r.cache.Load(path)
	if err != nil {
		slog.Warn("source image unreadable", "image_id", id, "path", path, "error", err)
		return nil
	}
	return img
}

// Clicks renders the density of a click analysis: the heat map over the
// source image, every input click as a red dot, kept maxima as crosses and
// the best maximum in green.
func (r *Renderer) Clicks(bg image.Image, img *model.Image, a *consensus.ClickAnalysis) *image.NRGBA {
	w, h := a.Density.Width(), a.Density.Height()
	out := r.canvas(bg, w, h)

	if peak := a.Density.Max(); peak > 0 {
		layer := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := a.Density.At(x, y)
				if v < heatFloor {
					continue
				}
				layer.SetNRGBA(x, y, heat(v/peak, r.palette.heatAlpha))
			}
		}
		out = imaging.Overlay(out, layer, image.Point{}, 1.0)
	}

	for _, c := range img.Clicks {
		drawDot(out, c.X, c.Y, 1, r.palette.click)
	}

	kept := 0
	var best *model.Point
	if a.Result != nil {
		kept = len(a.Result.Clicks)
		for i := range a.Result.Clicks {
			p := &a.Result.Clicks[i]
			drawCross(out, p.X, p.Y, 4, r.palette.maximum)
			if best == nil || score(p.Score) > score(best.Score) {
				best = p
			}
		}
	}
	if best != nil {
		drawCross(out, best.X, best.Y, 6, r.palette.best)
	}

	r.legend(out, fmt.Sprintf("%s  clicks %d  kept %d  t=%.2f", img.ID, len(img.Clicks), kept, a.Threshold))
	return out
}

// Surfaces renders a region analysis as kind.
func (r *Renderer) Surfaces(bg image.Image, id model.ID, a *consensus.RegionAnalysis, kind SurfaceKind) (*image.NRGBA, error) {
	w, h := a.Votes.Width(), a.Votes.Height()
	space, err := raster.NewSpace(w, h)
	if err != nil {
		return nil, err
	}
	out := r.canvas(bg, w, h)
	layer := image.NewNRGBA(image.Rect(0, 0, w, h))

	var polygons []model.Polygon
	if a.Result != nil {
		polygons = a.Result.Polygons
	}
	annotators := float64(max(a.Annotators, 1))

	switch kind {
	case SurfaceThreshold:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if a.Mask.At(x, y) {
					layer.Set(x, y, r.palette.mask)
				}
			}
		}
	case SurfacePolygon:
		for _, poly := range polygons {
			c := heat(score(poly.Score)/annotators, r.palette.heatAlpha)
			space.Rasterize(ring(poly.Points), func(x, y int) {
				layer.SetNRGBA(x, y, c)
			})
		}
	case SurfaceAll:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if a.Mask.At(x, y) {
					layer.SetNRGBA(x, y, heat(a.Votes.At(x, y)/annotators, r.palette.heatAlpha))
				}
			}
		}
	default:
		return nil, fmt.Errorf("unknown image type %q", kind)
	}
	out = imaging.Overlay(out, layer, image.Point{}, 1.0)

	if kind != SurfaceThreshold {
		for _, poly := range polygons {
			drawOutline(out, poly.Points, r.palette.outline)
		}
	}

	r.legend(out, fmt.Sprintf("%s  annotators %d  t=%.2f  regions %d", id, a.Annotators, a.Threshold, len(polygons)))
	return out, nil
}

// canvas returns the background of a w×h render: the source image resized
// to the grid and dimmed to grey, or black without one.
func (r *Renderer) canvas(bg image.Image, w, h int) *image.NRGBA {
	if bg == nil {
		return imaging.New(w, h, color.Black)
	}
	src := bg
	if b := bg.Bounds(); b.Dx() != w || b.Dy() != h {
		src = imaging.Resize(bg, w, h, imaging.Lanczos)
	}
	return imaging.AdjustBrightness(imaging.Grayscale(src), -20)
}

// legend writes text on a translucent strip along the top edge.
func (r *Renderer) legend(dst *image.NRGBA, text string) {
	face := basicfont.Face7x13
	strip := image.Rect(0, 0, dst.Bounds().Dx(), face.Height+4)
	draw.Draw(dst, strip, image.NewUniform(color.NRGBA{A: 160}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(r.palette.text),
		Face: face,
		Dot:  fixed.P(3, face.Ascent+2),
	}
	d.DrawString(text)
}

func score(s *float64) float64 {
	if s == nil {
		return 0
	}
	return *s
}

func ring(points []model.Point) orb.Ring {
	r := make(orb.Ring, len(points))
	for i, p := range points {
		r[i] = orb.Point{float64(p.X), float64(p.Y)}
	}
	return r
}

func drawDot(dst *image.NRGBA, cx, cy, radius int, c color.Color) {
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dst.Set(x, y, c)
		}
	}
}

func drawCross(dst *image.NRGBA, cx, cy, size int, c color.Color) {
	for d := -size; d <= size; d++ {
		dst.Set(cx+d, cy, c)
		dst.Set(cx, cy+d, c)
	}
}

// drawOutline strokes the closed polygon through points.
func drawOutline(dst *image.NRGBA, points []model.Point, c color.Color) {
	for i, p := range points {
		q := points[(i+1)%len(points)]
		drawLine(dst, p.X, p.Y, q.X, q.Y, c)
	}
}

// drawLine is Bresenham's line algorithm. Pixels off dst are ignored.
func drawLine(dst *image.NRGBA, x0, y0, x1, y1 int, c color.Color) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		dst.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
