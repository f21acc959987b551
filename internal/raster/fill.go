package raster

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// Rasterize calls visit for every grid pixel whose centre lies inside ring,
// using the even-odd rule. Pixels are visited row by row, left to right.
//
// # Algorithm
//
// For each row y the scanline at y+0.5 is intersected with every ring edge
// that straddles it. The sorted crossings pair up into spans; a pixel is
// inside when its centre x+0.5 falls in [x_in, x_out).
func (s *Space) Rasterize(ring orb.Ring, visit func(x, y int)) {
	ring = Open(ring)
	n := len(ring)
	if n < 3 {
		return
	}

	minY, maxY := ring[0][1], ring[0][1]
	for _, p := range ring[1:] {
		minY = math.Min(minY, p[1])
		maxY = math.Max(maxY, p[1])
	}

	y0 := int(math.Floor(minY - 0.5))
	if y0 < 0 {
		y0 = 0
	}
	y1 := int(math.Ceil(maxY - 0.5))
	if y1 > s.height-1 {
		y1 = s.height - 1
	}

	crossings := make([]float64, 0, n)
	for py := y0; py <= y1; py++ {
		sy := float64(py) + 0.5
		crossings = crossings[:0]

		for i := 0; i < n; i++ {
			a, b := ring[i], ring[(i+1)%n]
			if (a[1] > sy) != (b[1] > sy) {
				crossings = append(crossings, a[0]+(sy-a[1])*(b[0]-a[0])/(b[1]-a[1]))
			}
		}
		sort.Float64s(crossings)

		for k := 0; k+1 < len(crossings); k += 2 {
			from := int(math.Ceil(crossings[k] - 0.5))
			to := int(math.Ceil(crossings[k+1]-0.5)) - 1
			if from < 0 {
				from = 0
			}
			if to > s.width-1 {
				to = s.width - 1
			}
			for px := from; px <= to; px++ {
				visit(px, py)
			}
		}
	}
}

// Fill returns the mask of pixels inside ring.
func (s *Space) Fill(ring orb.Ring) *Mask {
	mask := s.NewMask()
	s.Rasterize(ring, mask.Set)
	return mask
}

// MeanInside returns the mean of f over the pixels inside ring and the
// number of pixels averaged. An empty interior yields (0, 0).
func (s *Space) MeanInside(f *Field, ring orb.Ring) (float64, int) {
	var sum float64
	var count int
	s.Rasterize(ring, func(x, y int) {
		sum += f.At(x, y)
		count++
	})
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}
