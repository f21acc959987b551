package raster

import "fmt"

// BoxMean returns a copy of f where each pixel is the mean of the k×k window
// centred on it. Pixels past the grid edge repeat the nearest edge pixel.
// k must be odd and positive; k = 1 returns an unchanged copy.
//
// The window is separable, so the mean is taken along rows first and then
// along columns.
func (f *Field) BoxMean(k int) (*Field, error) {
	if k < 1 || k%2 == 0 {
		return nil, fmt.Errorf("box window must be odd and positive, got %d", k)
	}

	w, h := f.width, f.height
	src := f.data()
	r := k / 2
	norm := 1.0 / float64(k)

	rows := make([]float64, len(src))
	for y := 0; y < h; y++ {
		line := src[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var sum float64
			for d := -r; d <= r; d++ {
				sum += line[clampIndex(x+d, w)]
			}
			rows[y*w+x] = sum * norm
		}
	}

	out := newField(w, h)
	dst := out.data()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for d := -r; d <= r; d++ {
				sum += rows[clampIndex(y+d, h)*w+x]
			}
			dst[y*w+x] = sum * norm
		}
	}

	return out, nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
