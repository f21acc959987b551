package raster

import "image"

// LocalMaxima returns the cells of f whose value exceeds floor and is not
// exceeded by any of their 8 neighbours, in raster order.
//
// Cells tied with a neighbour keep only the one that comes first in raster
// order, so a flat plateau reports a single representative instead of every
// cell on it. Neighbours off the grid are ignored, so border cells qualify.
func (f *Field) LocalMaxima(floor float64) []image.Point {
	w, h := f.width, f.height
	data := f.data()
	peaks := make([]image.Point, 0)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			v := data[idx]
			if v <= floor {
				continue
			}

			isMax := true
			for dy := -1; dy <= 1 && isMax; dy++ {
				for dx := -1; dx <= 1 && isMax; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					nidx := ny*w + nx
					nv := data[nidx]
					if nv > v || (nv == v && nidx < idx) {
						isMax = false
					}
				}
			}

			if isMax {
				peaks = append(peaks, image.Point{X: x, Y: y})
			}
		}
	}

	return peaks
}
