package raster

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Field is a float64 value per pixel, stored as an H×W dense matrix.
type Field struct {
	width  int
	height int
	m      *mat.Dense
}

func newField(width, height int) *Field {
	return &Field{
		width:  width,
		height: height,
		m:      mat.NewDense(height, width, nil),
	}
}

// Width returns the number of columns.
func (f *Field) Width() int { return f.width }

// Height returns the number of rows.
func (f *Field) Height() int { return f.height }

// At returns the value at pixel (x, y).
func (f *Field) At(x, y int) float64 {
	return f.m.At(y, x)
}

// Set stores v at pixel (x, y).
func (f *Field) Set(x, y int, v float64) {
	f.m.Set(y, x, v)
}

// Add increments pixel (x, y) by v.
func (f *Field) Add(x, y int, v float64) {
	f.m.Set(y, x, f.m.At(y, x)+v)
}

// AddOuter accumulates alpha * col * rowᵀ into the field, where col has one
// entry per row (y) and row one entry per column (x). Separable kernels are
// added this way without materialising them.
func (f *Field) AddOuter(alpha float64, col, row mat.Vector) {
	f.m.RankOne(f.m, alpha, col, row)
}

// Max returns the largest value in the field.
func (f *Field) Max() float64 {
	return floats.Max(f.data())
}

// Sum returns the sum of all values.
func (f *Field) Sum() float64 {
	return floats.Sum(f.data())
}

// Threshold returns a mask of pixels whose value is at least t.
func (f *Field) Threshold(t float64) *Mask {
	mask := newMask(f.width, f.height)
	for i, v := range f.data() {
		if v >= t {
			mask.bits[i] = true
		}
	}
	return mask
}

// data exposes the row-major backing slice. Index = y*width + x.
func (f *Field) data() []float64 {
	return f.m.RawMatrix().Data
}
