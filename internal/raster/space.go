package raster

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"
)

// Default canvas size the annotations were collected on.
const (
	DefaultWidth  = 400
	DefaultHeight = 400
)

// Space is an immutable W×H grid with its coordinate mesh.
//
// The mesh holds the pixel coordinate of every column (MeshX) and every row
// (MeshY). Kernels evaluated over the grid read these vectors instead of
// rebuilding coordinates per call.
type Space struct {
	width  int
	height int
	meshX  *mat.VecDense
	meshY  *mat.VecDense
}

// NewSpace builds a width × height grid.
func NewSpace(width, height int) (*Space, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid grid size %dx%d: both dimensions must be positive", width, height)
	}

	xs := make([]float64, width)
	for i := range xs {
		xs[i] = float64(i)
	}
	ys := make([]float64, height)
	for i := range ys {
		ys[i] = float64(i)
	}

	return &Space{
		width:  width,
		height: height,
		meshX:  mat.NewVecDense(width, xs),
		meshY:  mat.NewVecDense(height, ys),
	}, nil
}

// Width returns the number of columns.
func (s *Space) Width() int { return s.width }

// Height returns the number of rows.
func (s *Space) Height() int { return s.height }

// Bounds returns the grid as an image rectangle.
func (s *Space) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

// Contains reports whether pixel (x, y) lies on the grid.
func (s *Space) Contains(x, y int) bool {
	return x >= 0 && x < s.width && y >= 0 && y < s.height
}

// MeshX returns the column coordinates. The vector is read-only.
func (s *Space) MeshX() mat.Vector { return s.meshX }

// MeshY returns the row coordinates. The vector is read-only.
func (s *Space) MeshY() mat.Vector { return s.meshY }

// NewField allocates a zeroed field covering the grid.
func (s *Space) NewField() *Field {
	return newField(s.width, s.height)
}

// NewMask allocates an empty mask covering the grid.
func (s *Space) NewMask() *Mask {
	return newMask(s.width, s.height)
}
