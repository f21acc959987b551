// Package raster provides the fixed-resolution grid shared by the consensus
// engines, along with the field, mask and geometry primitives they run on.
//
// # Grid and Coordinates
//
// A Space is a W×H grid of unit pixels. Pixel (x, y) covers the square
// [x, x+1] × [y, y+1]; its sample point is the centre (x+0.5, y+0.5).
// Polygon vertices are lattice positions in the same coordinate system, so a
// polygon with integer vertices rasterizes to exactly the pixels it encloses.
//
//   - Origin (0, 0) at top-left corner
//   - X increases rightward, Y increases downward
//   - Fields are stored row-major: row = y, column = x
//
// Width and height are tracked separately everywhere; nothing assumes a
// square grid.
//
// # Fields and Masks
//
// Field is a float64 grid backed by a gonum dense matrix. The consensus
// engines build one density or vote field per image and discard it on
// return. Mask is a boolean grid produced by thresholding a field or by
// filling a polygon.
//
// # Neighbourhood Scans
//
// Two routines walk the grid with explicit neighbour iteration:
//
//   - LocalMaxima: 8-neighbourhood peak scan. Plateaus yield one
//     representative, the first cell in raster order.
//   - ExternalContours: crack-following boundary trace of 8-connected
//     regions. Vertices sit on pixel corners, and only the outermost
//     boundary of each region is returned.
//
// # Thread Safety
//
// A Space is immutable after NewSpace and may be shared by any number of
// goroutines. Fields and Masks are not safe for concurrent mutation; each
// engine invocation owns its own.
package raster
