package raster

import (
	"image"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

func newTestSpace(t *testing.T, w, h int) *Space {
	t.Helper()
	s, err := NewSpace(w, h)
	if err != nil {
		t.Fatalf("NewSpace(%d, %d) failed: %v", w, h, err)
	}
	return s
}

func squareRing(x, y, size float64) orb.Ring {
	return orb.Ring{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}}
}

func TestNewSpace(t *testing.T) {
	s := newTestSpace(t, 30, 20)
	if s.Width() != 30 || s.Height() != 20 {
		t.Errorf("dimensions: got %dx%d, want 30x20", s.Width(), s.Height())
	}
	if s.MeshX().Len() != 30 || s.MeshY().Len() != 20 {
		t.Errorf("mesh lengths: got %d/%d", s.MeshX().Len(), s.MeshY().Len())
	}
	if s.MeshX().AtVec(7) != 7 {
		t.Errorf("MeshX(7): got %v, want 7", s.MeshX().AtVec(7))
	}
	if s.Bounds() != image.Rect(0, 0, 30, 20) {
		t.Errorf("Bounds: got %v", s.Bounds())
	}
}

func TestNewSpace_Invalid(t *testing.T) {
	for _, dims := range [][2]int{{0, 10}, {10, 0}, {-5, 5}} {
		if _, err := NewSpace(dims[0], dims[1]); err == nil {
			t.Errorf("NewSpace(%d, %d) should fail", dims[0], dims[1])
		}
	}
}

func TestSpace_Contains(t *testing.T) {
	s := newTestSpace(t, 10, 5)
	tests := []struct {
		x, y int
		want bool
	}{
		{0, 0, true},
		{9, 4, true},
		{10, 0, false},
		{0, 5, false},
		{-1, 2, false},
	}
	for _, tt := range tests {
		if got := s.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%d,%d): got %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestField_NonSquareIndexing(t *testing.T) {
	s := newTestSpace(t, 6, 3)
	f := s.NewField()
	f.Set(5, 2, 4)
	f.Add(5, 2, 1)
	if f.At(5, 2) != 5 {
		t.Errorf("At(5,2): got %v, want 5", f.At(5, 2))
	}
	if f.Sum() != 5 || f.Max() != 5 {
		t.Errorf("Sum/Max: got %v/%v", f.Sum(), f.Max())
	}
}

func TestField_AddOuter(t *testing.T) {
	s := newTestSpace(t, 3, 2)
	f := s.NewField()
	col := mat.NewVecDense(2, []float64{1, 2})
	row := mat.NewVecDense(3, []float64{1, 10, 100})

	f.AddOuter(1, col, row)
	f.AddOuter(0.5, col, row)

	if got := f.At(2, 1); got != 300 {
		t.Errorf("At(2,1): got %v, want 300", got)
	}
	if got := f.At(1, 0); got != 15 {
		t.Errorf("At(1,0): got %v, want 15", got)
	}
}

func TestField_Threshold(t *testing.T) {
	s := newTestSpace(t, 4, 4)
	f := s.NewField()
	f.Set(1, 1, 0.9)
	f.Set(2, 2, 1.0)
	f.Set(3, 3, 1.5)

	mask := f.Threshold(1.0)
	if mask.Count() != 2 {
		t.Errorf("Count: got %d, want 2", mask.Count())
	}
	if mask.At(1, 1) || !mask.At(2, 2) || !mask.At(3, 3) {
		t.Error("threshold should keep values >= 1.0 only")
	}
}

func TestGeometry_Square(t *testing.T) {
	ring := squareRing(0, 0, 20)

	if got := Area(ring); got != 400 {
		t.Errorf("Area: got %v, want 400", got)
	}
	if got := Perimeter(ring); got != 80 {
		t.Errorf("Perimeter: got %v, want 80", got)
	}
	if !Inside(ring, orb.Point{10, 10}) {
		t.Error("centre should be inside")
	}
	if Inside(ring, orb.Point{30, 10}) {
		t.Error("point to the right should be outside")
	}
}

func TestGeometry_SignedArea(t *testing.T) {
	ring := squareRing(0, 0, 10)
	reversed := orb.Ring{ring[3], ring[2], ring[1], ring[0]}

	a, b := SignedArea(ring), SignedArea(reversed)
	if math.Abs(a) != 100 || a != -b {
		t.Errorf("SignedArea: got %v and %v, want ±100 with opposite signs", a, b)
	}
}

func TestGeometry_Degenerate(t *testing.T) {
	line := orb.Ring{{0, 0}, {5, 5}}
	if Area(line) != 0 {
		t.Error("two-point ring should have zero area")
	}
	if Inside(line, orb.Point{1, 1}) {
		t.Error("nothing is inside a degenerate ring")
	}
}

func TestRasterize_Square(t *testing.T) {
	s := newTestSpace(t, 400, 400)
	mask := s.Fill(squareRing(100, 100, 20))

	if mask.Count() != 400 {
		t.Errorf("Count: got %d, want 400", mask.Count())
	}
	if !mask.At(100, 100) || !mask.At(119, 119) {
		t.Error("corner pixels inside the square should be set")
	}
	if mask.At(120, 110) || mask.At(110, 99) {
		t.Error("pixels outside the square should be unset")
	}
}

func TestRasterize_Triangle(t *testing.T) {
	s := newTestSpace(t, 400, 400)
	mask := s.Fill(orb.Ring{{100, 100}, {110, 100}, {100, 110}})

	// Rows hold 9, 8, ..., 1, 0 pixel centres left of the hypotenuse.
	if mask.Count() != 45 {
		t.Errorf("Count: got %d, want 45", mask.Count())
	}
}

func TestRasterize_ClipsToGrid(t *testing.T) {
	s := newTestSpace(t, 10, 10)
	mask := s.Fill(squareRing(-5, -5, 10))
	if mask.Count() != 25 {
		t.Errorf("Count: got %d, want 25", mask.Count())
	}
}

func TestRasterize_EvenOdd(t *testing.T) {
	s := newTestSpace(t, 20, 20)
	// Bow tie: left and right triangles meeting at (5,5).
	mask := s.Fill(orb.Ring{{0, 0}, {10, 10}, {10, 0}, {0, 10}})
	if !mask.At(1, 5) || !mask.At(8, 5) {
		t.Error("left and right lobes should be filled")
	}
	if mask.At(5, 1) || mask.At(5, 8) {
		t.Error("pixels between the lobes should stay empty")
	}
}

func TestMeanInside(t *testing.T) {
	s := newTestSpace(t, 10, 10)
	f := s.NewField()
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			f.Set(x, y, float64(x))
		}
	}

	mean, count := s.MeanInside(f, orb.Ring{{2, 0}, {4, 0}, {4, 10}, {2, 10}})
	if count != 20 || mean != 2.5 {
		t.Errorf("MeanInside: got %v over %d, want 2.5 over 20", mean, count)
	}

	if _, count := s.MeanInside(f, orb.Ring{{0, 0}, {5, 0}, {9, 0}}); count != 0 {
		t.Errorf("flat ring should cover no pixels, got %d", count)
	}
}

func TestBoxMean(t *testing.T) {
	s := newTestSpace(t, 5, 5)
	f := s.NewField()
	f.Set(2, 2, 9)

	out, err := f.BoxMean(3)
	if err != nil {
		t.Fatalf("BoxMean failed: %v", err)
	}
	if out.At(2, 2) != 1 || out.At(1, 1) != 1 || out.At(0, 0) != 0 {
		t.Errorf("unexpected smoothed values: centre %v, diag %v, far %v",
			out.At(2, 2), out.At(1, 1), out.At(0, 0))
	}
	if math.Abs(out.Sum()-9) > 1e-9 {
		t.Errorf("interior impulse should conserve mass, got %v", out.Sum())
	}
	if f.At(2, 2) != 9 {
		t.Error("BoxMean must not modify its input")
	}
}

func TestBoxMean_ReplicatesBorder(t *testing.T) {
	s := newTestSpace(t, 4, 4)
	f := s.NewField()
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			f.Set(x, y, 2)
		}
	}
	out, err := f.BoxMean(3)
	if err != nil {
		t.Fatalf("BoxMean failed: %v", err)
	}
	if out.At(0, 0) != 2 || out.At(3, 3) != 2 {
		t.Errorf("constant field should stay constant at the border: %v %v", out.At(0, 0), out.At(3, 3))
	}
}

func TestBoxMean_InvalidWindow(t *testing.T) {
	s := newTestSpace(t, 4, 4)
	for _, k := range []int{0, 2, -3} {
		if _, err := s.NewField().BoxMean(k); err == nil {
			t.Errorf("BoxMean(%d) should fail", k)
		}
	}
}

func TestLocalMaxima(t *testing.T) {
	s := newTestSpace(t, 10, 10)
	f := s.NewField()
	f.Set(2, 2, 3)
	f.Set(3, 2, 2)
	f.Set(7, 7, 1)

	peaks := f.LocalMaxima(0)
	want := []image.Point{{X: 2, Y: 2}, {X: 7, Y: 7}}
	if len(peaks) != len(want) {
		t.Fatalf("peaks: got %v, want %v", peaks, want)
	}
	for i := range want {
		if peaks[i] != want[i] {
			t.Errorf("peak %d: got %v, want %v", i, peaks[i], want[i])
		}
	}
}

func TestLocalMaxima_Plateau(t *testing.T) {
	s := newTestSpace(t, 10, 10)
	f := s.NewField()
	for y := 3; y <= 5; y++ {
		for x := 3; x <= 5; x++ {
			f.Set(x, y, 1)
		}
	}

	peaks := f.LocalMaxima(0)
	if len(peaks) != 1 || peaks[0] != (image.Point{X: 3, Y: 3}) {
		t.Errorf("plateau should yield its first cell only, got %v", peaks)
	}
}

func TestLocalMaxima_ZeroField(t *testing.T) {
	s := newTestSpace(t, 10, 10)
	if peaks := s.NewField().LocalMaxima(0); len(peaks) != 0 {
		t.Errorf("zero field should have no maxima, got %v", peaks)
	}
}

func TestExternalContours_Square(t *testing.T) {
	s := newTestSpace(t, 50, 50)
	mask := s.Fill(squareRing(10, 10, 20))

	rings := mask.ExternalContours()
	if len(rings) != 1 {
		t.Fatalf("expected 1 contour, got %d", len(rings))
	}
	ring := rings[0]
	if !ring.Closed() {
		t.Error("contour should be closed")
	}
	if len(ring) != 5 {
		t.Errorf("straight runs should collapse to 4 corners, got %d vertices: %v", len(ring), ring)
	}
	if Area(ring) != 400 {
		t.Errorf("Area: got %v, want 400", Area(ring))
	}
	if ring[0] != (orb.Point{10, 10}) {
		t.Errorf("contour should start at the top-left corner, got %v", ring[0])
	}
}

func TestExternalContours_SinglePixel(t *testing.T) {
	s := newTestSpace(t, 5, 5)
	mask := s.NewMask()
	mask.Set(0, 0)

	rings := mask.ExternalContours()
	if len(rings) != 1 || Area(rings[0]) != 1 {
		t.Errorf("single pixel should trace a unit square, got %v", rings)
	}
}

func TestExternalContours_DiagonalIsConnected(t *testing.T) {
	s := newTestSpace(t, 5, 5)
	mask := s.NewMask()
	mask.Set(1, 1)
	mask.Set(2, 2)

	rings := mask.ExternalContours()
	if len(rings) != 1 {
		t.Fatalf("diagonal pixels are 8-connected, got %d contours", len(rings))
	}
	if Area(rings[0]) != 2 {
		t.Errorf("Area: got %v, want 2", Area(rings[0]))
	}
}

func TestExternalContours_IgnoresHolesAndIslands(t *testing.T) {
	s := newTestSpace(t, 30, 30)
	mask := s.NewMask()
	// 20x20 ring of width 3 around a hole, with a lone pixel in the hole.
	for y := 5; y < 25; y++ {
		for x := 5; x < 25; x++ {
			if x < 8 || x >= 22 || y < 8 || y >= 22 {
				mask.Set(x, y)
			}
		}
	}
	mask.Set(15, 15)

	rings := mask.ExternalContours()
	if len(rings) != 1 {
		t.Fatalf("expected only the outer contour, got %d", len(rings))
	}
	if Area(rings[0]) != 400 {
		t.Errorf("outer contour area: got %v, want 400", Area(rings[0]))
	}
}

func TestExternalContours_Separate(t *testing.T) {
	s := newTestSpace(t, 40, 40)
	mask := s.Fill(squareRing(2, 2, 5))
	s.Rasterize(squareRing(20, 20, 10), mask.Set)

	rings := mask.ExternalContours()
	if len(rings) != 2 {
		t.Fatalf("expected 2 contours, got %d", len(rings))
	}
	if Area(rings[0]) != 25 || Area(rings[1]) != 100 {
		t.Errorf("areas: got %v and %v, want 25 and 100", Area(rings[0]), Area(rings[1]))
	}
}

func TestExternalContours_RoundTripsThroughFill(t *testing.T) {
	s := newTestSpace(t, 60, 60)
	mask := s.Fill(orb.Ring{{10, 10}, {40, 12}, {45, 40}, {20, 50}, {5, 30}})

	rings := mask.ExternalContours()
	if len(rings) != 1 {
		t.Fatalf("expected 1 contour, got %d", len(rings))
	}
	refilled := s.Fill(rings[0])
	if refilled.Count() != mask.Count() {
		t.Errorf("refilled contour covers %d pixels, mask has %d", refilled.Count(), mask.Count())
	}
	if int(Area(rings[0])) != mask.Count() {
		t.Errorf("contour area %v should equal pixel count %d", Area(rings[0]), mask.Count())
	}
}
