package raster

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Close returns ring with its first vertex repeated at the end, as orb
// expects. Already-closed rings are returned unchanged.
func Close(ring orb.Ring) orb.Ring {
	if len(ring) == 0 || ring.Closed() {
		return ring
	}
	closed := make(orb.Ring, len(ring), len(ring)+1)
	copy(closed, ring)
	return append(closed, ring[0])
}

// Open drops the repeated closing vertex of a closed ring.
func Open(ring orb.Ring) orb.Ring {
	if len(ring) > 1 && ring.Closed() {
		return ring[:len(ring)-1]
	}
	return ring
}

// SignedArea returns the shoelace area of ring: positive for
// counter-clockwise rings in a y-up frame, negative for clockwise ones.
func SignedArea(ring orb.Ring) float64 {
	ring = Close(ring)
	return float64(ring.Orientation()) * Area(ring)
}

// Area returns the enclosed area of ring.
func Area(ring orb.Ring) float64 {
	if len(ring) < 3 {
		return 0
	}
	return math.Abs(planar.Area(Close(ring)))
}

// Perimeter returns the length of the closed boundary of ring.
func Perimeter(ring orb.Ring) float64 {
	if len(ring) < 2 {
		return 0
	}
	return planar.Length(Close(ring))
}

// Inside reports whether p lies inside ring.
func Inside(ring orb.Ring, p orb.Point) bool {
	if len(ring) < 3 {
		return false
	}
	ring = Close(ring)
	if !ring.Bound().Contains(p) {
		return false
	}
	return planar.RingContains(ring, p)
}
