package raster

import (
	"image"

	"github.com/paulmach/orb"
)

// ExternalContours traces the outer boundary of every 8-connected region of
// set pixels and returns them as closed rings, in raster order of each
// region's first pixel.
//
// Boundaries run along pixel edges, so vertices are pixel corners and the
// shoelace area of a ring equals the pixel count of its region plus any
// holes. Only direction changes are kept as vertices. Holes are not traced,
// and regions lying inside another region's hole are dropped: only the
// outermost boundaries are returned.
//
// # Algorithm
//
//  1. Scan in raster order for an unvisited set pixel. It is the topmost,
//     leftmost pixel of its region.
//  2. Flood-fill the region (8-connected) to mark it visited.
//  3. Trace its boundary starting at the pixel's top-left corner, heading
//     right with the region on the right-hand side (see traceBoundary).
//  4. Reject rings whose first vertex lies inside another traced ring.
func (m *Mask) ExternalContours() []orb.Ring {
	visited := make([]bool, len(m.bits))
	rings := make([]orb.Ring, 0)

	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			idx := y*m.width + x
			if !m.bits[idx] || visited[idx] {
				continue
			}
			m.floodFill(visited, x, y)
			rings = append(rings, m.traceBoundary(x, y))
		}
	}

	return outermost(rings)
}

// floodFill marks every pixel 8-connected to (startX, startY).
//
// Uses an explicit stack rather than recursion so large regions cannot
// overflow the goroutine stack.
func (m *Mask) floodFill(visited []bool, startX, startY int) {
	stack := []image.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= m.width || p.Y < 0 || p.Y >= m.height {
			continue
		}
		idx := p.Y*m.width + p.X
		if visited[idx] || !m.bits[idx] {
			continue
		}
		visited[idx] = true

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

// traceBoundary follows the crack boundary of the region containing pixel
// (sx, sy), which must be the region's first pixel in raster order.
//
// The walk moves from corner to corner with the region on its right. At each
// corner it looks at the two pixels ahead, left and right of the heading:
//
//   - ahead-left set: turn left (diagonal contact keeps 8-connectivity)
//   - ahead-right set: continue straight
//   - neither set: turn right
//
// The walk ends when it is back at the start corner heading right again.
func (m *Mask) traceBoundary(sx, sy int) orb.Ring {
	vx, vy := sx, sy
	dx, dy := 1, 0
	ring := orb.Ring{{float64(vx), float64(vy)}}

	// Every pixel edge is crossed at most once in each direction.
	limit := 4*(m.width+1)*(m.height+1) + 4

	for step := 0; step < limit; step++ {
		vx += dx
		vy += dy

		lx, ly := dy, -dx
		rx, ry := -dy, dx
		aheadLeft := m.At(vx+cornerOffset(dx+lx), vy+cornerOffset(dy+ly))
		aheadRight := m.At(vx+cornerOffset(dx+rx), vy+cornerOffset(dy+ry))

		ndx, ndy := rx, ry
		switch {
		case aheadLeft:
			ndx, ndy = lx, ly
		case aheadRight:
			ndx, ndy = dx, dy
		}

		if vx == sx && vy == sy && ndx == 1 && ndy == 0 {
			break
		}
		if ndx != dx || ndy != dy {
			ring = append(ring, orb.Point{float64(vx), float64(vy)})
		}
		dx, dy = ndx, ndy
	}

	return append(ring, ring[0])
}

// cornerOffset maps the sum of two unit steps (±1) to the offset of the
// pixel lying in that diagonal direction from a corner: +1 → 0, -1 → -1.
func cornerOffset(s int) int {
	return (s - 1) / 2
}

// outermost drops rings that lie inside another ring.
func outermost(rings []orb.Ring) []orb.Ring {
	if len(rings) < 2 {
		return rings
	}

	bounds := make([]orb.Bound, len(rings))
	for i, r := range rings {
		bounds[i] = r.Bound()
	}

	kept := make([]orb.Ring, 0, len(rings))
	for i, r := range rings {
		nested := false
		for j, other := range rings {
			if i == j || !bounds[j].Contains(r[0]) {
				continue
			}
			if Inside(other, r[0]) {
				nested = true
				break
			}
		}
		if !nested {
			kept = append(kept, r)
		}
	}
	return kept
}
