package textmesh

import (
	"errors"
	"fmt"

	earcut "github.com/rclancey/go-earcut"
	"github.com/soypat/glgl/math/ms2"
)

// Triangulate appends the triangles covering the region inside the outer contour
// and outside the holes to dst. Triangles are counter-clockwise.
func Triangulate(dst [][3]ms2.Vec, outer []ms2.Vec, holes [][]ms2.Vec) ([][3]ms2.Vec, error) {
	if len(outer) < 3 {
		return dst, errors.New("outer contour needs at least 3 vertices")
	}
	n := len(outer)
	for _, h := range holes {
		n += len(h)
	}
	pts := make([]ms2.Vec, 0, n)
	pts = append(pts, outer...)
	var holeStart []int
	for _, h := range holes {
		if len(h) < 3 {
			continue
		}
		holeStart = append(holeStart, len(pts))
		pts = append(pts, h...)
	}
	data := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		data = append(data, float64(p.X), float64(p.Y))
	}
	indices, err := earcut.Earcut(data, holeStart, 2)
	if err != nil {
		return dst, err
	} else if len(indices) == 0 || len(indices)%3 != 0 {
		return dst, fmt.Errorf("triangulation of %d vertices produced %d indices", len(pts), len(indices))
	}
	for i := 0; i < len(indices); i += 3 {
		a, b, c := pts[indices[i]], pts[indices[i+1]], pts[indices[i+2]]
		if orient(a, b, c) < 0 {
			b, c = c, b
		}
		dst = append(dst, [3]ms2.Vec{a, b, c})
	}
	return dst, nil
}

// orient is twice the signed area of triangle abc. Positive when counter-clockwise.
func orient(a, b, c ms2.Vec) float32 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
