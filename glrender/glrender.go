package glrender

import (
	"errors"
	"math"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// FloatsPerVertex is the number of float32 values written per vertex by [Mesh.AppendInterleaved]:
// three for position followed by three for the normal.
const FloatsPerVertex = 6

// Mesh is a triangle soup with counter-clockwise winding for front faces.
type Mesh struct {
	Triangles []ms3.Triangle
}

// NewBox returns an axis aligned box mesh of the given dimensions centered at the origin.
func NewBox(width, height, depth float32) (Mesh, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return Mesh{}, errors.New("box dimensions must be positive")
	}
	x, y, z := width/2, height/2, depth/2
	// Corners indexed by bits: 1=+X, 2=+Y, 4=+Z.
	var c [8]ms3.Vec
	for i := range c {
		c[i] = ms3.Vec{X: -x, Y: -y, Z: -z}
		if i&1 != 0 {
			c[i].X = x
		}
		if i&2 != 0 {
			c[i].Y = y
		}
		if i&4 != 0 {
			c[i].Z = z
		}
	}
	quads := [6][4]int{
		{1, 3, 7, 5}, // +X
		{0, 4, 6, 2}, // -X
		{2, 6, 7, 3}, // +Y
		{0, 1, 5, 4}, // -Y
		{4, 5, 7, 6}, // +Z
		{0, 2, 3, 1}, // -Z
	}
	m := Mesh{Triangles: make([]ms3.Triangle, 0, 12)}
	for _, q := range quads {
		m.Triangles = append(m.Triangles,
			ms3.Triangle{c[q[0]], c[q[1]], c[q[2]]},
			ms3.Triangle{c[q[2]], c[q[3]], c[q[0]]},
		)
	}
	return m, nil
}

// Len returns the number of vertices in the mesh.
func (m Mesh) Len() int { return 3 * len(m.Triangles) }

// Bounds returns the smallest box containing every vertex. An empty mesh has zero bounds.
func (m Mesh) Bounds() ms3.Box {
	if len(m.Triangles) == 0 {
		return ms3.Box{}
	}
	inf := float32(math.Inf(1))
	bb := ms3.Box{
		Min: ms3.Vec{X: inf, Y: inf, Z: inf},
		Max: ms3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
	for _, t := range m.Triangles {
		for _, v := range t {
			bb.Min = ms3.MinElem(bb.Min, v)
			bb.Max = ms3.MaxElem(bb.Max, v)
		}
	}
	return bb
}

// Translate returns a copy of the mesh with every vertex displaced by offset.
func (m Mesh) Translate(offset ms3.Vec) Mesh {
	out := Mesh{Triangles: make([]ms3.Triangle, len(m.Triangles))}
	for i, t := range m.Triangles {
		out.Triangles[i] = ms3.Triangle{ms3.Add(t[0], offset), ms3.Add(t[1], offset), ms3.Add(t[2], offset)}
	}
	return out
}

// AppendInterleaved appends position and face normal of every vertex to dst
// in the layout described by [FloatsPerVertex].
func (m Mesh) AppendInterleaved(dst []float32) []float32 {
	for _, t := range m.Triangles {
		n := TriangleNormal(t)
		for _, v := range t {
			dst = append(dst, v.X, v.Y, v.Z, n.X, n.Y, n.Z)
		}
	}
	return dst
}

// TriangleNormal returns the unit normal of t following right hand winding.
// Degenerate triangles have a zero normal.
func TriangleNormal(t ms3.Triangle) ms3.Vec {
	n := ms3.Cross(ms3.Sub(t[1], t[0]), ms3.Sub(t[2], t[0]))
	l := ms3.Norm(n)
	if l < 1e-12 || math32.IsNaN(l) {
		return ms3.Vec{}
	}
	return ms3.Scale(1/l, n)
}

// TriangleArea returns the area of t.
func TriangleArea(t ms3.Triangle) float32 {
	return 0.5 * ms3.Norm(ms3.Cross(ms3.Sub(t[1], t[0]), ms3.Sub(t[2], t[0])))
}
