package textmesh

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/glyphglow/glrender"
)

// ExtrudeConfig defines the parameters of a glyph's 3D solid.
// All lengths are in the same units as Size.
type ExtrudeConfig struct {
	// Size is the height of one em.
	Size float32
	// Depth is the length of the straight extrusion along +Z, not counting bevels.
	Depth float32
	// CurveSegments is the number of straight segments each outline curve is sampled into.
	CurveSegments int
	BevelEnabled  bool
	// BevelThickness is how far the bevel extends past each cap along Z.
	BevelThickness float32
	// BevelSize is how far the bevel extends outward from the outline.
	BevelSize float32
	// BevelOffset is the outline offset at which the bevel starts.
	BevelOffset float32
	// BevelSegments is the number of rings sampled along each quarter circle bevel.
	BevelSegments int
}

// DefaultExtrudeConfig returns the parameters used for the scene glyphs.
func DefaultExtrudeConfig() ExtrudeConfig {
	return ExtrudeConfig{
		Size:           1,
		Depth:          0.2,
		CurveSegments:  12,
		BevelEnabled:   true,
		BevelThickness: 0.03,
		BevelSize:      0.02,
		BevelOffset:    0,
		BevelSegments:  5,
	}
}

// Validate checks the parameters describe a closed solid.
func (cfg ExtrudeConfig) Validate() error {
	var errs []error
	if cfg.Size <= 0 {
		errs = append(errs, errors.New("size must be positive"))
	}
	if cfg.Depth <= 0 {
		errs = append(errs, errors.New("depth must be positive"))
	}
	if cfg.CurveSegments < 1 {
		errs = append(errs, errors.New("need at least one curve segment"))
	}
	if cfg.BevelEnabled {
		if cfg.BevelSegments < 1 {
			errs = append(errs, errors.New("need at least one bevel segment"))
		}
		if cfg.BevelThickness < 0 || cfg.BevelSize < 0 {
			errs = append(errs, errors.New("negative bevel dimension"))
		}
	}
	return errors.Join(errs...)
}

// ExtrudeGlyph returns the closed triangle mesh of a glyph extruded along +Z
// from z=0 to z=Depth, with bevels extending the caps by BevelThickness when enabled.
// The glyph origin is at the baseline, left side bearing included.
func (f *Font) ExtrudeGlyph(c rune) (glrender.Mesh, error) {
	shapes, err := f.Outline(c)
	if err != nil {
		return glrender.Mesh{}, err
	}
	mesh, err := ExtrudeShapes(shapes, f.Config())
	if err != nil {
		return glrender.Mesh{}, fmt.Errorf("extruding %q: %w", c, err)
	}
	return mesh, nil
}

type layer struct {
	z      float32
	offset float32
}

// ExtrudeShapes extrudes planar shapes into a closed mesh.
func ExtrudeShapes(shapes []Shape, cfg ExtrudeConfig) (glrender.Mesh, error) {
	err := cfg.Validate()
	if err != nil {
		return glrender.Mesh{}, err
	} else if len(shapes) == 0 {
		return glrender.Mesh{}, errors.New("no shapes to extrude")
	}
	layers := extrusionLayers(cfg)
	var mesh glrender.Mesh
	var tris [][3]ms2.Vec
	for _, shape := range shapes {
		capShape := offsetShape(shape, layers[0].offset)
		tris, err = Triangulate(tris[:0], capShape.Outer, capShape.Holes)
		if err != nil {
			return glrender.Mesh{}, err
		}
		zBack, zFront := layers[0].z, layers[len(layers)-1].z
		for _, t := range tris {
			mesh.Triangles = append(mesh.Triangles,
				ms3.Triangle{to3(t[0], zBack), to3(t[2], zBack), to3(t[1], zBack)},
				ms3.Triangle{to3(t[0], zFront), to3(t[1], zFront), to3(t[2], zFront)},
			)
		}
		// Rings of every layer, reusing the cap contours where the offset matches exactly.
		rings := make([]Shape, len(layers))
		for i, l := range layers {
			if l.offset == layers[0].offset {
				rings[i] = capShape
			} else {
				rings[i] = offsetShape(shape, l.offset)
			}
		}
		for i := 0; i+1 < len(layers); i++ {
			lo, hi := layers[i], layers[i+1]
			mesh.Triangles = appendWall(mesh.Triangles, rings[i].Outer, rings[i+1].Outer, lo.z, hi.z)
			for h := range shape.Holes {
				mesh.Triangles = appendWall(mesh.Triangles, rings[i].Holes[h], rings[i+1].Holes[h], lo.z, hi.z)
			}
		}
	}
	return mesh, nil
}

// extrusionLayers returns the z heights and outline offsets of every ring in ascending z.
func extrusionLayers(cfg ExtrudeConfig) []layer {
	if !cfg.BevelEnabled {
		return []layer{{z: 0}, {z: cfg.Depth}}
	}
	n := cfg.BevelSegments
	layers := make([]layer, 0, 2*(n+1))
	ring := func(b int) (z, offset float32) {
		t := float32(b) / float32(n)
		z = cfg.BevelThickness * math32.Cos(t*math32.Pi/2)
		offset = cfg.BevelOffset
		if b != 0 {
			offset += cfg.BevelSize * math32.Sin(t*math32.Pi/2)
		}
		return z, offset
	}
	for b := 0; b <= n; b++ {
		z, off := ring(b)
		if b == n {
			z = 0
		}
		layers = append(layers, layer{z: -z, offset: off})
	}
	for b := n; b >= 0; b-- {
		z, off := ring(b)
		if b == n {
			z = 0
		}
		layers = append(layers, layer{z: cfg.Depth + z, offset: off})
	}
	return layers
}

// appendWall appends the quads joining two rings of a contour. Faces point to the
// right of the contour direction which is outward for both outers and holes.
func appendWall(dst []ms3.Triangle, lo, hi []ms2.Vec, zlo, zhi float32) []ms3.Triangle {
	n := len(lo)
	for i := range lo {
		j := (i + 1) % n
		a, b := to3(lo[i], zlo), to3(lo[j], zlo)
		c, d := to3(hi[j], zhi), to3(hi[i], zhi)
		dst = append(dst, ms3.Triangle{a, b, c}, ms3.Triangle{c, d, a})
	}
	return dst
}

func offsetShape(s Shape, dist float32) Shape {
	if dist == 0 {
		return s
	}
	out := Shape{Outer: offsetContour(s.Outer, dist)}
	for _, h := range s.Holes {
		out.Holes = append(out.Holes, offsetContour(h, dist))
	}
	return out
}

// offsetContour moves every vertex dist along the mitered right hand normal.
func offsetContour(c []ms2.Vec, dist float32) []ms2.Vec {
	const maxMiter = 4
	n := len(c)
	out := make([]ms2.Vec, n)
	for i := range c {
		prev, cur, next := c[(i+n-1)%n], c[i], c[(i+1)%n]
		n1 := rightNormal(ms2.Sub(cur, prev))
		n2 := rightNormal(ms2.Sub(next, cur))
		m := ms2.Add(n1, n2)
		l := ms2.Norm(m)
		if l < 1e-6 {
			m = n1
		} else {
			m = ms2.Scale(1/l, m)
			d := ms2.Dot(m, n1)
			m = ms2.Scale(min(1/max(d, 1e-6), maxMiter), m)
		}
		out[i] = ms2.Add(cur, ms2.Scale(dist, m))
	}
	return out
}

func rightNormal(d ms2.Vec) ms2.Vec {
	l := ms2.Norm(d)
	if l == 0 {
		return ms2.Vec{}
	}
	return ms2.Vec{X: d.Y / l, Y: -d.X / l}
}

func to3(v ms2.Vec, z float32) ms3.Vec {
	return ms3.Vec{X: v.X, Y: v.Y, Z: z}
}
