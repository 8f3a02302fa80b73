package textmesh

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/chewxy/math32"
	"github.com/golang/freetype/truetype"
	"github.com/soypat/glgl/math/ms2"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const firstBasic = '!'
const lastBasic = '~'

// Shape is a filled region of a glyph: a counter-clockwise outer contour and
// the clockwise contours of the holes it contains. Contours are implicitly closed.
type Shape struct {
	Outer []ms2.Vec
	Holes [][]ms2.Vec
}

// Font implements font parsing and glyph outline and mesh generation.
type Font struct {
	ttf    truetype.Font
	gb     truetype.GlyphBuf
	loaded bool
	cfg    ExtrudeConfig
	// basicGlyphs optimized array access for common ASCII glyphs.
	basicGlyphs [lastBasic - firstBasic + 1][]Shape
	// Other kinds of glyphs.
	otherGlyphs map[rune][]Shape
}

// Configure sets the extrusion parameters used by the outline and mesh methods and clears cached outlines.
func (f *Font) Configure(cfg ExtrudeConfig) error {
	err := cfg.Validate()
	if err != nil {
		return err
	}
	f.reset()
	f.cfg = cfg
	return nil
}

// Config returns the extrusion parameters in use.
func (f *Font) Config() ExtrudeConfig {
	if f.cfg == (ExtrudeConfig{}) {
		return DefaultExtrudeConfig()
	}
	return f.cfg
}

// LoadTTFBytes loads a TTF file blob into f. After calling Load the Font is ready to generate glyph meshes.
func (f *Font) LoadTTFBytes(ttf []byte) error {
	font, err := truetype.Parse(ttf)
	if err != nil {
		return err
	}
	f.reset()
	f.ttf = *font
	f.loaded = true
	return nil
}

// reset resets cached glyphs of Font without removing underlying assigned font.
func (f *Font) reset() {
	for i := range f.basicGlyphs {
		f.basicGlyphs[i] = nil
	}
	if f.otherGlyphs == nil {
		f.otherGlyphs = make(map[rune][]Shape)
	} else {
		clear(f.otherGlyphs)
	}
}

// Kern returns the horizontal adjustment for the given glyph pair in output units.
// A positive kern means to move the glyphs further apart.
func (f *Font) Kern(c0, c1 rune) float32 {
	return float32(f.ttf.Kern(f.scale(), f.ttf.Index(c0), f.ttf.Index(c1))) * f.scaleout()
}

// AdvanceWidth returns the horizontal advance of a glyph in output units.
func (f *Font) AdvanceWidth(c rune) float32 {
	return float32(f.ttf.HMetric(f.scale(), f.ttf.Index(c)).AdvanceWidth) * f.scaleout()
}

// Outline returns the flattened shapes of a glyph. Curves are sampled with the
// configured number of curve segments and coordinates are scaled so that one em equals the configured Size.
// The returned slice is shared with the Font's cache and must not be modified.
func (f *Font) Outline(c rune) (_ []Shape, err error) {
	if !f.loaded {
		return nil, errors.New("font not loaded")
	} else if !unicode.IsGraphic(c) {
		return nil, fmt.Errorf("char %q not graphic", c)
	} else if unicode.IsSpace(c) {
		return nil, fmt.Errorf("char %q is whitespace", c)
	}
	if c >= firstBasic && c <= lastBasic {
		// Basic ASCII glyph case.
		shapes := f.basicGlyphs[c-firstBasic]
		if shapes == nil {
			shapes, err = f.makeGlyph(c)
			if err != nil {
				return nil, err
			}
			f.basicGlyphs[c-firstBasic] = shapes
		}
		return shapes, nil
	}
	if f.otherGlyphs == nil {
		f.otherGlyphs = make(map[rune][]Shape)
	}
	shapes, ok := f.otherGlyphs[c]
	if !ok {
		shapes, err = f.makeGlyph(c)
		if err != nil {
			return nil, err
		}
		f.otherGlyphs[c] = shapes
	}
	return shapes, nil
}

// scale is chosen so that loaded glyph points are in font units.
func (f *Font) scale() fixed.Int26_6 {
	return fixed.Int26_6(f.ttf.FUnitsPerEm())
}

// scaleout converts font units to output units.
func (f *Font) scaleout() float32 {
	return f.Config().Size / float32(f.ttf.FUnitsPerEm())
}

func (f *Font) makeGlyph(char rune) ([]Shape, error) {
	g := &f.gb
	idx := f.ttf.Index(char)
	if idx == 0 {
		return nil, fmt.Errorf("font has no glyph for %q", char)
	}
	err := g.Load(&f.ttf, f.scale(), idx, font.HintingNone)
	if err != nil {
		return nil, err
	}
	if len(g.Ends) == 0 {
		return nil, fmt.Errorf("glyph %q has no contours", char)
	}
	cfg := f.Config()
	scaleout := f.scaleout()
	var contours [][]ms2.Vec
	start := 0
	for _, end := range g.Ends {
		poly := flattenContour(nil, g.Points[start:end], scaleout, cfg.CurveSegments)
		start = end
		poly = cleanRing(poly)
		if len(poly) >= 3 {
			contours = append(contours, poly)
		}
	}
	shapes := assembleShapes(contours)
	if len(shapes) == 0 {
		return nil, fmt.Errorf("glyph %q has no fillable contours", char)
	}
	return shapes, nil
}

// flattenContour appends the points of a closed TrueType contour to dst. Quadratic
// segments are sampled at segments evenly spaced parameter steps. Consecutive off
// curve points imply an on curve point at their midpoint.
func flattenContour(dst []ms2.Vec, points []truetype.Point, scale float32, segments int) []ms2.Vec {
	n := len(points)
	if n == 0 {
		return dst
	}
	first := -1
	for i := range points {
		if onCurve(points[i]) {
			first = i
			break
		}
	}
	var (
		start ms2.Vec
		k0    int
		count int
	)
	if first >= 0 {
		start = p2v(points[first], scale)
		k0 = first + 1
		count = n - 1
	} else {
		// Only off curve points: start at an implicit midpoint.
		start = midpoint(p2v(points[n-1], scale), p2v(points[0], scale))
		count = n
	}
	startLen := len(dst)
	dst = append(dst, start)
	cur := start
	var ctrl ms2.Vec
	hasCtrl := false
	for j := 0; j < count; j++ {
		p := points[(k0+j)%n]
		v := p2v(p, scale)
		if onCurve(p) {
			if hasCtrl {
				dst = appendQuad(dst, cur, ctrl, v, segments)
				hasCtrl = false
			} else {
				dst = append(dst, v)
			}
			cur = v
			continue
		}
		if hasCtrl {
			mid := midpoint(ctrl, v)
			dst = appendQuad(dst, cur, ctrl, mid, segments)
			cur = mid
		}
		ctrl = v
		hasCtrl = true
	}
	if hasCtrl {
		dst = appendQuad(dst, cur, ctrl, start, segments)
	}
	if len(dst)-startLen > 1 && dst[len(dst)-1] == dst[startLen] {
		dst = dst[:len(dst)-1]
	}
	return dst
}

// appendQuad appends samples of the quadratic bezier p0,p1,p2 excluding p0.
func appendQuad(dst []ms2.Vec, p0, p1, p2 ms2.Vec, segments int) []ms2.Vec {
	for i := 1; i <= segments; i++ {
		t := float32(i) / float32(segments)
		mt := 1 - t
		v := ms2.Add(ms2.Scale(mt*mt, p0), ms2.Add(ms2.Scale(2*mt*t, p1), ms2.Scale(t*t, p2)))
		dst = append(dst, v)
	}
	return dst
}

func onCurve(p truetype.Point) bool { return p.Flags&1 != 0 }

func midpoint(a, b ms2.Vec) ms2.Vec { return ms2.Scale(0.5, ms2.Add(a, b)) }

func p2v(p truetype.Point, scale float32) ms2.Vec {
	return ms2.Vec{
		X: float32(p.X) * scale,
		Y: float32(p.Y) * scale,
	}
}

// assembleShapes classifies contours as outers or holes. Contours wound like the
// largest contour are outers; the rest are holes assigned to the smallest outer containing them.
func assembleShapes(contours [][]ms2.Vec) []Shape {
	if len(contours) == 0 {
		return nil
	}
	areas := make([]float32, len(contours))
	largest := 0
	for i, c := range contours {
		areas[i] = signedArea(c)
		if math32.Abs(areas[i]) > math32.Abs(areas[largest]) {
			largest = i
		}
	}
	outerNeg := areas[largest] < 0
	var shapes []Shape
	var outerAreas []float32
	var holes [][]ms2.Vec
	for i, c := range contours {
		if areas[i] == 0 {
			continue
		}
		if (areas[i] < 0) == outerNeg {
			if areas[i] < 0 {
				c = reversed(c)
			}
			shapes = append(shapes, Shape{Outer: c})
			outerAreas = append(outerAreas, math32.Abs(areas[i]))
			continue
		}
		if areas[i] > 0 {
			c = reversed(c)
		}
		holes = append(holes, c)
	}
	for _, h := range holes {
		best := -1
		for i := range shapes {
			if pointInPolygon(h[0], shapes[i].Outer) && (best < 0 || outerAreas[i] < outerAreas[best]) {
				best = i
			}
		}
		if best < 0 {
			// Orphan hole: fill it as its own region.
			shapes = append(shapes, Shape{Outer: reversed(h)})
			outerAreas = append(outerAreas, math32.Abs(signedArea(h)))
			continue
		}
		shapes[best].Holes = append(shapes[best].Holes, h)
	}
	return shapes
}

// signedArea is positive for counter-clockwise contours.
func signedArea(c []ms2.Vec) float32 {
	var sum float32
	for i := range c {
		a, b := c[i], c[(i+1)%len(c)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

func reversed(c []ms2.Vec) []ms2.Vec {
	r := make([]ms2.Vec, len(c))
	for i := range c {
		r[len(c)-1-i] = c[i]
	}
	return r
}

// pointInPolygon uses the even-odd rule.
func pointInPolygon(p ms2.Vec, poly []ms2.Vec) bool {
	inside := false
	j := len(poly) - 1
	for i := range poly {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// cleanRing removes repeated and collinear vertices of a closed contour.
func cleanRing(c []ms2.Vec) []ms2.Vec {
	out := c[:0:0]
	for _, v := range c {
		if len(out) > 0 && out[len(out)-1] == v {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	for changed := true; changed && len(out) >= 3; {
		changed = false
		for i := 0; i < len(out) && len(out) >= 3; i++ {
			n := len(out)
			a, b, c := out[(i+n-1)%n], out[i], out[(i+1)%n]
			if cross(a, b, c) == 0 {
				out = append(out[:i], out[i+1:]...)
				changed = true
				i--
			}
		}
	}
	return out
}

// cross returns the z component of (b-a)x(c-b). Positive for a left turn.
func cross(a, b, c ms2.Vec) float32 {
	return (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
}
