package textmesh

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms2"
	"github.com/soypat/glyphglow/glrender"
)

func goRegular(t *testing.T) *Font {
	t.Helper()
	f, err := Open(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestOutlineSceneGlyphs(t *testing.T) {
	f := goRegular(t)
	for _, c := range []rune{'e', '4'} {
		shapes, err := f.Outline(c)
		if err != nil {
			t.Fatal(err)
		}
		if len(shapes) != 1 {
			t.Fatalf("%q: want 1 shape, got %d", c, len(shapes))
		}
		s := shapes[0]
		if c == 'e' && len(s.Holes) != 1 {
			t.Errorf("%q: want 1 hole, got %d", c, len(s.Holes))
		}
		if signedArea(s.Outer) <= 0 {
			t.Errorf("%q: outer contour not counter-clockwise", c)
		}
		for _, h := range s.Holes {
			if signedArea(h) >= 0 {
				t.Errorf("%q: hole not clockwise", c)
			}
		}
		for _, v := range s.Outer {
			if v.X < -0.1 || v.X > 1 || v.Y < -0.1 || v.Y > 1 {
				t.Fatalf("%q: vertex %v outside of one em", c, v)
			}
		}
	}
	// Cached outlines are reused.
	a, _ := f.Outline('e')
	b, _ := f.Outline('e')
	if &a[0] != &b[0] {
		t.Error("expected cached outline")
	}
}

func TestOutlineErrors(t *testing.T) {
	var unloaded Font
	if _, err := unloaded.Outline('e'); err == nil {
		t.Error("expected error for unloaded font")
	}
	f := goRegular(t)
	for _, c := range []rune{' ', '\t', '\n', 0x7f} {
		if _, err := f.ExtrudeGlyph(c); err == nil {
			t.Errorf("expected error for %q", c)
		}
	}
}

func TestTriangulateSquareWithHole(t *testing.T) {
	outer, hole := squareWithHole()
	tris, err := Triangulate(nil, outer, [][]ms2.Vec{hole})
	if err != nil {
		t.Fatal(err)
	}
	var area float32
	for i, tri := range tris {
		a := orient(tri[0], tri[1], tri[2]) / 2
		if a <= 0 {
			t.Errorf("triangle %d not counter-clockwise: %v", i, tri)
		}
		area += a
	}
	const want = 16 - 4
	if math32.Abs(area-want) > 1e-4 {
		t.Errorf("want area %g, got %g", float32(want), area)
	}
}

func TestTriangulateGlyphCaps(t *testing.T) {
	f := goRegular(t)
	for _, c := range []rune{'e', '4', '8', 'B', 'g', '%'} {
		shapes, err := f.Outline(c)
		if err != nil {
			t.Fatal(err)
		}
		for _, s := range shapes {
			tris, err := Triangulate(nil, s.Outer, s.Holes)
			if err != nil {
				t.Fatalf("%q: %s", c, err)
			}
			want := signedArea(s.Outer)
			for _, h := range s.Holes {
				want += signedArea(h)
			}
			var got float32
			for _, tri := range tris {
				a := orient(tri[0], tri[1], tri[2]) / 2
				if a < 0 {
					t.Fatalf("%q: clockwise triangle %v", c, tri)
				}
				got += a
			}
			if math32.Abs(got-want) > 1e-3*want {
				t.Errorf("%q: want cap area %g, got %g", c, want, got)
			}
		}
	}
}

func TestExtrudeShapesClosed(t *testing.T) {
	outer, hole := squareWithHole()
	shapes := []Shape{{Outer: outer, Holes: [][]ms2.Vec{hole}}}
	cfgs := []ExtrudeConfig{
		{Size: 1, Depth: 0.5, CurveSegments: 1},
		DefaultExtrudeConfig(),
	}
	for _, cfg := range cfgs {
		mesh, err := ExtrudeShapes(shapes, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if err := checkClosed(mesh); err != "" {
			t.Errorf("bevel=%v: %s", cfg.BevelEnabled, err)
		}
	}
	mesh, _ := ExtrudeShapes(shapes, cfgs[0])
	vol := volume(mesh)
	if math32.Abs(vol-12*0.5) > 1e-4 {
		t.Errorf("want volume 6, got %g", vol)
	}
}

func TestExtrudeGlyphVolume(t *testing.T) {
	f := goRegular(t)
	cfg := DefaultExtrudeConfig()
	cfg.BevelEnabled = false
	err := f.Configure(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []rune{'e', '4'} {
		shapes, err := f.Outline(c)
		if err != nil {
			t.Fatal(err)
		}
		var capArea float32
		for _, s := range shapes {
			capArea += signedArea(s.Outer)
			for _, h := range s.Holes {
				capArea += signedArea(h)
			}
		}
		mesh, err := f.ExtrudeGlyph(c)
		if err != nil {
			t.Fatal(err)
		}
		want := capArea * cfg.Depth
		got := volume(mesh)
		if math32.Abs(got-want) > 0.01*want {
			t.Errorf("%q: want volume %g, got %g", c, want, got)
		}
	}
}

func TestExtrudeGlyphBevelBounds(t *testing.T) {
	f := goRegular(t)
	mesh, err := f.ExtrudeGlyph('4')
	if err != nil {
		t.Fatal(err)
	}
	cfg := f.Config()
	bb := mesh.Bounds()
	const tol = 1e-5
	if math32.Abs(bb.Min.Z+cfg.BevelThickness) > tol || math32.Abs(bb.Max.Z-(cfg.Depth+cfg.BevelThickness)) > tol {
		t.Errorf("unexpected z extent %v..%v", bb.Min.Z, bb.Max.Z)
	}
	if mesh.Len() == 0 {
		t.Error("empty mesh")
	}
}

func TestExtrudeConfigValidate(t *testing.T) {
	if err := DefaultExtrudeConfig().Validate(); err != nil {
		t.Fatal(err)
	}
	bad := DefaultExtrudeConfig()
	bad.Depth = 0
	bad.BevelSegments = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error")
	}
	var f Font
	if err := f.Configure(bad); err == nil {
		t.Error("expected Configure to reject config")
	}
}

func TestOpenSources(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "go.ttf")
	err := os.WriteFile(path, GoRegularTTF(), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(ctx, path); err != nil {
		t.Error(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/go.ttf" {
			http.NotFound(w, r)
			return
		}
		w.Write(GoRegularTTF())
	}))
	defer srv.Close()
	if _, err := Open(ctx, srv.URL+"/go.ttf"); err != nil {
		t.Error(err)
	}
	if _, err := Open(ctx, srv.URL+"/missing.ttf"); err == nil {
		t.Error("expected error for missing font")
	}
	if _, err := Open(ctx, filepath.Join(t.TempDir(), "nofont.ttf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func squareWithHole() (outer, hole []ms2.Vec) {
	outer = []ms2.Vec{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}
	hole = []ms2.Vec{{X: 1, Y: 1}, {X: 1, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 1}}
	return outer, hole
}

// volume uses the divergence theorem and is only meaningful for closed meshes.
func volume(m glrender.Mesh) float32 {
	var v float32
	for _, t := range m.Triangles {
		v += ms3.Dot(t[0], ms3.Cross(t[1], t[2])) / 6
	}
	return v
}

// checkClosed verifies every directed edge is matched by its reverse.
func checkClosed(m glrender.Mesh) string {
	type edge struct{ a, b ms3.Vec }
	count := make(map[edge]int)
	for _, t := range m.Triangles {
		for i := range t {
			count[edge{t[i], t[(i+1)%3]}]++
		}
	}
	for e, n := range count {
		if count[edge{e.b, e.a}] != n {
			return fmt.Sprintf("unmatched edge %v -> %v", e.a, e.b)
		}
	}
	return ""
}
