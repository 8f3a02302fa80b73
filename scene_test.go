package glyphglow

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glyphglow/gleval"
	"github.com/soypat/glyphglow/glrender"
)

// boxMesher returns a small box for every glyph.
type boxMesher struct {
	calls []rune
	err   error
}

func (bm *boxMesher) ExtrudeGlyph(c rune) (glrender.Mesh, error) {
	bm.calls = append(bm.calls, c)
	if bm.err != nil {
		return glrender.Mesh{}, bm.err
	}
	return glrender.NewBox(0.6, 0.7, 0.2)
}

func newTestScene(t *testing.T, v Variant) *Scene {
	t.Helper()
	s, err := NewScene(SceneConfig{Variant: v}, &boxMesher{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSceneLayout(t *testing.T) {
	for _, v := range Variants() {
		s := newTestScene(t, v)
		objs := s.Objects()
		if objs[0].Name != "e" || objs[0].Position != (ms3.Vec{X: -2}) {
			t.Errorf("%s: unexpected left glyph %q at %v", v, objs[0].Name, objs[0].Position)
		}
		if objs[1].Name != "4" || objs[1].Position != (ms3.Vec{X: 2}) {
			t.Errorf("%s: unexpected right glyph %q at %v", v, objs[1].Name, objs[1].Position)
		}
		hasGlow := s.Glow() != nil
		if hasGlow != v.HasGlow() {
			t.Errorf("%s: glow presence %v", v, hasGlow)
		}
		wantObjs := 2
		if hasGlow {
			wantObjs = 3
			if objs[2] != s.Glow() || s.Glow().Position != (ms3.Vec{}) {
				t.Errorf("%s: glow cube must be drawn last at the origin", v)
			}
			if s.Glow().Mesh.Bounds().Size() != (ms3.Vec{X: 1, Y: 1, Z: 1}) {
				t.Errorf("%s: glow cube is not a unit cube", v)
			}
		}
		if len(objs) != wantObjs {
			t.Errorf("%s: want %d objects, got %d", v, wantObjs, len(objs))
		}
		cam := s.Camera()
		if cam.FOV != 75 || cam.Near != 0.1 || cam.Far != 1000 || cam.Position != (ms3.Vec{Z: 5}) {
			t.Errorf("%s: unexpected camera %+v", v, cam)
		}
		for _, m := range s.Materials() {
			if err := m.Validate(); err != nil {
				t.Errorf("%s: %v", v, err)
			}
		}
	}
}

func TestSceneMaterialSharing(t *testing.T) {
	grad := newTestScene(t, VariantGradient).Objects()
	if grad[0].Material != grad[1].Material {
		t.Error("gradient glyphs must share one material")
	}
	flat := newTestScene(t, VariantFlat).Objects()
	if flat[0].Material == flat[1].Material {
		t.Error("flat glyphs must own distinct materials")
	}
	c0, _ := flat[0].Material.UniformVec(UniformColor)
	c1, _ := flat[1].Material.UniformVec(UniformColor)
	if c0 != RGB(ColorLime) || c1 != RGB(ColorPurple) {
		t.Errorf("unexpected flat colors %v %v", c0, c1)
	}
	phong := newTestScene(t, VariantPhong).Objects()
	if phong[0].Material.Model() != ModelPhongReflect || phong[1].Material.Model() != ModelPhongHalfway {
		t.Error("unexpected phong glyph models")
	}
}

func TestPhongSceneTicks(t *testing.T) {
	s := newTestScene(t, VariantPhong)
	for i := 0; i < 20; i++ {
		s.Tick()
	}
	st := s.State()
	if st.Frame != 20 || math.Abs(st.Time-1) > tol {
		t.Errorf("after 20 ticks want time 1.0, got %g (frame %d)", st.Time, st.Frame)
	}
	time, _ := s.Glow().Material.UniformFloat(UniformTime)
	if time != float32(st.Time) {
		t.Errorf("glow time uniform %g != state time %g", time, st.Time)
	}
	checkLight := func(want ms3.Vec) {
		t.Helper()
		for _, o := range s.Objects()[:2] {
			got, ok := o.Material.UniformVec(UniformLightPosition)
			if !ok || got != want {
				t.Errorf("glyph %s: want light at %v, got %v", o.Name, want, got)
			}
		}
	}
	checkLight(ms3.Vec{})

	moved := ms3.Vec{X: 1, Y: 2, Z: 3}
	s.Glow().Position = moved
	checkLight(ms3.Vec{}) // Not until the next tick.
	s.Tick()
	checkLight(moved)
	if s.State().LightPosition != moved {
		t.Errorf("state light %v", s.State().LightPosition)
	}
	// The light is a copy: moving the cube again does not alias the uniform.
	s.Glow().Position = ms3.Vec{}
	checkLight(moved)
}

func TestTimeMonotonic(t *testing.T) {
	s := newTestScene(t, VariantPhongSubtle)
	prev := s.State().Time
	for i := 0; i < 10000; i++ {
		s.Tick()
		now := s.State().Time
		if now < prev {
			t.Fatalf("time decreased at tick %d: %g < %g", i, now, prev)
		}
		prev = now
	}
}

func TestStaticScenes(t *testing.T) {
	for _, v := range []Variant{VariantFlat, VariantGradient} {
		s := newTestScene(t, v)
		snapshot := func() map[string]any {
			u := make(map[string]any)
			for i, m := range s.Materials() {
				for _, name := range m.UniformNames() {
					if name == UniformTime || name == UniformLightPosition {
						t.Errorf("%s: material %d reads %q", v, i, name)
					}
					u[fmt.Sprintf("%d/%s", i, name)], _ = m.Uniform(name)
				}
			}
			return u
		}
		before := snapshot()
		for i := 0; i < 10; i++ {
			s.Tick()
		}
		after := snapshot()
		for k, val := range before {
			if after[k] != val {
				t.Errorf("%s: uniform %s changed from %v to %v", v, k, val, after[k])
			}
		}
		if s.State().Time != 0 {
			t.Errorf("%s: time advanced without animated materials", v)
		}
	}
}

func TestTimeNoDrift(t *testing.T) {
	s := newTestScene(t, VariantPhong)
	glow := s.Glow().Material
	for n := 1; n <= 1_000_000; n++ {
		s.Tick()
		if n%1000 != 0 {
			continue
		}
		want := TimeStep * float64(n)
		got := s.State().Time
		if math.Abs(got-want) > 1e-9*want {
			t.Fatalf("tick %d: want time %g, got %g", n, want, got)
		}
		uniform, _ := glow.UniformFloat(UniformTime)
		if uniform != float32(got) {
			t.Fatalf("tick %d: time uniform %g not narrowed from %g", n, uniform, got)
		}
	}
}

func TestAdvance(t *testing.T) {
	st := FrameState{Frame: 3, Time: 1, LightPosition: ms3.Vec{X: 9}}
	next := Advance(st, ms3.Vec{Y: 1}, TimeStep)
	if next.Frame != 4 || math.Abs(next.Time-1.05) > 1e-12 || next.LightPosition != (ms3.Vec{Y: 1}) {
		t.Errorf("unexpected state %+v", next)
	}
	if st.Frame != 3 {
		t.Error("Advance modified its argument")
	}
}

func TestNewSceneErrors(t *testing.T) {
	if _, err := NewScene(SceneConfig{}, nil); err == nil {
		t.Error("expected error for nil mesher")
	}
	if _, err := NewScene(SceneConfig{Variant: numVariants}, &boxMesher{}); err == nil {
		t.Error("expected error for invalid variant")
	}
	if _, err := NewScene(SceneConfig{Aspect: -1}, &boxMesher{}); err == nil {
		t.Error("expected error for negative aspect")
	}
	boom := errors.New("boom")
	bm := &boxMesher{err: boom}
	_, err := NewScene(SceneConfig{}, bm)
	if !errors.Is(err, boom) {
		t.Errorf("want wrapped mesher error, got %v", err)
	}
	if len(bm.calls) != 1 || bm.calls[0] != 'e' {
		t.Errorf("unexpected mesher calls %q", bm.calls)
	}
}

func TestParseVariant(t *testing.T) {
	for _, v := range Variants() {
		got, err := ParseVariant(v.String())
		if err != nil || got != v {
			t.Errorf("%s: got %s, %v", v, got, err)
		}
	}
	if _, err := ParseVariant("toon"); err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestCameraProjection(t *testing.T) {
	s := newTestScene(t, VariantPhong)
	cam := s.Camera()
	mvp := cam.Projection().Mul4(cam.View())
	origin := mvp.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if math32.Abs(origin[0]) > tol || math32.Abs(origin[1]) > tol || math32.Abs(origin[3]-5) > tol {
		t.Errorf("origin should project to screen center at depth 5, got %v", origin)
	}
	for _, o := range s.Objects()[:2] {
		clip := cam.Projection().Mul4(o.ModelView(cam)).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
		ndcX := clip[0] / clip[3]
		if ndcX < -1 || ndcX > 1 || (ndcX < 0) != (o.Position.X < 0) {
			t.Errorf("glyph %s projects to ndc x=%g", o.Name, ndcX)
		}
	}
}

func TestGlyphShadingInViewSpace(t *testing.T) {
	s := newTestScene(t, VariantPhong)
	cam := s.Camera()
	for _, o := range s.Objects() {
		mv := o.ModelView(cam)
		var frags []gleval.Fragment
		for _, tri := range o.Mesh.Triangles {
			n := glrender.TriangleNormal(tri)
			for _, v := range tri {
				frags = append(frags, gleval.TransformVertex(mv, v, n))
			}
		}
		cs, err := gleval.NewCPUShader(o.Material)
		if err != nil {
			t.Fatal(err)
		}
		dst := make([]gleval.RGBA, len(frags))
		err = cs.EvaluateFragments(frags, dst, nil)
		if err != nil {
			t.Fatal(err)
		}
		for i, c := range dst {
			if math32.IsNaN(c.R+c.G+c.B+c.A) || c.A < 0.4-tol || c.A > 1 {
				t.Fatalf("%s: bad color %v for fragment %+v", o.Name, c, frags[i])
			}
		}
	}
}
