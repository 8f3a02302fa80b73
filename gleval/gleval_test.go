package gleval

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
)

const tol = 1e-5

func TestTransformVertexNonUniformScale(t *testing.T) {
	mv := mgl32.Translate3D(0, 0, -5).Mul4(mgl32.Scale3D(2, 1, 1))
	normal := ms3.Unit(ms3.Vec{X: 1, Y: 1})
	tangent := ms3.Vec{X: 1, Y: -1}

	frag := TransformVertex(mv, ms3.Vec{}, normal)
	if math32.Abs(frag.Position.Z+5) > tol {
		t.Errorf("want view position z=-5, got %v", frag.Position)
	}
	// Tangent vectors transform with the model-view itself.
	tv := mv.Mat3().Mul3x1(mgl32.Vec3{tangent.X, tangent.Y, tangent.Z})
	d := ms3.Dot(frag.Normal, ms3.Vec{X: tv[0], Y: tv[1], Z: tv[2]})
	if math32.Abs(d) > tol {
		t.Errorf("normal not perpendicular to transformed surface, dot=%g", d)
	}
	if math32.Abs(ms3.Norm(frag.Normal)-1) > tol {
		t.Errorf("normal not unit length: %v", frag.Normal)
	}
}

func TestReflect(t *testing.T) {
	n := ms3.Vec{Y: 1}
	got := Reflect(ms3.Vec{X: 1, Y: -1}, n)
	want := ms3.Vec{X: 1, Y: 1}
	if ms3.Norm(ms3.Sub(got, want)) > tol {
		t.Errorf("want %v, got %v", want, got)
	}
}

type constShader RGBA

func (c constShader) EvaluateFragments(frags []Fragment, dst []RGBA, userData any) error {
	for i := range dst {
		dst[i] = RGBA(c)
	}
	return nil
}

func TestCPUShader(t *testing.T) {
	if _, err := NewCPUShader(3); err == nil {
		t.Fatal("expected error for non shader")
	}
	cs, err := NewCPUShader(constShader{R: 1, A: 1})
	if err != nil {
		t.Fatal(err)
	}
	err = cs.EvaluateFragments(make([]Fragment, 2), make([]RGBA, 3), nil)
	if err != errMismatchBufferLength {
		t.Errorf("want length mismatch error, got %v", err)
	}
	dst := make([]RGBA, 4)
	err = cs.EvaluateFragments(make([]Fragment, 4), dst, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cs.Evaluations() != 4 {
		t.Errorf("want 4 evaluations, got %d", cs.Evaluations())
	}
	if dst[3] != (RGBA{R: 1, A: 1}) {
		t.Errorf("unexpected color %v", dst[3])
	}
}

func TestClamp(t *testing.T) {
	c := RGBA{R: 1.5, G: -0.2, B: 0.5, A: 2}.Clamp()
	if c != (RGBA{R: 1, G: 0, B: 0.5, A: 1}) {
		t.Errorf("unexpected clamp result %v", c)
	}
}
