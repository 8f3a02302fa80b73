package gleval

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// Fragment holds the interpolated fragment stage inputs of a single pixel sample.
type Fragment struct {
	// Position is the view space position of the sample. The camera sits at the origin looking down -Z.
	Position ms3.Vec
	// Normal is the unit length view space normal, already transformed by the normal matrix.
	Normal ms3.Vec
	// Local is the model space position of the sample before any transformation.
	Local ms3.Vec
}

// RGBA is a linear color as written by a fragment stage. Components may exceed 1 before
// the framebuffer clamps them.
type RGBA struct {
	R, G, B, A float32
}

// RGB returns the color components as a vector.
func (c RGBA) RGB() ms3.Vec { return ms3.Vec{X: c.R, Y: c.G, Z: c.B} }

// Clamp returns c with every component clamped to 0..1, as the framebuffer would store it.
func (c RGBA) Clamp() RGBA {
	return RGBA{
		R: ms1.Clamp(c.R, 0, 1),
		G: ms1.Clamp(c.G, 0, 1),
		B: ms1.Clamp(c.B, 0, 1),
		A: ms1.Clamp(c.A, 0, 1),
	}
}

// NewRGBA returns an RGBA from a vector and an alpha value.
func NewRGBA(rgb ms3.Vec, alpha float32) RGBA {
	return RGBA{R: rgb.X, G: rgb.Y, B: rgb.Z, A: alpha}
}

// Shader implements a fragment stage in vectorized form so that it can be checked
// against the GPU program without a GL context.
type Shader interface {
	// EvaluateFragments shades frags and stores the resulting colors in dst.
	// dst and frags must be of same length.
	//
	// userData facilitates passing auxiliary data to the evaluator.
	EvaluateFragments(frags []Fragment, dst []RGBA, userData any) error
}

var (
	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("fragment and color buffer length mismatch")
)

// CPUShader wraps a [Shader] and counts evaluations.
type CPUShader struct {
	s     Shader
	evals uint64
}

// NewCPUShader returns a CPU evaluator for s. s must implement [Shader].
func NewCPUShader(s any) (*CPUShader, error) {
	if s == nil {
		return nil, errors.New("nil shader")
	}
	sh, ok := s.(Shader)
	if !ok {
		return nil, fmt.Errorf("%T does not implement gleval.Shader", s)
	}
	return &CPUShader{s: sh}, nil
}

// EvaluateFragments implements [Shader].
func (cs *CPUShader) EvaluateFragments(frags []Fragment, dst []RGBA, userData any) error {
	if len(frags) != len(dst) {
		return errMismatchBufferLength
	} else if len(frags) == 0 {
		return errEmptyBuffers
	}
	err := cs.s.EvaluateFragments(frags, dst, userData)
	if err != nil {
		return err
	}
	cs.evals += uint64(len(frags))
	return nil
}

// Evaluations returns the total of fragments shaded successfully.
func (cs *CPUShader) Evaluations() uint64 { return cs.evals }

// ShadeOne is a convenience for shading a single fragment.
func ShadeOne(s Shader, frag Fragment, userData any) (RGBA, error) {
	var dst [1]RGBA
	err := s.EvaluateFragments([]Fragment{frag}, dst[:], userData)
	return dst[0], err
}

// NormalMatrix returns the inverse transpose of the upper 3x3 of modelView.
func NormalMatrix(modelView mgl32.Mat4) mgl32.Mat3 {
	return modelView.Mat3().Inv().Transpose()
}

// TransformVertex applies the vertex stage shared by all materials: position is
// moved into view space and the normal is transformed with the normal matrix.
func TransformVertex(modelView mgl32.Mat4, local, normal ms3.Vec) Fragment {
	p := modelView.Mul4x1(mgl32.Vec4{local.X, local.Y, local.Z, 1})
	n := NormalMatrix(modelView).Mul3x1(mgl32.Vec3{normal.X, normal.Y, normal.Z}).Normalize()
	return Fragment{
		Position: ms3.Vec{X: p[0], Y: p[1], Z: p[2]},
		Normal:   ms3.Vec{X: n[0], Y: n[1], Z: n[2]},
		Local:    local,
	}
}

// Reflect returns the reflection of incident direction i about the unit normal n, as GLSL's reflect.
func Reflect(i, n ms3.Vec) ms3.Vec {
	return ms3.Sub(i, ms3.Scale(2*ms3.Dot(n, i), n))
}
