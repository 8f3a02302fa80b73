package glyphglow

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glyphglow/gleval"
)

var errMismatchBufferLength = errors.New("fragment and color buffer length mismatch")

// EvaluateFragments implements [gleval.Shader] with the formulas of the material's
// fragment stage. Colors are clamped to 0..1 as the framebuffer stores them.
func (m *Material) EvaluateFragments(frags []gleval.Fragment, dst []gleval.RGBA, userData any) error {
	if len(frags) != len(dst) {
		return errMismatchBufferLength
	}
	switch m.model {
	case ModelFlat:
		color, err := m.vecUniform(UniformColor)
		if err != nil {
			return err
		}
		c := gleval.NewRGBA(color, 1).Clamp()
		for i := range dst {
			dst[i] = c
		}

	case ModelGradient:
		for i, f := range frags {
			rgb := ms3.AddScalar(0.5, ms3.Scale(0.5, f.Local))
			dst[i] = gleval.NewRGBA(rgb, 1).Clamp()
		}

	case ModelPhongReflect, ModelPhongHalfway:
		color, err := m.vecUniform(UniformColor)
		if err != nil {
			return err
		}
		light, err := m.vecUniform(UniformLightPosition)
		if err != nil {
			return err
		}
		ambientIntensity, err := m.floatUniform(UniformAmbientIntensity)
		if err != nil {
			return err
		}
		ambient := ms3.Scale(ambientIntensity, color)
		for i, f := range frags {
			n := f.Normal
			lightDir := ms3.Unit(ms3.Sub(light, f.Position))
			diffuse := ms3.Scale(math32.Max(ms3.Dot(n, lightDir), 0), color)
			viewDir := ms3.Unit(ms3.Scale(-1, f.Position))
			var specular ms3.Vec
			if m.model == ModelPhongReflect {
				reflectDir := gleval.Reflect(ms3.Scale(-1, lightDir), n)
				spec := math32.Pow(math32.Max(ms3.Dot(viewDir, reflectDir), 0), m.shininess)
				specular = ms3.Scale(reflectSpecularScale*spec, ms3.Vec{X: 1, Y: 1, Z: 1})
			} else {
				halfDir := ms3.Unit(ms3.Add(lightDir, viewDir))
				spec := math32.Pow(math32.Max(ms3.Dot(n, halfDir), 0), m.shininess)
				specular = ms3.Scale(spec, color)
			}
			rgb := ms3.Add(ambient, ms3.Add(diffuse, specular))
			dst[i] = gleval.NewRGBA(rgb, 1).Clamp()
		}

	case ModelRimGlow:
		time, err := m.floatUniform(UniformTime)
		if err != nil {
			return err
		}
		g := m.glow
		alpha := g.Base + g.Amplitude*math32.Sin(time)
		for i, f := range frags {
			// Dot with the view axis (0,0,1).
			intensity := math32.Pow(math32.Max(0.5-f.Normal.Z, 0), g.Power)
			v := g.Brightness * intensity
			dst[i] = gleval.RGBA{R: v, G: v, B: v, A: alpha}.Clamp()
		}

	default:
		return fmt.Errorf("invalid shading model %s", m.model)
	}
	return nil
}

// GlowAlpha returns the alpha of a rim glow material at the given time.
func (m *Material) GlowAlpha(time float32) float32 {
	return m.glow.Base + m.glow.Amplitude*math32.Sin(time)
}

func (m *Material) vecUniform(name string) (ms3.Vec, error) {
	v, ok := m.UniformVec(name)
	if !ok {
		return ms3.Vec{}, fmt.Errorf("%s material: missing vec3 uniform %q", m.name, name)
	}
	return v, nil
}

func (m *Material) floatUniform(name string) (float32, error) {
	v, ok := m.UniformFloat(name)
	if !ok {
		return 0, fmt.Errorf("%s material: missing float uniform %q", m.name, name)
	}
	return v, nil
}
