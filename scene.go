package glyphglow

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glyphglow/glrender"
)

// Camera defaults.
const (
	DefaultFOV    = 75
	DefaultNear   = 0.1
	DefaultFar    = 1000
	DefaultAspect = 800.0 / 600.0
	cameraZ       = 5
)

// GlyphMesher produces the extruded solid of a single character.
type GlyphMesher interface {
	ExtrudeGlyph(c rune) (glrender.Mesh, error)
}

// Camera is a perspective camera looking down -Z from Position.
type Camera struct {
	// FOV is the vertical field of view in degrees.
	FOV      float32
	Aspect   float32
	Near     float32
	Far      float32
	Position ms3.Vec
}

// View returns the world to view transform.
func (c Camera) View() mgl32.Mat4 {
	eye := mgl32.Vec3{c.Position.X, c.Position.Y, c.Position.Z}
	center := eye.Sub(mgl32.Vec3{0, 0, 1})
	return mgl32.LookAtV(eye, center, mgl32.Vec3{0, 1, 0})
}

// Projection returns the view to clip transform.
func (c Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// Object pairs a mesh with the material it is drawn with. Position is a
// translation applied to the mesh's model space.
type Object struct {
	Name     string
	Mesh     glrender.Mesh
	Material *Material
	Position ms3.Vec
}

// Model returns the model to world transform.
func (o *Object) Model() mgl32.Mat4 {
	return mgl32.Translate3D(o.Position.X, o.Position.Y, o.Position.Z)
}

// ModelView returns the model to view transform for the camera.
func (o *Object) ModelView(c Camera) mgl32.Mat4 {
	return c.View().Mul4(o.Model())
}

// FrameState is the animation state shared by all materials.
type FrameState struct {
	// Frame counts ticks since the scene entered the running phase.
	Frame uint64
	// Time is the elapsed animation time. It never decreases nor wraps. It is
	// accumulated in double precision and narrowed when written to uniforms.
	Time float64
	// LightPosition is a copy of the glow object position taken on the last tick.
	LightPosition ms3.Vec
}

// Advance returns the state after one tick: time advanced by step and the light
// position replaced by glowPosition.
func Advance(state FrameState, glowPosition ms3.Vec, step float64) FrameState {
	state.Frame++
	state.Time += step
	state.LightPosition = glowPosition
	return state
}

// SceneConfig configures scene construction.
type SceneConfig struct {
	Variant Variant
	// Aspect is the camera aspect ratio, width over height. If zero 800/600 is used.
	Aspect float32
}

// Scene holds the camera, the objects and the animation state of a running variant.
// A Scene is not safe for concurrent use.
type Scene struct {
	variant Variant
	camera  Camera
	objects []*Object
	glow    *Object
	state   FrameState
	// materials lists unique materials in draw order.
	materials []*Material
	lit       []*Material
	animated  []*Material
}

// NewScene builds the glyph objects of the configured variant using mesher.
func NewScene(cfg SceneConfig, mesher GlyphMesher) (*Scene, error) {
	if mesher == nil {
		return nil, errors.New("nil glyph mesher")
	} else if cfg.Variant >= numVariants {
		return nil, fmt.Errorf("invalid variant %s", cfg.Variant)
	}
	if cfg.Aspect == 0 {
		cfg.Aspect = DefaultAspect
	} else if cfg.Aspect < 0 {
		return nil, errors.New("negative aspect ratio")
	}
	left, right, glowMat, err := variantMaterials(cfg.Variant)
	if err != nil {
		return nil, err
	}
	s := &Scene{
		variant: cfg.Variant,
		camera: Camera{
			FOV:      DefaultFOV,
			Aspect:   cfg.Aspect,
			Near:     DefaultNear,
			Far:      DefaultFar,
			Position: ms3.Vec{Z: cameraZ},
		},
	}
	glyphs := [2]struct {
		c   rune
		x   float32
		mat *Material
	}{
		{c: GlyphLeft, x: -GlyphOffsetX, mat: left},
		{c: GlyphRight, x: GlyphOffsetX, mat: right},
	}
	for _, g := range glyphs {
		mesh, err := mesher.ExtrudeGlyph(g.c)
		if err != nil {
			return nil, fmt.Errorf("glyph %q: %w", g.c, err)
		}
		s.addObject(&Object{
			Name:     string(g.c),
			Mesh:     mesh,
			Material: g.mat,
			Position: ms3.Vec{X: g.x},
		})
	}
	if glowMat != nil {
		box, err := glrender.NewBox(1, 1, 1)
		if err != nil {
			return nil, err
		}
		s.glow = &Object{Name: "glow", Mesh: box, Material: glowMat}
		s.addObject(s.glow)
	}
	for _, m := range s.materials {
		err = m.Validate()
		if err != nil {
			return nil, err
		}
	}
	if s.glow != nil {
		s.state.LightPosition = s.glow.Position
	}
	s.apply()
	return s, nil
}

func variantMaterials(v Variant) (left, right, glow *Material, err error) {
	lime, purple := RGB(ColorLime), RGB(ColorPurple)
	switch v {
	case VariantPhong, VariantPhongSubtle:
		left, err = NewPhongMaterial(PhongConfig{Color: lime, AmbientIntensity: GlyphAmbientIntensity, Specular: SpecularReflect})
		if err != nil {
			return nil, nil, nil, err
		}
		right, err = NewPhongMaterial(PhongConfig{Color: purple, AmbientIntensity: GlyphAmbientIntensity, Specular: SpecularHalfway})
		if err != nil {
			return nil, nil, nil, err
		}
		gcfg := GlowIntense
		if v == VariantPhongSubtle {
			gcfg = GlowSubtle
		}
		glow, err = NewRimGlowMaterial(gcfg)
	case VariantFlat:
		left, right = NewFlatMaterial(lime), NewFlatMaterial(purple)
	case VariantGradient:
		left = NewGradientMaterial()
		right = left
	default:
		err = fmt.Errorf("invalid variant %s", v)
	}
	return left, right, glow, err
}

func (s *Scene) addObject(o *Object) {
	s.objects = append(s.objects, o)
	for _, m := range s.materials {
		if m == o.Material {
			return
		}
	}
	m := o.Material
	s.materials = append(s.materials, m)
	if m.Lit() {
		s.lit = append(s.lit, m)
	}
	if _, ok := m.UniformFloat(UniformTime); ok {
		s.animated = append(s.animated, m)
	}
}

// Tick advances the animation by one frame: time advances by [TimeStep] when some material
// reads it and every lit material receives a copy of the glow object's current position.
func (s *Scene) Tick() {
	step := 0.0
	if len(s.animated) > 0 {
		step = TimeStep
	}
	light := s.state.LightPosition
	if s.glow != nil {
		light = s.glow.Position
	}
	s.state = Advance(s.state, light, step)
	s.apply()
}

// apply writes the frame state into the uniforms of every material reading it.
func (s *Scene) apply() {
	for _, m := range s.animated {
		m.setFloat(UniformTime, float32(s.state.Time))
	}
	for _, m := range s.lit {
		m.setVec(UniformLightPosition, s.state.LightPosition)
	}
}

// Variant returns the variant the scene was built for.
func (s *Scene) Variant() Variant { return s.variant }

// Camera returns the scene camera.
func (s *Scene) Camera() Camera { return s.camera }

// State returns the animation state after the last tick.
func (s *Scene) State() FrameState { return s.state }

// Glow returns the glow object or nil if the variant has none.
// Moving it is reflected in the light position on the next tick.
func (s *Scene) Glow() *Object { return s.glow }

// Objects returns the scene objects in draw order. Glyphs come first.
func (s *Scene) Objects() []*Object {
	return append([]*Object{}, s.objects...)
}

// Materials returns the distinct materials of the scene in draw order.
func (s *Scene) Materials() []*Material {
	return append([]*Material{}, s.materials...)
}
