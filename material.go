package glyphglow

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glyphglow/glbuild"
)

// ShadingModel identifies the lighting formula of a [Material].
type ShadingModel uint8

const (
	_ ShadingModel = iota
	// ModelFlat outputs a constant color.
	ModelFlat
	// ModelGradient outputs the model space position scaled by 0.5 and biased by 0.5.
	ModelGradient
	// ModelPhongReflect is ambient+diffuse with a white specular term computed from the reflected light direction.
	ModelPhongReflect
	// ModelPhongHalfway is ambient+diffuse with a colored specular term computed from the half vector.
	ModelPhongHalfway
	// ModelRimGlow is a transparent rim light whose alpha oscillates with time.
	ModelRimGlow
)

func (m ShadingModel) String() string {
	switch m {
	case ModelFlat:
		return "flat"
	case ModelGradient:
		return "gradient"
	case ModelPhongReflect:
		return "phongReflect"
	case ModelPhongHalfway:
		return "phongHalfway"
	case ModelRimGlow:
		return "rimGlow"
	}
	return fmt.Sprintf("ShadingModel(%d)", uint8(m))
}

// Uniform names read by the shading models.
const (
	UniformColor            = "color"
	UniformLightPosition    = "lightPosition"
	UniformAmbientIntensity = "ambientIntensity"
	UniformTime             = "time"
)

// SpecularMode selects the specular term of a Phong material.
type SpecularMode uint8

const (
	// SpecularReflect uses pow(max(dot(view, reflect(-light, normal)), 0), shininess) scaled by 0.5.
	SpecularReflect SpecularMode = iota
	// SpecularHalfway uses color*pow(max(dot(normal, normalize(light+view)), 0), shininess).
	SpecularHalfway
)

// Default specular exponents.
const (
	DefaultReflectShininess = 32
	DefaultHalfwayShininess = 64
	reflectSpecularScale    = 0.5
)

// PhongConfig configures a Phong-like material.
type PhongConfig struct {
	Color            ms3.Vec
	AmbientIntensity float32
	Specular         SpecularMode
	// Shininess is the specular exponent. If zero the default of the specular mode is used.
	Shininess float32
}

// GlowConfig configures a rim glow material. Alpha is Base+Amplitude*sin(time) and
// color is Brightness*pow(max(0.5-dot(normal, viewAxis), 0), Power).
type GlowConfig struct {
	Base      float32
	Amplitude float32
	Power     float32
	// Brightness is the glow color intensity. If zero 1.5 is used.
	Brightness float32
}

// Glow presets.
var (
	GlowIntense = GlowConfig{Base: 0.7, Amplitude: 0.3, Power: 4, Brightness: 1.5}
	GlowSubtle  = GlowConfig{Base: 0.9, Amplitude: 0.1, Power: 2, Brightness: 1.5}
)

const defaultGlowBrightness = 1.5

// Material is a shading configuration: a shading model, the source of its program
// and the uniforms the program reads. Materials are created once at scene build time;
// only uniform values change afterwards.
type Material struct {
	name        string
	model       ShadingModel
	uniforms    map[string]any
	transparent bool
	shininess   float32
	glow        GlowConfig
}

// NewFlatMaterial returns a material that outputs color at full opacity regardless of lighting.
func NewFlatMaterial(color ms3.Vec) *Material {
	return &Material{
		name:  "flat",
		model: ModelFlat,
		uniforms: map[string]any{
			UniformColor: color,
		},
	}
}

// NewGradientMaterial returns a material colored by its model space position.
// It reads no uniforms.
func NewGradientMaterial() *Material {
	return &Material{
		name:     "gradient",
		model:    ModelGradient,
		uniforms: map[string]any{},
	}
}

// NewPhongMaterial returns a Phong-like lit material. The light position uniform starts at the origin.
func NewPhongMaterial(cfg PhongConfig) (*Material, error) {
	m := &Material{
		shininess: cfg.Shininess,
		uniforms: map[string]any{
			UniformColor:            cfg.Color,
			UniformLightPosition:    ms3.Vec{},
			UniformAmbientIntensity: cfg.AmbientIntensity,
		},
	}
	switch cfg.Specular {
	case SpecularReflect:
		m.name = "phongReflect"
		m.model = ModelPhongReflect
		if m.shininess == 0 {
			m.shininess = DefaultReflectShininess
		}
	case SpecularHalfway:
		m.name = "phongHalfway"
		m.model = ModelPhongHalfway
		if m.shininess == 0 {
			m.shininess = DefaultHalfwayShininess
		}
	default:
		return nil, fmt.Errorf("unknown specular mode %d", cfg.Specular)
	}
	if m.shininess < 0 {
		return nil, errors.New("negative shininess")
	} else if cfg.AmbientIntensity < 0 {
		return nil, errors.New("negative ambient intensity")
	}
	return m, nil
}

// NewRimGlowMaterial returns a transparent rim-lit material with a time uniform starting at zero.
func NewRimGlowMaterial(cfg GlowConfig) (*Material, error) {
	if cfg.Brightness == 0 {
		cfg.Brightness = defaultGlowBrightness
	}
	if cfg.Power <= 0 {
		return nil, errors.New("glow power must be positive")
	} else if cfg.Amplitude < 0 {
		return nil, errors.New("negative glow amplitude")
	} else if cfg.Brightness < 0 {
		return nil, errors.New("negative glow brightness")
	}
	return &Material{
		name:        "rimGlow",
		model:       ModelRimGlow,
		transparent: true,
		glow:        cfg,
		uniforms: map[string]any{
			UniformTime: float32(0),
		},
	}, nil
}

// Name returns the name of the material's program.
func (m *Material) Name() string { return m.name }

// Model returns the shading model.
func (m *Material) Model() ShadingModel { return m.model }

// Transparent reports whether the material needs alpha blending.
func (m *Material) Transparent() bool { return m.transparent }

// Shininess returns the specular exponent of Phong materials and zero otherwise.
func (m *Material) Shininess() float32 { return m.shininess }

// Glow returns the glow configuration of rim glow materials.
func (m *Material) Glow() GlowConfig { return m.glow }

// Lit reports whether the material reads the light position.
func (m *Material) Lit() bool {
	_, ok := m.uniforms[UniformLightPosition]
	return ok
}

// Uniform returns the current value of a uniform.
func (m *Material) Uniform(name string) (value any, ok bool) {
	value, ok = m.uniforms[name]
	return value, ok
}

// UniformFloat returns the value of a float uniform.
func (m *Material) UniformFloat(name string) (float32, bool) {
	v, ok := m.uniforms[name].(float32)
	return v, ok
}

// UniformVec returns the value of a vec3 uniform.
func (m *Material) UniformVec(name string) (ms3.Vec, bool) {
	v, ok := m.uniforms[name].(ms3.Vec)
	return v, ok
}

// SetUniform sets the value of an existing uniform. Uniforms cannot be added after
// construction and their type cannot change.
func (m *Material) SetUniform(name string, value any) error {
	old, ok := m.uniforms[name]
	if !ok {
		return fmt.Errorf("%s material has no uniform %q", m.name, name)
	}
	if reflect.TypeOf(old) != reflect.TypeOf(value) {
		return fmt.Errorf("%s material uniform %q is %T, got %T", m.name, name, old, value)
	}
	m.uniforms[name] = value
	return nil
}

func (m *Material) setFloat(name string, v float32) { m.uniforms[name] = v }
func (m *Material) setVec(name string, v ms3.Vec)   { m.uniforms[name] = v }

// UniformNames returns the sorted uniform names of the material.
func (m *Material) UniformNames() []string {
	names := make([]string, 0, len(m.uniforms))
	for name := range m.uniforms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks every uniform the shading model reads is present and well typed.
func (m *Material) Validate() error {
	if m == nil {
		return errors.New("nil material")
	}
	var errs []error
	want := func(name string, zero any) {
		v, ok := m.uniforms[name]
		if !ok {
			errs = append(errs, fmt.Errorf("missing uniform %q", name))
		} else if reflect.TypeOf(v) != reflect.TypeOf(zero) {
			errs = append(errs, fmt.Errorf("uniform %q is %T, want %T", name, v, zero))
		}
	}
	switch m.model {
	case ModelFlat:
		want(UniformColor, ms3.Vec{})
	case ModelGradient:
	case ModelPhongReflect, ModelPhongHalfway:
		want(UniformColor, ms3.Vec{})
		want(UniformLightPosition, ms3.Vec{})
		want(UniformAmbientIntensity, float32(0))
	case ModelRimGlow:
		want(UniformTime, float32(0))
	default:
		errs = append(errs, fmt.Errorf("invalid shading model %s", m.model))
	}
	for name, v := range m.uniforms {
		if _, err := glbuild.UniformTypename(v); err != nil {
			errs = append(errs, fmt.Errorf("uniform %q: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s material: %w", m.name, errors.Join(errs...))
	}
	return nil
}

// AppendShaderName implements [glbuild.Shader].
func (m *Material) AppendShaderName(b []byte) []byte {
	return append(b, m.name...)
}

// ForEachUniform implements [glbuild.Shader]. Uniforms are visited in name order.
func (m *Material) ForEachUniform(userData any, fn func(userData any, name string, value any) error) error {
	for _, name := range m.UniformNames() {
		err := fn(userData, name, m.uniforms[name])
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendVertexBody implements [glbuild.Shader].
func (m *Material) AppendVertexBody(b []byte) []byte {
	switch m.model {
	case ModelPhongReflect, ModelPhongHalfway:
		b = append(b, `out vec3 vNormal;
out vec3 vPosition;
void main() {
	vNormal = normalize(normalMatrix * normal);
	vPosition = vec3(modelViewMatrix * vec4(position, 1.0));
	gl_Position = projectionMatrix * modelViewMatrix * vec4(position, 1.0);
}`...)
	case ModelRimGlow:
		b = append(b, `out vec3 vNormal;
void main() {
	vNormal = normalize(normalMatrix * normal);
	gl_Position = projectionMatrix * modelViewMatrix * vec4(position, 1.0);
}`...)
	case ModelGradient:
		b = append(b, `out vec3 vLocal;
void main() {
	vLocal = position;
	gl_Position = projectionMatrix * modelViewMatrix * vec4(position, 1.0);
}`...)
	default:
		b = append(b, `void main() {
	gl_Position = projectionMatrix * modelViewMatrix * vec4(position, 1.0);
}`...)
	}
	return b
}

// AppendFragmentBody implements [glbuild.Shader].
func (m *Material) AppendFragmentBody(b []byte) []byte {
	switch m.model {
	case ModelFlat:
		b = append(b, "void main() {\n\tfragColor = vec4(color, 1.0);\n}"...)

	case ModelGradient:
		b = append(b, `in vec3 vLocal;
void main() {
	fragColor = vec4(clamp(vLocal * 0.5 + 0.5, 0.0, 1.0), 1.0);
}`...)

	case ModelPhongReflect, ModelPhongHalfway:
		b = append(b, "in vec3 vNormal;\nin vec3 vPosition;\nconst "...)
		b = glbuild.AppendFloatDecl(b, "shininess", m.shininess)
		b = append(b, `void main() {
	vec3 ambient = ambientIntensity * color;
	vec3 lightDir = normalize(lightPosition - vPosition);
	float diff = max(dot(vNormal, lightDir), 0.0);
	vec3 diffuse = diff * color;
	vec3 viewDir = normalize(-vPosition);
`...)
		if m.model == ModelPhongReflect {
			b = append(b, "\tvec3 reflectDir = reflect(-lightDir, vNormal);\n"...)
			b = append(b, "\tfloat spec = pow(max(dot(viewDir, reflectDir), 0.0), shininess);\n"...)
			b = append(b, "\tvec3 specular = vec3("...)
			b = glbuild.AppendFloat(b, '-', '.', reflectSpecularScale)
			b = append(b, ") * spec;\n"...)
		} else {
			b = append(b, "\tvec3 halfDir = normalize(lightDir + viewDir);\n"...)
			b = append(b, "\tfloat spec = pow(max(dot(vNormal, halfDir), 0.0), shininess);\n"...)
			b = append(b, "\tvec3 specular = color * spec;\n"...)
		}
		b = append(b, "\tfragColor = vec4(ambient + diffuse + specular, 1.0);\n}"...)

	case ModelRimGlow:
		g := m.glow
		b = append(b, "in vec3 vNormal;\nconst "...)
		b = glbuild.AppendFloatDecl(b, "glowPower", g.Power)
		b = append(b, "const "...)
		b = glbuild.AppendFloatDecl(b, "glowBase", g.Base)
		b = append(b, "const "...)
		b = glbuild.AppendFloatDecl(b, "glowAmplitude", g.Amplitude)
		b = append(b, "const "...)
		b = glbuild.AppendVec3Decl(b, "glowColor", ms3.Vec{X: g.Brightness, Y: g.Brightness, Z: g.Brightness})
		b = append(b, `void main() {
	float intensity = pow(max(0.5 - dot(vNormal, vec3(0.0, 0.0, 1.0)), 0.0), glowPower);
	fragColor = vec4(glowColor * intensity, glowBase + glowAmplitude * sin(time));
}`...)
	}
	return b
}
