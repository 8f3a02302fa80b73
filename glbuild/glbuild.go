package glbuild

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// VersionStr is the dialect all generated sources are written in. Sources are
// translated to the desktop dialect by [Translate] before compilation.
const VersionStr = "#version 300 es\n"

// Names of the inputs the renderer provides to every program.
const (
	AttribPosition      = "position"
	AttribNormal        = "normal"
	UniformModelView    = "modelViewMatrix"
	UniformProjection   = "projectionMatrix"
	UniformNormalMatrix = "normalMatrix"
	// FragmentOutput is the name of the fragment stage color output.
	FragmentOutput = "fragColor"
)

// Attribute locations bound in the generated vertex stage.
const (
	LocationPosition = 0
	LocationNormal   = 1
)

// Shader stores the stage bodies of a material program and the uniforms
// those bodies read. Bodies contain varyings and a main function; declarations
// of built-in inputs and uniforms are written by the [Programmer].
type Shader interface {
	// AppendShaderName appends a name identifying the program. It should be unique to the shading model.
	AppendShaderName(b []byte) []byte
	// AppendVertexBody appends the vertex stage body.
	AppendVertexBody(b []byte) []byte
	// AppendFragmentBody appends the fragment stage body.
	AppendFragmentBody(b []byte) []byte
	// ForEachUniform calls fn for every uniform read by the fragment stage in a stable order.
	ForEachUniform(userData any, fn func(userData any, name string, value any) error) error
}

// Programmer implements program source generation for the Shader type.
type Programmer struct {
	scratch   []byte
	precision string
	// names maps uniform name hashes for checking duplicates.
	names map[uint64]struct{}
}

// NewDefaultProgrammer returns a Programmer with highp float precision.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratch:   make([]byte, 0, 1024),
		precision: "highp",
		names:     make(map[uint64]struct{}),
	}
}

// SetPrecision sets the default float precision qualifier: lowp, mediump or highp.
func (p *Programmer) SetPrecision(precision string) error {
	switch precision {
	case "lowp", "mediump", "highp":
	default:
		return fmt.Errorf("invalid precision qualifier %q", precision)
	}
	p.precision = precision
	return nil
}

// WriteProgram writes the vertex and fragment stage sources of s to their respective writers.
func (p *Programmer) WriteProgram(vertex, fragment io.Writer, s Shader) (nv, nf int, err error) {
	nv, err = p.WriteVertex(vertex, s)
	if err != nil {
		return nv, 0, err
	}
	nf, err = p.WriteFragment(fragment, s)
	return nv, nf, err
}

// WriteVertex writes the vertex stage of s with the renderer's built-in attribute and matrix declarations.
func (p *Programmer) WriteVertex(w io.Writer, s Shader) (int, error) {
	if s == nil {
		return 0, errors.New("nil shader")
	}
	b := p.appendHeader(p.scratch[:0], s)
	b = appendInDecl(b, LocationPosition, "vec3", AttribPosition)
	b = appendInDecl(b, LocationNormal, "vec3", AttribNormal)
	b = AppendUniformTypeDecl(b, "mat4", UniformModelView)
	b = AppendUniformTypeDecl(b, "mat4", UniformProjection)
	b = AppendUniformTypeDecl(b, "mat3", UniformNormalMatrix)
	b = append(b, '\n')
	b = s.AppendVertexBody(b)
	b = append(b, '\n')
	p.scratch = b
	return w.Write(b)
}

// WriteFragment writes the fragment stage of s with one uniform declaration per uniform of s.
func (p *Programmer) WriteFragment(w io.Writer, s Shader) (int, error) {
	if s == nil {
		return 0, errors.New("nil shader")
	}
	clear(p.names)
	b := p.appendHeader(p.scratch[:0], s)
	err := s.ForEachUniform(nil, func(_ any, name string, value any) error {
		if isBuiltin(name) {
			return fmt.Errorf("uniform %q shadows renderer built-in", name)
		} else if name == "" {
			return errors.New("empty uniform name")
		}
		h := hash([]byte(name), 0)
		if _, dup := p.names[h]; dup {
			return fmt.Errorf("duplicate uniform %q", name)
		}
		p.names[h] = struct{}{}
		var err error
		b, err = AppendUniformDecl(b, name, value)
		return err
	})
	if err != nil {
		name := s.AppendShaderName(nil)
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	b = append(b, "out vec4 "...)
	b = append(b, FragmentOutput...)
	b = append(b, ";\n\n"...)
	b = s.AppendFragmentBody(b)
	b = append(b, '\n')
	p.scratch = b
	return w.Write(b)
}

func (p *Programmer) appendHeader(b []byte, s Shader) []byte {
	b = append(b, VersionStr...)
	b = append(b, "precision "...)
	b = append(b, p.precision...)
	b = append(b, " float;\n"...)
	b = append(b, "// "...)
	b = s.AppendShaderName(b)
	b = append(b, '\n')
	return b
}

func isBuiltin(name string) bool {
	switch name {
	case AttribPosition, AttribNormal, UniformModelView, UniformProjection, UniformNormalMatrix, FragmentOutput:
		return true
	}
	return false
}

// UniformNames returns the names of the uniforms of s in iteration order.
func UniformNames(s Shader) ([]string, error) {
	var names []string
	err := s.ForEachUniform(nil, func(_ any, name string, _ any) error {
		names = append(names, name)
		return nil
	})
	return names, err
}

// UniformTypename returns the GLSL type corresponding to a uniform value.
func UniformTypename(v any) (string, error) {
	switch v.(type) {
	case float32:
		return "float", nil
	case int32:
		return "int", nil
	case ms2.Vec:
		return "vec2", nil
	case ms3.Vec:
		return "vec3", nil
	case nil:
		return "", errors.New("nil uniform value")
	}
	return "", fmt.Errorf("equivalent uniform type not implemented for %T", v)
}

// AppendUniformDecl appends a uniform declaration typed after value.
//
//	uniform <type> <name>;
func AppendUniformDecl(b []byte, name string, value any) ([]byte, error) {
	typename, err := UniformTypename(value)
	if err != nil {
		return b, fmt.Errorf("uniform %q: %w", name, err)
	}
	return AppendUniformTypeDecl(b, typename, name), nil
}

// AppendUniformTypeDecl appends a uniform declaration of an explicit GLSL type.
func AppendUniformTypeDecl(b []byte, typename, name string) []byte {
	b = append(b, "uniform "...)
	b = append(b, typename...)
	b = append(b, ' ')
	b = append(b, name...)
	b = append(b, ";\n"...)
	return b
}

func appendInDecl(b []byte, location int, typename, name string) []byte {
	b = append(b, "layout(location = "...)
	b = strconv.AppendInt(b, int64(location), 10)
	b = append(b, ") in "...)
	b = append(b, typename...)
	b = append(b, ' ')
	b = append(b, name...)
	b = append(b, ";\n"...)
	return b
}

func AppendVec3Decl(b []byte, vec3Varname string, v ms3.Vec) []byte {
	b = append(b, "vec3 "...)
	b = append(b, vec3Varname...)
	b = append(b, '=')
	b = AppendVec3(b, v)
	b = append(b, ';', '\n')
	return b
}

// AppendVec3 appends a vec3 constructor literal.
func AppendVec3(b []byte, v ms3.Vec) []byte {
	b = append(b, "vec3("...)
	b = AppendFloats(b, ',', '-', '.', v.X, v.Y, v.Z)
	b = append(b, ')')
	return b
}

func AppendFloatDecl(b []byte, floatVarname string, v float32) []byte {
	b = append(b, "float "...)
	b = append(b, floatVarname...)
	b = append(b, '=')
	b = AppendFloat(b, '-', '.', v)
	b = append(b, ';', '\n')
	return b
}

// AppendFloat appends the shortest GLSL float literal of v. The literal always contains a
// decimal point so it is not parsed as an int by stricter GLSL ES compilers.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', -1, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if idx < 0 {
		idx = len(b) - start
		b = append(b, '.', '0')
	}
	if decimal != '.' {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	return b
}

func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]
	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}
