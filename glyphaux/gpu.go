//go:build !tinygo && cgo

package glyphaux

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/v4.1-core/glgl"
	"github.com/soypat/glyphglow"
	"github.com/soypat/glyphglow/glbuild"
	"github.com/soypat/glyphglow/gleval"
	"github.com/soypat/glyphglow/glrender"
)

type gpuMesh struct {
	vao, vbo uint32
	count    int32
}

type gpuProgram struct {
	prog glgl.Program
	// Locations of renderer built-ins. -1 when optimized out.
	modelView, projection, normalMatrix int32
	// uniforms maps material uniform names to locations.
	uniforms map[string]int32
	attribPosition, attribNormal uint32
}

// glRenderer draws scenes with one compiled program per material.
type glRenderer struct {
	programs map[*glyphglow.Material]*gpuProgram
	meshes   map[*glyphglow.Object]*gpuMesh
	ordered  []*glyphglow.Object
	width    int32
	height   int32
}

func newGLRenderer(ctx context.Context, scene *glyphglow.Scene, width, height int, log func(...any)) (*glRenderer, error) {
	r := &glRenderer{
		programs: make(map[*glyphglow.Material]*gpuProgram),
		meshes:   make(map[*glyphglow.Object]*gpuMesh),
		ordered:  drawOrder(scene.Objects()),
		width:    int32(width),
		height:   int32(height),
	}
	programmer := glbuild.NewDefaultProgrammer()
	for _, m := range scene.Materials() {
		watch := stopwatch()
		p, err := compileMaterial(ctx, programmer, m)
		if err != nil {
			r.Delete()
			return nil, err
		}
		r.programs[m] = p
		log("compiled", m.Name(), "program in", watch())
	}
	for _, o := range r.ordered {
		r.meshes[o] = uploadMesh(o.Mesh, r.programs[o.Material])
	}
	err := glgl.Err()
	if err != nil {
		r.Delete()
		return nil, fmt.Errorf("uploading meshes: %w", err)
	}
	return r, nil
}

func compileMaterial(ctx context.Context, programmer *glbuild.Programmer, m *glyphglow.Material) (*gpuProgram, error) {
	var vs, fs bytes.Buffer
	_, _, err := programmer.WriteProgram(&vs, &fs, m)
	if err != nil {
		return nil, err
	}
	tr, err := glbuild.Translate(ctx, vs.String(), fs.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name(), err)
	}
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   tr.Vertex + "\x00",
		Fragment: tr.Fragment + "\x00",
	})
	if err != nil {
		return nil, fmt.Errorf("%s\n\n%s\n\n%w", tr.Vertex, tr.Fragment, err)
	}
	p := &gpuProgram{
		prog:           prog,
		modelView:      uniformLocation(prog, tr.MappedName(glbuild.UniformModelView)),
		projection:     uniformLocation(prog, tr.MappedName(glbuild.UniformProjection)),
		normalMatrix:   uniformLocation(prog, tr.MappedName(glbuild.UniformNormalMatrix)),
		uniforms:       make(map[string]int32),
		attribPosition: attribLocation(prog, tr.MappedName(glbuild.AttribPosition), glbuild.LocationPosition),
		attribNormal:   attribLocation(prog, tr.MappedName(glbuild.AttribNormal), glbuild.LocationNormal),
	}
	for _, name := range m.UniformNames() {
		p.uniforms[name] = uniformLocation(prog, tr.MappedName(name))
	}
	return p, nil
}

// uniformLocation returns -1 for uniforms removed by the compiler so that setting them is a no-op.
func uniformLocation(prog glgl.Program, name string) int32 {
	loc, err := prog.UniformLocation(name + "\x00")
	if err != nil {
		return -1
	}
	return loc
}

func attribLocation(prog glgl.Program, name string, fallback uint32) uint32 {
	loc, err := prog.AttribLocation(name + "\x00")
	if err != nil {
		return fallback
	}
	return loc
}

func uploadMesh(mesh glrender.Mesh, p *gpuProgram) *gpuMesh {
	data := mesh.AppendInterleaved(make([]float32, 0, mesh.Len()*glrender.FloatsPerVertex))
	gm := &gpuMesh{count: int32(mesh.Len())}
	if len(data) == 0 {
		return gm
	}
	gl.GenVertexArrays(1, &gm.vao)
	gl.BindVertexArray(gm.vao)
	gl.GenBuffers(1, &gm.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, gm.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(data), gl.Ptr(data), gl.STATIC_DRAW)
	const stride = 4 * glrender.FloatsPerVertex
	gl.EnableVertexAttribArray(p.attribPosition)
	gl.VertexAttribPointer(p.attribPosition, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(p.attribNormal)
	gl.VertexAttribPointer(p.attribNormal, 3, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.BindVertexArray(0)
	return gm
}

// Render implements [glyphglow.Renderer].
func (r *glRenderer) Render(scene *glyphglow.Scene) error {
	cam := scene.Camera()
	proj := cam.Projection()
	gl.Viewport(0, 0, r.width, r.height)
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.FrontFace(gl.CCW)
	gl.CullFace(gl.BACK)
	gl.Enable(gl.CULL_FACE)
	blending := false
	gl.Disable(gl.BLEND)
	gl.DepthMask(true)
	for _, o := range r.ordered {
		m := o.Material
		if m.Transparent() && !blending {
			blending = true
			gl.Enable(gl.BLEND)
			gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
			gl.DepthMask(false)
		}
		p := r.programs[m]
		gm := r.meshes[o]
		if p == nil || gm == nil {
			return fmt.Errorf("object %q not uploaded", o.Name)
		}
		p.prog.Bind()
		mv := o.ModelView(cam)
		nm := gleval.NormalMatrix(mv)
		gl.UniformMatrix4fv(p.modelView, 1, false, &mv[0])
		gl.UniformMatrix4fv(p.projection, 1, false, &proj[0])
		gl.UniformMatrix3fv(p.normalMatrix, 1, false, &nm[0])
		err := m.ForEachUniform(p, setUniform)
		if err != nil {
			return fmt.Errorf("%s: %w", m.Name(), err)
		}
		gl.BindVertexArray(gm.vao)
		gl.DrawArrays(gl.TRIANGLES, 0, gm.count)
	}
	gl.BindVertexArray(0)
	gl.DepthMask(true)
	return glgl.Err()
}

func setUniform(userData any, name string, value any) error {
	p := userData.(*gpuProgram)
	loc, ok := p.uniforms[name]
	if !ok {
		return fmt.Errorf("uniform %q added after compilation", name)
	} else if loc < 0 {
		return nil
	}
	switch v := value.(type) {
	case float32:
		gl.Uniform1f(loc, v)
	case int32:
		gl.Uniform1i(loc, v)
	case ms2.Vec:
		gl.Uniform2f(loc, v.X, v.Y)
	case ms3.Vec:
		gl.Uniform3f(loc, v.X, v.Y, v.Z)
	default:
		return errors.New("unsupported uniform type")
	}
	return nil
}

// Delete releases GPU resources.
func (r *glRenderer) Delete() {
	for _, gm := range r.meshes {
		if gm.vbo != 0 {
			gl.DeleteBuffers(1, &gm.vbo)
		}
		if gm.vao != 0 {
			gl.DeleteVertexArrays(1, &gm.vao)
		}
	}
	for _, p := range r.programs {
		p.prog.Delete()
	}
	clear(r.meshes)
	clear(r.programs)
}
