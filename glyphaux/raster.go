package glyphaux

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/glyphglow"
	"github.com/soypat/glyphglow/gleval"
	"github.com/soypat/glyphglow/glrender"
)

// RenderPNG rasterizes the current frame of scene on the CPU and encodes it as PNG to w.
func RenderPNG(w io.Writer, scene *glyphglow.Scene, width, height int) error {
	img, err := RenderImage(scene, width, height)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// RenderImage rasterizes the current frame of scene on the CPU with the materials' reference
// shading. Back faces are culled. Transparent objects are blended over opaque ones after
// them and do not write depth. The scene camera's aspect ratio is used as is.
func RenderImage(scene *glyphglow.Scene, width, height int) (*image.RGBA, error) {
	if scene == nil {
		return nil, errors.New("nil scene")
	} else if width <= 0 || height <= 0 {
		return nil, errors.New("image dimensions must be positive")
	}
	r := rasterizer{
		width:  width,
		height: height,
		color:  make([]gleval.RGBA, width*height),
		depth:  make([]float32, width*height),
	}
	for i := range r.depth {
		r.depth[i] = float32(math.Inf(1))
		r.color[i].A = 1
	}
	cam := scene.Camera()
	proj := cam.Projection()
	objs := drawOrder(scene.Objects())
	for _, o := range objs {
		err := r.drawObject(o, cam, proj)
		if err != nil {
			return nil, err
		}
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, toRGBA(r.color[y*width+x]))
		}
	}
	return img, nil
}

// drawOrder returns opaque objects first, preserving scene order otherwise.
func drawOrder(objs []*glyphglow.Object) []*glyphglow.Object {
	ordered := make([]*glyphglow.Object, 0, len(objs))
	for _, o := range objs {
		if !o.Material.Transparent() {
			ordered = append(ordered, o)
		}
	}
	for _, o := range objs {
		if o.Material.Transparent() {
			ordered = append(ordered, o)
		}
	}
	return ordered
}

type rasterizer struct {
	width, height int
	color         []gleval.RGBA
	depth         []float32
	// Per triangle scratch buffers.
	frags  []gleval.Fragment
	pixels []int
	depths []float32
	shaded []gleval.RGBA
}

type screenVertex struct {
	x, y, z float32
	invW    float32
	frag    gleval.Fragment
}

func (r *rasterizer) drawObject(o *glyphglow.Object, cam glyphglow.Camera, proj mgl32.Mat4) error {
	shader, err := gleval.NewCPUShader(o.Material)
	if err != nil {
		return err
	}
	mv := o.ModelView(cam)
	mvp := proj.Mul4(mv)
	blend := o.Material.Transparent()
	var sv [3]screenVertex
	for _, tri := range o.Mesh.Triangles {
		n := glrender.TriangleNormal(tri)
		visible := true
		for i, v := range tri {
			clip := mvp.Mul4x1(mgl32.Vec4{v.X, v.Y, v.Z, 1})
			if clip[3] <= cam.Near {
				// Behind or too close to the camera. Triangles are not clipped.
				visible = false
				break
			}
			invW := 1 / clip[3]
			sv[i] = screenVertex{
				x:    (clip[0]*invW + 1) / 2 * float32(r.width),
				y:    (1 - clip[1]*invW) / 2 * float32(r.height),
				z:    clip[2] * invW,
				invW: invW,
				frag: gleval.TransformVertex(mv, v, n),
			}
		}
		if !visible {
			continue
		}
		err = r.drawTriangle(shader, &sv, blend)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *rasterizer) drawTriangle(shader gleval.Shader, sv *[3]screenVertex, blend bool) error {
	a, b, c := sv[0], sv[1], sv[2]
	area := edge(a.x, a.y, b.x, b.y, c.x, c.y)
	if area >= 0 {
		// Counter-clockwise triangles appear clockwise with Y pointing down: cull back faces.
		return nil
	}
	minX := max(0, int(math32.Floor(min(a.x, b.x, c.x))))
	maxX := min(r.width-1, int(math32.Ceil(max(a.x, b.x, c.x))))
	minY := max(0, int(math32.Floor(min(a.y, b.y, c.y))))
	maxY := min(r.height-1, int(math32.Ceil(max(a.y, b.y, c.y))))
	r.frags = r.frags[:0]
	r.pixels = r.pixels[:0]
	r.depths = r.depths[:0]
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(b.x, b.y, c.x, c.y, px, py) / area
			w1 := edge(c.x, c.y, a.x, a.y, px, py) / area
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a.z + w1*b.z + w2*c.z
			idx := y*r.width + x
			if z >= r.depth[idx] || z < -1 || z > 1 {
				continue
			}
			// Perspective correct interpolation.
			p0, p1, p2 := w0*a.invW, w1*b.invW, w2*c.invW
			inv := 1 / (p0 + p1 + p2)
			p0, p1, p2 = p0*inv, p1*inv, p2*inv
			r.frags = append(r.frags, gleval.Fragment{
				Position: interp(p0, p1, p2, a.frag.Position, b.frag.Position, c.frag.Position),
				Normal:   ms3.Unit(interp(p0, p1, p2, a.frag.Normal, b.frag.Normal, c.frag.Normal)),
				Local:    interp(p0, p1, p2, a.frag.Local, b.frag.Local, c.frag.Local),
			})
			r.pixels = append(r.pixels, idx)
			r.depths = append(r.depths, z)
		}
	}
	if len(r.frags) == 0 {
		return nil
	}
	r.shaded = append(r.shaded[:0], make([]gleval.RGBA, len(r.frags))...)
	err := shader.EvaluateFragments(r.frags, r.shaded, nil)
	if err != nil {
		return err
	}
	for i, idx := range r.pixels {
		src := r.shaded[i]
		if !blend {
			r.color[idx] = gleval.RGBA{R: src.R, G: src.G, B: src.B, A: 1}
			r.depth[idx] = r.depths[i]
			continue
		}
		dst := r.color[idx]
		r.color[idx] = gleval.RGBA{
			R: src.R*src.A + dst.R*(1-src.A),
			G: src.G*src.A + dst.G*(1-src.A),
			B: src.B*src.A + dst.B*(1-src.A),
			A: 1,
		}
	}
	return nil
}

// edge is the doubled signed area of triangle (a, b, p).
func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func interp(w0, w1, w2 float32, a, b, c ms3.Vec) ms3.Vec {
	return ms3.Add(ms3.Scale(w0, a), ms3.Add(ms3.Scale(w1, b), ms3.Scale(w2, c)))
}

func toRGBA(c gleval.RGBA) color.RGBA {
	c = c.Clamp()
	return color.RGBA{
		R: uint8(ms1.Clamp(c.R*255+0.5, 0, 255)),
		G: uint8(ms1.Clamp(c.G*255+0.5, 0, 255)),
		B: uint8(ms1.Clamp(c.B*255+0.5, 0, 255)),
		A: 255,
	}
}
