package renderer

import (
	"errors"
	"image"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/pipeline"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

// nearW rejects primitives with a vertex at or behind the camera plane.
const nearW float32 = 1e-5

// screenVertex is a vertex after projection and viewport mapping.
type screenVertex struct {
	x, y, z float32
}

// rasterRendererBackend draws into an in-memory frame buffer on the CPU. Triangle draws emulate the built-in
// mesh shader: the stream at location 0 is the position and the optional stream at location 1 is the normal.
type rasterRendererBackend struct {
	target   *frameBuffer
	finished *frameBuffer
	viewProj [16]float32
}

var _ rendererBackend = &rasterRendererBackend{}

func newRasterRendererBackend() *rasterRendererBackend {
	return &rasterRendererBackend{
		viewProj: common.IdentityMat4(),
	}
}

func (b *rasterRendererBackend) ConfigureSurface(width, height int) {
	b.target = newFrameBuffer(width, height)
	b.finished = nil
}

func (b *rasterRendererBackend) SetPresentMode(PresentMode) {}

func (b *rasterRendererBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	switch p.State().Topology {
	case wgpu.PrimitiveTopologyTriangleList, wgpu.PrimitiveTopologyLineList:
		return nil
	default:
		return errors.New("raster backend supports triangle-list and line-list pipelines only")
	}
}

func (b *rasterRendererBackend) InitMeshBuffers(bind_group_provider.BindGroupProvider) error {
	return nil
}

func (b *rasterRendererBackend) BeginFrame(clear common.Color) error {
	b.target.clear(clear)
	return nil
}

func (b *rasterRendererBackend) SetViewProjection(viewProj [16]float32) {
	b.viewProj = viewProj
}

func (b *rasterRendererBackend) DrawCall(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, model [16]float32, streams []VertexStream) error {
	var positions, normals []float32
	for _, s := range streams {
		switch s.Location {
		case 0:
			positions = provider.Stream(s.Name)
		case 1:
			normals = provider.Stream(s.Name)
		}
	}
	if len(normals) != len(positions) {
		normals = nil
	}

	var mvp [16]float32
	common.Mul4(mvp[:], b.viewProj[:], model[:])

	n := len(positions) / 3
	verts := make([]screenVertex, n)
	visible := make([]bool, n)
	shades := make([]float32, n)
	light := normalize(lightDir)
	for i := range n {
		p3 := [3]float32{positions[i*3], positions[i*3+1], positions[i*3+2]}
		verts[i], visible[i] = b.project(mvp, p3)

		shades[i] = 1
		if normals != nil {
			nw := transformDir(model, [3]float32{normals[i*3], normals[i*3+1], normals[i*3+2]})
			shades[i] = 0.25 + 0.75*math32.Abs(dot(normalize(nw), light))
		}
	}

	indices := provider.Indices()
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := int(indices[t]), int(indices[t+1]), int(indices[t+2])
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		if !visible[i0] || !visible[i1] || !visible[i2] {
			continue
		}
		b.rasterizeTriangle(p, [3]screenVertex{verts[i0], verts[i1], verts[i2]}, [3]float32{shades[i0], shades[i1], shades[i2]})
	}
	return nil
}

// rasterizeTriangle fills one triangle with barycentric interpolation of depth and shade.
func (b *rasterRendererBackend) rasterizeTriangle(p pipeline.Pipeline, v [3]screenVertex, shade [3]float32) {
	fb := b.target

	// Screen y points down, so counter-clockwise triangles in NDC have negative area here.
	area := (v[1].x-v[0].x)*(v[2].y-v[0].y) - (v[2].x-v[0].x)*(v[1].y-v[0].y)
	if area > -1e-8 && area < 1e-8 {
		return
	}
	state := p.State()
	front := area < 0
	if state.FrontFace == wgpu.FrontFaceCW {
		front = !front
	}
	switch state.CullMode {
	case wgpu.CullModeBack:
		if !front {
			return
		}
	case wgpu.CullModeFront:
		if front {
			return
		}
	}

	minX := max(0, int(math32.Floor(min(v[0].x, v[1].x, v[2].x))))
	maxX := min(fb.width-1, int(math32.Ceil(max(v[0].x, v[1].x, v[2].x))))
	minY := max(0, int(math32.Floor(min(v[0].y, v[1].y, v[2].y))))
	maxY := min(fb.height-1, int(math32.Ceil(max(v[0].y, v[1].y, v[2].y))))
	if minX > maxX || minY > maxY {
		return
	}

	det := (v[1].y-v[2].y)*(v[0].x-v[2].x) + (v[2].x-v[1].x)*(v[0].y-v[2].y)
	invDet := 1 / det
	dy12 := v[1].y - v[2].y
	dx21 := v[2].x - v[1].x
	dy20 := v[2].y - v[0].y
	dx02 := v[0].x - v[2].x

	test, write := state.DepthTest, state.DepthWrite
	for sy := minY; sy <= maxY; sy++ {
		dsy := float32(sy) + 0.5 - v[2].y
		for sx := minX; sx <= maxX; sx++ {
			dsx := float32(sx) + 0.5 - v[2].x
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1 - w0 - w1
			if w0 < -1e-5 || w1 < -1e-5 || w2 < -1e-5 {
				continue
			}

			z := w0*v[0].z + w1*v[1].z + w2*v[2].z
			if z < 0 || z > 1 {
				continue
			}
			s := w0*shade[0] + w1*shade[1] + w2*shade[2]
			fb.plot(sx, sy, z, toByte(meshColor[0]*s), toByte(meshColor[1]*s), toByte(meshColor[2]*s), 255, test, write)
		}
	}
}

func (b *rasterRendererBackend) DrawLines(p pipeline.Pipeline, segments []common.Segment) {
	state := p.State()
	test, write := state.DepthTest, state.DepthWrite
	for _, s := range segments {
		from, ok0 := b.project(b.viewProj, s.From)
		to, ok1 := b.project(b.viewProj, s.To)
		if !ok0 || !ok1 {
			continue
		}
		b.rasterizeLine(from, to, s.Color, s.Width, test, write)
	}
}

// rasterizeLine steps along the segment one pixel at a time and stamps a square brush of the line width.
func (b *rasterRendererBackend) rasterizeLine(from, to screenVertex, c common.Color, width float32, test, write bool) {
	r, g, bl, a := toByte(c[0]), toByte(c[1]), toByte(c[2]), toByte(c[3])
	w := max(1, int(math32.Round(width)))
	lo := -(w - 1) / 2

	dx, dy := to.x-from.x, to.y-from.y
	steps := int(math32.Ceil(max(math32.Abs(dx), math32.Abs(dy))))
	for i := 0; i <= steps; i++ {
		t := float32(0)
		if steps > 0 {
			t = float32(i) / float32(steps)
		}
		x := int(math32.Floor(from.x + dx*t))
		y := int(math32.Floor(from.y + dy*t))
		z := from.z + (to.z-from.z)*t
		for oy := lo; oy < lo+w; oy++ {
			for ox := lo; ox < lo+w; ox++ {
				b.target.plot(x+ox, y+oy, z, r, g, bl, a, test, write)
			}
		}
	}
}

// project maps a point through m to screen space. It reports false for points behind the camera.
func (b *rasterRendererBackend) project(m [16]float32, p [3]float32) (screenVertex, bool) {
	c := common.MulPoint(m, p)
	if c[3] <= nearW {
		return screenVertex{}, false
	}
	inv := 1 / c[3]
	return screenVertex{
		x: (c[0]*inv*0.5 + 0.5) * float32(b.target.width),
		y: (0.5 - c[1]*inv*0.5) * float32(b.target.height),
		z: c[2] * inv,
	}, true
}

func (b *rasterRendererBackend) EndFrame() error {
	b.finished = &frameBuffer{
		width:  b.target.width,
		height: b.target.height,
		color:  append([]uint8(nil), b.target.color...),
	}
	return nil
}

func (b *rasterRendererBackend) Present() {}

func (b *rasterRendererBackend) Snapshot() (*image.NRGBA, error) {
	if b.finished == nil {
		return nil, ErrNoFrame
	}
	return b.finished.image(), nil
}

func (b *rasterRendererBackend) Release() {
	b.target = nil
	b.finished = nil
}

// transformDir applies the upper 3x3 of m to a direction.
func transformDir(m [16]float32, d [3]float32) [3]float32 {
	return [3]float32{
		m[0]*d[0] + m[4]*d[1] + m[8]*d[2],
		m[1]*d[0] + m[5]*d[1] + m[9]*d[2],
		m[2]*d[0] + m[6]*d[1] + m[10]*d[2],
	}
}

func dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func normalize(v [3]float32) [3]float32 {
	l := math32.Sqrt(dot(v, v))
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
