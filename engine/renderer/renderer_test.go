package renderer

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var meshStreams = []VertexStream{
	{Name: PositionStream, Location: 0},
	{Name: NormalStream, Location: 1},
}

func newTestRenderer(t *testing.T, opts ...RendererBuilderOption) Renderer {
	t.Helper()
	opts = append([]RendererBuilderOption{WithSize(32, 32)}, opts...)
	r, err := NewRenderer(BackendTypeRaster, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

// uploadTriangle uploads one triangle facing +z that covers the center of the viewport.
func uploadTriangle(t *testing.T, r Renderer, streams ...string) bind_group_provider.BindGroupProvider {
	t.Helper()
	all := map[string][]float32{
		PositionStream: {-0.5, -0.5, 0.5, 0.5, -0.5, 0.5, 0, 0.5, 0.5},
		NormalStream:   {0, 0, 1, 0, 0, 1, 0, 0, 1},
	}
	data := make(map[string][]float32)
	for _, s := range streams {
		data[s] = all[s]
	}
	p := bind_group_provider.NewBindGroupProvider("triangle")
	require.NoError(t, r.InitMeshBuffers(p, data, []uint32{0, 1, 2}))
	return p
}

func pixel(t *testing.T, r Renderer, x, y int) [4]uint8 {
	t.Helper()
	img, err := r.Snapshot()
	require.NoError(t, err)
	o := img.PixOffset(x, y)
	return [4]uint8{img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3]}
}

func TestNewRenderer_RegistersDefaultPipelines(t *testing.T) {
	r := newTestRenderer(t)

	require.NotNil(t, r.Pipeline(MeshPipelineKey))
	require.NotNil(t, r.Pipeline(LinePipelineKey))
	assert.Nil(t, r.Pipeline("missing"))

	mesh, lines := r.Pipeline(MeshPipelineKey).State(), r.Pipeline(LinePipelineKey).State()
	assert.True(t, mesh.DepthTest)
	assert.Nil(t, mesh.Blend)
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, lines.Topology)
	assert.False(t, lines.DepthTest)
	assert.NotNil(t, lines.Blend)

	w, h := r.Size()
	assert.Equal(t, 32, w)
	assert.Equal(t, 32, h)
}

func TestNewRenderer_WGPURequiresWindow(t *testing.T) {
	_, err := NewRenderer(BackendTypeWGPU, nil)
	assert.Error(t, err)
}

func TestRenderer_DrawOutsideFrame(t *testing.T) {
	r := newTestRenderer(t)
	p := uploadTriangle(t, r, PositionStream, NormalStream)

	err := r.DrawCall(MeshPipelineKey, p, common.IdentityMat4(), meshStreams)
	assert.ErrorIs(t, err, ErrNoFrame)
	assert.ErrorIs(t, r.EndFrame(), ErrNoFrame)
}

func TestRenderer_BeginFrameTwice(t *testing.T) {
	r := newTestRenderer(t)
	require.NoError(t, r.BeginFrame())
	assert.Error(t, r.BeginFrame())
	require.NoError(t, r.EndFrame())
}

func TestRenderer_DrawCallErrors(t *testing.T) {
	r := newTestRenderer(t)
	p := uploadTriangle(t, r, PositionStream)
	require.NoError(t, r.BeginFrame())
	defer r.EndFrame()

	tests := []struct {
		name    string
		key     string
		streams []VertexStream
		want    error
	}{
		{"unknown pipeline", "wireframe", meshStreams, ErrPipelineNotFound},
		{"stream not uploaded", MeshPipelineKey, meshStreams, ErrStream},
		{"attribute unbound", MeshPipelineKey, meshStreams[:1], ErrStream},
		{"unknown attribute", MeshPipelineKey, []VertexStream{{Name: PositionStream, Location: -1}}, ErrStream},
		{"location bound twice", MeshPipelineKey, []VertexStream{
			{Name: PositionStream, Location: 0},
			{Name: PositionStream, Location: 0},
		}, ErrStream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.DrawCall(tt.key, p, common.IdentityMat4(), tt.streams)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRenderer_InitMeshBuffersIndexOutOfRange(t *testing.T) {
	r := newTestRenderer(t)
	p := bind_group_provider.NewBindGroupProvider("bad")

	err := r.InitMeshBuffers(p, map[string][]float32{PositionStream: make([]float32, 9)}, []uint32{0, 1, 3})
	assert.Error(t, err)
	assert.Nil(t, p.Stream(PositionStream))
}

func TestRenderer_SnapshotBeforeFrame(t *testing.T) {
	r := newTestRenderer(t)
	_, err := r.Snapshot()
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestRenderer_DrawTriangle(t *testing.T) {
	r := newTestRenderer(t, WithClearColor(common.Color{0, 0, 0, 1}))
	p := uploadTriangle(t, r, PositionStream, NormalStream)

	require.NoError(t, r.BeginFrame())
	r.SetViewProjection(common.IdentityMat4(), common.IdentityMat4())
	require.NoError(t, r.DrawCall(MeshPipelineKey, p, common.IdentityMat4(), meshStreams))
	require.NoError(t, r.EndFrame())

	center := pixel(t, r, 16, 16)
	assert.Greater(t, center[0], uint8(100))
	assert.Equal(t, uint8(255), center[3])

	corner := pixel(t, r, 0, 0)
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, corner)
}

func TestRenderer_DrawTriangleBehindModel(t *testing.T) {
	r := newTestRenderer(t, WithClearColor(common.Color{0, 0, 0, 1}))
	p := uploadTriangle(t, r, PositionStream, NormalStream)

	// pushes the triangle past the far plane
	model := common.IdentityMat4()
	model[14] = 2

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.DrawCall(MeshPipelineKey, p, model, meshStreams))
	require.NoError(t, r.EndFrame())

	assert.Equal(t, [4]uint8{0, 0, 0, 255}, pixel(t, r, 16, 16))
}

func TestRenderer_CullMode(t *testing.T) {
	r := newTestRenderer(t, WithClearColor(common.Color{0, 0, 0, 1}))
	mesh := r.Pipeline(MeshPipelineKey)
	culled := func(key string, front wgpu.FrontFace) pipeline.Pipeline {
		return pipeline.NewPipeline(key,
			pipeline.WithShaders(mesh.Shader(shader.ShaderTypeVertex), mesh.Shader(shader.ShaderTypeFragment)),
			pipeline.WithCulling(wgpu.CullModeBack, front),
		)
	}
	require.NoError(t, r.RegisterPipelines(culled("ccw", wgpu.FrontFaceCCW), culled("cw", wgpu.FrontFaceCW)))
	p := uploadTriangle(t, r, PositionStream, NormalStream)

	tests := []struct {
		key   string
		drawn bool
	}{
		{"ccw", true},
		{"cw", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			require.NoError(t, r.BeginFrame())
			r.SetViewProjection(common.IdentityMat4(), common.IdentityMat4())
			require.NoError(t, r.DrawCall(tt.key, p, common.IdentityMat4(), meshStreams))
			require.NoError(t, r.EndFrame())
			assert.Equal(t, tt.drawn, pixel(t, r, 16, 16)[0] > 100)
		})
	}
}

func TestRenderer_DrawLinesUsesLineWidth(t *testing.T) {
	r := newTestRenderer(t, WithClearColor(common.Color{0, 0, 0, 1}))
	r.SetLineWidth(3)
	assert.Equal(t, float32(3), r.LineWidth())

	require.NoError(t, r.BeginFrame())
	r.DrawLines(common.IdentityMat4(), []common.Segment{{
		From:  [3]float32{-0.5, 0, 0.5},
		To:    [3]float32{0.5, 0, 0.5},
		Color: common.ColorRed,
	}})
	require.NoError(t, r.EndFrame())

	red := [4]uint8{255, 0, 0, 255}
	assert.Equal(t, red, pixel(t, r, 16, 15))
	assert.Equal(t, red, pixel(t, r, 16, 16))
	assert.Equal(t, red, pixel(t, r, 16, 17))
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, pixel(t, r, 16, 19))
}

func TestRenderer_SetLineWidthClamps(t *testing.T) {
	r := newTestRenderer(t)
	r.SetLineWidth(0)
	assert.Equal(t, float32(1), r.LineWidth())
}

func TestRenderer_DrawLinesOutsideFrameLogsOnce(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRenderer(t, WithLogger(log.New(&buf, "", 0)))

	seg := []common.Segment{{To: [3]float32{1, 0, 0}, Color: common.ColorRed}}
	r.DrawLines(common.IdentityMat4(), seg)
	r.DrawLines(common.IdentityMat4(), seg)

	assert.Equal(t, 1, strings.Count(buf.String(), "dropping"))
}
