package shape_skin

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/matstack"
	"github.com/Carmen-Shannon/oxy-skin/engine/mesh"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-skin/engine/skin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubParser struct{}

func (stubParser) Parse(string) (*mesh.ParseResult, error) {
	return &mesh.ParseResult{
		Positions: []float32{-0.5, -0.5, 0.5, 0.5, -0.5, 0.5, 0, 0.5, 0.5},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Shapes: []mesh.Shape{{
			FaceVertexCounts: []int{3},
			Indices:          []mesh.Index{{Vertex: 0, Normal: 0, Texcoord: -1}, {Vertex: 1, Normal: 1, Texcoord: -1}, {Vertex: 2, Normal: 2, Texcoord: -1}},
			MaterialIDs:      []int{-1},
		}},
	}, nil
}

// recordingTarget collects every batch of segments and each line width change.
type recordingTarget struct {
	batches [][]common.Segment
	widths  []float32
}

func (r *recordingTarget) DrawLines(_ [16]float32, segments []common.Segment) {
	r.batches = append(r.batches, segments)
}

func (r *recordingTarget) SetLineWidth(width float32) {
	r.widths = append(r.widths, width)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// skeletonBody writes a bind pose and frames records for bones bones, all with identity rotation.
func skeletonBody(bones, frames int) string {
	var sb strings.Builder
	sb.WriteString("# a\n# b\n# c\n")
	fmt.Fprintf(&sb, "%d %d\n", frames, bones)
	for k := 0; k <= frames; k++ {
		for b := 0; b < bones; b++ {
			fmt.Fprintf(&sb, "0 0 0 1 %d %d 0 ", b, k)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func newTestShape(t *testing.T, logger *log.Logger, bones, frames int) ShapeSkin {
	t.Helper()
	m := mesh.NewMesh(mesh.WithParser(stubParser{}), mesh.WithLogger(logger))
	require.NoError(t, m.Load("tri.obj"))

	a := skin.NewAttachment(skin.WithLogger(logger))
	require.NoError(t, a.Load(writeFile(t, "tri.att", "# a\n# b\n3 2\n1 0\n0 1\n0.5 0.5\n"), m.VertexCount()))

	s := skeleton.NewSkeleton(skeleton.WithBoneCount(bones), skeleton.WithPlaybackSpeed(1), skeleton.WithLogger(logger))
	require.NoError(t, s.Load(writeFile(t, "tri.skel", skeletonBody(bones, frames))))

	return NewShapeSkin(m, a, s, WithName("tri"), WithLogger(logger))
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func meshShader(t *testing.T, r renderer.Renderer) shader.Shader {
	t.Helper()
	p := r.Pipeline(renderer.MeshPipelineKey)
	require.NotNil(t, p)
	return p.Shader(shader.ShaderTypeVertex)
}

func TestShapeSkin_DrawBeforeUpload(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeRaster, nil, renderer.WithSize(16, 16))
	require.NoError(t, err)
	sh := newTestShape(t, quietLogger(), 2, 1)

	err = sh.Draw(r, meshShader(t, r), matstack.NewMatrixStack())
	assert.ErrorIs(t, err, ErrNotUploaded)
}

func TestShapeSkin_UploadAndDraw(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeRaster, nil,
		renderer.WithSize(16, 16), renderer.WithClearColor(common.Color{0, 0, 0, 1}))
	require.NoError(t, err)
	sh := newTestShape(t, quietLogger(), 2, 1)

	require.NoError(t, sh.UploadToGPU(r))
	require.NoError(t, sh.UploadToGPU(r))
	assert.True(t, sh.Uploaded())
	assert.Equal(t, []uint32{0, 1, 2}, sh.MeshProvider().Indices())
	assert.Len(t, sh.MeshProvider().Stream(renderer.NormalStream), 9)

	require.NoError(t, r.BeginFrame())
	require.NoError(t, sh.Draw(r, meshShader(t, r), matstack.NewMatrixStack()))
	require.NoError(t, r.EndFrame())

	img, err := r.Snapshot()
	require.NoError(t, err)
	assert.NotEqual(t, uint8(0), img.NRGBAAt(8, 8).R)

	sh.Release()
	assert.False(t, sh.Uploaded())
}

func TestShapeSkin_DrawMissingAttribute(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeRaster, nil, renderer.WithSize(16, 16))
	require.NoError(t, err)
	sh := newTestShape(t, quietLogger(), 2, 1)
	require.NoError(t, sh.UploadToGPU(r))

	lines := r.Pipeline(renderer.LinePipelineKey).Shader(shader.ShaderTypeVertex)
	err = sh.Draw(r, lines, matstack.NewMatrixStack())
	assert.ErrorIs(t, err, ErrMissingAttribute)
}

func TestShapeSkin_UploadEmptyMesh(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeRaster, nil, renderer.WithSize(16, 16))
	require.NoError(t, err)
	sh := NewShapeSkin(mesh.NewMesh(), skin.NewAttachment(), skeleton.NewSkeleton())

	assert.ErrorIs(t, sh.UploadToGPU(r), ErrEmptyMesh)
	assert.False(t, sh.Uploaded())
}

func TestShapeSkin_DrawBindPoseFrames(t *testing.T) {
	sh := newTestShape(t, quietLogger(), 4, 2)
	target := &recordingTarget{}
	stack := matstack.NewMatrixStack()

	sh.DrawBindPoseFrames(target, stack, false, 0.5)

	require.Len(t, target.batches, 4)
	for b, batch := range target.batches {
		require.Len(t, batch, 3)
		assert.Equal(t, [3]float32{float32(b), 0, 0}, batch[0].From)
		assert.Equal(t, [3]float32{float32(b) + 0.5, 0, 0}, batch[0].To)
		assert.Equal(t, common.ColorRed, batch[0].Color)
	}
	assert.Equal(t, []float32{3, 1}, target.widths)
	assert.Equal(t, 1, stack.Depth())
}

func TestShapeSkin_DrawBindPoseFramesUsesConfiguredBoneCount(t *testing.T) {
	logger := quietLogger()
	m := mesh.NewMesh(mesh.WithParser(stubParser{}), mesh.WithLogger(logger))
	require.NoError(t, m.Load("tri.obj"))

	// the header claims 7 bones while each record carries the configured 4
	body := strings.Replace(skeletonBody(4, 2), "2 4\n", "2 7\n", 1)
	s := skeleton.NewSkeleton(skeleton.WithBoneCount(4), skeleton.WithPlaybackSpeed(1), skeleton.WithLogger(logger))
	require.NoError(t, s.Load(writeFile(t, "tri.skel", body)))
	require.Equal(t, 7, s.DeclaredBoneCount())

	sh := NewShapeSkin(m, skin.NewAttachment(), s, WithLogger(logger))
	target := &recordingTarget{}
	sh.DrawBindPoseFrames(target, matstack.NewMatrixStack(), false, 1)
	assert.Len(t, target.batches, 4)

	target = &recordingTarget{}
	_, err := sh.DrawAnimationFrames(target, matstack.NewMatrixStack(), 1.5, false, 1)
	require.NoError(t, err)
	assert.Len(t, target.batches, 4)
}

func TestShapeSkin_DrawBindPoseFramesNotLoaded(t *testing.T) {
	sh := NewShapeSkin(mesh.NewMesh(), skin.NewAttachment(), skeleton.NewSkeleton())
	target := &recordingTarget{}

	sh.DrawBindPoseFrames(target, matstack.NewMatrixStack(), false, 1)

	assert.Empty(t, target.batches)
	assert.Empty(t, target.widths)
}

func TestShapeSkin_DrawAnimationFrames(t *testing.T) {
	sh := newTestShape(t, quietLogger(), 4, 3)
	target := &recordingTarget{}

	// speed 1, four bones: t = 2.5 selects frame 2, which has y = 3
	idx, err := sh.DrawAnimationFrames(target, matstack.NewMatrixStack(), 2.5, false, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	require.Len(t, target.batches, 4)
	assert.Equal(t, [3]float32{1, 3, 0}, target.batches[1][0].From)
}

func TestShapeSkin_DrawAnimationFramesOutOfRangeLogsOnce(t *testing.T) {
	var buf bytes.Buffer
	sh := newTestShape(t, log.New(&buf, "", 0), 4, 2)
	target := &recordingTarget{}
	stack := matstack.NewMatrixStack()

	for range 3 {
		idx, err := sh.DrawAnimationFrames(target, stack, 3.5, false, 1)
		assert.ErrorIs(t, err, skeleton.ErrFrameOutOfRange)
		assert.Equal(t, 3, idx)
	}

	assert.Empty(t, target.batches)
	assert.Equal(t, 1, strings.Count(buf.String(), "[ShapeSkin]"))
}
