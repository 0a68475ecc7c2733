package loader

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadOBJ = `# quad split into a quad face and a triangle
mtllib quad.mtl
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
vn 0 0 1
vn 0 0 1
vn 0 0 1
vt 0 0
usemtl skin
s off
f 1/1/1 2/1/2 3/1/3 4/1/4
g tail
f -4//1 -2//3 -1//4
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func TestOBJParser_ParseReader(t *testing.T) {
	p := NewOBJParser().(*objParser)
	res, err := p.ParseReader(strings.NewReader(quadOBJ))
	require.NoError(t, err)

	assert.Len(t, res.Positions, 12)
	assert.Len(t, res.Normals, 12)
	assert.Equal(t, []float32{0, 0}, res.Texcoords)

	require.Len(t, res.Shapes, 2)
	assert.Equal(t, "quad", res.Shapes[0].Name)
	assert.Equal(t, []int{3, 3}, res.Shapes[0].FaceVertexCounts)
	assert.Equal(t, []int{0, 0}, res.Shapes[0].MaterialIDs)
	assert.Equal(t, 2, res.Shapes[0].Indices[2].Vertex)
	assert.Equal(t, 0, res.Shapes[0].Indices[2].Texcoord)

	tail := res.Shapes[1]
	assert.Equal(t, "tail", tail.Name)
	assert.Equal(t, []int{3}, tail.FaceVertexCounts)
	assert.Equal(t, 0, tail.Indices[0].Vertex)
	assert.Equal(t, 2, tail.Indices[1].Vertex)
	assert.Equal(t, 3, tail.Indices[2].Vertex)
	assert.Equal(t, -1, tail.Indices[0].Texcoord)
	assert.Empty(t, res.Warnings)
}

func TestOBJParser_FanTriangulatesPolygons(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 2 1 0\nv 1 2 0\nv 0 1 0\nusemtl a\nf 1 2 3 4 5\nusemtl b\nf 5 4 3\n"
	res, err := NewOBJParser().(*objParser).ParseReader(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, res.Shapes, 1)

	s := res.Shapes[0]
	assert.Equal(t, []int{3, 3, 3, 3}, s.FaceVertexCounts)
	assert.Equal(t, []int{0, 0, 0, 1}, s.MaterialIDs)
	require.Len(t, s.Indices, 12)

	got := make([]int, len(s.Indices))
	for i, idx := range s.Indices {
		got[i] = idx.Vertex
	}
	assert.Equal(t, []int{0, 1, 2, 0, 2, 3, 0, 3, 4, 4, 3, 2}, got)
}

func TestLoader_LoadIndicesFormTriangles(t *testing.T) {
	l := NewLoader(BackendTypeOBJ, WithLogger(quietLogger()), WithBoneCount(2))

	shape, err := l.Load(assets(t, 1))
	require.NoError(t, err)

	indices := shape.Mesh().Indices()
	assert.Zero(t, len(indices)%3)
	assert.Equal(t, []uint32{0, 1, 2}, indices[0:3])
	assert.Equal(t, []uint32{0, 2, 3}, indices[3:6])
}

func TestOBJParser_Warnings(t *testing.T) {
	res, err := NewOBJParser().(*objParser).ParseReader(strings.NewReader("v 0 0 0\nl 1 1\n"))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "obj(2)")
	assert.Empty(t, res.Shapes)
}

func TestOBJParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"short vertex", "v 1 2\n", "line:1"},
		{"bad float", "v 1 x 2\n", "invalid vertex"},
		{"short face", "v 0 0 0\nf 1 1\n", "less than 3"},
		{"zero index", "v 0 0 0\nf 0 1 1\n", "equal to 0"},
		{"out of range", "v 0 0 0\nf 1 2 3\n", "out of range"},
		{"bad normal", "v 0 0 0\nf 1//2 1//2 1//2\n", "normal index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOBJParser().(*objParser).ParseReader(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOBJParser_ParseMissingFile(t *testing.T) {
	_, err := NewOBJParser().Parse(filepath.Join(t.TempDir(), "missing.obj"))
	assert.Error(t, err)
}

// assets writes a quad mesh, a 4x2 attachment and a 2-bone skeleton with frames animation frames.
func assets(t *testing.T, frames int) AssetPaths {
	t.Helper()
	dir := t.TempDir()

	var skel strings.Builder
	skel.WriteString("# skeleton\n# test\n# frames bones\n")
	fmt.Fprintf(&skel, "%d 2\n", frames)
	for k := 0; k <= frames; k++ {
		skel.WriteString("0 0 0 1 0 0 0 0 0 0 1 1 0 0\n")
	}

	return AssetPaths{
		Mesh:       writeFile(t, dir, "quad.obj", quadOBJ),
		Attachment: writeFile(t, dir, "quad.att", "# weights\n# test\n4 2\n1 0\n1 0\n0 1\n0 1\n"),
		Skeleton:   writeFile(t, dir, "quad.skel", skel.String()),
	}
}

func TestLoader_Load(t *testing.T) {
	l := NewLoader(BackendTypeOBJ, WithLogger(quietLogger()), WithBoneCount(2), WithPlaybackSpeed(5))

	shape, err := l.Load(assets(t, 3))
	require.NoError(t, err)

	assert.Equal(t, "quad", shape.Name())
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3, 0, 2, 3}, shape.Mesh().Indices())
	assert.Equal(t, 4, shape.Attachment().RowCount())
	assert.Equal(t, float32(1), shape.Attachment().Weight(2, 1))
	assert.Equal(t, 2, shape.Skeleton().BoneCount())
	assert.Equal(t, float32(5), shape.Skeleton().PlaybackSpeed())
	assert.Equal(t, 3, shape.Skeleton().FrameCount())
	assert.False(t, shape.Uploaded())
}

func TestLoader_LoadCaches(t *testing.T) {
	l := NewLoader(BackendTypeOBJ, WithLogger(quietLogger()), WithBoneCount(2))
	paths := assets(t, 1)

	first, err := l.Load(paths)
	require.NoError(t, err)
	second, err := l.Load(paths)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, l.Get(paths.Mesh))
	assert.Len(t, l.Shapes(), 1)
	assert.Nil(t, l.Get("other.obj"))
}

func TestLoader_LoadUploadsWithRenderer(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeRaster, nil, renderer.WithSize(8, 8))
	require.NoError(t, err)
	l := NewLoader(BackendTypeOBJ, WithLogger(quietLogger()), WithBoneCount(2), WithRenderer(r))

	shape, err := l.Load(assets(t, 1))
	require.NoError(t, err)
	assert.True(t, shape.Uploaded())
	assert.Len(t, shape.MeshProvider().Stream(renderer.PositionStream), 12)
}

func TestLoader_LoadMeshOnly(t *testing.T) {
	l := NewLoader(BackendTypeOBJ, WithLogger(quietLogger()))
	paths := assets(t, 1)

	shape, err := l.Load(AssetPaths{Mesh: paths.Mesh})
	require.NoError(t, err)
	assert.Equal(t, 0, shape.Attachment().RowCount())
	assert.False(t, shape.Skeleton().Loaded())
}

func TestLoader_LoadErrors(t *testing.T) {
	l := NewLoader(BackendTypeOBJ, WithLogger(quietLogger()), WithBoneCount(2))
	paths := assets(t, 1)

	_, err := l.Load(AssetPaths{Mesh: "model.gltf"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	missing := paths
	missing.Skeleton = filepath.Join(t.TempDir(), "missing.skel")
	_, err = l.Load(missing)
	assert.Error(t, err)
	assert.Nil(t, l.Get(paths.Mesh))
}

func TestLoader_LoadAttachmentMismatchPanics(t *testing.T) {
	l := NewLoader(BackendTypeOBJ, WithLogger(quietLogger()), WithBoneCount(2))
	paths := assets(t, 1)
	paths.Attachment = writeFile(t, t.TempDir(), "bad.att", "# a\n# b\n3 2\n1 0\n1 0\n1 0\n")

	assert.Panics(t, func() { _, _ = l.Load(paths) })
}

func TestLoader_WithShape(t *testing.T) {
	seed := NewLoader(BackendTypeOBJ, WithLogger(quietLogger()), WithBoneCount(2))
	shape, err := seed.Load(assets(t, 1))
	require.NoError(t, err)

	l := NewLoader(BackendTypeOBJ, WithShape("cached", shape))
	assert.Same(t, shape, l.Get("cached"))
}
