package mesh

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubParser struct {
	res *ParseResult
	err error
}

func (s stubParser) Parse(string) (*ParseResult, error) {
	return s.res, s.err
}

func faces(counts []int, vertex ...int) Shape {
	s := Shape{FaceVertexCounts: counts}
	for _, v := range vertex {
		s.Indices = append(s.Indices, Index{Vertex: v, Normal: v, Texcoord: -1})
	}
	for range counts {
		s.MaterialIDs = append(s.MaterialIDs, -1)
	}
	return s
}

func quadAndTriangle() *ParseResult {
	return &ParseResult{
		Positions: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0, 0, 0, 1},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		Shapes: []Shape{
			faces([]int{4}, 0, 1, 2, 3),
			faces([]int{3}, 4, 0, 1),
		},
	}
}

func TestLoad_IndexCountIsSumOfFaceSizes(t *testing.T) {
	m := NewMesh(WithParser(stubParser{res: quadAndTriangle()}), WithLogger(log.New(&bytes.Buffer{}, "", 0)))

	require.NoError(t, m.Load("cube.obj"))

	assert.Len(t, m.Indices(), 4+3)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 0, 1}, m.Indices())
	assert.Equal(t, 5, m.VertexCount())
	for _, idx := range m.Indices() {
		assert.Less(t, int(idx), m.VertexCount())
	}
	assert.False(t, m.Empty())
}

func TestLoad_DiscardsNormalAndTexcoordIndices(t *testing.T) {
	res := quadAndTriangle()
	res.Shapes = []Shape{{
		FaceVertexCounts: []int{3},
		Indices:          []Index{{Vertex: 2, Normal: 0, Texcoord: 1}, {Vertex: 3, Normal: 0, Texcoord: 1}, {Vertex: 4, Normal: 0, Texcoord: 1}},
		MaterialIDs:      []int{7},
	}}
	m := NewMesh(WithParser(stubParser{res: res}), WithLogger(log.New(&bytes.Buffer{}, "", 0)))

	require.NoError(t, m.Load("tri.obj"))
	assert.Equal(t, []uint32{2, 3, 4}, m.Indices())
}

func TestLoad_ParserFailureLeavesStoreEmpty(t *testing.T) {
	var buf bytes.Buffer
	m := NewMesh(WithParser(stubParser{err: errors.New("bad face in line:3")}), WithLogger(log.New(&buf, "", 0)))

	err := m.Load("broken.obj")

	require.ErrorIs(t, err, ErrParse)
	assert.True(t, m.Empty())
	assert.Empty(t, m.Positions())
	assert.Contains(t, buf.String(), "bad face in line:3")
}

func TestLoad_ParserFailureClearsPreviousMesh(t *testing.T) {
	p := &stubParser{res: quadAndTriangle()}
	m := NewMesh(WithParser(p), WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	require.NoError(t, m.Load("quad.obj"))
	require.False(t, m.Empty())

	p.res, p.err = nil, errors.New("unexpected EOF")
	require.ErrorIs(t, m.Load("quad.obj"), ErrParse)

	assert.True(t, m.Empty())
	assert.Empty(t, m.Positions())
	assert.Empty(t, m.Normals())
	assert.Empty(t, m.Indices())
}

func TestLoad_NoParser(t *testing.T) {
	m := NewMesh(WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	assert.ErrorIs(t, m.Load("x.obj"), ErrParse)
	assert.True(t, m.Empty())
}

func TestLoad_PositionNormalMismatchPanics(t *testing.T) {
	res := quadAndTriangle()
	res.Normals = res.Normals[:6]
	m := NewMesh(WithParser(stubParser{res: res}), WithLogger(log.New(&bytes.Buffer{}, "", 0)))

	assert.Panics(t, func() { _ = m.Load("mismatch.obj") })
}
