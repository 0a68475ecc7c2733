package frenet

import (
	"bytes"
	"log"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/matstack"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	model    [16]float32
	segments []common.Segment
	depth    int
}

type recordingSink struct {
	stack matstack.MatrixStack
	calls []call
}

func (r *recordingSink) DrawLines(model [16]float32, segments []common.Segment) {
	r.calls = append(r.calls, call{model: model, segments: segments, depth: r.stack.Depth()})
}

func TestSegments_IdentityAtTranslation(t *testing.T) {
	m := common.QuatToMat4(common.IdentityQuat(), [3]float32{1, 2, 3})
	segs := Segments(m, 0.5, 3)

	require.Len(t, segs, 3)
	assert.Equal(t, [3]float32{1, 2, 3}, segs[0].From)
	assert.Equal(t, [3]float32{1.5, 2, 3}, segs[0].To)
	assert.Equal(t, [3]float32{1, 2.5, 3}, segs[1].To)
	assert.Equal(t, [3]float32{1, 2, 3.5}, segs[2].To)
	assert.Equal(t, common.ColorRed, segs[0].Color)
	assert.Equal(t, common.ColorGreen, segs[1].Color)
	assert.Equal(t, common.ColorBlue, segs[2].Color)
	assert.Equal(t, float32(3), segs[2].Width)
}

func TestSegments_FollowLocalAxes(t *testing.T) {
	// quarter turn about z: local x points along world y
	m := common.QuatToMat4(common.Quat{W: 0.70710678, Z: 0.70710678}, [3]float32{})
	segs := Segments(m, 1, 1)

	assert.InDelta(t, 0, segs[0].To[0], 1e-6)
	assert.InDelta(t, 1, segs[0].To[1], 1e-6)
	assert.InDelta(t, -1, segs[1].To[0], 1e-6)
}

func TestDrawFrame_IdempotentAndQuiet(t *testing.T) {
	var buf bytes.Buffer
	fr := NewFrameRenderer(WithLogger(log.New(&buf, "", 0)))
	stack := matstack.NewMatrixStack()
	sink := &recordingSink{stack: stack}
	m := common.QuatToMat4(common.Quat{W: 0.5, X: 0.5, Y: 0.5, Z: 0.5}, [3]float32{4, 5, 6})

	fr.DrawFrame(stack, sink, m, false, 0.3)
	fr.DrawFrame(stack, sink, m, false, 0.3)

	require.Len(t, sink.calls, 2)
	assert.Equal(t, sink.calls[0], sink.calls[1])
	assert.Empty(t, buf.String())
	assert.Equal(t, 1, stack.Depth())
	assert.Equal(t, 2, sink.calls[0].depth)
}

func TestDrawFrame_DebugDump(t *testing.T) {
	var buf bytes.Buffer
	fr := NewFrameRenderer(WithLogger(log.New(&buf, "", 0)))
	stack := matstack.NewMatrixStack()
	m := common.QuatToMat4(common.IdentityQuat(), [3]float32{1, 2, 3})

	fr.DrawFrame(stack, &recordingSink{stack: stack}, m, true, 0.3)

	out := buf.String()
	assert.Contains(t, out, "[Frenet] transform:")
	assert.Contains(t, out, " 1.00  0.00  0.00  1.00 ")
	assert.Contains(t, out, "column 3: (1.0000, 2.0000, 3.0000, 1.0000)")
	assert.Contains(t, out, "p: (1.0000, 2.0000, 3.0000)")
}

type panickingSink struct{}

func (panickingSink) DrawLines([16]float32, []common.Segment) { panic("device lost") }

func TestDrawFrame_PopsOnPanic(t *testing.T) {
	fr := NewFrameRenderer()
	stack := matstack.NewMatrixStack()

	assert.Panics(t, func() {
		fr.DrawFrame(stack, panickingSink{}, common.IdentityMat4(), false, 1)
	})
	assert.Equal(t, 1, stack.Depth())
}
