// Package frenet draws coordinate-frame markers: a red/green/blue line triple along a bone's local axes.
package frenet

import (
	"log"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/matstack"
)

// DefaultLineWidth is the marker line width.
const DefaultLineWidth float32 = 3

// LineSink receives the marker segments. The renderer backends implement it.
type LineSink interface {
	// DrawLines draws segments under the given model transform.
	//
	// Parameters:
	//   - model: the model transform taken from the top of the matrix stack
	//   - segments: the segments to draw
	DrawLines(model [16]float32, segments []common.Segment)
}

// frameRenderer is the implementation of the FrameRenderer interface.
type frameRenderer struct {
	logger    *log.Logger
	lineWidth float32
}

// FrameRenderer draws one marker per call.
type FrameRenderer interface {
	// DrawFrame emits three segments from the translation point of transform along its local +X, +Y and +Z axes,
	// colored red, green and blue. The matrix stack is pushed before drawing and popped on every exit path.
	// When debug is set the transform, its four columns and its origin are written to the logger.
	//
	// Parameters:
	//   - stack: the model transform stack
	//   - sink: where the segments are drawn
	//   - transform: the bone transform
	//   - debug: whether to dump the transform
	//   - axisLength: the length of each axis segment
	DrawFrame(stack matstack.MatrixStack, sink LineSink, transform [16]float32, debug bool, axisLength float32)
}

var _ FrameRenderer = &frameRenderer{}

// NewFrameRenderer creates a FrameRenderer with the provided options applied.
//
// Parameters:
//   - options: a variadic list of FrameRendererBuilderOption functions
//
// Returns:
//   - FrameRenderer: the new frame renderer
func NewFrameRenderer(options ...FrameRendererBuilderOption) FrameRenderer {
	f := &frameRenderer{
		logger:    log.Default(),
		lineWidth: DefaultLineWidth,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

func (f *frameRenderer) DrawFrame(stack matstack.MatrixStack, sink LineSink, transform [16]float32, debug bool, axisLength float32) {
	stack.Push()
	defer stack.Pop()

	sink.DrawLines(stack.Top(), Segments(transform, axisLength, f.lineWidth))

	if debug {
		f.dump(transform)
	}
}

func (f *frameRenderer) dump(m [16]float32) {
	f.logger.Printf("[Frenet] transform:")
	for _, row := range common.FormatMat4(m) {
		f.logger.Printf("[Frenet]   %s", row)
	}
	for c := 0; c < 4; c++ {
		col := common.Column(m, c)
		f.logger.Printf("[Frenet] column %d: (%.4f, %.4f, %.4f, %.4f)", c, col[0], col[1], col[2], col[3])
	}
	p := common.MulPoint(m, [3]float32{})
	f.logger.Printf("[Frenet] p: (%.4f, %.4f, %.4f)", p[0], p[1], p[2])
}

// Segments computes the marker geometry for transform: one segment per local axis, starting at the transform's
// origin and ending axisLength along the corresponding rotation column.
//
// Parameters:
//   - transform: the bone transform
//   - axisLength: the segment length
//   - width: the line width carried by each segment
//
// Returns:
//   - []common.Segment: the red, green and blue segments, in that order
func Segments(transform [16]float32, axisLength, width float32) []common.Segment {
	origin := common.Column(transform, 3)
	p := [3]float32{origin[0], origin[1], origin[2]}
	colors := [3]common.Color{common.ColorRed, common.ColorGreen, common.ColorBlue}

	segs := make([]common.Segment, 3)
	for i := range segs {
		axis := common.Column(transform, i)
		segs[i] = common.Segment{
			From:  p,
			To:    [3]float32{p[0] + axisLength*axis[0], p[1] + axisLength*axis[1], p[2] + axisLength*axis[2]},
			Color: colors[i],
			Width: width,
		}
	}
	return segs
}
