// Package matstack provides the model transform stack that renderers push and pop around scoped drawing.
package matstack

import (
	"github.com/Carmen-Shannon/oxy-skin/common"
)

// matrixStack is the implementation of the MatrixStack interface.
type matrixStack struct {
	stack [][16]float32
}

// MatrixStack is a stack of column-major 4x4 transforms. The top is the current model transform.
// It is owned by the render thread and is not safe for concurrent use.
type MatrixStack interface {
	// Push duplicates the top of the stack.
	Push()

	// Pop discards the top of the stack. Popping the root panics, as it indicates unbalanced push/pop pairs.
	Pop()

	// Top returns the current transform.
	//
	// Returns:
	//   - [16]float32: the top of the stack
	Top() [16]float32

	// LoadIdentity replaces the top with the identity.
	LoadIdentity()

	// LoadMatrix replaces the top with m.
	//
	// Parameters:
	//   - m: the new top transform
	LoadMatrix(m [16]float32)

	// MultMatrix post-multiplies the top by m (top = top * m).
	//
	// Parameters:
	//   - m: the transform to apply
	MultMatrix(m [16]float32)

	// Translate post-multiplies the top by a translation.
	//
	// Parameters:
	//   - x, y, z: the translation
	Translate(x, y, z float32)

	// Scale post-multiplies the top by a uniform scale.
	//
	// Parameters:
	//   - s: the scale factor
	Scale(s float32)

	// Depth returns the number of entries on the stack. A fresh stack has depth 1.
	//
	// Returns:
	//   - int: the stack depth
	Depth() int
}

var _ MatrixStack = &matrixStack{}

// NewMatrixStack creates a stack holding a single identity transform.
//
// Returns:
//   - MatrixStack: the new stack
func NewMatrixStack() MatrixStack {
	return &matrixStack{
		stack: [][16]float32{common.IdentityMat4()},
	}
}

func (s *matrixStack) Push() {
	s.stack = append(s.stack, s.stack[len(s.stack)-1])
}

func (s *matrixStack) Pop() {
	if len(s.stack) == 1 {
		panic("matstack: pop of the root transform")
	}
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *matrixStack) Top() [16]float32 {
	return s.stack[len(s.stack)-1]
}

func (s *matrixStack) LoadIdentity() {
	s.stack[len(s.stack)-1] = common.IdentityMat4()
}

func (s *matrixStack) LoadMatrix(m [16]float32) {
	s.stack[len(s.stack)-1] = m
}

func (s *matrixStack) MultMatrix(m [16]float32) {
	top := &s.stack[len(s.stack)-1]
	common.Mul4(top[:], top[:], m[:])
}

func (s *matrixStack) Translate(x, y, z float32) {
	t := common.IdentityMat4()
	t[12], t[13], t[14] = x, y, z
	s.MultMatrix(t)
}

func (s *matrixStack) Scale(k float32) {
	m := common.IdentityMat4()
	m[0], m[5], m[10] = k, k, k
	s.MultMatrix(m)
}

func (s *matrixStack) Depth() int {
	return len(s.stack)
}
