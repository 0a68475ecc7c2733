// package common contains common types that are used throughout this viewer. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// Quat is a rotation quaternion stored scalar-first.
type Quat struct {
	// W is the scalar part.
	W float32
	// X, Y, Z are the vector part.
	X, Y, Z float32
}

// IdentityQuat returns the quaternion representing no rotation.
func IdentityQuat() Quat {
	return Quat{W: 1}
}

// Color is a linear RGBA color with components in [0, 1].
type Color [4]float32

var (
	// ColorRed marks the first local axis of a coordinate frame.
	ColorRed = Color{1, 0, 0, 1}
	// ColorGreen marks the second local axis of a coordinate frame.
	ColorGreen = Color{0, 1, 0, 1}
	// ColorBlue marks the third local axis of a coordinate frame.
	ColorBlue = Color{0, 0, 1, 1}
)

// Segment is a colored line segment in world space.
type Segment struct {
	// From is the starting point.
	From [3]float32
	// To is the end point.
	To [3]float32
	// Color is the segment color.
	Color Color
	// Width is the requested line width in pixels.
	Width float32
}

// Vertex is the interleaved layout uploaded for line primitives: position followed by color.
type Vertex struct {
	Position [3]float32
	Color    Color
}
