// Package camera provides the orbit camera that produces the view and projection transforms of the viewer.
package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/chewxy/math32"
)

// cameraImpl is the implementation of the Camera interface.
type cameraImpl struct {
	mu *sync.Mutex

	up [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	// Spherical coordinates of the eye around target
	target    [3]float32
	radius    float32
	azimuth   float32 // around +Y, 0 looks down -Z
	elevation float32 // above the horizontal plane

	minRadius    float32
	maxRadius    float32
	maxElevation float32

	zoomSpeed  float32
	orbitSpeed float32

	position         [3]float32
	viewMatrix       [16]float32
	projectionMatrix [16]float32
}

// Camera is an orbit camera: the eye sits on a sphere around a target point and always looks at it.
// View and projection matrices are column-major and recomputed on every change.
type Camera interface {
	// ViewMatrix returns the current view matrix.
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current perspective projection with depth in [0, 1].
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// Position returns the eye position in world space.
	//
	// Returns:
	//   - [3]float32: the eye position
	Position() [3]float32

	// Target returns the look-at point.
	//
	// Returns:
	//   - [3]float32: the target
	Target() [3]float32

	// Radius returns the distance from the eye to the target.
	//
	// Returns:
	//   - float32: the orbit radius
	Radius() float32

	// SetAspect sets the projection aspect ratio (width / height).
	//
	// Parameters:
	//   - aspect: the aspect ratio, ignored when not positive
	SetAspect(aspect float32)

	// Orbit rotates the eye around the target. Deltas are scaled by the orbit speed and elevation is clamped
	// short of the poles.
	//
	// Parameters:
	//   - dAzimuth: the horizontal rotation
	//   - dElevation: the vertical rotation
	Orbit(dAzimuth, dElevation float32)

	// Zoom scales the orbit radius. Positive delta moves the eye closer to the target.
	//
	// Parameters:
	//   - delta: the zoom steps, usually the scroll offset
	Zoom(delta float32)

	// Pan moves target and eye together along the view's right and up axes, scaled by the orbit radius.
	//
	// Parameters:
	//   - dx: the movement along the right axis
	//   - dy: the movement along the up axis
	Pan(dx, dy float32)

	// Frame aims the camera at a bounding sphere and backs off until it fits the field of view.
	// The zoom range and clip planes are derived from the resulting distance.
	//
	// Parameters:
	//   - center: the sphere center
	//   - radius: the sphere radius
	Frame(center [3]float32, radius float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates an orbit camera looking at the origin from +Z.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:           &sync.Mutex{},
		up:           [3]float32{0, 1, 0},
		fov:          45.0 * (math32.Pi / 180.0), // radians
		aspect:       1.0,
		near:         0.01,
		far:          100.0,
		radius:       3,
		elevation:    math32.Pi / 12,
		minRadius:    0.05,
		maxRadius:    50,
		maxElevation: math32.Pi/2 - 0.05,
		zoomSpeed:    0.1,
		orbitSpeed:   1,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Radius() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radius
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) Orbit(dAzimuth, dElevation float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.azimuth += dAzimuth * c.orbitSpeed
	c.elevation = clamp(c.elevation+dElevation*c.orbitSpeed, -c.maxElevation, c.maxElevation)
	c.updateMatrices()
}

func (c *cameraImpl) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius = clamp(c.radius*math32.Pow(1-c.zoomSpeed, delta), c.minRadius, c.maxRadius)
	c.updateMatrices()
}

func (c *cameraImpl) Pan(dx, dy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// right and up are rows 0 and 1 of the view rotation
	v := c.viewMatrix
	right := [3]float32{v[0], v[4], v[8]}
	up := [3]float32{v[1], v[5], v[9]}
	for i := range c.target {
		c.target[i] += (right[i]*dx + up[i]*dy) * c.radius
	}
	c.updateMatrices()
}

func (c *cameraImpl) Frame(center [3]float32, radius float32) {
	if radius <= 0 {
		radius = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	half := c.fov / 2
	if c.aspect < 1 {
		half = math32.Atan(math32.Tan(half) * c.aspect)
	}
	dist := radius / math32.Sin(half) * 1.1

	c.target = center
	c.radius = dist
	c.minRadius = dist * 0.05
	c.maxRadius = dist * 20
	c.near = dist * 0.01
	c.far = dist * 40
	c.updateMatrices()
}

// updateMatrices recomputes the eye position and both matrices. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	cosElev, sinElev := math32.Cos(c.elevation), math32.Sin(c.elevation)
	cosAzim, sinAzim := math32.Cos(c.azimuth), math32.Sin(c.azimuth)

	c.position = [3]float32{
		c.target[0] + c.radius*cosElev*sinAzim,
		c.target[1] + c.radius*sinElev,
		c.target[2] + c.radius*cosElev*cosAzim,
	}

	common.LookAt(c.viewMatrix[:], c.position, c.target, c.up)
	common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
}

// Bounds returns the bounding sphere of a flat xyz position array: the center of its axis-aligned box and the
// distance to the farthest position. An empty array yields the unit sphere at the origin.
//
// Parameters:
//   - positions: flat xyz triples
//
// Returns:
//   - [3]float32: the sphere center
//   - float32: the sphere radius
func Bounds(positions []float32) ([3]float32, float32) {
	if len(positions) < 3 {
		return [3]float32{}, 1
	}
	lo := [3]float32{positions[0], positions[1], positions[2]}
	hi := lo
	for i := 3; i+2 < len(positions); i += 3 {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], positions[i+k])
			hi[k] = max(hi[k], positions[i+k])
		}
	}
	center := [3]float32{(lo[0] + hi[0]) / 2, (lo[1] + hi[1]) / 2, (lo[2] + hi[2]) / 2}

	var r2 float32
	for i := 0; i+2 < len(positions); i += 3 {
		dx, dy, dz := positions[i]-center[0], positions[i+1]-center[1], positions[i+2]-center[2]
		r2 = max(r2, dx*dx+dy*dy+dz*dz)
	}
	if r2 == 0 {
		return center, 1
	}
	return center, math32.Sqrt(r2)
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
