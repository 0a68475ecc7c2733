package camera

// CameraBuilderOption is a functional option for configuring a Camera via NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithFov sets the vertical field of view.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: functional option to set the field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if fov > 0 {
			c.fov = fov
		}
	}
}

// WithAspect sets the aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio
//
// Returns:
//   - CameraBuilderOption: functional option to set the aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithAzimuth sets the starting horizontal angle around the target.
//
// Parameters:
//   - azimuth: the angle in radians
//
// Returns:
//   - CameraBuilderOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.azimuth = azimuth
	}
}

// WithElevation sets the starting vertical angle above the horizontal plane.
//
// Parameters:
//   - elevation: the angle in radians
//
// Returns:
//   - CameraBuilderOption: functional option to set the elevation
func WithElevation(elevation float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.elevation = clamp(elevation, -c.maxElevation, c.maxElevation)
	}
}

// WithZoomSpeed sets the fraction of the radius removed per zoom step.
//
// Parameters:
//   - speed: a fraction in (0, 1)
//
// Returns:
//   - CameraBuilderOption: functional option to set the zoom speed
func WithZoomSpeed(speed float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if speed > 0 && speed < 1 {
			c.zoomSpeed = speed
		}
	}
}

// WithOrbitSpeed sets the multiplier applied to Orbit deltas.
//
// Parameters:
//   - speed: the multiplier
//
// Returns:
//   - CameraBuilderOption: functional option to set the orbit speed
func WithOrbitSpeed(speed float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if speed > 0 {
			c.orbitSpeed = speed
		}
	}
}
