package engine

import (
	"log"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/config"
	"github.com/Carmen-Shannon/oxy-skin/engine/camera"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/shape_skin"
	"github.com/Carmen-Shannon/oxy-skin/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The playback clock advances at this rate.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets the window the engine pumps messages for and receives input from.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer frames are drawn with.
//
// Parameters:
//   - r: the Renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithShape sets the shape the engine displays.
//
// Parameters:
//   - s: the ShapeSkin, uploaded on the first frame if needed
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithShape(s shape_skin.ShapeSkin) EngineBuilderOption {
	return func(e *engine) {
		e.shape = s
	}
}

// WithCamera sets a custom camera. The engine does not reframe a supplied camera until R is pressed.
//
// Parameters:
//   - c: the Camera
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithLogger sets the logger for engine and profiler output.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(l *log.Logger) EngineBuilderOption {
	return func(e *engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMode sets the initial display mode. Unknown modes are ignored.
//
// Parameters:
//   - mode: config.ModeBind or config.ModeAnimate
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMode(mode string) EngineBuilderOption {
	return func(e *engine) {
		if mode == config.ModeBind || mode == config.ModeAnimate {
			e.mode = mode
		}
	}
}

// WithDebug sets the initial state of the per-frame marker dump.
//
// Parameters:
//   - debug: the debug flag
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDebug(debug bool) EngineBuilderOption {
	return func(e *engine) {
		e.debug = debug
	}
}

// WithAxisLength sets the length of the marker axes.
//
// Parameters:
//   - length: the axis length in model units, ignored unless positive
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithAxisLength(length float32) EngineBuilderOption {
	return func(e *engine) {
		if length > 0 {
			e.axisLength = length
		}
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
