package loader

import (
	"log"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/shape_skin"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithRenderer is an option builder that sets the Renderer loaded meshes are uploaded to.
//
// Parameters:
//   - r: the renderer instance
//
// Returns:
//   - LoaderBuilderOption: a function that applies the renderer option to a loader
func WithRenderer(r renderer.Renderer) LoaderBuilderOption {
	return func(l *loader) {
		l.renderer = r
	}
}

// WithShape is an option builder that pre-populates the shape cache.
//
// Parameters:
//   - key: the cache key for the shape
//   - shape: the shape to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the shape option to a loader
func WithShape(key string, shape shape_skin.ShapeSkin) LoaderBuilderOption {
	return func(l *loader) {
		l.shapeCache[key] = shape
	}
}

// WithLogger is an option builder that sets the logger handed to every store the loader creates.
//
// Parameters:
//   - lg: the diagnostic logger
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(lg *log.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// WithBoneCount is an option builder that sets the number of bones read from every skeleton record.
//
// Parameters:
//   - n: the bone count, must be positive
//
// Returns:
//   - LoaderBuilderOption: a function that applies the bone count option to a loader
func WithBoneCount(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.boneCount = n
		}
	}
}

// WithPlaybackSpeed is an option builder that sets the frame selection speed of loaded skeletons.
//
// Parameters:
//   - speed: the playback speed, must be positive
//
// Returns:
//   - LoaderBuilderOption: a function that applies the playback speed option to a loader
func WithPlaybackSpeed(speed float32) LoaderBuilderOption {
	return func(l *loader) {
		if speed > 0 {
			l.playbackSpeed = speed
		}
	}
}
