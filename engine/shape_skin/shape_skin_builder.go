package shape_skin

import (
	"log"

	"github.com/Carmen-Shannon/oxy-skin/engine/frenet"
)

// ShapeSkinBuilderOption is a functional option for configuring a ShapeSkin via NewShapeSkin.
type ShapeSkinBuilderOption func(*shapeSkin)

// WithName is an option builder that sets the shape name, which also labels its device buffers.
//
// Parameters:
//   - name: the shape name
//
// Returns:
//   - ShapeSkinBuilderOption: a function that applies the name option to a shape
func WithName(name string) ShapeSkinBuilderOption {
	return func(s *shapeSkin) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger is an option builder that sets the diagnostic logger.
//
// Parameters:
//   - l: the diagnostic logger
//
// Returns:
//   - ShapeSkinBuilderOption: a function that applies the logger option to a shape
func WithLogger(l *log.Logger) ShapeSkinBuilderOption {
	return func(s *shapeSkin) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFrameRenderer is an option builder that sets the FrameRenderer used for bone markers.
//
// Parameters:
//   - f: the frame renderer
//
// Returns:
//   - ShapeSkinBuilderOption: a function that applies the frame renderer option to a shape
func WithFrameRenderer(f frenet.FrameRenderer) ShapeSkinBuilderOption {
	return func(s *shapeSkin) {
		s.frames = f
	}
}

// WithPipelineKey is an option builder that sets the pipeline the mesh is drawn with.
//
// Parameters:
//   - key: a registered pipeline key
//
// Returns:
//   - ShapeSkinBuilderOption: a function that applies the pipeline key option to a shape
func WithPipelineKey(key string) ShapeSkinBuilderOption {
	return func(s *shapeSkin) {
		if key != "" {
			s.pipelineKey = key
		}
	}
}
