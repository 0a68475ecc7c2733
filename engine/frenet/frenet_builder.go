package frenet

import "log"

// FrameRendererBuilderOption is a functional option for configuring a FrameRenderer via NewFrameRenderer.
type FrameRendererBuilderOption func(*frameRenderer)

// WithLogger is an option builder that sets the logger debug dumps are written to.
//
// Parameters:
//   - l: the diagnostic logger
//
// Returns:
//   - FrameRendererBuilderOption: a function that applies the logger option to a frame renderer
func WithLogger(l *log.Logger) FrameRendererBuilderOption {
	return func(f *frameRenderer) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithLineWidth is an option builder that sets the width of marker segments.
//
// Parameters:
//   - w: the line width in pixels, must be positive
//
// Returns:
//   - FrameRendererBuilderOption: a function that applies the line width option to a frame renderer
func WithLineWidth(w float32) FrameRendererBuilderOption {
	return func(f *frameRenderer) {
		if w > 0 {
			f.lineWidth = w
		}
	}
}
