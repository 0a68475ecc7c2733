package window

import "log"

// WindowBuilderOption configures a window before it is created.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the title bar text.
//
// Parameters:
//   - title: the window title, ignored when empty
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		if title != "" {
			w.title = title
		}
	}
}

// WithSize sets the requested initial size. The size is clamped to the window's SizeLimits.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
		w.height = height
	}
}

// WithSizeLimits replaces the default 320x240 to 3840x2160 resize bounds.
//
// Parameters:
//   - limits: the new bounds, a zero maximum leaves that axis unbounded
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(limits SizeLimits) WindowBuilderOption {
	return func(w *engineWindow) {
		w.limits = limits
	}
}

// WithLogger sets the logger for window lifecycle messages.
//
// Parameters:
//   - l: the logger, nil keeps log.Default()
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithLogger(l *log.Logger) WindowBuilderOption {
	return func(w *engineWindow) {
		if l != nil {
			w.logger = l
		}
	}
}
