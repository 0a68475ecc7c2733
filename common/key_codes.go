package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyB     = 66  // B key (ASCII), toggles bind pose / animation
	KeyD     = 68  // D key (ASCII), toggles the frame matrix dump
	KeyP     = 80  // P key (ASCII), pauses playback
	KeyR     = 82  // R key (ASCII), resets the camera
	KeySpace = 32  // Spacebar (ASCII)
	KeyEsc   = 256 // Escape key (GLFW)
)
