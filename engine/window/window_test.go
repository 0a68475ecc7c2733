package window

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEngineWindow_Defaults(t *testing.T) {
	w := newEngineWindow()

	assert.Equal(t, "Skin Viewer", w.title)
	assert.Equal(t, 1280, w.Width())
	assert.Equal(t, 720, w.Height())
	assert.Same(t, log.Default(), w.logger)
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
}

func TestNewEngineWindow_Options(t *testing.T) {
	logger := log.New(&bytes.Buffer{}, "", 0)
	w := newEngineWindow(
		WithTitle("bones"),
		WithTitle(""),
		WithSize(640, 480),
		WithLogger(logger),
		WithLogger(nil),
	)

	assert.Equal(t, "bones", w.title)
	assert.Equal(t, 640, w.Width())
	assert.Equal(t, 480, w.Height())
	assert.Same(t, logger, w.logger)
}

func TestSizeLimits_Clamp(t *testing.T) {
	tests := []struct {
		name          string
		limits        SizeLimits
		width, height int
		wantW, wantH  int
	}{
		{"inside", SizeLimits{320, 240, 3840, 2160}, 800, 600, 800, 600},
		{"too small", SizeLimits{320, 240, 3840, 2160}, 100, 100, 320, 240},
		{"too large", SizeLimits{320, 240, 3840, 2160}, 8000, 4000, 3840, 2160},
		{"unbounded max", SizeLimits{MinWidth: 1, MinHeight: 1}, 8000, 4000, 8000, 4000},
		{"zero size", SizeLimits{}, 0, -5, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newEngineWindow(WithSizeLimits(tt.limits), WithSize(tt.width, tt.height))
			assert.Equal(t, tt.wantW, w.Width())
			assert.Equal(t, tt.wantH, w.Height())
		})
	}
}

func TestEngineWindow_QuitBeforeCreate(t *testing.T) {
	w := newEngineWindow()
	w.Quit()
	w.ProcessMessages()
	assert.False(t, w.IsRunning())
}
