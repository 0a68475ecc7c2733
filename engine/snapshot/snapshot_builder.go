package snapshot

import (
	"log"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/common"
)

// SnapshotBuilderOption is a functional option applied to an export run via Run.
type SnapshotBuilderOption func(*exporter)

// WithLogger sets the logger used for progress and diagnostics.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - SnapshotBuilderOption: a function that applies the logger option
func WithLogger(l *log.Logger) SnapshotBuilderOption {
	return func(e *exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClearColor sets the background color of every image. The default is fully transparent.
//
// Parameters:
//   - c: the clear color, straight alpha
//
// Returns:
//   - SnapshotBuilderOption: a function that applies the clear color option
func WithClearColor(c common.Color) SnapshotBuilderOption {
	return func(e *exporter) {
		e.clear = c
	}
}

// WithProgressInterval sets how often progress is logged while frames render.
//
// Parameters:
//   - d: the interval, ignored unless positive
//
// Returns:
//   - SnapshotBuilderOption: a function that applies the progress interval option
func WithProgressInterval(d time.Duration) SnapshotBuilderOption {
	return func(e *exporter) {
		if d > 0 {
			e.interval = d
		}
	}
}
