package skeleton

import "log"

// SkeletonBuilderOption is a functional option for configuring a Skeleton via NewSkeleton.
type SkeletonBuilderOption func(*skeleton)

// WithBoneCount is an option builder that sets how many bones are read from every record.
// The header's bone field never overrides this value.
//
// Parameters:
//   - n: bones per record, must be positive
//
// Returns:
//   - SkeletonBuilderOption: a function that applies the bone count option to a skeleton
func WithBoneCount(n int) SkeletonBuilderOption {
	return func(s *skeleton) {
		if n > 0 {
			s.boneCount = n
		}
	}
}

// WithPlaybackSpeed is an option builder that sets the frames-per-second factor used by FrameIndex.
//
// Parameters:
//   - speed: the playback speed, must be positive
//
// Returns:
//   - SkeletonBuilderOption: a function that applies the playback speed option to a skeleton
func WithPlaybackSpeed(speed float32) SkeletonBuilderOption {
	return func(s *skeleton) {
		if speed > 0 {
			s.speed = speed
		}
	}
}

// WithLogger is an option builder that sets the diagnostic logger.
//
// Parameters:
//   - l: the logger load diagnostics are written to
//
// Returns:
//   - SkeletonBuilderOption: a function that applies the logger option to a skeleton
func WithLogger(l *log.Logger) SkeletonBuilderOption {
	return func(s *skeleton) {
		if l != nil {
			s.logger = l
		}
	}
}
