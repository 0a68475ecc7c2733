// Package skeleton parses bind-pose and per-frame bone transforms and selects the active animation frame.
package skeleton

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"

	"github.com/chewxy/math32"
)

const (
	// DefaultBoneCount is the number of bones read from every record unless WithBoneCount says otherwise.
	DefaultBoneCount = 18
	// DefaultPlaybackSpeed is the FrameIndex scale unless WithPlaybackSpeed says otherwise.
	DefaultPlaybackSpeed float32 = 10

	// floatsPerBone is quaternion (x, y, z, w) followed by translation (x, y, z).
	floatsPerBone = 7
	commentLines  = 3
)

var (
	// ErrHeader is returned when the comment lines or the "<frameCount> <boneCount>" header are missing or malformed.
	ErrHeader = errors.New("invalid skeleton header")
	// ErrRecord is returned when a record is short, contains a non-number, or no bind-pose record exists.
	ErrRecord = errors.New("invalid skeleton record")
	// ErrSingularBindPose is returned when a bind-pose transform cannot be inverted.
	ErrSingularBindPose = errors.New("singular bind pose transform")
	// ErrFrameOutOfRange is returned when the selected frame index has no parsed frame.
	ErrFrameOutOfRange = errors.New("animation frame out of range")
	// ErrNotLoaded is returned by pose lookups before a successful Load.
	ErrNotLoaded = errors.New("skeleton not loaded")
)

// skeleton is the implementation of the Skeleton interface.
type skeleton struct {
	mu sync.RWMutex

	logger    *log.Logger
	boneCount int
	speed     float32

	declaredFrames int
	declaredBones  int

	bindPose        [][16]float32
	bindPoseInverse [][16]float32
	frames          [][][16]float32
}

// Skeleton defines the interface for the Skeleton/Animation Store.
//
// Transforms are column-major 4x4 rigid matrices: the upper-left 3x3 is the bone rotation and the last column is
// the bone origin with w = 1.
type Skeleton interface {
	// Load parses a skeleton file: three comment lines, a "<frameCount> <boneCount>" header, then one record per
	// non-empty line holding BoneCount() bones of 7 floats each (quaternion x y z w, translation x y z).
	// Record 0 is the bind pose, stored together with its inverse; record k >= 1 becomes frame k-1.
	// The file is parsed completely before anything is committed, so any failure leaves the store unchanged.
	// Failures are logged and returned.
	//
	// Parameters:
	//   - path: the skeleton file path
	//
	// Returns:
	//   - error: nil on success
	Load(path string) error

	// Loaded reports whether a bind pose has been committed.
	//
	// Returns:
	//   - bool: true after a successful Load
	Loaded() bool

	// BindPose returns one transform per bone, read from record 0.
	//
	// Returns:
	//   - [][16]float32: the bind pose
	BindPose() [][16]float32

	// BindPoseInverse returns the matrix inverse of every bind-pose transform.
	//
	// Returns:
	//   - [][16]float32: the inverse bind pose
	BindPoseInverse() [][16]float32

	// Frames returns every animation frame, each holding BoneCount() transforms.
	//
	// Returns:
	//   - [][][16]float32: the frames
	Frames() [][][16]float32

	// FrameCount returns len(Frames()).
	//
	// Returns:
	//   - int: the number of parsed animation frames
	FrameCount() int

	// BoneCount returns the configured number of bones per record.
	//
	// Returns:
	//   - int: bones per record
	BoneCount() int

	// PlaybackSpeed returns the configured FrameIndex scale.
	//
	// Returns:
	//   - float32: the playback speed
	PlaybackSpeed() float32

	// DeclaredFrameCount returns the first header field.
	//
	// Returns:
	//   - int: the frame count the file declares
	DeclaredFrameCount() int

	// DeclaredBoneCount returns the second header field. It is informational only.
	//
	// Returns:
	//   - int: the bone count the file declares
	DeclaredBoneCount() int

	// FrameIndex selects the animation frame for elapsed time t as floor(fmod(t, BoneCount()) * PlaybackSpeed()).
	// The loop period therefore follows the bone count.
	//
	// Parameters:
	//   - t: elapsed time in seconds
	//
	// Returns:
	//   - int: the frame index, which may exceed the parsed frame count
	FrameIndex(t float32) int

	// AnimatedPose returns the frame selected by FrameIndex(t).
	//
	// Parameters:
	//   - t: elapsed time in seconds
	//
	// Returns:
	//   - [][16]float32: one transform per bone
	//   - int: the selected frame index
	//   - error: ErrNotLoaded or a wrapped ErrFrameOutOfRange
	AnimatedPose(t float32) ([][16]float32, int, error)
}

var _ Skeleton = &skeleton{}

// NewSkeleton creates an empty Skeleton/Animation Store with the provided options applied.
//
// Parameters:
//   - options: a variadic list of SkeletonBuilderOption functions
//
// Returns:
//   - Skeleton: the new store
func NewSkeleton(options ...SkeletonBuilderOption) Skeleton {
	s := &skeleton{
		logger:    log.Default(),
		boneCount: DefaultBoneCount,
		speed:     DefaultPlaybackSpeed,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *skeleton) Load(path string) error {
	s.logger.Printf("[Skeleton] loading skeleton file: %s", path)

	f, err := os.Open(path)
	if err != nil {
		s.logger.Printf("[Skeleton] Cannot read %s", path)
		return fmt.Errorf("open skeleton: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0

	for i := 0; i < commentLines; i++ {
		if !scanner.Scan() {
			return s.fail(fmt.Errorf("%w: %s: expected %d comment lines", ErrHeader, path, commentLines))
		}
		line++
	}
	if !scanner.Scan() {
		return s.fail(fmt.Errorf("%w: %s: missing header line", ErrHeader, path))
	}
	line++
	declaredFrames, declaredBones, err := parseHeader(scanner.Text())
	if err != nil {
		return s.fail(fmt.Errorf("%w: %s line %d: %w", ErrHeader, path, line, err))
	}
	s.logger.Printf("[Skeleton] (frames, bones): (%d, %d)", declaredFrames, declaredBones)

	var (
		bind    [][16]float32
		bindInv [][16]float32
		frames  = make([][][16]float32, 0, min(declaredFrames, 4096))
		record  = 0
	)
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		pose, err := s.parseRecord(fields)
		if err != nil && record == 0 {
			return s.fail(fmt.Errorf("%w: %s line %d: %w", ErrRecord, path, line, err))
		}
		if err != nil {
			// a malformed frame ends the animation; the bind pose and earlier frames are kept
			s.logger.Printf("[Skeleton] %s line %d: %v, stopping after %d frames", path, line, err, len(frames))
			break
		}

		if record == 0 {
			bind = pose
			bindInv = make([][16]float32, len(pose))
			for b := range pose {
				if !common.Invert4(bindInv[b][:], pose[b][:]) {
					return s.fail(fmt.Errorf("%w: %s bone %d", ErrSingularBindPose, path, b))
				}
			}
		} else {
			frames = append(frames, pose)
		}
		if record <= 1 {
			s.dump(record, pose[0])
		}
		record++
	}
	if err := scanner.Err(); err != nil {
		return s.fail(fmt.Errorf("read skeleton %s: %w", path, err))
	}
	if record == 0 {
		return s.fail(fmt.Errorf("%w: %s: no bind pose record", ErrRecord, path))
	}
	if len(frames) != declaredFrames {
		s.logger.Printf("[Skeleton] %s declares %d frames but holds %d", path, declaredFrames, len(frames))
	}

	s.mu.Lock()
	s.declaredFrames = declaredFrames
	s.declaredBones = declaredBones
	s.bindPose = bind
	s.bindPoseInverse = bindInv
	s.frames = frames
	s.mu.Unlock()

	s.logger.Printf("[Skeleton] loaded %s: %d bones, %d frames", path, s.boneCount, len(frames))
	return nil
}

// parseRecord converts one record into boneCount transforms. Fields past the last bone are ignored.
func (s *skeleton) parseRecord(fields []string) ([][16]float32, error) {
	want := s.boneCount * floatsPerBone
	if len(fields) < want {
		return nil, fmt.Errorf("%d values, want %d", len(fields), want)
	}

	vals := make([]float32, want)
	for i := range vals {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		vals[i] = float32(v)
	}

	pose := make([][16]float32, s.boneCount)
	for b := range pose {
		v := vals[b*floatsPerBone : (b+1)*floatsPerBone]
		// stored x, y, z, w; assembled scalar-first
		q := common.Quat{W: v[3], X: v[0], Y: v[1], Z: v[2]}
		pose[b] = common.QuatToMat4(q, [3]float32{v[4], v[5], v[6]})
	}
	return pose, nil
}

func (s *skeleton) dump(record int, m [16]float32) {
	s.logger.Printf("[Skeleton] record %d bone 0:", record)
	for _, row := range common.FormatMat4(m) {
		s.logger.Printf("[Skeleton]   %s", row)
	}
}

func (s *skeleton) fail(err error) error {
	s.logger.Printf("[Skeleton] %v", err)
	return err
}

func (s *skeleton) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bindPose != nil
}

func (s *skeleton) BindPose() [][16]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bindPose
}

func (s *skeleton) BindPoseInverse() [][16]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bindPoseInverse
}

func (s *skeleton) Frames() [][][16]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

func (s *skeleton) FrameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}

func (s *skeleton) BoneCount() int {
	return s.boneCount
}

func (s *skeleton) PlaybackSpeed() float32 {
	return s.speed
}

func (s *skeleton) DeclaredFrameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.declaredFrames
}

func (s *skeleton) DeclaredBoneCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.declaredBones
}

func (s *skeleton) FrameIndex(t float32) int {
	return int(math32.Floor(math32.Mod(t, float32(s.boneCount)) * s.speed))
}

func (s *skeleton) AnimatedPose(t float32) ([][16]float32, int, error) {
	idx := s.FrameIndex(t)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bindPose == nil {
		return nil, idx, ErrNotLoaded
	}
	if idx < 0 || idx >= len(s.frames) {
		return nil, idx, fmt.Errorf("%w: frame %d of %d", ErrFrameOutOfRange, idx, len(s.frames))
	}
	return s.frames[idx], idx, nil
}

// parseHeader reads two non-negative integers from a header line.
func parseHeader(line string) (int, int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("expected 2 integers, got %q", line)
	}
	a, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, err
	}
	if a < 0 || b < 0 {
		return 0, 0, fmt.Errorf("negative count in %q", line)
	}
	return a, b, nil
}
