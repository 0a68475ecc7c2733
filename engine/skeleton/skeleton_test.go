package skeleton

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// record renders one skeleton line in which every bone has rotation q (x, y, z, w) and translation (tx+bone, ty, tz).
func record(bones int, q [4]float32, tx, ty, tz float32) string {
	parts := make([]string, 0, bones)
	for b := 0; b < bones; b++ {
		parts = append(parts, fmt.Sprintf("%g %g %g %g %g %g %g", q[0], q[1], q[2], q[3], tx+float32(b), ty, tz))
	}
	return strings.Join(parts, " ")
}

func skeletonFile(t *testing.T, bones, frames int) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("# skeleton\n# exported\n# frames bones\n")
	fmt.Fprintf(&sb, "%d %d\n", frames, bones)
	sb.WriteString(record(bones, [4]float32{0, 0, 0, 1}, 1, 2, 3) + "\n")
	for k := 0; k < frames; k++ {
		sb.WriteString(record(bones, [4]float32{0, 0, 0.70710678, 0.70710678}, float32(k), 0, 0) + "\n")
	}
	sb.WriteString("\n")

	path := filepath.Join(t.TempDir(), "skel.txt")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func quiet() SkeletonBuilderOption {
	return WithLogger(log.New(&bytes.Buffer{}, "", 0))
}

func TestLoad_IdentityBindPose(t *testing.T) {
	s := NewSkeleton(quiet())
	require.NoError(t, s.Load(skeletonFile(t, 18, 2)))

	bind := s.BindPose()
	require.Len(t, bind, 18)

	assert.Equal(t, [4]float32{1, 2, 3, 1}, common.Column(bind[0], 3))
	assert.Equal(t, [4]float32{1, 0, 0, 0}, common.Column(bind[0], 0))
	assert.Equal(t, [4]float32{0, 1, 0, 0}, common.Column(bind[0], 1))
	assert.Equal(t, [4]float32{0, 0, 1, 0}, common.Column(bind[0], 2))

	inv := s.BindPoseInverse()
	require.Len(t, inv, 18)
	id := common.IdentityMat4()
	for b := range bind {
		var prod [16]float32
		common.Mul4(prod[:], inv[b][:], bind[b][:])
		for i := range prod {
			assert.InDelta(t, id[i], prod[i], 1e-5, "bone %d element %d", b, i)
		}
	}
}

func TestLoad_FrameCountAndBoneCount(t *testing.T) {
	s := NewSkeleton(quiet())
	require.NoError(t, s.Load(skeletonFile(t, 18, 5)))

	frames := s.Frames()
	require.Len(t, frames, 5)
	for k := range frames {
		assert.Len(t, frames[k], 18)
	}
	assert.Equal(t, 5, s.FrameCount())
	assert.Equal(t, 5, s.DeclaredFrameCount())
	assert.Equal(t, 18, s.DeclaredBoneCount())

	// frame k, bone b sits at (k+b, 0, 0) with a quarter turn about z
	assert.InDelta(t, 3+4, frames[3][4][12], 1e-6)
	assert.InDelta(t, 1, frames[3][4][1], 1e-6)
}

func TestLoad_HeaderBoneFieldIgnored(t *testing.T) {
	path := skeletonFile(t, 18, 1)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, bytes.Replace(body, []byte("1 18\n"), []byte("1 3\n"), 1), 0o644))

	s := NewSkeleton(quiet())
	require.NoError(t, s.Load(path))

	assert.Equal(t, 3, s.DeclaredBoneCount())
	assert.Len(t, s.BindPose(), 18)
	assert.Len(t, s.Frames()[0], 18)
}

func TestLoad_ConfiguredBoneCount(t *testing.T) {
	s := NewSkeleton(quiet(), WithBoneCount(2))
	require.NoError(t, s.Load(skeletonFile(t, 2, 3)))

	assert.Equal(t, 2, s.BoneCount())
	assert.Len(t, s.BindPose(), 2)
	assert.Len(t, s.Frames(), 3)
}

func TestLoad_LogsHeaderAndBoneZero(t *testing.T) {
	var buf bytes.Buffer
	s := NewSkeleton(WithLogger(log.New(&buf, "", 0)))
	path := skeletonFile(t, 18, 2)
	require.NoError(t, s.Load(path))

	out := buf.String()
	assert.Contains(t, out, "loading skeleton file: "+path)
	assert.Contains(t, out, "(frames, bones): (2, 18)")
	assert.Contains(t, out, "record 0 bone 0:")
	assert.Contains(t, out, "record 1 bone 0:")
	assert.NotContains(t, out, "record 2 bone 0:")
}

func TestLoad_FailuresLeaveStoreUnchanged(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "no header", body: "# a\n# b\n# c\n", want: ErrHeader},
		{name: "bad header", body: "# a\n# b\n# c\nx 18\n", want: ErrHeader},
		{name: "no records", body: "# a\n# b\n# c\n0 18\n", want: ErrRecord},
		{name: "short record", body: "# a\n# b\n# c\n0 18\n0 0 0 1 0 0 0\n", want: ErrRecord},
		{name: "singular", body: "# a\n# b\n# c\n0 18\n" + record(18, [4]float32{0.5, 0.5, 0, 0}, 0, 0, 0) + "\n", want: ErrSingularBindPose},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSkeleton(quiet())
			require.NoError(t, s.Load(skeletonFile(t, 18, 2)))

			path := filepath.Join(t.TempDir(), "bad.txt")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o644))

			require.ErrorIs(t, s.Load(path), tc.want)
			assert.Len(t, s.Frames(), 2)
			assert.Len(t, s.BindPose(), 18)
		})
	}
}

func TestLoad_MalformedFrameKeepsEarlierRecords(t *testing.T) {
	full := record(18, [4]float32{0, 0, 0, 1}, 0, 0, 0)
	tests := []struct {
		name string
		last string
	}{
		{name: "short", last: full[:strings.LastIndex(full, " ")]},
		{name: "non-numeric", last: strings.Replace(full, "0", "x", 1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := "# a\n# b\n# c\n3 18\n" + full + "\n" + full + "\n" + full + "\n" + tc.last + "\n" + full + "\n"
			path := filepath.Join(t.TempDir(), "skel.txt")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			var buf bytes.Buffer
			s := NewSkeleton(WithLogger(log.New(&buf, "", 0)))
			require.NoError(t, s.Load(path))

			assert.True(t, s.Loaded())
			assert.Len(t, s.BindPose(), 18)
			assert.Len(t, s.Frames(), 2)
			assert.Contains(t, buf.String(), "line 8:")
			assert.Contains(t, buf.String(), "stopping after 2 frames")
		})
	}
}

func TestLoad_UnreadableFile(t *testing.T) {
	var buf bytes.Buffer
	s := NewSkeleton(WithLogger(log.New(&buf, "", 0)))

	require.Error(t, s.Load(filepath.Join(t.TempDir(), "missing.txt")))
	assert.False(t, s.Loaded())
	assert.Contains(t, buf.String(), "Cannot read")
}

func TestFrameIndex(t *testing.T) {
	s := NewSkeleton(quiet())

	assert.Equal(t, 0, s.FrameIndex(0))
	assert.Equal(t, s.FrameIndex(0.05), s.FrameIndex(18.05))
	assert.Equal(t, 15, s.FrameIndex(1.5))
	assert.Equal(t, 15, s.FrameIndex(19.5))
	assert.Equal(t, 179, s.FrameIndex(17.95))
}

func TestAnimatedPose(t *testing.T) {
	s := NewSkeleton(quiet())

	_, _, err := s.AnimatedPose(0)
	require.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, s.Load(skeletonFile(t, 18, 4)))

	pose, idx, err := s.AnimatedPose(0.25)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Equal(t, s.Frames()[2], pose)

	_, idx, err = s.AnimatedPose(1)
	assert.Equal(t, 10, idx)
	assert.ErrorIs(t, err, ErrFrameOutOfRange)
}
