package skin

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const fourByThree = `# attachment weights
# vertices bones
4 3
1 0 0
0.5 0.5 0
0 0.25 0.75
0 0 1
`

func TestLoad_FourByThree(t *testing.T) {
	var buf bytes.Buffer
	a := NewAttachment(WithLogger(log.New(&buf, "", 0)))

	require.NoError(t, a.Load(writeFile(t, "w.txt", fourByThree), 4))

	assert.Equal(t, 4, a.RowCount())
	assert.Equal(t, 4, a.DeclaredVertexCount())
	assert.Equal(t, 3, a.DeclaredBoneCount())
	assert.Equal(t, [][]float32{
		{1, 0, 0},
		{0.5, 0.5, 0},
		{0, 0.25, 0.75},
		{0, 0, 1},
	}, a.Weights())
	assert.Equal(t, float32(0.75), a.Weight(2, 2))
	assert.Contains(t, buf.String(), "4 weight rows")
}

func TestLoad_VertexCountMismatchPanics(t *testing.T) {
	a := NewAttachment(WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	path := writeFile(t, "w.txt", fourByThree)

	assert.Panics(t, func() { _ = a.Load(path, 5) })
}

func TestLoad_TrailingBlankLinesTolerated(t *testing.T) {
	a := NewAttachment(WithLogger(log.New(&bytes.Buffer{}, "", 0)))

	require.NoError(t, a.Load(writeFile(t, "w.txt", fourByThree+"\n\n"), 4))
	assert.Equal(t, 4, a.RowCount())
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "missing header", body: "# a\n# b\n", want: ErrHeader},
		{name: "bad header", body: "# a\n# b\nfour 3\n", want: ErrHeader},
		{name: "short row", body: "# a\n# b\n1 3\n1 0\n", want: ErrRow},
		{name: "bad float", body: "# a\n# b\n1 2\n1 x\n", want: ErrRow},
		{name: "too few rows", body: "# a\n# b\n2 1\n1\n", want: ErrRow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			a := NewAttachment(WithLogger(log.New(&buf, "", 0)))
			vertexCount := 1
			if tc.name == "too few rows" {
				vertexCount = 2
			}

			err := a.Load(writeFile(t, "w.txt", tc.body), vertexCount)

			require.ErrorIs(t, err, tc.want)
			assert.Zero(t, a.RowCount())
			assert.NotEmpty(t, buf.String())
		})
	}
}

func TestLoad_UnreadableFileKeepsPriorState(t *testing.T) {
	var buf bytes.Buffer
	a := NewAttachment(WithLogger(log.New(&buf, "", 0)))
	require.NoError(t, a.Load(writeFile(t, "w.txt", fourByThree), 4))

	err := a.Load(filepath.Join(t.TempDir(), "missing.txt"), 4)

	require.Error(t, err)
	assert.Equal(t, 4, a.RowCount())
	assert.Contains(t, buf.String(), "Cannot read")
}
