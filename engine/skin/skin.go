// Package skin holds the Weight Table: one row of per-bone blend weights for every mesh vertex.
//
// The table is loaded and exposed for inspection only. No rendering path blends vertices with it.
package skin

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrHeader is returned when the comment lines or the "<vertexCount> <boneCount>" header are missing or malformed.
	ErrHeader = errors.New("invalid attachment header")
	// ErrRow is returned when a weight row is malformed or the row count disagrees with the header.
	ErrRow = errors.New("invalid attachment row")
)

// commentLines is the number of free-form lines preceding the header.
const commentLines = 2

// attachment is the implementation of the Attachment interface.
type attachment struct {
	mu sync.RWMutex

	logger *log.Logger

	declaredVertices int
	declaredBones    int
	weights          [][]float32
}

// Attachment defines the interface for the Weight Table.
type Attachment interface {
	// Load parses an attachment file: two comment lines, a "<vertexCount> <boneCount>" header and then one row
	// of boneCount floats per vertex. Blank lines are skipped.
	// vertexCount is the vertex count of the already loaded mesh; a header disagreeing with it is a
	// data-consistency error and panics. Any other failure is logged and returned, leaving the table unchanged.
	//
	// Parameters:
	//   - path: the attachment file path
	//   - vertexCount: the mesh vertex count the header must match
	//
	// Returns:
	//   - error: nil on success
	Load(path string, vertexCount int) error

	// Weights returns the table, one row per vertex. Callers must treat it as read-only.
	//
	// Returns:
	//   - [][]float32: the weight rows
	Weights() [][]float32

	// Weight returns the weight of bone b on vertex v.
	//
	// Parameters:
	//   - v: the vertex index
	//   - b: the bone index
	//
	// Returns:
	//   - float32: the weight
	Weight(v, b int) float32

	// DeclaredVertexCount returns the vertex count from the file header.
	//
	// Returns:
	//   - int: the declared vertex count
	DeclaredVertexCount() int

	// DeclaredBoneCount returns the bone count from the file header.
	//
	// Returns:
	//   - int: the declared bone count
	DeclaredBoneCount() int

	// RowCount returns the number of loaded rows.
	//
	// Returns:
	//   - int: the row count
	RowCount() int
}

var _ Attachment = &attachment{}

// NewAttachment creates an empty Weight Table with the provided options applied.
//
// Parameters:
//   - options: a variadic list of AttachmentBuilderOption functions
//
// Returns:
//   - Attachment: the new table
func NewAttachment(options ...AttachmentBuilderOption) Attachment {
	a := &attachment{
		logger: log.Default(),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *attachment) Load(path string, vertexCount int) error {
	f, err := os.Open(path)
	if err != nil {
		a.logger.Printf("[Skin] Cannot read %s", path)
		return fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0

	for i := 0; i < commentLines; i++ {
		if !scanner.Scan() {
			return a.fail(fmt.Errorf("%w: %s: expected %d comment lines", ErrHeader, path, commentLines))
		}
		line++
	}

	if !scanner.Scan() {
		return a.fail(fmt.Errorf("%w: %s: missing header line", ErrHeader, path))
	}
	line++
	nverts, nbones, err := parseHeader(scanner.Text())
	if err != nil {
		return a.fail(fmt.Errorf("%w: %s line %d: %w", ErrHeader, path, line, err))
	}

	if nverts != vertexCount {
		panic(fmt.Sprintf("skin: %s declares %d vertices but the mesh has %d", path, nverts, vertexCount))
	}

	weights := make([][]float32, 0, nverts)
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < nbones {
			return a.fail(fmt.Errorf("%w: %s line %d: %d weights, want %d", ErrRow, path, line, len(fields), nbones))
		}
		row := make([]float32, nbones)
		for b := 0; b < nbones; b++ {
			w, err := strconv.ParseFloat(fields[b], 32)
			if err != nil {
				return a.fail(fmt.Errorf("%w: %s line %d: %w", ErrRow, path, line, err))
			}
			row[b] = float32(w)
		}
		weights = append(weights, row)
	}
	if err := scanner.Err(); err != nil {
		return a.fail(fmt.Errorf("read attachment %s: %w", path, err))
	}
	if len(weights) != nverts {
		return a.fail(fmt.Errorf("%w: %s: %d rows, header declares %d", ErrRow, path, len(weights), nverts))
	}

	a.mu.Lock()
	a.declaredVertices = nverts
	a.declaredBones = nbones
	a.weights = weights
	a.mu.Unlock()

	a.logger.Printf("[Skin] loaded %d weight rows x %d bones from %s", len(weights), nbones, path)
	return nil
}

func (a *attachment) fail(err error) error {
	a.logger.Printf("[Skin] %v", err)
	return err
}

func (a *attachment) Weights() [][]float32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.weights
}

func (a *attachment) Weight(v, b int) float32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.weights[v][b]
}

func (a *attachment) DeclaredVertexCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.declaredVertices
}

func (a *attachment) DeclaredBoneCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.declaredBones
}

func (a *attachment) RowCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.weights)
}

// parseHeader reads two non-negative integers from a header line.
func parseHeader(s string) (int, int, error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("expected 2 integers, got %q", s)
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
		return 0, 0, fmt.Errorf("negative count in %q", s)
	}
	return a, b, nil
}
