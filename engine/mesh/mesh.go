// Package mesh holds the static surface mesh: flattened position, normal and texcoord arrays plus a triangle
// index list, populated through an external polygon-mesh Parser.
package mesh

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrParse is returned (wrapped) when the Parser reports a failure or no Parser is configured.
var ErrParse = errors.New("mesh parse failed")

// mesh is the implementation of the Mesh interface.
type mesh struct {
	mu sync.RWMutex

	parser Parser
	logger *log.Logger

	positions []float32
	normals   []float32
	texcoords []float32
	indices   []uint32
}

// Mesh defines the interface for the Mesh Store.
//
// The store owns its arrays exclusively. Accessors return the internal slices; callers must treat them as read-only.
type Mesh interface {
	// Load parses the polygon mesh at path and replaces the store contents.
	// Raw attribute arrays are copied verbatim and, for every face of every shape, each face-vertex's position
	// index is appended to the index list in face order. Material ids are discarded.
	// On parser failure the error is logged, the store is emptied and an error wrapping ErrParse is returned;
	// callers must treat an empty index list as "load failed".
	// Panics when the parsed position and normal arrays differ in length.
	//
	// Parameters:
	//   - path: the mesh file path
	//
	// Returns:
	//   - error: nil on success
	Load(path string) error

	// Positions returns the flat xyz position array.
	//
	// Returns:
	//   - []float32: the positions
	Positions() []float32

	// Normals returns the flat xyz normal array, index-aligned with Positions.
	//
	// Returns:
	//   - []float32: the normals
	Normals() []float32

	// Texcoords returns the flat uv texcoord array.
	//
	// Returns:
	//   - []float32: the texcoords
	Texcoords() []float32

	// Indices returns the index list, one run of face-vertex position indices per face.
	//
	// Returns:
	//   - []uint32: the indices
	Indices() []uint32

	// VertexCount returns the number of positions (len(Positions())/3).
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// Empty reports whether the index list is empty, which is how a failed load is observed.
	//
	// Returns:
	//   - bool: true when nothing has been loaded
	Empty() bool
}

var _ Mesh = &mesh{}

// NewMesh creates a new, empty Mesh Store with the provided options applied.
//
// Parameters:
//   - options: a variadic list of MeshBuilderOption functions
//
// Returns:
//   - Mesh: the new store
func NewMesh(options ...MeshBuilderOption) Mesh {
	m := &mesh{
		logger: log.Default(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *mesh) reset() {
	m.mu.Lock()
	m.positions, m.normals, m.texcoords, m.indices = nil, nil, nil, nil
	m.mu.Unlock()
}

func (m *mesh) Load(path string) error {
	if m.parser == nil {
		err := fmt.Errorf("%w: no parser configured for %s", ErrParse, path)
		m.logger.Printf("[Mesh] %v", err)
		m.reset()
		return err
	}

	res, err := m.parser.Parse(path)
	if err != nil {
		m.logger.Printf("[Mesh] %v", err)
		m.reset()
		return fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	for _, w := range res.Warnings {
		m.logger.Printf("[Mesh] warning: %s", w)
	}

	if len(res.Positions) != len(res.Normals) {
		panic(fmt.Sprintf("mesh: %s has %d position floats but %d normal floats", path, len(res.Positions), len(res.Normals)))
	}

	total := 0
	for _, s := range res.Shapes {
		total += len(s.Indices)
	}
	indices := make([]uint32, 0, total)
	for _, s := range res.Shapes {
		offset := 0
		for _, fv := range s.FaceVertexCounts {
			for v := 0; v < fv; v++ {
				indices = append(indices, uint32(s.Indices[offset+v].Vertex))
			}
			offset += fv
		}
	}

	m.mu.Lock()
	m.positions = res.Positions
	m.normals = res.Normals
	m.texcoords = res.Texcoords
	m.indices = indices
	m.mu.Unlock()

	m.logger.Printf("[Mesh] loaded %s: %d vertices, %d indices", path, len(res.Positions)/3, len(indices))
	return nil
}

func (m *mesh) Positions() []float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.positions
}

func (m *mesh) Normals() []float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.normals
}

func (m *mesh) Texcoords() []float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.texcoords
}

func (m *mesh) Indices() []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indices
}

func (m *mesh) VertexCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.positions) / 3
}

func (m *mesh) Empty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.indices) == 0
}
