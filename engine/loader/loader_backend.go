package loader

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/mesh"
)

// loaderBackend supplies the polygon-mesh parser for one family of mesh file formats.
type loaderBackend interface {
	// Extensions lists the lower-case file extensions this backend reads, including the dot.
	//
	// Returns:
	//   - []string: the supported extensions
	Extensions() []string

	// NewParser creates a fresh parser. Parsers keep per-file state, so each load gets its own.
	//
	// Returns:
	//   - mesh.Parser: the parser
	NewParser() mesh.Parser
}

// objLoaderBackend reads Wavefront OBJ meshes.
type objLoaderBackend struct{}

var _ loaderBackend = objLoaderBackend{}

func newOBJLoaderBackend() loaderBackend {
	return objLoaderBackend{}
}

func (objLoaderBackend) Extensions() []string {
	return []string{".obj"}
}

func (objLoaderBackend) NewParser() mesh.Parser {
	return NewOBJParser()
}
