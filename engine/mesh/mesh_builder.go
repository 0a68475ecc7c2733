package mesh

import "log"

// MeshBuilderOption is a functional option for configuring a Mesh via NewMesh.
type MeshBuilderOption func(*mesh)

// WithParser is an option builder that sets the polygon-mesh parser used by Load.
//
// Parameters:
//   - p: the Parser implementation
//
// Returns:
//   - MeshBuilderOption: a function that applies the parser option to a mesh
func WithParser(p Parser) MeshBuilderOption {
	return func(m *mesh) {
		m.parser = p
	}
}

// WithLogger is an option builder that sets the diagnostic logger.
//
// Parameters:
//   - l: the logger load failures and warnings are written to
//
// Returns:
//   - MeshBuilderOption: a function that applies the logger option to a mesh
func WithLogger(l *log.Logger) MeshBuilderOption {
	return func(m *mesh) {
		if l != nil {
			m.logger = l
		}
	}
}
