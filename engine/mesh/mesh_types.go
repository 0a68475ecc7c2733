package mesh

// Index addresses one face-vertex inside the raw attribute arrays of a ParseResult.
// Every field is a 0-based element index (not a float offset); -1 marks an absent attribute.
type Index struct {
	// Vertex is the index into the position array (in triples).
	Vertex int
	// Normal is the index into the normal array (in triples), or -1.
	Normal int
	// Texcoord is the index into the texcoord array (in pairs), or -1.
	Texcoord int
}

// Shape is one named group of faces produced by a Parser.
type Shape struct {
	// Name is the object/group name the faces were declared under.
	Name string
	// FaceVertexCounts holds the vertex count of each face, in face order.
	FaceVertexCounts []int
	// Indices holds the face-vertices of every face, flattened in face order.
	Indices []Index
	// MaterialIDs holds the material id of each face, or -1 when none was assigned.
	MaterialIDs []int
}

// ParseResult is the contract a polygon-mesh Parser hands back to the Mesh Store.
// Positions and Normals are flat xyz triples, Texcoords are flat uv pairs.
type ParseResult struct {
	Positions []float32
	Normals   []float32
	Texcoords []float32
	Shapes    []Shape
	// Warnings collects non-fatal notices (unsupported statements and the like).
	Warnings []string
}

// Parser is the external polygon-mesh parser collaborator used by Mesh.Load.
type Parser interface {
	// Parse reads the polygon mesh at path.
	//
	// Parameters:
	//   - path: the mesh file path
	//
	// Returns:
	//   - *ParseResult: the raw attribute arrays and faces
	//   - error: a descriptive error when parsing fails
	Parse(path string) (*ParseResult, error)
}
