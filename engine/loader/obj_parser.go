package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-skin/engine/mesh"
)

// objParser is a Wavefront OBJ implementation of mesh.Parser.
// It produces the raw v/vn/vt arrays and one mesh.Shape per o/g statement.
type objParser struct {
	line int

	res       *mesh.ParseResult
	current   *mesh.Shape
	materials map[string]int
	material  int
}

var _ mesh.Parser = &objParser{}

// NewOBJParser creates a parser for Wavefront OBJ files suitable for mesh.WithParser.
//
// Returns:
//   - mesh.Parser: the OBJ parser
func NewOBJParser() mesh.Parser {
	return &objParser{}
}

func (p *objParser) Parse(path string) (*mesh.ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer f.Close()

	res, err := p.ParseReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// ParseReader parses OBJ statements from r. Unsupported statements are recorded as warnings.
//
// Parameters:
//   - r: the OBJ text stream
//
// Returns:
//   - *mesh.ParseResult: the parsed arrays and shapes
//   - error: an error carrying the offending line number
func (p *objParser) ParseReader(r io.Reader) (*mesh.ParseResult, error) {
	p.line = 0
	p.res = &mesh.ParseResult{}
	p.current = nil
	p.materials = make(map[string]int)
	p.material = -1

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			p.line++
			if perr := p.parseLine(strings.TrimSpace(line)); perr != nil {
				return nil, perr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	if err := p.validate(); err != nil {
		return nil, err
	}

	// Drop groups that never received a face.
	shapes := p.res.Shapes[:0]
	for _, s := range p.res.Shapes {
		if len(s.FaceVertexCounts) > 0 {
			shapes = append(shapes, s)
		}
	}
	p.res.Shapes = shapes
	p.current = nil
	return p.res, nil
}

func (p *objParser) parseLine(line string) error {
	if len(line) == 0 || line[0] == '#' {
		return nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "v":
		return p.parseFloats(fields[1:], 3, &p.res.Positions, "vertex")
	case "vn":
		return p.parseFloats(fields[1:], 3, &p.res.Normals, "normal")
	case "vt":
		return p.parseFloats(fields[1:], 2, &p.res.Texcoords, "texcoord")
	case "f":
		return p.parseFace(fields[1:])
	case "o", "g":
		name := fmt.Sprintf("unnamed%d", p.line)
		if len(fields) > 1 {
			name = strings.Join(fields[1:], " ")
		}
		p.startShape(name)
	case "usemtl":
		if len(fields) < 2 {
			return p.formatError("usemtl with no material name")
		}
		id, ok := p.materials[fields[1]]
		if !ok {
			id = len(p.materials)
			p.materials[fields[1]] = id
		}
		p.material = id
	case "mtllib", "s":
		// material libraries and smoothing groups do not affect positions or indices
	default:
		p.appendWarn("field not supported: " + fields[0])
	}
	return nil
}

func (p *objParser) parseFloats(fields []string, n int, dst *[]float32, what string) error {
	if len(fields) < n {
		return p.formatError(fmt.Sprintf("%s with less than %d fields", what, n))
	}
	for _, f := range fields[:n] {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return p.formatError(fmt.Sprintf("invalid %s value %q", what, f))
		}
		*dst = append(*dst, float32(v))
	}
	return nil
}

// parseFace fan-triangulates the face around its first vertex, so every emitted face has three vertices and
// carries the current material.
func (p *objParser) parseFace(fields []string) error {
	if len(fields) < 3 {
		return p.formatError("face line with less than 3 fields")
	}
	if p.current == nil {
		p.startShape(fmt.Sprintf("unnamed%d", p.line))
	}

	polygon := make([]mesh.Index, 0, len(fields))
	for _, f := range fields {
		idx, err := p.parseFaceVertex(f)
		if err != nil {
			return err
		}
		polygon = append(polygon, idx)
	}

	for i := 1; i+1 < len(polygon); i++ {
		p.current.Indices = append(p.current.Indices, polygon[0], polygon[i], polygon[i+1])
		p.current.FaceVertexCounts = append(p.current.FaceVertexCounts, 3)
		p.current.MaterialIDs = append(p.current.MaterialIDs, p.material)
	}
	return nil
}

// parseFaceVertex parses one v, v/vt, v//vn or v/vt/vn group.
func (p *objParser) parseFaceVertex(field string) (mesh.Index, error) {
	parts := strings.Split(field, "/")

	v, err := p.resolveIndex(parts[0], len(p.res.Positions)/3, "vertex")
	if err != nil {
		return mesh.Index{}, err
	}
	idx := mesh.Index{Vertex: v, Normal: -1, Texcoord: -1}

	if len(parts) > 1 && len(parts[1]) > 0 {
		if idx.Texcoord, err = p.resolveIndex(parts[1], len(p.res.Texcoords)/2, "uv"); err != nil {
			return mesh.Index{}, err
		}
	}
	if len(parts) > 2 && len(parts[2]) > 0 {
		if idx.Normal, err = p.resolveIndex(parts[2], len(p.res.Normals)/3, "normal"); err != nil {
			return mesh.Index{}, err
		}
	}
	return idx, nil
}

// resolveIndex converts a 1-based (or negative, relative) OBJ index into a 0-based one.
func (p *objParser) resolveIndex(field string, count int, what string) (int, error) {
	val, err := strconv.ParseInt(field, 10, 32)
	if err != nil {
		return 0, p.formatError(fmt.Sprintf("invalid face %s index %q", what, field))
	}
	switch {
	case val > 0:
		return int(val - 1), nil
	case val < 0:
		return count + int(val), nil
	default:
		return 0, p.formatError(fmt.Sprintf("face %s index value equal to 0", what))
	}
}

func (p *objParser) startShape(name string) {
	p.res.Shapes = append(p.res.Shapes, mesh.Shape{Name: name})
	p.current = &p.res.Shapes[len(p.res.Shapes)-1]
}

// validate checks every face-vertex against the final attribute counts.
func (p *objParser) validate() error {
	nv, nn, nt := len(p.res.Positions)/3, len(p.res.Normals)/3, len(p.res.Texcoords)/2
	for _, s := range p.res.Shapes {
		for _, idx := range s.Indices {
			if idx.Vertex < 0 || idx.Vertex >= nv {
				return fmt.Errorf("shape %q: vertex index %d out of range [0,%d)", s.Name, idx.Vertex, nv)
			}
			if idx.Normal >= nn || idx.Normal < -1 {
				return fmt.Errorf("shape %q: normal index %d out of range [0,%d)", s.Name, idx.Normal, nn)
			}
			if idx.Texcoord >= nt || idx.Texcoord < -1 {
				return fmt.Errorf("shape %q: uv index %d out of range [0,%d)", s.Name, idx.Texcoord, nt)
			}
		}
	}
	return nil
}

func (p *objParser) formatError(msg string) error {
	return fmt.Errorf("%s in line:%d", msg, p.line)
}

func (p *objParser) appendWarn(msg string) {
	p.res.Warnings = append(p.res.Warnings, fmt.Sprintf("obj(%d): %s", p.line, msg))
}
