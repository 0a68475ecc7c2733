package shader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormatInfo pairs a vertex format with its size in bytes.
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// typeLayout is the host-shareable size and alignment of a WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}

// primitiveLayouts covers the scalar, vector and matrix types the uniform blocks use.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var primitiveLayouts = map[string]typeLayout{
	"f32": {4, 4},
	"u32": {4, 4},
	"i32": {4, 4},

	"vec2f": {8, 8},
	"vec3f": {12, 16},
	"vec4f": {16, 16},

	"mat4x4f": {64, 16},
}

// canonicalType folds the long generic spellings onto the f32 aliases, e.g. vec3<f32> to vec3f.
func canonicalType(typeName string) string {
	t := strings.ReplaceAll(typeName, " ", "")
	if base, ok := strings.CutSuffix(t, "<f32>"); ok && (strings.HasPrefix(base, "vec") || strings.HasPrefix(base, "mat")) {
		return base + "f"
	}
	return t
}

func alignUp(value, alignment uint64) uint64 {
	if alignment <= 1 {
		return value
	}
	return (value + alignment - 1) / alignment * alignment
}

// layoutResolver computes struct layouts on demand so structs may reference each other in any order.
type layoutResolver struct {
	structs  map[string]parsedStruct
	resolved map[string]typeLayout
	visiting map[string]bool
}

func newLayoutResolver(structs []parsedStruct) *layoutResolver {
	r := &layoutResolver{
		structs:  make(map[string]parsedStruct, len(structs)),
		resolved: make(map[string]typeLayout, len(structs)),
		visiting: make(map[string]bool),
	}
	for _, ps := range structs {
		r.structs[ps.name] = ps
	}
	return r
}

// layout resolves a type name, including fixed-size array<T, N>, to its size and alignment.
//
// Parameters:
//   - typeName: the WGSL type, e.g. "CameraUniform" or "array<vec3f, 4>"
//
// Returns:
//   - typeLayout: the size and alignment
//   - error: if the type is unknown, recursive or a runtime-sized array
func (r *layoutResolver) layout(typeName string) (typeLayout, error) {
	t := canonicalType(typeName)
	if l, ok := primitiveLayouts[t]; ok {
		return l, nil
	}
	if l, ok := r.resolved[t]; ok {
		return l, nil
	}

	if inner, ok := strings.CutPrefix(t, "array<"); ok && strings.HasSuffix(inner, ">") {
		inner = inner[:len(inner)-1]
		i := strings.LastIndex(inner, ",")
		if i < 0 {
			return typeLayout{}, fmt.Errorf("runtime-sized %s has no fixed size", t)
		}
		n, err := strconv.ParseUint(inner[i+1:], 10, 64)
		if err != nil {
			return typeLayout{}, fmt.Errorf("array count in %s: %w", t, err)
		}
		elem, err := r.layout(inner[:i])
		if err != nil {
			return typeLayout{}, err
		}
		return typeLayout{n * alignUp(elem.size, elem.align), elem.align}, nil
	}

	ps, ok := r.structs[t]
	if !ok {
		return typeLayout{}, fmt.Errorf("unknown type %q", typeName)
	}
	if r.visiting[t] {
		return typeLayout{}, fmt.Errorf("struct %s contains itself", t)
	}
	r.visiting[t] = true
	defer delete(r.visiting, t)

	var offset uint64
	align := uint64(1)
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		fl, err := r.layout(f.typeName)
		if err != nil {
			return typeLayout{}, fmt.Errorf("%s.%s: %w", t, f.name, err)
		}
		offset = alignUp(offset, fl.align) + fl.size
		align = max(align, fl.align)
	}
	l := typeLayout{alignUp(offset, align), align}
	r.resolved[t] = l
	return l, nil
}

// bufferBindingType maps a var<...> address space to a buffer binding type.
func bufferBindingType(addressSpace string) (wgpu.BufferBindingType, bool) {
	space, access, _ := strings.Cut(strings.ReplaceAll(addressSpace, " ", ""), ",")
	switch {
	case space == "uniform":
		return wgpu.BufferBindingTypeUniform, true
	case space == "storage" && access == "read_write":
		return wgpu.BufferBindingTypeStorage, true
	case space == "storage":
		return wgpu.BufferBindingTypeReadOnlyStorage, true
	}
	return wgpu.BufferBindingTypeUndefined, false
}

// stripComments blanks out // and nested /* */ comments in one pass. Newlines are kept.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth, line := 0, false
	for i := 0; i < len(source); i++ {
		c := source[i]
		var next byte
		if i+1 < len(source) {
			next = source[i+1]
		}
		switch {
		case line:
			if c == '\n' {
				line = false
				sb.WriteByte(c)
			}
		case c == '/' && next == '*':
			depth++
			i++
		case depth > 0 && c == '*' && next == '/':
			depth--
			i++
		case depth > 0:
			if c == '\n' {
				sb.WriteByte(c)
			}
		case c == '/' && next == '/':
			line = true
			i++
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// isVertexInput reports whether a struct feeds a vertex stage: it has @location fields and no @builtin.
func isVertexInput(ps parsedStruct) bool {
	found := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		found = found || f.location >= 0
	}
	return found
}

// splitFields splits a struct body at commas outside angle brackets, keeping array<T, N> whole.
func splitFields(body string) []string {
	var fields []string
	depth, start := 0, 0
	for i, c := range body {
		switch c {
		case '<':
			depth++
		case '>':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				fields = append(fields, body[start:i])
				start = i + 1
			}
		}
	}
	return append(fields, body[start:])
}
