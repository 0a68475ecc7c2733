package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormats maps canonical WGSL attribute types to vertex formats.
var vertexFormats = map[string]vertexFormatInfo{
	"f32":   {wgpu.VertexFormatFloat32, 4},
	"vec2f": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f": {wgpu.VertexFormatFloat32x4, 16},
	"u32":   {wgpu.VertexFormatUint32, 4},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> camera: CameraUniform;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseAttributes extracts the vertex attributes of the first vertex input struct in the source, sorted by
// location. Each attribute is fed from its own vertex buffer, so the locations must run 0..n-1 without gaps
// and the buffer slot of an attribute equals its location.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - []Attribute: the attributes, or nil when the source has no vertex input struct
//   - error: an error if an attribute type is unsupported or the locations are not contiguous
func parseAttributes(source string) ([]Attribute, error) {
	structs := parseStructBlocks(stripComments(source))

	for _, ps := range structs {
		if !isVertexInput(ps) {
			continue
		}
		attrs := make([]Attribute, 0, len(ps.fields))
		for _, f := range ps.fields {
			info, ok := vertexFormats[canonicalType(f.typeName)]
			if !ok {
				return nil, fmt.Errorf("attribute %s: unsupported vertex type %q", f.name, f.typeName)
			}
			attrs = append(attrs, Attribute{
				Name:       f.name,
				Location:   f.location,
				Format:     info.format,
				Components: int(info.size / 4),
			})
		}
		sort.Slice(attrs, func(i, j int) bool {
			return attrs[i].Location < attrs[j].Location
		})
		for i, a := range attrs {
			if a.Location != i {
				return nil, fmt.Errorf("attribute %s: location %d leaves a gap, expected %d", a.Name, a.Location, i)
			}
		}
		return attrs, nil
	}

	return nil, nil
}

// buildVertexBufferLayouts converts attributes into one non-interleaved wgpu.VertexBufferLayout per attribute.
//
// Parameters:
//   - attrs: the attributes sorted by location
//
// Returns:
//   - []wgpu.VertexBufferLayout: the layouts, indexed by buffer slot
func buildVertexBufferLayouts(attrs []Attribute) []wgpu.VertexBufferLayout {
	layouts := make([]wgpu.VertexBufferLayout, 0, len(attrs))
	for _, a := range attrs {
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: uint64(a.Components) * 4,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{{
				Format:         a.Format,
				Offset:         0,
				ShaderLocation: uint32(a.Location),
			}},
		})
	}
	return layouts
}

// parseBindGroupLayouts extracts all @group(N) @binding(M) buffer declarations from WGSL
// source and returns them as wgpu.BindGroupLayoutDescriptor values grouped by group index.
// Each descriptor's entries are sorted by binding index.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - visibility: the shader stage visibility flag to set on each entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index
//   - error: an error if a declaration is not a buffer binding
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, error) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	cleaned := stripComments(source)
	layouts := newLayoutResolver(parseStructBlocks(cleaned))

	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		varName := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		bufferType, ok := bufferBindingType(addressSpace)
		if !ok {
			return nil, fmt.Errorf("binding %s: only uniform and storage buffers are supported", varName)
		}
		entry := wgpu.BindGroupLayoutEntry{Binding: uint32(binding), Visibility: visibility}
		entry.Buffer.Type = bufferType
		// runtime-sized storage arrays have no minimum size
		if layout, err := layouts.layout(typeName); err == nil {
			entry.Buffer.MinBindingSize = layout.size
		} else if bufferType == wgpu.BufferBindingTypeUniform {
			return nil, fmt.Errorf("binding %s: %w", varName, err)
		}
		groups[group] = append(groups[group], entry)
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{
			Entries: entries,
		}
	}

	return result, nil
}

// parseEntryPoint extracts the entry point function name for the given shader type
// from WGSL source. Returns an empty string if no matching entry point annotation is found.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - shaderType: the shader type to search for
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, shaderType ShaderType) string {
	cleaned := stripComments(source)

	var re *regexp.Regexp
	switch shaderType {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}

	return structs
}

// parseStructFields parses the body of a struct block into individual fields,
// extracting @location and @builtin attributes along with the field name and type
func parseStructFields(body string) []parsedField {
	lines := splitFields(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1}
		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])

		fields = append(fields, field)
	}

	return fields
}
