package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cameraSnippet = `struct CameraUniform {
    viewProj: mat4x4<f32>,
};`

const meshVertexSource = `// #include camera
@group(0) @binding(0) var<uniform> camera: CameraUniform;

struct VertexInput {
    @location(1) aNor: vec3<f32>,
    @location(0) aPos: vec3<f32>,
};

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) normal: vec3<f32>,
};

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = camera.viewProj * vec4<f32>(in.aPos, 1.0);
    out.normal = in.aNor;
    return out;
}
`

func TestNewShader_VertexAttributes(t *testing.T) {
	s, err := NewShader("mesh_vs", ShaderTypeVertex, meshVertexSource, WithIncludes(map[string]string{"camera": cameraSnippet}))
	require.NoError(t, err)

	assert.Equal(t, "vs_main", s.EntryPoint())
	assert.Equal(t, 0, s.Attribute("aPos"))
	assert.Equal(t, 1, s.Attribute("aNor"))
	assert.Equal(t, -1, s.Attribute("aTex"))

	attrs := s.Attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, "aPos", attrs[0].Name)
	assert.Equal(t, 3, attrs[0].Components)

	layouts := s.VertexLayouts()
	require.Len(t, layouts, 2)
	assert.Equal(t, uint64(12), layouts[1].ArrayStride)
	assert.Equal(t, uint32(1), layouts[1].Attributes[0].ShaderLocation)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, layouts[1].Attributes[0].Format)
}

func TestNewShader_BindGroupLayouts(t *testing.T) {
	s, err := NewShader("mesh_vs", ShaderTypeVertex, meshVertexSource, WithIncludes(map[string]string{"camera": cameraSnippet}))
	require.NoError(t, err)

	desc := s.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 1)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, desc.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(64), desc.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageVertex, desc.Entries[0].Visibility)
	assert.Contains(t, s.Source(), "struct CameraUniform")
	assert.NotNil(t, s.Module())
}

func TestNewShader_Errors(t *testing.T) {
	cases := []struct {
		name   string
		source string
	}{
		{"unknown include", "// #include lights\n@vertex fn main() {}"},
		{"no entry point", "struct A { x: f32, };"},
		{"location gap", "struct In { @location(0) a: vec3<f32>, @location(2) b: vec3<f32>, };\n@vertex fn main(in: In) {}"},
		{"unsupported type", "struct In { @location(0) a: mat4x4<f32>, };\n@vertex fn main(in: In) {}"},
		{"texture binding", "@group(0) @binding(0) var tex: texture_2d<f32>;\n@vertex fn main() {}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewShader("bad", ShaderTypeVertex, tc.source)
			assert.Error(t, err)
		})
	}
}

func TestPreProcessor_IncludesOnce(t *testing.T) {
	pp := NewPreProcessor(map[string]string{"camera": cameraSnippet})
	out, err := pp.Process("// #include camera\n// #include camera\nfn f() {}")
	require.NoError(t, err)
	assert.Equal(t, cameraSnippet+"\nfn f() {}", out)
}

func TestLayoutResolver(t *testing.T) {
	r := newLayoutResolver(parseStructBlocks(`
struct Outer { m: Inner, s: f32, }
struct Inner { a: vec3<f32>, b: f32, c: mat4x4<f32>, }
struct Loop { next: Loop, }`))

	tests := []struct {
		typeName string
		size     uint64
		align    uint64
	}{
		{"array<vec3<f32>, 4>", 64, 16},
		{"vec3f", 12, 16},
		{"Inner", 80, 16},
		{"Outer", 96, 16},
	}
	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			l, err := r.layout(tt.typeName)
			require.NoError(t, err)
			assert.Equal(t, tt.size, l.size)
			assert.Equal(t, tt.align, l.align)
		})
	}

	for _, bad := range []string{"Loop", "array<f32>", "texture_2d<f32>"} {
		_, err := r.layout(bad)
		assert.Error(t, err, bad)
	}
}

func TestStripComments(t *testing.T) {
	src := "a // line\nb /* block /* nested */ still */ c\n/* x\ny */d"
	assert.Equal(t, "a \nb  c\n\nd", stripComments(src))
}

func TestBufferBindingType(t *testing.T) {
	tests := []struct {
		space string
		want  wgpu.BufferBindingType
		ok    bool
	}{
		{"uniform", wgpu.BufferBindingTypeUniform, true},
		{"storage", wgpu.BufferBindingTypeReadOnlyStorage, true},
		{"storage, read", wgpu.BufferBindingTypeReadOnlyStorage, true},
		{"storage, read_write", wgpu.BufferBindingTypeStorage, true},
		{"", wgpu.BufferBindingTypeUndefined, false},
	}
	for _, tt := range tests {
		got, ok := bufferBindingType(tt.space)
		assert.Equal(t, tt.ok, ok, tt.space)
		assert.Equal(t, tt.want, got, tt.space)
	}
}
