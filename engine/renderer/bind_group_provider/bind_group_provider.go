package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources and must be released when no longer needed. They are populated by the Renderer, not by user-creation.

	// bindGroup is the GPU bind group created for this provider, or nil if not initialized with the Renderer.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the GPU bind group layout created for this provider, or nil if not initialized with the Renderer.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the uniform buffers created for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// vertexBuffers holds one GPU vertex buffer per attribute stream, keyed by attribute name.
	vertexBuffers map[string]*wgpu.Buffer
	// indexBuffer is the GPU index buffer created for this provider, or nil if not uploaded.
	indexBuffer *wgpu.Buffer
	// indexCount is the number of indices issued by indexed draws of this provider.
	indexCount int

	// The following fields are the CPU-side copies of the uploaded geometry. Backends without GPU buffers draw from them.

	// streams holds the per-attribute vertex data, keyed by attribute name.
	streams map[string][]float32
	// indices holds the triangle-list indices.
	indices []uint32
}

// BindGroupProvider holds the GPU resources of one drawable or one uniform block: per-attribute vertex buffers,
// an index buffer and a bind group with its uniform buffers. The Renderer creates and fills them; draw calls read them.
//
// Usage pattern:
//  1. A component creates a BindGroupProvider with a debug label
//  2. Renderer.InitMeshBuffers uploads attribute streams and indices into it
//  3. Renderer.DrawCall binds its buffers and issues an indexed draw
//  4. Release frees the GPU resources when the component is discarded
type BindGroupProvider interface {
	// Release releases any GPU resources held by this provider and clears the CPU copies.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the created bind group layout for this provider.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the uniform buffer at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// Buffers returns all uniform buffers, keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.Buffer: a map of buffers keyed by binding index
	Buffers() map[int]*wgpu.Buffer

	// VertexBuffer returns the GPU vertex buffer of a named attribute stream.
	//
	// Parameters:
	//   - name: the attribute name, e.g. "aPos"
	//
	// Returns:
	//   - *wgpu.Buffer: the vertex buffer or nil
	VertexBuffer(name string) *wgpu.Buffer

	// IndexBuffer returns the GPU index buffer, or nil if not initialized.
	//
	// Returns:
	//   - *wgpu.Buffer: the index buffer or nil
	IndexBuffer() *wgpu.Buffer

	// IndexCount returns the number of indices used for indexed draws.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// Stream returns the CPU copy of a named attribute stream.
	//
	// Parameters:
	//   - name: the attribute name
	//
	// Returns:
	//   - []float32: the stream data, or nil if no such stream was uploaded
	Stream(name string) []float32

	// StreamNames returns the names of the uploaded attribute streams.
	//
	// Returns:
	//   - []string: the stream names in no particular order
	StreamNames() []string

	// Indices returns the CPU copy of the index data.
	//
	// Returns:
	//   - []uint32: the indices
	Indices() []uint32

	// SetBindGroup sets the bind group.
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the bind group layout.
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer sets the uniform buffer at a binding index.
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetVertexBuffer sets the GPU vertex buffer of a named attribute stream.
	SetVertexBuffer(name string, buf *wgpu.Buffer)

	// SetIndexBuffer sets the GPU index buffer.
	SetIndexBuffer(buf *wgpu.Buffer)

	// SetIndexCount sets the number of indices used for indexed draws.
	SetIndexCount(count int)

	// SetStream stores the CPU copy of a named attribute stream.
	SetStream(name string, data []float32)

	// SetIndices stores the CPU copy of the index data and updates the index count.
	SetIndices(indices []uint32)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty BindGroupProvider with the provided options applied.
//
// Parameters:
//   - label: the debug label
//   - options: variadic list of BindGroupProviderOption functions
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:         label,
		buffers:       make(map[int]*wgpu.Buffer),
		vertexBuffers: make(map[string]*wgpu.Buffer),
		streams:       make(map[string][]float32),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) VertexBuffer(name string) *wgpu.Buffer {
	return p.vertexBuffers[name]
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) Stream(name string) []float32 {
	return p.streams[name]
}

func (p *bindGroupProvider) StreamNames() []string {
	names := make([]string, 0, len(p.streams))
	for name := range p.streams {
		names = append(names, name)
	}
	return names
}

func (p *bindGroupProvider) Indices() []uint32 {
	return p.indices
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if p.buffers == nil {
		p.buffers = make(map[int]*wgpu.Buffer)
	}
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetVertexBuffer(name string, buf *wgpu.Buffer) {
	if p.vertexBuffers == nil {
		p.vertexBuffers = make(map[string]*wgpu.Buffer)
	}
	p.vertexBuffers[name] = buf
}

func (p *bindGroupProvider) SetIndexBuffer(buf *wgpu.Buffer) {
	p.indexBuffer = buf
}

func (p *bindGroupProvider) SetIndexCount(count int) {
	p.indexCount = count
}

func (p *bindGroupProvider) SetStream(name string, data []float32) {
	if p.streams == nil {
		p.streams = make(map[string][]float32)
	}
	p.streams[name] = data
}

func (p *bindGroupProvider) SetIndices(indices []uint32) {
	p.indices = indices
	p.indexCount = len(indices)
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	for name, buf := range p.vertexBuffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.vertexBuffers, name)
	}

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}

	clear(p.streams)
	p.indices = nil
	p.indexCount = 0
}
