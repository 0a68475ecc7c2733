package bind_group_provider

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithStream pre-stages the CPU copy of a named attribute stream.
//
// Parameters:
//   - name: the attribute name
//   - data: the per-vertex data
//
// Returns:
//   - BindGroupProviderOption: a function that stores the stream on the provider
func WithStream(name string, data []float32) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.streams[name] = data
	}
}

// WithIndices pre-stages the CPU copy of the index data.
//
// Parameters:
//   - indices: the triangle-list indices
//
// Returns:
//   - BindGroupProviderOption: a function that stores the indices on the provider
func WithIndices(indices []uint32) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.indices = indices
		p.indexCount = len(indices)
	}
}
