package pipeline

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption configures a pipeline in NewPipeline.
type PipelineBuilderOption func(*pipeline)

// WithShaders sets the vertex and fragment stages.
//
// Parameters:
//   - vertex: the vertex shader, whose attributes decide which vertex streams a draw binds
//   - fragment: the fragment shader
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithShaders(vertex, fragment shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = vertex
		p.fragmentShader = fragment
	}
}

// WithTopology sets the primitive topology.
//
// Parameters:
//   - topology: wgpu.PrimitiveTopologyTriangleList or wgpu.PrimitiveTopologyLineList
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.Topology = topology
	}
}

// WithDepth sets depth testing and depth writes. Overlays such as axis markers turn both off.
func WithDepth(test, write bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.DepthTest = test
		p.state.DepthWrite = write
	}
}

// WithCulling sets which faces are discarded and which winding counts as front facing.
//
// Parameters:
//   - mode: the cull mode
//   - front: the front face winding
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithCulling(mode wgpu.CullMode, front wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.CullMode = mode
		p.state.FrontFace = front
	}
}

// WithBlend enables blending with the given state, or disables it when blend is nil.
func WithBlend(blend *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.Blend = blend
	}
}

// WithWriteMask limits the color channels the pipeline writes.
func WithWriteMask(mask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.WriteMask = mask
	}
}
