package pipeline

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// State is the fixed-function render state of a pipeline.
type State struct {
	Topology   wgpu.PrimitiveTopology
	DepthTest  bool
	DepthWrite bool
	CullMode   wgpu.CullMode
	FrontFace  wgpu.FrontFace
	WriteMask  wgpu.ColorWriteMask

	// Blend is nil for opaque pipelines.
	Blend *wgpu.BlendState
}

// AlphaBlend is straight alpha over blending with premultiplied destination alpha.
var AlphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// Pipeline pairs a vertex and fragment shader with the State a backend draws them with.
type Pipeline interface {
	// PipelineKey returns the key the renderer registers and looks the pipeline up by.
	PipelineKey() string

	// Shader retrieves the shader for a stage.
	//
	// Parameters:
	//   - shaderType: the stage to look up
	//
	// Returns:
	//   - shader.Shader: the stage's shader, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// State returns the fixed-function state.
	State() State

	// Pipeline returns the backend pipeline object, a *wgpu.RenderPipeline once registered with the WGPU
	// renderer and nil otherwise.
	Pipeline() any

	// SetRenderPipeline stores the GPU pipeline object created by the backend.
	//
	// Parameters:
	//   - p: the created render pipeline
	SetRenderPipeline(p *wgpu.RenderPipeline)
}

type pipeline struct {
	key            string
	vertexShader   shader.Shader
	fragmentShader shader.Shader
	state          State
	renderPipeline *wgpu.RenderPipeline
}

var _ Pipeline = &pipeline{}

// NewPipeline creates an opaque, depth-tested triangle-list pipeline with counter-clockwise front faces and no
// culling, then applies the options.
//
// Parameters:
//   - key: the unique key of the pipeline
//   - opts: variadic list of PipelineBuilderOption functions
//
// Returns:
//   - Pipeline: the new pipeline
func NewPipeline(key string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		key: key,
		state: State{
			Topology:   wgpu.PrimitiveTopologyTriangleList,
			DepthTest:  true,
			DepthWrite: true,
			CullMode:   wgpu.CullModeNone,
			FrontFace:  wgpu.FrontFaceCCW,
			WriteMask:  wgpu.ColorWriteMaskAll,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.key
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	}
	return nil
}

func (p *pipeline) State() State {
	return p.state
}

func (p *pipeline) Pipeline() any {
	return p.renderPipeline
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}
