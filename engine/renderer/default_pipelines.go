package renderer

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// MeshPipelineKey is the key of the built-in lit triangle-list pipeline. Its vertex shader reads
	// positions from "aPos" and normals from "aNor".
	MeshPipelineKey = "mesh"

	// LinePipelineKey is the key of the built-in line-list pipeline used for frame markers.
	// It ignores the depth buffer so markers inside the mesh stay visible.
	LinePipelineKey = "lines"

	// PositionStream is the attribute and stream name of vertex positions.
	PositionStream = "aPos"

	// NormalStream is the attribute and stream name of vertex normals.
	NormalStream = "aNor"
)

var (
	//go:embed shaders/camera.wgsl
	cameraWGSL string

	//go:embed shaders/model.wgsl
	modelWGSL string

	//go:embed shaders/mesh.wgsl
	meshWGSL string

	//go:embed shaders/lines.wgsl
	linesWGSL string
)

// meshColor and lightDir mirror the constants in mesh.wgsl for the raster backend.
var (
	meshColor = [3]float32{0.75, 0.75, 0.78}
	lightDir  = [3]float32{0.3, 0.5, 0.8}
)

// DefaultPipelines builds the mesh and line pipelines from the embedded WGSL sources.
//
// Returns:
//   - []pipeline.Pipeline: the mesh pipeline followed by the line pipeline
//   - error: an error if a shader fails to parse
func DefaultPipelines() ([]pipeline.Pipeline, error) {
	includes := shader.WithIncludes(map[string]string{
		"camera": cameraWGSL,
		"model":  modelWGSL,
	})

	meshVS, err := shader.NewShader("mesh_vs", shader.ShaderTypeVertex, meshWGSL, includes)
	if err != nil {
		return nil, err
	}
	meshFS, err := shader.NewShader("mesh_fs", shader.ShaderTypeFragment, meshWGSL, includes)
	if err != nil {
		return nil, err
	}
	linesVS, err := shader.NewShader("lines_vs", shader.ShaderTypeVertex, linesWGSL, includes)
	if err != nil {
		return nil, err
	}
	linesFS, err := shader.NewShader("lines_fs", shader.ShaderTypeFragment, linesWGSL, includes)
	if err != nil {
		return nil, err
	}

	return []pipeline.Pipeline{
		pipeline.NewPipeline(MeshPipelineKey,
			pipeline.WithShaders(meshVS, meshFS),
		),
		pipeline.NewPipeline(LinePipelineKey,
			pipeline.WithShaders(linesVS, linesFS),
			pipeline.WithTopology(wgpu.PrimitiveTopologyLineList),
			pipeline.WithDepth(false, false),
			pipeline.WithBlend(&pipeline.AlphaBlend),
		),
	}, nil
}
