package renderer

import (
	"image"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/pipeline"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend drawing into a window surface.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeRaster selects the software rasterizer drawing into an in-memory image.
	BackendTypeRaster
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4. The raster backend ignores it.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// VertexStream binds one uploaded attribute stream of a mesh provider to a shader attribute location.
type VertexStream struct {
	// Name is the stream name the data was uploaded under, e.g. "aPos".
	Name string

	// Location is the vertex shader attribute location, as returned by shader.Shader.Attribute.
	Location int
}

// rendererBackend is implemented by each backend. The renderer validates arguments and frame state
// before delegating, so backends may assume a registered pipeline and, for draws, an open frame.
type rendererBackend interface {
	// ConfigureSurface (re)creates the render targets for a new size.
	ConfigureSurface(width, height int)

	// SetPresentMode sets the present mode used by the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline creates the backend objects for p.
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// InitMeshBuffers uploads the CPU streams and indices already staged on provider.
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider) error

	// BeginFrame clears the color and depth targets and opens a frame.
	BeginFrame(clear common.Color) error

	// SetViewProjection sets the camera transform for the rest of the frame.
	SetViewProjection(viewProj [16]float32)

	// DrawCall issues one indexed triangle-list draw of provider under model.
	DrawCall(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, model [16]float32, streams []VertexStream) error

	// DrawLines draws world-space segments with the line pipeline p.
	DrawLines(p pipeline.Pipeline, segments []common.Segment)

	// EndFrame closes the frame and submits any pending work.
	EndFrame() error

	// Present shows the last finished frame.
	Present()

	// Snapshot copies the last finished frame into an image.
	Snapshot() (*image.NRGBA, error)

	// Release frees backend resources.
	Release()
}
