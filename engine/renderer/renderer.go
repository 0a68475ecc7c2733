package renderer

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-skin/engine/window"
)

var (
	// ErrNoFrame is returned when drawing outside a BeginFrame/EndFrame pair.
	ErrNoFrame = errors.New("renderer: no frame in progress")

	// ErrPipelineNotFound is returned when a draw names an unregistered pipeline.
	ErrPipelineNotFound = errors.New("renderer: pipeline not found")

	// ErrStream is returned when a draw binds a missing stream or leaves a shader attribute unbound.
	ErrStream = errors.New("renderer: vertex stream")

	// ErrSnapshotUnsupported is returned by Snapshot on backends that present to a window.
	ErrSnapshotUnsupported = errors.New("renderer: snapshot requires the raster backend")
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu     *sync.Mutex
	logger *log.Logger

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     rendererBackend

	width, height int
	clearColor    common.Color
	lineWidth     float32
	inFrame       bool
	warnedLines   bool

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
}

// Renderer is the rendering collaborator of the viewer. It caches pipelines by key, uploads mesh streams into
// BindGroupProviders and issues indexed mesh draws and marker line batches inside a BeginFrame/EndFrame pair.
// It implements frenet.LineSink, so frame markers can be drawn into it directly.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines creates the backend objects for each pipeline and caches it by PipelineKey.
	// Pipelines whose keys are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the render targets for a new size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// Size returns the current render target size.
	//
	// Returns:
	//   - int: the width in pixels
	//   - int: the height in pixels
	Size() (int, int)

	// SetPresentMode sets the surface present mode. A call to Resize is required for it to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// InitMeshBuffers stages named attribute streams and triangle indices on provider and uploads them
	// to device buffers. The stream data is kept on the provider as a CPU copy.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the buffers on
	//   - streams: per-vertex attribute data keyed by stream name
	//   - indices: the triangle-list indices
	//
	// Returns:
	//   - error: an error if an index is out of range or buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, streams map[string][]float32, indices []uint32) error

	// BeginFrame clears the render targets and opens a frame.
	//
	// Returns:
	//   - error: an error if a frame is already open or the surface texture could not be acquired
	BeginFrame() error

	// SetViewProjection sets the camera transforms used by the draws of the current frame.
	//
	// Parameters:
	//   - view: the view matrix
	//   - proj: the projection matrix
	SetViewProjection(view, proj [16]float32)

	// DrawCall issues one indexed triangle-list draw of meshProvider under model, binding each stream to its
	// attribute location. Every attribute of the pipeline's vertex shader must be bound.
	//
	// Parameters:
	//   - pipelineKey: the key of a registered pipeline
	//   - meshProvider: the BindGroupProvider holding the uploaded streams and indices
	//   - model: the model transform
	//   - streams: the stream to attribute bindings
	//
	// Returns:
	//   - error: ErrNoFrame, ErrPipelineNotFound, ErrStream, or a backend error
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, model [16]float32, streams []VertexStream) error

	// DrawLines draws segments under model with the line pipeline. Segments with zero width use the current
	// line width. Segments submitted outside a frame are dropped.
	//
	// Parameters:
	//   - model: the model transform
	//   - segments: the segments to draw
	DrawLines(model [16]float32, segments []common.Segment)

	// SetLineWidth sets the width used for segments that do not carry one.
	//
	// Parameters:
	//   - width: the line width in pixels, values below 1 are clamped to 1
	SetLineWidth(width float32)

	// LineWidth returns the current line width.
	//
	// Returns:
	//   - float32: the line width in pixels
	LineWidth() float32

	// EndFrame closes the frame and submits its work. Does not present; call Present afterwards.
	//
	// Returns:
	//   - error: ErrNoFrame if no frame is open, or a backend error
	EndFrame() error

	// Present presents the last finished frame to the display.
	Present()

	// Snapshot copies the last finished frame into an image.
	//
	// Returns:
	//   - *image.NRGBA: the frame
	//   - error: ErrSnapshotUnsupported on the WGPU backend
	Snapshot() (*image.NRGBA, error)

	// Release frees the backend resources.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer with the specified backend and registers the default mesh and line pipelines.
// The WGPU backend renders into win's surface; the raster backend ignores win, which may be nil, and uses the
// size set with WithSize.
//
// Parameters:
//   - backendType: the backend to use
//   - win: the window providing the surface, required for BackendTypeWGPU
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured renderer
//   - error: an error if the default pipelines cannot be created
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		logger:        log.Default(),
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		width:         640,
		height:        480,
		clearColor:    common.Color{0.1, 0.1, 0.1, 1},
		lineWidth:     1,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeRaster:
		r.backend = newRasterRendererBackend()
	case BackendTypeWGPU:
		if win == nil {
			return nil, fmt.Errorf("renderer: the WGPU backend requires a window")
		}
		r.width, r.height = win.Width(), win.Height()
		r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	default:
		return nil, fmt.Errorf("renderer: unknown backend type %d", backendType)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.ConfigureSurface(r.width, r.height)

	defaults, err := DefaultPipelines()
	if err != nil {
		return nil, err
	}
	if err := r.RegisterPipelines(defaults...); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if p.Shader(shader.ShaderTypeVertex) == nil || p.Shader(shader.ShaderTypeFragment) == nil {
			return fmt.Errorf("pipeline %q: both vertex and fragment shaders must be set", key)
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return fmt.Errorf("pipeline %q: %w", key, err)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, streams map[string][]float32, indices []uint32) error {
	if pos, ok := streams[PositionStream]; ok {
		vertexCount := len(pos) / 3
		for i, idx := range indices {
			if int(idx) >= vertexCount {
				return fmt.Errorf("renderer: index %d at %d out of range for %d vertices", idx, i, vertexCount)
			}
		}
	}

	for name, data := range streams {
		provider.SetStream(name, data)
	}
	provider.SetIndices(indices)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.InitMeshBuffers(provider)
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFrame {
		return fmt.Errorf("renderer: previous frame not ended")
	}
	if err := r.backend.BeginFrame(r.clearColor); err != nil {
		return err
	}
	r.inFrame = true
	return nil
}

func (r *renderer) SetViewProjection(view, proj [16]float32) {
	var viewProj [16]float32
	common.Mul4(viewProj[:], proj[:], view[:])

	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.SetViewProjection(viewProj)
}

func (r *renderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, model [16]float32, streams []VertexStream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inFrame {
		return ErrNoFrame
	}
	p, exists := r.pipelineCache[pipelineKey]
	if !exists {
		return fmt.Errorf("%w: %q", ErrPipelineNotFound, pipelineKey)
	}
	if err := checkStreams(p.Shader(shader.ShaderTypeVertex), meshProvider, streams); err != nil {
		return err
	}
	return r.backend.DrawCall(p, meshProvider, model, streams)
}

// checkStreams verifies that every vertex shader attribute is bound exactly once to an uploaded stream.
func checkStreams(vs shader.Shader, provider bind_group_provider.BindGroupProvider, streams []VertexStream) error {
	bound := make(map[int]bool, len(streams))
	for _, s := range streams {
		if s.Location < 0 {
			return fmt.Errorf("%w %s: the shader has no such attribute", ErrStream, s.Name)
		}
		if provider.Stream(s.Name) == nil {
			return fmt.Errorf("%w %s: not uploaded", ErrStream, s.Name)
		}
		if bound[s.Location] {
			return fmt.Errorf("%w %s: location %d bound twice", ErrStream, s.Name, s.Location)
		}
		bound[s.Location] = true
	}
	for _, a := range vs.Attributes() {
		if !bound[a.Location] {
			return fmt.Errorf("%w: attribute %s at location %d is unbound", ErrStream, a.Name, a.Location)
		}
	}
	return nil
}

func (r *renderer) DrawLines(model [16]float32, segments []common.Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inFrame {
		if !r.warnedLines {
			r.logger.Printf("[Renderer] dropping %d segments drawn outside a frame", len(segments))
			r.warnedLines = true
		}
		return
	}

	world := make([]common.Segment, len(segments))
	for i, s := range segments {
		from := common.MulPoint(model, s.From)
		to := common.MulPoint(model, s.To)
		world[i] = common.Segment{
			From:  [3]float32{from[0], from[1], from[2]},
			To:    [3]float32{to[0], to[1], to[2]},
			Color: s.Color,
			Width: s.Width,
		}
		if world[i].Width <= 0 {
			world[i].Width = r.lineWidth
		}
	}
	r.backend.DrawLines(r.pipelineCache[LinePipelineKey], world)
}

func (r *renderer) SetLineWidth(width float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lineWidth = max(width, 1)
}

func (r *renderer) LineWidth() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lineWidth
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inFrame {
		return ErrNoFrame
	}
	r.inFrame = false
	return r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Snapshot() (*image.NRGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.Snapshot()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.Release()
}
