package renderer

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Bind group indices shared by the built-in shaders.
const (
	cameraGroup = 0
	modelGroup  = 1
)

type wgpuRendererBackend struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTextureView      *wgpu.TextureView
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	sampleCount MSAASampleCount  // MSAA sample count for the main render pass

	// layouts holds the bind group layouts each registered pipeline was created with, keyed by pipeline key.
	layouts map[string][]*wgpu.BindGroupLayout

	// camera owns the view-projection uniform buffer. cameraGroups holds one bind group per pipeline over it.
	camera       bind_group_provider.BindGroupProvider
	cameraGroups map[string]*wgpu.BindGroup

	// Line segments are collected during the frame and drawn in one batch at EndFrame.
	linePipeline  pipeline.Pipeline
	linePositions []float32
	lineColors    []float32
	lineBuffers   bind_group_provider.BindGroupProvider
	lineCapacity  int

	// Frame state for batched rendering across multiple draw calls
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ rendererBackend = &wgpuRendererBackend{}

// newWGPURendererBackend creates the instance, surface, adapter and device for the given surface descriptor.
// GPU initialization failures panic, as the viewer cannot run without a device.
//
// Parameters:
//   - surfaceDescriptor: the platform-specific surface descriptor from the window
//   - forceFallbackAdapter: whether to request a software adapter
//   - sampleCount: the MSAA sample count of the main render pass
//
// Returns:
//   - *wgpuRendererBackend: the backend
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) *wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackend{
		mu:           &sync.Mutex{},
		instance:     wgpu.CreateInstance(nil),
		presentMode:  wgpu.PresentModeImmediate,
		sampleCount:  sampleCount,
		layouts:      make(map[string][]*wgpu.BindGroupLayout),
		camera:       bind_group_provider.NewBindGroupProvider("Camera"),
		cameraGroups: make(map[string]*wgpu.BindGroup),
		lineBuffers:  bind_group_provider.NewBindGroupProvider("Lines"),
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	cameraBuf, err := d.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Camera Uniform Buffer",
		Size:  64,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	w.camera.SetBuffer(0, cameraBuf)

	return w
}

func (b *wgpuRendererBackend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if msaaEnabled {
		// The render pass draws into the MSAA texture and resolves into the swapchain view.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
	}
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          b.msaaTextureView, // nil when MSAA is off; set in BeginFrame
				ResolveTarget: nil,               // set per-frame when MSAA is on
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuRendererBackend) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return err
	}
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return err
	}

	merged := mergeBindGroupLayouts(vertexShader.BindGroupLayoutDescriptors(), fragmentShader.BindGroupLayoutDescriptors())
	maxGroup := -1
	for g := range merged {
		maxGroup = max(maxGroup, g)
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g, desc := range merged {
		layout, layoutErr := b.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		bindGroupLayouts[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}

	state := p.State()
	target := wgpu.ColorTargetState{
		Format:    *b.surfaceFormat,
		WriteMask: state.WriteMask,
		Blend:     state.Blend,
	}
	depthCompare := wgpu.CompareFunctionLess
	if !state.DepthTest {
		depthCompare = wgpu.CompareFunctionAlways
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  state.Topology,
			FrontFace: state.FrontFace,
			CullMode:  state.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: state.DepthWrite,
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return err
	}
	p.SetRenderPipeline(created)
	b.layouts[p.PipelineKey()] = bindGroupLayouts

	if cameraGroup < len(bindGroupLayouts) && bindGroupLayouts[cameraGroup] != nil {
		bg, err := b.createUniformBindGroup(p.PipelineKey()+" Camera", bindGroupLayouts[cameraGroup], b.camera.Buffer(0))
		if err != nil {
			return err
		}
		b.cameraGroups[p.PipelineKey()] = bg
	}
	if p.State().Topology == wgpu.PrimitiveTopologyLineList {
		b.linePipeline = p
	}

	return nil
}

// createUniformBindGroup creates a bind group with a single uniform buffer at binding 0.
func (b *wgpuRendererBackend) createUniformBindGroup(label string, layout *wgpu.BindGroupLayout, buf *wgpu.Buffer) (*wgpu.BindGroup, error) {
	return b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label + " Bind Group",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}},
	})
}

func (b *wgpuRendererBackend) InitMeshBuffers(provider bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, name := range provider.StreamNames() {
		data := provider.Stream(name)
		if len(data) == 0 {
			continue
		}
		buf, err := b.createBuffer(provider.Label()+" "+name+" Vertex Buffer", common.SliceToBytes(data), wgpu.BufferUsageVertex)
		if err != nil {
			return err
		}
		provider.SetVertexBuffer(name, buf)
	}

	if indices := provider.Indices(); len(indices) > 0 {
		buf, err := b.createBuffer(provider.Label()+" Index Buffer", common.SliceToBytes(indices), wgpu.BufferUsageIndex)
		if err != nil {
			return err
		}
		provider.SetIndexBuffer(buf)
	}

	return nil
}

// createBuffer creates a buffer of the given usage and writes data into it.
func (b *wgpuRendererBackend) createBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func (b *wgpuRendererBackend) BeginFrame(clear common.Color) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	b.renderPassDescriptor.ColorAttachments[0].ClearValue = wgpu.Color{
		R: float64(clear[0]), G: float64(clear[1]), B: float64(clear[2]), A: float64(clear[3]),
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view
	b.linePositions = b.linePositions[:0]
	b.lineColors = b.lineColors[:0]

	return nil
}

func (b *wgpuRendererBackend) SetViewProjection(viewProj [16]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(b.camera.Buffer(0), 0, common.SliceToBytes(viewProj[:]))
}

// DrawCall writes model into the provider's own uniform buffer, so a provider drawn twice in one frame is
// drawn with the last model transform both times.
func (b *wgpuRendererBackend) DrawCall(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, model [16]float32, streams []VertexStream) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if provider.IndexBuffer() == nil {
		return errors.New("mesh provider has no index buffer")
	}
	if err := b.ensureModelBindGroup(p, provider); err != nil {
		return err
	}
	b.queue.WriteBuffer(provider.Buffer(0), 0, common.SliceToBytes(model[:]))

	b.framePass.SetPipeline(p.Pipeline().(*wgpu.RenderPipeline))
	if bg, ok := b.cameraGroups[p.PipelineKey()]; ok {
		b.framePass.SetBindGroup(cameraGroup, bg, nil)
	}
	b.framePass.SetBindGroup(modelGroup, provider.BindGroup(), nil)

	for _, s := range streams {
		b.framePass.SetVertexBuffer(uint32(s.Location), provider.VertexBuffer(s.Name), 0, wgpu.WholeSize)
	}
	b.framePass.SetIndexBuffer(provider.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(provider.IndexCount()), 1, 0, 0, 0)
	return nil
}

// ensureModelBindGroup creates the model uniform buffer and bind group of a provider on first use.
func (b *wgpuRendererBackend) ensureModelBindGroup(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider) error {
	if provider.BindGroup() != nil {
		return nil
	}
	layouts := b.layouts[p.PipelineKey()]
	if modelGroup >= len(layouts) || layouts[modelGroup] == nil {
		return fmt.Errorf("pipeline %q declares no model bind group", p.PipelineKey())
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: provider.Label() + " Model Uniform Buffer",
		Size:  64,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	provider.SetBuffer(0, buf)
	bg, err := b.createUniformBindGroup(provider.Label()+" Model", layouts[modelGroup], buf)
	if err != nil {
		return err
	}
	provider.SetBindGroup(bg)
	return nil
}

func (b *wgpuRendererBackend) DrawLines(p pipeline.Pipeline, segments []common.Segment) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.linePipeline = p
	for _, s := range segments {
		b.linePositions = append(b.linePositions, s.From[0], s.From[1], s.From[2], s.To[0], s.To[1], s.To[2])
		b.lineColors = append(b.lineColors, s.Color[:]...)
		b.lineColors = append(b.lineColors, s.Color[:]...)
	}
}

// flushLines uploads the collected segments and draws them with the line pipeline.
func (b *wgpuRendererBackend) flushLines() error {
	vertexCount := len(b.linePositions) / 3
	if vertexCount == 0 || b.linePipeline == nil {
		return nil
	}

	if vertexCount > b.lineCapacity {
		b.lineBuffers.Release()
		capacity := max(vertexCount, 2*b.lineCapacity, 256)
		posBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Line Position Buffer",
			Size:  uint64(capacity * 3 * 4),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		colBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Line Color Buffer",
			Size:  uint64(capacity * 4 * 4),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			posBuf.Release()
			return err
		}
		b.lineBuffers.SetVertexBuffer(PositionStream, posBuf)
		b.lineBuffers.SetVertexBuffer("aCol", colBuf)
		b.lineCapacity = capacity
	}

	posBuf := b.lineBuffers.VertexBuffer(PositionStream)
	colBuf := b.lineBuffers.VertexBuffer("aCol")
	b.queue.WriteBuffer(posBuf, 0, common.SliceToBytes(b.linePositions))
	b.queue.WriteBuffer(colBuf, 0, common.SliceToBytes(b.lineColors))

	b.framePass.SetPipeline(b.linePipeline.Pipeline().(*wgpu.RenderPipeline))
	if bg, ok := b.cameraGroups[b.linePipeline.PipelineKey()]; ok {
		b.framePass.SetBindGroup(cameraGroup, bg, nil)
	}
	b.framePass.SetVertexBuffer(0, posBuf, 0, uint64(len(b.linePositions)*4))
	b.framePass.SetVertexBuffer(1, colBuf, 0, uint64(len(b.lineColors)*4))
	b.framePass.Draw(uint32(vertexCount), 1, 0, 0)
	return nil
}

func (b *wgpuRendererBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	flushErr := b.flushLines()
	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.framePass = nil
		b.frameSurface = nil
		b.frameView = nil
		return err
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
	return flushErr
}

func (b *wgpuRendererBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackend) Snapshot() (*image.NRGBA, error) {
	return nil, ErrSnapshotUnsupported
}

func (b *wgpuRendererBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lineBuffers.Release()
	b.camera.Release()
	for key, bg := range b.cameraGroups {
		bg.Release()
		delete(b.cameraGroups, key)
	}
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
	}
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
}

// mergeBindGroupLayouts combines the bind group layout descriptors of the vertex and fragment shaders
// into a unified set of descriptors suitable for a render pipeline layout. Entries with the same binding
// number have their Visibility flags ORed together.
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		vDesc, hasV := vertexLayouts[g]
		fDesc, hasF := fragmentLayouts[g]

		switch {
		case hasV && !hasF:
			merged[g] = vDesc
		case hasF && !hasV:
			merged[g] = fDesc
		default:
			entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
			for _, e := range vDesc.Entries {
				entryMap[e.Binding] = e
			}
			for _, e := range fDesc.Entries {
				if existing, ok := entryMap[e.Binding]; ok {
					existing.Visibility |= e.Visibility
					entryMap[e.Binding] = existing
				} else {
					entryMap[e.Binding] = e
				}
			}

			entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
			for _, e := range entryMap {
				entries = append(entries, e)
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Binding < entries[j].Binding
			})

			merged[g] = wgpu.BindGroupLayoutDescriptor{
				Label:   vDesc.Label,
				Entries: entries,
			}
		}
	}

	return merged
}
