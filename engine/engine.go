package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/config"
	"github.com/Carmen-Shannon/oxy-skin/engine/camera"
	"github.com/Carmen-Shannon/oxy-skin/engine/matstack"
	"github.com/Carmen-Shannon/oxy-skin/engine/profiler"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-skin/engine/shape_skin"
	"github.com/Carmen-Shannon/oxy-skin/engine/window"
	"github.com/chewxy/math32"
)

// ErrNotConfigured is returned by RenderFrame when the engine has no renderer or no shape.
var ErrNotConfigured = errors.New("engine: renderer and shape are required")

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	mu     *sync.Mutex
	logger *log.Logger

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	camera   camera.Camera
	shape    shape_skin.ShapeSkin
	stack    matstack.MatrixStack

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	// bounding sphere of the shape's mesh
	boundsCenter [3]float32
	boundsRadius float32

	// viewer state, guarded by mu
	mode       string
	debug      bool
	paused     bool
	animTime   float32
	frame      int
	axisLength float32

	// mouse drag state, only touched by window callbacks
	orbiting, panning bool
	lastX, lastY      int32
}

// Engine is the main entry point of the viewer.
// It orchestrates the tick loop, render loop, and window management around one ShapeSkin.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, or nil when running headless
	Window() window.Window

	// Renderer returns the renderer frames are drawn with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer, or nil if none was configured
	Renderer() renderer.Renderer

	// Camera returns the orbit camera.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Shape returns the displayed shape.
	//
	// Returns:
	//   - shape_skin.ShapeSkin: the shape, or nil if none was configured
	Shape() shape_skin.ShapeSkin

	// Mode returns the display mode, config.ModeBind or config.ModeAnimate.
	//
	// Returns:
	//   - string: the current mode
	Mode() string

	// SetMode switches between the bind pose and animation markers. Unknown modes are ignored.
	//
	// Parameters:
	//   - mode: config.ModeBind or config.ModeAnimate
	SetMode(mode string)

	// Debug reports whether marker transforms are dumped to the log every frame.
	//
	// Returns:
	//   - bool: the debug flag
	Debug() bool

	// SetDebug enables or disables the per-frame marker dump.
	//
	// Parameters:
	//   - debug: the debug flag
	SetDebug(debug bool)

	// AnimationTime returns the playback clock in seconds, wrapped to the bone count period.
	//
	// Returns:
	//   - float32: the playback clock
	AnimationTime() float32

	// Frame returns the animation frame drawn last, or -1 before the first animated frame.
	//
	// Returns:
	//   - int: the frame index
	Frame() int

	// HandleKey applies a key press: B toggles bind/animate, D toggles the debug dump, P pauses playback,
	// R reframes the camera, Escape quits.
	//
	// Parameters:
	//   - keyCode: the virtual key code
	HandleKey(keyCode uint32)

	// Tick advances the playback clock by deltaTime unless playback is paused or the bind pose is shown.
	//
	// Parameters:
	//   - deltaTime: the elapsed time in seconds
	Tick(deltaTime float32)

	// RenderFrame draws one frame: the mesh, then the bone markers of the current mode.
	//
	// Returns:
	//   - error: ErrNotConfigured, or an upload or draw error
	RenderFrame() error

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers a function called after each engine tick.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers a function called after each render frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the tick and render loops and pumps window messages until the window closes.
	// Blocks until every loop has exited.
	//
	// Returns:
	//   - error: an error if the engine has no window
	Run() error

	// Quit signals all engine goroutines to stop and closes the window loop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Without WithCamera a camera is created and framed around the shape's mesh.
//
// Parameters:
//   - options: functional options for engine configuration (window, renderer, shape, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		logger:          log.Default(),
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		stack:           matstack.NewMatrixStack(),
		engineTickRate:  time.Second / 60,
		mode:            config.ModeAnimate,
		frame:           -1,
		axisLength:      0.3,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.shape != nil && e.shape.Mesh() != nil {
		e.boundsCenter, e.boundsRadius = camera.Bounds(e.shape.Mesh().Positions())
	}

	if e.camera == nil {
		aspect := float32(1)
		if e.renderer != nil {
			if w, h := e.renderer.Size(); h > 0 {
				aspect = float32(w) / float32(h)
			}
		}
		e.camera = camera.NewCamera(camera.WithAspect(aspect))
		e.frameShape()
	}

	e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger), profiler.WithStatus(e.status))

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.renderer != nil {
				e.renderer.Resize(width, height)
			}
			if height > 0 {
				e.camera.SetAspect(float32(width) / float32(height))
			}
		})
		e.window.SetKeyDownCallback(e.HandleKey)
		e.window.SetScrollCallback(e.onScroll)
		e.window.SetMouseButtonCallback(e.onMouseButton)
		e.window.SetMouseMoveCallback(e.onMouseMove)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Shape() shape_skin.ShapeSkin {
	return e.shape
}

func (e *engine) Mode() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *engine) SetMode(mode string) {
	if mode != config.ModeBind && mode != config.ModeAnimate {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

func (e *engine) Debug() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debug
}

func (e *engine) SetDebug(debug bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debug = debug
}

func (e *engine) AnimationTime() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.animTime
}

func (e *engine) Frame() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

func (e *engine) HandleKey(keyCode uint32) {
	switch keyCode {
	case common.KeyB:
		e.mu.Lock()
		if e.mode == config.ModeBind {
			e.mode = config.ModeAnimate
		} else {
			e.mode = config.ModeBind
		}
		e.logger.Printf("[Engine] mode: %s", e.mode)
		e.mu.Unlock()
	case common.KeyD:
		e.mu.Lock()
		e.debug = !e.debug
		e.logger.Printf("[Engine] debug dump: %t", e.debug)
		e.mu.Unlock()
	case common.KeyP:
		e.mu.Lock()
		e.paused = !e.paused
		e.mu.Unlock()
	case common.KeyR:
		e.frameShape()
	case common.KeyEsc:
		e.Quit()
	}
}

func (e *engine) Tick(deltaTime float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused || e.mode == config.ModeBind || e.shape == nil {
		return
	}

	// The frame index only depends on the clock modulo the bone count, so wrapping keeps float32 precision.
	t := e.animTime + deltaTime
	if period := float32(e.shape.Skeleton().BoneCount()); period > 0 {
		t = math32.Mod(t, period)
	}
	e.animTime = t
}

func (e *engine) RenderFrame() error {
	if e.renderer == nil || e.shape == nil {
		return ErrNotConfigured
	}
	if !e.shape.Uploaded() {
		if err := e.shape.UploadToGPU(e.renderer); err != nil {
			return err
		}
	}
	p := e.renderer.Pipeline(e.shape.PipelineKey())
	if p == nil {
		return fmt.Errorf("%w: %q", renderer.ErrPipelineNotFound, e.shape.PipelineKey())
	}

	e.mu.Lock()
	mode, debug, t, axisLength := e.mode, e.debug, e.animTime, e.axisLength
	e.mu.Unlock()

	if err := e.renderer.BeginFrame(); err != nil {
		return err
	}
	view, proj := e.camera.ViewMatrix(), e.camera.ProjectionMatrix()
	e.renderer.SetViewProjection(view, proj)
	e.stack.LoadIdentity()

	// Markers are drawn regardless, bones may sit outside the mesh bounds.
	var viewProj [16]float32
	common.Mul4(viewProj[:], proj[:], view[:])
	if common.ExtractFrustum(viewProj).IntersectsSphere(e.boundsCenter, e.boundsRadius) {
		if err := e.shape.Draw(e.renderer, p.Shader(shader.ShaderTypeVertex), e.stack); err != nil {
			e.renderer.EndFrame()
			return err
		}
	}

	if mode == config.ModeBind {
		e.shape.DrawBindPoseFrames(e.renderer, e.stack, debug, axisLength)
	} else if idx, err := e.shape.DrawAnimationFrames(e.renderer, e.stack, t, debug, axisLength); err == nil {
		e.mu.Lock()
		e.frame = idx
		e.mu.Unlock()
	}

	if err := e.renderer.EndFrame(); err != nil {
		return err
	}
	e.renderer.Present()
	return nil
}

func (e *engine) Run() error {
	if e.window == nil {
		return fmt.Errorf("engine: Run requires a window")
	}
	e.running = true
	e.handle()
	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	e.logger.Printf("[Engine] stopped")
	return nil
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit and stops the window loop.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
		if e.window != nil {
			e.window.Quit()
		}
	})
}

// handle launches the engine and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Advances the playback clock at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.Tick(dt)
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("[Engine] render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()
	var lastErr string

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if err := e.RenderFrame(); err != nil {
				if err.Error() != lastErr {
					e.logger.Printf("[Engine] frame failed: %v", err)
					lastErr = err.Error()
				}
			} else {
				lastErr = ""
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// frameShape points the camera at the bounding sphere of the shape's mesh.
func (e *engine) frameShape() {
	if e.shape == nil {
		return
	}
	e.camera.Frame(e.boundsCenter, e.boundsRadius)
}

// status is appended to the profiler line.
func (e *engine) status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == config.ModeBind {
		return "Mode: bind"
	}
	return fmt.Sprintf("Mode: animate | Frame: %d | t: %.2f", e.frame, e.animTime)
}

func (e *engine) onScroll(delta float32) {
	e.camera.Zoom(delta)
}

func (e *engine) onMouseButton(button window.MouseButton, pressed bool, x, y int32) {
	switch button {
	case window.MouseButtonLeft:
		e.orbiting = pressed
	case window.MouseButtonRight, window.MouseButtonMiddle:
		e.panning = pressed
	}
	e.lastX, e.lastY = x, y
}

func (e *engine) onMouseMove(x, y int32) {
	dx, dy := float32(x-e.lastX), float32(y-e.lastY)
	e.lastX, e.lastY = x, y

	switch {
	case e.orbiting:
		e.camera.Orbit(-dx*0.01, dy*0.01)
	case e.panning:
		e.camera.Pan(-dx*0.002, dy*0.002)
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
