package window

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var errNotOpen = errors.New("window is not open")

var glfwButtons = map[glfw.MouseButton]MouseButton{
	glfw.MouseButtonLeft:   MouseButtonLeft,
	glfw.MouseButtonRight:  MouseButtonRight,
	glfw.MouseButtonMiddle: MouseButtonMiddle,
}

type glfwWindow struct {
	window  *glfw.Window
	running atomic.Bool
}

// newPlatformWindow creates a GLFW window without a client API, since WebGPU owns the surface, and routes its
// events to w's callbacks. GLFW must stay on one OS thread, so the calling goroutine is locked to it.
//
// Reference: https://www.glfw.org/docs/latest/window_guide.html
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("glfw create window: %w", err)
	}

	lim := w.limits
	win.SetSizeLimits(max(lim.MinWidth, 1), max(lim.MinHeight, 1), dontCareIfZero(lim.MaxWidth), dontCareIfZero(lim.MaxHeight))

	gw := &glfwWindow{window: win}
	gw.running.Store(true)
	w.internalWindow = gw
	installCallbacks(w, win)

	// On high-DPI displays the framebuffer is larger than the requested window size.
	w.width, w.height = win.GetFramebufferSize()
	return nil
}

func dontCareIfZero(v int) int {
	if v <= 0 {
		return glfw.DontCare
	}
	return v
}

func installCallbacks(w *engineWindow, win *glfw.Window) {
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Release && w.onKeyDown != nil {
			w.onKeyDown(uint32(key))
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	win.SetMouseButtonCallback(func(gw *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		b, ok := glfwButtons[button]
		if !ok || action == glfw.Repeat || w.onMouseButton == nil {
			return
		}
		x, y := gw.GetCursorPos()
		w.onMouseButton(b, action == glfw.Press, int32(x), int32(y))
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if w.onMouseMove != nil {
			w.onMouseMove(int32(x), int32(y))
		}
	})

	// The renderer sizes its surface in pixels, so resizes report the framebuffer size.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width, w.height = width, height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})
}

func platform(w *engineWindow) (*glfwWindow, bool) {
	gw, ok := w.internalWindow.(*glfwWindow)
	return gw, ok && gw != nil
}

// platformGetSurfaceDescriptor builds the surface descriptor through the wgpuglfw bridge, which picks
// Win32, X11, Wayland or Metal for the running platform.
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	gw, ok := platform(w)
	if !ok {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

func platformIsRunningCheck(w *engineWindow) bool {
	gw, ok := platform(w)
	return ok && gw.running.Load() && !gw.window.ShouldClose()
}

// platformQuit may be called from any goroutine; glfwSetWindowShouldClose is thread safe.
func platformQuit(w *engineWindow) {
	if gw, ok := platform(w); ok {
		gw.running.Store(false)
		gw.window.SetShouldClose(true)
	}
}

func platformCloseWindow(w *engineWindow) error {
	gw, ok := platform(w)
	if !ok {
		return errNotOpen
	}
	platformQuit(w)
	gw.window.Destroy()
	glfw.Terminate()
	w.internalWindow = nil
	w.logger.Printf("[Window] closed %q", w.title)
	return nil
}

// platformProcessMessages drains pending events without blocking.
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}
