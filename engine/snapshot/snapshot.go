// Package snapshot renders the bind pose and every animation frame of a shape to image files without a window.
package snapshot

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/config"
	"github.com/Carmen-Shannon/oxy-skin/engine/camera"
	"github.com/Carmen-Shannon/oxy-skin/engine/matstack"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-skin/engine/shape_skin"
	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
)

// BindFrame is the Result.Frame value of the bind pose image.
const BindFrame = -1

// AnimationFile is the name of the animated WebP written when snapshot.animated is set.
const AnimationFile = "animation.webp"

// ErrNoMesh is returned when the shape has no geometry to render.
var ErrNoMesh = errors.New("snapshot: shape has no mesh data")

// Result holds the outcome of rendering one pose.
type Result struct {
	Name    string
	Frame   int
	Path    string
	Success bool
	Error   string
}

// job is one pose to render. A nil pose renders the mesh without markers.
type job struct {
	name  string
	frame int
	pose  [][16]float32
}

// exporter holds the shared state of one Run.
type exporter struct {
	logger   *log.Logger
	clear    common.Color
	interval time.Duration

	shape       shape_skin.ShapeSkin
	format      string
	size        int
	supersample int
	axisLength  float32
	outputDir   string

	view, proj [16]float32

	newPool func(maxWorkers, queueSize int, idleTimeout time.Duration) worker.DynamicWorkerPool
}

// Run renders the bind pose and every animation frame of shape with the raster backend, one worker pool task
// per pose, and writes bind.<ext> and frame_NNNN.<ext> into cfg.Snapshot.OutputDir. With cfg.Snapshot.Animated
// set, the animation frames are also written as one looping WebP. cfg must already be resolved.
//
// Parameters:
//   - cfg: the resolved configuration
//   - shape: the loaded shape, uploaded or not
//   - options: variadic list of SnapshotBuilderOption functions
//
// Returns:
//   - []Result: one result per pose, bind pose first
//   - error: an error if the run could not start or the animation could not be written
func Run(cfg config.Config, shape shape_skin.ShapeSkin, options ...SnapshotBuilderOption) ([]Result, error) {
	e := &exporter{
		logger:      log.Default(),
		clear:       common.Color{0, 0, 0, 0},
		interval:    2 * time.Second,
		shape:       shape,
		format:      cfg.Snapshot.Format,
		size:        cfg.Snapshot.Size,
		supersample: max(cfg.Snapshot.Supersample, 1),
		axisLength:  cfg.AxisLength,
		outputDir:   cfg.Snapshot.OutputDir,
		newPool:     worker.NewDynamicWorkerPool,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.format != config.FormatWebP && e.format != config.FormatTGA {
		return nil, fmt.Errorf("%w: snapshot format %q", config.ErrInvalid, e.format)
	}
	if e.size <= 0 {
		return nil, fmt.Errorf("%w: snapshot size %d", config.ErrInvalid, e.size)
	}
	if shape.Mesh().Empty() {
		return nil, ErrNoMesh
	}
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return nil, err
	}

	// Raster draws read the CPU copies on the provider, so any backend can do the upload.
	if !shape.Uploaded() {
		staging, err := renderer.NewRenderer(renderer.BackendTypeRaster, nil, renderer.WithSize(1, 1), renderer.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		err = shape.UploadToGPU(staging)
		staging.Release()
		if err != nil {
			return nil, err
		}
	}

	cam := camera.NewCamera(camera.WithAspect(1))
	cam.Frame(camera.Bounds(shape.Mesh().Positions()))
	e.view, e.proj = cam.ViewMatrix(), cam.ProjectionMatrix()

	jobs := e.jobs()
	results := make([]Result, len(jobs))
	frames := make([]*image.NRGBA, len(jobs))

	workers := max(cfg.Snapshot.Workers, 1)
	e.logger.Printf("[Snapshot] rendering %d poses of %s at %dpx (x%d) with %d workers",
		len(jobs), shape.Name(), e.size, e.supersample, workers)

	var processed atomic.Int64
	start := time.Now()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p := processed.Load(); p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					e.logger.Printf("[Snapshot] [%d/%d] %.1f frames/sec", p, len(jobs), rate)
				}
			}
		}
	}()

	pool := e.newPool(workers, 256, 1*time.Second)
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		idx, jCap := i, j
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				defer processed.Add(1)

				img, res := e.process(jCap)
				results[idx] = res
				frames[idx] = img
				return nil, nil
			},
		})
	}
	wg.Wait()
	pool.Stop()
	close(done)

	if cfg.Snapshot.Animated {
		if err := e.writeAnimation(jobs, frames, shape.Skeleton().PlaybackSpeed()); err != nil {
			return results, err
		}
	}
	return results, nil
}

// jobs lists the bind pose followed by every parsed animation frame.
func (e *exporter) jobs() []job {
	sk := e.shape.Skeleton()
	if sk == nil || !sk.Loaded() {
		return []job{{name: "bind", frame: BindFrame}}
	}
	frames := sk.Frames()
	jobs := make([]job, 0, len(frames)+1)
	jobs = append(jobs, job{name: "bind", frame: BindFrame, pose: sk.BindPose()})
	for k, pose := range frames {
		jobs = append(jobs, job{name: fmt.Sprintf("frame_%04d", k), frame: k, pose: pose})
	}
	return jobs
}

// process renders and saves one pose. The image is returned for the animation.
func (e *exporter) process(j job) (*image.NRGBA, Result) {
	path := filepath.Join(e.outputDir, j.name+"."+e.format)
	res := Result{Name: j.name, Frame: j.frame, Path: path}

	img, err := e.render(j)
	if err != nil {
		res.Error = err.Error()
		return nil, res
	}
	if err := writeImage(path, e.format, img); err != nil {
		res.Error = err.Error()
		return img, res
	}
	res.Success = true
	return img, res
}

// render draws the mesh and the markers of j into a private raster renderer.
func (e *exporter) render(j job) (*image.NRGBA, error) {
	px := e.size * e.supersample
	r, err := renderer.NewRenderer(renderer.BackendTypeRaster, nil,
		renderer.WithSize(px, px),
		renderer.WithClearColor(e.clear),
		renderer.WithLogger(e.logger),
	)
	if err != nil {
		return nil, err
	}
	defer r.Release()

	p := r.Pipeline(e.shape.PipelineKey())
	if p == nil {
		return nil, fmt.Errorf("%w: %q", renderer.ErrPipelineNotFound, e.shape.PipelineKey())
	}
	stack := matstack.NewMatrixStack()

	if err := r.BeginFrame(); err != nil {
		return nil, err
	}
	r.SetViewProjection(e.view, e.proj)
	if err := e.shape.Draw(r, p.Shader(shader.ShaderTypeVertex), stack); err != nil {
		r.EndFrame()
		return nil, err
	}
	if j.pose != nil {
		e.shape.DrawPose(r, stack, j.pose, false, e.axisLength)
	}
	if err := r.EndFrame(); err != nil {
		return nil, err
	}

	img, err := r.Snapshot()
	if err != nil {
		return nil, err
	}
	if e.supersample > 1 {
		img = Downsample(img, e.size)
	}
	return img, nil
}

// writeAnimation encodes the animation frames, in order, as one looping WebP.
func (e *exporter) writeAnimation(jobs []job, frames []*image.NRGBA, speed float32) error {
	duration := uint(1000 / max(speed, 1e-3))
	anim := &nativewebp.Animation{LoopCount: 0}
	for i, j := range jobs {
		if j.frame == BindFrame || frames[i] == nil {
			continue
		}
		anim.Images = append(anim.Images, frames[i])
		anim.Durations = append(anim.Durations, duration)
		anim.Disposals = append(anim.Disposals, 0)
	}
	if len(anim.Images) == 0 {
		e.logger.Printf("[Snapshot] no animation frames rendered, skipping %s", AnimationFile)
		return nil
	}

	path := filepath.Join(e.outputDir, AnimationFile)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := nativewebp.EncodeAll(f, anim, nil); err != nil {
		return fmt.Errorf("WebP animation encode: %w", err)
	}
	e.logger.Printf("[Snapshot] wrote %s (%d frames, %dms each)", path, len(anim.Images), duration)
	return nil
}

// writeImage saves img to path in the given format.
func writeImage(path, format string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case config.FormatTGA:
		if err := tga.Encode(f, img); err != nil {
			return fmt.Errorf("TGA encode: %w", err)
		}
	default:
		if err := nativewebp.Encode(f, img, nil); err != nil {
			return fmt.Errorf("WebP encode: %w", err)
		}
	}
	return nil
}
