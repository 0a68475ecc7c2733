// Package loader reads the mesh, attachment and skeleton files of a skinned shape and caches the result.
package loader

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/engine/mesh"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/shape_skin"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-skin/engine/skin"
)

// LoaderBackendType identifies the mesh file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeOBJ selects the Wavefront OBJ loader backend.
	BackendTypeOBJ LoaderBackendType = iota
)

// ErrUnsupportedFormat is returned when the mesh file extension has no backend.
var ErrUnsupportedFormat = errors.New("unsupported mesh format")

// AssetPaths names the three files of a skinned shape. Attachment and Skeleton may be empty, in which case the
// corresponding store stays empty.
type AssetPaths struct {
	Mesh       string
	Attachment string
	Skeleton   string
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	renderer renderer.Renderer
	logger   *log.Logger

	boneCount     int
	playbackSpeed float32

	shapeCache map[string]shape_skin.ShapeSkin

	backend loaderBackend
}

// Loader defines the public-facing interface for loading and caching skinned shapes.
type Loader interface {
	// Load reads the mesh, then the attachment against the mesh vertex count, then the skeleton, and caches the
	// shape by mesh path. If the shape is already cached the cached version is returned. When a Renderer is set
	// the mesh is uploaded before returning.
	// A vertex count mismatch between the attachment and the mesh panics.
	//
	// Parameters:
	//   - paths: the asset file paths
	//
	// Returns:
	//   - shape_skin.ShapeSkin: the loaded shape
	//   - error: ErrUnsupportedFormat, or the first load or upload error
	Load(paths AssetPaths) (shape_skin.ShapeSkin, error)

	// Get retrieves a cached shape by mesh path. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - shape_skin.ShapeSkin: the cached shape or nil
	Get(name string) shape_skin.ShapeSkin

	// Shapes returns a copy of the shape cache.
	//
	// Returns:
	//   - map[string]shape_skin.ShapeSkin: all cached shapes keyed by mesh path
	Shapes() map[string]shape_skin.ShapeSkin
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeOBJ)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		logger:        log.Default(),
		boneCount:     skeleton.DefaultBoneCount,
		playbackSpeed: skeleton.DefaultPlaybackSpeed,
		shapeCache:    make(map[string]shape_skin.ShapeSkin),
	}

	switch backendType {
	case BackendTypeOBJ:
		l.backend = newOBJLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(paths AssetPaths) (shape_skin.ShapeSkin, error) {
	l.mu.RLock()
	if cached, ok := l.shapeCache[paths.Mesh]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(paths.Mesh)
	if err != nil {
		return nil, err
	}

	m := mesh.NewMesh(mesh.WithParser(backend.NewParser()), mesh.WithLogger(l.logger))
	if err := m.Load(paths.Mesh); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", paths.Mesh, err)
	}

	a := skin.NewAttachment(skin.WithLogger(l.logger))
	if paths.Attachment != "" {
		if err := a.Load(paths.Attachment, m.VertexCount()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", paths.Attachment, err)
		}
	}

	s := skeleton.NewSkeleton(
		skeleton.WithBoneCount(l.boneCount),
		skeleton.WithPlaybackSpeed(l.playbackSpeed),
		skeleton.WithLogger(l.logger),
	)
	if paths.Skeleton != "" {
		if err := s.Load(paths.Skeleton); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", paths.Skeleton, err)
		}
	}

	name := strings.TrimSuffix(filepath.Base(paths.Mesh), filepath.Ext(paths.Mesh))
	shape := shape_skin.NewShapeSkin(m, a, s,
		shape_skin.WithName(name),
		shape_skin.WithLogger(l.logger),
	)

	if l.renderer != nil {
		if err := shape.UploadToGPU(l.renderer); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.shapeCache[paths.Mesh]; ok {
		shape.Release()
		return cached, nil
	}
	l.shapeCache[paths.Mesh] = shape
	l.logger.Printf("[Loader] loaded %s (%d vertices, %d bones, %d frames)",
		name, m.VertexCount(), s.BoneCount(), s.FrameCount())
	return shape, nil
}

func (l *loader) Get(name string) shape_skin.ShapeSkin {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.shapeCache[name]
}

func (l *loader) Shapes() map[string]shape_skin.ShapeSkin {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]shape_skin.ShapeSkin, len(l.shapeCache))
	for k, v := range l.shapeCache {
		result[k] = v
	}
	return result
}

// resolveBackend selects the loader backend based on the mesh file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if l.backend == nil || !slices.Contains(l.backend.Extensions(), ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return l.backend, nil
}
