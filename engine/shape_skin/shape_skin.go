// Package shape_skin ties a surface mesh to its weight table and skeleton, uploads the mesh to the renderer and
// draws the bone frame markers in bind pose or animated pose.
package shape_skin

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/engine/frenet"
	"github.com/Carmen-Shannon/oxy-skin/engine/matstack"
	"github.com/Carmen-Shannon/oxy-skin/engine/mesh"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-skin/engine/skin"
)

var (
	// ErrNotUploaded is returned by Draw before a successful UploadToGPU.
	ErrNotUploaded = errors.New("shape not uploaded")
	// ErrEmptyMesh is returned by UploadToGPU when the mesh has no indices.
	ErrEmptyMesh = errors.New("shape mesh is empty")
	// ErrMissingAttribute is returned by Draw when the shader program lacks a position or normal attribute.
	ErrMissingAttribute = errors.New("shader attribute not found")
)

// MarkerTarget receives bone frame markers and holds the line width used for them.
// renderer.Renderer satisfies it.
type MarkerTarget interface {
	frenet.LineSink

	// SetLineWidth sets the width used for segments that do not carry one.
	SetLineWidth(width float32)
}

// shapeSkin is the implementation of the ShapeSkin interface.
type shapeSkin struct {
	mu     sync.Mutex
	name   string
	logger *log.Logger

	mesh       mesh.Mesh
	attachment skin.Attachment
	skeleton   skeleton.Skeleton

	frames       frenet.FrameRenderer
	pipelineKey  string
	meshProvider bind_group_provider.BindGroupProvider
	uploaded     bool

	// warnedFrames records the out-of-range frame indices already reported.
	warnedFrames map[int]bool
}

// ShapeSkin is a skinned shape: the Mesh Store, its Weight Table and the Skeleton/Animation Store, plus the device
// buffers of the mesh. The weight table is carried as loaded data; no draw path applies it to the vertices.
type ShapeSkin interface {
	// Name returns the shape name, which defaults to "shape".
	//
	// Returns:
	//   - string: the shape name
	Name() string

	// Mesh returns the Mesh Store.
	//
	// Returns:
	//   - mesh.Mesh: the mesh
	Mesh() mesh.Mesh

	// Attachment returns the Weight Table.
	//
	// Returns:
	//   - skin.Attachment: the weight table
	Attachment() skin.Attachment

	// Skeleton returns the Skeleton/Animation Store.
	//
	// Returns:
	//   - skeleton.Skeleton: the skeleton
	Skeleton() skeleton.Skeleton

	// MeshProvider returns the BindGroupProvider holding the uploaded mesh buffers.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh provider
	MeshProvider() bind_group_provider.BindGroupProvider

	// Uploaded reports whether UploadToGPU has succeeded.
	//
	// Returns:
	//   - bool: true once the mesh buffers exist
	Uploaded() bool

	// UploadToGPU transfers the position, normal and index arrays to device buffers once. Texcoords are not
	// uploaded. Later calls are no-ops.
	//
	// Parameters:
	//   - r: the renderer owning the device
	//
	// Returns:
	//   - error: ErrEmptyMesh, or the renderer error
	UploadToGPU(r renderer.Renderer) error

	// Draw binds the position and normal streams to the attributes named renderer.PositionStream and
	// renderer.NormalStream in prog and issues one indexed triangle-list draw under the top of stack.
	//
	// Parameters:
	//   - r: the renderer, inside a frame
	//   - prog: the vertex shader of the shape's pipeline, used for attribute lookup
	//   - stack: the model transform stack
	//
	// Returns:
	//   - error: ErrNotUploaded, ErrMissingAttribute, or the renderer error
	Draw(r renderer.Renderer, prog shader.Shader, stack matstack.MatrixStack) error

	// DrawBindPoseFrames draws one marker per bone of the bind pose. Nothing is drawn before the skeleton loads.
	//
	// Parameters:
	//   - target: where the markers are drawn
	//   - stack: the model transform stack
	//   - debug: whether each transform is dumped to the log
	//   - axisLength: the marker axis length
	DrawBindPoseFrames(target MarkerTarget, stack matstack.MatrixStack, debug bool, axisLength float32)

	// DrawAnimationFrames draws one marker per bone of the frame selected for elapsed time t. When the selected
	// frame does not exist nothing is drawn and the index is logged the first time it is hit.
	//
	// Parameters:
	//   - target: where the markers are drawn
	//   - stack: the model transform stack
	//   - t: the elapsed time in seconds
	//   - debug: whether each transform is dumped to the log
	//   - axisLength: the marker axis length
	//
	// Returns:
	//   - int: the selected frame index
	//   - error: the skeleton.AnimatedPose error, if any
	DrawAnimationFrames(target MarkerTarget, stack matstack.MatrixStack, t float32, debug bool, axisLength float32) (int, error)

	// DrawPose draws one marker per bone of pose, up to the configured bone count, with thick lines and
	// restores the default line width afterwards.
	//
	// Parameters:
	//   - target: where the markers are drawn
	//   - stack: the model transform stack
	//   - pose: one transform per bone, e.g. an entry of Skeleton().Frames()
	//   - debug: whether each transform is dumped to the log
	//   - axisLength: the marker axis length
	DrawPose(target MarkerTarget, stack matstack.MatrixStack, pose [][16]float32, debug bool, axisLength float32)

	// PipelineKey returns the key of the pipeline the shape is drawn with.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// Release frees the mesh buffers. The shape must be uploaded again before drawing.
	Release()
}

var _ ShapeSkin = &shapeSkin{}

// NewShapeSkin creates a ShapeSkin over the given stores.
//
// Parameters:
//   - m: the Mesh Store
//   - a: the Weight Table
//   - s: the Skeleton/Animation Store
//   - options: a variadic list of ShapeSkinBuilderOption functions
//
// Returns:
//   - ShapeSkin: the new shape
func NewShapeSkin(m mesh.Mesh, a skin.Attachment, s skeleton.Skeleton, options ...ShapeSkinBuilderOption) ShapeSkin {
	sh := &shapeSkin{
		name:         "shape",
		logger:       log.Default(),
		mesh:         m,
		attachment:   a,
		skeleton:     s,
		pipelineKey:  renderer.MeshPipelineKey,
		warnedFrames: make(map[int]bool),
	}
	for _, opt := range options {
		opt(sh)
	}
	if sh.frames == nil {
		sh.frames = frenet.NewFrameRenderer(frenet.WithLogger(sh.logger))
	}
	sh.meshProvider = bind_group_provider.NewBindGroupProvider(sh.name)
	return sh
}

func (s *shapeSkin) Name() string {
	return s.name
}

func (s *shapeSkin) Mesh() mesh.Mesh {
	return s.mesh
}

func (s *shapeSkin) Attachment() skin.Attachment {
	return s.attachment
}

func (s *shapeSkin) Skeleton() skeleton.Skeleton {
	return s.skeleton
}

func (s *shapeSkin) MeshProvider() bind_group_provider.BindGroupProvider {
	return s.meshProvider
}

func (s *shapeSkin) PipelineKey() string {
	return s.pipelineKey
}

func (s *shapeSkin) Uploaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploaded
}

func (s *shapeSkin) UploadToGPU(r renderer.Renderer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uploaded {
		return nil
	}
	if s.mesh.Empty() {
		return fmt.Errorf("%w: %s", ErrEmptyMesh, s.name)
	}

	streams := map[string][]float32{
		renderer.PositionStream: s.mesh.Positions(),
		renderer.NormalStream:   s.mesh.Normals(),
	}
	if err := r.InitMeshBuffers(s.meshProvider, streams, s.mesh.Indices()); err != nil {
		return fmt.Errorf("failed to upload %s: %w", s.name, err)
	}
	s.uploaded = true
	s.logger.Printf("[ShapeSkin] uploaded %s: %d vertices, %d indices", s.name, s.mesh.VertexCount(), len(s.mesh.Indices()))
	return nil
}

func (s *shapeSkin) Draw(r renderer.Renderer, prog shader.Shader, stack matstack.MatrixStack) error {
	s.mu.Lock()
	uploaded := s.uploaded
	s.mu.Unlock()
	if !uploaded {
		return fmt.Errorf("%w: %s", ErrNotUploaded, s.name)
	}

	streams := make([]renderer.VertexStream, 0, 2)
	for _, name := range []string{renderer.PositionStream, renderer.NormalStream} {
		loc := prog.Attribute(name)
		if loc < 0 {
			return fmt.Errorf("%w: %s in %s", ErrMissingAttribute, name, prog.Key())
		}
		streams = append(streams, renderer.VertexStream{Name: name, Location: loc})
	}

	return r.DrawCall(s.pipelineKey, s.meshProvider, stack.Top(), streams)
}

func (s *shapeSkin) DrawBindPoseFrames(target MarkerTarget, stack matstack.MatrixStack, debug bool, axisLength float32) {
	pose := s.skeleton.BindPose()
	if pose == nil {
		return
	}
	s.DrawPose(target, stack, pose, debug, axisLength)
}

func (s *shapeSkin) DrawAnimationFrames(target MarkerTarget, stack matstack.MatrixStack, t float32, debug bool, axisLength float32) (int, error) {
	pose, idx, err := s.skeleton.AnimatedPose(t)
	if err != nil {
		if errors.Is(err, skeleton.ErrFrameOutOfRange) {
			s.mu.Lock()
			if !s.warnedFrames[idx] {
				s.warnedFrames[idx] = true
				s.logger.Printf("[ShapeSkin] %s: %v", s.name, err)
			}
			s.mu.Unlock()
		}
		return idx, err
	}
	s.DrawPose(target, stack, pose, debug, axisLength)
	return idx, nil
}

func (s *shapeSkin) DrawPose(target MarkerTarget, stack matstack.MatrixStack, pose [][16]float32, debug bool, axisLength float32) {
	target.SetLineWidth(frenet.DefaultLineWidth)
	defer target.SetLineWidth(1)

	bones := min(s.skeleton.BoneCount(), len(pose))
	for b := 0; b < bones; b++ {
		s.frames.DrawFrame(stack, target, pose[b], debug, axisLength)
	}
}

func (s *shapeSkin) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshProvider.Release()
	s.uploaded = false
}
