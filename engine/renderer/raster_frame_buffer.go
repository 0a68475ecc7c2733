package renderer

import (
	"image"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/chewxy/math32"
)

// frameBuffer holds a raster render target as flat slices for cache locality.
type frameBuffer struct {
	width  int
	height int
	color  []uint8   // RGBA interleaved, straight alpha, len = w*h*4
	depth  []float32 // depth per pixel in [0, 1], cleared to +inf
}

// newFrameBuffer allocates a zeroed color buffer and a cleared depth buffer.
func newFrameBuffer(w, h int) *frameBuffer {
	fb := &frameBuffer{
		width:  w,
		height: h,
		color:  make([]uint8, w*h*4),
		depth:  make([]float32, w*h),
	}
	fb.clear(common.Color{})
	return fb
}

// clear fills the color buffer with c and resets the depth buffer.
func (fb *frameBuffer) clear(c common.Color) {
	r, g, b, a := toByte(c[0]), toByte(c[1]), toByte(c[2]), toByte(c[3])
	for i := 0; i < len(fb.color); i += 4 {
		fb.color[i], fb.color[i+1], fb.color[i+2], fb.color[i+3] = r, g, b, a
	}
	inf := math32.Inf(1)
	for i := range fb.depth {
		fb.depth[i] = inf
	}
}

// plot writes one fragment. With test set the fragment must be nearer than the stored depth.
func (fb *frameBuffer) plot(x, y int, z float32, r, g, b, a uint8, test, write bool) {
	if x < 0 || y < 0 || x >= fb.width || y >= fb.height {
		return
	}
	i := y*fb.width + x
	if test && z >= fb.depth[i] {
		return
	}
	if write {
		fb.depth[i] = z
	}
	o := i * 4
	fb.color[o], fb.color[o+1], fb.color[o+2], fb.color[o+3] = r, g, b, a
}

// image copies the color buffer into a new image.
func (fb *frameBuffer) image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.width, fb.height))
	copy(img.Pix, fb.color)
	return img
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
