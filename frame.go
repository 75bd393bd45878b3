package embedview

import (
	"image"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Frame is one finished engine frame travelling from the engine to the
// draw cycle.
//
// Ownership moves with the frame: once sent, the producer must not write to
// the texture until Release is called. The draw side calls Release after the
// frame's blit has been submitted, or when a newer frame replaces it before
// it was drawn.
type Frame struct {
	// View is the sampled view of the rendered texture. It may be nil for
	// CPU-only frames, which can still be composited with RenderImage.
	View hal.TextureView

	// Width and Height are the texture dimensions in pixels.
	Width, Height uint32

	// Format is the texture format. It must be a filterable float format
	// compatible with the blit shader (RGBA8Unorm, BGRA8Unorm, ...).
	Format gputypes.TextureFormat

	// Image optionally mirrors the frame contents on the CPU.
	Image *image.RGBA

	// Seq is assigned by FrameSender.Send and increases by one per send.
	Seq uint64

	release func()
	once    sync.Once
}

// NewFrame wraps a texture view as a frame. release runs exactly once when
// the consumer is done with the texture; it may be nil.
func NewFrame(view hal.TextureView, width, height uint32, format gputypes.TextureFormat, release func()) *Frame {
	return &Frame{
		View:    view,
		Width:   width,
		Height:  height,
		Format:  format,
		release: release,
	}
}

// NewImageFrame creates a CPU-only frame from img.
func NewImageFrame(img *image.RGBA) *Frame {
	b := img.Bounds()
	return &Frame{
		Width:  uint32(b.Dx()), //nolint:gosec // image bounds are non-negative
		Height: uint32(b.Dy()), //nolint:gosec // image bounds are non-negative
		Format: gputypes.TextureFormatRGBA8Unorm,
		Image:  img,
	}
}

// Release hands the texture back to its producer. It is safe to call on a
// nil frame and more than once.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}

// Size returns the frame dimensions.
func (f *Frame) Size() (width, height uint32) {
	return f.Width, f.Height
}
