package embedview

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrPoolClosed is returned by TexturePool operations after Close.
var ErrPoolClosed = errors.New("embedview: texture pool closed")

// PooledTexture is one texture of a TexturePool together with a CPU
// staging image of the same size.
type PooledTexture struct {
	tex  hal.Texture
	view hal.TextureView
	img  *image.RGBA
}

// View returns the texture's sampled view.
func (t *PooledTexture) View() hal.TextureView {
	return t.view
}

// Texture returns the texture, for engines that render into it directly.
func (t *PooledTexture) Texture() hal.Texture {
	return t.tex
}

// Image returns the staging image. Its contents travel with the frame as
// Frame.Image.
func (t *PooledTexture) Image() *image.RGBA {
	return t.img
}

// TexturePool is a fixed set of RGBA8 textures an engine cycles through.
//
// A texture handed to the widget inside a Frame is out of the pool until
// the widget releases the frame, so the engine never writes a texture the
// draw cycle may still sample. Acquire never blocks: when every texture is
// out, the engine skips publishing that tick.
//
// Acquire and Upload are called from the engine; frame release happens on
// the draw cycle. Both may run on different goroutines.
type TexturePool struct {
	device hal.Device
	queue  hal.Queue
	width  uint32
	height uint32

	free chan *PooledTexture

	mu     sync.Mutex
	closed bool
}

// NewTexturePool creates size textures of width×height. Usage includes
// sampling, copy destination and render attachment.
func NewTexturePool(device hal.Device, queue hal.Queue, width, height uint32, size int) (*TexturePool, error) {
	if device == nil || queue == nil {
		return nil, ErrNoHalDevice
	}
	if width == 0 || height == 0 || size <= 0 {
		return nil, fmt.Errorf("embedview: invalid texture pool %dx%d size %d", width, height, size)
	}
	p := &TexturePool{
		device: device,
		queue:  queue,
		width:  width,
		height: height,
		free:   make(chan *PooledTexture, size),
	}
	for i := range size {
		t, err := p.create(i)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.free <- t
	}
	return p, nil
}

func (p *TexturePool) create(i int) (*PooledTexture, error) {
	tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         fmt.Sprintf("embedview_frame_%d", i),
		Size:          hal.Extent3D{Width: p.width, Height: p.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage: gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopyDst |
			gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("embedview: create frame texture: %w", err)
	}
	view, err := p.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: fmt.Sprintf("embedview_frame_view_%d", i),
	})
	if err != nil {
		p.device.DestroyTexture(tex)
		return nil, fmt.Errorf("embedview: create frame view: %w", err)
	}
	return &PooledTexture{
		tex:  tex,
		view: view,
		img:  image.NewRGBA(image.Rect(0, 0, int(p.width), int(p.height))),
	}, nil
}

// Size returns the texture size.
func (p *TexturePool) Size() (width, height uint32) {
	return p.width, p.height
}

// Available returns the number of textures ready to acquire.
func (p *TexturePool) Available() int {
	return len(p.free)
}

// Acquire takes a free texture without blocking.
func (p *TexturePool) Acquire() (*PooledTexture, bool) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, false
	}
	select {
	case t := <-p.free:
		return t, true
	default:
		return nil, false
	}
}

// Upload copies t's staging image into its texture.
func (p *TexturePool) Upload(t *PooledTexture) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0, Origin: hal.Origin3D{}},
		t.img.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: p.width * 4, RowsPerImage: p.height},
		&hal.Extent3D{Width: p.width, Height: p.height, DepthOrArrayLayers: 1},
	)
	return nil
}

// Frame wraps t as a frame whose release returns t to the pool.
func (p *TexturePool) Frame(t *PooledTexture) *Frame {
	f := NewFrame(t.view, p.width, p.height, gputypes.TextureFormatRGBA8Unorm, func() { p.put(t) })
	f.Image = t.img
	return f
}

// Publish acquires a texture, lets draw fill its staging image, uploads it
// and sends the frame. It reports false when no texture was free or the
// pool is closed; the tick's output is then skipped.
func (p *TexturePool) Publish(tx *FrameSender, draw func(img *image.RGBA)) bool {
	t, ok := p.Acquire()
	if !ok {
		return false
	}
	draw(t.img)
	if err := p.Upload(t); err != nil {
		p.put(t)
		return false
	}
	tx.Send(p.Frame(t))
	return true
}

func (p *TexturePool) put(t *PooledTexture) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.destroy(t)
		return
	}
	p.free <- t
}

func (p *TexturePool) destroy(t *PooledTexture) {
	p.device.DestroyTextureView(t.view)
	p.device.DestroyTexture(t.tex)
}

// Close destroys the free textures. Textures still held by frames are
// destroyed when those frames are released. Close is idempotent.
func (p *TexturePool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for {
		select {
		case t := <-p.free:
			p.destroy(t)
		default:
			return
		}
	}
}
