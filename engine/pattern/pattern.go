// Package pattern is a small embeddable engine: an animated orbit pattern
// drawn with gg, with a text overlay, that reacts to the pointer and to the
// space bar.
//
// It publishes one frame per tick. With hal handles in the engine context
// and Options.GPU set, frames are uploaded into a texture pool so the
// widget can blit them; otherwise they are CPU-only frames for
// Program.RenderImage.
package pattern

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gpucontext"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/embedview"
)

// Options configures the engine.
type Options struct {
	// Dots is the number of orbiting dots. Zero means 12.
	Dots int

	// Speed is the orbit speed in radians per tick. Zero means 0.05.
	Speed float64

	// GPU uploads frames into textures when the host device is available.
	GPU bool

	// PoolSize is the number of frame textures. Zero means 3.
	PoolSize int

	// HUD draws the frame counter overlay.
	HUD bool
}

func (o Options) withDefaults() Options {
	if o.Dots <= 0 {
		o.Dots = 12
	}
	if o.Speed == 0 {
		o.Speed = 0.05
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 3
	}
	return o
}

// ripple is an expanding ring left by a click.
type ripple struct {
	x, y float64
	age  int
}

const rippleLife = 30

// Engine implements embedview.Engine.
type Engine struct {
	opts   Options
	ctx    embedview.EngineContext
	logger *slog.Logger

	dc   *gg.Context
	pool *embedview.TexturePool

	phase   float64
	paused  bool
	pointer struct {
		x, y   float64
		inside bool
	}
	ripples []ripple
	ticks   uint64
	skipped uint64
}

// Factory returns an embedview.EngineFactory building pattern engines.
func Factory(opts Options) embedview.EngineFactory {
	return func(ctx embedview.EngineContext) (embedview.Engine, error) {
		return New(ctx, opts)
	}
}

// New creates an engine drawing at the context's size.
func New(ctx embedview.EngineContext, opts Options) (*Engine, error) {
	if ctx.Frames == nil || ctx.Input == nil {
		return nil, errors.New("pattern: engine context has no channels")
	}
	if ctx.Width == 0 || ctx.Height == 0 {
		return nil, fmt.Errorf("pattern: invalid size %dx%d", ctx.Width, ctx.Height)
	}
	opts = opts.withDefaults()
	logger := ctx.Logger
	if logger == nil {
		logger = embedview.Logger()
	}
	e := &Engine{
		opts:   opts,
		ctx:    ctx,
		logger: logger,
		dc:     gg.NewContext(int(ctx.Width), int(ctx.Height)),
	}
	if opts.GPU && ctx.Device != nil && ctx.Queue != nil {
		pool, err := embedview.NewTexturePool(ctx.Device, ctx.Queue, ctx.Width, ctx.Height, opts.PoolSize)
		if err != nil {
			_ = e.dc.Close()
			return nil, fmt.Errorf("pattern: %w", err)
		}
		e.pool = pool
	}
	logger.Debug("pattern: engine created",
		"width", ctx.Width, "height", ctx.Height, "gpu", e.pool != nil)
	return e, nil
}

// Paused reports whether the animation is frozen.
func (e *Engine) Paused() bool { return e.paused }

// Ticks returns the number of ticks so far.
func (e *Engine) Ticks() uint64 { return e.ticks }

// Skipped returns the number of ticks whose frame was not published
// because every pool texture was still held by the widget.
func (e *Engine) Skipped() uint64 { return e.skipped }

// Tick consumes queued input, advances the animation and publishes a frame.
func (e *Engine) Tick() {
	e.ticks++
	for _, ev := range e.ctx.Input.Drain() {
		e.handle(ev)
	}
	if !e.paused {
		e.phase += e.opts.Speed
	}
	e.age()

	if e.ctx.Frames.Closed() {
		return
	}
	if err := e.render(); err != nil {
		e.logger.Debug("pattern: render failed", "err", err)
		return
	}
	if e.pool != nil {
		if !e.pool.Publish(e.ctx.Frames, e.compose) {
			e.skipped++
		}
		return
	}
	img := image.NewRGBA(image.Rect(0, 0, int(e.ctx.Width), int(e.ctx.Height)))
	e.compose(img)
	e.ctx.Frames.Send(embedview.NewImageFrame(img))
}

func (e *Engine) handle(ev embedview.Event) {
	switch ev := ev.(type) {
	case embedview.PointerEvent:
		e.pointer.x, e.pointer.y = float64(ev.X), float64(ev.Y)
		switch ev.Action {
		case embedview.PointerLeft:
			e.pointer.inside = false
		case embedview.PointerPressed:
			e.pointer.inside = true
			e.ripples = append(e.ripples, ripple{x: e.pointer.x, y: e.pointer.y})
		default:
			e.pointer.inside = true
		}
	case embedview.TouchEvent:
		if ev.Phase == embedview.TouchStarted {
			e.ripples = append(e.ripples, ripple{x: float64(ev.X), y: float64(ev.Y)})
		}
	case embedview.KeyEvent:
		if ev.Pressed && ev.Key == gpucontext.KeySpace {
			e.paused = !e.paused
		}
	}
}

func (e *Engine) age() {
	kept := e.ripples[:0]
	for _, r := range e.ripples {
		r.age++
		if r.age < rippleLife {
			kept = append(kept, r)
		}
	}
	e.ripples = kept
}

func (e *Engine) render() error {
	dc := e.dc
	w, h := float64(e.ctx.Width), float64(e.ctx.Height)
	cx, cy := w/2, h/2
	radius := math.Min(w, h) * 0.35

	dc.ClearWithColor(gg.RGBA2(0.08, 0.09, 0.12, 1))

	for i := range e.opts.Dots {
		a := e.phase + 2*math.Pi*float64(i)/float64(e.opts.Dots)
		x := cx + radius*math.Cos(a)
		y := cy + radius*math.Sin(a*1.5)
		hue := float64(i) / float64(e.opts.Dots)
		dc.SetRGBA(0.5+0.5*math.Cos(2*math.Pi*hue), 0.5+0.5*math.Cos(2*math.Pi*(hue+1.0/3)), 0.5+0.5*math.Cos(2*math.Pi*(hue+2.0/3)), 0.9)
		dc.DrawCircle(x, y, math.Max(2, radius*0.08))
		if err := dc.Fill(); err != nil {
			return err
		}
	}

	dc.SetLineWidth(2)
	for _, r := range e.ripples {
		t := float64(r.age) / rippleLife
		dc.SetRGBA(1, 1, 1, 1-t)
		dc.DrawCircle(r.x, r.y, 4+t*radius*0.5)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}

	if e.pointer.inside {
		dc.SetRGBA(1, 1, 1, 0.6)
		dc.DrawLine(e.pointer.x-6, e.pointer.y, e.pointer.x+6, e.pointer.y)
		dc.DrawLine(e.pointer.x, e.pointer.y-6, e.pointer.x, e.pointer.y+6)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	return nil
}

// compose copies the rendered pixmap into dst and draws the overlay.
func (e *Engine) compose(dst *image.RGBA) {
	copy(dst.Pix, e.dc.ResizeTarget().Data())
	if !e.opts.HUD {
		return
	}
	label := fmt.Sprintf("tick %d", e.ticks)
	if e.paused {
		label += " (paused)"
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{R: 240, G: 240, B: 240, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 4+basicfont.Face7x13.Ascent),
	}
	d.DrawString(label)
}

// Close releases the drawing context and the texture pool. Frames still
// held by the widget return their textures when released.
func (e *Engine) Close() error {
	if e.pool != nil {
		e.pool.Close()
	}
	e.logger.Debug("pattern: engine closed", "ticks", e.ticks)
	return e.dc.Close()
}
