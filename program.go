package embedview

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/embedview/internal/blit"
)

// Encoder begins render passes on a host command encoder that is already
// recording. Use EncoderFromHAL for hal encoders.
type Encoder = blit.Encoder

// RenderPass is the subset of hal.RenderPassEncoder the widget records.
type RenderPass = blit.RenderPass

// EncoderFromHAL adapts a recording hal command encoder for Render.
func EncoderFromHAL(enc hal.CommandEncoder) Encoder {
	return blit.FromHAL(enc)
}

// State is the lifecycle state of a Program.
type State uint8

const (
	// StateUninitialized means no Draw or Update has happened yet.
	StateUninitialized State = iota

	// StateRunning means the engine is up and ticking.
	StateRunning

	// StateDisabled means the engine failed to construct or crashed. The
	// widget renders nothing from here on.
	StateDisabled

	// StateDisposed means Close was called.
	StateDisposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateDisabled:
		return "disabled"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Program embeds one engine into one rectangle of a host UI.
//
// The host drives it once per frame:
//
//	prim := prog.Draw(bounds)
//	prog.Update(embedview.RedrawRequested{}, bounds, cursor, shell)
//	_ = prog.Prepare(provider, prim, targetW, targetH)
//	prog.Render(embedview.EncoderFromHAL(enc), prim, targetView, clip)
//
// Program is not safe for concurrent use; every method belongs to the
// host's draw cycle. With WithBackgroundTicks the engine itself runs on
// another goroutine, and only the frame and input channels are shared.
type Program struct {
	opts   options
	logger *slog.Logger

	instance *Instance
	runner   *Runner
	pipeline *blit.Pipeline

	// held are frames captured by Draw whose textures may still be
	// referenced by a submitted or recording encoder.
	held []*Frame

	prepared bool
	disposed bool
}

// New creates a program for the engine built by factory. The engine is
// constructed lazily by the first Draw or Update.
func New(factory EngineFactory, opts ...Option) (*Program, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = Logger()
	}
	return &Program{
		opts:     o,
		logger:   logger,
		instance: NewInstance(factory, o.metrics, logger),
	}, nil
}

// State returns the lifecycle state.
func (p *Program) State() State {
	switch {
	case p.disposed:
		return StateDisposed
	case p.instance.Running():
		return StateRunning
	case p.instance.Err() != nil:
		return StateDisabled
	default:
		return StateUninitialized
	}
}

// Err reports why the widget renders nothing: engine construction failure,
// an engine crash, or ErrInstanceClosed after Close. It is nil otherwise.
func (p *Program) Err() error {
	if p.disposed {
		return ErrInstanceClosed
	}
	return p.instance.Err()
}

// Stats returns the frame channel counters.
func (p *Program) Stats() FrameStats {
	return p.instance.Stats()
}

// ensure starts the engine on first use.
func (p *Program) ensure(bounds Rect) {
	if p.disposed || p.instance.Running() || p.instance.Err() != nil {
		if p.runner != nil {
			p.instance.Reap()
		}
		return
	}
	w, h := bounds.Size()
	ctx := EngineContext{
		Provider: p.opts.provider,
		Width:    w,
		Height:   h,
		Format:   p.opts.format,
	}
	if p.opts.provider != nil {
		ctx.Device, ctx.Queue, _ = halHandles(p.opts.provider)
	}
	if err := p.instance.EnsureInitialized(ctx); err != nil {
		return
	}
	if p.opts.background {
		p.runner = NewRunner(p.opts.tickEvery, p.instance.BackgroundTicker())
		p.runner.Start()
	}
}

// Draw starts a host frame. It reads at most one new frame from the engine
// and wraps it in a primitive; without a new frame the primitive is empty
// and renders nothing.
func (p *Program) Draw(bounds Rect) *Primitive {
	prim := &Primitive{bounds: bounds}
	if p.disposed {
		return prim
	}
	p.ensure(bounds)
	if frame, ok := p.instance.ReceiveFrame(); ok {
		p.held = append(p.held, frame)
		prim.frame = frame
	}
	return prim
}

// Update handles one host event. Events are captured while the engine is
// running and ignored otherwise.
//
// A redraw request ticks the engine once and asks the shell for another
// redraw, so the engine advances in lockstep with host frames. With
// background ticking the engine is not ticked here; the redraw loop only
// keeps frames flowing to the screen. Pointer and touch coordinates are
// made relative to bounds before they are forwarded.
func (p *Program) Update(ev Event, bounds Rect, _ Cursor, shell Shell) (Status, Message) {
	if p.disposed || ev == nil {
		return StatusIgnored, nil
	}
	p.ensure(bounds)
	if !p.instance.Running() {
		return StatusIgnored, nil
	}

	switch e := ev.(type) {
	case RedrawRequested:
		if p.runner == nil {
			p.instance.Tick()
		}
		if p.instance.Running() && shell != nil {
			shell.RequestRedraw()
		}
	case PointerEvent:
		e.X -= bounds.X
		e.Y -= bounds.Y
		p.instance.Forward(e)
	case TouchEvent:
		e.X -= bounds.X
		e.Y -= bounds.Y
		p.instance.Forward(e)
	default:
		p.instance.Forward(ev)
	}
	return StatusCaptured, nil
}

// MouseInteraction returns the cursor shape for the current cursor.
func (p *Program) MouseInteraction(bounds Rect, cursor Cursor) Interaction {
	if cursor.In(bounds) {
		return CursorCrosshair
	}
	return CursorIdle
}

// Prepare builds the blit pipeline on first use and binds prim's frame.
// provider must expose hal handles (HalDevice and HalQueue); its surface
// format is the render target format. targetWidth and targetHeight are the
// host render target size.
//
// Frames drawn in earlier host frames are released here, since the host
// has submitted the encoder that sampled them.
func (p *Program) Prepare(provider gpucontext.DeviceProvider, prim *Primitive, targetWidth, targetHeight uint32) error {
	device, queue, ok := halHandles(provider)
	if !ok {
		p.prepared = true
		p.retain(prim.Frame())
		return ErrNoHalDevice
	}
	format := provider.SurfaceFormat()
	if format == gputypes.TextureFormatUndefined {
		format = p.opts.format
	}
	return p.PrepareHAL(device, queue, format, prim, targetWidth, targetHeight)
}

// PrepareHAL is Prepare for hosts that hold hal handles directly.
func (p *Program) PrepareHAL(device hal.Device, queue hal.Queue, format gputypes.TextureFormat, prim *Primitive, targetWidth, targetHeight uint32) error {
	if p.disposed {
		return ErrInstanceClosed
	}
	p.prepared = true
	p.retain(prim.Frame())

	if p.pipeline != nil && p.pipeline.Format() != format {
		p.logger.Debug("embedview: target format changed, rebuilding pipeline",
			"old", p.pipeline.Format(), "new", format)
		p.pipeline.Destroy()
		p.pipeline = nil
	}
	if p.pipeline == nil {
		pl, err := blit.New(device, queue, blit.Config{
			Format: format,
			Width:  targetWidth,
			Height: targetHeight,
			Shader: p.opts.shader,
			Logger: p.logger,
		})
		if err != nil {
			p.logger.Warn("embedview: blit pipeline unavailable", "err", err)
			return err
		}
		p.pipeline = pl
	}
	p.pipeline.Resize(targetWidth, targetHeight)

	frame := prim.Frame()
	if frame == nil || frame.View == nil {
		return nil
	}
	rebuilt, err := p.pipeline.Bind(frame.View)
	if err != nil {
		return err
	}
	if rebuilt {
		p.opts.metrics.bindGroupRebuilt()
	}
	return nil
}

// Render records the blit of prim into target, confined to clip. It
// reports whether a draw call was recorded; empty primitives record
// nothing.
//
// Render panics with ErrPipelineMissing if Prepare was never called.
func (p *Program) Render(enc Encoder, prim *Primitive, target hal.TextureView, clip image.Rectangle) bool {
	if p.disposed {
		return false
	}
	if !p.prepared {
		panic(ErrPipelineMissing)
	}
	frame := prim.Frame()
	if frame == nil || frame.View == nil || p.pipeline == nil {
		return false
	}
	if !p.pipeline.Bound(frame.View) {
		p.logger.Debug("embedview: primitive was not prepared, skipping", "seq", frame.Seq)
		return false
	}
	if !p.pipeline.Record(enc, target, prim.Bounds().Pixels(), clip) {
		return false
	}
	p.opts.metrics.blitRecorded()
	return true
}

// RenderImage composites prim's CPU image into dst, confined to clip, with
// the same blending as the GPU path. It is the render path for hosts
// without a GPU and for headless snapshots. Earlier frames are released as
// in Prepare.
func (p *Program) RenderImage(dst *image.RGBA, prim *Primitive, clip image.Rectangle) bool {
	if p.disposed {
		return false
	}
	frame := prim.Frame()
	p.retain(frame)
	if frame == nil || frame.Image == nil {
		return false
	}
	if !blit.Composite(dst, frame.Image, prim.Bounds().Pixels(), clip, blit.BlendState()) {
		return false
	}
	p.opts.metrics.blitRecorded()
	return true
}

// retain releases every held frame except keep.
func (p *Program) retain(keep *Frame) {
	kept := p.held[:0]
	for _, f := range p.held {
		if f == keep {
			kept = append(kept, f)
			continue
		}
		f.Release()
	}
	clear(p.held[len(kept):])
	p.held = kept
}

// Close stops the engine, closes both channels and releases every GPU
// object the program owns. It is idempotent.
func (p *Program) Close() error {
	if p.disposed {
		return nil
	}
	p.disposed = true
	if p.runner != nil {
		p.runner.Stop()
		p.runner = nil
	}
	p.retain(nil)
	if p.pipeline != nil {
		p.pipeline.Destroy()
		p.pipeline = nil
	}
	p.instance.Reap()
	err := p.instance.Close()
	p.logger.Info("embedview: program closed")
	return err
}
