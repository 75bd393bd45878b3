package embedview

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// instanceState is the tagged state of an Instance. Exactly one of
// uninitialized, running or disabled.
type instanceState interface {
	instanceState()
}

type uninitialized struct{}

// running owns the engine and all four channel endpoints. The engine-side
// endpoints are kept so Close can hang them up on the engine's behalf.
type running struct {
	engine Engine

	input  *InputSender
	frames *FrameReceiver

	engineInput  *InputReceiver
	engineFrames *FrameSender
}

// disabled is terminal: the engine failed to construct, panicked, or the
// instance was closed.
type disabled struct {
	err error
}

func (uninitialized) instanceState() {}
func (*running) instanceState()      {}
func (disabled) instanceState()      {}

// Instance is the per-widget record owning the engine and both channel
// endpoints. It is created uninitialized; EnsureInitialized builds the
// engine exactly once.
//
// Instance is not safe for concurrent use. When a Runner ticks the engine
// in the background it goes through BackgroundTicker, which never touches
// the instance state; the Runner must be stopped before Reap or Close.
type Instance struct {
	factory EngineFactory
	state   instanceState
	metrics *Metrics
	logger  *slog.Logger

	// failure is set by a background tick that panicked.
	failure atomic.Pointer[error]
}

// NewInstance creates an uninitialized instance. metrics and logger may be
// nil.
func NewInstance(factory EngineFactory, metrics *Metrics, logger *slog.Logger) *Instance {
	if logger == nil {
		logger = Logger()
	}
	return &Instance{
		factory: factory,
		state:   uninitialized{},
		metrics: metrics,
		logger:  logger,
	}
}

// EnsureInitialized constructs the channels and the engine on first call.
// Later calls are no-ops that report the outcome of the first one. ctx's
// Frames, Input and Logger fields are filled in by the instance.
func (in *Instance) EnsureInitialized(ctx EngineContext) error {
	switch s := in.state.(type) {
	case *running:
		return nil
	case disabled:
		return s.err
	}
	if in.factory == nil {
		in.state = disabled{err: ErrNilFactory}
		return ErrNilFactory
	}

	inputTx, inputRx := newInputChannel(in.metrics)
	frameTx, frameRx := newFrameChannel(in.metrics)
	ctx.Frames = frameTx
	ctx.Input = inputRx
	ctx.Logger = in.logger

	engine, err := in.construct(ctx)
	if err != nil {
		inputTx.Close()
		inputRx.Close()
		frameTx.Close()
		frameRx.Close()
		err = fmt.Errorf("%w: %w", ErrEngineInit, err)
		in.state = disabled{err: err}
		in.logger.Warn("embedview: engine disabled", "err", err)
		return err
	}

	in.state = &running{
		engine:       engine,
		input:        inputTx,
		frames:       frameRx,
		engineInput:  inputRx,
		engineFrames: frameTx,
	}
	in.logger.Info("embedview: engine started", "width", ctx.Width, "height", ctx.Height)
	return nil
}

// construct calls the factory, turning a panic into an error.
func (in *Instance) construct(ctx EngineContext) (engine Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			engine, err = nil, fmt.Errorf("factory panicked: %v", r)
		}
	}()
	engine, err = in.factory(ctx)
	if err == nil && engine == nil {
		err = errors.New("factory returned nil engine")
	}
	return engine, err
}

// Running reports whether the engine is up.
func (in *Instance) Running() bool {
	_, ok := in.state.(*running)
	return ok
}

// Err returns why the instance is disabled, or nil.
func (in *Instance) Err() error {
	if s, ok := in.state.(disabled); ok {
		return s.err
	}
	return nil
}

// Tick advances the engine by one step. It is a no-op unless the engine is
// running. A panicking engine is closed and the instance disabled.
func (in *Instance) Tick() bool {
	r, ok := in.state.(*running)
	if !ok {
		return false
	}
	if err := safeTick(r.engine); err != nil {
		in.logger.Warn("embedview: engine tick failed", "err", err)
		_ = in.shutdown(r, disabled{err: err})
		return false
	}
	in.metrics.engineTick()
	return true
}

// BackgroundTicker returns a tick function bound to the running engine,
// for use by a Runner. The function reports false once the engine has
// failed; the failure is applied to the instance by the next Reap.
func (in *Instance) BackgroundTicker() func() bool {
	r, ok := in.state.(*running)
	if !ok {
		return func() bool { return false }
	}
	return func() bool {
		if err := safeTick(r.engine); err != nil {
			in.failure.Store(&err)
			return false
		}
		in.metrics.engineTick()
		return true
	}
}

// Reap disables the instance if a background tick failed. It reports
// whether that happened.
func (in *Instance) Reap() bool {
	p := in.failure.Swap(nil)
	if p == nil {
		return false
	}
	in.logger.Warn("embedview: engine tick failed", "err", *p)
	if r, ok := in.state.(*running); ok {
		_ = in.shutdown(r, disabled{err: *p})
	}
	return true
}

func safeTick(e Engine) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("embedview: engine panicked: %v", r)
		}
	}()
	e.Tick()
	return nil
}

// ReceiveFrame returns the latest unreceived frame, if any.
func (in *Instance) ReceiveFrame() (*Frame, bool) {
	r, ok := in.state.(*running)
	if !ok {
		return nil, false
	}
	return r.frames.TryReceive()
}

// Forward queues ev for the engine. Events are dropped unless the engine
// is running.
func (in *Instance) Forward(ev Event) bool {
	r, ok := in.state.(*running)
	if !ok {
		in.metrics.inputDropped()
		return false
	}
	return r.input.Send(ev)
}

// Stats returns the frame channel counters; zero when not running.
func (in *Instance) Stats() FrameStats {
	r, ok := in.state.(*running)
	if !ok {
		return FrameStats{}
	}
	return r.frames.Stats()
}

// Close tears down the engine and both channels. It is idempotent and
// returns the engine's Close error, if any.
func (in *Instance) Close() error {
	switch s := in.state.(type) {
	case *running:
		return in.shutdown(s, disabled{err: ErrInstanceClosed})
	case uninitialized:
		in.state = disabled{err: ErrInstanceClosed}
	}
	return nil
}

// shutdown hangs up the widget side first so nothing new is queued or
// drawn, then closes the engine and its endpoints.
func (in *Instance) shutdown(r *running, next disabled) error {
	in.state = next
	r.input.Close()
	r.frames.Close()
	err := r.engine.Close()
	r.engineInput.Close()
	r.engineFrames.Close()
	if err != nil {
		return fmt.Errorf("embedview: close engine: %w", err)
	}
	return nil
}
