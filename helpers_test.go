package embedview

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
)

var (
	errBoom    = errors.New("boom")
	testBounds = Rect{X: 10, Y: 20, Width: 64, Height: 48}
)

// fakeEngine records what the widget does to it. With publish set it sends
// one CPU frame per tick; newFrame overrides what is sent.
type fakeEngine struct {
	mu       sync.Mutex
	ctx      EngineContext
	ticks    int
	closed   int
	events   []Event
	publish  bool
	newFrame func() *Frame
	panicAt  int
	closeErr error

	released atomic.Int32
}

func (e *fakeEngine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ticks++
	e.events = append(e.events, e.ctx.Input.Drain()...)
	if e.panicAt > 0 && e.ticks >= e.panicAt {
		panic("engine exploded")
	}
	if e.newFrame != nil {
		e.ctx.Frames.Send(e.newFrame())
		return
	}
	if e.publish {
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		for i := range img.Pix {
			img.Pix[i] = 255
		}
		img.SetRGBA(0, 0, color.RGBA{R: uint8(e.ticks), A: 255})
		f := NewImageFrame(img)
		f.release = func() { e.released.Add(1) }
		e.ctx.Frames.Send(f)
	}
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed++
	return e.closeErr
}

func (e *fakeEngine) tickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

func (e *fakeEngine) closeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *fakeEngine) received() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.events...)
}

func newFakeFactory(e *fakeEngine) EngineFactory {
	return func(ctx EngineContext) (Engine, error) {
		e.mu.Lock()
		e.ctx = ctx
		e.mu.Unlock()
		return e, nil
	}
}

func failingFactory(err error) EngineFactory {
	return func(EngineContext) (Engine, error) {
		return nil, err
	}
}

// countingShell counts redraw requests.
type countingShell struct {
	redraws int
}

func (s *countingShell) RequestRedraw() { s.redraws++ }
