package embedview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
)

// ErrInputClosed is returned by InputReceiver.Recv once the sender has hung
// up and every queued event has been consumed.
var ErrInputClosed = errors.New("embedview: input channel closed")

// EventKind classifies an Event.
type EventKind uint8

const (
	// EventPointer covers mouse movement, buttons and wheel.
	EventPointer EventKind = iota
	// EventKeyboard covers key presses, releases and text input.
	EventKeyboard
	// EventTouch covers finger contacts.
	EventTouch
	// EventRedraw is the host asking for a new frame.
	EventRedraw
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventPointer:
		return "pointer"
	case EventKeyboard:
		return "keyboard"
	case EventTouch:
		return "touch"
	case EventRedraw:
		return "redraw"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a UI input event. The set of implementations is closed:
// PointerEvent, KeyEvent, TouchEvent and RedrawRequested.
type Event interface {
	Kind() EventKind
	event()
}

// PointerAction is what happened to the pointer.
type PointerAction uint8

const (
	PointerMoved PointerAction = iota
	PointerPressed
	PointerReleased
	PointerScrolled
	PointerEntered
	PointerLeft
)

// Button identifies a mouse button.
type Button uint8

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

// PointerEvent is a mouse event. X and Y are relative to the widget's
// top-left corner.
type PointerEvent struct {
	Action         PointerAction
	X, Y           float32
	Button         Button
	DeltaX, DeltaY float32 // wheel deltas for PointerScrolled
}

// Kind implements Event.
func (PointerEvent) Kind() EventKind { return EventPointer }
func (PointerEvent) event()          {}

// KeyEvent is a keyboard event.
type KeyEvent struct {
	Key     gpucontext.Key
	Mods    gpucontext.Modifiers
	Pressed bool
	Text    string // committed text, if any
}

// Kind implements Event.
func (KeyEvent) Kind() EventKind { return EventKeyboard }
func (KeyEvent) event()          {}

// TouchPhase is the lifecycle phase of a finger contact.
type TouchPhase uint8

const (
	TouchStarted TouchPhase = iota
	TouchMoved
	TouchEnded
	TouchCancelled
)

// TouchEvent is a touch event. X and Y are relative to the widget.
type TouchEvent struct {
	Phase TouchPhase
	ID    uint64
	X, Y  float32
}

// Kind implements Event.
func (TouchEvent) Kind() EventKind { return EventTouch }
func (TouchEvent) event()          {}

// RedrawRequested is delivered by the host once per frame it is about to
// draw.
type RedrawRequested struct {
	At time.Time
}

// Kind implements Event.
func (RedrawRequested) Kind() EventKind { return EventRedraw }
func (RedrawRequested) event()          {}

// inputQueue is an unbounded FIFO. ready carries at most one wakeup for a
// blocked Recv.
type inputQueue struct {
	mu     sync.Mutex
	events []Event

	ready        chan struct{}
	senderDone   chan struct{}
	receiverDone chan struct{}
	senderOnce   sync.Once
	receiverOnce sync.Once

	dropped atomic.Uint64
	metrics *Metrics
}

// InputSender is the widget side of the input channel.
type InputSender struct {
	q *inputQueue
}

// InputReceiver is the engine side of the input channel.
type InputReceiver struct {
	q *inputQueue
}

// NewInputChannel creates a connected input sender/receiver pair.
func NewInputChannel() (*InputSender, *InputReceiver) {
	return newInputChannel(nil)
}

func newInputChannel(m *Metrics) (*InputSender, *InputReceiver) {
	q := &inputQueue{
		ready:        make(chan struct{}, 1),
		senderDone:   make(chan struct{}),
		receiverDone: make(chan struct{}),
		metrics:      m,
	}
	return &InputSender{q: q}, &InputReceiver{q: q}
}

func (q *inputQueue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Send queues ev for the engine. It never blocks. Delivery is best effort:
// when either side is closed the event is dropped and Send reports false.
func (s *InputSender) Send(ev Event) bool {
	q := s.q
	if ev == nil || isDone(q.senderDone) || isDone(q.receiverDone) {
		q.dropped.Add(1)
		q.metrics.inputDropped()
		return false
	}
	q.mu.Lock()
	// Receiver Close clears the queue under mu; an event appended after
	// that would never be read.
	if isDone(q.receiverDone) {
		q.mu.Unlock()
		q.dropped.Add(1)
		q.metrics.inputDropped()
		return false
	}
	q.events = append(q.events, ev)
	q.mu.Unlock()
	q.wake()
	return true
}

// Close disconnects the sender and wakes a blocked Recv. Events already
// queued stay readable. Close is idempotent.
func (s *InputSender) Close() {
	q := s.q
	q.senderOnce.Do(func() {
		close(q.senderDone)
		q.wake()
	})
}

// Dropped returns the number of events discarded because the channel was
// closed.
func (s *InputSender) Dropped() uint64 {
	return s.q.dropped.Load()
}

// TryRecv pops the oldest queued event without blocking.
func (r *InputReceiver) TryRecv() (Event, bool) {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil, false
	}
	ev := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	return ev, true
}

// Drain returns every queued event in arrival order and empties the queue.
// Engines ticking cooperatively call it once per tick.
func (r *InputReceiver) Drain() []Event {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	return out
}

// Recv blocks until an event arrives, the sender closes, or ctx is done.
// It is intended for engines that run their own goroutine.
func (r *InputReceiver) Recv(ctx context.Context) (Event, error) {
	q := r.q
	for {
		if ev, ok := r.TryRecv(); ok {
			return ev, nil
		}
		if isDone(q.senderDone) {
			return nil, ErrInputClosed
		}
		select {
		case <-q.ready:
		case <-q.senderDone:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of queued events.
func (r *InputReceiver) Len() int {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close disconnects the receiver and discards queued events.
func (r *InputReceiver) Close() {
	q := r.q
	q.receiverOnce.Do(func() {
		q.mu.Lock()
		close(q.receiverDone)
		q.events = nil
		q.mu.Unlock()
	})
}
