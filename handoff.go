package embedview

import (
	"sync"
	"sync/atomic"
)

// FrameStats reports traffic through a frame channel.
type FrameStats struct {
	Published uint64 // frames accepted by Send
	Dropped   uint64 // frames replaced before being received, or sent to a closed receiver
	Received  uint64 // frames returned by TryReceive
}

// frameChannel is a one-slot, latest-wins mailbox. The buffered channel of
// capacity one is the slot; the done channels record which side hung up.
type frameChannel struct {
	slot chan *Frame

	senderDone   chan struct{}
	receiverDone chan struct{}
	senderOnce   sync.Once
	receiverOnce sync.Once

	seq       atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64
	received  atomic.Uint64

	metrics *Metrics
}

// FrameSender is the engine side of a frame channel. It is meant for a
// single producer.
type FrameSender struct {
	ch *frameChannel
}

// FrameReceiver is the draw side of a frame channel. It is meant for a
// single consumer.
type FrameReceiver struct {
	ch *frameChannel
}

// NewFrameChannel creates a connected sender/receiver pair.
func NewFrameChannel() (*FrameSender, *FrameReceiver) {
	return newFrameChannel(nil)
}

func newFrameChannel(m *Metrics) (*FrameSender, *FrameReceiver) {
	ch := &frameChannel{
		slot:         make(chan *Frame, 1),
		senderDone:   make(chan struct{}),
		receiverDone: make(chan struct{}),
		metrics:      m,
	}
	return &FrameSender{ch: ch}, &FrameReceiver{ch: ch}
}

func isDone(done chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// drop releases a frame that will never be drawn.
func (c *frameChannel) drop(f *Frame) {
	c.dropped.Add(1)
	c.metrics.frameDropped()
	f.Release()
}

// drain empties the slot, releasing whatever was pending.
func (c *frameChannel) drain() {
	select {
	case f := <-c.slot:
		c.drop(f)
	default:
	}
}

// Send publishes f as the latest frame. It never blocks. A frame still
// waiting in the slot is replaced and released. If either side of the
// channel is closed, f is released immediately.
func (s *FrameSender) Send(f *Frame) {
	if f == nil {
		return
	}
	c := s.ch
	if isDone(c.senderDone) || isDone(c.receiverDone) {
		c.drop(f)
		return
	}
	f.Seq = c.seq.Add(1)

	// Single producer: once the slot is emptied only we can refill it,
	// so this loop runs at most twice.
	for {
		select {
		case c.slot <- f:
			c.published.Add(1)
			c.metrics.framePublished()
			// The receiver may have closed and drained between the check
			// above and the store.
			if isDone(c.receiverDone) {
				c.drain()
			}
			return
		default:
		}
		c.drain()
	}
}

// Close disconnects the sender. A frame still pending in the slot is
// released, so the receiver never observes a texture whose producer is
// gone. Close is idempotent.
func (s *FrameSender) Close() {
	c := s.ch
	c.senderOnce.Do(func() {
		close(c.senderDone)
		c.drain()
	})
}

// Closed reports whether the receiving side has hung up. Engines use it to
// stop rendering for a widget that no longer exists.
func (s *FrameSender) Closed() bool {
	return isDone(s.ch.receiverDone) || isDone(s.ch.senderDone)
}

// TryReceive returns the latest frame published since the previous
// receive. It never blocks; (nil, false) is the normal answer when the
// engine has not produced anything new or when the sender is gone.
func (r *FrameReceiver) TryReceive() (*Frame, bool) {
	c := r.ch
	if isDone(c.receiverDone) {
		return nil, false
	}
	select {
	case f := <-c.slot:
		c.received.Add(1)
		c.metrics.frameReceived()
		return f, true
	default:
		return nil, false
	}
}

// Close disconnects the receiver and releases any pending frame. Later
// sends are dropped. Close is idempotent.
func (r *FrameReceiver) Close() {
	c := r.ch
	c.receiverOnce.Do(func() {
		close(c.receiverDone)
		c.drain()
	})
}

// Disconnected reports whether the sender has hung up.
func (r *FrameReceiver) Disconnected() bool {
	return isDone(r.ch.senderDone)
}

// Stats returns a snapshot of the channel counters.
func (r *FrameReceiver) Stats() FrameStats {
	c := r.ch
	return FrameStats{
		Published: c.published.Load(),
		Dropped:   c.dropped.Load(),
		Received:  c.received.Load(),
	}
}
