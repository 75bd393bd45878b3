package embedview

import (
	"sync"
	"sync/atomic"
	"testing"
)

func countedFrame(n *atomic.Int32) *Frame {
	return NewFrame(nil, 4, 4, 0, func() { n.Add(1) })
}

func TestFrameChannelEmpty(t *testing.T) {
	_, rx := NewFrameChannel()
	for i := range 3 {
		if f, ok := rx.TryReceive(); ok || f != nil {
			t.Fatalf("receive %d on empty channel = (%v, %v)", i, f, ok)
		}
	}
}

func TestFrameChannelDeliversOnce(t *testing.T) {
	tx, rx := NewFrameChannel()
	var released atomic.Int32
	sent := countedFrame(&released)
	tx.Send(sent)

	got, ok := rx.TryReceive()
	if !ok || got != sent {
		t.Fatalf("TryReceive() = (%v, %v), want the sent frame", got, ok)
	}
	if _, ok := rx.TryReceive(); ok {
		t.Error("second receive should be empty")
	}
	if released.Load() != 0 {
		t.Error("a received frame must not be released by the channel")
	}
	if got.Seq != 1 {
		t.Errorf("Seq = %d, want 1", got.Seq)
	}
}

func TestFrameChannelLatestWins(t *testing.T) {
	tx, rx := NewFrameChannel()
	var staleReleased, latestReleased atomic.Int32
	stale := countedFrame(&staleReleased)
	latest := countedFrame(&latestReleased)

	tx.Send(stale)
	tx.Send(latest)

	got, ok := rx.TryReceive()
	if !ok || got != latest {
		t.Fatalf("TryReceive() = (%v, %v), want the latest frame", got, ok)
	}
	if staleReleased.Load() != 1 {
		t.Errorf("stale frame released %d times, want 1", staleReleased.Load())
	}
	if latestReleased.Load() != 0 {
		t.Error("latest frame must stay owned by the receiver")
	}
	if _, ok := rx.TryReceive(); ok {
		t.Error("no backlog expected after latest-wins")
	}

	stats := rx.Stats()
	want := FrameStats{Published: 2, Dropped: 1, Received: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

func TestFrameChannelSenderClosed(t *testing.T) {
	tx, rx := NewFrameChannel()
	var released atomic.Int32
	tx.Send(countedFrame(&released))
	tx.Close()
	tx.Close()

	if !rx.Disconnected() {
		t.Error("Disconnected() = false after sender Close")
	}
	if _, ok := rx.TryReceive(); ok {
		t.Error("receive after sender close should behave as empty")
	}
	if released.Load() != 1 {
		t.Errorf("pending frame released %d times, want 1", released.Load())
	}

	tx.Send(countedFrame(&released))
	if released.Load() != 2 {
		t.Error("send after close should release the frame")
	}
}

func TestFrameChannelReceiverClosed(t *testing.T) {
	tx, rx := NewFrameChannel()
	rx.Close()
	rx.Close()

	if !tx.Closed() {
		t.Error("Closed() = false after receiver Close")
	}
	var released atomic.Int32
	tx.Send(countedFrame(&released))
	if released.Load() != 1 {
		t.Errorf("frame sent to closed receiver released %d times, want 1", released.Load())
	}
	if _, ok := rx.TryReceive(); ok {
		t.Error("closed receiver should not return frames")
	}
}

func TestFrameChannelNilSend(t *testing.T) {
	tx, rx := NewFrameChannel()
	tx.Send(nil)
	if _, ok := rx.TryReceive(); ok {
		t.Error("nil frame should not be delivered")
	}
}

func TestFrameReleaseOnce(t *testing.T) {
	var n atomic.Int32
	f := countedFrame(&n)
	f.Release()
	f.Release()
	if n.Load() != 1 {
		t.Errorf("release ran %d times, want 1", n.Load())
	}

	var nilFrame *Frame
	nilFrame.Release()
}

// Every frame ends up either received or released, never both and never
// neither, under a concurrent producer.
func TestFrameChannelConcurrentAccounting(t *testing.T) {
	tx, rx := NewFrameChannel()
	const total = 2000

	var released atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range total {
			tx.Send(countedFrame(&released))
		}
		tx.Close()
	}()

	var received int32
	var lastSeq uint64
	for {
		f, ok := rx.TryReceive()
		if ok {
			if f.Seq <= lastSeq {
				t.Fatalf("Seq went backwards: %d after %d", f.Seq, lastSeq)
			}
			lastSeq = f.Seq
			received++
			continue
		}
		if rx.Disconnected() {
			break
		}
	}
	wg.Wait()

	if got := received + released.Load(); got != total {
		t.Errorf("received %d + released %d = %d, want %d", received, released.Load(), got, total)
	}
}
