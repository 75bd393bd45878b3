package embedview

import (
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Engine is the embedded simulation/rendering subsystem.
//
// An Engine is owned by exactly one widget and is never ticked
// concurrently. After each of its own render passes it publishes the
// finished texture through EngineContext.Frames.
type Engine interface {
	// Tick advances the engine by one step.
	Tick()

	// Close releases the engine's resources. The widget closes both
	// channel endpoints handed to the engine after Close returns.
	Close() error
}

// EngineContext is everything a widget hands to its engine at
// construction time.
type EngineContext struct {
	// Frames publishes finished frames to the widget.
	Frames *FrameSender

	// Input delivers UI events forwarded by the widget.
	Input *InputReceiver

	// Provider is the host's GPU device provider, nil when the widget was
	// created without one (CPU-only engines).
	Provider gpucontext.DeviceProvider

	// Device and Queue are the hal handles behind Provider, when it
	// exposes them.
	Device hal.Device
	Queue  hal.Queue

	// Width and Height are the widget size in physical pixels at the time
	// of construction.
	Width, Height uint32

	// Format is the texture format the blit pipeline expects to sample.
	Format gputypes.TextureFormat

	// Logger is the widget's logger.
	Logger *slog.Logger
}

// EngineFactory constructs an engine. An error leaves the widget blank for
// the rest of its life.
type EngineFactory func(EngineContext) (Engine, error)

// halProvider is implemented by device providers that expose their hal
// handles (gogpu does).
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// halHandles extracts hal.Device and hal.Queue from provider.
func halHandles(provider any) (hal.Device, hal.Queue, bool) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, false
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, false
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, false
	}
	return device, queue, true
}
