package embedview

import (
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/embedview/internal/blit"
)

// Option configures a Program during creation.
//
// Example:
//
//	// Cooperative ticking, package logger
//	p, err := embedview.New(factory)
//
//	// Engine ticked at 120 Hz on its own goroutine, with metrics
//	m, _ := embedview.NewMetrics(prometheus.DefaultRegisterer, nil)
//	p, err := embedview.New(factory,
//		embedview.WithBackgroundTicks(time.Second/120),
//		embedview.WithMetrics(m))
type Option func(*options)

type options struct {
	logger     *slog.Logger
	metrics    *Metrics
	tickEvery  time.Duration
	background bool
	provider   gpucontext.DeviceProvider
	format     gputypes.TextureFormat
	shader     blit.ShaderKind
}

func defaultOptions() options {
	return options{
		format: gputypes.TextureFormatBGRA8Unorm,
		shader: blit.ShaderWGSL,
	}
}

// WithLogger sets the logger for this program. The package logger is used
// when unset.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records handoff and blit counters into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithBackgroundTicks ticks the engine on a dedicated goroutine every
// interval instead of once per host redraw. A non-positive interval means
// 60 Hz.
func WithBackgroundTicks(interval time.Duration) Option {
	return func(o *options) {
		o.background = true
		o.tickEvery = interval
	}
}

// WithDeviceProvider hands the host's device provider to the engine
// factory, so GPU engines can render into textures on the same device the
// host draws with.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
		if p != nil {
			if f := p.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
				o.format = f
			}
		}
	}
}

// WithFormat sets the host render target format used when the program
// builds its blit pipeline through PrepareHAL. Prepare uses the provider's
// surface format instead.
func WithFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithSPIRV makes the blit pipeline compile its shader to SPIR-V with naga
// before handing it to the backend.
func WithSPIRV() Option {
	return func(o *options) {
		o.shader = blit.ShaderSPIRV
	}
}
