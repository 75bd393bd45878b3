package embedview

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "embedview"

// Metrics counts handoff and blit activity for one or more widgets.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	framesPublished prometheus.Counter
	framesDropped   prometheus.Counter
	framesReceived  prometheus.Counter
	inputsDropped   prometheus.Counter
	engineTicks     prometheus.Counter
	blits           prometheus.Counter
	bindGroups      prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg. Counters
// that are already registered under the same name and labels are reused,
// so several programs can share one registry as long as they pass the same
// constLabels.
func NewMetrics(reg prometheus.Registerer, constLabels prometheus.Labels) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{}
	counters := []struct {
		dst  *prometheus.Counter
		name string
		help string
	}{
		{&m.framesPublished, "frames_published_total", "Frames accepted by the handoff channel."},
		{&m.framesDropped, "frames_dropped_total", "Frames replaced or discarded before being drawn."},
		{&m.framesReceived, "frames_received_total", "Frames taken by the draw cycle."},
		{&m.inputsDropped, "inputs_dropped_total", "Input events dropped because the engine was gone."},
		{&m.engineTicks, "engine_ticks_total", "Engine ticks driven by the widget."},
		{&m.blits, "blits_total", "Blit draw calls recorded."},
		{&m.bindGroups, "bind_group_rebuilds_total", "Blit bind groups rebuilt for a new frame texture."},
	}
	for _, c := range counters {
		counter, err := registerCounter(reg, prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        c.name,
			Help:        c.help,
			ConstLabels: constLabels,
		})
		if err != nil {
			return nil, fmt.Errorf("embedview: register %s: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

func registerCounter(reg prometheus.Registerer, opts prometheus.CounterOpts) (prometheus.Counter, error) {
	c := prometheus.NewCounter(opts)
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) framePublished() {
	if m != nil {
		m.framesPublished.Inc()
	}
}

func (m *Metrics) frameDropped() {
	if m != nil {
		m.framesDropped.Inc()
	}
}

func (m *Metrics) frameReceived() {
	if m != nil {
		m.framesReceived.Inc()
	}
}

func (m *Metrics) inputDropped() {
	if m != nil {
		m.inputsDropped.Inc()
	}
}

func (m *Metrics) engineTick() {
	if m != nil {
		m.engineTicks.Inc()
	}
}

func (m *Metrics) blitRecorded() {
	if m != nil {
		m.blits.Inc()
	}
}

func (m *Metrics) bindGroupRebuilt() {
	if m != nil {
		m.bindGroups.Inc()
	}
}
