package embedview

import (
	"image"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	return 0
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.framePublished()
	m.frameDropped()
	m.frameReceived()
	m.inputDropped()
	m.engineTick()
	m.blitRecorded()
	m.bindGroupRebuilt()
}

func TestMetricsCountHandoff(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, prometheus.Labels{"widget": "test"})
	if err != nil {
		t.Fatalf("NewMetrics() = %v", err)
	}

	e := &fakeEngine{publish: true}
	p, _ := New(newFakeFactory(e), WithMetrics(m))

	// Two ticks before a draw: one frame dropped, one received.
	p.Update(RedrawRequested{}, testBounds, Cursor{}, nil)
	p.Update(RedrawRequested{}, testBounds, Cursor{}, nil)
	prim := p.Draw(testBounds)
	dst := image.NewRGBA(image.Rect(0, 0, 128, 128))
	p.RenderImage(dst, prim, dst.Bounds())
	_ = p.Close()

	// Forwarding after close is dropped.
	p.instance.Forward(PointerEvent{})

	tests := []struct {
		name string
		want float64
	}{
		{"embedview_engine_ticks_total", 2},
		{"embedview_frames_published_total", 2},
		{"embedview_frames_dropped_total", 1},
		{"embedview_frames_received_total", 1},
		{"embedview_blits_total", 1},
		{"embedview_inputs_dropped_total", 1},
	}
	for _, tt := range tests {
		if got := counterValue(t, reg, tt.name); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMetricsShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewMetrics(reg, nil)
	if err != nil {
		t.Fatalf("first NewMetrics() = %v", err)
	}
	b, err := NewMetrics(reg, nil)
	if err != nil {
		t.Fatalf("second NewMetrics() = %v", err)
	}
	a.blitRecorded()
	b.blitRecorded()
	if got := counterValue(t, reg, "embedview_blits_total"); got != 2 {
		t.Errorf("shared counter = %v, want 2", got)
	}
}
