//go:build !nogpu

package blit

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func createView(t *testing.T, device hal.Device) (hal.Texture, hal.TextureView) {
	t.Helper()
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "test_frame",
		Size:          hal.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "test_frame_view"})
	if err != nil {
		t.Fatalf("CreateTextureView: %v", err)
	}
	return tex, &testView{TextureView: view}
}

// testView gives each view its own identity regardless of how the backend
// allocates view handles.
type testView struct {
	hal.TextureView
	_ int
}

type recordedCall struct {
	name string
	args []any
}

type fakePass struct {
	calls *[]recordedCall
}

func (p fakePass) record(name string, args ...any) {
	*p.calls = append(*p.calls, recordedCall{name: name, args: args})
}

func (p fakePass) SetPipeline(pipeline hal.RenderPipeline) { p.record("SetPipeline", pipeline) }
func (p fakePass) SetBindGroup(index uint32, group hal.BindGroup, _ []uint32) {
	p.record("SetBindGroup", index, group)
}
func (p fakePass) SetViewport(x, y, w, h, minDepth, maxDepth float32) {
	p.record("SetViewport", x, y, w, h, minDepth, maxDepth)
}
func (p fakePass) SetScissorRect(x, y, w, h uint32) { p.record("SetScissorRect", x, y, w, h) }
func (p fakePass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.record("Draw", vertexCount, instanceCount, firstVertex, firstInstance)
}
func (p fakePass) End() { p.record("End") }

type fakeEncoder struct {
	descs []*hal.RenderPassDescriptor
	calls []recordedCall
}

func (e *fakeEncoder) BeginPass(desc *hal.RenderPassDescriptor) RenderPass {
	e.descs = append(e.descs, desc)
	return fakePass{calls: &e.calls}
}

func (e *fakeEncoder) find(name string) []recordedCall {
	var out []recordedCall
	for _, c := range e.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func newTestPipeline(t *testing.T, device hal.Device, queue hal.Queue) *Pipeline {
	t.Helper()
	p, err := New(device, queue, Config{
		Format: gputypes.TextureFormatBGRA8Unorm,
		Width:  200,
		Height: 100,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestNew(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	p := newTestPipeline(t, device, queue)
	defer p.Destroy()

	if p.Format() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format = %v", p.Format())
	}
	if w, h := p.Size(); w != 200 || h != 100 {
		t.Errorf("Size = %dx%d, want 200x100", w, h)
	}
	if p.BoundView() == nil {
		t.Error("placeholder view should be bound after New")
	}
}

func TestNewErrors(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	tests := []struct {
		name   string
		device hal.Device
		queue  hal.Queue
		cfg    Config
		want   error
	}{
		{"nil device", nil, queue, Config{Width: 1, Height: 1}, ErrNilDevice},
		{"nil queue", device, nil, Config{Width: 1, Height: 1}, ErrNilDevice},
		{"zero width", device, queue, Config{Width: 0, Height: 1}, ErrInvalidSize},
		{"zero height", device, queue, Config{Width: 1, Height: 0}, ErrInvalidSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.device, tt.queue, tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if p != nil {
				t.Error("pipeline should be nil on error")
			}
		})
	}
}

func TestBindRebuildsOnlyOnViewChange(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	p := newTestPipeline(t, device, queue)
	defer p.Destroy()

	_, viewA := createView(t, device)
	_, viewB := createView(t, device)

	steps := []struct {
		view hal.TextureView
		want bool
	}{
		{viewA, true},
		{viewA, false},
		{viewB, true},
		{viewB, false},
		{viewA, true},
	}
	for i, s := range steps {
		rebuilt, err := p.Bind(s.view)
		if err != nil {
			t.Fatalf("step %d: Bind: %v", i, err)
		}
		if rebuilt != s.want {
			t.Errorf("step %d: rebuilt = %v, want %v", i, rebuilt, s.want)
		}
		if p.BoundView() != s.view {
			t.Errorf("step %d: bound view not updated", i)
		}
	}
}

func TestBindNilRestoresPlaceholder(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	p := newTestPipeline(t, device, queue)
	defer p.Destroy()

	placeholder := p.BoundView()
	_, view := createView(t, device)
	if _, err := p.Bind(view); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	rebuilt, err := p.Bind(nil)
	if err != nil {
		t.Fatalf("Bind(nil): %v", err)
	}
	if rebuilt {
		t.Error("binding the placeholder should not create a bind group")
	}
	if p.BoundView() != placeholder {
		t.Error("Bind(nil) should bind the placeholder view")
	}
	if len(p.retired) != 1 {
		t.Errorf("retired = %d, want 1", len(p.retired))
	}
	if _, err := p.Bind(nil); err != nil {
		t.Fatalf("Bind(nil): %v", err)
	}
	if len(p.retired) != 0 {
		t.Errorf("retired bind groups should be destroyed on next Bind, got %d", len(p.retired))
	}
}

func TestBindWithBackendViews(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	p := newTestPipeline(t, device, queue)
	defer p.Destroy()

	// Views straight from the backend, whose handles may compare equal to
	// the placeholder's.
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "backend_frame",
		Size:          hal.Extent3D{Width: 2, Height: 2, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "backend_frame_view"})
	if err != nil {
		t.Fatalf("CreateTextureView: %v", err)
	}

	rebuilt, err := p.Bind(view)
	if err != nil || !rebuilt {
		t.Fatalf("Bind(frame) = (%v, %v), want a rebuilt bind group", rebuilt, err)
	}
	if p.placeholderBound || !p.Bound(view) {
		t.Fatal("frame view should be bound")
	}
	if rebuilt, _ := p.Bind(view); rebuilt {
		t.Error("binding the same view again should not rebuild")
	}

	if _, err := p.Bind(nil); err != nil {
		t.Fatalf("Bind(nil): %v", err)
	}
	if !p.placeholderBound || p.Bound(view) {
		t.Error("Bind(nil) should bind the placeholder")
	}
	if len(p.retired) != 1 {
		t.Fatalf("retired = %d, want the frame bind group", len(p.retired))
	}
	if _, err := p.Bind(nil); err != nil {
		t.Fatalf("Bind(nil): %v", err)
	}
	if len(p.retired) != 0 {
		t.Errorf("retired = %d after next Bind, want 0", len(p.retired))
	}
}

func TestRecordDrawsOnce(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	p := newTestPipeline(t, device, queue)
	defer p.Destroy()

	_, target := createView(t, device)
	enc := &fakeEncoder{}
	viewport := image.Rect(10, 20, 110, 70)
	if !p.Record(enc, target, viewport, viewport) {
		t.Fatal("Record should issue a draw")
	}

	if len(enc.descs) != 1 {
		t.Fatalf("passes = %d, want 1", len(enc.descs))
	}
	att := enc.descs[0].ColorAttachments[0]
	if att.LoadOp != gputypes.LoadOpLoad {
		t.Errorf("LoadOp = %v, want LoadOpLoad", att.LoadOp)
	}
	if att.StoreOp != gputypes.StoreOpStore {
		t.Errorf("StoreOp = %v, want StoreOpStore", att.StoreOp)
	}
	if att.View != target {
		t.Error("pass should target the host view")
	}

	draws := enc.find("Draw")
	if len(draws) != 1 {
		t.Fatalf("Draw calls = %d, want 1", len(draws))
	}
	if got := draws[0].args[0].(uint32); got != VertexCount {
		t.Errorf("vertex count = %d, want %d", got, VertexCount)
	}

	vp := enc.find("SetViewport")[0].args
	if vp[0].(float32) != 10 || vp[1].(float32) != 20 || vp[2].(float32) != 100 || vp[3].(float32) != 50 {
		t.Errorf("viewport = %v", vp)
	}
	if len(enc.find("End")) != 1 {
		t.Error("pass should be ended")
	}
}

func TestRecordScissor(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	p := newTestPipeline(t, device, queue)
	defer p.Destroy()
	_, target := createView(t, device)

	tests := []struct {
		name     string
		viewport image.Rectangle
		clip     image.Rectangle
		want     [4]uint32
		drawn    bool
	}{
		{"clip inside", image.Rect(0, 0, 200, 100), image.Rect(10, 10, 50, 40), [4]uint32{10, 10, 40, 30}, true},
		{"clip past target", image.Rect(0, 0, 200, 100), image.Rect(150, 50, 400, 300), [4]uint32{150, 50, 50, 50}, true},
		{"negative origin", image.Rect(-20, -20, 50, 50), image.Rect(-20, -20, 50, 50), [4]uint32{0, 0, 50, 50}, true},
		{"clip outside target", image.Rect(0, 0, 200, 100), image.Rect(300, 300, 400, 400), [4]uint32{}, false},
		{"clip misses viewport", image.Rect(0, 0, 50, 50), image.Rect(60, 60, 90, 90), [4]uint32{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := &fakeEncoder{}
			drawn := p.Record(enc, target, tt.viewport, tt.clip)
			if drawn != tt.drawn {
				t.Fatalf("drawn = %v, want %v", drawn, tt.drawn)
			}
			if !drawn {
				if len(enc.descs) != 0 {
					t.Error("no pass should begin when nothing is drawn")
				}
				return
			}
			sc := enc.find("SetScissorRect")[0].args
			got := [4]uint32{sc[0].(uint32), sc[1].(uint32), sc[2].(uint32), sc[3].(uint32)}
			if got != tt.want {
				t.Errorf("scissor = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResize(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	p := newTestPipeline(t, device, queue)
	defer p.Destroy()

	p.Resize(0, 50)
	if w, h := p.Size(); w != 200 || h != 100 {
		t.Errorf("zero resize changed size to %dx%d", w, h)
	}
	p.Resize(640, 480)
	if w, h := p.Size(); w != 640 || h != 480 {
		t.Errorf("Size = %dx%d, want 640x480", w, h)
	}
}

func TestDestroyIdempotent(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	p := newTestPipeline(t, device, queue)
	p.Destroy()
	p.Destroy()

	if _, err := p.Bind(nil); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Bind after Destroy: err = %v, want ErrDestroyed", err)
	}
	if p.Record(&fakeEncoder{}, nil, image.Rect(0, 0, 1, 1), image.Rect(0, 0, 1, 1)) {
		t.Error("Record after Destroy should not draw")
	}
}

func TestNewSPIRV(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	p, err := New(device, queue, Config{
		Format: gputypes.TextureFormatRGBA8Unorm,
		Width:  8,
		Height: 8,
		Shader: ShaderSPIRV,
	})
	if err != nil {
		t.Fatalf("New with SPIR-V shader: %v", err)
	}
	p.Destroy()
}
