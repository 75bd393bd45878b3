// Package blit draws an externally supplied frame texture into a host
// render target.
//
// The pipeline uses the full-screen triangle technique: three vertices
// generated in the vertex shader, no vertex buffer, and a fragment shader
// sampling the frame with a linear clamp-to-edge sampler. The render pass
// loads the existing target contents instead of clearing them, so the frame
// composites onto whatever the host already drew.
package blit

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Pipeline errors.
var (
	// ErrNilDevice is returned by New when device or queue is nil.
	ErrNilDevice = errors.New("blit: nil device or queue")

	// ErrInvalidSize is returned for a zero viewport size.
	ErrInvalidSize = errors.New("blit: invalid viewport size")

	// ErrShaderCompile wraps shader compilation failures.
	ErrShaderCompile = errors.New("blit: shader compilation failed")

	// ErrDestroyed is returned when using a destroyed pipeline.
	ErrDestroyed = errors.New("blit: pipeline destroyed")
)

// VertexCount is the number of vertices of the full-screen triangle.
const VertexCount = 3

// Config describes the target the pipeline draws into.
type Config struct {
	// Format is the color format of the target attachment.
	Format gputypes.TextureFormat

	// Width and Height are the target size in pixels.
	Width, Height uint32

	// Shader selects WGSL or naga-compiled SPIR-V.
	Shader ShaderKind

	// Logger receives debug output; nil discards it.
	Logger *slog.Logger
}

// Pipeline owns the GPU objects of the blit: shader, bind group layout,
// sampler, render pipeline and the bind group of the texture currently
// being drawn.
//
// At construction the bind group points at a 1x1 transparent placeholder.
// Bind swaps in the live frame's view, rebuilding the bind group only when
// the view changes. A replaced bind group may still be referenced by the
// host's unsubmitted encoder, so it is retired and destroyed on the next
// Bind or on Destroy.
//
// Pipeline is not safe for concurrent use; it belongs to the draw cycle.
type Pipeline struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
	width  uint32
	height uint32
	logger *slog.Logger

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler
	pipeline   hal.RenderPipeline

	placeholderTex   hal.Texture
	placeholderView  hal.TextureView
	placeholderGroup hal.BindGroup

	bindGroup hal.BindGroup
	boundView hal.TextureView
	retired   []hal.BindGroup

	// placeholderBound is tracked explicitly; backends may hand out equal
	// handles for distinct objects.
	placeholderBound bool

	destroyed bool
}

// New compiles the blit shader and creates every GPU object the pipeline
// needs. On error, everything created so far is destroyed.
func New(device hal.Device, queue hal.Queue, cfg Config) (*Pipeline, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, cfg.Width, cfg.Height)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Pipeline{
		device: device,
		queue:  queue,
		format: cfg.Format,
		width:  cfg.Width,
		height: cfg.Height,
		logger: logger,
	}
	if err := p.create(cfg.Shader); err != nil {
		p.Destroy()
		return nil, err
	}
	logger.Debug("blit: pipeline created",
		"format", cfg.Format, "width", cfg.Width, "height", cfg.Height, "shader", cfg.Shader)
	return p, nil
}

func (p *Pipeline) create(kind ShaderKind) error { //nolint:funlen // GPU pipeline descriptors are inherently verbose
	shader, err := createShaderModule(p.device, kind)
	if err != nil {
		return err
	}
	p.shader = shader

	// Binding 0: frame texture, binding 1: sampler. Fragment stage only.
	bindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "embedview_blit_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create blit bind group layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "embedview_blit_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create blit pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "embedview_blit_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create blit sampler: %w", err)
	}
	p.sampler = sampler

	blend := BlendState()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "embedview_blit_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.format,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create blit pipeline: %w", err)
	}
	p.pipeline = pipeline

	return p.createPlaceholder()
}

// createPlaceholder creates the 1x1 transparent texture the initial bind
// group points at.
func (p *Pipeline) createPlaceholder() error {
	size := hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1}
	tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "embedview_blit_placeholder",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create placeholder texture: %w", err)
	}
	p.placeholderTex = tex

	p.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0, Origin: hal.Origin3D{}},
		[]byte{0, 0, 0, 0},
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: 4, RowsPerImage: 1},
		&size,
	)

	view, err := p.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "embedview_blit_placeholder_view",
	})
	if err != nil {
		return fmt.Errorf("create placeholder view: %w", err)
	}
	p.placeholderView = view

	group, err := p.createBindGroup(view, "embedview_blit_placeholder_bind")
	if err != nil {
		return err
	}
	p.placeholderGroup = group
	p.bindGroup = group
	p.boundView = view
	p.placeholderBound = true
	return nil
}

func (p *Pipeline) createBindGroup(view hal.TextureView, label string) (hal.BindGroup, error) {
	group, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create blit bind group: %w", err)
	}
	return group, nil
}

// Format returns the target color format.
func (p *Pipeline) Format() gputypes.TextureFormat {
	return p.format
}

// Size returns the target size used to clip scissor rectangles.
func (p *Pipeline) Size() (width, height uint32) {
	return p.width, p.height
}

// Resize updates the target size. Zero sizes are ignored.
func (p *Pipeline) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	p.width = width
	p.height = height
}

// Bound reports whether view, not the placeholder, is what the current
// bind group samples.
func (p *Pipeline) Bound(view hal.TextureView) bool {
	return !p.placeholderBound && view != nil && p.boundView == view
}

// BoundView returns the view the current bind group samples.
func (p *Pipeline) BoundView() hal.TextureView {
	return p.boundView
}

// Bind points the bind group at view, rebuilding it only when view differs
// from the bound one. A nil view binds the placeholder. It reports whether
// a new bind group was created.
//
// Bind is called from the prepare phase; bind groups retired by the
// previous Bind are destroyed first, since the host has submitted the
// encoder that referenced them.
func (p *Pipeline) Bind(view hal.TextureView) (bool, error) {
	if p.destroyed {
		return false, ErrDestroyed
	}
	p.destroyRetired()

	if view == nil {
		if p.placeholderBound {
			return false, nil
		}
		p.retire()
		p.bindGroup = p.placeholderGroup
		p.boundView = p.placeholderView
		p.placeholderBound = true
		p.logger.Debug("blit: placeholder bound")
		return false, nil
	}
	if !p.placeholderBound && view == p.boundView {
		return false, nil
	}

	group, err := p.createBindGroup(view, "embedview_blit_frame_bind")
	if err != nil {
		return false, err
	}
	p.retire()
	p.bindGroup = group
	p.boundView = view
	p.placeholderBound = false
	p.logger.Debug("blit: bind group rebuilt")
	return true, nil
}

// retire queues the current frame bind group for destruction. The
// placeholder group lives as long as the pipeline.
func (p *Pipeline) retire() {
	if !p.placeholderBound && p.bindGroup != nil {
		p.retired = append(p.retired, p.bindGroup)
	}
}

func (p *Pipeline) destroyRetired() {
	for _, g := range p.retired {
		p.device.DestroyBindGroup(g)
	}
	p.retired = p.retired[:0]
}

// Record draws the bound frame into target. viewport is the widget bounds
// in target pixels; the frame is stretched to fill it. Only pixels inside
// clip are touched. Record reports whether a draw call was issued; nothing
// is recorded when clip misses the target.
func (p *Pipeline) Record(enc Encoder, target hal.TextureView, viewport, clip image.Rectangle) bool {
	if p.destroyed {
		return false
	}
	sx, sy, sw, sh, ok := ScissorRect(clip.Intersect(viewport), p.width, p.height)
	if !ok {
		return false
	}
	vp := viewport.Intersect(image.Rect(0, 0, int(p.width), int(p.height)))

	rp := enc.BeginPass(&hal.RenderPassDescriptor{
		Label: "embedview_blit_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    target,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.bindGroup, nil)
	rp.SetViewport(float32(vp.Min.X), float32(vp.Min.Y), float32(vp.Dx()), float32(vp.Dy()), 0, 1)
	rp.SetScissorRect(sx, sy, sw, sh)
	rp.Draw(VertexCount, 1, 0, 0)
	rp.End()
	return true
}

// Destroy releases all GPU objects in reverse creation order. Safe to call
// more than once.
func (p *Pipeline) Destroy() {
	if p.device == nil || p.destroyed {
		return
	}
	p.destroyed = true
	p.destroyRetired()
	if !p.placeholderBound && p.bindGroup != nil {
		p.device.DestroyBindGroup(p.bindGroup)
	}
	p.bindGroup = nil
	p.placeholderBound = false
	p.boundView = nil
	if p.placeholderGroup != nil {
		p.device.DestroyBindGroup(p.placeholderGroup)
		p.placeholderGroup = nil
	}
	if p.placeholderView != nil {
		p.device.DestroyTextureView(p.placeholderView)
		p.placeholderView = nil
	}
	if p.placeholderTex != nil {
		p.device.DestroyTexture(p.placeholderTex)
		p.placeholderTex = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
