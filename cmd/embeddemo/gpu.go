package main

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/embedview"
)

// noopProvider hands the noop device to the widget the way a windowed host
// hands over its own device.
type noopProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (p *noopProvider) Device() gpucontext.Device             { return nil }
func (p *noopProvider) Queue() gpucontext.Queue               { return nil }
func (p *noopProvider) Adapter() gpucontext.Adapter           { return nil }
func (p *noopProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }
func (p *noopProvider) HalDevice() any                        { return p.device }
func (p *noopProvider) HalQueue() any                         { return p.queue }

func (p *noopProvider) AdapterInfo() gpucontext.AdapterInfo {
	var info gpucontext.AdapterInfo
	return info
}

// gpuHost owns a noop device and an offscreen render target standing in
// for the window surface.
type gpuHost struct {
	provider *noopProvider
	width    uint32
	height   uint32
	target   hal.Texture
	view     hal.TextureView
	destroy  func()
}

func newGPUHost(width, height uint32) (*gpuHost, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	device, queue := openDev.Device, openDev.Queue

	target, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "embeddemo_surface",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		device.Destroy()
		instance.Destroy()
		return nil, fmt.Errorf("create surface texture: %w", err)
	}
	view, err := device.CreateTextureView(target, &hal.TextureViewDescriptor{Label: "embeddemo_surface_view"})
	if err != nil {
		device.DestroyTexture(target)
		device.Destroy()
		instance.Destroy()
		return nil, fmt.Errorf("create surface view: %w", err)
	}

	return &gpuHost{
		provider: &noopProvider{device: device, queue: queue},
		width:    width,
		height:   height,
		target:   target,
		view:     view,
		destroy: func() {
			device.DestroyTextureView(view)
			device.DestroyTexture(target)
			device.Destroy()
			instance.Destroy()
		},
	}, nil
}

// frame records and submits one host frame containing the widget's blit.
func (g *gpuHost) frame(prog *embedview.Program, prim *embedview.Primitive, clip image.Rectangle) error {
	device, queue := g.provider.device, g.provider.queue

	if err := prog.Prepare(g.provider, prim, g.width, g.height); err != nil {
		return fmt.Errorf("prepare: %w", err)
	}

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "embeddemo_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("embeddemo_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	prog.Render(embedview.EncoderFromHAL(encoder), prim, g.view, clip)
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmdBuf)

	// The noop queue has finished the work by the time Submit returns, so
	// the command buffer can be freed right after.
	if _, err := queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// Close releases the device. The program must be closed first.
func (g *gpuHost) Close() {
	g.destroy()
}
