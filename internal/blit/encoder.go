package blit

import (
	"image"

	"github.com/gogpu/wgpu/hal"
)

// RenderPass is the part of hal.RenderPassEncoder the blit records into.
type RenderPass interface {
	SetPipeline(pipeline hal.RenderPipeline)
	SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32)
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetScissorRect(x, y, width, height uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	End()
}

// Encoder begins render passes on the host's command encoder.
type Encoder interface {
	BeginPass(desc *hal.RenderPassDescriptor) RenderPass
}

type halEncoder struct {
	enc hal.CommandEncoder
}

// FromHAL adapts a hal command encoder that is already recording.
func FromHAL(enc hal.CommandEncoder) Encoder {
	return halEncoder{enc: enc}
}

func (e halEncoder) BeginPass(desc *hal.RenderPassDescriptor) RenderPass {
	return e.enc.BeginRenderPass(desc)
}

// ScissorRect clips clip to a width×height target and returns it in the
// form SetScissorRect takes. ok is false when nothing would be drawn.
func ScissorRect(clip image.Rectangle, width, height uint32) (x, y, w, h uint32, ok bool) {
	r := clip.Intersect(image.Rect(0, 0, int(width), int(height)))
	if r.Empty() {
		return 0, 0, 0, 0, false
	}
	//nolint:gosec // r lies inside [0, width]×[0, height]
	return uint32(r.Min.X), uint32(r.Min.Y), uint32(r.Dx()), uint32(r.Dy()), true
}
