package blit

import (
	"image"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// Composite is the CPU counterpart of Record. It stretches src over
// viewport with bilinear filtering and blends it into dst using state,
// touching only pixels inside clip ∩ viewport ∩ dst.Bounds().
//
// Pixel bytes are treated the way the GPU treats an RGBA8 texture: each
// channel is an unorm value and no premultiplication is implied. It reports
// whether any pixel was written.
func Composite(dst *image.RGBA, src image.Image, viewport, clip image.Rectangle, state gputypes.BlendState) bool {
	if dst == nil || src == nil || viewport.Empty() || src.Bounds().Empty() {
		return false
	}
	area := clip.Intersect(viewport).Intersect(dst.Bounds())
	if area.Empty() {
		return false
	}

	scaled := straight(src, viewport.Size())
	off := scaled.Rect.Min.Sub(viewport.Min)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			si := scaled.PixOffset(x+off.X, y+off.Y)
			di := dst.PixOffset(x, y)
			blendPixel(dst.Pix[di:di+4:di+4], scaled.Pix[si:si+4:si+4], state)
		}
	}
	return true
}

// straight returns src's texels as unorm bytes sized to size. *image.RGBA
// bytes are taken as they are, without unpremultiplying, and are copied
// untouched when no scaling is needed. Scaling goes through NRGBA so the
// filter never reads a color channel above alpha as premultiplied.
func straight(src image.Image, size image.Point) *image.NRGBA {
	var texels *image.NRGBA
	switch s := src.(type) {
	case *image.RGBA:
		texels = &image.NRGBA{Pix: s.Pix, Stride: s.Stride, Rect: s.Rect}
	case *image.NRGBA:
		texels = s
	default:
		texels = image.NewNRGBA(src.Bounds())
		draw.Draw(texels, texels.Bounds(), src, src.Bounds().Min, draw.Src)
	}
	if texels.Rect.Size() == size {
		return texels
	}
	scaled := image.NewNRGBA(image.Rectangle{Max: size})
	draw.BiLinear.Scale(scaled, scaled.Bounds(), texels, texels.Bounds(), draw.Src, nil)
	return scaled
}

// blendPixel blends s into d in place.
func blendPixel(d, s []byte, state gputypes.BlendState) {
	var sc, dc [4]float32
	for i := range 4 {
		sc[i] = float32(s[i]) / 255
		dc[i] = float32(d[i]) / 255
	}
	sa, da := sc[3], dc[3]
	for i := range 3 {
		d[i] = toUnorm(blendComponent(state.Color, sc[i], dc[i], sa, da))
	}
	d[3] = toUnorm(blendComponent(state.Alpha, sa, da, sa, da))
}

func blendComponent(c gputypes.BlendComponent, s, d, sa, da float32) float32 {
	switch c.Operation {
	case gputypes.BlendOperationMin:
		return min(s, d)
	case gputypes.BlendOperationMax:
		return max(s, d)
	}
	fs := s * blendFactor(c.SrcFactor, sa, da)
	fd := d * blendFactor(c.DstFactor, sa, da)
	switch c.Operation {
	case gputypes.BlendOperationSubtract:
		return fs - fd
	case gputypes.BlendOperationReverseSubtract:
		return fd - fs
	default:
		return fs + fd
	}
}

// blendFactor covers the alpha-driven factors the blit uses. Unknown
// factors evaluate to one.
func blendFactor(f gputypes.BlendFactor, sa, da float32) float32 {
	switch f {
	case gputypes.BlendFactorZero:
		return 0
	case gputypes.BlendFactorSrcAlpha:
		return sa
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return 1 - sa
	case gputypes.BlendFactorDstAlpha:
		return da
	case gputypes.BlendFactorOneMinusDstAlpha:
		return 1 - da
	default:
		return 1
	}
}

func toUnorm(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
