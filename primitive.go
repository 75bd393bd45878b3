package embedview

// Primitive is the per-draw value a widget hands the host. It carries at
// most one frame and the bounds it should cover.
//
// A Primitive without a frame is valid and renders nothing.
type Primitive struct {
	frame  *Frame
	bounds Rect
}

// Frame returns the captured frame, or nil.
func (p *Primitive) Frame() *Frame {
	if p == nil {
		return nil
	}
	return p.frame
}

// Bounds returns the widget bounds the primitive was drawn with.
func (p *Primitive) Bounds() Rect {
	if p == nil {
		return Rect{}
	}
	return p.bounds
}

// Empty reports whether the primitive has nothing to draw.
func (p *Primitive) Empty() bool {
	return p == nil || p.frame == nil
}
