package embedview

import (
	"image"
	"math"
)

// Rect is a rectangle in physical pixels, as laid out by the host.
type Rect struct {
	X, Y, Width, Height float32
}

// Contains reports whether p lies inside r. The right and bottom edges are
// exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X < r.X+r.Width && p.Y < r.Y+r.Height
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Pixels rounds r outward to whole pixels.
func (r Rect) Pixels() image.Rectangle {
	return image.Rect(
		int(math.Floor(float64(r.X))),
		int(math.Floor(float64(r.Y))),
		int(math.Ceil(float64(r.X+r.Width))),
		int(math.Ceil(float64(r.Y+r.Height))),
	)
}

// Size returns the rounded-up pixel size of r, at least 1x1.
func (r Rect) Size() (width, height uint32) {
	p := r.Pixels()
	return uint32(max(p.Dx(), 1)), uint32(max(p.Dy(), 1)) //nolint:gosec // clamped to >= 1
}

// Point is a cursor position in physical pixels.
type Point struct {
	X, Y float32
}

// Cursor is the host's cursor state. Available is false when the cursor is
// outside the window or hidden.
type Cursor struct {
	Position  Point
	Available bool
}

// In reports whether the cursor is available and inside bounds.
func (c Cursor) In(bounds Rect) bool {
	return c.Available && bounds.Contains(c.Position)
}

// Status tells the host whether the widget consumed an event.
type Status uint8

const (
	// StatusIgnored lets the event propagate to other widgets.
	StatusIgnored Status = iota

	// StatusCaptured stops propagation.
	StatusCaptured
)

// String returns the status name.
func (s Status) String() string {
	if s == StatusCaptured {
		return "captured"
	}
	return "ignored"
}

// Message is an application message published by Update. The widget never
// publishes one; the type exists so hosts with message-driven update loops
// can plug the widget in unchanged.
type Message any

// Interaction is the cursor shape the widget asks the host for.
type Interaction uint8

const (
	// CursorIdle leaves the cursor to the host.
	CursorIdle Interaction = iota

	// CursorCrosshair is shown while hovering the embedded frame.
	CursorCrosshair
)

// String returns the interaction name.
func (i Interaction) String() string {
	if i == CursorCrosshair {
		return "crosshair"
	}
	return "idle"
}

// Shell is the part of the host runtime the widget talks back to.
type Shell interface {
	// RequestRedraw schedules another host frame.
	RequestRedraw()
}
