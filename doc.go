// Package embedview composites the frames of an embedded rendering engine
// into a rectangle of a host GUI.
//
// # Overview
//
// An embedded engine ticks on its own schedule and renders into GPU
// textures. The host GUI draws its widgets once per frame. embedview sits
// between the two: the engine publishes each finished texture into a
// one-slot, latest-wins frame channel ([NewFrameChannel]), and the host's
// draw cycle picks up at most one frame per cycle and blits it into the
// widget's clip rectangle with a load-not-clear render pass, so the
// embedded content sits on top of whatever the host already drew.
//
// # Quick Start
//
//	prog, err := embedview.New(pattern.Factory(pattern.Options{}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer prog.Close()
//
//	// Host draw cycle:
//	prim := prog.Draw(bounds)
//	if err := prog.Prepare(provider, prim, targetWidth, targetHeight); err != nil {
//	    log.Printf("prepare: %v", err)
//	}
//	prog.Render(embedview.EncoderFromHAL(encoder), prim, targetView, clip)
//
//	// Host event dispatch:
//	status, _ := prog.Update(embedview.RedrawRequested{}, bounds, cursor, shell)
//
// # Ticking
//
// By default the engine advances exactly once per [RedrawRequested] event,
// in lockstep with host frames, and the program asks the host for another
// redraw so the loop keeps going. [WithBackgroundTicks] moves ticking onto a
// dedicated goroutine instead; the frame and input channels stay the only
// place where data crosses between the two contexts.
//
// # Failure model
//
// Nothing in this package crashes the host. An engine that fails to
// construct leaves the widget permanently blank, a closed channel endpoint
// behaves like an empty one, and a draw cycle without a fresh frame simply
// skips the blit. The one exception is calling Render on a widget whose
// Prepare never ran, which violates the host contract and panics with
// [ErrPipelineMissing].
package embedview
