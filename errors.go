package embedview

import "errors"

// Common errors returned by embedview.
var (
	// ErrNilFactory is returned by New when no engine factory is given.
	ErrNilFactory = errors.New("embedview: nil engine factory")

	// ErrEngineInit wraps the error returned by a failing engine factory.
	// A widget that hit it stays blank for the rest of its life.
	ErrEngineInit = errors.New("embedview: engine construction failed")

	// ErrInstanceClosed is reported by a widget after Close.
	ErrInstanceClosed = errors.New("embedview: instance is closed")

	// ErrPipelineMissing is the panic value when Render runs on a widget
	// that was never prepared. Hosts always call Prepare first.
	ErrPipelineMissing = errors.New("embedview: render called before prepare")

	// ErrNoHalDevice is returned by Prepare when the provider has no
	// HalDevice and HalQueue methods returning hal handles.
	ErrNoHalDevice = errors.New("embedview: provider has no hal device")
)
