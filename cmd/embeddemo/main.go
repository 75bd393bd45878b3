// Command embeddemo runs the pattern engine inside a simulated host window
// and writes the final composited frame to a PNG.
//
// The host is headless: it draws its own background with gg, feeds the
// widget a scripted pointer sweep, a click and a space key press, and
// composites the embedded frame with Program.RenderImage. With -gpu the
// same frames also go through the blit pipeline on the noop backend,
// exercising Prepare and Render exactly as a windowed host would.
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gpucontext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/gogpu/embedview"
	"github.com/gogpu/embedview/engine/pattern"
)

func main() {
	var (
		configPath = flag.String("config", "embeddemo.toml", "configuration file")
		output     = flag.String("output", "", "output PNG (overrides config)")
		frames     = flag.Int("frames", 0, "host frames to run (overrides config)")
		useGPU     = flag.Bool("gpu", false, "also blit through the GPU pipeline on the noop backend")
		verbose    = flag.Bool("v", false, "debug logging")
		metrics    = flag.Bool("metrics", false, "print metrics on exit")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	embedview.SetLogger(logger)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *output != "" {
		cfg.Output.Path = *output
	}
	if *frames > 0 {
		cfg.Output.Frames = *frames
	}

	reg := prometheus.NewRegistry()
	m, err := embedview.NewMetrics(reg, prometheus.Labels{"widget": "embeddemo"})
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	if err := run(cfg, m, *useGPU, logger); err != nil {
		log.Fatalf("embeddemo: %v", err)
	}

	if *metrics {
		families, err := reg.Gather()
		if err != nil {
			log.Fatalf("gather metrics: %v", err)
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
				log.Fatalf("write metrics: %v", err)
			}
		}
	}
}

// redrawShell records redraw requests from the widget.
type redrawShell struct {
	pending bool
}

func (s *redrawShell) RequestRedraw() { s.pending = true }

func run(cfg Config, m *embedview.Metrics, useGPU bool, logger *slog.Logger) error {
	opts := []embedview.Option{embedview.WithMetrics(m), embedview.WithLogger(logger)}
	if interval := cfg.Engine.TickInterval(); interval > 0 {
		opts = append(opts, embedview.WithBackgroundTicks(interval))
	}

	var gpu *gpuHost
	if useGPU {
		var err error
		gpu, err = newGPUHost(uint32(cfg.Window.Width), uint32(cfg.Window.Height)) //nolint:gosec // validated positive
		if err != nil {
			return fmt.Errorf("gpu host: %w", err)
		}
		defer gpu.Close()
		opts = append(opts, embedview.WithDeviceProvider(gpu.provider))
	}

	prog, err := embedview.New(pattern.Factory(pattern.Options{
		Dots:     cfg.Engine.Dots,
		Speed:    cfg.Engine.Speed,
		HUD:      cfg.Engine.HUD,
		PoolSize: cfg.Engine.PoolSize,
		GPU:      useGPU,
	}), opts...)
	if err != nil {
		return err
	}
	defer prog.Close()

	bounds := embedview.Rect{
		X:      cfg.Widget.X,
		Y:      cfg.Widget.Y,
		Width:  cfg.Widget.Width,
		Height: cfg.Widget.Height,
	}
	clip := bounds.Pixels().Inset(cfg.Widget.ClipInset)

	background := drawBackground(cfg.Window.Width, cfg.Window.Height, bounds)
	canvas := image.NewRGBA(background.Bounds())
	copy(canvas.Pix, background.Pix)

	shell := &redrawShell{pending: true}
	cursor := embedview.Cursor{Available: true}
	drawn := 0
	for i := range cfg.Output.Frames {
		if !shell.pending {
			logger.Warn("widget stopped requesting redraws", "frame", i, "err", prog.Err())
			break
		}
		shell.pending = false

		for _, ev := range script(i, cfg.Output.Frames, bounds) {
			if pe, ok := ev.(embedview.PointerEvent); ok {
				cursor.Position = embedview.Point{X: pe.X, Y: pe.Y}
			}
			prog.Update(ev, bounds, cursor, shell)
		}
		prog.Update(embedview.RedrawRequested{At: time.Now()}, bounds, cursor, shell)

		prim := prog.Draw(bounds)
		if gpu != nil {
			if err := gpu.frame(prog, prim, clip); err != nil {
				logger.Warn("gpu frame failed", "frame", i, "err", err)
			}
		}
		if !prim.Empty() {
			copy(canvas.Pix, background.Pix)
			if prog.RenderImage(canvas, prim, clip) {
				drawn++
			}
		}
		if interval := cfg.Engine.TickInterval(); interval > 0 {
			time.Sleep(interval)
		}
	}

	stats := prog.Stats()
	logger.Info("run finished",
		"frames", cfg.Output.Frames, "composited", drawn,
		"published", stats.Published, "dropped", stats.Dropped, "received", stats.Received,
		"cursor", prog.MouseInteraction(bounds, cursor), "state", prog.State())

	dc := gg.NewContextForImage(canvas)
	defer dc.Close()
	if err := dc.SavePNG(cfg.Output.Path); err != nil {
		return fmt.Errorf("save %s: %w", cfg.Output.Path, err)
	}
	logger.Info("saved", "path", cfg.Output.Path)
	return nil
}

// script returns the scripted input for host frame i of n: a pointer
// sweep across the widget, a click halfway and a space press at three
// quarters.
func script(i, n int, bounds embedview.Rect) []embedview.Event {
	t := float32(i) / float32(max(n-1, 1))
	x := bounds.X + t*bounds.Width
	y := bounds.Y + bounds.Height/2
	evs := []embedview.Event{
		embedview.PointerEvent{Action: embedview.PointerMoved, X: x, Y: y},
	}
	switch i {
	case n / 2:
		evs = append(evs,
			embedview.PointerEvent{Action: embedview.PointerPressed, X: x, Y: y, Button: embedview.ButtonLeft},
			embedview.PointerEvent{Action: embedview.PointerReleased, X: x, Y: y, Button: embedview.ButtonLeft},
		)
	case n * 3 / 4:
		evs = append(evs, embedview.KeyEvent{Key: gpucontext.KeySpace, Pressed: true})
	}
	return evs
}

// drawBackground paints the host UI around the widget.
func drawBackground(w, h int, widget embedview.Rect) *image.RGBA {
	dc := gg.NewContext(w, h)
	defer dc.Close()

	steps := 64
	for i := range steps {
		t := float64(i) / float64(steps)
		dc.SetColor(gg.RGB(0.85-t*0.2, 0.87-t*0.2, 0.9-t*0.15))
		dc.DrawRectangle(0, float64(h)*t, float64(w), float64(h)/float64(steps)+1)
		_ = dc.Fill()
	}

	// Frame around the embedded view.
	dc.SetRGB(0.2, 0.22, 0.28)
	dc.SetLineWidth(3)
	dc.DrawRectangle(float64(widget.X)-2, float64(widget.Y)-2, float64(widget.Width)+4, float64(widget.Height)+4)
	_ = dc.Stroke()

	return dc.ResizeTarget().ToImage()
}
