package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the embeddemo.toml file.
type Config struct {
	Window WindowConfig `toml:"window"`
	Widget WidgetConfig `toml:"widget"`
	Engine EngineConfig `toml:"engine"`
	Output OutputConfig `toml:"output"`
}

// WindowConfig is the simulated host surface.
type WindowConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// WidgetConfig places the embedded view inside the window.
type WidgetConfig struct {
	X      float32 `toml:"x"`
	Y      float32 `toml:"y"`
	Width  float32 `toml:"width"`
	Height float32 `toml:"height"`
	// Clip narrows drawing to part of the widget. Zero means the whole
	// widget.
	ClipInset int `toml:"clip_inset"`
}

// EngineConfig tunes the pattern engine.
type EngineConfig struct {
	Dots     int     `toml:"dots"`
	Speed    float64 `toml:"speed"`
	HUD      bool    `toml:"hud"`
	PoolSize int     `toml:"pool_size"`
	// TickHz ticks the engine on its own goroutine. Zero ticks once per
	// host frame.
	TickHz int `toml:"tick_hz"`
}

// OutputConfig controls the headless run.
type OutputConfig struct {
	Frames int    `toml:"frames"`
	Path   string `toml:"path"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{Width: 640, Height: 400},
		Widget: WidgetConfig{X: 120, Y: 60, Width: 400, Height: 280},
		Engine: EngineConfig{Dots: 12, Speed: 0.05, HUD: true, PoolSize: 3},
		Output: OutputConfig{Frames: 60, Path: "embeddemo.png"},
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Widget.Width <= 0 || c.Widget.Height <= 0 {
		return fmt.Errorf("widget size %vx%v must be positive", c.Widget.Width, c.Widget.Height)
	}
	if c.Output.Frames <= 0 {
		return fmt.Errorf("output.frames must be positive, got %d", c.Output.Frames)
	}
	return nil
}

// TickInterval returns the background tick interval, or zero for
// cooperative ticking.
func (c EngineConfig) TickInterval() time.Duration {
	if c.TickHz <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.TickHz)
}
