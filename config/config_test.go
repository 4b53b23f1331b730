package config

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	canvaserrors "github.com/wippyai/canvas-host/errors"
	"github.com/wippyai/canvas-host/graphics"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.BusCapacity != 16 {
		t.Errorf("BusCapacity = %d, want 16", cfg.BusCapacity)
	}
	if cfg.FrameInterval != 16*time.Millisecond {
		t.Errorf("FrameInterval = %v, want 16ms", cfg.FrameInterval)
	}
	if cfg.Backend != "simple-buffer" || cfg.PresentMode != "fifo" || cfg.LogLevel != "info" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.OTLPEndpoint != "" {
		t.Errorf("OTLPEndpoint = %q, want empty", cfg.OTLPEndpoint)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"CANVAS_BACKEND":         "webgpu",
		"CANVAS_PRESENT_MODE":    "mailbox",
		"CANVAS_BUS_CAPACITY":    "64",
		"CANVAS_FRAME_INTERVAL":  "33ms",
		"CANVAS_WIDTH":           "320",
		"CANVAS_HEIGHT":          "200",
		"CANVAS_LOG_LEVEL":       "debug",
		"CANVAS_LOG_DEVELOPMENT": "true",
		"CANVAS_OTLP_ENDPOINT":   "localhost:4318",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.BusCapacity != 64 || cfg.FrameInterval != 33*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.LogDevelopment || cfg.OTLPEndpoint != "localhost:4318" {
		t.Errorf("cfg = %+v", cfg)
	}

	desc := cfg.Descriptor(80, 24)
	want := graphics.Descriptor{
		Backend:     graphics.BackendWebGPU,
		Width:       320,
		Height:      200,
		PresentMode: graphics.PresentModeMailbox,
	}
	if desc != want {
		t.Errorf("Descriptor = %+v, want %+v", desc, want)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"backend", map[string]string{"CANVAS_BACKEND": "vulkan"}},
		{"present mode", map[string]string{"CANVAS_PRESENT_MODE": "tearing"}},
		{"log level", map[string]string{"CANVAS_LOG_LEVEL": "loud"}},
		{"capacity", map[string]string{"CANVAS_BUS_CAPACITY": "0"}},
		{"interval", map[string]string{"CANVAS_FRAME_INTERVAL": "-1s"}},
		{"unparsable", map[string]string{"CANVAS_WIDTH": "wide"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			if !errors.Is(err, canvaserrors.ErrInvalidInput) {
				t.Errorf("LoadFrom = %v, want invalid input", err)
			}
		})
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CANVAS_BUS_CAPACITY", "8")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BusCapacity != 8 {
		t.Errorf("BusCapacity = %d, want 8", cfg.BusCapacity)
	}
}

func TestDescriptor_FallbackSize(t *testing.T) {
	cfg, _ := LoadFrom(map[string]string{})
	desc := cfg.Descriptor(80, 48)
	if desc.Width != 80 || desc.Height != 48 || desc.Backend != graphics.BackendSimpleBuffer {
		t.Errorf("Descriptor = %+v", desc)
	}
}

func TestNewLogger(t *testing.T) {
	cfg, _ := LoadFrom(map[string]string{"CANVAS_LOG_LEVEL": "warn"})
	logger, err := cfg.NewLogger()
	if err != nil {
		t.Fatal(err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be disabled at warn")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}
}

func TestNewLogger_Paths(t *testing.T) {
	cfg, _ := LoadFrom(map[string]string{"CANVAS_LOG_DEVELOPMENT": "true"})
	path := t.TempDir() + "/canvas.log"

	logger, err := cfg.NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("written")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written") {
		t.Errorf("log file = %q", data)
	}
}
