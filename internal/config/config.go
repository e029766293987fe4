// Package config loads sightline's TOML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Capture configures the frame source and cadence.
type Capture struct {
	Input       string `toml:"input"`
	InputFormat string `toml:"input_format"`
	IntervalMS  int    `toml:"interval_ms"`
	Mirror      bool   `toml:"mirror"`
	JPEGQuality int    `toml:"jpeg_quality"`
}

// Analysis configures the question and request deadlines.
type Analysis struct {
	Question            string `toml:"question"`
	FrameTimeoutSeconds int    `toml:"frame_timeout_seconds"`
	VideoTimeoutSeconds int    `toml:"video_timeout_seconds"`
	TargetAnalyses      int    `toml:"target_analyses"`
}

// Narration configures the speech side-channel.
type Narration struct {
	Enabled bool   `toml:"enabled"`
	Command string `toml:"command"`
}

// Metrics configures the optional Prometheus endpoint. An empty listen
// address disables it.
type Metrics struct {
	Listen string `toml:"listen"`
}

// Local configures the on-device Ollama analyzer used with --local.
type Local struct {
	BaseURL string `toml:"base_url"`
	Port    int    `toml:"port"`
	Model   string `toml:"model"`
}

// Config is the full configuration tree.
type Config struct {
	Capture   Capture   `toml:"capture"`
	Analysis  Analysis  `toml:"analysis"`
	Narration Narration `toml:"narration"`
	Metrics   Metrics   `toml:"metrics"`
	Local     Local     `toml:"local"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Capture: Capture{
			Input:       "/dev/video0",
			IntervalMS:  2000,
			JPEGQuality: 70,
		},
		Analysis: Analysis{
			Question:            "What object is in front of me?",
			FrameTimeoutSeconds: 15,
			VideoTimeoutSeconds: 300,
			TargetAnalyses:      5,
		},
		Narration: Narration{
			Enabled: true,
		},
		Local: Local{
			BaseURL: "http://localhost",
			Port:    11434,
			Model:   "llama3.2-vision:11b",
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "sightline", "config.toml"), nil
}

// Load reads the config at path, layered over the defaults. An empty path
// uses DefaultPath; a missing file is not an error and yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config '%s': %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config '%s': %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config '%s': %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.Capture.Input == "" {
		return errors.New("capture.input must not be empty")
	}
	if c.Capture.IntervalMS <= 0 {
		return errors.New("capture.interval_ms must be positive")
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return errors.New("capture.jpeg_quality must be between 1 and 100")
	}
	if c.Analysis.FrameTimeoutSeconds <= 0 {
		return errors.New("analysis.frame_timeout_seconds must be positive")
	}
	if c.Analysis.VideoTimeoutSeconds <= 0 {
		return errors.New("analysis.video_timeout_seconds must be positive")
	}
	if c.Analysis.TargetAnalyses <= 0 {
		return errors.New("analysis.target_analyses must be positive")
	}
	return nil
}

// Interval returns the tick cadence as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Capture.IntervalMS) * time.Millisecond
}

// FrameTimeout returns the per-frame request deadline.
func (c *Config) FrameTimeout() time.Duration {
	return time.Duration(c.Analysis.FrameTimeoutSeconds) * time.Second
}

// VideoTimeout returns the whole-video upload deadline.
func (c *Config) VideoTimeout() time.Duration {
	return time.Duration(c.Analysis.VideoTimeoutSeconds) * time.Second
}

// WriteSample writes the annotated sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at '%s'", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0644)
}
