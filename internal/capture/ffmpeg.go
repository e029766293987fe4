package capture

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// FFmpegConfig configures a single-frame ffmpeg grabber.
type FFmpegConfig struct {
	// Input is the ffmpeg input: a device path such as /dev/video0, a video
	// file, or a stream URL.
	Input string

	// InputFormat is passed as -f when grabbing from a device (v4l2 on
	// linux, avfoundation on darwin). Empty means ffmpeg autodetects, which
	// is correct for files and network streams.
	InputFormat string

	// Binary overrides the ffmpeg executable name.
	Binary string
}

// FFmpegSource grabs one frame per call by running ffmpeg with mjpeg piped
// to stdout and decoding the JPEG it emits.
type FFmpegSource struct {
	cfg    FFmpegConfig
	logger *slog.Logger

	mu     sync.Mutex
	width  int
	height int
	closed bool
}

// NewFFmpegSource creates a source for the given input. The source is not
// ready until a probe grab has succeeded.
func NewFFmpegSource(cfg FFmpegConfig, logger *slog.Logger) *FFmpegSource {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	if cfg.InputFormat == "" && looksLikeDevice(cfg.Input) {
		cfg.InputFormat = defaultDeviceFormat()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegSource{cfg: cfg, logger: logger}
}

// Ready reports whether the source has produced a frame with non-zero
// dimensions. A camera that is still warming up is not ready.
func (s *FFmpegSource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.width > 0 && s.height > 0
}

// Probe performs one grab, discarding the frame, to learn the source's
// intrinsic dimensions. Used at session start to wait out camera warm-up.
func (s *FFmpegSource) Probe(ctx context.Context) error {
	_, err := s.Grab(ctx)
	return err
}

// Grab runs ffmpeg for a single frame and decodes it.
func (s *FFmpegSource) Grab(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("capture source is closed")
	}
	s.mu.Unlock()

	cmd := exec.CommandContext(ctx, s.cfg.Binary, s.grabArgs()...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg grab from '%s' failed: %v: %s", s.cfg.Input, err, firstLine(stderr.String()))
	}

	img, err := jpeg.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode grabbed frame: %w", err)
	}

	bounds := img.Bounds()
	frame := &Frame{
		Image:      img,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		CapturedAt: time.Now(),
	}

	s.mu.Lock()
	firstGrab := s.width == 0
	s.width, s.height = frame.Width, frame.Height
	s.mu.Unlock()

	if firstGrab {
		s.logger.Debug("capture source ready", "input", s.cfg.Input, "width", frame.Width, "height", frame.Height)
	}

	return frame, nil
}

// Close marks the source unusable. ffmpeg runs per grab, so there is no
// long-lived process to tear down.
func (s *FFmpegSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.width, s.height = 0, 0
	return nil
}

// Dimensions returns the intrinsic width and height learned from the last
// successful grab, or zeros before the first one.
func (s *FFmpegSource) Dimensions() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *FFmpegSource) grabArgs() []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if s.cfg.InputFormat != "" {
		args = append(args, "-f", s.cfg.InputFormat)
	}
	args = append(args,
		"-i", s.cfg.Input,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	)
	return args
}

func looksLikeDevice(input string) bool {
	return strings.HasPrefix(input, "/dev/video")
}

func defaultDeviceFormat() string {
	if runtime.GOOS == "darwin" {
		return "avfoundation"
	}
	return "v4l2"
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
