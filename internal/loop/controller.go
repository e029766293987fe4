// Package loop schedules the capture-encode-analyze cycle on a fixed
// cadence while keeping at most one analysis request in flight.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sightline/internal/capture"
	"sightline/internal/encode"
	"sightline/internal/metrics"
	"sightline/internal/sink"
)

// DefaultInterval is the nominal tick cadence. Remote vision models answer
// in seconds, not milliseconds, so anything much faster only produces
// skipped ticks.
const DefaultInterval = 2 * time.Second

// grabTimeout bounds a single ffmpeg frame grab so a wedged capture
// process cannot hold the in-flight flag forever.
const grabTimeout = 10 * time.Second

// Analyzer resolves one encoded frame to an answer. Implemented by the
// remote HTTP client and by the local Ollama analyzer.
type Analyzer interface {
	AnalyzeFrame(ctx context.Context, frame *encode.EncodedFrame, question string) (string, error)
}

// Controller runs the repeating capture cycle. Each session owns its own
// Controller; there is no shared global state.
type Controller struct {
	source   capture.Source
	encoder  *encode.Encoder
	analyzer Analyzer
	sink     *sink.Sink
	question string
	interval time.Duration
	logger   *slog.Logger

	// inFlight is the sole cross-tick shared flag: a tick that loses the
	// CAS is dropped outright, never queued, bounding concurrency to one
	// outstanding request.
	inFlight atomic.Bool

	mu         sync.Mutex
	running    bool
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	sessionID  string
}

// New wires a controller. interval <= 0 uses DefaultInterval.
func New(source capture.Source, encoder *encode.Encoder, analyzer Analyzer, resultSink *sink.Sink, question string, interval time.Duration, logger *slog.Logger) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		source:   source,
		encoder:  encoder,
		analyzer: analyzer,
		sink:     resultSink,
		question: question,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the repeating timer. It is a silent no-op when the loop is
// already running or the capture source is not ready yet; callers can check
// Running afterwards.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	if !c.source.Ready() {
		c.logger.Debug("capture source not ready, loop not started")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.running = true
	c.generation++
	c.cancel = cancel
	c.done = make(chan struct{})
	c.sessionID = uuid.NewString()

	c.logger.Info("capture loop started", "session", c.sessionID, "interval", c.interval)
	go c.run(ctx, c.generation, c.done)
}

// Stop cancels the timer and clears the in-flight flag unconditionally.
// An outstanding request is not aborted; it is abandoned - its eventual
// result fails the generation check and never reaches the sink. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	done := c.done
	session := c.sessionID
	c.mu.Unlock()

	<-done
	c.inFlight.Store(false)
	c.logger.Info("capture loop stopped", "session", session)
}

// Running reports whether the timer is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SessionID identifies the current (or last) capture session in logs.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) run(ctx context.Context, generation uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.TicksTotal.Inc()
			if !c.inFlight.CompareAndSwap(false, true) {
				metrics.TicksSkipped.WithLabelValues(metrics.SkipInFlight).Inc()
				c.logger.Debug("tick skipped, request in flight")
				continue
			}
			go c.cycle(generation)
		}
	}
}

// cycle performs one capture-encode-analyze pass. The in-flight flag is
// cleared in a deferred block so no outcome can stall the loop.
func (c *Controller) cycle(generation uint64) {
	defer c.inFlight.Store(false)

	started := time.Now()

	if !c.source.Ready() {
		// Camera still warming up; not an error, retried next tick.
		metrics.TicksSkipped.WithLabelValues(metrics.SkipNotReady).Inc()
		return
	}

	grabCtx, cancel := context.WithTimeout(context.Background(), grabTimeout)
	frame, err := c.source.Grab(grabCtx)
	cancel()
	if err != nil {
		metrics.TicksSkipped.WithLabelValues(metrics.SkipNoFrame).Inc()
		c.logger.Debug("frame grab failed", "error", err)
		return
	}

	encoded, err := c.encoder.Encode(frame)
	if err != nil {
		// Encoder failures are transient: drop the tick silently.
		metrics.TicksSkipped.WithLabelValues(metrics.SkipNoFrame).Inc()
		if !errors.Is(err, encode.ErrNoFrame) {
			c.logger.Debug("frame encode failed", "error", err)
		}
		return
	}

	// The request deliberately does not inherit the session context: Stop
	// abandons an outstanding request rather than aborting it. The client
	// imposes its own per-request timeout.
	answer, err := c.analyzer.AnalyzeFrame(context.Background(), encoded, c.question)

	if !c.live(generation) {
		metrics.TicksSkipped.WithLabelValues(metrics.SkipAbandoned).Inc()
		return
	}

	metrics.AnalyzeDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("failure").Inc()
		c.sink.Fail(err)
		return
	}

	metrics.AnalysesTotal.WithLabelValues("success").Inc()
	metrics.NarrationsTotal.Inc()
	c.sink.Record(answer, c.question)
}

// live reports whether results from the given generation may still be
// applied to the sink.
func (c *Controller) live(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && c.generation == generation
}
