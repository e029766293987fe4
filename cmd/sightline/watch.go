package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"sightline/internal/analyzer"
	"sightline/internal/capture"
	"sightline/internal/config"
	"sightline/internal/encode"
	"sightline/internal/loop"
	"sightline/internal/metrics"
	"sightline/internal/narrate"
	"sightline/internal/sink"
)

// warm-up: how long to wait for the camera to produce its first frame.
const (
	probeAttempts = 10
	probeDelay    = 500 * time.Millisecond
)

func newWatchCommand(a *app) *cobra.Command {
	var (
		input      string
		intervalMS int
		mirror     bool
		question   string
		mute       bool
		local      bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Narrate live camera frames until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Capture.Input = input
			}
			if intervalMS > 0 {
				cfg.Capture.IntervalMS = intervalMS
			}
			if cmd.Flags().Changed("mirror") {
				cfg.Capture.Mirror = mirror
			}
			if question != "" {
				cfg.Analysis.Question = question
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.runWatch(ctx, cfg, mute, local)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "capture input (camera device, file, or stream URL)")
	cmd.Flags().IntVar(&intervalMS, "interval-ms", 0, "tick cadence in milliseconds")
	cmd.Flags().BoolVar(&mirror, "mirror", false, "flip transmitted frames horizontally")
	cmd.Flags().StringVar(&question, "question", "", "question asked about every frame")
	cmd.Flags().BoolVar(&mute, "mute", false, "disable speech narration")
	cmd.Flags().BoolVar(&local, "local", false, "analyze with a local Ollama model instead of the remote backend")

	return cmd
}

func (a *app) runWatch(ctx context.Context, cfg *config.Config, mute, local bool) error {
	// Analyzer: remote backend or local model, same contract either way.
	var frameAnalyzer loop.Analyzer
	if local {
		visionAgent, err := analyzer.NewAgent(ctx, a.logger, cfg.Local.BaseURL, cfg.Local.Port, cfg.Local.Model)
		if err != nil {
			return fmt.Errorf("initialize local analyzer: %w", err)
		}
		frameAnalyzer = analyzer.NewLocal(visionAgent, a.logger)
	} else {
		backend, err := a.newBackendClient(ctx, cfg)
		if err != nil {
			return err
		}
		frameAnalyzer = backend
		a.logger.Info("using analysis backend", "url", backend.BaseURL())
	}

	var narrator narrate.Narrator = narrate.Muted{}
	if cfg.Narration.Enabled && !mute {
		narrator = narrate.NewCommandNarrator(cfg.Narration.Command, a.logger)
	}
	defer narrator.Stop()

	source := capture.NewFFmpegSource(capture.FFmpegConfig{
		Input:       cfg.Capture.Input,
		InputFormat: cfg.Capture.InputFormat,
	}, a.logger)
	defer source.Close()

	if err := warmUp(ctx, source, a.logger); err != nil {
		return err
	}

	var metricsServer *http.Server
	if cfg.Metrics.Listen != "" {
		metricsServer = metrics.StartServer(cfg.Metrics.Listen, a.logger)
	}

	resultSink := sink.New(narrator, sink.DefaultCapacity, a.logger)
	encoder := encode.NewEncoder(cfg.Capture.Mirror, cfg.Capture.JPEGQuality)

	controller := loop.New(source, encoder, frameAnalyzer, resultSink, cfg.Analysis.Question, cfg.Interval(), a.logger)
	controller.Start()
	if !controller.Running() {
		return errors.New("capture loop did not start: source is not ready")
	}

	<-ctx.Done()
	controller.Stop()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		cancel()
	}

	printSessionSummary(resultSink)
	return nil
}

// warmUp probes the source until it reports ready, giving cameras time to
// deliver their first frame.
func warmUp(ctx context.Context, source *capture.FFmpegSource, logger *slog.Logger) error {
	for attempt := 1; attempt <= probeAttempts; attempt++ {
		if err := source.Probe(ctx); err == nil && source.Ready() {
			return nil
		} else if err != nil {
			logger.Debug("capture probe failed", "attempt", attempt, "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(probeDelay):
		}
	}
	return errors.New("capture source never became ready; check the input device")
}

// printSessionSummary renders the retained result log after the loop stops.
func printSessionSummary(resultSink *sink.Sink) {
	entries := resultSink.Entries()
	if len(entries) == 0 {
		fmt.Println("No answers recorded this session.")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "Answer", "Question"})
		for _, entry := range entries {
			t.AppendRow(table.Row{
				time.UnixMilli(entry.Timestamp).Format("15:04:05"),
				entry.Answer,
				entry.Question,
			})
		}
		t.Render()
	}

	if lastErr := resultSink.LastError(); lastErr != "" {
		fmt.Printf("Last error: %s\n", lastErr)
	}
}
