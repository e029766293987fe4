package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"sightline/internal/config"
	"sightline/internal/models"
)

func newVideoCommand(a *app) *cobra.Command {
	var (
		duration       float64
		targetAnalyses int
	)

	cmd := &cobra.Command{
		Use:   "video <file>",
		Short: "Upload a recorded video for batched analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if targetAnalyses > 0 {
				cfg.Analysis.TargetAnalyses = targetAnalyses
			}

			backend, err := a.newBackendClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			a.logger.Info("uploading video", "file", args[0], "target_analyses", cfg.Analysis.TargetAnalyses)
			analysis, err := backend.AnalyzeVideo(cmd.Context(), args[0], duration, cfg.Analysis.TargetAnalyses)
			if err != nil {
				return err
			}

			printVideoAnalysis(analysis)
			return nil
		},
	}

	cmd.Flags().Float64Var(&duration, "duration", 0, "clip duration in seconds (0 lets the backend measure it)")
	cmd.Flags().IntVar(&targetAnalyses, "target-analyses", 0, "how many frames the backend should sample")

	return cmd
}

func printVideoAnalysis(analysis *models.VideoAnalysis) {
	info := analysis.Info
	fmt.Printf("Video: %.1fs at %.1f fps, %d frames total, %d analyzed in %.1fs\n",
		info.VideoDuration, info.FPS, info.TotalFrames, info.AnalyzedFrames, info.ProcessingDuration)

	if len(analysis.Frames) == 0 {
		fmt.Println("No frame analyses returned.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Time (s)", "Description", "Objects"})
	for _, frame := range analysis.Frames {
		t.AppendRow(table.Row{
			fmt.Sprintf("%.1f", frame.Timestamp),
			frame.Description,
			formatObjects(frame.Objects),
		})
	}
	t.Render()
}

func formatObjects(objects []models.DetectedObject) string {
	if len(objects) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(objects))
	for _, obj := range objects {
		parts = append(parts, fmt.Sprintf("%s (%s)", obj.Object, confidencePercent(obj.Confidence)))
	}
	return strings.Join(parts, ", ")
}
