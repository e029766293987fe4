package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// app carries state shared by all commands.
type app struct {
	logger     *slog.Logger
	configPath string
	baseURL    string
}

func newRootCommand(logger *slog.Logger) *cobra.Command {
	a := &app{logger: logger}

	root := &cobra.Command{
		Use:           "sightline",
		Short:         "Assistive vision companion: narrates what the camera sees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config.toml (default: user config dir)")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "analysis backend base URL (persisted for future sessions)")

	root.AddCommand(
		newWatchCommand(a),
		newVideoCommand(a),
		newAskCommand(a),
		newBackendCommand(a),
		newConfigCommand(a),
	)

	return root
}
