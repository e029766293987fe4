package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sightline/internal/config"
)

func newAskCommand(a *app) *cobra.Command {
	var question string

	cmd := &cobra.Command{
		Use:   "ask <image>",
		Short: "Ask one visual question about a still image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if question == "" {
				question = cfg.Analysis.Question
			}

			imageData, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image '%s': %w", args[0], err)
			}

			backend, err := a.newBackendClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			answer, err := backend.AskVQA(cmd.Context(), imageData, question)
			if err != nil {
				return err
			}

			fmt.Println(answer)
			return nil
		},
	}

	cmd.Flags().StringVar(&question, "question", "", "question to ask (default: configured question)")

	return cmd
}
