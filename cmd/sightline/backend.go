package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackendCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backend [url]",
		Short: "Show or set the persisted analysis backend URL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSettings()
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				if err := store.SetBackendURL(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Backend URL set to %s\n", args[0])
				return nil
			}

			url, err := store.BackendURL(cmd.Context())
			if err != nil {
				return err
			}
			if url == "" {
				fmt.Println("No backend URL configured.")
				return nil
			}
			fmt.Println(url)
			return nil
		},
	}
}
