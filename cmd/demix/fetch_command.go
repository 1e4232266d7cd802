package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"demix/internal/config"
	"demix/internal/jobs"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var artist string
	var title string

	cmd := &cobra.Command{
		Use:   "fetch <link>",
		Short: "Queue a remote audio download as a new source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				link := strings.TrimSpace(args[0])
				if link == "" {
					return errors.New("link is required")
				}

				src, err := store.NewSource(cmd.Context(), artist, title)
				if err != nil {
					return fmt.Errorf("create source record: %w", err)
				}
				job, err := store.NewFetch(cmd.Context(), src.ID, artist, title, link)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "queued fetch job %s for source %s\n", job.ID, src.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&artist, "artist", "", "Artist name for the source")
	cmd.Flags().StringVar(&title, "title", "", "Track title for the source")
	return cmd
}
