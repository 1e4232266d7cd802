package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"demix/internal/config"
	"demix/internal/jobs"
	"demix/internal/storage"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var artist string
	var title string

	cmd := &cobra.Command{
		Use:   "add <audio-file>",
		Short: "Import a local audio file as a separation source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withGateway(func(_ *config.Config, store *jobs.Store, gateway storage.Gateway) error {
				trimmed := strings.TrimSpace(args[0])
				if trimmed == "" {
					return errors.New("source path is required")
				}
				absPath, err := filepath.Abs(trimmed)
				if err != nil {
					return fmt.Errorf("resolve source path: %w", err)
				}
				info, err := os.Stat(absPath)
				if err != nil {
					return fmt.Errorf("stat source file: %w", err)
				}
				if info.IsDir() {
					return fmt.Errorf("source path %q is a directory", absPath)
				}

				if title == "" {
					base := filepath.Base(absPath)
					title = strings.TrimSuffix(base, filepath.Ext(base))
				}

				src, err := store.NewSource(cmd.Context(), artist, title)
				if err != nil {
					return fmt.Errorf("create source record: %w", err)
				}
				ref, err := gateway.ImportSource(cmd.Context(), src, absPath)
				if err != nil {
					return err
				}
				if err := store.SetSourceOutput(cmd.Context(), src.ID, ref); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "source %s imported (%s)\n", src.ID, ref)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&artist, "artist", "", "Artist name for the source")
	cmd.Flags().StringVar(&title, "title", "", "Track title (defaults to the file name)")
	return cmd
}
