package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"demix/internal/config"
	"demix/internal/jobs"
)

func newSeparateCommand(ctx *commandContext) *cobra.Command {
	var vocals bool
	var drums bool
	var bass bool
	var other bool
	var dynamic bool

	cmd := &cobra.Command{
		Use:   "separate <source-id>",
		Short: "Queue a stem separation job for a source",
		Long: `Queue a separation job for an imported or fetched source.

With --dynamic the job produces all four stems as individual files.
Otherwise at least one of --vocals, --drums, --bass or --other must be
set, and the job produces a single mix of the selected parts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				src, err := store.GetSource(cmd.Context(), args[0])
				if errors.Is(err, jobs.ErrNotFound) {
					return fmt.Errorf("no source with id %s", args[0])
				}
				if err != nil {
					return err
				}
				if src.OutputRef == "" {
					return fmt.Errorf("source %s has no audio yet", src.ID)
				}

				var job *jobs.Job
				if dynamic {
					job, err = store.NewDynamicMix(cmd.Context(), src.ID, src.Artist, src.Title)
				} else {
					stems := jobs.StemSelection{Vocals: vocals, Drums: drums, Bass: bass, Other: other}
					if !stems.Any() {
						return errors.New("select at least one stem, or pass --dynamic")
					}
					job, err = store.NewStaticMix(cmd.Context(), src.ID, src.Artist, src.Title, stems)
				}
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "queued %s job %s\n", job.Kind, job.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&vocals, "vocals", false, "Include vocals in the mix")
	cmd.Flags().BoolVar(&drums, "drums", false, "Include drums in the mix")
	cmd.Flags().BoolVar(&bass, "bass", false, "Include bass in the mix")
	cmd.Flags().BoolVar(&other, "other", false, "Include remaining instruments in the mix")
	cmd.Flags().BoolVar(&dynamic, "dynamic", false, "Produce all four stems as separate files")
	return cmd
}
