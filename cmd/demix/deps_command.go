package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"demix/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check availability of required external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.RequirementsFor(cfg))

			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = "missing"
					if status.Optional {
						state = "missing (optional)"
					}
				}
				detail := status.Description
				if status.Detail != "" {
					detail = status.Detail
				}
				rows = append(rows, []string{status.Name, status.Command, state, detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tool", "Command", "State", "Detail"},
				rows,
				nil,
			))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, status := range missing {
					names = append(names, status.Name)
				}
				return fmt.Errorf("missing required tools: %s", strings.Join(names, ", "))
			}
			return nil
		},
	}
}
