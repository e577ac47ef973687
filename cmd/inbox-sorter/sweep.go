package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obby/inbox-sorter/internal/coordinator"
	"github.com/obby/inbox-sorter/internal/metrics"
	"github.com/obby/inbox-sorter/internal/mover"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Sort the files already in the source directory once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, wc, err := ctx.resolved(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			coord, err := newCoordinator(wc, logger, metrics.New(), nil)
			if err != nil {
				return err
			}
			coord.Start()
			defer coord.Stop()

			results, err := coord.Sweep(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				switch r.Disposition {
				case coordinator.DispositionMoved:
					fmt.Fprintf(out, "%s -> %s\n", r.Outcome.OriginalName, r.Outcome.Destination)
				case coordinator.DispositionFailed:
					failed++
					fmt.Fprintf(out, "%s: %s: %v\n", r.Outcome.OriginalName, mover.KindOf(r.Outcome.Err), r.Outcome.Err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be moved", failed, len(results))
			}
			return nil
		},
	}
}
