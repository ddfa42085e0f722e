package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calsheet/internal/orchestrator"
)

func newSummaryCmd() *cobra.Command {
	var (
		weeksBack int
		format    string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the timesheet of a week",
		Long: `Print the minutes per client and workday of the selected week, split by
event color, followed by a total row. Saturday and Sunday count towards Monday.

Weeks start on Monday in the configured timezone. Use --weeks-back to look at
earlier weeks; negative values select future weeks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			s, err := openSession(ctx, cmd, weeksBack)
			if err != nil {
				return err
			}
			defer s.stop()

			v, err := s.settle(ctx)
			if err != nil {
				return err
			}
			if err := printView(cmd.OutOrStdout(), v, s.names, format); err != nil {
				return err
			}
			if v.State == orchestrator.StateEventsFailed {
				return errors.New(v.Reason())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&weeksBack, "weeks-back", 0, "Number of weeks before the current one")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultCommandTimeout, "Give up after this long, including the login prompt")

	return cmd
}
