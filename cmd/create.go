package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calsheet/internal/orchestrator"
)

func newCreateCmd() *cobra.Command {
	var (
		format  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an event for a client starting now",
		Long: `Create an event titled NAME in the primary calendar. It starts at the
current time rounded down to the quarter hour and lasts new_event_duration
(one hour by default). The current week's summary is printed afterwards.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			s, err := openSession(ctx, cmd, 0)
			if err != nil {
				return err
			}
			defer s.stop()

			if _, err := s.loaded(ctx); err != nil {
				return err
			}

			name := strings.Join(args, " ")
			v, err := createEvent(ctx, s.runner, name)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created event %q.\n\n", name)
			return printView(cmd.OutOrStdout(), v, s.names, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format of the summary: table or json")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultCommandTimeout, "Give up after this long, including the login prompt")

	return cmd
}

// createEvent creates an event called name and waits for the refresh that
// follows. A rejected event is returned as an error.
func createEvent(ctx context.Context, runner *orchestrator.Runner, name string) (orchestrator.View, error) {
	before := runner.View()
	if err := runner.CreateNewEvent(ctx, name); err != nil {
		return before, err
	}

	v, err := runner.Wait(ctx, func(v orchestrator.View) bool {
		return (v.Generation > before.Generation && orchestrator.Settled(v)) || v.Notice != before.Notice
	})
	if err != nil {
		return v, fmt.Errorf("event was not confirmed: %w", err)
	}
	if v.Notice != nil && v.Notice != before.Notice {
		return v, v.Notice
	}
	return v, nil
}
