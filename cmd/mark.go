package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calsheet/internal/orchestrator"
	"github.com/teemow/calsheet/internal/tools/batch"
)

func newMarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Mark a client's events as complete or incomplete",
		Long: `Change the color of every event in the selected week whose title equals
the client name exactly. The colors come from complete_color and
incomplete_color in the configuration.`,
	}

	cmd.AddCommand(newMarkStatusCmd("complete", func(r *orchestrator.Runner) markFunc { return r.MarkComplete }))
	cmd.AddCommand(newMarkStatusCmd("incomplete", func(r *orchestrator.Runner) markFunc { return r.MarkIncomplete }))

	return cmd
}

type markFunc func(ctx context.Context, name string) (orchestrator.Ack, error)

func newMarkStatusCmd(status string, pick func(*orchestrator.Runner) markFunc) *cobra.Command {
	var (
		weeksBack int
		format    string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   status + " NAME...",
		Short: fmt.Sprintf("Mark every event of the given clients as %s", status),
		Args:  cobra.MinimumNArgs(1),
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

			if _, err := s.loaded(ctx); err != nil {
				return err
			}

			br, v, err := markClients(ctx, s.runner, pick(s.runner), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range br.Results {
				switch r.Status {
				case batch.StatusSuccess:
					fmt.Fprintf(out, "%s: %s\n", r.Item, r.Result)
				default:
					fmt.Fprintf(out, "%s: %s (%s)\n", r.Item, r.Error, r.Status)
				}
			}
			if br.Note != "" {
				fmt.Fprintf(out, "Note: %s\n", br.Note)
			}
			fmt.Fprintln(out)

			if err := printView(out, v, s.names, format); err != nil {
				return err
			}
			if br.Failed > 0 {
				return fmt.Errorf("%d of %d client(s) could not be marked %s", br.Failed, br.Total, status)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&weeksBack, "weeks-back", 0, "Number of weeks before the current one")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format of the summary: table or json")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultCommandTimeout, "Give up after this long, including the login prompt")

	return cmd
}

// markClients retags the events of every name, waits for all color changes
// to be acknowledged and returns the refreshed view.
func markClients(ctx context.Context, runner *orchestrator.Runner, mark markFunc, names []string) (batch.BatchResult, orchestrator.View, error) {
	before := runner.View()

	matched := 0
	results := batch.ProcessBatch(ctx, names, func(ctx context.Context, name string) (string, error) {
		ack, err := mark(ctx, name)
		if err != nil {
			return "", err
		}
		if ack.Matched == 0 {
			return "", fmt.Errorf("no events named %q in the selected week: %w", name, batch.ErrSkipped)
		}
		matched += ack.Matched
		return fmt.Sprintf("changed color of %d event(s)", ack.Matched), nil
	})
	br := batch.Summarize(results)

	if matched == 0 {
		return br, runner.View(), nil
	}

	// The last acknowledgement triggers a refresh with a new generation.
	v, err := runner.Wait(ctx, func(v orchestrator.View) bool {
		return v.Pending == 0 && v.Generation > before.Generation && orchestrator.Settled(v)
	})
	if err != nil {
		return br, v, fmt.Errorf("color changes were not acknowledged (%d pending): %w", v.Pending, err)
	}
	if v.Notice != nil && v.Notice != before.Notice {
		br.Note = v.Notice.Error()
	}
	return br, v, nil
}
