package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calsheet/internal/calendar"
	"github.com/teemow/calsheet/internal/config"
	"github.com/teemow/calsheet/internal/google"
	"github.com/teemow/calsheet/internal/orchestrator"
	"github.com/teemow/calsheet/internal/timesheet"
)

// Output formats of the summary.
const (
	formatTable = "table"
	formatJSON  = "json"
)

// defaultCommandTimeout bounds a CLI command including the login prompt.
const defaultCommandTimeout = 5 * time.Minute

// loadConfig loads the configuration file and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globals.configPath)
	if err != nil {
		return nil, err
	}

	if globals.account != "" {
		cfg.Account = globals.account
	}
	if globals.timezone != "" {
		cfg.Timezone = globals.timezone
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns a text logger writing to w.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newOAuth(cfg *config.Config) *google.OAuth {
	return google.NewOAuth(google.Credentials{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
	}, cfg.Google.TokenDir)
}

func newMachine(cfg *config.Config, loc *time.Location, weeksBack int) *orchestrator.Machine {
	return orchestrator.NewMachine(orchestrator.Config{
		Location:         loc,
		CompleteColor:    cfg.CompleteColor,
		IncompleteColor:  cfg.IncompleteColor,
		NewEventDuration: cfg.NewEventDuration,
		WeeksBack:        weeksBack,
	})
}

// session runs an orchestrator for a single CLI command.
type session struct {
	cfg    *config.Config
	runner *orchestrator.Runner
	names  map[string]string
	stop   func()
}

// openSession starts a runner against the user's calendar. Login prompts are
// written to the command's error stream so stdout carries only the result.
func openSession(ctx context.Context, cmd *cobra.Command, weeksBack int) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), globals.debug)
	loc := cfg.Location(logger)
	oauth := newOAuth(cfg)

	auth := google.NewInteractiveAuthenticator(oauth, cfg.Account, cmd.InOrStdin(), cmd.ErrOrStderr())
	cal := calendar.NewClient(oauth, calendar.Options{Account: cfg.Account, Logger: logger})
	runner := orchestrator.NewRunner(newMachine(cfg, loc, weeksBack), cal, auth, orchestrator.RunnerOptions{Logger: logger})

	return startSession(ctx, cfg, runner)
}

func startSession(ctx context.Context, cfg *config.Config, runner *orchestrator.Runner) (*session, error) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	s := &session{
		cfg:    cfg,
		runner: runner,
		names:  timesheet.StatusNames(cfg.CompleteColor, cfg.IncompleteColor),
		stop: func() {
			cancel()
			<-done
		},
	}

	if err := runner.Start(ctx); err != nil {
		s.stop()
		return nil, fmt.Errorf("failed to start timesheet: %w", err)
	}
	return s, nil
}

// settle waits until no request is outstanding. A failed login is an error;
// a failed fetch is returned in the view.
func (s *session) settle(ctx context.Context) (orchestrator.View, error) {
	v, err := s.runner.Wait(ctx, orchestrator.Settled)
	if err != nil {
		return v, fmt.Errorf("timesheet did not load (state %s): %w", v.State, err)
	}
	if v.State == orchestrator.StateUnauthenticated {
		return v, fmt.Errorf("login failed: %s", v.Reason())
	}
	return v, nil
}

// loaded waits for the events of the selected week.
func (s *session) loaded(ctx context.Context) (orchestrator.View, error) {
	v, err := s.settle(ctx)
	if err != nil {
		return v, err
	}
	if !v.Loaded() {
		return v, fmt.Errorf("failed to load events: %s", v.Reason())
	}
	return v, nil
}

// printView writes v to w in format.
func printView(w io.Writer, v orchestrator.View, names map[string]string, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v.Report(names))
	case formatTable, "":
		_, err := io.WriteString(w, v.Text(names))
		return err
	default:
		return fmt.Errorf("unsupported format: %s (supported: %s, %s)", format, formatTable, formatJSON)
	}
}

func validateFormat(format string) error {
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unsupported format: %s (supported: %s, %s)", format, formatTable, formatJSON)
	}
	return nil
}
