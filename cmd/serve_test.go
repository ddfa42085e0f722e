package cmd

import (
	"testing"

	"github.com/teemow/calsheet/internal/config"
)

func TestApplyServeFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cfg *config.Config)
		wantErr bool
	}{
		{
			name: "defaults leave config untouched",
			args: nil,
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.RefreshSchedule != config.Default().RefreshSchedule {
					t.Errorf("RefreshSchedule = %q, want default", cfg.RefreshSchedule)
				}
				if cfg.Metrics.Enabled {
					t.Error("Metrics.Enabled should stay false")
				}
			},
		},
		{
			name: "explicit flags override config",
			args: []string{
				"--google-client-id", "id",
				"--google-client-secret", "secret",
				"--refresh-schedule", "*/30 8-18 * * 1-5",
				"--metrics-enabled",
				"--metrics-addr", "127.0.0.1:9191",
			},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Google.ClientID != "id" || cfg.Google.ClientSecret != "secret" {
					t.Errorf("Google = %+v, want flag credentials", cfg.Google)
				}
				if cfg.RefreshSchedule != "*/30 8-18 * * 1-5" {
					t.Errorf("RefreshSchedule = %q", cfg.RefreshSchedule)
				}
				if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "127.0.0.1:9191" {
					t.Errorf("Metrics = %+v", cfg.Metrics)
				}
			},
		},
		{
			name:    "invalid schedule",
			args:    []string{"--refresh-schedule", "every now and then"},
			wantErr: true,
		},
		{
			name:    "unsupported transport",
			args:    []string{"--transport", "sse"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newServeCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			opts := serveOptions{}
			flags := cmd.Flags()
			opts.transport, _ = flags.GetString("transport")
			opts.googleClientID, _ = flags.GetString("google-client-id")
			opts.googleClientSecret, _ = flags.GetString("google-client-secret")
			opts.refreshSchedule, _ = flags.GetString("refresh-schedule")
			opts.metricsEnabled, _ = flags.GetBool("metrics-enabled")
			opts.metricsAddr, _ = flags.GetString("metrics-addr")

			cfg := config.Default()
			err := applyServeFlags(cmd, cfg, opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyServeFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestRootCommands(t *testing.T) {
	want := []string{"summary", "mark", "create", "auth", "config", "serve", "version", "generate-docs"}

	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Errorf("subcommand %q is not registered", name)
		}
	}

	markCmd, _, err := rootCmd.Find([]string{"mark", "complete"})
	if err != nil || markCmd.Name() != "complete" {
		t.Errorf("mark complete is not registered: %v", err)
	}
}
