package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/calsheet/internal/calendar"
	"github.com/teemow/calsheet/internal/config"
	"github.com/teemow/calsheet/internal/google"
	"github.com/teemow/calsheet/internal/instrumentation"
	"github.com/teemow/calsheet/internal/logging"
	"github.com/teemow/calsheet/internal/orchestrator"
	"github.com/teemow/calsheet/internal/resources"
	"github.com/teemow/calsheet/internal/scheduler"
	"github.com/teemow/calsheet/internal/server"
	"github.com/teemow/calsheet/internal/timesheet"
	"github.com/teemow/calsheet/internal/tools/google_tools"
	"github.com/teemow/calsheet/internal/tools/timesheet_tools"
)

// Supported MCP transports.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// serveOptions holds the flags of the serve command.
type serveOptions struct {
	transport          string
	httpAddr           string
	readOnly           bool
	disableStreaming   bool
	googleClientID     string
	googleClientSecret string
	refreshSchedule    string
	metricsEnabled     bool
	metricsAddr        string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide timesheet tools
for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp

The timesheet is refreshed on the refresh_schedule cron spec (default: every
hour) and whenever a tool changes the selected week or an event.

Safety Mode:
  Use --read-only to expose only the summary and navigation tools. Without it,
  tools that create events and change event colors are registered too.

Resources:
  timesheet://summary and timesheet://colors return the latest state without
  triggering a fetch.

Authorization:
  When no token is stored for the account, the server keeps running and the
  google_get_auth_url and google_save_auth_code tools complete the login.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := applyServeFlags(cmd, cfg, opts); err != nil {
				return err
			}
			return runServe(cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "Only register tools that do not write to the calendar")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().StringVar(&opts.googleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&opts.googleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&opts.refreshSchedule, "refresh-schedule", "", "Cron spec of the scheduled refresh, e.g. \"*/30 8-18 * * 1-5\". Can also use CALSHEET_REFRESH_SCHEDULE env var.")
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", false, "Enable the metrics and health server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// applyServeFlags overrides cfg with the flags the user set explicitly.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config, opts serveOptions) error {
	if opts.transport != transportStdio && opts.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", opts.transport, transportStdio, transportStreamableHTTP)
	}

	flags := cmd.Flags()
	if flags.Changed("google-client-id") {
		cfg.Google.ClientID = opts.googleClientID
	}
	if flags.Changed("google-client-secret") {
		cfg.Google.ClientSecret = opts.googleClientSecret
	}
	if flags.Changed("refresh-schedule") {
		cfg.RefreshSchedule = opts.refreshSchedule
	}
	if flags.Changed("metrics-enabled") {
		cfg.Metrics.Enabled = opts.metricsEnabled
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	return cfg.Validate()
}

func runServe(cfg *config.Config, opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout belongs to the stdio transport.
	logger := newLogger(os.Stderr, globals.debug)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Account = cfg.Account
	instrConfig.Timezone = cfg.Timezone

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	serverContext, err := newServerContext(shutdownCtx, cfg, provider, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := serverContext.Shutdown(ctx); err != nil {
			logger.Error("Error during server context shutdown", logging.Err(err))
		}
	}()

	healthChecker := server.NewHealthChecker(serverContext)

	// Start metrics server if enabled
	if cfg.Metrics.Enabled && provider.Enabled() {
		metricsServer, err := startMetricsServer(cfg.Metrics.Addr, provider, healthChecker, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("Error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("calsheet", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	if opts.readOnly {
		logger.Info("Starting server in READ-ONLY mode")
	}
	if err := registerAllTools(mcpSrv, serverContext, opts.readOnly); err != nil {
		return err
	}

	if err := serverContext.Start(); err != nil {
		return fmt.Errorf("failed to start timesheet: %w", err)
	}

	// Start the appropriate server based on transport type
	switch opts.transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	case transportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, opts, healthChecker, provider, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", opts.transport, transportStdio, transportStreamableHTTP)
	}
}

// newServerContext wires the calendar client, the login flow and the refresh
// schedule into a ServerContext.
func newServerContext(ctx context.Context, cfg *config.Config, provider *instrumentation.Provider, logger *slog.Logger) (*server.ServerContext, error) {
	loc := cfg.Location(logger)

	ticker, err := scheduler.NewCronTicker(cfg.RefreshSchedule, loc, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule: %w", err)
	}

	oauth := newOAuth(cfg)
	auth := google.NewPendingAuthenticator(oauth, cfg.Account, logger)
	cal := calendar.NewClient(oauth, calendar.Options{
		Account: cfg.Account,
		Logger:  logger,
		Metrics: provider.Metrics(),
	})

	runner := orchestrator.NewRunner(newMachine(cfg, loc, 0), cal, auth, orchestrator.RunnerOptions{
		Logger:  logger,
		Metrics: provider.Metrics(),
		Ticker:  ticker,
	})

	serverContext, err := server.NewServerContext(ctx, server.Config{
		Runner:          runner,
		Authenticator:   auth,
		Instrumentation: provider,
		Logger:          logger,
		StatusNames:     timesheet.StatusNames(cfg.CompleteColor, cfg.IncompleteColor),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	return serverContext, nil
}

func startMetricsServer(addr string, provider *instrumentation.Provider, health *server.HealthChecker, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		Health:                  health,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	// A bind failure surfaces immediately.
	select {
	case err := <-metricsErr:
		if err != nil {
			return nil, fmt.Errorf("metrics server failed to start: %w", err)
		}
	case <-time.After(200 * time.Millisecond):
	}

	logger.Info("Metrics server started", "addr", metricsServer.Addr())
	return metricsServer, nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Timesheet tools",
			register: func() error {
				return timesheet_tools.RegisterTimesheetTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Google tools",
			register: func() error {
				return google_tools.RegisterGoogleTools(mcpSrv, sc)
			},
		},
		{
			name: "Timesheet Resources",
			register: func() error {
				return resources.RegisterTimesheetResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, opts serveOptions, health *server.HealthChecker, provider *instrumentation.Provider, logger *slog.Logger) error {
	httpServer := server.NewHTTPServer(mcpSrv, server.HTTPServerConfig{
		Health:           health,
		Metrics:          provider.Metrics(),
		Logger:           logger,
		DisableStreaming: opts.disableStreaming,
	})

	fmt.Fprintf(os.Stderr, "Streamable HTTP server starting on %s\n", opts.httpAddr)
	fmt.Fprintf(os.Stderr, "  HTTP endpoint: /mcp\n")
	fmt.Fprintf(os.Stderr, "  Health endpoints: /healthz, /readyz, /healthz/detailed\n")

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(opts.httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
