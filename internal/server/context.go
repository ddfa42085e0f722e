package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/calsheet/internal/google"
	"github.com/teemow/calsheet/internal/instrumentation"
	"github.com/teemow/calsheet/internal/logging"
	"github.com/teemow/calsheet/internal/orchestrator"
)

// Config holds the dependencies of a ServerContext.
type Config struct {
	Runner *orchestrator.Runner
	// Authenticator receives codes submitted through the MCP tools. Optional.
	Authenticator   *google.PendingAuthenticator
	Instrumentation *instrumentation.Provider
	Logger          *slog.Logger
	// StatusNames labels color tags in rendered summaries, see
	// timesheet.StatusNames.
	StatusNames map[string]string
}

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx             context.Context
	cancel          context.CancelFunc
	runner          *orchestrator.Runner
	auth            *google.PendingAuthenticator
	instrumentation *instrumentation.Provider
	logger          *slog.Logger
	statusNames     map[string]string

	mu       sync.RWMutex
	shutdown bool
	started  bool
	done     chan struct{}
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, cfg Config) (*ServerContext, error) {
	if cfg.Runner == nil {
		return nil, errors.New("orchestrator runner is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:             shutdownCtx,
		cancel:          cancel,
		runner:          cfg.Runner,
		auth:            cfg.Authenticator,
		instrumentation: cfg.Instrumentation,
		logger:          cfg.Logger,
		statusNames:     cfg.StatusNames,
		done:            make(chan struct{}),
	}, nil
}

// Start runs the orchestrator in the background and begins authentication
// and calendar discovery. It does not wait for the first summary.
func (sc *ServerContext) Start() error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return orchestrator.ErrStopped
	}
	if sc.started {
		sc.mu.Unlock()
		return nil
	}
	sc.started = true
	sc.mu.Unlock()

	go func() {
		defer close(sc.done)
		if err := sc.runner.Run(sc.ctx); err != nil {
			sc.logger.Error("orchestrator stopped", logging.Err(err))
		}
	}()

	return sc.runner.Start(sc.ctx)
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Runner returns the timesheet orchestrator.
func (sc *ServerContext) Runner() *orchestrator.Runner {
	return sc.runner
}

// Authenticator returns the pending Google authorizer, or nil.
func (sc *ServerContext) Authenticator() *google.PendingAuthenticator {
	return sc.auth
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// StatusNames returns the labels of the status color tags.
func (sc *ServerContext) StatusNames() map[string]string {
	return sc.statusNames
}

// Metrics returns the metrics recorder. It is a no-op recorder when
// instrumentation is not configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	if sc.instrumentation == nil || sc.instrumentation.Metrics() == nil {
		return &instrumentation.Metrics{}
	}
	return sc.instrumentation.Metrics()
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown stops the orchestrator and waits for it to finish or for ctx to
// expire.
func (sc *ServerContext) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil
	}
	sc.shutdown = true
	started := sc.started
	sc.mu.Unlock()

	sc.cancel()
	if !started {
		return nil
	}

	select {
	case <-sc.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
