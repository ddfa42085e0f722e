package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calsheet/internal/instrumentation"
)

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	// Health serves /healthz, /readyz and /healthz/detailed. Optional.
	Health *HealthChecker
	// Metrics records every request. Optional.
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
	// DisableStreaming answers with plain JSON instead of SSE streams.
	DisableStreaming bool
}

// HTTPServer serves the MCP streamable HTTP transport on /mcp next to the
// health endpoints.
type HTTPServer struct {
	mcpServer *mcpserver.MCPServer
	config    HTTPServerConfig

	mu         sync.Mutex
	httpServer *http.Server
}

// NewHTTPServer creates an HTTPServer for mcpSrv.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, config HTTPServerConfig) *HTTPServer {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &HTTPServer{mcpServer: mcpSrv, config: config}
}

// Handler returns the instrumented mux.
func (s *HTTPServer) Handler() http.Handler {
	opts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath("/mcp")}
	if s.config.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...))
	if s.config.Health != nil {
		s.config.Health.RegisterHealthEndpoints(mux)
	}

	return InstrumentHTTP(s.config.Metrics, s.config.Logger)(mux)
}

// Start listens on addr and blocks until the server stops.
func (s *HTTPServer) Start(addr string) error {
	// Streamed responses stay open, so there is no write timeout.
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.config.Logger.Info("starting MCP HTTP server", "addr", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}
