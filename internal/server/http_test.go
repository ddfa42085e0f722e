package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

func TestHTTPServer_Handler(t *testing.T) {
	sc := newTestServerContext(t, Config{})
	mcpSrv := mcpserver.NewMCPServer("calsheet-test", "test", mcpserver.WithToolCapabilities(true))
	srv := NewHTTPServer(mcpSrv, HTTPServerConfig{Health: NewHealthChecker(sc)})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/mcp", strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /mcp error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST /mcp status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestHTTPServer_ShutdownBeforeStart(t *testing.T) {
	srv := NewHTTPServer(mcpserver.NewMCPServer("calsheet-test", "test"), HTTPServerConfig{})
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
