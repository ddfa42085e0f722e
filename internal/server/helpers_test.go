package server

import (
	"context"
	"testing"
	"time"

	"github.com/teemow/calsheet/internal/orchestrator"
	"github.com/teemow/calsheet/internal/orchestrator/orchestratortest"
)

func newTestRunner(auth orchestrator.Authenticator) *orchestrator.Runner {
	return orchestratortest.NewRunner(orchestratortest.NewCalendar(), auth, time.Time{})
}

func newTestServerContext(t *testing.T, cfg Config) *ServerContext {
	t.Helper()
	if cfg.Runner == nil {
		cfg.Runner = newTestRunner(nil)
	}
	sc, err := NewServerContext(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sc.Shutdown(ctx)
	})
	return sc
}

func waitLoaded(t *testing.T, sc *ServerContext) orchestrator.View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := sc.Runner().Wait(ctx, orchestrator.View.Loaded)
	if err != nil {
		t.Fatalf("timesheet did not load: %v (state %s)", err, v.State)
	}
	return v
}
