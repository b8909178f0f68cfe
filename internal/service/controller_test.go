package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/guras256/warp-dns-manager/internal/config"
	"github.com/guras256/warp-dns-manager/internal/failure"
	"github.com/guras256/warp-dns-manager/internal/service"
)

type fakeTool struct {
	name       string
	detect     service.Status
	installs   int
	configures int
	installErr error
	configErr  error
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Detect(context.Context) (service.Status, error) {
	return f.detect, nil
}

func (f *fakeTool) Install(context.Context) error {
	f.installs++
	if f.installErr != nil {
		return f.installErr
	}
	f.detect = service.StatusInstalled
	return nil
}

func (f *fakeTool) Configure(context.Context, *config.Config) error {
	f.configures++
	if f.configErr != nil {
		return f.configErr
	}
	f.detect = service.StatusConfigured
	return nil
}

func (f *fakeTool) Verify(context.Context) (bool, string) { return true, "ok" }

type fakeUnit struct {
	active    bool
	startErr  error
	stopErr   error
	sticky    bool // when set, Start/Stop do not change active
	activeErr error
}

func (f *fakeUnit) Enable(context.Context) error  { return nil }
func (f *fakeUnit) Disable(context.Context) error { return nil }

func (f *fakeUnit) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	if !f.sticky {
		f.active = true
	}
	return nil
}

func (f *fakeUnit) Stop(context.Context) error {
	if f.stopErr != nil {
		return f.stopErr
	}
	if !f.sticky {
		f.active = false
	}
	return nil
}

func (f *fakeUnit) IsActive(context.Context) (bool, error) {
	return f.active, f.activeErr
}

func newTestController(tool *fakeTool, unit *fakeUnit) *service.Controller {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := service.NewController(tool, unit, log)
	c.ConfirmBackoff = time.Millisecond
	return c
}

func TestDetectCombinesToolAndUnit(t *testing.T) {
	tool := &fakeTool{name: "svc", detect: service.StatusConfigured}
	unit := &fakeUnit{active: true}
	c := newTestController(tool, unit)

	st := c.Detect(context.Background())
	if st.Status != service.StatusRunning {
		t.Fatalf("configured + active unit should detect as running, got %s", st.Status)
	}

	unit.active = false
	st = c.Detect(context.Background())
	if st.Status != service.StatusConfigured {
		t.Fatalf("configured + inactive unit should stay configured, got %s", st.Status)
	}
}

func TestFullLifecycle(t *testing.T) {
	tool := &fakeTool{name: "svc", detect: service.StatusNotInstalled}
	unit := &fakeUnit{}
	c := newTestController(tool, unit)
	ctx := context.Background()

	c.Detect(ctx)
	if err := c.Install(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Configure(ctx, &config.Config{}); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if c.State().Status != service.StatusRunning {
		t.Fatalf("expected running, got %s", c.State().Status)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if c.State().Status != service.StatusStopped {
		t.Fatalf("expected stopped, got %s", c.State().Status)
	}
	// A stopped service can start again without reconfiguring.
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestNoStateSkipping(t *testing.T) {
	tool := &fakeTool{name: "svc", detect: service.StatusNotInstalled}
	c := newTestController(tool, &fakeUnit{})
	ctx := context.Background()
	c.Detect(ctx)

	if err := c.Start(ctx); err == nil {
		t.Fatal("start before install should fail")
	} else if !errors.Is(err, failure.ErrInvalidConfig) {
		t.Fatalf("order violation should classify as invalid config: %v", err)
	}
	if err := c.Configure(ctx, &config.Config{}); err == nil {
		t.Fatal("configure before install should fail")
	}
	if err := c.Stop(ctx); err == nil {
		t.Fatal("stop before running should fail")
	}
	if tool.installs != 0 || tool.configures != 0 {
		t.Fatalf("rejected operations still ran the tool: %+v", tool)
	}
}

func TestInstallTwiceRejected(t *testing.T) {
	tool := &fakeTool{name: "svc", detect: service.StatusNotInstalled}
	c := newTestController(tool, &fakeUnit{})
	ctx := context.Background()
	c.Detect(ctx)

	if err := c.Install(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Install(ctx); err == nil {
		t.Fatal("second install should be rejected")
	}
	if tool.installs != 1 {
		t.Fatalf("tool installed %d times", tool.installs)
	}
}

func TestStartUnconfirmedFails(t *testing.T) {
	tool := &fakeTool{name: "svc", detect: service.StatusConfigured}
	unit := &fakeUnit{sticky: true} // unit never reports active
	c := newTestController(tool, unit)
	c.ConfirmAttempts = 2
	ctx := context.Background()
	c.Detect(ctx)

	if err := c.Start(ctx); err == nil {
		t.Fatal("expected start to fail without confirmation")
	}
	if c.State().Status != service.StatusFailed {
		t.Fatalf("expected failed, got %s", c.State().Status)
	}
}

func TestConfigureRecoversFromFailed(t *testing.T) {
	tool := &fakeTool{name: "svc", detect: service.StatusConfigured}
	unit := &fakeUnit{sticky: true}
	c := newTestController(tool, unit)
	c.ConfirmAttempts = 1
	ctx := context.Background()
	c.Detect(ctx)

	if err := c.Start(ctx); err == nil {
		t.Fatal("expected start failure")
	}

	// Rollback path: a failed service may be re-configured, nothing else.
	if err := c.Configure(ctx, &config.Config{}); err != nil {
		t.Fatal(err)
	}
	if c.State().Status != service.StatusConfigured {
		t.Fatalf("expected configured after recovery, got %s", c.State().Status)
	}
}

func TestStartCancelledMarksFailed(t *testing.T) {
	tool := &fakeTool{name: "svc", detect: service.StatusConfigured}
	unit := &fakeUnit{sticky: true}
	c := newTestController(tool, unit)
	c.ConfirmAttempts = 50
	ctx, cancel := context.WithCancel(context.Background())
	c.Detect(ctx)

	cancel()
	if err := c.Start(ctx); err == nil {
		t.Fatal("expected error on cancelled start")
	}
	if c.State().Status != service.StatusFailed {
		t.Fatalf("cancellation mid-transition should fail the service, got %s", c.State().Status)
	}
}
