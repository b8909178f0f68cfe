package setup_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/guras256/warp-dns-manager/internal/backup"
	"github.com/guras256/warp-dns-manager/internal/config"
	"github.com/guras256/warp-dns-manager/internal/failure"
	"github.com/guras256/warp-dns-manager/internal/platform"
	"github.com/guras256/warp-dns-manager/internal/service"
	"github.com/guras256/warp-dns-manager/internal/setup"
)

type stubTool struct {
	name       string
	detect     service.Status
	installErr error
	configErr  error
}

func (s *stubTool) Name() string { return s.name }

func (s *stubTool) Detect(context.Context) (service.Status, error) { return s.detect, nil }

func (s *stubTool) Install(context.Context) error {
	if s.installErr != nil {
		return s.installErr
	}
	s.detect = service.StatusInstalled
	return nil
}

func (s *stubTool) Configure(context.Context, *config.Config) error {
	if s.configErr != nil {
		return s.configErr
	}
	s.detect = service.StatusConfigured
	return nil
}

func (s *stubTool) Verify(context.Context) (bool, string) { return true, "ok" }

type stubUnit struct{ active bool }

func (s *stubUnit) Enable(context.Context) error           { return nil }
func (s *stubUnit) Disable(context.Context) error          { return nil }
func (s *stubUnit) Start(context.Context) error            { s.active = true; return nil }
func (s *stubUnit) Stop(context.Context) error             { s.active = false; return nil }
func (s *stubUnit) IsActive(context.Context) (bool, error) { return s.active, nil }

type fixture struct {
	orch     *setup.Orchestrator
	store    *config.Store
	backups  *backup.Manager
	tunnel   *stubTool
	resolver *stubTool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	oldBase, oldMax := failure.BaseBackoff, failure.MaxAttempts
	failure.BaseBackoff = time.Millisecond
	failure.MaxAttempts = 2
	t.Cleanup(func() {
		failure.BaseBackoff = oldBase
		failure.MaxAttempts = oldMax
	})

	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := config.NewStore(filepath.Join(dir, "config.yaml"))
	backups := backup.NewManager(filepath.Join(dir, "backups"), 0)

	tunnelTool := &stubTool{name: "tunnel", detect: service.StatusNotInstalled}
	resolverTool := &stubTool{name: "resolver", detect: service.StatusNotInstalled}

	tunnel := service.NewController(tunnelTool, &stubUnit{}, log)
	resolver := service.NewController(resolverTool, &stubUnit{}, log)
	tunnel.ConfirmBackoff = time.Millisecond
	resolver.ConfirmBackoff = time.Millisecond

	probe := platform.NewProbe(&platform.ExecRunner{})
	probe.Geteuid = func() int { return 0 }

	return &fixture{
		orch: &setup.Orchestrator{
			Store:    store,
			Backups:  backups,
			Tunnel:   tunnel,
			Resolver: resolver,
			Probe:    probe,
			Log:      log,
		},
		store:    store,
		backups:  backups,
		tunnel:   tunnelTool,
		resolver: resolverTool,
	}
}

func TestRunCompletes(t *testing.T) {
	f := newFixture(t)

	cfg, err := f.orch.CollectConfig()
	if err != nil {
		t.Fatal(err)
	}
	res := f.orch.Run(context.Background(), cfg)

	if res.Outcome != setup.Completed {
		t.Fatalf("outcome = %s, failure = %v, warnings = %v", res.Outcome, res.Failure, res.Warnings)
	}

	saved, _ := f.store.Load()
	if !saved.SetupFinished {
		t.Fatal("setup finished flag not persisted")
	}

	// Pre- and post-setup snapshots.
	snaps, _ := f.backups.List()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(snaps))
	}
	if snaps[0].Description != "pre-setup" || snaps[1].Description != "post-setup" {
		t.Fatalf("unexpected backup descriptions: %s, %s", snaps[0].Description, snaps[1].Description)
	}
}

func TestRunSkipsDisabledService(t *testing.T) {
	f := newFixture(t)

	cfg, _ := f.orch.CollectConfig()
	cfg.Tunnel.Enabled = false
	res := f.orch.Run(context.Background(), cfg)

	if res.Outcome != setup.Completed {
		t.Fatalf("outcome = %s, failure = %v", res.Outcome, res.Failure)
	}
	if f.tunnel.detect != service.StatusNotInstalled {
		t.Fatal("disabled tunnel was touched")
	}
	if f.resolver.detect != service.StatusConfigured {
		t.Fatal("enabled resolver was not brought up")
	}
}

func TestRunAbortsAndRollsBack(t *testing.T) {
	f := newFixture(t)

	// Persist a known-good config the rollback should restore.
	good, _ := f.store.Load()
	good.Resolver.ProfileID = "good-profile"
	if err := f.store.Save(good); err != nil {
		t.Fatal(err)
	}

	f.tunnel.configErr = fmt.Errorf("profile rejected: %w", failure.ErrInvalidConfig)

	cfg, _ := f.orch.CollectConfig()
	cfg.Resolver.ProfileID = "bad-profile"
	res := f.orch.Run(context.Background(), cfg)

	if res.Outcome != setup.Aborted {
		t.Fatalf("outcome = %s, want aborted", res.Outcome)
	}
	if res.FailedStep != "tunnel" {
		t.Fatalf("failed step = %q", res.FailedStep)
	}
	if res.Failure == nil || res.Failure.Kind != failure.ConfigInvalid {
		t.Fatalf("failure = %+v", res.Failure)
	}
	if !res.RolledBack {
		t.Fatal("expected rollback")
	}

	restored, _ := f.store.Load()
	if restored.Resolver.ProfileID != "good-profile" {
		t.Fatalf("config not rolled back: %+v", restored.Resolver)
	}
	// A configure-phase failure means neither service advanced past install:
	// nothing has started because the start phase never ran.
	if f.tunnel.detect != service.StatusInstalled {
		t.Fatalf("tunnel advanced past the failed step: %s", f.tunnel.detect)
	}
	if f.resolver.detect != service.StatusInstalled {
		t.Fatalf("resolver advanced past the failed step: %s", f.resolver.detect)
	}
}

func TestRestoreReconfiguresInstalledServices(t *testing.T) {
	f := newFixture(t)

	cfg, _ := f.orch.CollectConfig()
	res := f.orch.Run(context.Background(), cfg)
	if res.Outcome != setup.Completed {
		t.Fatalf("setup failed: %+v", res)
	}
	pre, err := f.backups.Latest()
	if err != nil || pre == nil {
		t.Fatalf("no backup after setup: %v", err)
	}

	// Drift the stored config, then restore the snapshot.
	drifted, _ := f.store.Load()
	drifted.Resolver.ProfileID = "drifted"
	f.store.Save(drifted)

	if err := f.orch.Restore(context.Background(), pre.ID); err != nil {
		t.Fatal(err)
	}

	restored, _ := f.store.Load()
	if restored.Resolver.ProfileID == "drifted" {
		t.Fatal("restore did not rewrite the config")
	}
	// Restore re-applies config; it never starts services.
	if f.orch.Resolver.State().Status != service.StatusConfigured {
		t.Fatalf("resolver state after restore: %s", f.orch.Resolver.State().Status)
	}
}

func TestRunRequiresRoot(t *testing.T) {
	f := newFixture(t)
	f.orch.Probe.Geteuid = func() int { return 1000 }

	cfg, _ := f.orch.CollectConfig()
	res := f.orch.Run(context.Background(), cfg)

	if res.Outcome != setup.Aborted {
		t.Fatalf("outcome = %s, want aborted", res.Outcome)
	}
	if res.Failure.Kind != failure.PermissionDenied {
		t.Fatalf("failure kind = %s", res.Failure.Kind)
	}
	if res.RolledBack {
		t.Fatal("nothing was mutated, nothing should roll back")
	}
	snaps, _ := f.backups.List()
	if len(snaps) != 0 {
		t.Fatalf("pre-flight failure still wrote %d backups", len(snaps))
	}
}

func TestRunVerificationFailureIsPartial(t *testing.T) {
	f := newFixture(t)
	f.tunnel.name = "tunnel"
	verifyFail := &verifyFailTool{stubTool: f.tunnel}
	f.orch.Tunnel = service.NewController(verifyFail, &stubUnit{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.orch.Tunnel.ConfirmBackoff = time.Millisecond

	cfg, _ := f.orch.CollectConfig()
	res := f.orch.Run(context.Background(), cfg)

	if res.Outcome != setup.Partial {
		t.Fatalf("outcome = %s, want partial (warnings: %v)", res.Outcome, res.Warnings)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a verification warning")
	}
}

type verifyFailTool struct{ *stubTool }

func (v *verifyFailTool) Verify(context.Context) (bool, string) {
	return false, "trace reports warp=off"
}
