// Package setup drives the end-to-end installation flow: probe the host,
// snapshot the config, then install, configure and start each enabled
// service in order, verifying at the end.
package setup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guras256/warp-dns-manager/internal/backup"
	"github.com/guras256/warp-dns-manager/internal/config"
	"github.com/guras256/warp-dns-manager/internal/failure"
	"github.com/guras256/warp-dns-manager/internal/platform"
	"github.com/guras256/warp-dns-manager/internal/service"
)

// Outcome summarizes how a setup run ended.
type Outcome int

const (
	// Completed means every step of every enabled service succeeded.
	Completed Outcome = iota
	// Partial means the services are up but at least one verification or
	// non-essential step failed; details are in the result warnings.
	Partial
	// Aborted means an essential step failed and the run stopped. If a
	// pre-setup backup existed, the configuration was rolled back to it.
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Partial:
		return "partially completed"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result reports what a setup run did and how it ended.
type Result struct {
	Outcome    Outcome
	FailedStep string
	Failure    *failure.Record
	RolledBack bool
	Warnings   []string
}

// Orchestrator owns the setup sequence. Each mutating step goes through the
// retry layer, so transient failures are absorbed before a step is declared
// failed.
type Orchestrator struct {
	Store    *config.Store
	Backups  *backup.Manager
	Tunnel   *service.Controller
	Resolver *service.Controller
	Probe    *platform.Probe
	Log      *slog.Logger

	// Prompt asks the user one question with a default. Nil means
	// non-interactive: defaults (and whatever is already in the config file)
	// are used as-is.
	Prompt func(label, def string) (string, error)
}

// CollectConfig merges the stored configuration with interactive answers.
// With no prompt function it returns the stored config untouched, which
// makes unattended setup a pure function of the config file.
func (o *Orchestrator) CollectConfig() (*config.Config, error) {
	cfg, err := o.Store.Load()
	if err != nil {
		return nil, err
	}
	if o.Prompt == nil {
		return cfg, nil
	}

	answer, err := o.ask("WARP license key (empty for free tier)", cfg.Tunnel.License)
	if err != nil {
		return nil, err
	}
	cfg.Tunnel.License = answer

	answer, err = o.ask("NextDNS profile id", cfg.Resolver.ProfileID)
	if err != nil {
		return nil, err
	}
	if answer != "" {
		cfg.Resolver.ProfileID = answer
	}
	return cfg, nil
}

func (o *Orchestrator) ask(label, def string) (string, error) {
	answer, err := o.Prompt(label, def)
	if err != nil {
		return "", fmt.Errorf("read answer for %q: %w", label, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Run executes the full setup sequence with the given desired configuration:
//
//	probe → backup → save config → install(both) → configure(both)
//	→ start(both) → verify(both) → final backup
//
// Essential-step failure aborts the run and rolls the configuration back to
// the pre-setup snapshot. Verification failures only degrade the outcome.
func (o *Orchestrator) Run(ctx context.Context, cfg *config.Config) *Result {
	res := &Result{Outcome: Completed}

	// Host checks come first: nothing has been mutated yet, so failing here
	// needs no rollback.
	if !o.Probe.Supported() {
		return o.abort(res, "probe", &failure.Record{
			Kind:      failure.ToolMissing,
			Component: "setup",
			Message:   fmt.Sprintf("unsupported platform %s", o.Probe.OSFamily()),
		}, nil)
	}
	if !o.Probe.IsRoot() {
		return o.abort(res, "probe", &failure.Record{
			Kind:      failure.PermissionDenied,
			Component: "setup",
			Message:   "setup must run as root",
		}, nil)
	}

	pre, err := o.snapshot("pre-setup")
	if err != nil {
		// No verified backup means no safe way to mutate anything.
		return o.abort(res, "backup", failure.Classify("backup", err), nil)
	}

	if err := o.Store.Save(cfg); err != nil {
		return o.abort(res, "save config", failure.Classify("config", err), pre)
	}

	targets := o.enabled(cfg)

	// Phases run across both services: install both, then configure both,
	// then start both. A failure in any phase aborts before the next phase
	// touches anything, which caps how far either service can have advanced.
	for _, t := range targets {
		st := t.Detect(ctx)
		o.Log.Info("service detected", "service", t.Name(), "status", st.Status.String())
	}

	for _, t := range targets {
		if t.State().Status != service.StatusNotInstalled {
			continue
		}
		if rec := failure.Retry(ctx, t.Name(), t.Install); rec != nil {
			return o.abort(res, t.Name(), rec, pre)
		}
	}

	for _, t := range targets {
		if t.State().Status == service.StatusRunning {
			continue
		}
		if rec := failure.Retry(ctx, t.Name(), func(ctx context.Context) error {
			return t.Configure(ctx, cfg)
		}); rec != nil {
			return o.abort(res, t.Name(), rec, pre)
		}
	}

	for _, t := range targets {
		if t.State().Status == service.StatusRunning {
			continue
		}
		if rec := failure.Retry(ctx, t.Name(), t.Start); rec != nil {
			return o.abort(res, t.Name(), rec, pre)
		}
	}

	for _, t := range targets {
		if ok, detail := t.Verify(ctx); !ok {
			res.Outcome = Partial
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s verification failed: %s", t.Name(), detail))
		}
	}

	cfg.SetupFinished = true
	if err := o.Store.Save(cfg); err != nil {
		res.Outcome = Partial
		res.Warnings = append(res.Warnings, fmt.Sprintf("mark setup finished: %v", err))
	}
	if _, err := o.snapshot("post-setup"); err != nil {
		res.Outcome = Partial
		res.Warnings = append(res.Warnings, fmt.Sprintf("final backup failed: %v", err))
	}

	o.Log.Info("setup finished", "outcome", res.Outcome.String(), "warnings", len(res.Warnings))
	return res
}

// Restore rewrites the stored configuration from the given backup and
// re-configures every enabled service that has passed installation. The
// services end Configured; restoring never implicitly restarts anything.
func (o *Orchestrator) Restore(ctx context.Context, id string) error {
	cfg, err := o.Backups.Restore(id)
	if err != nil {
		return err
	}
	if err := o.Store.Save(cfg); err != nil {
		return err
	}
	for _, t := range o.enabled(cfg) {
		if !t.Detect(ctx).Status.AtLeastInstalled() {
			continue
		}
		if err := t.Configure(ctx, cfg); err != nil {
			return fmt.Errorf("reapply %s config: %w", t.Name(), err)
		}
	}
	o.Log.Info("configuration restored", "backup", id)
	return nil
}

func (o *Orchestrator) enabled(cfg *config.Config) []*service.Controller {
	var targets []*service.Controller
	if cfg.Tunnel.Enabled {
		targets = append(targets, o.Tunnel)
	}
	if cfg.Resolver.Enabled {
		targets = append(targets, o.Resolver)
	}
	return targets
}

func (o *Orchestrator) snapshot(desc string) (*backup.Snapshot, error) {
	states := []service.State{o.Tunnel.State(), o.Resolver.State()}
	cfg, err := o.Store.Load()
	if err != nil {
		return nil, err
	}
	return o.Backups.Create(cfg, states, desc)
}

// abort finalizes a failed run. When a pre-setup snapshot exists, the stored
// configuration is rolled back to it; the services themselves are left for
// the user to inspect rather than blindly restarted.
func (o *Orchestrator) abort(res *Result, step string, rec *failure.Record, pre *backup.Snapshot) *Result {
	res.Outcome = Aborted
	res.FailedStep = step
	res.Failure = rec
	o.Log.Error("setup step failed", "step", step, "kind", rec.Kind.String(), "error", rec.Message)

	if pre != nil {
		if err := o.rollback(pre); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("rollback failed: %v", err))
		} else {
			res.RolledBack = true
			o.Log.Info("configuration rolled back", "backup", pre.ID)
		}
	}
	return res
}

func (o *Orchestrator) rollback(pre *backup.Snapshot) error {
	cfg, err := o.Backups.Restore(pre.ID)
	if err != nil {
		return err
	}
	return o.Store.Save(cfg)
}
