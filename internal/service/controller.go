package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guras256/warp-dns-manager/internal/config"
	"github.com/guras256/warp-dns-manager/internal/failure"
)

// Tool is the per-service adapter around one external binary (the tunnel
// registration tool, the resolver CLI). Adapters hold no lifecycle state;
// the controller owns that.
type Tool interface {
	Name() string
	// Detect returns the best-known static state without mutating anything:
	// NotInstalled, Installed or Configured. Whether the service is actually
	// running is the unit's business, combined by the controller.
	Detect(ctx context.Context) (Status, error)
	Install(ctx context.Context) error
	Configure(ctx context.Context, cfg *config.Config) error
	// Verify runs a lightweight functional probe and returns pass/fail plus
	// diagnostic detail. It never changes lifecycle state.
	Verify(ctx context.Context) (bool, string)
}

// Controller drives the lifecycle state machine for one managed service:
//
//	NotInstalled → Installed → Configured → Starting → Running
//	Running → Stopping → Stopped
//	any → Failed on unrecoverable error
//
// Lifecycle-mutating calls are serialized by an internal mutex. Controllers
// for different services share no mutable state.
type Controller struct {
	// Confirmation polling tunables for Start/Stop. The exact curve is a
	// tunable, not a correctness requirement.
	ConfirmAttempts int
	ConfirmBackoff  time.Duration

	tool Tool
	unit Unit
	log  *slog.Logger

	mu    sync.Mutex
	state State
}

// NewController creates a controller for the given tool and unit.
func NewController(tool Tool, unit Unit, log *slog.Logger) *Controller {
	return &Controller{
		ConfirmAttempts: 5,
		ConfirmBackoff:  500 * time.Millisecond,
		tool:            tool,
		unit:            unit,
		log:             log,
		state: State{
			Name:   tool.Name(),
			Status: StatusUnknown,
		},
	}
}

// Name returns the managed service's name.
func (c *Controller) Name() string { return c.tool.Name() }

// State returns a copy of the current tracked state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Detect refreshes the tracked state from the host and returns a copy.
// It never fails fatally: an absent tool yields NotInstalled, an absent unit
// caps the state at what the tool reports.
func (c *Controller) Detect(ctx context.Context) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.tool.Detect(ctx)
	if err != nil {
		c.setStateLocked(StatusUnknown, err)
		return c.state
	}
	if st == StatusConfigured {
		if active, err := c.unit.IsActive(ctx); err == nil && active {
			st = StatusRunning
		}
	}
	c.setStateLocked(st, nil)
	return c.state
}

// Install installs the external tool. Requires NotInstalled; on failure the
// service stays NotInstalled and the error is returned for classification.
func (c *Controller) Install(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != StatusNotInstalled {
		return c.orderViolation("install", StatusNotInstalled)
	}
	if err := c.tool.Install(ctx); err != nil {
		c.state.LastError = err.Error()
		return fmt.Errorf("install %s: %w", c.Name(), err)
	}
	c.setStateLocked(StatusInstalled, nil)
	c.log.Info("service installed", "service", c.Name())
	return nil
}

// Configure writes the service-specific configuration derived from cfg.
// Requires at least Installed; Failed is allowed so a rollback can bring the
// service back to Configured. Idempotent for identical input.
func (c *Controller) Configure(ctx context.Context, cfg *config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Status.AtLeastInstalled() {
		return c.orderViolation("configure", StatusInstalled)
	}
	if err := c.tool.Configure(ctx, cfg); err != nil {
		c.state.LastError = err.Error()
		return fmt.Errorf("configure %s: %w", c.Name(), err)
	}
	c.setStateLocked(StatusConfigured, nil)
	c.log.Info("service configured", "service", c.Name())
	return nil
}

// Start brings the service up through the OS service manager and polls with
// increasing backoff until the transition is confirmed. Requires Configured
// or Stopped; ends Running, or Failed when confirmation never arrives.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != StatusConfigured && c.state.Status != StatusStopped {
		return c.orderViolation("start", StatusConfigured)
	}
	c.setStateLocked(StatusStarting, nil)

	if err := c.unit.Enable(ctx); err != nil {
		c.log.Warn("enable failed, continuing", "service", c.Name(), "error", err)
	}
	if err := c.unit.Start(ctx); err != nil {
		c.setStateLocked(StatusFailed, err)
		return fmt.Errorf("start %s: %w", c.Name(), err)
	}

	if err := c.confirmLocked(ctx, true); err != nil {
		c.setStateLocked(StatusFailed, err)
		return fmt.Errorf("start %s: %w", c.Name(), err)
	}
	c.setStateLocked(StatusRunning, nil)
	c.log.Info("service running", "service", c.Name())
	return nil
}

// Stop takes the service down and polls until confirmed. Requires Running;
// ends Stopped, or Failed when confirmation never arrives.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != StatusRunning {
		return c.orderViolation("stop", StatusRunning)
	}
	c.setStateLocked(StatusStopping, nil)

	if err := c.unit.Stop(ctx); err != nil {
		c.setStateLocked(StatusFailed, err)
		return fmt.Errorf("stop %s: %w", c.Name(), err)
	}

	if err := c.confirmLocked(ctx, false); err != nil {
		c.setStateLocked(StatusFailed, err)
		return fmt.Errorf("stop %s: %w", c.Name(), err)
	}
	c.setStateLocked(StatusStopped, nil)
	c.log.Info("service stopped", "service", c.Name())
	return nil
}

// Verify runs the tool's health probe without touching lifecycle state.
func (c *Controller) Verify(ctx context.Context) (bool, string) {
	ok, detail := c.tool.Verify(ctx)

	c.mu.Lock()
	c.state.CheckedAt = time.Now()
	c.mu.Unlock()
	return ok, detail
}

// confirmLocked polls the unit until it reaches the wanted active state,
// backing off exponentially between attempts. Cancellation mid-transition
// surfaces as an error; the caller marks the service Failed.
func (c *Controller) confirmLocked(ctx context.Context, wantActive bool) error {
	backoff := c.ConfirmBackoff
	for attempt := 1; attempt <= c.ConfirmAttempts; attempt++ {
		active, err := c.unit.IsActive(ctx)
		if err == nil && active == wantActive {
			return nil
		}
		if attempt == c.ConfirmAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("state not confirmed after %d attempts", c.ConfirmAttempts)
}

func (c *Controller) setStateLocked(st Status, err error) {
	c.state.Status = st
	c.state.CheckedAt = time.Now()
	if err != nil {
		c.state.LastError = err.Error()
	} else {
		c.state.LastError = ""
	}
}

func (c *Controller) orderViolation(op string, want Status) error {
	return fmt.Errorf("%w: %s %s requires state %s, currently %s",
		failure.ErrInvalidConfig, op, c.Name(), want, c.state.Status)
}
