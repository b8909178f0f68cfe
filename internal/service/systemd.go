package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/guras256/warp-dns-manager/internal/platform"
)

// ErrUnitNotFound marks a unit the service manager does not know about.
// Callers treat it as "not installed", not as a crash.
var ErrUnitNotFound = errors.New("unit not found")

// Unit abstracts the OS service manager for one named unit.
type Unit interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsActive(ctx context.Context) (bool, error)
}

// SystemdUnit drives one systemd unit through systemctl.
type SystemdUnit struct {
	Name string
	Run  platform.Runner
}

func (u SystemdUnit) systemctl(ctx context.Context, verb string) error {
	res, err := u.Run.Run(ctx, "systemctl", verb, u.Name)
	if err != nil {
		if unitMissing(res.Stderr) {
			return fmt.Errorf("%s %s: %w", verb, u.Name, ErrUnitNotFound)
		}
		return err
	}
	return nil
}

func (u SystemdUnit) Enable(ctx context.Context) error  { return u.systemctl(ctx, "enable") }
func (u SystemdUnit) Disable(ctx context.Context) error { return u.systemctl(ctx, "disable") }
func (u SystemdUnit) Start(ctx context.Context) error   { return u.systemctl(ctx, "start") }
func (u SystemdUnit) Stop(ctx context.Context) error    { return u.systemctl(ctx, "stop") }

// IsActive reports whether the unit is currently active. A missing unit
// reports inactive with ErrUnitNotFound.
func (u SystemdUnit) IsActive(ctx context.Context) (bool, error) {
	res, err := u.Run.Run(ctx, "systemctl", "is-active", u.Name)
	if strings.TrimSpace(res.Stdout) == "active" {
		return true, nil
	}
	if unitMissing(res.Stderr) || unitMissing(res.Stdout) {
		return false, fmt.Errorf("is-active %s: %w", u.Name, ErrUnitNotFound)
	}
	// is-active exits non-zero for inactive/failed units; that is an
	// answer, not an error.
	if err != nil && res.ExitCode <= 0 {
		return false, err
	}
	return false, nil
}

func unitMissing(out string) bool {
	out = strings.ToLower(out)
	return strings.Contains(out, "could not be found") || strings.Contains(out, "not-found")
}
