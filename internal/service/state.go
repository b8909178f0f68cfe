package service

import (
	"fmt"
	"time"
)

// Status is the coarse lifecycle state of one managed service.
type Status int

const (
	StatusUnknown Status = iota
	StatusNotInstalled
	StatusInstalled
	StatusConfigured
	StatusStarting
	StatusRunning
	StatusStopping
	StatusStopped
	StatusFailed
)

var statusNames = map[Status]string{
	StatusUnknown:      "unknown",
	StatusNotInstalled: "not-installed",
	StatusInstalled:    "installed",
	StatusConfigured:   "configured",
	StatusStarting:     "starting",
	StatusRunning:      "running",
	StatusStopping:     "stopping",
	StatusStopped:      "stopped",
	StatusFailed:       "failed",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// ParseStatus maps a status name back to its Status value.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown service status %q", name)
}

// MarshalYAML stores statuses by name so backups stay readable and stable
// across releases.
func (s Status) MarshalYAML() (any, error) { return s.String(), nil }

func (s *Status) UnmarshalYAML(unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AtLeastInstalled reports whether the service has passed installation.
func (s Status) AtLeastInstalled() bool {
	return s != StatusUnknown && s != StatusNotInstalled
}

// State is a read-only copy of one service's tracked state. The owning
// controller hands out copies only; callers never observe a mid-transition
// mutation.
type State struct {
	Name      string    `yaml:"name"`
	Status    Status    `yaml:"status"`
	LastError string    `yaml:"last_error,omitempty"`
	CheckedAt time.Time `yaml:"checked_at"`
}
