// Package failure classifies errors from any component into a small taxonomy
// and centralizes the retry policy, so recovery semantics are uniform instead
// of scattered per call site.
package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
)

// Kind is the failure taxonomy driving recovery decisions.
type Kind int

const (
	Unknown Kind = iota
	Transient
	ConfigInvalid
	PermissionDenied
	ToolMissing
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case ConfigInvalid:
		return "configuration-invalid"
	case PermissionDenied:
		return "permission-denied"
	case ToolMissing:
		return "external-tool-missing"
	default:
		return "unknown"
	}
}

// ErrInvalidConfig is the sentinel other packages wrap so a failure
// classifies as ConfigInvalid (corrupted backup, wrong state for an
// operation, exhausted auto-answers).
var ErrInvalidConfig = errors.New("invalid configuration")

// Record describes one classified failure. It implements error so it can
// travel up through ordinary error returns.
type Record struct {
	Kind        Kind
	Component   string
	Message     string
	Recoverable bool
	Attempts    int
}

func (r *Record) Error() string {
	return fmt.Sprintf("%s: %s (%s)", r.Component, r.Message, r.Kind)
}

// Classify maps an error to a failure Record. A nil error returns nil.
func Classify(component string, err error) *Record {
	if err == nil {
		return nil
	}
	// An error may already carry its classification.
	var rec *Record
	if errors.As(err, &rec) {
		return rec
	}

	r := &Record{Component: component, Message: err.Error(), Attempts: 1}
	msg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, exec.ErrNotFound),
		strings.Contains(msg, "executable file not found"),
		strings.Contains(msg, "command not found"):
		r.Kind = ToolMissing

	case errors.Is(err, ErrInvalidConfig):
		r.Kind = ConfigInvalid

	case errors.Is(err, os.ErrPermission),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "operation not permitted"):
		r.Kind = PermissionDenied

	case isTransient(err, msg):
		r.Kind = Transient
		r.Recoverable = true

	default:
		r.Kind = Unknown
	}
	return r
}

func isTransient(err error, msg string) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"timed out",
		"temporary failure",
		"no route to host",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
