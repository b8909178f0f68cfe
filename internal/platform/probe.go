package platform

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Probe reports facts about the host: OS family, privilege level, and
// presence of the external tools the manager drives. It never fails fatally;
// an absent tool is a fact, not an error.
type Probe struct {
	// LookPath and Geteuid are swappable so tests can simulate missing
	// binaries and privilege levels.
	LookPath func(file string) (string, error)
	Geteuid  func() int

	run Runner
}

// NewProbe creates a probe backed by the given command runner.
func NewProbe(run Runner) *Probe {
	return &Probe{LookPath: exec.LookPath, Geteuid: os.Geteuid, run: run}
}

// OSFamily returns the host OS family ("linux", "darwin", "windows").
func (p *Probe) OSFamily() string { return runtime.GOOS }

// Supported reports whether the host OS is one the manager supports.
// macOS is detected but not supported.
func (p *Probe) Supported() bool {
	return p.OSFamily() == "linux" || p.OSFamily() == "windows"
}

// IsRoot reports whether the process runs with root privileges.
func (p *Probe) IsRoot() bool { return p.Geteuid() == 0 }

// HasCommand reports whether a binary is available in PATH.
func (p *Probe) HasCommand(name string) bool {
	_, err := p.LookPath(name)
	return err == nil
}

// ToolVersion returns the first line of a tool's version output, or "" when
// the tool is absent or the invocation fails.
func (p *Probe) ToolVersion(ctx context.Context, name string, args ...string) string {
	if !p.HasCommand(name) {
		return ""
	}
	res, err := p.run.Run(ctx, name, args...)
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(res.Stdout, "\n")
	return strings.TrimSpace(line)
}
