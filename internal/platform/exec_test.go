package platform_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/guras256/warp-dns-manager/internal/platform"
)

func TestRunCapturesOutput(t *testing.T) {
	run := &platform.ExecRunner{}

	res, err := run.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(res.Stdout) != "out" || strings.TrimSpace(res.Stderr) != "err" {
		t.Fatalf("unexpected output: %+v", res)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d", res.ExitCode)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	run := &platform.ExecRunner{}

	res, err := run.Run(context.Background(), "sh", "-c", "echo oops 1>&2; exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Fatalf("error should carry stderr: %v", err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	run := &platform.ExecRunner{}

	_, err := run.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestRunTimeout(t *testing.T) {
	run := &platform.ExecRunner{Timeout: 50 * time.Millisecond}

	start := time.Now()
	_, err := run.Run(context.Background(), "sleep", "10")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout not enforced")
	}
}

func TestProbeHasCommand(t *testing.T) {
	p := platform.NewProbe(&platform.ExecRunner{})
	p.LookPath = func(file string) (string, error) {
		if file == "present" {
			return "/bin/present", nil
		}
		return "", errors.New("not found")
	}

	if !p.HasCommand("present") || p.HasCommand("absent") {
		t.Fatal("HasCommand does not follow LookPath")
	}
}

func TestRunSilent(t *testing.T) {
	run := &platform.ExecRunner{}

	if err := platform.RunSilent(context.Background(), run, "sh", "-c", "echo ignored"); err != nil {
		t.Fatalf("successful command reported %v", err)
	}
	if err := platform.RunSilent(context.Background(), run, "sh", "-c", "exit 1"); err == nil {
		t.Fatal("failing command reported no error")
	}
}

type scriptedRunner struct {
	res platform.Result
	err error
}

func (s scriptedRunner) Run(context.Context, string, ...string) (platform.Result, error) {
	return s.res, s.err
}

func TestProbeToolVersion(t *testing.T) {
	p := platform.NewProbe(scriptedRunner{
		res: platform.Result{Stdout: "wgcf v2.2.22\nbuilt from source"},
	})
	p.LookPath = func(file string) (string, error) {
		if file == "wgcf" {
			return "/usr/local/bin/wgcf", nil
		}
		return "", errors.New("not found")
	}

	if v := p.ToolVersion(context.Background(), "wgcf", "--version"); v != "wgcf v2.2.22" {
		t.Fatalf("version = %q, want first line only", v)
	}
	if v := p.ToolVersion(context.Background(), "nextdns", "version"); v != "" {
		t.Fatalf("absent tool reported version %q", v)
	}

	failing := platform.NewProbe(scriptedRunner{err: errors.New("exec failed")})
	failing.LookPath = func(string) (string, error) { return "/bin/x", nil }
	if v := failing.ToolVersion(context.Background(), "x"); v != "" {
		t.Fatalf("failed invocation reported version %q", v)
	}
}

func TestLogBufferTail(t *testing.T) {
	buf := platform.NewLogBuffer(3)
	log := slog.New(buf.Handler(slog.LevelInfo))

	for _, msg := range []string{"one", "two", "three", "four"} {
		log.Info(msg, "service", "tunnel")
	}
	log.Debug("filtered out")

	entries := buf.Tail(10)
	if len(entries) != 3 {
		t.Fatalf("expected ring of 3, got %d", len(entries))
	}
	if entries[0].Msg != "two" || entries[2].Msg != "four" {
		t.Fatalf("unexpected order: %+v", entries)
	}

	last := buf.Tail(1)
	if len(last) != 1 || last[0].Msg != "four" {
		t.Fatalf("Tail(1) = %+v", last)
	}
}
