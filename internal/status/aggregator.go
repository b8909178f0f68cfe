package status

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guras256/warp-dns-manager/internal/service"
)

const (
	// connectivityURL answers 204 with an empty body when the network path
	// out of the host works at all.
	connectivityURL = "http://connectivitycheck.gstatic.com/generate_204"

	// traceURL reports warp=on / warp=plus when traffic leaves through the
	// tunnel, independent of what the tunnel tool itself claims.
	traceURL = "https://www.cloudflare.com/cdn-cgi/trace"

	defaultResolvConf   = "/etc/resolv.conf"
	defaultProbeTimeout = 5 * time.Second
)

// Aggregator collects the combined status of both services plus host-level
// connectivity. Snapshot captures are serialized: a slow probe delays the
// next capture instead of overlapping it.
type Aggregator struct {
	Tunnel   *service.Controller
	Resolver *service.Controller
	Log      *slog.Logger

	// ProbeTimeout bounds each individual probe, so one hung endpoint cannot
	// stall the whole snapshot.
	ProbeTimeout time.Duration

	ConnectivityURL string
	TraceURL        string
	ResolvConf      string
	HTTPClient      *http.Client

	busy chan struct{}
}

// NewAggregator creates an aggregator over the two service controllers.
func NewAggregator(tunnel, resolver *service.Controller, log *slog.Logger) *Aggregator {
	return &Aggregator{
		Tunnel:          tunnel,
		Resolver:        resolver,
		Log:             log,
		ProbeTimeout:    defaultProbeTimeout,
		ConnectivityURL: connectivityURL,
		TraceURL:        traceURL,
		ResolvConf:      defaultResolvConf,
		HTTPClient:      &http.Client{Timeout: defaultProbeTimeout},
		busy:            make(chan struct{}, 1),
	}
}

// Snapshot captures the current aggregate state. Individual probe failures
// degrade their fields and are logged at debug level; the snapshot itself
// always succeeds. Concurrent callers are serialized.
func (a *Aggregator) Snapshot(ctx context.Context) *Snapshot {
	a.busy <- struct{}{}
	defer func() { <-a.busy }()

	snap := &Snapshot{CapturedAt: time.Now()}

	snap.Tunnel = a.detectBounded(ctx, a.Tunnel)
	snap.Resolver = a.detectBounded(ctx, a.Resolver)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pctx, cancel := context.WithTimeout(gctx, a.ProbeTimeout)
		defer cancel()
		snap.TunnelOK, snap.TunnelDetail = a.Tunnel.Verify(pctx)
		return nil
	})
	g.Go(func() error {
		pctx, cancel := context.WithTimeout(gctx, a.ProbeTimeout)
		defer cancel()
		snap.ResolverOK, snap.ResolverDetail = a.Resolver.Verify(pctx)
		return nil
	})
	g.Go(func() error {
		snap.NetworkReachable = a.checkConnectivity(gctx)
		return nil
	})
	g.Go(func() error {
		snap.WarpActive = a.checkWarp(gctx)
		return nil
	})
	g.Wait()

	servers, err := ParseResolvConf(a.ResolvConf)
	if err != nil {
		a.Log.Debug("resolv.conf unreadable", "path", a.ResolvConf, "error", err)
	}
	snap.DNSServers = servers

	return snap
}

// Monitor captures a snapshot every interval and hands it to fn until the
// context is cancelled. Captures are strictly sequential; a capture that
// outlives the interval skips ticks rather than piling up.
func (a *Aggregator) Monitor(ctx context.Context, interval time.Duration, fn func(*Snapshot)) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	a.Log.Info("monitor started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(a.Snapshot(ctx))
	for {
		select {
		case <-ctx.Done():
			a.Log.Info("monitor stopped")
			return nil
		case <-ticker.C:
			fn(a.Snapshot(ctx))
		}
	}
}

// detectBounded refreshes one controller under the per-probe timeout, so a
// hung service manager query degrades the snapshot instead of stalling it.
func (a *Aggregator) detectBounded(ctx context.Context, c *service.Controller) service.State {
	dctx, cancel := context.WithTimeout(ctx, a.ProbeTimeout)
	defer cancel()
	return c.Detect(dctx)
}

func (a *Aggregator) checkConnectivity(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, a.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pctx, http.MethodGet, a.ConnectivityURL, nil)
	if err != nil {
		return false
	}
	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		a.Log.Debug("connectivity probe failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK
}

// checkWarp asks the edge whether traffic actually arrives through WARP.
func (a *Aggregator) checkWarp(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, a.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pctx, http.MethodGet, a.TraceURL, nil)
	if err != nil {
		return false
	}
	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		a.Log.Debug("trace probe failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "warp=on", "warp=plus":
			return true
		}
	}
	return false
}

// ParseResolvConf extracts the nameserver addresses from a resolv.conf file.
func ParseResolvConf(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var servers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "nameserver" {
			servers = append(servers, fields[1])
		}
	}
	return servers, scanner.Err()
}
