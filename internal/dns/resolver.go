// Package dns provides the small resolver probe used to health-check the
// DNS-filtering daemon and to inspect which servers answer locally.
package dns

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"codeberg.org/miekg/dns"
)

// Resolver resolves domain names against one specific DNS server, bypassing
// the system stub resolver so probes measure the daemon itself.
type Resolver struct {
	Server  string // DNS server address (e.g., "127.0.0.1:53")
	Timeout time.Duration
}

// NewResolver creates a resolver that queries the given DNS server.
func NewResolver(server string) *Resolver {
	if !strings.Contains(server, ":") {
		server = server + ":53"
	}
	return &Resolver{
		Server:  server,
		Timeout: 5 * time.Second,
	}
}

// Resolve queries the configured server for a domain's A records and returns
// the usable IPv4 addresses.
func (r *Resolver) Resolve(ctx context.Context, domain string) ([]net.IP, error) {
	if !strings.HasSuffix(domain, ".") {
		domain += "."
	}

	msg := dns.NewMsg(domain, dns.TypeA)
	if msg == nil {
		return nil, fmt.Errorf("build A query for %s", domain)
	}

	client := dns.NewClient()
	client.ReadTimeout = r.Timeout
	client.WriteTimeout = r.Timeout

	resp, _, err := client.Exchange(ctx, msg, "udp", r.Server)
	if err != nil {
		return nil, fmt.Errorf("query %s via %s: %w", domain, r.Server, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("query %s via %s: answered %s", domain, r.Server, dns.RcodeToString[resp.Rcode])
	}

	var ips []net.IP
	for _, ans := range resp.Answer {
		a, ok := ans.(*dns.A)
		if !ok {
			continue
		}
		if ip := a.A.Addr; ip.IsValid() && !ip.IsUnspecified() {
			ips = append(ips, ip.AsSlice())
		}
	}
	return ips, nil
}

// Probe resolves a well-known name and reports whether the server answered,
// with a short diagnostic detail for status output.
func (r *Resolver) Probe(ctx context.Context, domain string) (bool, string) {
	ips, err := r.Resolve(ctx, domain)
	if err != nil {
		return false, fmt.Sprintf("not responding on %s: %v", r.Server, err)
	}
	if len(ips) == 0 {
		return false, fmt.Sprintf("no answers for %s on %s", domain, r.Server)
	}
	return true, fmt.Sprintf("resolved %s to %d address(es) via %s", domain, len(ips), r.Server)
}
