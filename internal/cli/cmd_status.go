package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guras256/warp-dns-manager/internal/status"
	"gopkg.in/yaml.v3"
)

func newStatusCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the aggregate status of the tunnel and the resolver",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			snap := app.Status.Snapshot(cmd.Context())
			if asYAML {
				return yaml.NewEncoder(os.Stdout).Encode(snap)
			}

			printSnapshot(snap)
			printToolVersions(cmd.Context(), app)
			if !snap.Healthy() {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "machine-readable YAML output")
	return cmd
}

func printSnapshot(snap *status.Snapshot) {
	fmt.Println("=== WARP + NextDNS Status ===")
	fmt.Println()

	fmt.Println("Services:")
	fmt.Printf("  %-10s %s\n", snap.Tunnel.Name, snap.Tunnel.Status)
	fmt.Printf("  %-10s %s\n", snap.Resolver.Name, snap.Resolver.Status)
	fmt.Println()

	fmt.Println("Checks:")
	printCheck("tunnel", snap.TunnelOK, snap.TunnelDetail)
	printCheck("resolver", snap.ResolverOK, snap.ResolverDetail)
	printCheck("network", snap.NetworkReachable, "")
	printCheck("warp routing", snap.WarpActive, "")
	fmt.Println()

	if len(snap.DNSServers) > 0 {
		fmt.Printf("System DNS: %s\n", strings.Join(snap.DNSServers, ", "))
	}
	if snap.Tunnel.LastError != "" {
		fmt.Printf("Tunnel last error:   %s\n", snap.Tunnel.LastError)
	}
	if snap.Resolver.LastError != "" {
		fmt.Printf("Resolver last error: %s\n", snap.Resolver.LastError)
	}
}

func printToolVersions(ctx context.Context, app *app) {
	fmt.Println("Tools:")
	for _, tool := range []struct {
		name string
		args []string
	}{
		{"wgcf", []string{"--version"}},
		{"nextdns", []string{"version"}},
	} {
		version := app.Probe.ToolVersion(ctx, tool.name, tool.args...)
		if version == "" {
			version = "not installed"
		}
		fmt.Printf("  %-10s %s\n", tool.name, version)
	}
}

func printCheck(name string, ok bool, detail string) {
	msg := name
	if detail != "" {
		msg = name + ": " + detail
	}
	if ok {
		printPass(msg)
	} else {
		printFail(msg)
	}
}

func printPass(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printFail(msg string) {
	fmt.Printf("  \033[31m✗\033[0m %s\n", msg)
}

func printWarn(msg string) {
	fmt.Printf("  \033[33m!\033[0m %s\n", msg)
}
