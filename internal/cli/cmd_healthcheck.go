package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guras256/warp-dns-manager/internal/dns"
	"github.com/guras256/warp-dns-manager/internal/service"
)

func newTestCmd() *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run end-to-end health checks on the tunnel and resolver",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp()
			if err != nil {
				return err
			}

			snap := app.Status.Snapshot(ctx)
			printCheck("tunnel service", snap.Tunnel.Status == service.StatusRunning, snap.Tunnel.Status.String())
			printCheck("resolver service", snap.Resolver.Status == service.StatusRunning, snap.Resolver.Status.String())
			printCheck("tunnel probe", snap.TunnelOK, snap.TunnelDetail)
			printCheck("resolver probe", snap.ResolverOK, snap.ResolverDetail)
			printCheck("network reachable", snap.NetworkReachable, "")
			printCheck("warp routing active", snap.WarpActive, "")

			allPassed := snap.Healthy()

			// Probe an extra domain through the local resolver on request.
			if domain != "" {
				fmt.Println()
				ok, detail := dns.NewResolver("127.0.0.1").Probe(ctx, domain)
				printCheck("resolve "+domain, ok, detail)
				if !ok {
					allPassed = false
				}
			}

			if !allPassed {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&domain, "domain", "d", "", "extra domain to resolve through the local resolver")
	return cmd
}
