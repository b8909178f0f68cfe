package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guras256/warp-dns-manager/internal/platform"
	"github.com/guras256/warp-dns-manager/internal/service"
)

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Stop both services and remove their configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			return app.uninstall(cmd.Context())
		},
	}
}

// uninstall tears everything down: stop and disable the units, deregister the
// resolver daemon, remove the tunnel profile and tool, then the manager's own
// state. Backups stay for a possible reinstall.
func (a *app) uninstall(ctx context.Context) error {
	// 1. Stop and disable whatever is running.
	fmt.Println("Stopping services...")
	for _, c := range a.controllers() {
		c.Detect(ctx)
		if c.State().Status == service.StatusRunning {
			if err := c.Stop(ctx); err != nil {
				fmt.Printf("  Warning: stop %s: %v\n", c.Name(), err)
			}
		}
	}
	run := &platform.ExecRunner{}
	for _, unit := range []string{service.TunnelUnitName, service.ResolverUnitName} {
		u := service.SystemdUnit{Name: unit, Run: run}
		if err := u.Disable(ctx); err != nil {
			fmt.Printf("  Warning: disable %s: %v\n", unit, err)
		}
	}

	// 2. Let the resolver CLI remove its own daemon registration.
	fmt.Println("Removing resolver daemon...")
	if a.Probe.HasCommand("nextdns") {
		if err := platform.RunSilent(ctx, run, "nextdns", "uninstall"); err != nil {
			fmt.Printf("  Warning: %v\n", err)
		}
	}

	// 3. Remove the installed tunnel profile and tool.
	fmt.Println("Removing tunnel files...")
	_ = os.Remove(a.Paths.WireGuardConfig())
	_ = os.Remove(platform.TunnelBinaryPath)

	// 4. Remove manager config and tool state; backups stay for a
	// possible reinstall.
	fmt.Println("Removing configuration (keeping backups)...")
	_ = os.Remove(a.Store.Path())
	_ = os.Remove(a.Paths.AccountFile())
	_ = os.Remove(a.Paths.ProfileFile())

	fmt.Println()
	fmt.Println("Removed. Backups preserved in " + a.Paths.BackupDir())
	return nil
}
