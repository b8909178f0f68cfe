package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/guras256/warp-dns-manager/internal/status"
)

func newMonitorCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Continuously print aggregate status until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			if interval == 0 {
				interval = app.Cfg.Monitor.IntervalDuration()
			}

			return app.Status.Monitor(cmd.Context(), interval, printStatusLine)
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "refresh interval (default from config)")
	return cmd
}

func printStatusLine(snap *status.Snapshot) {
	state := "DEGRADED"
	if snap.Healthy() {
		state = "OK"
	}
	fmt.Printf("%s  %-8s tunnel=%s resolver=%s net=%v warp=%v\n",
		snap.CapturedAt.Format("15:04:05"), state,
		snap.Tunnel.Status, snap.Resolver.Status,
		snap.NetworkReachable, snap.WarpActive)
}
