package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guras256/warp-dns-manager/internal/service"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start [tunnel|resolver]",
		Short: "Start the managed services (or just one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachService(cmd, args, func(ctx context.Context, c *service.Controller) error {
				c.Detect(ctx)
				if c.State().Status == service.StatusRunning {
					printPass(c.Name() + " already running")
					return nil
				}
				if err := c.Start(ctx); err != nil {
					printFail(c.Name() + ": " + err.Error())
					return err
				}
				printPass(c.Name() + " running")
				return nil
			})
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop [tunnel|resolver]",
		Short: "Stop the managed services (or just one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachService(cmd, args, func(ctx context.Context, c *service.Controller) error {
				c.Detect(ctx)
				if c.State().Status != service.StatusRunning {
					printWarn(c.Name() + " not running")
					return nil
				}
				if err := c.Stop(ctx); err != nil {
					printFail(c.Name() + ": " + err.Error())
					return err
				}
				printPass(c.Name() + " stopped")
				return nil
			})
		},
	}
}

func newRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart [tunnel|resolver]",
		Short: "Restart the managed services (or just one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachService(cmd, args, func(ctx context.Context, c *service.Controller) error {
				c.Detect(ctx)
				if c.State().Status == service.StatusRunning {
					if err := c.Stop(ctx); err != nil {
						printFail(c.Name() + ": " + err.Error())
						return err
					}
				}
				if err := c.Start(ctx); err != nil {
					printFail(c.Name() + ": " + err.Error())
					return err
				}
				printPass(c.Name() + " restarted")
				return nil
			})
		},
	}
}

// forEachService applies fn to the named service, or to both in setup order.
// The first failure stops the walk so dependent services are not touched.
func forEachService(cmd *cobra.Command, args []string, fn func(context.Context, *service.Controller) error) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	ctls := app.controllers()
	if len(args) == 1 {
		var picked *service.Controller
		for _, c := range ctls {
			if c.Name() == args[0] {
				picked = c
				break
			}
		}
		if picked == nil {
			return fmt.Errorf("unknown service %q (want tunnel or resolver)", args[0])
		}
		ctls = []*service.Controller{picked}
	}

	for _, c := range ctls {
		if err := fn(cmd.Context(), c); err != nil {
			return err
		}
	}
	return nil
}
