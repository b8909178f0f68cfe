package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/guras256/warp-dns-manager/internal/nav"
	"github.com/guras256/warp-dns-manager/internal/service"
)

const (
	menuMain     nav.MenuID = "main"
	menuServices nav.MenuID = "services"
	menuBackups  nav.MenuID = "backups"
)

func newInteractiveCmd() *cobra.Command {
	var answers string

	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Menu-driven mode for everything the subcommands do",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			var source nav.AnswerSource
			if answers != "" {
				source = nav.NewPreset(strings.Split(answers, ",")...)
			} else {
				source = nav.NewInteractive(os.Stdin, os.Stdout)
			}

			engine := nav.NewEngine(app.menus(), source)
			return engine.Run(cmd.Context(), menuMain, func(err error) {
				printFail(err.Error())
			})
		},
	}

	cmd.Flags().StringVar(&answers, "answers", "", "comma-separated action ids for a scripted session")
	return cmd
}

// menus builds the interactive tree. Frames are rebuilt on every visit so
// labels reflect the live service state.
func (a *app) menus() map[nav.MenuID]func() nav.Frame {
	return map[nav.MenuID]func() nav.Frame{
		menuMain: func() nav.Frame {
			return nav.Frame{
				Title: "WARP + NextDNS Manager",
				Actions: []nav.Action{
					{ID: "status", Label: "Show status", Kind: nav.Invoke, Do: a.doStatus},
					{ID: "setup", Label: "Run setup", Kind: nav.Invoke, Do: a.doSetup},
					{ID: "services", Label: "Manage services", Kind: nav.Enter, Menu: menuServices},
					{ID: "backups", Label: "Manage backups", Kind: nav.Enter, Menu: menuBackups},
					{ID: "monitor", Label: "Monitor status (interrupt to stop)", Kind: nav.Invoke, Do: a.doMonitor},
					{ID: "logs", Label: "Show resolver logs", Kind: nav.Invoke, Do: a.doLogs},
					{ID: "applog", Label: "Show manager log", Kind: nav.Invoke, Do: a.doAppLog},
					{ID: "uninstall", Label: "Uninstall everything", Kind: nav.Invoke, Do: a.uninstall},
					{ID: "exit", Label: "Exit", Kind: nav.Exit},
				},
			}
		},
		menuServices: func() nav.Frame {
			tunnel := a.Tunnel.State()
			resolver := a.Resolver.State()
			return nav.Frame{
				Title: fmt.Sprintf("Services (tunnel: %s, resolver: %s)", tunnel.Status, resolver.Status),
				Actions: []nav.Action{
					{ID: "start", Label: "Start all", Kind: nav.Invoke, Do: a.doStartAll},
					{ID: "stop", Label: "Stop all", Kind: nav.Invoke, Do: a.doStopAll},
					{ID: "restart", Label: "Restart all", Kind: nav.Invoke, Do: a.doRestartAll},
					{ID: "back", Label: "Back", Kind: nav.Back},
				},
			}
		},
		menuBackups: func() nav.Frame {
			return nav.Frame{
				Title: "Backups",
				Actions: []nav.Action{
					{ID: "create", Label: "Create backup", Kind: nav.Invoke, Do: a.doBackupCreate},
					{ID: "list", Label: "List backups", Kind: nav.Invoke, Do: a.doBackupList},
					{ID: "restore", Label: "Restore latest backup", Kind: nav.Invoke, Do: a.doBackupRestoreLatest},
					{ID: "prune", Label: "Prune old backups", Kind: nav.Invoke, Do: a.doBackupPrune},
					{ID: "back", Label: "Back", Kind: nav.Back},
				},
			}
		},
	}
}

func (a *app) doStatus(ctx context.Context) error {
	printSnapshot(a.Status.Snapshot(ctx))
	return nil
}

func (a *app) doSetup(ctx context.Context) error {
	orch := a.orchestrator(nil)
	cfg, err := orch.CollectConfig()
	if err != nil {
		return err
	}
	return reportSetup(orch.Run(ctx, cfg))
}

func (a *app) doStartAll(ctx context.Context) error {
	for _, c := range a.controllers() {
		c.Detect(ctx)
		if c.State().Status == service.StatusRunning {
			continue
		}
		if err := c.Start(ctx); err != nil {
			return err
		}
		printPass(c.Name() + " running")
	}
	return nil
}

func (a *app) doStopAll(ctx context.Context) error {
	for _, c := range a.controllers() {
		c.Detect(ctx)
		if c.State().Status != service.StatusRunning {
			continue
		}
		if err := c.Stop(ctx); err != nil {
			return err
		}
		printPass(c.Name() + " stopped")
	}
	return nil
}

func (a *app) doRestartAll(ctx context.Context) error {
	if err := a.doStopAll(ctx); err != nil {
		return err
	}
	return a.doStartAll(ctx)
}

// doMonitor streams one status line per interval until the session context is
// interrupted.
func (a *app) doMonitor(ctx context.Context) error {
	fmt.Println("Monitoring; press Ctrl-C to stop.")
	return a.Status.Monitor(ctx, a.Cfg.Monitor.IntervalDuration(), printStatusLine)
}

func (a *app) doBackupCreate(ctx context.Context) error {
	states := []service.State{a.Tunnel.Detect(ctx), a.Resolver.Detect(ctx)}
	snap, err := a.Backups.Create(a.Cfg, states, "interactive")
	if err != nil {
		return err
	}
	printPass("backup " + snap.ID + " created")
	return nil
}

func (a *app) doBackupList(context.Context) error {
	snaps, err := a.Backups.List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("no backups")
		return nil
	}
	for _, s := range snaps {
		fmt.Printf("%s  %s  %s\n", s.ID, s.CreatedAt.Format(time.DateTime), s.Description)
	}
	return nil
}

func (a *app) doBackupRestoreLatest(ctx context.Context) error {
	latest, err := a.Backups.Latest()
	if err != nil {
		return err
	}
	if latest == nil {
		return fmt.Errorf("no backups to restore")
	}
	if err := a.orchestrator(nil).Restore(ctx, latest.ID); err != nil {
		return err
	}
	printPass("configuration restored from " + latest.ID)
	return nil
}

func (a *app) doBackupPrune(context.Context) error {
	removed, err := a.Backups.Prune(5)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d backup(s)\n", removed)
	return nil
}

func (a *app) doLogs(ctx context.Context) error {
	out, err := a.ResolverTool.Logs(ctx, 50)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func (a *app) doAppLog(context.Context) error {
	entries := a.LogBuf.Tail(50)
	if len(entries) == 0 {
		fmt.Println("log buffer empty")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s %-5s %s %s\n", e.Time.Format("15:04:05"), e.Level, e.Msg, e.Attrs)
	}
	return nil
}
