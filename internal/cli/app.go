package cli

import (
	"log/slog"

	"github.com/guras256/warp-dns-manager/internal/backup"
	"github.com/guras256/warp-dns-manager/internal/config"
	"github.com/guras256/warp-dns-manager/internal/platform"
	"github.com/guras256/warp-dns-manager/internal/service"
	"github.com/guras256/warp-dns-manager/internal/setup"
	"github.com/guras256/warp-dns-manager/internal/status"
)

// app wires the whole object graph once per command invocation. Every
// command goes through here, so path overrides and logging behave the same
// everywhere.
type app struct {
	Env     config.Env
	Paths   platform.Paths
	Store   *config.Store
	Cfg     *config.Config
	Log     *slog.Logger
	LogBuf  *platform.LogBuffer
	Probe   *platform.Probe
	Backups *backup.Manager

	Tunnel   *service.Controller
	Resolver *service.Controller
	Status   *status.Aggregator

	// ResolverTool is the raw resolver adapter, for operations outside the
	// lifecycle (log retrieval, uninstall).
	ResolverTool *service.Resolver
}

func newApp() (*app, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	paths := platform.NewPaths(env.ConfigDir)
	store := config.NewStore(paths.ConfigFile())
	cfg, err := store.Load()
	if err != nil {
		return nil, err
	}

	log, logBuf := platform.NewLogger(cfg.Monitor.LogLevel)
	run := &platform.ExecRunner{}
	probe := platform.NewProbe(run)

	tunnel := service.NewController(
		&service.Tunnel{Run: run, Probe: probe, Paths: paths, Log: log},
		service.SystemdUnit{Name: service.TunnelUnitName, Run: run},
		log,
	)
	resolverTool := &service.Resolver{Run: run, Probe: probe, Paths: paths, Log: log}
	resolver := service.NewController(
		resolverTool,
		service.SystemdUnit{Name: service.ResolverUnitName, Run: run},
		log,
	)

	return &app{
		Env:          env,
		Paths:        paths,
		Store:        store,
		Cfg:          cfg,
		Log:          log,
		LogBuf:       logBuf,
		Probe:        probe,
		Backups:      backup.NewManager(paths.BackupDir(), 0),
		Tunnel:       tunnel,
		Resolver:     resolver,
		Status:       status.NewAggregator(tunnel, resolver, log),
		ResolverTool: resolverTool,
	}, nil
}

// orchestrator builds the setup flow over the app's components. prompt may
// be nil for unattended runs.
func (a *app) orchestrator(prompt func(label, def string) (string, error)) *setup.Orchestrator {
	return &setup.Orchestrator{
		Store:    a.Store,
		Backups:  a.Backups,
		Tunnel:   a.Tunnel,
		Resolver: a.Resolver,
		Probe:    a.Probe,
		Log:      a.Log,
		Prompt:   prompt,
	}
}

// controllers returns the managed services in setup order.
func (a *app) controllers() []*service.Controller {
	return []*service.Controller{a.Tunnel, a.Resolver}
}
