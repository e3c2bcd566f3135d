package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/fdswitch/fdswitch/components/frontend"
	"github.com/fdswitch/fdswitch/engine/binutil"
	"github.com/fdswitch/fdswitch/engine/config"
	"github.com/fdswitch/fdswitch/engine/foundry"
	"github.com/fdswitch/fdswitch/engine/fslog"
	"github.com/fdswitch/fdswitch/engine/fsvar"
	"github.com/fdswitch/fdswitch/engine/poller"
	"github.com/fdswitch/fdswitch/engine/presence"
	"github.com/fdswitch/fdswitch/engine/restarter"
	"github.com/fdswitch/fdswitch/engine/switcher"
)

const shutdownTimeout = 10 * time.Second

var args struct {
	configFile      string
	dotenvFile      string
	logLevel        string
	pidFile         string
	runInDaemonMode bool
}

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.StringVar(&args.dotenvFile, "envfile", "", "set .env file path for FDS_* overrides")
	flag.StringVar(&args.logLevel, "log", "", "set log level, will override log level in config")
	flag.StringVar(&args.pidFile, "pidfile", "", "write pid file in daemon mode")
	flag.BoolVar(&args.runInDaemonMode, "d", false, "run in daemon mode")
	flag.Parse()
}

func main() {
	os.Exit(fdswitchMain())
}

func fdswitchMain() int {
	parseArgs()
	if args.runInDaemonMode {
		daemoncontext := binutil.Daemonize(args.pidFile)
		defer daemoncontext.Release()
	}

	if args.configFile != "" {
		config.SetConfigFile(args.configFile)
	}
	if args.dotenvFile != "" {
		config.SetDotenvFile(args.dotenvFile)
	}
	cfg := config.Get()

	logLevel := args.logLevel
	if logLevel == "" {
		logLevel = cfg.Log.Level
	}
	binutil.SetupLog("fdswitch", logLevel, cfg.Log.File, cfg.Log.Stderr)
	defer fslog.Sync()
	fslog.Debugf("Config: %s", config.DumpPretty(cfg))

	return run(cfg)
}

func run(cfg *config.FDSConfig) int {
	signals := binutil.TerminationSignals()

	restart, err := restarter.New(cfg.Restart)
	if err != nil {
		fslog.Errorf("Create restarter failed: %v", err)
		return 1
	}

	client := foundry.NewClient(cfg.Foundry.APIURL, cfg.Foundry.Timeout)

	hub := presence.NewHub()
	sinks := []presence.Sink{presence.NewLogSink(), hub}
	if cfg.Presence.RedisURL != "" {
		redisSink := presence.NewRedisSink(cfg.Presence)
		defer redisSink.Close()
		sinks = append(sinks, redisSink)
	}
	statusPoller := poller.New(client, presence.Multi(sinks...), cfg.Poller.Interval)

	access := switcher.NewAllowList(cfg.Access)
	if len(access.Users) == 0 && len(access.Roles) == 0 {
		fslog.Warnf("Allow-lists are empty: nobody can switch worlds")
	}
	coordinator := switcher.New(switcher.Options{
		Status:         client,
		Restarter:      restart,
		Access:         access,
		DataPath:       cfg.Foundry.DataPath,
		EnvPath:        cfg.Foundry.EnvFile,
		Project:        cfg.Restart.Project,
		Service:        cfg.Restart.Service,
		RestartTimeout: cfg.Restart.Timeout,
	})

	frontendService := frontend.NewFrontendService(frontend.Options{
		Addr:     cfg.HTTP.Addr(),
		Switcher: coordinator,
		Catalog:  coordinator.Catalog(),
		EnvPath:  coordinator.EnvPath(),
		Presence: statusPoller,
		Hub:      hub,
	})

	served := make(chan error, 1)
	go func() {
		served <- frontendService.ListenAndServe()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	select {
	case <-frontendService.Ready():
		statusPoller.Start(ctx)
		fsvar.IsReady.Set(true)
	case err := <-served:
		fslog.Errorf("Front-end failed to start: %v", err)
		return 1
	}

	fslog.Infof("fdswitch started: api %s, data %s, env file %s, restart mode %s",
		cfg.Foundry.APIURL, cfg.Foundry.DataPath, cfg.Foundry.EnvFile, restart.Name())

	exitCode := 0
	select {
	case sig := <-signals:
		fslog.Infof("Received %s, terminating ...", sig)
	case err := <-served:
		fslog.Errorf("Front-end stopped: %v", err)
		exitCode = 1
	}

	cancel()
	statusPoller.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := frontendService.Shutdown(shutdownCtx); err != nil {
		fslog.Errorf("Front-end shutdown: %v", err)
		exitCode = 1
	}
	fslog.Infof("fdswitch terminated gracefully.")
	return exitCode
}
