package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sloperunner/engine/internal/api"
	"github.com/sloperunner/engine/internal/config"
	"github.com/sloperunner/engine/internal/control"
	"github.com/sloperunner/engine/internal/influx"
	"github.com/sloperunner/engine/internal/monitor"
	"github.com/sloperunner/engine/internal/session"
	"github.com/sloperunner/engine/internal/sim"
	"github.com/sloperunner/engine/internal/stream"
)

const influxFlushInterval = 5 * time.Second

type playOptions struct {
	Name      string
	Runs      int
	Autopilot bool
	Strict    bool
}

func playCommand(a *app, opts playOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gameCfg := config.GetGameConfig()
	if err := gameCfg.Tuning.Validate(); err != nil {
		return err
	}

	client := api.New(config.GetString("api.serverUrl"), config.GetDuration("api.timeout"))
	if err := client.Healthcheck(ctx); err != nil {
		a.Logger.Warn("Leaderboard API unreachable, scores will not be submitted", "error", err)
	}

	var (
		sources   []control.Source
		renderers []sim.Renderer
		deps      = session.Dependencies{Leaderboard: client, Context: a.RunCtx, Logger: a.Logger}
		status    = monitor.Dependencies{RunAttrs: a.RunCtx.Attrs, Logger: a.Logger}
	)

	if opts.Autopilot {
		pilot := control.NewAutopilot(gameCfg.Tuning.LateralLimit)
		sources = append(sources, pilot)
		renderers = append(renderers, pilot)
	}

	streamCfg := config.GetStreamConfig()
	if streamCfg.Enabled {
		hub := stream.NewHub(a.Logger, config.GetServerConfig().AllowedOrigin)
		defer hub.Close()
		sources = append(sources, hub.Source())
		renderers = append(renderers, hub)
		deps.Announcer = hub
		status.Clients = hub.Clients

		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		httpServer := &http.Server{Addr: streamCfg.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.Logger.Info("Stream hub listening", "addr", streamCfg.Listen)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error("Stream hub stopped", "error", err)
			}
		}()
		defer httpServer.Close()
	}

	if len(sources) == 0 {
		return errors.New("no control source: enable stream or pass --autopilot")
	}
	deps.Source = control.First(sources...)
	deps.Renderers = renderers

	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		manager := influx.NewManager(a.ZLog, influxCfg)
		if err := manager.Connect(ctx); err != nil {
			a.Logger.Warn("Run telemetry disabled", "error", err)
		} else {
			flushCtx, cancelFlush := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				manager.Run(flushCtx, influxFlushInterval)
				close(done)
			}()
			defer func() {
				cancelFlush()
				<-done
				_ = manager.Close()
			}()
			deps.Recorder = manager
			status.Pending = manager.Pending
		}
	}

	if monCfg := config.GetMonitorConfig(); monCfg.Enabled {
		status.StatusFile = monCfg.StatusFile
		mon := monitor.NewService(status)
		if err := mon.Start(monCfg.Interval); err != nil {
			a.Logger.Warn("Status monitor disabled", "error", err)
		} else {
			defer mon.Stop()
		}
	}

	runner, err := session.New(session.Config{
		TickInterval: gameCfg.TickInterval(),
		Tuning:       gameCfg.Tuning,
		Name:         opts.Name,
		Runs:         opts.Runs,
		Strict:       opts.Strict,
	}, deps)
	if err != nil {
		return err
	}

	results, err := runner.Run(ctx)
	for i, res := range results {
		line := fmt.Sprintf("run %d: score %d (%s)", i+1, res.Score, res.Cause)
		switch {
		case res.Submitted:
			line += fmt.Sprintf(", submitted as %s, rank %d", opts.Name, res.Rank)
		case res.Qualified:
			line += ", qualifies for the leaderboard"
		}
		fmt.Println(line)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
