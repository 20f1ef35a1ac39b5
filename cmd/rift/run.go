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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/ecs"
	"github.com/riftlang/rift/internal/metrics"
	"github.com/riftlang/rift/internal/persist"
)

var runCmd = &cobra.Command{
	Use:   "run [project]",
	Short: "Keep a project loaded, resolved and saved",
	Long: `Opens a project and ticks the systems at engine.tick_rate until
interrupted. Changed files are written every engine.save_interval ticks
and once more on shutdown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

// poolSampleTicks is how often pool gauges are refreshed.
const poolSampleTicks = 50

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := openApp(ctx, cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	session := uuid.NewString()
	a.log = a.log.With(zap.String("session", session))

	fmt.Println()
	printSection("Project")
	printStat("Modules", len(ecs.List[ast.CModule](a.tree.Access())))
	printStat("Queued files", len(ecs.GetOrSetStatic[ast.SLoadQueue](a.tree.Context()).Paths))
	printStat("File types", len(a.tree.Registry().FileTypes()))

	var m *metrics.Metrics
	if a.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
		a.runner.SetObserver(m)
		m.Subscribe(a.bus)

		srv := &http.Server{Addr: a.cfg.Metrics.BindAddress, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
		printOK("metrics on " + a.cfg.Metrics.BindAddress)
	}

	if badger, ok := a.store.(*persist.BadgerStore); ok && a.cfg.Badger.GCInterval > 0 {
		go badger.RunGC(ctx, a.cfg.Badger.GCInterval, a.cfg.Badger.GCDiscardRatio)
	}

	fmt.Println()
	printReady(fmt.Sprintf("%s running (session %s)", ast.GetProjectName(a.tree.Access()), session[:8]))
	fmt.Println()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(a.cfg.Engine.TickRate)
	defer ticker.Stop()

	a.log.Info("tick loop started", zap.Duration("tick_rate", a.cfg.Engine.TickRate))

	for {
		select {
		case <-ticker.C:
			a.runner.Tick(a.cfg.Engine.TickRate)
			if m != nil && a.runner.Ticks()%poolSampleTicks == 0 {
				m.SamplePools(a.tree)
			}

		case sig := <-shutdownCh:
			a.log.Info("shutting down", zap.String("signal", sig.String()))
			written := a.save.Flush()
			a.log.Info("shutdown complete", zap.Int("saved", written))
			return nil
		}
	}
}
