package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and HTTP publishers until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, true)
		if err != nil {
			return err
		}
		defer a.close()
		return serve(a)
	},
}

func serve(a *app) error {
	log := a.log

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if snap, err := a.restore(ctx); err != nil {
		log.Warn("failed to restore snapshot", zap.Error(err))
	} else if snap != nil {
		log.Info("serving restored corpus until first refresh", zap.Int("articles", len(snap.Articles)))
	}

	for _, wp := range a.web {
		if err := wp.Start(); err != nil {
			return err
		}
	}

	metricsSrv := a.metricsServer()
	if metricsSrv != nil {
		go func() {
			log.Info("metrics listening", zap.String("addr", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if a.cfg.RunOnStart {
		go func() {
			log.Info("running initial refresh")
			if err := a.runner.Run(ctx); err != nil {
				log.Error("initial refresh failed", zap.Error(err))
			}
		}()
	}

	c := cron.New()
	_, err := c.AddFunc(a.cfg.Schedule, func() {
		log.Info("cron triggered, refreshing corpus")
		if err := a.runner.Run(ctx); err != nil {
			log.Error("scheduled refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	log.Info("scheduled refresh", zap.String("schedule", a.cfg.Schedule))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", zap.String("signal", sig.String()))

	cancel()
	<-c.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	for _, wp := range a.web {
		if err := wp.Shutdown(shutdownCtx); err != nil {
			log.Warn("web server shutdown error", zap.Error(err))
		}
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown error", zap.Error(err))
		}
	}

	log.Info("shutdown complete")
	return nil
}
