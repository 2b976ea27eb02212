package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fraudscore/internal/api"
	"fraudscore/internal/cfg"
	"fraudscore/internal/classifier"
	"fraudscore/internal/dashboard"
	"fraudscore/internal/metrics"
	"fraudscore/internal/scoring"
	"fraudscore/internal/stats"
)

func main() {
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	configureLogging(c.LogLevel)

	m := metrics.New()

	// A missing or corrupt model artifact is fatal; there is no fallback
	// classifier for this service.
	model, err := classifier.Load(c.ModelPath)
	if err != nil {
		log.Fatal().Err(err).Str("model_path", c.ModelPath).Msg("model load failed")
	}
	if info, err := os.Stat(c.ModelPath); err == nil {
		m.ModelAge.Set(time.Since(info.ModTime()).Seconds())
	}

	tracker := stats.NewTracker()
	engine := scoring.NewEngine(model, model.Describe(), tracker, m, scoring.Config{
		StrictFields: c.StrictFields,
		MaxBatchSize: c.MaxBatchSize,
	})

	var monitor *dashboard.Dashboard
	if c.DashboardPort > 0 {
		monitor = dashboard.New(tracker, model.Describe(), c.DashboardPort)
		engine.SetPublisher(monitor)
		if err := monitor.Start(); err != nil {
			log.Error().Err(err).Msg("dashboard start failed")
			monitor = nil
		}
	}

	server := api.NewServer(engine, tracker, model.Describe(), api.Config{
		Port:         c.Port,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		IdleTimeout:  c.IdleTimeout,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	waitForShutdown(errCh)

	ctx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if monitor != nil {
		if err := monitor.Stop(); err != nil {
			log.Error().Err(err).Msg("dashboard shutdown failed")
		}
	}
	log.Info().Msg("shutdown complete")
}

func configureLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func waitForShutdown(errCh chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
	}
}
