// Package main is the entry point for the sentinel observability core.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/perchsec/sentinel/internal/alerting"
	"github.com/perchsec/sentinel/internal/config"
	"github.com/perchsec/sentinel/internal/monitoring"
	"github.com/perchsec/sentinel/internal/notify"
	"github.com/perchsec/sentinel/internal/server"
	"github.com/perchsec/sentinel/internal/threat"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to YAML config")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logCfg := cfg.Monitoring.Log
	if logCfg.Format == "" && term.IsTerminal(int(os.Stdout.Fd())) {
		logCfg.Format = "console"
	}
	monitoring.Global(logCfg)

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("sentinel exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	clock := monitoring.SystemClock()

	// Notification dispatch: log always; email/webhook/stream when configured.
	dispatcher := notify.NewDispatcher()
	dispatcher.Register(notify.LogNotifier{})
	if len(cfg.Notify.EmailRecipients) > 0 {
		dispatcher.Register(&notify.EmailNotifier{Recipients: cfg.Notify.EmailRecipients})
	}
	if cfg.Notify.WebhookURL != "" {
		dispatcher.Register(notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.WebhookTimeout))
	}
	hub := notify.NewStreamHub()
	dispatcher.Register(hub)

	collector := monitoring.NewCollector(cfg.Monitoring.SampleCapacity, clock)

	engine := alerting.NewEngine(clock, alerting.WithSink(func(a alerting.AlertNotification) {
		dispatcher.Dispatch(notify.FromAlert(a))
	}))

	trackerOpts := []threat.TrackerOption{
		threat.WithBlockHook(func(p threat.ThreatProfile, auto bool, reason string) {
			dispatcher.Dispatch(notify.FromBlockedProfile(p, auto, reason))
		}),
	}
	if cfg.Threat.DatabasePath != "" {
		store, err := threat.OpenSQLiteStore(cfg.Threat.DatabasePath)
		if err != nil {
			return fmt.Errorf("threat store: %w", err)
		}
		defer store.Close()
		trackerOpts = append(trackerOpts, threat.WithStore(store))
	}
	if cfg.Threat.AuditLogPath != "" {
		audit, err := threat.NewAuditLog(cfg.Threat.AuditLogPath)
		if err != nil {
			return fmt.Errorf("audit log: %w", err)
		}
		defer audit.Close()
		trackerOpts = append(trackerOpts, threat.WithAudit(audit))
	}
	tracker := threat.NewTracker(clock, trackerOpts...)

	// The periodic tick is the sole automatic trigger for rule evaluation;
	// reading metrics never fires alerts.
	monitor := monitoring.NewMonitor(collector, cfg.Monitoring.Monitor)
	monitor.OnRefresh(func(snap monitoring.SystemMetricsSnapshot) {
		engine.Evaluate(snap)
	})
	monitor.OnSweep(tracker.Sweep)
	monitor.Start()
	defer monitor.Stop()

	srv := server.New(cfg.Server, collector, monitor, engine, tracker, hub)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
