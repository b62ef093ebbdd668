package main

import (
	"context"
	"log"

	"github.com/rs-systems/healthwatch/internal/alert"
	"github.com/rs-systems/healthwatch/internal/api"
	"github.com/rs-systems/healthwatch/internal/auth"
	"github.com/rs-systems/healthwatch/internal/config"
	"github.com/rs-systems/healthwatch/internal/database"
	"github.com/rs-systems/healthwatch/internal/logger"
	"github.com/rs-systems/healthwatch/internal/models"
	"github.com/rs-systems/healthwatch/internal/monitor"
	"github.com/rs-systems/healthwatch/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logg := logger.New(cfg.Log)

	// Business database the probes observe.
	db, err := database.Open(cfg.Database)
	if err != nil {
		logg.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Local store for alert history.
	store, err := database.OpenStore(cfg.Store.Path)
	if err != nil {
		logg.Fatalf("Failed to open alert store: %v", err)
	}
	defer database.Close(store)

	var notifiers []notify.Notifier
	if cfg.Alerts.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(
			cfg.Alerts.SlackWebhookURL, cfg.Alerts.SlackChannel, cfg.Alerts.SlackUsername))
	}
	if cfg.Alerts.EmailEnabled {
		notifiers = append(notifiers, notify.NewEmailNotifier(
			cfg.Alerts.SMTPHost, cfg.Alerts.SMTPPort, cfg.Alerts.SMTPUser,
			cfg.Alerts.SMTPPassword, cfg.Alerts.EmailFrom, cfg.Alerts.EmailTo))
	}

	alertManager := alert.NewManager(alert.ManagerOptions{
		Enabled:         cfg.Alerts.Enabled,
		CooldownMinutes: cfg.Alerts.CooldownMinutes,
		Notifiers:       notifiers,
		Store:           store,
	}, logg)

	var probes []monitor.Probe
	var disabled []models.Component

	if cfg.Features.EnableDatabaseMonitoring {
		probes = append(probes, monitor.NewDatabaseProbe(db, cfg.Database, cfg.Thresholds, logg))
	} else {
		disabled = append(disabled, models.ComponentDatabase)
	}
	if cfg.Features.EnableAPIMonitoring {
		probes = append(probes, monitor.NewAPIProbe(cfg.API, cfg.Thresholds, logg))
	} else {
		disabled = append(disabled, models.ComponentAPI)
	}
	if cfg.Features.EnableQueueMonitoring {
		probes = append(probes, monitor.NewQueueProbe(db, cfg.Database, cfg.Thresholds, logg))
	} else {
		disabled = append(disabled, models.ComponentQueue)
	}
	if cfg.Features.EnableStorageMonitoring {
		storageProbe, err := monitor.NewStorageProbe(context.Background(), cfg.AWS, cfg.Thresholds, logg)
		if err != nil {
			logg.Fatalf("Failed to create storage probe: %v", err)
		}
		probes = append(probes, storageProbe)
	} else {
		disabled = append(disabled, models.ComponentStorage)
	}
	if cfg.Features.EnableActivityMonitoring {
		probes = append(probes, monitor.NewActivityProbe(db, cfg.Database, cfg.Thresholds, logg))
	} else {
		disabled = append(disabled, models.ComponentActivity)
	}

	orchestrator := monitor.NewOrchestrator(monitor.OrchestratorOptions{
		Probes:                probes,
		Disabled:              disabled,
		Evaluator:             alert.NewEvaluator(cfg.Thresholds),
		Alerts:                alertManager,
		MaxConcurrentMonitors: cfg.Monitoring.MaxConcurrentMonitors,
	}, logg)

	orchestrator.Start(cfg.Monitoring.IntervalSeconds)
	defer orchestrator.Stop()

	authService := auth.NewService(cfg.Server.JWTSecret, cfg.Server.APIKey)
	server := api.NewServer(orchestrator, alertManager, authService, cfg.Monitoring.IntervalSeconds, logg)
	logg.WithField("port", cfg.Server.Port).Info("starting healthwatch server")
	if err := server.Start(cfg.Server.Port); err != nil {
		logg.Fatalf("Failed to start server: %v", err)
	}
}
