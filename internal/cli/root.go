package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ogulcanaydogan/listing-alerts/internal/config"
	"github.com/ogulcanaydogan/listing-alerts/pkg/alerting"
	"github.com/ogulcanaydogan/listing-alerts/pkg/dispatch"
	"github.com/ogulcanaydogan/listing-alerts/pkg/labels"
	"github.com/ogulcanaydogan/listing-alerts/pkg/notify"
	"github.com/ogulcanaydogan/listing-alerts/pkg/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "alertctl",
	Short: "Listing alerts - saved searches with instant notifications",
	Long: `alertctl manages listing alerts: owner-scoped saved searches that are
matched against every newly published listing. Matching alerts are notified
by email or push, and their match statistics are updated.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.listing-alerts/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// NewLogger creates a structured logger from config.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (*storage.SQLite, error) {
	store, err := storage.NewSQLite(cfg.Storage.Path, cfg.Storage.AutoMigrate)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

// initLabels loads the label catalog, falling back to the built-in one.
func initLabels(cfg *config.Config) (*labels.Generator, error) {
	if cfg.Labels.File == "" {
		return labels.NewGenerator(nil), nil
	}
	catalog, err := labels.LoadCatalog(cfg.Labels.File)
	if err != nil {
		return nil, err
	}
	return labels.NewGenerator(catalog), nil
}

// initChannels creates notification channels from config.
func initChannels(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]notify.Channel, error) {
	var channels []notify.Channel

	if email := cfg.Channels.Email; email.Enabled {
		var mailer notify.Mailer
		switch email.Provider {
		case "resend":
			mailer = notify.NewResendMailer(email.ResendAPIKey, logger)
		case "ses":
			ses, err := notify.NewSESMailer(ctx, email.SESRegion, logger)
			if err != nil {
				return nil, err
			}
			mailer = ses
		default:
			mailer = notify.NewLogMailer(logger)
		}
		composer := notify.PlainComposer{ListingURL: email.ListingURL}
		channels = append(channels, notify.NewEmailChannel(mailer, composer, email.From))
	}

	if push := cfg.Channels.Push; push.Enabled && push.URL != "" {
		channels = append(channels, notify.NewPushChannel(push.URL, push.Secret))
	}

	return channels, nil
}

// app holds the wired components shared by commands.
type app struct {
	store        *storage.SQLite
	alerts       *alerting.Service
	orchestrator *dispatch.Orchestrator
	logger       *slog.Logger
}

// initApp wires storage, alert management and the dispatch pipeline.
func initApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := NewLogger(cfg)

	gen, err := initLabels(cfg)
	if err != nil {
		return nil, err
	}

	channels, err := initChannels(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return nil, err
	}

	dispatcher := dispatch.NewDispatcher(store, channels, dispatch.Options{
		Workers:       cfg.Dispatch.Workers,
		SendTimeout:   cfg.Dispatch.SendTimeout,
		RatePerSecond: cfg.Dispatch.RatePerSecond,
	}, logger)
	stats := dispatch.NewStatsUpdater(store, cfg.Dispatch.StatsTimeout, logger)

	return &app{
		store:        store,
		alerts:       alerting.NewService(store, gen, cfg.Quota.MaxAlertsPerOwner, logger),
		orchestrator: dispatch.NewOrchestrator(store, dispatcher, stats, logger),
		logger:       logger,
	}, nil
}

// Close waits for background stats updates and closes storage.
func (a *app) Close() error {
	a.orchestrator.Wait()
	return a.store.Close()
}
