package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ogulcanaydogan/listing-alerts/internal/config"
	"github.com/ogulcanaydogan/listing-alerts/internal/consumer"
	"github.com/ogulcanaydogan/listing-alerts/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the alerts API and, if enabled, the Kafka listing consumer",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen != "" {
		cfg.Server.Listen = listen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, cfg)
}

// Serve runs the HTTP API and optional Kafka consumer until ctx is canceled.
func Serve(ctx context.Context, cfg *config.Config) error {
	a, err := initApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger

	var listings *consumer.Consumer
	if cfg.Kafka.Enabled {
		listings, err = consumer.New(cfg.Kafka, a.orchestrator, logger)
		if err != nil {
			return fmt.Errorf("init kafka consumer: %w", err)
		}
		defer listings.Close()
	}

	apiServer := server.NewServer(a.alerts, a.orchestrator, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("alerts api started", "listen", cfg.Server.Listen)
		fmt.Fprintf(os.Stderr, "listing alerts API listening on %s\n", cfg.Server.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	consumerDone := closedChan()
	if listings != nil {
		consumerDone = startConsumer(consumerCtx, listings, errCh)
	}

	var runErr error
	select {
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown error: %w", err)
	}

	// In-flight dispatches must finish before storage is closed.
	stopConsumer()
	<-consumerDone

	if runErr != nil {
		return runErr
	}
	logger.Info("alerts api stopped")
	return nil
}

type listingRunner interface {
	Run(ctx context.Context) error
}

// startConsumer runs r in the background. The returned channel is closed once
// Run has returned.
func startConsumer(ctx context.Context, r listingRunner, errCh chan<- error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.Run(ctx); err != nil {
			errCh <- fmt.Errorf("kafka consumer: %w", err)
		}
	}()
	return done
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
