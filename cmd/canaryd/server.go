package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rsclarke/canaryd/internal/alert"
	"github.com/rsclarke/canaryd/internal/config"
	"github.com/rsclarke/canaryd/internal/db"
	"github.com/rsclarke/canaryd/internal/enrich"
	"github.com/rsclarke/canaryd/internal/logging"
	"github.com/rsclarke/canaryd/internal/ratelimit"
	"github.com/rsclarke/canaryd/internal/recorder"
	"github.com/rsclarke/canaryd/internal/server"
)

var serverFlags struct {
	dbPath     string
	baseURL    string
	canaryPort int
	apiPort    int
	trustProxy bool
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the canary and admin listeners",
	Long: `Start the canaryd server with two listeners: the canary listener that
receives token callbacks, and the admin API for token and event management.

The admin API carries no authentication of its own; bind it to a private
interface or put it behind an authenticating proxy.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverFlags.dbPath, "db", "", "database path (env: CANARYD_DB)")
	serverCmd.Flags().StringVar(&serverFlags.baseURL, "base-url", "", "public base URL for canary links (env: CANARYD_BASE_URL)")
	serverCmd.Flags().IntVar(&serverFlags.canaryPort, "canary-port", 0, "canary listener port (env: CANARYD_CANARY_PORT)")
	serverCmd.Flags().IntVar(&serverFlags.apiPort, "api-port", 0, "admin API port (env: CANARYD_API_PORT)")
	serverCmd.Flags().BoolVar(&serverFlags.trustProxy, "trust-proxy", false, "trust the first X-Forwarded-For entry (env: CANARYD_TRUST_PROXY)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()
	if serverFlags.dbPath != "" {
		cfg.DBPath = serverFlags.dbPath
	}
	if serverFlags.baseURL != "" {
		cfg.BaseURL = serverFlags.baseURL
	}
	if serverFlags.canaryPort != 0 {
		cfg.CanaryPort = serverFlags.canaryPort
	}
	if serverFlags.apiPort != 0 {
		cfg.APIPort = serverFlags.apiPort
	}
	if cmd.Flags().Changed("trust-proxy") {
		cfg.TrustProxy = serverFlags.trustProxy
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	limiter := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.RateLimitWindow)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Sweep()
			case <-sweepDone:
				return
			}
		}
	}()
	defer close(sweepDone)

	resolver := enrich.New(cfg.EnrichTimeout, logger.Named("enrich"))

	dispatcher := alert.NewDispatcher(cfg.AlertQueueSize, logger.Named("alert"))
	if cfg.WebhookURL != "" {
		dispatcher.Register(alert.NewWebhook(cfg.WebhookURL))
		logger.Info("webhook alerts enabled")
	}
	if cfg.EmailTo != "" {
		if cfg.SMTPHost == "" || cfg.EmailFrom == "" {
			return fmt.Errorf("email alerts need CANARYD_SMTP_HOST and CANARYD_SMTP_FROM")
		}
		dispatcher.Register(alert.NewEmail(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom, cfg.EmailTo))
		logger.Info("email alerts enabled")
	}
	dispatcher.Start()

	rec := recorder.New(database, limiter, resolver, dispatcher, recorder.Config{
		BodyPreviewBytes: cfg.BodyPreviewBytes,
		TrustProxy:       cfg.TrustProxy,
		EnrichAsync:      cfg.EnrichAsync,
	}, logger.Named("recorder"))

	canarySrv := &server.CanaryServer{
		Recorder: rec,
		Logger:   logger.Named("canary"),
	}
	canary := server.NewManagedServer("canary", server.DefaultServerConfig(
		fmt.Sprintf(":%d", cfg.CanaryPort), canarySrv, logger.Named("canary")))

	adminSrv := &server.AdminServer{
		DB:       database,
		BaseURL:  cfg.BaseURL,
		TokenTTL: cfg.TokenTTL,
		Logger:   logger.Named("api"),
	}
	admin := server.NewManagedServer("api", server.DefaultServerConfig(
		fmt.Sprintf(":%d", cfg.APIPort), adminSrv.Handler(), logger.Named("api")))

	logger.Info("starting canary server", logging.Port(cfg.CanaryPort))
	canary.Start()
	logger.Info("starting api server", logging.Port(cfg.APIPort))
	admin.Start()

	if err := canary.WaitForStartup(500 * time.Millisecond); err != nil {
		return err
	}
	if err := admin.WaitForStartup(500 * time.Millisecond); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	canary.Shutdown(ctx)
	admin.Shutdown(ctx)

	// Drain queued alerts after the listeners stop feeding the queue.
	if err := dispatcher.Close(ctx); err != nil {
		logger.Warn("alert queue not fully drained", zap.Error(err))
	}

	return nil
}
