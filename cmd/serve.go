package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"salaryestimator/config"
	"salaryestimator/db"
	qhttp "salaryestimator/http"
	"salaryestimator/ml"
	"salaryestimator/monitoring"
)

const statusInterval = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the estimate form and API",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "http port (default 8080)")
	serveCmd.Flags().String("db", "", "sqlite file for the estimate audit log")

	viper.BindPFlag("http.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("database.path", serveCmd.Flags().Lookup("db"))
}

func serve(parent context.Context) {
	if parent == nil {
		parent = context.Background()
	}

	level := zap.NewAtomicLevel()
	cfg, logger := setup(&level)
	defer logger.Sync()

	logger.Info("starting the salary-estimator", zap.String("version", version))

	pipeline, err := loadPipeline(cfg, logger)
	if err != nil {
		var loadErr *ml.ArtifactLoadError
		if errors.As(err, &loadErr) {
			logger.Fatal("loading artifacts",
				zap.String("artifact", loadErr.Artifact),
				zap.String("path", loadErr.Path),
				zap.Error(loadErr.Err),
				zap.String("hint", "set artifacts in the config file, the --artifacts flag or SALARY_ARTIFACTS"),
			)
		}
		logger.Fatal("loading artifacts", zap.Error(err))
	}

	var store *db.Store
	if cfg.Database.Path != "" {
		store, err = db.Open(cfg.Database.Path)
		if err != nil {
			logger.Fatal("opening the audit log", zap.String("path", cfg.Database.Path), zap.Error(err))
		}
		defer store.Close()
		logger.Info("audit log enabled", zap.String("path", cfg.Database.Path))
	}

	metrics := monitoring.NewMetricsCollector()
	hub := monitoring.NewWebSocketHub(logger.Named("dashboard"))
	alerts := monitoring.NewAlertSystem(monitoring.AlertOptions{
		WebhookURL: cfg.Alerts.WebhookURL,
		Cooldown:   cfg.Alerts.Cooldown,
		Hub:        hub,
		Logger:     logger.Named("alerts"),
	})

	server, err := qhttp.NewServer(serverConfig(cfg), qhttp.Deps{
		Pipeline: pipeline,
		Store:    store,
		Metrics:  metrics,
		Hub:      hub,
		Alerts:   alerts,
		Logger:   logger.Named("http"),
	})
	if err != nil {
		logger.Fatal("creating the http server", zap.Error(err))
	}

	watchConfig(logger, &level)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run()
		return nil
	})
	g.Go(func() error {
		monitoring.ReportStatus(gctx, metrics, hub, statusInterval)
		return nil
	})
	if store != nil {
		g.Go(func() error {
			store.RunRetention(gctx, cfg.Database.Retention, time.Hour, func(n int64, err error) {
				if err != nil {
					logger.Warn("pruning the audit log", zap.Error(err))
					return
				}
				logger.Info("pruned the audit log", zap.Int64("events", n), zap.Duration("retention", cfg.Database.Retention))
			})
			return nil
		})
	}
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		hub.Stop()
		err := server.Stop(shutdownCtx)
		alerts.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("exiting")
}

func serverConfig(cfg *config.Config) qhttp.ServerConfig {
	return qhttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimit:      cfg.HTTP.RateLimit,
		RateBurst:      cfg.HTTP.RateBurst,
		MaxClients:     cfg.HTTP.MaxClients,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	}
}

// watchConfig follows the config file and applies the debug toggle without a
// restart. Every other setting needs one.
func watchConfig(logger *zap.Logger, level *zap.AtomicLevel) {
	if viper.ConfigFileUsed() == "" {
		return
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		next := zapcore.InfoLevel
		if viper.GetBool("debug") {
			next = zapcore.DebugLevel
		}
		if level.Level() != next {
			level.SetLevel(next)
		}
		logger.Info("config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()), zap.Stringer("level", next))
	})
	viper.WatchConfig()
}
