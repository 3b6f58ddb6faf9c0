package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"salaryestimator/config"
	"salaryestimator/logger"
	"salaryestimator/ml"
)

// setup reads the config and builds the logger every command shares.
func setup(level *zap.AtomicLevel) (*config.Config, *zap.Logger) {
	cfg, err := getConfig()
	if err != nil {
		log.Fatalf("getting a config: %s", err)
	}

	l, err := logger.New(logger.Options{
		JSON:       cfg.JSON,
		Debug:      cfg.Debug,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Level:      level,
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	if viper.ConfigFileUsed() != "" {
		l.Debug("using config file", zap.String("file", viper.ConfigFileUsed()))
	}
	return cfg, l
}

// loadPipeline loads the artifacts. Any failure is fatal to the caller: there
// is no degraded mode without a complete set of artifacts.
func loadPipeline(cfg *config.Config, l *zap.Logger) (*ml.Pipeline, error) {
	artifacts, err := ml.LoadArtifacts(cfg.Artifacts)
	if err != nil {
		return nil, err
	}

	pipeline, err := ml.NewPipeline(artifacts,
		ml.WithLogger(l.Named("pipeline")),
		ml.WithMaxInFlight(cfg.Inference.MaxInFlight),
	)
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	l.Info("artifacts loaded",
		zap.String("dir", cfg.Artifacts),
		zap.String("version", artifacts.Version),
		zap.String("currency", artifacts.CurrencyCode),
		zap.Strings("feature_columns", artifacts.Order.Names()),
	)
	return pipeline, nil
}
