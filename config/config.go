// Package config reads the estimator settings from flags, a YAML file, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// Name is the config file base name looked up in the working directory.
	Name      = "salary-estimator"
	EnvPrefix = "SALARY"
)

type Config struct {
	Debug     bool            `mapstructure:"debug"`
	JSON      bool            `mapstructure:"json"`
	Artifacts string          `mapstructure:"artifacts"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Inference InferenceConfig `mapstructure:"inference"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max-size-mb"`
	MaxBackups int    `mapstructure:"max-backups"`
	MaxAgeDays int    `mapstructure:"max-age-days"`
}

type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed-origins"`
	RateLimit       float64       `mapstructure:"rate-limit"`
	RateBurst       int           `mapstructure:"rate-burst"`
	MaxClients      int           `mapstructure:"max-clients"`
	MaxBodyBytes    int64         `mapstructure:"max-body-bytes"`
}

// DatabaseConfig locates the estimate audit log. An empty path disables it.
// Retention 0 keeps events forever.
type DatabaseConfig struct {
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"`
}

// AlertsConfig controls notifications for schema drift and failing inference.
type AlertsConfig struct {
	WebhookURL string        `mapstructure:"webhook-url"`
	Cooldown   time.Duration `mapstructure:"cooldown"`
}

type InferenceConfig struct {
	MaxInFlight int64 `mapstructure:"max-in-flight"`
}

// SetDefaults registers every key so that environment overrides are seen by
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("json", false)
	v.SetDefault("artifacts", "artifacts")

	v.SetDefault("log.file", "")
	v.SetDefault("log.max-size-mb", 100)
	v.SetDefault("log.max-backups", 3)
	v.SetDefault("log.max-age-days", 28)

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read-timeout", 30*time.Second)
	v.SetDefault("http.shutdown-timeout", 10*time.Second)
	v.SetDefault("http.allowed-origins", []string{"*"})
	v.SetDefault("http.rate-limit", 10.0)
	v.SetDefault("http.rate-burst", 20)
	v.SetDefault("http.max-clients", 1024)
	v.SetDefault("http.max-body-bytes", 1<<16)

	v.SetDefault("database.path", "estimates.db")
	v.SetDefault("database.retention", 30*24*time.Hour)

	v.SetDefault("inference.max-in-flight", 8)

	v.SetDefault("alerts.webhook-url", "")
	v.SetDefault("alerts.cooldown", 5*time.Minute)
}

// Read prepares v: .env file, environment and the config file. file may be
// empty, in which case a missing salary-estimator.yaml is not an error.
func Read(v *viper.Viper, file, dotenv string) error {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", dotenv, err)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func Get(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Artifacts) == "" {
		return errors.New("artifacts directory is required")
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d is out of range", c.HTTP.Port)
	}
	if c.HTTP.RateLimit < 0 {
		return errors.New("http.rate-limit must not be negative")
	}
	if c.Database.Retention < 0 {
		return errors.New("database.retention must not be negative")
	}
	if c.Alerts.WebhookURL != "" {
		u, err := url.Parse(c.Alerts.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("alerts.webhook-url %q is not an http(s) URL", c.Alerts.WebhookURL)
		}
	}
	if c.Inference.MaxInFlight < 0 {
		return errors.New("inference.max-in-flight must not be negative")
	}
	return nil
}
