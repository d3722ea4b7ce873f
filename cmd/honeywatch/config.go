package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/honeywatch/internal/eventstore"
	"github.com/tinytelemetry/honeywatch/internal/model"
	"github.com/tinytelemetry/honeywatch/internal/report"
	"github.com/tinytelemetry/honeywatch/internal/socketrpc"
)

const (
	defaultUpdateInterval   = model.DefaultUpdateInterval
	defaultLogFile          = model.DefaultLogFile
	defaultBindHost         = "127.0.0.1"
	defaultAPIPort          = 8501
	defaultRefreshRateLimit = 1.0 // manual refreshes per second
	defaultArchiveKeep      = 30
	minUpdateInterval       = 100 * time.Millisecond
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	StoreBackend   string        `mapstructure:"store-backend"`
	LogFile        string        `mapstructure:"log-file"`
	RedisAddr      string        `mapstructure:"redis-addr"`
	RedisPassword  string        `mapstructure:"redis-password"`
	RedisDB        int           `mapstructure:"redis-db"`
	RedisKey       string        `mapstructure:"redis-key"`
	CatalogFile    string        `mapstructure:"catalog-file"`
	UpdateInterval time.Duration `mapstructure:"update-interval"`

	APIEnabled       bool    `mapstructure:"api-enabled"`
	APIPort          int     `mapstructure:"api-port"`
	APIAddr          string  `mapstructure:"api-addr"`
	RefreshRateLimit float64 `mapstructure:"refresh-rate-limit"`
	SocketPath       string  `mapstructure:"socket-path"`

	ReportEnabled  bool          `mapstructure:"report-enabled"`
	ReportCommand  string        `mapstructure:"report-command"`
	ReportArgs     []string      `mapstructure:"report-args"`
	ReportArtifact string        `mapstructure:"report-artifact"`
	ReportFilename string        `mapstructure:"report-filename"`
	ReportTimeout  time.Duration `mapstructure:"report-timeout"`

	ReportArchiveEnabled bool   `mapstructure:"report-archive-enabled"`
	ReportArchiveDir     string `mapstructure:"report-archive-dir"`
	ReportArchiveKeep    int    `mapstructure:"report-archive-keep"`
	ReportS3BucketURL    string `mapstructure:"report-s3-bucket-url"`
	ReportS3Endpoint     string `mapstructure:"report-s3-endpoint"`
	ReportS3Region       string `mapstructure:"report-s3-region"`
	ReportS3AccessKey    string `mapstructure:"report-s3-access-key"`
	ReportS3SecretKey    string `mapstructure:"report-s3-secret-key"`
	ReportS3UseSSL       bool   `mapstructure:"report-s3-use-ssl"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`

	ConfigPath string `mapstructure:"-"` // not from config file
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("HONEYWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("store-backend", eventstore.BackendFile)
	v.SetDefault("log-file", defaultLogFile)
	v.SetDefault("redis-addr", "127.0.0.1:6379")
	v.SetDefault("redis-password", "")
	v.SetDefault("redis-db", 0)
	v.SetDefault("redis-key", eventstore.DefaultRedisKey)
	v.SetDefault("catalog-file", "")
	v.SetDefault("update-interval", defaultUpdateInterval)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("api-addr", "")
	v.SetDefault("refresh-rate-limit", defaultRefreshRateLimit)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("report-enabled", true)
	v.SetDefault("report-command", report.DefaultCommand)
	v.SetDefault("report-args", report.DefaultArgs)
	v.SetDefault("report-artifact", report.DefaultArtifactPath)
	v.SetDefault("report-filename", report.DefaultFilename)
	v.SetDefault("report-timeout", report.DefaultTimeout)
	v.SetDefault("report-archive-enabled", false)
	v.SetDefault("report-archive-dir", filepath.Join(home, ".local", "share", "honeywatch", "reports"))
	v.SetDefault("report-archive-keep", defaultArchiveKeep)
	v.SetDefault("report-s3-bucket-url", "")
	v.SetDefault("report-s3-endpoint", "")
	v.SetDefault("report-s3-region", "")
	v.SetDefault("report-s3-access-key", "")
	v.SetDefault("report-s3-secret-key", "")
	v.SetDefault("report-s3-use-ssl", true)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "honeywatch", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	switch cfg.StoreBackend {
	case eventstore.BackendFile, eventstore.BackendRedis:
	default:
		return cfg, fmt.Errorf("invalid store-backend: %q", cfg.StoreBackend)
	}
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.UpdateInterval < minUpdateInterval {
		return cfg, fmt.Errorf("invalid update-interval: %s (minimum %s)", cfg.UpdateInterval, minUpdateInterval)
	}
	if cfg.ReportTimeout < 0 {
		return cfg, fmt.Errorf("invalid report-timeout: %s", cfg.ReportTimeout)
	}
	if cfg.ReportArchiveKeep < 0 {
		return cfg, fmt.Errorf("invalid report-archive-keep: %d", cfg.ReportArchiveKeep)
	}

	cfg.LogFile = expandHome(home, cfg.LogFile)
	cfg.CatalogFile = expandHome(home, cfg.CatalogFile)
	cfg.ReportArtifact = expandHome(home, cfg.ReportArtifact)
	cfg.ReportArchiveDir = expandHome(home, cfg.ReportArchiveDir)
	cfg.SocketPath = expandHome(home, cfg.SocketPath)

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func (c appConfig) storeConfig() eventstore.Config {
	return eventstore.Config{
		Backend: c.StoreBackend,
		LogFile: c.LogFile,
		Redis: eventstore.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Key:      c.RedisKey,
		},
	}
}

func (c appConfig) reportConfig() report.Config {
	return report.Config{
		Command:      c.ReportCommand,
		Args:         c.ReportArgs,
		ArtifactPath: c.ReportArtifact,
		Filename:     c.ReportFilename,
		Timeout:      c.ReportTimeout,
		Archive: report.ArchiveConfig{
			Enabled:     c.ReportArchiveEnabled,
			LocalDir:    c.ReportArchiveDir,
			KeepLast:    c.ReportArchiveKeep,
			BucketURL:   c.ReportS3BucketURL,
			S3Endpoint:  c.ReportS3Endpoint,
			S3Region:    c.ReportS3Region,
			S3AccessKey: c.ReportS3AccessKey,
			S3SecretKey: c.ReportS3SecretKey,
			S3UseSSL:    c.ReportS3UseSSL,
		},
	}
}
