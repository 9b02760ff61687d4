package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Refresh  RefreshConfig  `yaml:"refresh" mapstructure:"refresh"`
	Forecast ForecastConfig `yaml:"forecast" mapstructure:"forecast"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the local CSV tables. An empty Dir means the tables
// embedded in the binary.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// RefreshConfig configures runtime enrichment from official pages.
type RefreshConfig struct {
	Enabled           bool   `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	SourcesFile       string `yaml:"sources_file" mapstructure:"sources_file"`
	UserAgent         string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries        int    `yaml:"max_retries" mapstructure:"max_retries"`
	PageCacheDSN      string `yaml:"page_cache_dsn" mapstructure:"page_cache_dsn"`
	PageCacheTTLHours int    `yaml:"page_cache_ttl_hours" mapstructure:"page_cache_ttl_hours"`
}

// Timeout returns the per-source timeout.
func (r RefreshConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSecs) * time.Second
}

// PageCacheTTL returns how long a fetched page is served without revalidation.
func (r RefreshConfig) PageCacheTTL() time.Duration {
	return time.Duration(r.PageCacheTTLHours) * time.Hour
}

// ForecastConfig sets the projected year range.
type ForecastConfig struct {
	MinYear int `yaml:"min_year" mapstructure:"min_year"`
	MaxYear int `yaml:"max_year" mapstructure:"max_year"`
}

// CacheConfig configures bundle memoization.
type CacheConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend"`
	TTLHours   int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries"`
	RedisURL   string `yaml:"redis_url" mapstructure:"redis_url"`
}

// TTL returns the bundle lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CERVEJAZERO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "")
	v.SetDefault("refresh.enabled", true)
	v.SetDefault("refresh.timeout_secs", 8)
	v.SetDefault("refresh.sources_file", "")
	v.SetDefault("refresh.user_agent", "cervejazero/1.0")
	v.SetDefault("refresh.max_retries", 2)
	v.SetDefault("refresh.page_cache_dsn", "")
	v.SetDefault("refresh.page_cache_ttl_hours", 24)
	v.SetDefault("forecast.min_year", 2025)
	v.SetDefault("forecast.max_year", 2026)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("cache.max_entries", 16)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: build,
// export, serve.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "build", "export":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		switch c.Cache.Backend {
		case "memory":
			if c.Cache.MaxEntries < 1 {
				problems = append(problems, "cache.max_entries must be >= 1")
			}
		case "redis":
			if c.Cache.RedisURL == "" {
				problems = append(problems, "cache.redis_url is required for the redis backend")
			}
		default:
			problems = append(problems, "cache.backend must be memory or redis")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Forecast.MinYear > c.Forecast.MaxYear {
		problems = append(problems, "forecast.min_year must be <= forecast.max_year")
	}
	if c.Refresh.TimeoutSecs <= 0 {
		problems = append(problems, "refresh.timeout_secs must be > 0")
	}
	if c.Refresh.MaxRetries < 0 {
		problems = append(problems, "refresh.max_retries must be >= 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
