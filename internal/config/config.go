package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vrischmann/envconfig"
)

type Config struct {
	LoggerLevel string `envconfig:"LOGGER_LEVEL,default=info"`

	MasterHost string        `envconfig:"MASTER_HOST,default=master.unvanquished.net"`
	MasterPort uint16        `envconfig:"MASTER_PORT,default=27950"`
	Protocol   int           `envconfig:"PROTOCOL,default=86"`
	Timeout    time.Duration `envconfig:"QUERY_TIMEOUT,default=2s"`
	UseColor   bool          `envconfig:"USE_COLOR,default=false"`
	URIScheme  string        `envconfig:"URI_SCHEME,default=unv"`

	HTTPAddr string `envconfig:"HTTP_ADDR,default=:8080"`

	PeekInterval   time.Duration `envconfig:"PEEK_INTERVAL,default=1m"`
	PeekPeriod     time.Duration `envconfig:"PEEK_PERIOD,default=6h"`
	PeekMinPlayers int           `envconfig:"PEEK_MIN_PLAYERS,default=1"`

	StatsdAddr   string `envconfig:"STATSD_ADDR,optional"`
	StatsdPrefix string `envconfig:"STATSD_PREFIX,default=q3scout."`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{}
	if err := envconfig.Init(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read app config: %w", err)
	}
	if cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("query timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.PeekInterval <= 0 {
		return Config{}, fmt.Errorf("peek interval must be positive, got %s", cfg.PeekInterval)
	}
	return cfg, nil
}

func LoggerLevelFromString(level string) zerolog.Level {
	level = strings.ToLower(level)
	switch level {
	case "error":
		return zerolog.ErrorLevel
	case "warn":
		return zerolog.WarnLevel
	case "info":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	}
	return zerolog.WarnLevel
}
