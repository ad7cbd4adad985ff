package infra

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds the whole application configuration. Secrets are loaded from
// the file and then overridden from environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Broker struct {
		RestURL   string `yaml:"rest_url"`
		WSURL     string `yaml:"ws_url"`
		Token     string `yaml:"token"`
		AccountID string `yaml:"account_id"`
		Paper     bool   `yaml:"paper"` // dry-run broker, no real orders
	} `yaml:"broker"`

	Backend struct {
		Host       string `yaml:"host"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"backend"`

	Trading struct {
		PauseSec    int             `yaml:"pause_sec"`
		StopsSum    decimal.Decimal `yaml:"stops_sum"`
		LongLevels  []int64         `yaml:"long_levels"`
		ShortLevels []int64         `yaml:"short_levels"`
		NukeLevels  []int64         `yaml:"nuke_levels"`
		OrderTTLMin int             `yaml:"order_ttl_min"`
	} `yaml:"trading"`

	Notify struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"notify"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and validates the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv lets deployments keep secrets out of the config file.
func overrideWithEnv(cfg *Config) {
	if token := os.Getenv("TRADE_BROKER_TOKEN"); token != "" {
		cfg.Broker.Token = token
	}
	if account := os.Getenv("TRADE_ACCOUNT_ID"); account != "" {
		cfg.Broker.AccountID = account
	}
	if host := os.Getenv("TRADE_BACKEND_HOST"); host != "" {
		cfg.Backend.Host = host
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Trading.PauseSec == 0 {
		cfg.Trading.PauseSec = 1
	}
	if cfg.Trading.StopsSum.IsZero() {
		cfg.Trading.StopsSum = decimal.NewFromInt(300000)
	}
	if len(cfg.Trading.LongLevels) == 0 {
		cfg.Trading.LongLevels = []int64{15, 20, 25}
	}
	if len(cfg.Trading.ShortLevels) == 0 {
		cfg.Trading.ShortLevels = []int64{20, 25, 30}
	}
	if len(cfg.Trading.NukeLevels) == 0 {
		cfg.Trading.NukeLevels = []int64{5, 10, 15}
	}
	if cfg.Trading.OrderTTLMin == 0 {
		cfg.Trading.OrderTTLMin = 120
	}
	if cfg.Backend.TimeoutSec == 0 {
		cfg.Backend.TimeoutSec = 10
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Backend.Host, "http://") && !strings.HasPrefix(c.Backend.Host, "https://") {
		return fmt.Errorf("invalid backend host: %s", c.Backend.Host)
	}
	if !c.Broker.Paper {
		if !strings.HasPrefix(c.Broker.RestURL, "http://") && !strings.HasPrefix(c.Broker.RestURL, "https://") {
			return fmt.Errorf("invalid broker REST URL: %s", c.Broker.RestURL)
		}
		if c.Broker.WSURL != "" && !strings.HasPrefix(c.Broker.WSURL, "ws://") && !strings.HasPrefix(c.Broker.WSURL, "wss://") {
			return fmt.Errorf("invalid broker WS URL: %s", c.Broker.WSURL)
		}
	}
	if c.Trading.PauseSec <= 0 {
		return fmt.Errorf("pause between cycles must be positive")
	}
	if c.Trading.StopsSum.Sign() <= 0 {
		return fmt.Errorf("stops sum must be positive")
	}
	for _, levels := range [][]int64{c.Trading.LongLevels, c.Trading.ShortLevels, c.Trading.NukeLevels} {
		for _, level := range levels {
			if level <= 0 || level >= 100 {
				return fmt.Errorf("stop level out of range: %d", level)
			}
		}
	}
	return nil
}
