package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fazecat/flowlens/Internal/series"
)

// Config is the full application configuration loaded from config.yaml.
// Engine tunables default from series.DefaultConfig and can be
// overridden per field.
type Config struct {
	Engine series.Config `yaml:"engine"`

	Feed struct {
		Mode          string `yaml:"mode"` // "alpaca" or "replay"
		Symbol        string `yaml:"symbol"`
		AssetType     string `yaml:"asset_type"`
		BaseTimeframe string `yaml:"base_timeframe"`
		BiasTimeframe string `yaml:"bias_timeframe"`
		TrigTimeframe string `yaml:"trigger_timeframe"`
		HistoryLimit  int    `yaml:"history_limit"`
		ReplayPath    string `yaml:"replay_path"`
	} `yaml:"feed"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Default returns a config that works without any file present.
func Default() *Config {
	cfg := &Config{Engine: series.DefaultConfig()}
	cfg.Feed.Mode = "replay"
	cfg.Feed.Symbol = "MES"
	cfg.Feed.AssetType = "stock"
	cfg.Feed.BaseTimeframe = "5Min"
	cfg.Feed.BiasTimeframe = "5Min"
	cfg.Feed.TrigTimeframe = "1Min"
	cfg.Feed.HistoryLimit = 500
	cfg.Feed.ReplayPath = "data/tape.csv"
	cfg.Server.Addr = ":8089"
	cfg.Logging.Level = "info"
	return cfg
}

// Load reads config.yaml, trying a small list of locations so the
// binary works from the repo root as well as from a build directory.
// A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	cfg := Default()

	paths := []string{
		"config.yaml",
		"Internal/utils/config/config.yaml",
	}

	var data []byte
	var err error
	for _, path := range paths {
		data, err = os.ReadFile(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.BasePeriod < 1 || c.Engine.BiasPeriod < 1 || c.Engine.TriggerPeriod < 1 {
		return fmt.Errorf("engine periods must be at least 1")
	}
	if c.Engine.ClusterLookback < 1 {
		return fmt.Errorf("engine.cluster_lookback must be at least 1")
	}
	if c.Engine.ClusterBucketSize <= 0 {
		return fmt.Errorf("engine.cluster_bucket_size must be positive")
	}
	if c.Engine.ValueAreaFraction <= 0 || c.Engine.ValueAreaFraction > 1 {
		return fmt.Errorf("engine.value_area_fraction must be in (0, 1]")
	}
	if c.Engine.TriggerEWMAlpha <= 0 || c.Engine.TriggerEWMAlpha > 1 {
		return fmt.Errorf("engine.trigger_ewm_alpha must be in (0, 1]")
	}
	if c.Engine.DeltaDecayRatio <= 0 || c.Engine.DeltaDecayRatio >= 1 {
		return fmt.Errorf("engine.delta_decay_ratio must be in (0, 1)")
	}
	switch c.Feed.Mode {
	case "alpaca", "replay":
	default:
		return fmt.Errorf("feed.mode must be alpaca or replay, got %q", c.Feed.Mode)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}
