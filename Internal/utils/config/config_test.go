package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20, cfg.Engine.OrderFlow.WindowSize)
	assert.Equal(t, 0.70, cfg.Engine.ValueAreaFraction)
	assert.Equal(t, 20.0, cfg.Engine.Features.ClusterNormalization)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero base period", mutate: func(c *Config) { c.Engine.BasePeriod = 0 }},
		{name: "zero cluster lookback", mutate: func(c *Config) { c.Engine.ClusterLookback = 0 }},
		{name: "negative bucket size", mutate: func(c *Config) { c.Engine.ClusterBucketSize = -1 }},
		{name: "value area above one", mutate: func(c *Config) { c.Engine.ValueAreaFraction = 1.5 }},
		{name: "bad ewm alpha", mutate: func(c *Config) { c.Engine.TriggerEWMAlpha = 0 }},
		{name: "bad decay ratio", mutate: func(c *Config) { c.Engine.DeltaDecayRatio = 1 }},
		{name: "unknown feed mode", mutate: func(c *Config) { c.Feed.Mode = "ftp" }},
		{name: "empty server addr", mutate: func(c *Config) { c.Server.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
