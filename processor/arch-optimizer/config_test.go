package archoptimizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semarch/search"
	"github.com/c360studio/semstreams/component"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Search: search.Config{MaxIterations: 12}}.withDefaults()

	assert.Equal(t, "ARCHITECTURE", cfg.StreamName)
	assert.Equal(t, "arch-optimizer", cfg.ConsumerName)
	assert.Equal(t, 1, cfg.ProgressEvery)
	assert.Equal(t, 12, cfg.Search.MaxIterations)
	assert.Equal(t, search.DefaultConfig().ParetoFrontSize, cfg.Search.ParetoFrontSize)
	assert.Equal(t, DefaultConfig().Detection, cfg.Detection)
	require.NoError(t, cfg.Validate())
}

func TestConfig_GetRunTimeout(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 5 * time.Minute},
		{"90s", 90 * time.Second},
		{"garbage", 5 * time.Minute},
		{"-1s", 5 * time.Minute},
	}
	for _, tt := range tests {
		cfg := Config{RunTimeout: tt.in}
		assert.Equal(t, tt.want, cfg.GetRunTimeout(), tt.in)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig()

	noStream := base
	noStream.StreamName = ""
	assert.Error(t, noStream.Validate())

	negative := base
	negative.ProgressEvery = -1
	assert.Error(t, negative.Validate())

	badTimeout := base
	badTimeout.RunTimeout = "soon"
	assert.Error(t, badTimeout.Validate())

	assert.NoError(t, base.Validate())
}

func TestConfig_RequestSubject(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, RequestSubject, cfg.requestSubject())

	cfg.Ports = &component.PortConfig{Inputs: []component.PortDefinition{{Name: "in", Subject: "arch.optimize.custom"}}}
	assert.Equal(t, "arch.optimize.custom", cfg.requestSubject())

	cfg.Ports = nil
	assert.Equal(t, RequestSubject, cfg.requestSubject())
}
