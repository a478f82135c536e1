package config

import (
	"os"
	"path/filepath"
	"testing"

	"floodsim/internal/node"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "config"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "config", "floodsim.yml"), []byte(body), 0644))
	return base
}

func TestLoadMainConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMainConfig_PartialOverride(t *testing.T) {
	base := writeConfig(t, `
log_level: debug
metrics_addr: ":9100"
simulation:
  scenario: churn
  strategy: selective
  runs: 3
  reflood_duplicates: false
`)
	cfg, err := LoadMainConfig(base)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, "churn", cfg.Simulation.Scenario)
	assert.Equal(t, "selective", cfg.Simulation.Strategy)
	assert.Equal(t, 3, cfg.Simulation.Runs)
	assert.False(t, cfg.Simulation.RefloodDuplicates)
	// untouched keys keep defaults
	assert.Equal(t, 7, cfg.Simulation.NumValidators)
	assert.Equal(t, 0.5, cfg.Simulation.GracePeriod)
}

func TestLoadMainConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", "simulation: [unclosed"},
		{"bad strategy", "simulation:\n  strategy: gossip\n"},
		{"bad propagation", "simulation:\n  tx_propagation: both\n"},
		{"zero grace", "simulation:\n  grace_period: 0\n"},
		{"negative watchers", "simulation:\n  num_watchers: -1\n"},
		{"churn model too small", "simulation:\n  scenario: churn_model\n  num_watchers: 4\n"},
		{"churn removes everyone", "simulation:\n  scenario: churn\n  num_watchers: 2\n  churn_disconnects: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMainConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestSimulationConfig_Params(t *testing.T) {
	cfg := Default()
	cfg.Simulation.Strategy = "selective"
	cfg.Simulation.TxPropagation = "pull"
	cfg.Simulation.Redundancy = 2

	p, err := cfg.Simulation.Params()
	require.NoError(t, err)
	assert.Equal(t, "tier1", p.Name)
	assert.Equal(t, 7, p.Validators)
	assert.Equal(t, 21, p.Watchers)
	assert.Equal(t, node.Selective, p.Node.Strategy)
	assert.Equal(t, node.Pull, p.Node.TxPropagation)
	assert.Equal(t, 2, p.Node.Redundancy)
	assert.Equal(t, 2, p.Node.Rounds)

	cfg.Simulation.Strategy = "gossip"
	_, err = cfg.Simulation.Params()
	assert.Error(t, err)
}
