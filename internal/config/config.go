package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"floodsim/internal/node"
	"floodsim/internal/scenario"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type MainConfig struct {
	LogPath     string           `yaml:"log_path"`
	LogLevel    string           `yaml:"log_level" validate:"oneof=debug info warn error"`
	MetricsAddr string           `yaml:"metrics_addr"`
	Simulation  SimulationConfig `yaml:"simulation"`
}

// SimulationConfig holds everything that shapes a batch of runs.
type SimulationConfig struct {
	Seed     int64  `yaml:"seed"`
	Runs     int    `yaml:"runs" validate:"gte=1"`
	Scenario string `yaml:"scenario" validate:"oneof=tier1 churn churn_model"`
	Strategy string `yaml:"strategy" validate:"oneof=flood_all selective peer_sampling"`

	NumValidators   int `yaml:"num_validators" validate:"gte=1"`
	NumWatchers     int `yaml:"num_watchers" validate:"gte=0"`
	NumTransactions int `yaml:"num_transactions" validate:"gte=1"`

	LinkLatency float64 `yaml:"link_latency" validate:"gte=0"`
	LinkJitter  float64 `yaml:"link_jitter" validate:"gte=0"`

	GracePeriod       float64 `yaml:"grace_period" validate:"gt=0"`
	MaxClusters       int     `yaml:"max_clusters" validate:"gte=1"`
	Redundancy        int     `yaml:"redundancy" validate:"gte=0"`
	RefloodDuplicates bool    `yaml:"reflood_duplicates"`
	TxPropagation     string  `yaml:"tx_propagation" validate:"oneof=push pull"`

	ValidatorRounds   int     `yaml:"validator_rounds" validate:"gte=0"`
	ValidatorInterval float64 `yaml:"validator_interval" validate:"gt=0"`
	ChurnDisconnects  int     `yaml:"churn_disconnects" validate:"gte=0"`
}

// Default returns the configuration used when no file is present.
func Default() MainConfig {
	return MainConfig{
		LogPath:  "",
		LogLevel: "info",
		Simulation: SimulationConfig{
			Seed:              0,
			Runs:              1,
			Scenario:          "tier1",
			Strategy:          "flood_all",
			NumValidators:     7,
			NumWatchers:       21,
			NumTransactions:   20,
			LinkLatency:       0.1,
			LinkJitter:        0.05,
			GracePeriod:       0.5,
			MaxClusters:       3,
			Redundancy:        0,
			RefloodDuplicates: true,
			TxPropagation:     "push",
			ValidatorRounds:   2,
			ValidatorInterval: 1,
			ChurnDisconnects:  2,
		},
	}
}

// LoadMainConfig Read the configuration file and return the configuration object.
// A missing file yields the defaults; keys absent from the file keep them.
func LoadMainConfig(basePath string) (*MainConfig, error) {
	cfg := Default()

	if basePath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Dir(exePath)
	}
	configPath := filepath.Join(basePath, "config", "floodsim.yml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("[ERROR] failed to read config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("[ERROR] failed to parse config file %s: %w", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("[ERROR] invalid config file %s: %w", configPath, err)
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and cross-field constraints.
func (c *MainConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	s := c.Simulation
	if s.Scenario == "churn_model" && s.NumWatchers < 6 {
		return fmt.Errorf("churn_model removes watchers 2 and 5, needs at least 6 watchers, have %d", s.NumWatchers)
	}
	if s.Scenario == "churn" && s.ChurnDisconnects >= s.NumWatchers && s.NumWatchers > 0 {
		return fmt.Errorf("churn_disconnects %d must be below num_watchers %d", s.ChurnDisconnects, s.NumWatchers)
	}
	return nil
}

// Params converts the simulation section into runner parameters.
func (s SimulationConfig) Params() (scenario.Params, error) {
	strategy, err := node.ParseStrategy(s.Strategy)
	if err != nil {
		return scenario.Params{}, err
	}
	o := node.DefaultOptions()
	o.Strategy = strategy
	o.MaxClusters = s.MaxClusters
	o.Redundancy = s.Redundancy
	o.RefloodDuplicates = s.RefloodDuplicates
	o.TxPropagation = node.TxPropagation(s.TxPropagation)
	o.GracePeriod = s.GracePeriod
	o.Rounds = s.ValidatorRounds
	o.Interval = s.ValidatorInterval

	return scenario.Params{
		Name:             s.Scenario,
		Runs:             s.Runs,
		Seed:             s.Seed,
		Validators:       s.NumValidators,
		Watchers:         s.NumWatchers,
		Transactions:     s.NumTransactions,
		Latency:          s.LinkLatency,
		Jitter:           s.LinkJitter,
		ChurnDisconnects: s.ChurnDisconnects,
		Node:             o,
	}, nil
}
