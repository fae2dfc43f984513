// Package config holds the immutable configuration shared by every
// component of the decision core.
//
// A Config is built once per game (Default or Load, then WithEnv for the
// values the host supplies at startup) and passed by pointer afterwards.
// Nothing mutates it after construction.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config contains all tunables of the agent.
type Config struct {
	Game      GameConfig      `yaml:"game"`
	Planning  PlanningConfig  `yaml:"planning"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Heal      HealConfig      `yaml:"heal"`
	Inference InferenceConfig `yaml:"inference"`
}

// GameConfig mirrors the rules of the host simulation.
type GameConfig struct {
	SpaceSize             int      `yaml:"space_size" validate:"gt=1"`
	MaxUnits              int      `yaml:"max_units" validate:"gt=0"`
	MaxUnitEnergy         int      `yaml:"max_unit_energy" validate:"gt=0"`
	MaxStepsInMatch       int      `yaml:"max_steps_in_match" validate:"gt=0"`
	RelicRewardRange      int      `yaml:"relic_reward_range" validate:"gte=0"`
	MinTileEnergy         int      `yaml:"min_tile_energy"`
	MaxTileEnergy         int      `yaml:"max_tile_energy" validate:"gtefield=MinTileEnergy"`
	HiddenTileEnergy      int      `yaml:"hidden_tile_energy"`
	NebulaEnergyReduction int      `yaml:"nebula_energy_reduction" validate:"gte=0"`
	UnitMoveCost          int      `yaml:"unit_move_cost" validate:"gte=1"`
	UnitSapCost           int      `yaml:"unit_sap_cost" validate:"gte=0"`
	UnitSapRange          int      `yaml:"unit_sap_range" validate:"gte=0"`
	UnitSensorRange       int      `yaml:"unit_sensor_range" validate:"gte=0"`
	ObstaclePeriods       []int    `yaml:"obstacle_periods" validate:"min=1,dive,gt=0"`
	ObstacleDirections    [][2]int `yaml:"obstacle_directions" validate:"min=1"`
}

// PlanningConfig tunes the pathfinder cost model.
type PlanningConfig struct {
	Horizon       int     `yaml:"horizon" validate:"gt=0"`
	WaitCost      float64 `yaml:"wait_cost" validate:"gte=0"`
	EnergyWeight  float64 `yaml:"energy_weight" validate:"gte=0"`
	NebulaPenalty float64 `yaml:"nebula_penalty" validate:"gte=0"`
}

// ScoringConfig holds the linear task evaluation weights.
type ScoringConfig struct {
	HarvestBase       float64 `yaml:"harvest_base"`
	HarvestDistance   float64 `yaml:"harvest_distance"`
	ExploreBase       float64 `yaml:"explore_base"`
	ExploreDistance   float64 `yaml:"explore_distance"`
	HealBase          float64 `yaml:"heal_base"`
	HealEnergyDeficit float64 `yaml:"heal_energy_deficit"`
	HealOppSpawn      float64 `yaml:"heal_opp_spawn"`
}

// HealConfig shapes the energy-recovery score field.
type HealConfig struct {
	RewardRadius     int         `yaml:"reward_radius" validate:"gte=0"`
	Relaxation       float64     `yaml:"relaxation" validate:"gt=0"`
	Kernel           [][]float64 `yaml:"kernel" validate:"min=1"`
	BoundaryPenalty  []float64   `yaml:"boundary_penalty"`
	EnergyMultiplier float64     `yaml:"energy_multiplier"`
	BunchingPenalty  float64     `yaml:"bunching_penalty" validate:"gte=0"`
	TieEpsilon       float64     `yaml:"tie_epsilon" validate:"gte=0"`
}

// InferenceConfig bounds the hidden-state bookkeeping.
type InferenceConfig struct {
	MaxRewardObservations int `yaml:"max_reward_observations" validate:"gt=0"`
}

// EnvConfig carries the per-game values the host reveals at startup.
// Zero fields leave the configured value untouched.
type EnvConfig struct {
	MaxUnits        int `json:"max_units" yaml:"max_units"`
	UnitMoveCost    int `json:"unit_move_cost" yaml:"unit_move_cost"`
	UnitSapCost     int `json:"unit_sap_cost" yaml:"unit_sap_cost"`
	UnitSapRange    int `json:"unit_sap_range" yaml:"unit_sap_range"`
	UnitSensorRange int `json:"unit_sensor_range" yaml:"unit_sensor_range"`
}

// Default returns the configuration used against the standard 24x24 map.
func Default() Config {
	return Config{
		Game: GameConfig{
			SpaceSize:             24,
			MaxUnits:              16,
			MaxUnitEnergy:         400,
			MaxStepsInMatch:       100,
			RelicRewardRange:      2,
			MinTileEnergy:         -20,
			MaxTileEnergy:         20,
			HiddenTileEnergy:      0,
			NebulaEnergyReduction: 10,
			UnitMoveCost:          1,
			UnitSapCost:           30,
			UnitSapRange:          3,
			UnitSensorRange:       2,
			ObstaclePeriods:       []int{20, 40},
			ObstacleDirections:    [][2]int{{1, -1}, {-1, 1}},
		},
		Planning: PlanningConfig{
			Horizon:       64,
			WaitCost:      1,
			EnergyWeight:  0.1,
			NebulaPenalty: 2,
		},
		Scoring: ScoringConfig{
			HarvestBase:       100,
			HarvestDistance:   1,
			ExploreBase:       50,
			ExploreDistance:   1,
			HealBase:          0,
			HealEnergyDeficit: 0.1,
			HealOppSpawn:      0.5,
		},
		Heal: HealConfig{
			RewardRadius: 4,
			Relaxation:   3,
			Kernel: [][]float64{
				{0.00, 0.10, 0.11, 0.10, 0.00},
				{0.10, 0.11, 0.11, 0.11, 0.10},
				{0.11, 0.11, 0.11, 0.11, 0.11},
				{0.10, 0.11, 0.11, 0.11, 0.10},
				{0.00, 0.11, 0.11, 0.10, 0.00},
			},
			BoundaryPenalty:  []float64{0.5, 0.8, 0.95},
			EnergyMultiplier: 0.25,
			BunchingPenalty:  2,
			TieEpsilon:       0.5,
		},
		Inference: InferenceConfig{
			MaxRewardObservations: 256,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WithEnv returns a copy of c with the host-supplied values applied.
func (c Config) WithEnv(env EnvConfig) Config {
	if env.MaxUnits > 0 {
		c.Game.MaxUnits = env.MaxUnits
	}
	if env.UnitMoveCost > 0 {
		c.Game.UnitMoveCost = env.UnitMoveCost
	}
	if env.UnitSapCost > 0 {
		c.Game.UnitSapCost = env.UnitSapCost
	}
	if env.UnitSapRange > 0 {
		c.Game.UnitSapRange = env.UnitSapRange
	}
	if env.UnitSensorRange > 0 {
		c.Game.UnitSensorRange = env.UnitSensorRange
	}
	return c
}

var validate = validator.New()

// Validate checks struct constraints plus the shape rules tags cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, d := range c.Game.ObstacleDirections {
		if d[0] == 0 && d[1] == 0 {
			return fmt.Errorf("invalid config: %w", errors.New("obstacle direction (0,0)"))
		}
	}
	size := len(c.Heal.Kernel)
	if size%2 == 0 {
		return fmt.Errorf("invalid config: heal kernel must have odd size, got %d", size)
	}
	for i, row := range c.Heal.Kernel {
		if len(row) != size {
			return fmt.Errorf("invalid config: heal kernel row %d has %d entries, want %d", i, len(row), size)
		}
	}
	return nil
}
