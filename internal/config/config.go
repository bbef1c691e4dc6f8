// Package config loads the self-play process's settings from a YAML
// file via viper, with command-line flags (see cmd/selfplay) able to
// override individual fields after load.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// BoardConfig describes the board every game in a run is played on.
type BoardConfig struct {
	Size  int     `mapstructure:"size"`
	Scale float64 `mapstructure:"scale"`
}

// MCTSConfig carries the tree-search parameters used by every game in a
// self-play run.
type MCTSConfig struct {
	ExplorationConstant float64 `mapstructure:"explorationConstant"`
	Temperature         float64 `mapstructure:"temperature"`
	NumSimulations      int     `mapstructure:"numSimulations"`
	Workers             int     `mapstructure:"workers"`
	Seed                int64   `mapstructure:"seed"`
}

// EvaluatorConfig selects and configures the neural.Evaluator backing a
// run. Kind is one of "mock", "grpc", "onnx".
type EvaluatorConfig struct {
	Kind string `mapstructure:"kind"`

	// GRPCAddress is used when Kind == "grpc".
	GRPCAddress string `mapstructure:"grpcAddress"`

	// The following are used when Kind == "onnx".
	ONNXSharedLibraryPath string `mapstructure:"onnxSharedLibraryPath"`
	ONNXModelPath         string `mapstructure:"onnxModelPath"`
	ONNXInputName         string `mapstructure:"onnxInputName"`
	ONNXValueOutputName   string `mapstructure:"onnxValueOutputName"`
	ONNXPolicyOutputName  string `mapstructure:"onnxPolicyOutputName"`
	ONNXPolicySize        int    `mapstructure:"onnxPolicySize"`
}

// SelfPlayConfig bounds how many games run concurrently and for how
// long.
type SelfPlayConfig struct {
	ConcurrentGames int `mapstructure:"concurrentGames"`
	TurnLimit       int `mapstructure:"turnLimit"`
}

// HTTPConfig configures the control-surface and spectator-feed server.
type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

// Config is the full settings tree for cmd/selfplay.
type Config struct {
	Board     BoardConfig     `mapstructure:"board"`
	MCTS      MCTSConfig      `mapstructure:"mcts"`
	Evaluator EvaluatorConfig `mapstructure:"evaluator"`
	SelfPlay  SelfPlayConfig  `mapstructure:"selfPlay"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Board: BoardConfig{Size: 25, Scale: 1.0},
		MCTS: MCTSConfig{
			ExplorationConstant: 1.41,
			Temperature:         1.0,
			NumSimulations:      200,
			Workers:             4,
			Seed:                1,
		},
		Evaluator: EvaluatorConfig{Kind: "mock"},
		SelfPlay: SelfPlayConfig{
			ConcurrentGames: 8,
			TurnLimit:       20,
		},
		HTTP: HTTPConfig{Address: ":8080"},
	}
}

// FromYaml loads a Config from path, starting from Default() and
// overriding whatever the file specifies.
func FromYaml(path string) (Config, error) {
	cfg := Default()

	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))

	if err := vp.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := vp.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that would make New/Reset calls downstream
// fail anyway, so misconfiguration surfaces at startup.
func (c Config) Validate() error {
	if c.Board.Size <= 0 {
		return fmt.Errorf("config: board.size must be positive, got %d", c.Board.Size)
	}
	if c.Board.Scale <= 0 {
		return fmt.Errorf("config: board.scale must be positive, got %g", c.Board.Scale)
	}
	if c.MCTS.NumSimulations <= 0 {
		return fmt.Errorf("config: mcts.numSimulations must be positive, got %d", c.MCTS.NumSimulations)
	}
	if c.MCTS.Workers <= 0 {
		return fmt.Errorf("config: mcts.workers must be positive, got %d", c.MCTS.Workers)
	}
	if c.MCTS.Temperature < 0 {
		return fmt.Errorf("config: mcts.temperature must be nonnegative, got %g", c.MCTS.Temperature)
	}
	if c.SelfPlay.ConcurrentGames <= 0 {
		return fmt.Errorf("config: selfPlay.concurrentGames must be positive, got %d", c.SelfPlay.ConcurrentGames)
	}
	switch c.Evaluator.Kind {
	case "mock":
	case "grpc":
		if c.Evaluator.GRPCAddress == "" {
			return fmt.Errorf("config: evaluator.grpcAddress is required when evaluator.kind is \"grpc\"")
		}
	case "onnx":
		if c.Evaluator.ONNXModelPath == "" {
			return fmt.Errorf("config: evaluator.onnxModelPath is required when evaluator.kind is \"onnx\"")
		}
	default:
		return fmt.Errorf("config: evaluator.kind must be one of mock, grpc, onnx; got %q", c.Evaluator.Kind)
	}
	return nil
}
