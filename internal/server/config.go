package server

import (
	"fmt"
	"os"

	"log/slog"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"herobyte/internal/registry"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port            string   `env:"PORT" envDefault:"8080"`
	DataDir         string   `env:"DATA_DIR" envDefault:"data"`
	AllowedOrigins  []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	TuningFile      string   `env:"TUNING_FILE"`
	DiceLogDisabled bool     `env:"DICE_LOG_DISABLED"`
}

// LoadConfig builds a Config instance from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// LoadTuning reads gameplay tuning from an optional YAML file, falling back
// to defaults for anything missing or unreadable.
func LoadTuning(path string, logger *slog.Logger) registry.Tuning {
	tuning := registry.DefaultTuning()
	if path == "" {
		return tuning
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read tuning file", slog.String("path", path), slog.String("error", err.Error()))
		return tuning
	}
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		logger.Error("parse tuning file", slog.String("path", path), slog.String("error", err.Error()))
		return registry.DefaultTuning()
	}
	defaults := registry.DefaultTuning()
	if tuning.GridSize <= 0 {
		tuning.GridSize = defaults.GridSize
	}
	if tuning.GridSquareSize <= 0 {
		tuning.GridSquareSize = defaults.GridSquareSize
	}
	if tuning.StagingZoneMinDim <= 0 {
		tuning.StagingZoneMinDim = defaults.StagingZoneMinDim
	}
	if tuning.DiceHistoryLimit <= 0 {
		tuning.DiceHistoryLimit = defaults.DiceHistoryLimit
	}
	return tuning
}
