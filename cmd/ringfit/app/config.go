package app

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/planetary-radio/ringocc/internal/ringfit"
)

// Config represents the main application configuration
type Config struct {
	Settings Settings        `yaml:"settings"`
	Kernel   string          `yaml:"leapSecondKernel"`
	Database string          `yaml:"database"`
	Features []FeatureConfig `yaml:"features"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses the configured log level; an empty value means Info.
func (s Settings) Level() (slog.Level, error) {
	if s.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	return level, nil
}

// FeatureConfig names one ring feature to locate in one profile file.
type FeatureConfig struct {
	File        string      `yaml:"file"`
	Name        string      `yaml:"name"`
	CentGuessKm float64     `yaml:"centGuessKm"`
	DataLimsKm  *[2]float64 `yaml:"dataLimsKm"`
	Lineshape   string      `yaml:"lineshape"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if len(config.Features) == 0 {
		return nil, fmt.Errorf("no features specified in configuration")
	}
	for i, f := range config.Features {
		if f.File == "" {
			return nil, fmt.Errorf("feature %d: file is required", i)
		}
		if f.CentGuessKm <= 0 {
			return nil, fmt.Errorf("feature %d: centGuessKm must be positive, got %g", i, f.CentGuessKm)
		}
		if f.Lineshape != "" {
			if _, err = ringfit.ParseLineshape(f.Lineshape); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
		}
	}

	return &config, nil
}
