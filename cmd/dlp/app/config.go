package app

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/planetary-radio/ringocc/internal/occult"
)

// Config represents the main application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	Input    InputConfig   `yaml:"input"`
	Profile  ProfileConfig `yaml:"profile"`
	Output   OutputConfig  `yaml:"output"`
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

// InputConfig locates the three input series exports of one observation.
type InputConfig struct {
	Signal           string `yaml:"signalFile"`
	Geometry         string `yaml:"geometryFile"`
	Calibration      string `yaml:"calibrationFile"`
	CalibratedSignal string `yaml:"calibratedSignalFile"`
	Direction        string `yaml:"direction"`
}

// ProfileConfig tunes profile assembly.
type ProfileConfig struct {
	DrKm         float64    `yaml:"drKm"`
	RangeKm      [2]float64 `yaml:"rangeKm"`
	ThresholdTau float64    `yaml:"thresholdTau"`
}

// OutputConfig selects where profiles are written and how they are
// identified in the archive naming scheme.
type OutputConfig struct {
	Directory  string `yaml:"directory"`
	Database   string `yaml:"database"`
	WriteFiles bool   `yaml:"writeFiles"`

	Rev     string `yaml:"rev"`
	Year    int    `yaml:"year"`
	DOY     int    `yaml:"doy"`
	Band    string `yaml:"band"`
	Station string `yaml:"station"`
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

	if config.Input.Signal == "" || config.Input.Geometry == "" || config.Input.Calibration == "" {
		return nil, fmt.Errorf("signalFile, geometryFile and calibrationFile are required")
	}
	switch occult.Direction(config.Input.Direction) {
	case occult.Ingress, occult.Egress, occult.Both:
	default:
		return nil, fmt.Errorf("%w: %q", occult.ErrInvalidDirection, config.Input.Direction)
	}
	if config.Profile.DrKm <= 0 {
		return nil, fmt.Errorf("drKm must be positive, got %g", config.Profile.DrKm)
	}

	return &config, nil
}
