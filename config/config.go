package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Input      InputConfig      `yaml:"input"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Merger     MergerConfig     `yaml:"merger"`
	Writer     WriterConfig     `yaml:"writer"`
	Plot       PlotConfig       `yaml:"plot"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type InputConfig struct {
	// Directory holding the session exports. Output paths resolve against it.
	// It has no default; sleep-merge takes it from the command line.
	Directory string `yaml:"directory"`
	// Timezone used to render epoch timestamps and interpret wall-clock ones.
	Timezone string `yaml:"timezone"`
	// O2RingInterval is the sample spacing used when an O2Ring export has no Time column.
	O2RingInterval time.Duration `yaml:"o2ring_interval"`
}

// Reduction policies for SpO2 and heart rate samples within one minute.
const (
	ReductionMean = "mean"
	ReductionLast = "last"
)

type NormalizerConfig struct {
	Reduction     string `yaml:"reduction"`
	MinConfidence int    `yaml:"min_confidence"`
	// InterpolateHeartRate fills interior Garmin heart rate minutes linearly.
	InterpolateHeartRate bool `yaml:"interpolate_heart_rate"`
}

// Join policies for the merged time range.
const (
	JoinUnion        = "union"
	JoinIntersection = "intersection"
)

type MergerConfig struct {
	Join string `yaml:"join"`
	// SkipInvalid logs and skips unsupported or malformed files instead of failing the run.
	SkipInvalid bool `yaml:"skip_invalid"`
}

type WriterConfig struct {
	Output   string        `yaml:"output"`
	Manifest bool          `yaml:"manifest"`
	Parquet  ParquetConfig `yaml:"parquet"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

type PlotConfig struct {
	Title       string `yaml:"title"`
	Width       int    `yaml:"width"`
	PanelHeight int    `yaml:"panel_height"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:    "sleepcompare",
			Version: "1.0",
		},
		Input: InputConfig{
			Timezone:       "Local",
			O2RingInterval: 4 * time.Second,
		},
		Normalizer: NormalizerConfig{
			Reduction: ReductionMean,
		},
		Merger: MergerConfig{
			Join: JoinUnion,
		},
		Writer: WriterConfig{
			Output:   "merged_data.csv",
			Manifest: true,
			Parquet: ParquetConfig{
				Compression: "snappy",
			},
		},
		Plot: PlotConfig{
			Title:       "Garmin vs O2Ring Measurements",
			Width:       1500,
			PanelHeight: 400,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadConfig reads a YAML file on top of Default. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.Normalizer.Reduction = strings.ToLower(strings.TrimSpace(config.Normalizer.Reduction))
	config.Merger.Join = strings.ToLower(strings.TrimSpace(config.Merger.Join))
	config.Writer.Parquet.Compression = strings.ToLower(strings.TrimSpace(config.Writer.Parquet.Compression))

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks policy names and numeric bounds.
func Validate(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("input.timezone: %w", err)
	}
	if cfg.Input.O2RingInterval <= 0 {
		return fmt.Errorf("input.o2ring_interval must be greater than 0")
	}

	switch cfg.Normalizer.Reduction {
	case ReductionMean, ReductionLast:
	default:
		return fmt.Errorf("normalizer.reduction '%s' is invalid (want mean or last)", cfg.Normalizer.Reduction)
	}
	if cfg.Normalizer.MinConfidence < 0 {
		return fmt.Errorf("normalizer.min_confidence must not be negative")
	}

	switch cfg.Merger.Join {
	case JoinUnion, JoinIntersection:
	default:
		return fmt.Errorf("merger.join '%s' is invalid (want union or intersection)", cfg.Merger.Join)
	}

	if strings.TrimSpace(cfg.Writer.Output) == "" {
		return fmt.Errorf("writer.output is required")
	}
	if !isValidCompression(cfg.Writer.Parquet.Compression) {
		return fmt.Errorf("writer.parquet.compression '%s' is invalid", cfg.Writer.Parquet.Compression)
	}

	if cfg.Plot.Width <= 0 || cfg.Plot.PanelHeight <= 0 {
		return fmt.Errorf("plot.width and plot.panel_height must be greater than 0")
	}

	return nil
}

// Location resolves Input.Timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Input.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	return time.LoadLocation(c.Input.Timezone)
}

func isValidCompression(name string) bool {
	switch name {
	case "snappy", "gzip", "uncompressed", "none":
		return true
	}
	return false
}
