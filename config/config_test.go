package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig writes content to a temporary YAML file and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `app:
  name: "night-check"
input:
  directory: /data/2024-01-01
  timezone: UTC
  o2ring_interval: 2s
normalizer:
  reduction: LAST
  min_confidence: 2
  interpolate_heart_rate: true
merger:
  join: intersection
  skip_invalid: true
writer:
  parquet:
    enabled: true
    compression: gzip
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.App.Name != "night-check" {
		t.Errorf("unexpected name: %s", cfg.App.Name)
	}
	if cfg.Input.O2RingInterval != 2*time.Second {
		t.Errorf("unexpected interval: %s", cfg.Input.O2RingInterval)
	}
	if cfg.Normalizer.Reduction != ReductionLast {
		t.Errorf("unexpected reduction: %s", cfg.Normalizer.Reduction)
	}
	if !cfg.Normalizer.InterpolateHeartRate {
		t.Errorf("interpolate_heart_rate not loaded")
	}
	if cfg.Merger.Join != JoinIntersection || !cfg.Merger.SkipInvalid {
		t.Errorf("unexpected merger config: %+v", cfg.Merger)
	}
	// untouched sections keep their defaults
	if cfg.Writer.Output != "merged_data.csv" {
		t.Errorf("unexpected output: %s", cfg.Writer.Output)
	}
	if !cfg.Writer.Manifest {
		t.Errorf("manifest should default to enabled")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("unexpected log level: %s", cfg.Logging.Level)
	}
}

func TestLoadConfigEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Normalizer.Reduction != ReductionMean || cfg.Merger.Join != JoinUnion {
		t.Errorf("unexpected default policies: %s/%s", cfg.Normalizer.Reduction, cfg.Merger.Join)
	}
	if cfg.Normalizer.InterpolateHeartRate {
		t.Errorf("heart rate interpolation must default to off")
	}
	// the session directory is never implied
	if cfg.Input.Directory != "" {
		t.Errorf("unexpected default directory: %q", cfg.Input.Directory)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"reduction":   "normalizer:\n  reduction: median\n",
		"join":        "merger:\n  join: outer\n",
		"compression": "writer:\n  parquet:\n    compression: brotli9\n",
		"timezone":    "input:\n  timezone: Mars/Olympus\n",
		"interval":    "input:\n  o2ring_interval: 0s\n",
		"plot":        "plot:\n  width: 0\n",
		"confidence":  "normalizer:\n  min_confidence: -1\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeTempConfig(t, content)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	cfg.Input.Timezone = "UTC"
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("unexpected location %v, err %v", loc, err)
	}
}
