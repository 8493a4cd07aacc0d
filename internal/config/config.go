// Application configuration loaded from YAML
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"vision-inventory/internal/geometry"
)

// Blob binarization modes.
const (
	BlobModeInverse = "inverse"
	BlobModeBand    = "band"
)

// Config holds runtime configuration for the pipelines and the application.
// Fields may be loaded from a YAML file and overridden by command-line flags.
type Config struct {
	Debug     bool           `yaml:"debug"`
	Camera    CameraConfig   `yaml:"camera"`
	Blob      BlobConfig     `yaml:"blob"`
	Markers   MarkerConfig   `yaml:"markers"`
	Warehouse geometry.Grid  `yaml:"warehouse"`
	Polling   PollingConfig  `yaml:"polling"`
	Catalog   CatalogConfig  `yaml:"catalog"`
	Dispatch  DispatchConfig `yaml:"dispatch"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}

type CameraConfig struct {
	// Probe lists the device indexes tried in order; the first that opens wins.
	Probe []int `yaml:"probe"`
	// MirrorBlob flips blob-counter frames horizontally.
	MirrorBlob bool `yaml:"mirror_blob"`
	// MirrorMarkers flips classification and warehouse frames horizontally.
	MirrorMarkers bool `yaml:"mirror_markers"`
}

type BlobConfig struct {
	Mode         string `yaml:"mode"`
	Threshold    int    `yaml:"threshold"`
	BandLow      int    `yaml:"band_low"`
	BandHigh     int    `yaml:"band_high"`
	DisplayWidth int    `yaml:"display_width"`
	// GridEnabled turns on the blob occupancy grid.
	GridEnabled bool          `yaml:"grid_enabled"`
	Grid        geometry.Grid `yaml:"grid"`
}

type MarkerConfig struct {
	Dictionary       string `yaml:"dictionary"`
	HighlightSeconds int    `yaml:"highlight_seconds"`
}

type PollingConfig struct {
	VideoMS     int `yaml:"video_ms"`
	ClassifyMS  int `yaml:"classify_ms"`
	WarehouseMS int `yaml:"warehouse_ms"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type DispatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      string `yaml:"port"`
	BaudRate  int    `yaml:"baud_rate"`
	Command   string `yaml:"command"`
	TargetRow int    `yaml:"target_row"`
	GapMS     int    `yaml:"gap_ms"`
}

type MetricsConfig struct {
	SampleSeconds int `yaml:"sample_seconds"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug: false,
		Camera: CameraConfig{
			Probe:         []int{0, 1},
			MirrorBlob:    true,
			MirrorMarkers: false,
		},
		Blob: BlobConfig{
			Mode:         BlobModeInverse,
			Threshold:    127,
			BandLow:      127,
			BandHigh:     127,
			DisplayWidth: 500,
			GridEnabled:  false,
			Grid:         geometry.Grid{OriginX: 40, OriginY: 10, Width: 400, Height: 300, Rows: 2, Cols: 3},
		},
		Markers: MarkerConfig{
			Dictionary:       "5x5_100",
			HighlightSeconds: 2,
		},
		Warehouse: geometry.Grid{OriginX: 40, OriginY: 10, Width: 1200, Height: 700, Rows: 3, Cols: 4},
		Polling: PollingConfig{
			VideoMS:     20,
			ClassifyMS:  30,
			WarehouseMS: 50,
		},
		Catalog: CatalogConfig{
			Path: "piece_database.json",
		},
		Dispatch: DispatchConfig{
			Enabled:   false,
			Port:      "/dev/ttyUSB0",
			BaudRate:  9600,
			Command:   "Run 1",
			TargetRow: 0,
			GapMS:     2000,
		},
		Metrics: MetricsConfig{
			SampleSeconds: 10,
		},
	}
}

// Validate clamps/normalizes values to safe ranges. Grid row and column counts
// are left alone: an invalid grid is a runtime condition that the analysis skips.
func (c *Config) Validate() error {
	defaults := DefaultConfig()

	if len(c.Camera.Probe) == 0 {
		c.Camera.Probe = defaults.Camera.Probe
	}

	switch c.Blob.Mode {
	case BlobModeInverse, BlobModeBand:
	case "":
		c.Blob.Mode = BlobModeInverse
	default:
		return fmt.Errorf("unknown blob mode %q", c.Blob.Mode)
	}
	c.Blob.Threshold = clampByte(c.Blob.Threshold)
	c.Blob.BandLow = clampByte(c.Blob.BandLow)
	c.Blob.BandHigh = clampByte(c.Blob.BandHigh)
	if c.Blob.DisplayWidth <= 0 {
		c.Blob.DisplayWidth = defaults.Blob.DisplayWidth
	}

	if c.Markers.Dictionary == "" {
		c.Markers.Dictionary = defaults.Markers.Dictionary
	}
	if c.Markers.HighlightSeconds <= 0 {
		c.Markers.HighlightSeconds = defaults.Markers.HighlightSeconds
	}

	if c.Polling.VideoMS <= 0 {
		c.Polling.VideoMS = defaults.Polling.VideoMS
	}
	if c.Polling.ClassifyMS <= 0 {
		c.Polling.ClassifyMS = defaults.Polling.ClassifyMS
	}
	if c.Polling.WarehouseMS <= 0 {
		c.Polling.WarehouseMS = defaults.Polling.WarehouseMS
	}

	if c.Catalog.Path == "" {
		c.Catalog.Path = defaults.Catalog.Path
	}

	if c.Dispatch.BaudRate <= 0 {
		c.Dispatch.BaudRate = defaults.Dispatch.BaudRate
	}
	if c.Dispatch.GapMS < 0 {
		c.Dispatch.GapMS = 0
	}
	if c.Dispatch.Command == "" {
		c.Dispatch.Command = defaults.Dispatch.Command
	}

	if c.Metrics.SampleSeconds <= 0 {
		c.Metrics.SampleSeconds = defaults.Metrics.SampleSeconds
	}
	return nil
}

// Load attempts to read configuration from the given YAML file path. If the file
// does not exist it returns DefaultConfig(). On YAML error it returns defaults with
// the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	loaded := DefaultConfig()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := loaded.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config %s: %w", path, err)
	}
	return loaded, nil
}

// Save writes the configuration to the given path in YAML format.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Interval converts a millisecond setting to a duration.
func Interval(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// HighlightDuration is how long a freshly saved marker stays highlighted.
func (m MarkerConfig) HighlightDuration() time.Duration {
	return time.Duration(m.HighlightSeconds) * time.Second
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
