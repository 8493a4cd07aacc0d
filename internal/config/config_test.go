package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 127, cfg.Blob.Threshold)
}

func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
blob:
  mode: band
  band_low: 40
  band_high: 300
warehouse:
  rows: 5
  cols: 6
polling:
  warehouse_ms: 75
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BlobModeBand, cfg.Blob.Mode)
	assert.Equal(t, 40, cfg.Blob.BandLow)
	assert.Equal(t, 255, cfg.Blob.BandHigh, "band high is clamped")
	assert.Equal(t, 5, cfg.Warehouse.Rows)
	assert.Equal(t, 6, cfg.Warehouse.Cols)
	assert.Equal(t, 1200, cfg.Warehouse.Width, "unset fields keep their defaults")
	assert.Equal(t, 75, cfg.Polling.WarehouseMS)
	assert.Equal(t, 20, cfg.Polling.VideoMS)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blob: [unterminated"), 0644))

	cfg, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadUnknownBlobMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blob:\n  mode: otsu\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateLeavesInvalidGridAlone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Warehouse.Rows = 0
	cfg.Polling.ClassifyMS = -5

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0, cfg.Warehouse.Rows)
	assert.Equal(t, 30, cfg.Polling.ClassifyMS)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Catalog.Path = "/tmp/pieces.json"
	cfg.Dispatch.Enabled = true
	cfg.Camera.Probe = []int{2}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestDurations(t *testing.T) {
	assert.Equal(t, 50*time.Millisecond, Interval(50))
	assert.Equal(t, 2*time.Second, MarkerConfig{HighlightSeconds: 2}.HighlightDuration())
}
