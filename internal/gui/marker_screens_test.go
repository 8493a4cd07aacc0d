package gui

import (
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-inventory/internal/catalog"
	"vision-inventory/internal/config"
	"vision-inventory/internal/core"
	"vision-inventory/internal/inventory"
	"vision-inventory/internal/markers"
	"vision-inventory/internal/metrics"
	"vision-inventory/internal/palette"
)

func TestSaveHighlightsOnBothMarkerScreens(t *testing.T) {
	app := test.NewTempApp(t)
	window := app.NewWindow("markers")
	defer window.Close()

	logger, _ := logtest.NewNullLogger()
	cfg := config.DefaultConfig()
	store := catalog.NewStore(filepath.Join(t.TempDir(), "pieces.json"), logger)
	recorder := metrics.NewRecorder()
	highlighter := inventory.NewHighlighter(time.Minute)
	var open core.Opener
	navigate := func(string) {}

	classifyDetector, err := markers.NewDetector(cfg.Markers.Dictionary, logger)
	require.NoError(t, err)
	defer classifyDetector.Close()
	warehouseDetector, err := markers.NewDetector(cfg.Markers.Dictionary, logger)
	require.NoError(t, err)
	defer warehouseDetector.Close()

	cs := NewClassifyScreen(window, cfg, open, classifyDetector, store, highlighter, recorder, navigate, logger)
	ws := NewWarehouseScreen(cfg, open, warehouseDetector, store, highlighter, recorder, navigate, logger)

	cs.idSelect.SetText("07")
	cs.model.SetText("Gear")
	cs.typeRadio.SetSelected(string(catalog.TypeFemale))
	cs.save()

	assert.Equal(t, "ID 7 classified", cs.status.Text)
	assert.Equal(t, palette.MarkerRecent, cs.highlighter.Color(7))
	assert.Equal(t, palette.MarkerRecent, ws.highlighter.Color(7))
	assert.Equal(t, palette.Marker, ws.highlighter.Color(8))

	pieces, _ := store.Load()
	assert.Equal(t, []catalog.Piece{{MarkerID: "7", Model: "Gear", Type: catalog.TypeFemale}}, pieces)
}
