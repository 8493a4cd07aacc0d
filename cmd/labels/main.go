// Marker label sheet generator: renders one printable label per catalog entry.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"vision-inventory/internal/catalog"
	"vision-inventory/internal/config"
	"vision-inventory/internal/labels"
	"vision-inventory/internal/logging"
)

func main() {
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	configPath := flag.String("config", "", "Optional YAML configuration")
	catalogPath := flag.String("catalog", "", "Piece catalog JSON (defaults to the configured path)")
	outPath := flag.String("out", "marker_labels.png", "Output PNG path")
	columns := flag.Int("columns", labels.DefaultLayout().Columns, "Labels per row")
	markerSide := flag.Int("marker-size", labels.DefaultLayout().MarkerSide, "Marker side in pixels")
	flag.Parse()

	logger := logging.New(*debugMode)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if *catalogPath != "" {
		cfg.Catalog.Path = *catalogPath
	}

	layout := labels.DefaultLayout()
	layout.Dictionary = cfg.Markers.Dictionary
	layout.Columns = *columns
	layout.MarkerSide = *markerSide

	placed, err := generate(cfg.Catalog.Path, *outPath, layout, logger)
	if err != nil {
		logger.WithError(err).Fatal("Label generation failed")
	}
	fmt.Printf("%d labels written to %s\n", placed, *outPath)
	os.Exit(0)
}

// generate loads the catalog at catalogPath and writes its label sheet to
// outPath, returning the number of labels placed.
func generate(catalogPath, outPath string, layout labels.Layout, logger *logrus.Logger) (int, error) {
	pieces, result := catalog.NewStore(catalogPath, logger).Load()
	if result.Status == catalog.LoadCorrupt {
		return 0, fmt.Errorf("catalog %s: %w", catalogPath, result.Err)
	}

	sheet, placed, err := labels.NewBuilder(layout, logger).Sheet(pieces)
	if err != nil {
		return 0, err
	}
	if err := labels.Save(outPath, sheet); err != nil {
		return 0, err
	}
	return placed, nil
}
