// Vision Inventory desktop application: blob counter, piece classification
// and warehouse slot inventory from a live camera.

package main

import (
	"flag"
	"os"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"

	"vision-inventory/internal/config"
	"vision-inventory/internal/gui"
	"vision-inventory/internal/logging"
)

const (
	AppName    = "Vision Inventory"
	AppID      = "com.visioninventory.app"
	AppVersion = "1.0.0"
)

func main() {
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	configPath := flag.String("config", "vision-inventory.yaml", "Path to the YAML configuration file")
	catalogPath := flag.String("catalog", "", "Override the piece catalog path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	logger := logging.New(*debugMode || cfg.Debug)
	if err != nil {
		logger.WithError(err).Warn("Using default configuration")
	}
	if *catalogPath != "" {
		cfg.Catalog.Path = *catalogPath
	}

	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": logger.IsLevelEnabled(logrus.DebugLevel),
		"catalog":    cfg.Catalog.Path,
		"dictionary": cfg.Markers.Dictionary,
	}).Info("Starting " + AppName)

	myApp := app.NewWithID(AppID)
	myApp.SetIcon(theme.DocumentIcon())
	myApp.Settings().SetTheme(theme.DefaultTheme())

	mainApp, err := gui.NewApplication(myApp, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start application")
	}
	mainApp.ShowAndRun()

	logger.Info("Application shutting down gracefully")
	os.Exit(0)
}
