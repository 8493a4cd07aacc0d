// Main application window: one tab per screen plus a shared status bar
package gui

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"vision-inventory/internal/camera"
	"vision-inventory/internal/catalog"
	"vision-inventory/internal/config"
	"vision-inventory/internal/dispatch"
	"vision-inventory/internal/inventory"
	"vision-inventory/internal/markers"
	"vision-inventory/internal/metrics"
)

// Application wires the screens to the shared catalog, camera and feeder.
type Application struct {
	app    fyne.App
	window fyne.Window
	logger *logrus.Logger
	cfg    *config.Config

	// Core components
	store      *catalog.Store
	dispatcher *dispatch.Dispatcher
	recorder   *metrics.Recorder
	sampler    *metrics.ProcessSampler
	detectors  []*markers.Detector

	// Screens
	welcome   *WelcomeScreen
	blob      *BlobScreen
	classify  *ClassifyScreen
	warehouse *WarehouseScreen
	screens   []Screen

	tabs        *container.AppTabs
	active      Screen
	statusLabel *widget.Label
	menuHandler *MenuHandler

	stopMetrics chan struct{}
}

func NewApplication(app fyne.App, cfg *config.Config, logger *logrus.Logger) (*Application, error) {
	window := app.NewWindow("Vision Inventory")
	window.Resize(fyne.NewSize(1400, 900))
	window.CenterOnScreen()

	a := &Application{
		app:         app,
		window:      window,
		logger:      logger,
		cfg:         cfg,
		stopMetrics: make(chan struct{}),
	}

	if err := a.initializeCore(); err != nil {
		return nil, err
	}
	a.initializeGUI()
	a.setupLayout()

	return a, nil
}

func (a *Application) initializeCore() error {
	a.store = catalog.NewStore(a.cfg.Catalog.Path, a.logger)
	a.dispatcher = dispatch.NewDispatcher(a.cfg.Dispatch, dispatch.SerialOpener(a.cfg.Dispatch), a.logger)
	a.recorder = metrics.NewRecorder()

	sampler, err := metrics.NewProcessSampler()
	if err != nil {
		a.logger.WithError(err).Warn("Process sampling unavailable")
	}
	a.sampler = sampler

	// One detector per marker screen.
	for i := 0; i < 2; i++ {
		d, err := markers.NewDetector(a.cfg.Markers.Dictionary, a.logger)
		if err != nil {
			a.closeDetectors()
			return fmt.Errorf("marker detector: %w", err)
		}
		a.detectors = append(a.detectors, d)
	}
	return nil
}

func (a *Application) initializeGUI() {
	open := camera.Opener(a.cfg.Camera.Probe, a.logger)

	a.welcome = NewWelcomeScreen(a.Navigate)
	a.blob = NewBlobScreen(a.window, a.cfg, open, a.dispatcher, a.recorder, a.logger)
	// The last saved marker is highlighted on both marker screens.
	highlighter := inventory.NewHighlighter(a.cfg.Markers.HighlightDuration())

	a.classify = NewClassifyScreen(a.window, a.cfg, open, a.detectors[0], a.store, highlighter, a.recorder, a.Navigate, a.logger)
	a.warehouse = NewWarehouseScreen(a.cfg, open, a.detectors[1], a.store, highlighter, a.recorder, a.Navigate, a.logger)
	a.screens = []Screen{a.welcome, a.blob, a.classify, a.warehouse}

	a.menuHandler = NewMenuHandler(a.window, a.store, a.cfg.Markers.Dictionary, a.logger)
	a.menuHandler.SetCallbacks(
		// onOpenImage
		func() {
			a.Navigate(a.blob.Title())
			a.blob.OpenImage()
		},
		// onLabelsExported
		func(path string, count int) {
			a.updateStatusMessage(fmt.Sprintf("Exported %d labels to %s", count, path))
		},
	)
}

func (a *Application) setupLayout() {
	items := make([]*container.TabItem, 0, len(a.screens))
	for _, s := range a.screens {
		items = append(items, container.NewTabItem(s.Title(), s.GetContainer()))
	}
	a.tabs = container.NewAppTabs(items...)
	a.tabs.OnSelected = func(item *container.TabItem) {
		a.switchTo(a.screenByTitle(item.Text))
	}
	a.active = a.welcome

	a.statusLabel = widget.NewLabel(fmt.Sprintf("Catalog: %s", a.store.Path()))

	a.window.SetMainMenu(a.menuHandler.GetMainMenu())
	a.window.SetContent(container.NewBorder(nil, a.statusLabel, nil, nil, a.tabs))
}

func (a *Application) screenByTitle(title string) Screen {
	for _, s := range a.screens {
		if s.Title() == title {
			return s
		}
	}
	return nil
}

// Navigate selects the tab with the given title.
func (a *Application) Navigate(title string) {
	for _, item := range a.tabs.Items {
		if item.Text == title {
			a.tabs.Select(item)
			return
		}
	}
}

// switchTo releases the previous screen before the next one acquires.
func (a *Application) switchTo(next Screen) {
	if next == nil || next == a.active {
		return
	}
	if a.active != nil {
		a.active.Deactivate()
	}
	a.logger.WithField("screen", next.Title()).Debug("Screen activated")
	a.active = next
	next.Activate()
}

func (a *Application) updateStatusMessage(message string) {
	if a.statusLabel != nil {
		a.statusLabel.SetText(message)
	}
}

func (a *Application) runMetrics() {
	period := time.Duration(a.cfg.Metrics.SampleSeconds) * time.Second
	if period <= 0 || !a.logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopMetrics:
			return
		case <-ticker.C:
			metrics.Log(a.logger, a.recorder, a.sampler)
		}
	}
}

func (a *Application) ShowAndRun() {
	a.logger.Info("Showing main application window")

	go a.runMetrics()

	a.window.SetCloseIntercept(func() {
		a.cleanup()
		a.app.Quit()
	})

	a.window.ShowAndRun()
}

func (a *Application) cleanup() {
	a.logger.Info("Cleaning up application resources")
	close(a.stopMetrics)
	for _, s := range a.screens {
		s.Close()
	}
	a.closeDetectors()
	if err := a.dispatcher.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close feeder link")
	}
}

func (a *Application) closeDetectors() {
	for _, d := range a.detectors {
		d.Close()
	}
	a.detectors = nil
}
