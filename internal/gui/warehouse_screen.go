// Warehouse screen: live marker inventory over a configurable grid
package gui

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"vision-inventory/internal/catalog"
	"vision-inventory/internal/config"
	"vision-inventory/internal/core"
	"vision-inventory/internal/geometry"
	"vision-inventory/internal/inventory"
	"vision-inventory/internal/markers"
	"vision-inventory/internal/metrics"
	"vision-inventory/internal/poller"
)

const warehousePipeline = "warehouse"

type WarehouseScreen struct {
	logger   *logrus.Logger
	navigate Navigator

	session  *core.Session
	detector *markers.Detector
	store    *catalog.Store
	recorder *metrics.Recorder
	poller   *poller.Poller

	highlighter *inventory.Highlighter

	mu    sync.Mutex
	grid  geometry.Grid
	index map[string]catalog.Piece

	view     *FrameView
	gridView *StatusGrid
	summary  *widget.Label
	status   *widget.Label
	content  fyne.CanvasObject
}

func NewWarehouseScreen(cfg *config.Config, open core.Opener, detector *markers.Detector, store *catalog.Store, highlighter *inventory.Highlighter, recorder *metrics.Recorder, navigate Navigator, logger *logrus.Logger) *WarehouseScreen {
	ws := &WarehouseScreen{
		logger:   logger,
		navigate: navigate,
		session:  core.NewSession(warehousePipeline, open, cfg.Camera.MirrorMarkers, logger),
		detector: detector,
		store:    store,
		recorder: recorder,
		grid:     cfg.Warehouse,
		index:    map[string]catalog.Piece{},

		highlighter: highlighter,
	}
	ws.poller = poller.New(warehousePipeline, config.Interval(cfg.Polling.WarehouseMS), ws.tick, logger)
	ws.buildUI()
	return ws
}

func (ws *WarehouseScreen) Title() string { return "Warehouse" }

func (ws *WarehouseScreen) GetContainer() fyne.CanvasObject { return ws.content }

func (ws *WarehouseScreen) buildUI() {
	ws.view = NewFrameView("Warehouse camera")
	ws.gridView = NewStatusGrid()
	ws.summary = widget.NewLabel("")
	ws.status = widget.NewLabel("")

	grid := ws.currentGrid()
	ws.gridView.Rebuild(grid.Rows, grid.Cols)

	setGrid := func(fn func(g *geometry.Grid)) {
		ws.mu.Lock()
		fn(&ws.grid)
		ws.mu.Unlock()
	}

	_, xRow := intSlider("Offset X", 0, 1000, grid.OriginX, func(v int) { setGrid(func(g *geometry.Grid) { g.OriginX = v }) })
	_, yRow := intSlider("Offset Y", 0, 1000, grid.OriginY, func(v int) { setGrid(func(g *geometry.Grid) { g.OriginY = v }) })
	_, wRow := intSlider("Width", 100, 1500, grid.Width, func(v int) { setGrid(func(g *geometry.Grid) { g.Width = v }) })
	_, hRow := intSlider("Height", 100, 1000, grid.Height, func(v int) { setGrid(func(g *geometry.Grid) { g.Height = v }) })

	rows := numberEntry(grid.Rows, func(v int) { setGrid(func(g *geometry.Grid) { g.Rows = v }) })
	cols := numberEntry(grid.Cols, func(v int) { setGrid(func(g *geometry.Grid) { g.Cols = v }) })

	back := widget.NewButton("Back to Classification", func() {
		if ws.navigate != nil {
			ws.navigate("Classification")
		}
	})

	controls := widget.NewCard("Grid", "", container.NewVBox(
		xRow, yRow, wRow, hRow,
		container.NewGridWithColumns(4, widget.NewLabel("Rows"), rows, widget.NewLabel("Cols"), cols),
		ws.summary,
		ws.status,
		back,
	))

	status := widget.NewCard("Slot status", "", ws.gridView.GetContainer())

	right := container.NewBorder(controls, nil, nil, nil, container.NewVScroll(status))
	split := container.NewHSplit(ws.view.GetContainer(), right)
	split.SetOffset(0.6)
	ws.content = split
}

func (ws *WarehouseScreen) currentGrid() geometry.Grid {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.grid
}

func (ws *WarehouseScreen) currentIndex() map[string]catalog.Piece {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.index
}

func (ws *WarehouseScreen) Activate() {
	pieces, result := ws.store.Load()
	ws.mu.Lock()
	ws.index = catalog.Index(pieces)
	ws.mu.Unlock()
	ws.logger.WithFields(logrus.Fields{"pieces": len(pieces), "status": result.Status}).Debug("Warehouse catalog loaded")

	if err := ws.session.Acquire(); err != nil {
		ws.status.SetText("Camera unavailable")
		return
	}
	ws.status.SetText("")
	if err := ws.poller.Start(); err != nil && !errors.Is(err, poller.ErrAlreadyRunning) {
		ws.logger.WithError(err).Error("Failed to start warehouse polling")
	}
}

func (ws *WarehouseScreen) Deactivate() {
	ws.poller.Stop()
	ws.session.Release()
}

func (ws *WarehouseScreen) Close() {
	ws.poller.Stop()
	ws.session.Close()
}

func (ws *WarehouseScreen) tick() {
	frame, err := ws.session.Capture()
	if err != nil {
		frame.Close()
		return
	}
	defer frame.Close()

	done := ws.recorder.Start(warehousePipeline)
	detections, err := ws.detector.Detect(frame)
	if err != nil {
		done(0, err)
		ws.logger.WithError(err).Debug("Marker detection failed")
		return
	}

	// An invalid grid skips the analysis; the raw frame is still shown.
	occ, err := inventory.Analyze(detections, ws.currentGrid(), ws.currentIndex())
	if err == nil {
		inventory.Render(&frame, occ)
		markers.Draw(&frame, detections, ws.highlighter.Color)
	}
	done(len(detections), nil)

	img, convErr := displayImage(frame, 0)
	if convErr != nil {
		ws.logger.WithError(convErr).Debug("Frame conversion failed")
		return
	}
	ws.present(img, occ)
}

func (ws *WarehouseScreen) present(img image.Image, occ *inventory.Occupancy) {
	fyne.Do(func() {
		ws.view.Set(img)
		if occ == nil {
			return
		}

		if r, c := ws.gridView.Shape(); r != occ.Grid.Rows || c != occ.Grid.Cols {
			ws.gridView.Rebuild(occ.Grid.Rows, occ.Grid.Cols)
		}
		for _, row := range occ.Cells {
			for _, cell := range row {
				ws.gridView.Set(cell.Cell.Row, cell.Cell.Col, cell.Text(), stateFill(cell.State))
			}
		}

		counts := occ.Counts()
		ws.summary.SetText(fmt.Sprintf("Known %d, unassociated %d, empty %d",
			counts[inventory.StateKnown], counts[inventory.StateUnassociated], counts[inventory.StateEmpty]))
	})
}

func stateFill(s inventory.State) color.Color {
	switch s {
	case inventory.StateKnown:
		return successColor
	case inventory.StateUnassociated:
		return highlightColor
	default:
		return frameColor
	}
}
