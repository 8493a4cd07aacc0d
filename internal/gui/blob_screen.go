// Blob counter screen: live or still-image blob counting with an optional
// occupancy grid and feeder dispatch
package gui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"vision-inventory/internal/algorithms"
	"vision-inventory/internal/blobs"
	"vision-inventory/internal/config"
	"vision-inventory/internal/core"
	"vision-inventory/internal/dispatch"
	"vision-inventory/internal/geometry"
	"vision-inventory/internal/io"
	"vision-inventory/internal/metrics"
	"vision-inventory/internal/poller"
)

const blobPipeline = "blob"

// blobSettings is the slider state shared between the UI and the poller.
type blobSettings struct {
	mu     sync.Mutex
	params blobs.Params
	grid   geometry.Grid
	gridOn bool
}

func (s *blobSettings) snapshot() (blobs.Params, geometry.Grid, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params, s.grid, s.gridOn
}

func (s *blobSettings) update(fn func(*blobSettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

type BlobScreen struct {
	window       fyne.Window
	logger       *logrus.Logger
	displayWidth int

	session    *core.Session
	detector   *blobs.Detector
	loader     *io.ImageLoader
	dispatcher *dispatch.Dispatcher
	recorder   *metrics.Recorder
	poller     *poller.Poller
	settings   blobSettings

	occMu   sync.Mutex
	lastOcc *blobs.Occupancy

	ctx    context.Context
	cancel context.CancelFunc

	original   *FrameView
	mask       *FrameView
	countLabel *widget.Label
	status     *widget.Label
	startBtn   *widget.Button
	stopBtn    *widget.Button
	loadBtn    *widget.Button
	fillBtn    *widget.Button
	gridView   *StatusGrid
	thresholds *fyne.Container
	band       *fyne.Container
	content    fyne.CanvasObject
}

func NewBlobScreen(window fyne.Window, cfg *config.Config, open core.Opener, dispatcher *dispatch.Dispatcher, recorder *metrics.Recorder, logger *logrus.Logger) *BlobScreen {
	ctx, cancel := context.WithCancel(context.Background())
	bs := &BlobScreen{
		window:       window,
		logger:       logger,
		displayWidth: cfg.Blob.DisplayWidth,
		session:      core.NewSession(blobPipeline, open, cfg.Camera.MirrorBlob, logger),
		detector:     blobs.NewDetector(logger),
		loader:       io.NewImageLoader(logger),
		dispatcher:   dispatcher,
		recorder:     recorder,
		ctx:          ctx,
		cancel:       cancel,
	}
	bs.settings.params = blobs.Params{
		Mode:      cfg.Blob.Mode,
		Threshold: cfg.Blob.Threshold,
		Low:       cfg.Blob.BandLow,
		High:      cfg.Blob.BandHigh,
	}
	bs.settings.grid = cfg.Blob.Grid
	bs.settings.gridOn = cfg.Blob.GridEnabled

	bs.poller = poller.New(blobPipeline, config.Interval(cfg.Polling.VideoMS), bs.tick, logger)
	bs.buildUI()
	return bs
}

func (bs *BlobScreen) Title() string { return "Blob Counter" }

func (bs *BlobScreen) GetContainer() fyne.CanvasObject { return bs.content }

func (bs *BlobScreen) buildUI() {
	bs.original = NewFrameView("Detected blobs")
	bs.mask = NewFrameView("Binary mask")
	bs.countLabel = widget.NewLabelWithStyle("BLOBS FOUND: 0", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	bs.status = widget.NewLabel("Start the camera or load an image")

	bs.startBtn = widget.NewButton("Start Camera", bs.startCamera)
	bs.stopBtn = widget.NewButton("Stop Camera", bs.stopCamera)
	bs.stopBtn.Disable()
	bs.loadBtn = widget.NewButton("Load Image...", bs.OpenImage)

	params, grid, gridOn := bs.settings.snapshot()

	threshInfo := parameterInfo("threshold_inverse", "threshold")
	_, thresholdRow := paramSlider(threshInfo, params.Threshold, func(v int) {
		bs.settings.update(func(s *blobSettings) { s.params.Threshold = v })
		bs.reprocess()
	})
	bs.thresholds = container.NewVBox(thresholdRow)

	lowInfo := parameterInfo("band_pass", "low")
	highInfo := parameterInfo("band_pass", "high")
	_, lowRow := paramSlider(lowInfo, params.Low, func(v int) {
		bs.settings.update(func(s *blobSettings) { s.params.Low = v })
		bs.reprocess()
	})
	_, highRow := paramSlider(highInfo, params.High, func(v int) {
		bs.settings.update(func(s *blobSettings) { s.params.High = v })
		bs.reprocess()
	})
	bs.band = container.NewVBox(lowRow, highRow)

	modes := map[string]string{"Inverse threshold": blobs.ModeInverse, "Band": blobs.ModeBand}
	modeRadio := widget.NewRadioGroup([]string{"Inverse threshold", "Band"}, func(label string) {
		mode, ok := modes[label]
		if !ok {
			return
		}
		bs.settings.update(func(s *blobSettings) { s.params.Mode = mode })
		bs.showModeControls(mode)
		bs.reprocess()
	})
	modeRadio.Horizontal = true
	if params.Mode == blobs.ModeBand {
		modeRadio.SetSelected("Band")
	} else {
		modeRadio.SetSelected("Inverse threshold")
	}
	bs.showModeControls(params.Mode)

	bs.gridView = NewStatusGrid()
	bs.fillBtn = widget.NewButton("Fill Empty Slots", bs.fillEmpty)
	if !bs.dispatcher.Enabled() {
		bs.fillBtn.Disable()
	}

	gridControls := bs.buildGridControls(grid, gridOn)

	controls := container.NewVBox(
		widget.NewCard("Source", "", container.NewHBox(bs.startBtn, bs.stopBtn, bs.loadBtn)),
		widget.NewCard("Binarization", "", container.NewVBox(modeRadio, bs.thresholds, bs.band)),
		widget.NewCard("Grid", "", gridControls),
		widget.NewCard("Result", "", container.NewVBox(bs.countLabel, bs.status)),
	)

	views := container.NewGridWithColumns(2, bs.original.GetContainer(), bs.mask.GetContainer())
	center := container.NewBorder(nil, container.NewVBox(bs.gridView.GetContainer(), bs.fillBtn), nil, nil, views)

	split := container.NewHSplit(container.NewVScroll(controls), center)
	split.SetOffset(0.28)
	bs.content = split
}

func (bs *BlobScreen) buildGridControls(grid geometry.Grid, gridOn bool) fyne.CanvasObject {
	setGrid := func(fn func(g *geometry.Grid)) {
		bs.settings.update(func(s *blobSettings) { fn(&s.grid) })
		bs.reprocess()
	}

	_, xRow := intSlider("X", 0, 640, grid.OriginX, func(v int) { setGrid(func(g *geometry.Grid) { g.OriginX = v }) })
	_, yRow := intSlider("Y", 0, 480, grid.OriginY, func(v int) { setGrid(func(g *geometry.Grid) { g.OriginY = v }) })
	_, wRow := intSlider("Width", 10, 640, grid.Width, func(v int) { setGrid(func(g *geometry.Grid) { g.Width = v }) })
	_, hRow := intSlider("Height", 10, 480, grid.Height, func(v int) { setGrid(func(g *geometry.Grid) { g.Height = v }) })

	rows := numberEntry(grid.Rows, func(v int) { setGrid(func(g *geometry.Grid) { g.Rows = v }) })
	cols := numberEntry(grid.Cols, func(v int) { setGrid(func(g *geometry.Grid) { g.Cols = v }) })

	enable := widget.NewCheck("Show grid", func(on bool) {
		bs.settings.update(func(s *blobSettings) { s.gridOn = on })
		if !on {
			bs.gridView.Rebuild(0, 0)
		}
		bs.reprocess()
	})
	enable.SetChecked(gridOn)

	return container.NewVBox(
		enable,
		xRow, yRow, wRow, hRow,
		container.NewGridWithColumns(4, widget.NewLabel("Rows"), rows, widget.NewLabel("Cols"), cols),
	)
}

func (bs *BlobScreen) showModeControls(mode string) {
	if bs.thresholds == nil || bs.band == nil {
		return
	}
	if mode == blobs.ModeBand {
		bs.thresholds.Hide()
		bs.band.Show()
	} else {
		bs.band.Hide()
		bs.thresholds.Show()
	}
}

// Activate does nothing; the camera starts on request.
func (bs *BlobScreen) Activate() {}

func (bs *BlobScreen) Deactivate() {
	bs.stopCamera()
}

func (bs *BlobScreen) Close() {
	bs.cancel()
	bs.poller.Stop()
	bs.session.Close()
}

func (bs *BlobScreen) startCamera() {
	if err := bs.session.Acquire(); err != nil {
		bs.status.SetText("Camera unavailable")
		return
	}
	if err := bs.poller.Start(); err != nil && !errors.Is(err, poller.ErrAlreadyRunning) {
		bs.logger.WithError(err).Error("Failed to start blob polling")
		return
	}
	bs.startBtn.Disable()
	bs.stopBtn.Enable()
	bs.status.SetText("Camera running")
}

func (bs *BlobScreen) stopCamera() {
	bs.poller.Stop()
	bs.session.Release()
	bs.startBtn.Enable()
	bs.stopBtn.Disable()
}

// OpenImage stops the camera and asks for a still image to count.
func (bs *BlobScreen) OpenImage() {
	bs.stopCamera()

	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, bs.window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()
		bs.loadImage(path)
	}, bs.window)
	fileDialog.SetFilter(storage.NewExtensionFileFilter(io.SupportedExtensions()))
	fileDialog.Show()
}

func (bs *BlobScreen) loadImage(path string) {
	mat, err := bs.loader.LoadImage(path)
	if err != nil {
		bs.logger.WithError(err).Error("Failed to load image")
		dialog.ShowError(err, bs.window)
		return
	}
	defer mat.Close()

	if err := bs.session.LoadStill(mat, path); err != nil {
		dialog.ShowError(err, bs.window)
		return
	}
	bs.status.SetText(fmt.Sprintf("Loaded %s", filepath.Base(path)))
	bs.reprocess()
}

// reprocess reruns detection on the stored still. While the camera runs the
// next tick picks up the new settings instead.
func (bs *BlobScreen) reprocess() {
	if bs.session == nil || bs.session.Active() || !bs.session.Frames().HasFrame() {
		return
	}
	frame := bs.session.Frames().Snapshot()
	defer frame.Close()
	bs.process(frame)
}

func (bs *BlobScreen) tick() {
	frame, err := bs.session.Capture()
	if err != nil {
		frame.Close()
		if !errors.Is(err, core.ErrNotAcquired) {
			bs.logger.WithError(err).Debug("Blob frame read failed")
		}
		return
	}
	defer frame.Close()
	bs.process(frame)
}

type blobView struct {
	original image.Image
	mask     image.Image
	summary  string
	count    int
	occ      *blobs.Occupancy
}

func (bs *BlobScreen) process(frame gocv.Mat) {
	done := bs.recorder.Start(blobPipeline)
	view, err := bs.render(frame)
	if err != nil {
		done(0, err)
		bs.logger.WithError(err).Warn("Blob detection failed")
		return
	}
	done(view.count, nil)

	bs.occMu.Lock()
	bs.lastOcc = view.occ
	bs.occMu.Unlock()

	fyne.Do(func() { bs.show(view) })
}

func (bs *BlobScreen) render(frame gocv.Mat) (*blobView, error) {
	params, grid, gridOn := bs.settings.snapshot()

	result, err := bs.detector.Detect(frame, params)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	view := &blobView{summary: result.Summary(), count: result.Count}
	if gridOn {
		occ, err := blobs.Occupy(result.Blobs, grid)
		if err == nil {
			blobs.DrawGrid(&result.Annotated, grid)
			view.occ = occ
		}
	}

	if view.original, err = displayImage(result.Annotated, bs.displayWidth); err != nil {
		return nil, err
	}
	if view.mask, err = displayImage(result.Mask, bs.displayWidth); err != nil {
		return nil, err
	}
	return view, nil
}

func (bs *BlobScreen) show(view *blobView) {
	bs.original.Set(view.original)
	bs.mask.Set(view.mask)
	bs.countLabel.SetText(view.summary)

	if view.occ == nil {
		return
	}
	grid := view.occ.Grid
	if r, c := bs.gridView.Shape(); r != grid.Rows || c != grid.Cols {
		bs.gridView.Rebuild(grid.Rows, grid.Cols)
	}
	targets := map[geometry.Cell]bool{}
	if bs.dispatcher.Enabled() {
		for _, cell := range bs.dispatcher.Targets(view.occ) {
			targets[cell] = true
		}
	}
	for r, row := range view.occ.Occupied {
		for c, full := range row {
			switch {
			case full:
				bs.gridView.Set(r, c, "Occupied", successColor)
			case targets[geometry.Cell{Row: r, Col: c}]:
				bs.gridView.Set(r, c, "Empty\n(to fill)", dangerColor)
			default:
				bs.gridView.Set(r, c, "Empty", frameColor)
			}
		}
	}
}

func (bs *BlobScreen) fillEmpty() {
	bs.occMu.Lock()
	occ := bs.lastOcc
	bs.occMu.Unlock()

	if occ == nil {
		bs.status.SetText("Enable the grid first")
		return
	}

	bs.fillBtn.Disable()
	bs.status.SetText("Filling empty slots...")
	go func() {
		sent, err := bs.dispatcher.FillEmpty(bs.ctx, occ)
		fyne.Do(func() {
			bs.fillBtn.Enable()
			switch {
			case errors.Is(err, dispatch.ErrBusy):
				bs.status.SetText("A fill is already running")
			case err != nil:
				bs.logger.WithError(err).Error("Fill failed")
				bs.status.SetText(fmt.Sprintf("Fill stopped after %d: %v", sent, err))
			default:
				bs.status.SetText(fmt.Sprintf("Sent %d fill commands", sent))
			}
		})
	}()
}

// parameterInfo returns the description of one processing step parameter.
func parameterInfo(step, name string) algorithms.ParameterInfo {
	alg, ok := algorithms.Get(step)
	if !ok {
		return algorithms.ParameterInfo{Name: name, Description: name, Min: 0, Max: 255}
	}
	for _, info := range alg.GetParameterInfo() {
		if info.Name == name {
			return info
		}
	}
	return algorithms.ParameterInfo{Name: name, Description: name, Min: 0, Max: 255}
}

// numberEntry is an entry that reports parsed integers. Unparsable text
// reports zero so that the grid is treated as invalid.
func numberEntry(value int, onChange func(int)) *widget.Entry {
	entry := widget.NewEntry()
	entry.SetText(strconv.Itoa(value))
	entry.OnChanged = func(text string) {
		n, err := strconv.Atoi(text)
		if err != nil {
			n = 0
		}
		onChange(n)
	}
	return entry
}
