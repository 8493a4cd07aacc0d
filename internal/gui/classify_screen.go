// Classification screen: associate detected marker IDs with piece model and type
package gui

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"vision-inventory/internal/catalog"
	"vision-inventory/internal/config"
	"vision-inventory/internal/core"
	"vision-inventory/internal/inventory"
	"vision-inventory/internal/markers"
	"vision-inventory/internal/metrics"
	"vision-inventory/internal/poller"
)

const classifyPipeline = "classify"

var pieceTypeOptions = []string{
	string(catalog.TypeMale),
	string(catalog.TypeFemale),
	string(catalog.TypeAssembled),
}

type ClassifyScreen struct {
	window   fyne.Window
	logger   *logrus.Logger
	navigate Navigator

	session     *core.Session
	detector    *markers.Detector
	store       *catalog.Store
	highlighter *inventory.Highlighter
	// selection is only touched by the poller goroutine.
	selection   inventory.Selection
	recorder    *metrics.Recorder
	poller      *poller.Poller

	// pieces and checked are only touched on the UI goroutine.
	pieces  []catalog.Piece
	checked map[string]bool

	view      *FrameView
	idSelect  *widget.SelectEntry
	model     *widget.Entry
	typeRadio *widget.RadioGroup
	status    *widget.Label
	list      *widget.List
	content   fyne.CanvasObject
}

func NewClassifyScreen(window fyne.Window, cfg *config.Config, open core.Opener, detector *markers.Detector, store *catalog.Store, highlighter *inventory.Highlighter, recorder *metrics.Recorder, navigate Navigator, logger *logrus.Logger) *ClassifyScreen {
	cs := &ClassifyScreen{
		window:      window,
		logger:      logger,
		navigate:    navigate,
		session:     core.NewSession(classifyPipeline, open, cfg.Camera.MirrorMarkers, logger),
		detector:    detector,
		store:       store,
		highlighter: highlighter,
		recorder:    recorder,
		checked:     make(map[string]bool),
	}
	cs.poller = poller.New(classifyPipeline, config.Interval(cfg.Polling.ClassifyMS), cs.tick, logger)
	cs.buildUI()
	return cs
}

func (cs *ClassifyScreen) Title() string { return "Classification" }

func (cs *ClassifyScreen) GetContainer() fyne.CanvasObject { return cs.content }

func (cs *ClassifyScreen) buildUI() {
	cs.view = NewFrameView("Camera")

	cs.idSelect = widget.NewSelectEntry(nil)
	cs.idSelect.SetPlaceHolder("Marker ID")
	cs.model = widget.NewEntry()
	cs.model.SetPlaceHolder("Model")
	cs.typeRadio = widget.NewRadioGroup(pieceTypeOptions, nil)
	cs.typeRadio.Horizontal = true
	cs.typeRadio.SetSelected(string(catalog.TypeMale))

	save := widget.NewButton("Save Classification", cs.save)
	save.Importance = widget.SuccessImportance

	cs.status = widget.NewLabel("")

	form := widget.NewForm(
		widget.NewFormItem("Marker ID", cs.idSelect),
		widget.NewFormItem("Model", cs.model),
		widget.NewFormItem("Type", cs.typeRadio),
	)

	cs.list = widget.NewList(
		func() int { return len(cs.pieces) },
		func() fyne.CanvasObject {
			return widget.NewCheck("", nil)
		},
		func(i widget.ListItemID, obj fyne.CanvasObject) {
			if i >= len(cs.pieces) {
				return
			}
			p := cs.pieces[i]
			check := obj.(*widget.Check)
			check.OnChanged = nil
			check.SetText(fmt.Sprintf("ID %s: %s (%s)", p.MarkerID, p.Model, p.Type))
			check.SetChecked(cs.checked[p.MarkerID])
			check.OnChanged = func(on bool) {
				if on {
					cs.checked[p.MarkerID] = true
				} else {
					delete(cs.checked, p.MarkerID)
				}
			}
		},
	)

	remove := widget.NewButton("Delete Selected", cs.deleteSelected)
	remove.Importance = widget.DangerImportance
	toWarehouse := widget.NewButton("Go to Warehouse", func() {
		if cs.navigate != nil {
			cs.navigate("Warehouse")
		}
	})
	toWarehouse.Importance = widget.HighImportance

	saved := container.NewBorder(nil, container.NewHBox(remove, toWarehouse), nil, nil, cs.list)

	side := container.NewBorder(
		container.NewVBox(widget.NewCard("Classify", "", container.NewVBox(form, save, cs.status))),
		nil, nil, nil,
		widget.NewCard("Saved pieces", "", saved),
	)

	split := container.NewHSplit(cs.view.GetContainer(), side)
	split.SetOffset(0.6)
	cs.content = split
}

func (cs *ClassifyScreen) Activate() {
	cs.reloadCatalog()
	if err := cs.session.Acquire(); err != nil {
		cs.status.SetText("Camera unavailable")
		return
	}
	if err := cs.poller.Start(); err != nil && !errors.Is(err, poller.ErrAlreadyRunning) {
		cs.logger.WithError(err).Error("Failed to start classification polling")
	}
}

func (cs *ClassifyScreen) Deactivate() {
	cs.poller.Stop()
	cs.session.Release()
}

func (cs *ClassifyScreen) Close() {
	cs.poller.Stop()
	cs.session.Close()
}

func (cs *ClassifyScreen) reloadCatalog() {
	pieces, result := cs.store.Load()
	if result.Status == catalog.LoadCorrupt {
		cs.status.SetText("Catalog unreadable, starting empty")
	}
	sort.SliceStable(pieces, func(i, j int) bool {
		return lessMarkerID(pieces[i].MarkerID, pieces[j].MarkerID)
	})
	cs.pieces = pieces

	present := make(map[string]bool, len(pieces))
	for _, p := range pieces {
		present[p.MarkerID] = true
	}
	for id := range cs.checked {
		if !present[id] {
			delete(cs.checked, id)
		}
	}
	cs.list.Refresh()
}

func (cs *ClassifyScreen) tick() {
	frame, err := cs.session.Capture()
	if err != nil {
		frame.Close()
		return
	}
	defer frame.Close()

	done := cs.recorder.Start(classifyPipeline)
	detections, err := cs.detector.Detect(frame)
	if err != nil {
		done(0, err)
		cs.logger.WithError(err).Debug("Marker detection failed")
		return
	}
	markers.Draw(&frame, detections, cs.highlighter.Color)
	done(len(detections), nil)

	options, pick, changed := cs.selection.Update(markers.IDs(detections))

	img, err := displayImage(frame, 0)
	if err != nil {
		cs.logger.WithError(err).Debug("Frame conversion failed")
		return
	}
	cs.present(img, options, pick, changed)
}

func (cs *ClassifyScreen) present(img image.Image, options []string, pick string, changed bool) {
	fyne.Do(func() {
		cs.view.Set(img)
		if !changed {
			return
		}
		cs.idSelect.SetOptions(options)
		if pick != "" {
			cs.idSelect.SetText(pick)
		}
	})
}

func (cs *ClassifyScreen) save() {
	id := catalog.NormalizeID(cs.idSelect.Text)
	model := strings.TrimSpace(cs.model.Text)
	typ := catalog.PieceType(cs.typeRadio.Selected)

	created, err := cs.store.Upsert(id, model, typ)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidPiece) {
			cs.status.SetText("Enter a marker ID, a model and a type")
			return
		}
		cs.logger.WithError(err).Error("Failed to save classification")
		dialog.ShowError(err, cs.window)
		return
	}

	cs.highlighter.Set(id)
	if created {
		cs.status.SetText(fmt.Sprintf("ID %s classified", id))
	} else {
		cs.status.SetText(fmt.Sprintf("ID %s updated", id))
	}
	cs.model.SetText("")
	cs.reloadCatalog()
}

func (cs *ClassifyScreen) deleteSelected() {
	ids := make([]string, 0, len(cs.checked))
	for id := range cs.checked {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		dialog.ShowInformation("Nothing selected", "Tick the classifications to delete first.", cs.window)
		return
	}
	sort.Slice(ids, func(i, j int) bool { return lessMarkerID(ids[i], ids[j]) })

	msg := fmt.Sprintf("Delete %d classification(s)?\n\nIDs: %s", len(ids), strings.Join(ids, ", "))
	dialog.ShowConfirm("Confirm deletion", msg, func(ok bool) {
		if !ok {
			return
		}
		removed, err := cs.store.Delete(ids...)
		if err != nil {
			cs.logger.WithError(err).Error("Failed to delete classifications")
			dialog.ShowError(err, cs.window)
			return
		}
		for _, id := range ids {
			delete(cs.checked, id)
		}
		cs.status.SetText(fmt.Sprintf("%d classification(s) deleted", removed))
		cs.reloadCatalog()
	}, cs.window)
}

// lessMarkerID orders numeric IDs numerically and places them before other IDs.
func lessMarkerID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
