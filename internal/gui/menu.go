// Menu handler for application actions
package gui

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"vision-inventory/internal/catalog"
	"vision-inventory/internal/labels"
)

// MenuHandler handles menu actions
type MenuHandler struct {
	window     fyne.Window
	store      *catalog.Store
	dictionary string
	logger     *logrus.Logger

	onOpenImage      func()
	onLabelsExported func(path string, count int)
}

func NewMenuHandler(window fyne.Window, store *catalog.Store, dictionary string, logger *logrus.Logger) *MenuHandler {
	return &MenuHandler{
		window:     window,
		store:      store,
		dictionary: dictionary,
		logger:     logger,
	}
}

func (mh *MenuHandler) GetMainMenu() *fyne.MainMenu {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", func() {
			if mh.onOpenImage != nil {
				mh.onOpenImage()
			}
		}),
		fyne.NewMenuItem("Export Labels...", mh.exportLabels),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Exit", func() {
			mh.window.Close()
		}),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mh.showAbout),
	)

	return fyne.NewMainMenu(fileMenu, helpMenu)
}

func (mh *MenuHandler) exportLabels() {
	pieces, result := mh.store.Load()
	if len(pieces) == 0 {
		mh.showError("No Labels", fmt.Errorf("catalog %s has no pieces (%s)", mh.store.Path(), result.Status))
		return
	}

	layout := labels.DefaultLayout()
	layout.Dictionary = mh.dictionary
	sheet, placed, err := labels.NewBuilder(layout, mh.logger).Sheet(pieces)
	if err != nil {
		mh.showError("Failed to Build Labels", err)
		return
	}

	preview := canvas.NewImageFromImage(labels.Thumbnail(sheet, 360))
	preview.FillMode = canvas.ImageFillContain
	preview.SetMinSize(fyne.NewSize(360, 360))

	confirm := dialog.NewCustomConfirm("Export Labels", "Save...", "Cancel",
		container.NewVBox(preview, widget.NewLabel(fmt.Sprintf("%d labels", placed))),
		func(ok bool) {
			if ok {
				mh.saveSheet(sheet, placed)
			}
		}, mh.window)
	confirm.Show()
}

func (mh *MenuHandler) saveSheet(sheet image.Image, placed int) {
	fileDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		path := writer.URI().Path()
		if err := labels.Encode(writer, sheet); err != nil {
			mh.showError("Failed to Save Labels", err)
			return
		}

		mh.logger.WithFields(logrus.Fields{"path": path, "labels": placed}).Info("Labels exported")
		if mh.onLabelsExported != nil {
			mh.onLabelsExported(path, placed)
		}
	}, mh.window)

	fileDialog.SetFileName("marker_labels.png")
	fileDialog.SetFilter(storage.NewExtensionFileFilter([]string{".png"}))
	fileDialog.Show()
}

func (mh *MenuHandler) showAbout() {
	content := container.NewVBox(
		widget.NewLabel("Vision Inventory"),
		widget.NewSeparator(),
		widget.NewLabel("Blob counting and marker based slot inventory"),
		widget.NewLabel("from a live camera feed."),
		widget.NewSeparator(),
		widget.NewLabel(fmt.Sprintf("Catalog: %s", mh.store.Path())),
		widget.NewLabel(fmt.Sprintf("Marker dictionary: %s", mh.dictionary)),
		widget.NewLabel("Built with Go, Fyne v2.6, and OpenCV 4.11"),
	)

	aboutDialog := dialog.NewCustom("About", "Close", content, mh.window)
	aboutDialog.Resize(fyne.NewSize(400, 260))
	aboutDialog.Show()
}

func (mh *MenuHandler) showError(title string, err error) {
	mh.logger.WithError(err).Error(title)
	dialog.ShowError(err, mh.window)
}

func (mh *MenuHandler) SetCallbacks(onOpenImage func(), onLabelsExported func(path string, count int)) {
	mh.onOpenImage = onOpenImage
	mh.onLabelsExported = onLabelsExported
}
