package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const welcomeText = `1. Print marker labels for your pieces (File > Export Labels...) and stick one on each piece.
2. In Classification, hold a piece in front of the camera, pick its marker ID, enter the model and type, then save.
3. In Warehouse, adjust the grid over the shelf. Each slot shows the piece it holds, an unknown marker or Empty.
4. The Blob Counter counts dark regions in the camera feed or in a loaded image.`

// WelcomeScreen shows usage instructions. It owns no camera.
type WelcomeScreen struct {
	content fyne.CanvasObject
}

func NewWelcomeScreen(navigate Navigator) *WelcomeScreen {
	title := canvas.NewText("Vision Inventory", infoColor)
	title.TextSize = 28
	title.TextStyle = fyne.TextStyle{Bold: true}
	title.Alignment = fyne.TextAlignCenter

	instructions := widget.NewLabel(welcomeText)
	instructions.Wrapping = fyne.TextWrapWord

	start := widget.NewButton("Start Classifying", func() {
		if navigate != nil {
			navigate("Classification")
		}
	})
	start.Importance = widget.HighImportance

	body := container.NewVBox(
		title,
		widget.NewSeparator(),
		widget.NewCard("How to use", "", instructions),
		container.NewCenter(start),
	)
	return &WelcomeScreen{content: container.NewPadded(body)}
}

func (w *WelcomeScreen) Title() string                   { return "Welcome" }
func (w *WelcomeScreen) GetContainer() fyne.CanvasObject { return w.content }
func (w *WelcomeScreen) Activate()                       {}
func (w *WelcomeScreen) Deactivate()                     {}
func (w *WelcomeScreen) Close()                          {}
