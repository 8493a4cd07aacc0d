package gui

import (
	"fyne.io/fyne/v2"
)

// Screen is one tab of the application. Activate and Deactivate are called on
// the UI goroutine when the tab is shown or hidden; a screen owns its camera
// session only while active.
type Screen interface {
	Title() string
	GetContainer() fyne.CanvasObject
	Activate()
	Deactivate()
	Close()
}

// Navigator switches the visible screen by title.
type Navigator func(title string)
