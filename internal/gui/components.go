// Shared GUI building blocks: frame views, sliders and the cell status grid
package gui

import (
	"fmt"
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"vision-inventory/internal/algorithms"
	"vision-inventory/internal/palette"
)

// Widget colors.
var (
	frameColor     = palette.Opaque(palette.MustRGBA(palette.PanelHex))
	successColor   = palette.Opaque(palette.MustRGBA(palette.SuccessHex))
	highlightColor = palette.Opaque(palette.MustRGBA(palette.HighlightHex))
	infoColor      = palette.Opaque(palette.MustRGBA(palette.InfoHex))
	dangerColor    = palette.Opaque(palette.MustRGBA(palette.DangerHex))
)

// displayImage converts a BGR Mat to an image.Image, scaled to width with area
// averaging when width is positive.
func displayImage(mat gocv.Mat, width int) (image.Image, error) {
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	if width > 0 && img.Bounds().Dx() != width {
		return imaging.Resize(img, width, 0, imaging.Box), nil
	}
	return img, nil
}

func placeholderImage(w, h int) image.Image {
	return imaging.New(w, h, color.Black)
}

// FrameView shows one rendered frame inside a titled card.
type FrameView struct {
	image *canvas.Image
	card  *widget.Card
}

func NewFrameView(title string) *FrameView {
	img := canvas.NewImageFromImage(placeholderImage(640, 480))
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(320, 240))
	return &FrameView{
		image: img,
		card:  widget.NewCard(title, "", img),
	}
}

// Set replaces the shown image. Call on the UI goroutine.
func (fv *FrameView) Set(img image.Image) {
	fv.image.Image = img
	fv.image.Refresh()
}

func (fv *FrameView) GetContainer() fyne.CanvasObject {
	return fv.card
}

// intSlider builds a slider with a live value label. onChange receives whole
// numbers only.
func intSlider(label string, min, max float64, value int, onChange func(int)) (*widget.Slider, fyne.CanvasObject) {
	slider := widget.NewSlider(min, max)
	slider.Step = 1
	slider.SetValue(float64(value))

	valueLabel := widget.NewLabel(fmt.Sprintf("%d", value))
	slider.OnChanged = func(v float64) {
		valueLabel.SetText(fmt.Sprintf("%.0f", v))
		onChange(int(v))
	}

	row := container.NewBorder(nil, nil, widget.NewLabel(label), valueLabel, slider)
	return slider, row
}

// paramSlider builds an intSlider from a processing step parameter.
func paramSlider(info algorithms.ParameterInfo, value int, onChange func(int)) (*widget.Slider, fyne.CanvasObject) {
	return intSlider(info.Description, toFloat(info.Min), toFloat(info.Max), value, onChange)
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

// StatusGrid is a rows x cols grid of colored text cells. All methods must be
// called on the UI goroutine.
type StatusGrid struct {
	holder *fyne.Container
	cells  [][]*statusCell
	rows   int
	cols   int
}

type statusCell struct {
	bg   *canvas.Rectangle
	text *widget.Label
}

func NewStatusGrid() *StatusGrid {
	return &StatusGrid{holder: container.NewStack()}
}

func (g *StatusGrid) GetContainer() fyne.CanvasObject {
	return g.holder
}

// Shape returns the current row and column counts.
func (g *StatusGrid) Shape() (int, int) {
	return g.rows, g.cols
}

// Rebuild replaces every cell with an empty one. Non-positive dimensions leave
// the grid blank.
func (g *StatusGrid) Rebuild(rows, cols int) {
	g.rows, g.cols = rows, cols
	g.cells = nil

	if rows <= 0 || cols <= 0 {
		g.holder.Objects = nil
		g.holder.Refresh()
		return
	}

	grid := container.NewGridWithColumns(cols)
	g.cells = make([][]*statusCell, rows)
	for r := 0; r < rows; r++ {
		g.cells[r] = make([]*statusCell, cols)
		for c := 0; c < cols; c++ {
			cell := &statusCell{
				bg:   canvas.NewRectangle(frameColor),
				text: widget.NewLabel("Empty"),
			}
			cell.text.Alignment = fyne.TextAlignCenter
			cell.text.Wrapping = fyne.TextWrapWord
			cell.bg.StrokeColor = color.Black
			cell.bg.StrokeWidth = 1
			g.cells[r][c] = cell
			grid.Add(container.NewStack(cell.bg, cell.text))
		}
	}
	g.holder.Objects = []fyne.CanvasObject{grid}
	g.holder.Refresh()
}

// Set updates one cell. Out of range cells are ignored.
func (g *StatusGrid) Set(row, col int, text string, fill color.Color) {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return
	}
	cell := g.cells[row][col]
	if cell.text.Text != text {
		cell.text.SetText(text)
	}
	if cell.bg.FillColor != fill {
		cell.bg.FillColor = fill
		cell.bg.Refresh()
	}
}
