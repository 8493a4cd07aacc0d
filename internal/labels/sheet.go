// Printable marker label sheets for catalog entries
package labels

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"vision-inventory/internal/catalog"
	"vision-inventory/internal/markers"
)

var ErrNoLabels = errors.New("no printable labels")

// Layout controls label geometry in pixels.
type Layout struct {
	Dictionary string
	MarkerSide int
	QRSide     int
	Padding    int
	Columns    int
}

func DefaultLayout() Layout {
	return Layout{
		Dictionary: markers.DefaultDictionary,
		MarkerSide: 200,
		QRSide:     120,
		Padding:    20,
		Columns:    3,
	}
}

const textHeight = 13

// Builder renders catalog entries into labels.
type Builder struct {
	layout Layout
	logger *logrus.Logger
}

func NewBuilder(layout Layout, logger *logrus.Logger) *Builder {
	if layout.Columns <= 0 {
		layout.Columns = 1
	}
	return &Builder{layout: layout, logger: logger}
}

// Caption is the text printed under the marker.
func Caption(p catalog.Piece) string {
	return fmt.Sprintf("ID %s - %s (%s)", p.MarkerID, p.Model, p.Type)
}

// Payload is the string encoded in the QR code.
func Payload(p catalog.Piece) string {
	return fmt.Sprintf("%s|%s|%s", p.MarkerID, p.Model, p.Type)
}

// labelSize returns the width and height of one label.
func (b *Builder) labelSize() (int, int) {
	l := b.layout
	w := l.Padding*3 + l.MarkerSide + l.QRSide
	h := l.Padding*3 + l.MarkerSide + textHeight
	return w, h
}

// Label renders one piece. The marker ID must be numeric and inside the
// dictionary.
func (b *Builder) Label(p catalog.Piece) (image.Image, error) {
	id, err := strconv.Atoi(p.MarkerID)
	if err != nil {
		return nil, fmt.Errorf("marker id %q is not numeric", p.MarkerID)
	}

	mat, err := markers.Generate(b.layout.Dictionary, id, b.layout.MarkerSide)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	marker, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert marker %d: %w", id, err)
	}

	qr, err := qrcode.New(Payload(p), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr for %s: %w", p.MarkerID, err)
	}
	qrImg := qr.Image(b.layout.QRSide)

	w, h := b.labelSize()
	pad := b.layout.Padding
	label := imaging.New(w, h, color.White)
	label = imaging.Paste(label, marker, image.Pt(pad, pad))
	label = imaging.Paste(label, qrImg, image.Pt(pad*2+b.layout.MarkerSide, pad))

	baseline := pad*2 + b.layout.MarkerSide + textHeight - 3
	drawer := &font.Drawer{
		Dst:  label,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(pad, baseline),
	}
	drawer.DrawString(Caption(p))

	return label, nil
}

// Sheet lays out one label per printable piece, row by row. Pieces whose ID
// cannot be printed are skipped with a warning. It returns the number of
// labels placed.
func (b *Builder) Sheet(pieces []catalog.Piece) (image.Image, int, error) {
	var rendered []image.Image
	for _, p := range pieces {
		img, err := b.Label(p)
		if err != nil {
			b.logger.WithFields(logrus.Fields{"marker_id": p.MarkerID, "error": err}).Warn("Skipping label")
			continue
		}
		rendered = append(rendered, img)
	}
	if len(rendered) == 0 {
		return nil, 0, ErrNoLabels
	}

	cols := b.layout.Columns
	if len(rendered) < cols {
		cols = len(rendered)
	}
	rows := (len(rendered) + cols - 1) / cols

	w, h := b.labelSize()
	sheet := imaging.New(cols*w, rows*h, color.White)
	for i, img := range rendered {
		at := image.Pt((i%cols)*w, (i/cols)*h)
		sheet = imaging.Paste(sheet, img, at)
	}

	b.logger.WithFields(logrus.Fields{"labels": len(rendered), "skipped": len(pieces) - len(rendered)}).Info("Label sheet built")
	return sheet, len(rendered), nil
}

// Save writes img as PNG.
func Save(path string, img image.Image) error {
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("save label sheet %s: %w", path, err)
	}
	return nil
}

// Encode writes img as PNG to w.
func Encode(w io.Writer, img image.Image) error {
	return imgio.PNGEncoder()(w, img)
}

// Thumbnail scales img to fit within max x max, for on-screen previews.
func Thumbnail(img image.Image, max int) image.Image {
	return imaging.Fit(img, max, max, imaging.Box)
}
