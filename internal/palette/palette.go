// Drawing colors shared by the renderers and the status widgets
package palette

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	BlobOutlineHex  = "#00ff00"
	BlobLabelHex    = "#ff0000"
	GridLineHex     = "#ffff00"
	CellEmptyHex    = "#505050"
	CellKnownHex    = "#00ff00"
	CellUnknownHex  = "#ffbf00"
	MarkerHex       = "#ff0000"
	MarkerRecentHex = "#ffc117"
)

// Widget fills.
const (
	PanelHex     = "#3c3c3c"
	SuccessHex   = "#28a745"
	InfoHex      = "#17a2b8"
	HighlightHex = "#ffc107"
	DangerHex    = "#dc3545"
)

var (
	BlobOutline  = MustRGBA(BlobOutlineHex)
	BlobLabel    = MustRGBA(BlobLabelHex)
	GridLine     = MustRGBA(GridLineHex)
	CellEmpty    = MustRGBA(CellEmptyHex)
	CellKnown    = MustRGBA(CellKnownHex)
	CellUnknown  = MustRGBA(CellUnknownHex)
	Marker       = MustRGBA(MarkerHex)
	MarkerRecent = MustRGBA(MarkerRecentHex)
)

// RGBA parses a "#rrggbb" string. Alpha is left at zero, which the drawing
// calls ignore; use Opaque for widget fills.
func RGBA(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b}, nil
}

// MustRGBA is RGBA for package-level constants.
func MustRGBA(hex string) color.RGBA {
	c, err := RGBA(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// Opaque returns c with full alpha.
func Opaque(c color.RGBA) color.RGBA {
	c.A = 0xff
	return c
}
