// Grid geometry for the scan region and centroid-to-cell binning
package geometry

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidGrid is returned for grids that cannot be partitioned.
var ErrInvalidGrid = errors.New("invalid grid")

// Grid describes a rectangular scan region split evenly into Rows x Cols cells.
type Grid struct {
	OriginX int `yaml:"origin_x"`
	OriginY int `yaml:"origin_y"`
	Width   int `yaml:"width"`
	Height  int `yaml:"height"`
	Rows    int `yaml:"rows"`
	Cols    int `yaml:"cols"`
}

// Cell addresses one grid cell.
type Cell struct {
	Row int
	Col int
}

// Validate reports whether the grid can be partitioned.
func (g Grid) Validate() error {
	if g.Rows <= 0 || g.Cols <= 0 {
		return fmt.Errorf("%w: rows and columns must be positive, got %dx%d", ErrInvalidGrid, g.Rows, g.Cols)
	}
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: region must be non-empty, got %dx%d", ErrInvalidGrid, g.Width, g.Height)
	}
	return nil
}

// Bounds returns the whole scan region.
func (g Grid) Bounds() image.Rectangle {
	return image.Rect(g.OriginX, g.OriginY, g.OriginX+g.Width, g.OriginY+g.Height)
}

// CellSize returns the fractional cell width and height.
func (g Grid) CellSize() (float64, float64) {
	if g.Rows <= 0 || g.Cols <= 0 {
		return 0, 0
	}
	return float64(g.Width) / float64(g.Cols), float64(g.Height) / float64(g.Rows)
}

// edge returns ceil(k*size/n). Integer x lies in cell k exactly when
// edge(k) <= x < edge(k+1), which keeps CellRect consistent with Bin.
func edge(k, size, n int) int {
	return (k*size + n - 1) / n
}

// CellRect returns the pixel rectangle of a cell. Adjacent cells share edges and
// the outer edges coincide with Bounds.
func (g Grid) CellRect(row, col int) image.Rectangle {
	return image.Rect(
		g.OriginX+edge(col, g.Width, g.Cols),
		g.OriginY+edge(row, g.Height, g.Rows),
		g.OriginX+edge(col+1, g.Width, g.Cols),
		g.OriginY+edge(row+1, g.Height, g.Rows),
	)
}

// Cells returns every cell rectangle indexed [row][col]. It returns nil for an
// invalid grid.
func (g Grid) Cells() [][]image.Rectangle {
	if g.Validate() != nil {
		return nil
	}
	cells := make([][]image.Rectangle, g.Rows)
	for r := 0; r < g.Rows; r++ {
		cells[r] = make([]image.Rectangle, g.Cols)
		for c := 0; c < g.Cols; c++ {
			cells[r][c] = g.CellRect(r, c)
		}
	}
	return cells
}

// Contains reports whether p lies in [x0, x0+w) x [y0, y0+h).
func (g Grid) Contains(p image.Point) bool {
	return p.In(g.Bounds())
}

// Bin maps a centroid to its cell: col = floor((x-x0)/cellW), row =
// floor((y-y0)/cellH). Points outside the region, and every point on an invalid
// grid, report ok == false.
func (g Grid) Bin(p image.Point) (Cell, bool) {
	if g.Validate() != nil || !g.Contains(p) {
		return Cell{}, false
	}

	// (dx / (W/cols)) floored, in integer arithmetic
	col := (p.X - g.OriginX) * g.Cols / g.Width
	row := (p.Y - g.OriginY) * g.Rows / g.Height
	if row < 0 || row >= g.Rows || col < 0 || col >= g.Cols {
		return Cell{}, false
	}
	return Cell{Row: row, Col: col}, true
}

// SameShape reports whether two grids have the same row and column counts.
func (g Grid) SameShape(other Grid) bool {
	return g.Rows == other.Rows && g.Cols == other.Cols
}
