package blobs

import (
	"gocv.io/x/gocv"

	"vision-inventory/internal/geometry"
	"vision-inventory/internal/palette"
)

// Occupancy marks which cells of a grid hold at least one blob, indexed
// [row][col].
type Occupancy struct {
	Grid     geometry.Grid
	Occupied [][]bool
}

// Empty lists the unoccupied cells of row in column order. An out of range row
// yields nothing.
func (o *Occupancy) Empty(row int) []geometry.Cell {
	if row < 0 || row >= len(o.Occupied) {
		return nil
	}
	var cells []geometry.Cell
	for col, occupied := range o.Occupied[row] {
		if !occupied {
			cells = append(cells, geometry.Cell{Row: row, Col: col})
		}
	}
	return cells
}

// Count returns the number of occupied cells.
func (o *Occupancy) Count() int {
	n := 0
	for _, row := range o.Occupied {
		for _, occupied := range row {
			if occupied {
				n++
			}
		}
	}
	return n
}

// Occupy bins every blob with a defined centroid into the grid. Blobs whose
// centroid fell back to the bounding box are ignored.
func Occupy(blobs []Blob, grid geometry.Grid) (*Occupancy, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	occupied := make([][]bool, grid.Rows)
	for r := range occupied {
		occupied[r] = make([]bool, grid.Cols)
	}

	for _, b := range blobs {
		if b.Degenerate {
			continue
		}
		if cell, ok := grid.Bin(b.Centroid); ok {
			occupied[cell.Row][cell.Col] = true
		}
	}
	return &Occupancy{Grid: grid, Occupied: occupied}, nil
}

// DrawGrid draws the cell boundaries onto img. Invalid grids draw nothing.
func DrawGrid(img *gocv.Mat, grid geometry.Grid) {
	cells := grid.Cells()
	for _, row := range cells {
		for _, rect := range row {
			gocv.Rectangle(img, rect, palette.GridLine, 1)
		}
	}
}
