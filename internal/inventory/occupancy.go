// Shelf occupancy: bin detected markers into grid cells and resolve them
// against the piece catalog
package inventory

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"vision-inventory/internal/catalog"
	"vision-inventory/internal/geometry"
	"vision-inventory/internal/markers"
	"vision-inventory/internal/palette"
)

type State int

const (
	StateEmpty State = iota
	// StateUnassociated is a cell holding a marker with no catalog entry.
	StateUnassociated
	StateKnown
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateUnassociated:
		return "unassociated"
	case StateKnown:
		return "known"
	default:
		return "unknown"
	}
}

// Color is the rectangle color drawn for a cell in this state.
func (s State) Color() color.RGBA {
	switch s {
	case StateKnown:
		return palette.CellKnown
	case StateUnassociated:
		return palette.CellUnknown
	default:
		return palette.CellEmpty
	}
}

// CellStatus is the resolved content of one cell.
type CellStatus struct {
	Cell     geometry.Cell
	Rect     image.Rectangle
	State    State
	MarkerID string
	Piece    catalog.Piece
}

// Text is the multi-line label shown in the status grid.
func (c CellStatus) Text() string {
	switch c.State {
	case StateKnown:
		return fmt.Sprintf("%s\n(%s)\nID: %s", c.Piece.Model, c.Piece.Type, c.MarkerID)
	case StateUnassociated:
		return fmt.Sprintf("ID: %s\n(not associated)", c.MarkerID)
	default:
		return "Empty"
	}
}

// Occupancy is the per-cell status of one analysed frame, indexed [row][col].
type Occupancy struct {
	Grid  geometry.Grid
	Cells [][]CellStatus
}

// Counts tallies cells per state.
func (o *Occupancy) Counts() map[State]int {
	counts := make(map[State]int, 3)
	for _, row := range o.Cells {
		for _, cell := range row {
			counts[cell.State]++
		}
	}
	return counts
}

// Analyze bins each detection by its centroid. When several markers land in
// the same cell the one processed last wins. An invalid grid is an error and
// yields no occupancy.
func Analyze(detections []markers.Detection, grid geometry.Grid, index map[string]catalog.Piece) (*Occupancy, error) {
	rects := grid.Cells()
	if rects == nil {
		return nil, grid.Validate()
	}

	located := make(map[geometry.Cell]string, len(detections))
	for _, det := range detections {
		if cell, ok := grid.Bin(det.Centroid()); ok {
			located[cell] = det.Key()
		}
	}

	cells := make([][]CellStatus, grid.Rows)
	for r := range cells {
		cells[r] = make([]CellStatus, grid.Cols)
		for c := range cells[r] {
			cell := geometry.Cell{Row: r, Col: c}
			status := CellStatus{Cell: cell, Rect: rects[r][c], State: StateEmpty}

			if id, ok := located[cell]; ok {
				status.MarkerID = id
				status.State = StateUnassociated
				if piece, known := index[id]; known {
					status.State = StateKnown
					status.Piece = piece
				}
			}
			cells[r][c] = status
		}
	}
	return &Occupancy{Grid: grid, Cells: cells}, nil
}

// Render draws every cell rectangle in its state color.
func Render(img *gocv.Mat, occ *Occupancy) {
	for _, row := range occ.Cells {
		for _, cell := range row {
			gocv.Rectangle(img, cell.Rect, cell.State.Color(), 1)
		}
	}
}
