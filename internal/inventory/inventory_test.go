package inventory

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"vision-inventory/internal/catalog"
	"vision-inventory/internal/geometry"
	"vision-inventory/internal/markers"
	"vision-inventory/internal/palette"
)

var shelf = geometry.Grid{OriginX: 40, OriginY: 10, Width: 1200, Height: 700, Rows: 3, Cols: 4}

// markerAt builds a square detection centred on (x, y).
func markerAt(id, x, y int) markers.Detection {
	fx, fy := float64(x), float64(y)
	return markers.Detection{
		ID: id,
		Corners: []geometry.PointF{
			{X: fx - 10, Y: fy - 10},
			{X: fx + 10, Y: fy - 10},
			{X: fx + 10, Y: fy + 10},
			{X: fx - 10, Y: fy + 10},
		},
	}
}

func TestAnalyzeStates(t *testing.T) {
	index := catalog.Index([]catalog.Piece{
		{MarkerID: "7", Model: "Flange", Type: catalog.TypeMale},
	})
	detections := []markers.Detection{
		markerAt(7, 100, 100),  // row 0 col 0
		markerAt(9, 1000, 600), // row 2 col 3
		markerAt(3, 10, 10),    // left of the region
	}

	occ, err := Analyze(detections, shelf, index)
	require.NoError(t, err)
	require.Len(t, occ.Cells, 3)
	require.Len(t, occ.Cells[0], 4)

	known := occ.Cells[0][0]
	assert.Equal(t, StateKnown, known.State)
	assert.Equal(t, "7", known.MarkerID)
	assert.Equal(t, "Flange", known.Piece.Model)
	assert.Equal(t, "Flange\n(Macho)\nID: 7", known.Text())

	unassociated := occ.Cells[2][3]
	assert.Equal(t, StateUnassociated, unassociated.State)
	assert.Equal(t, "ID: 9\n(not associated)", unassociated.Text())

	assert.Equal(t, StateEmpty, occ.Cells[1][1].State)
	assert.Equal(t, "Empty", occ.Cells[1][1].Text())

	assert.Equal(t, map[State]int{StateKnown: 1, StateUnassociated: 1, StateEmpty: 10}, occ.Counts())
	assert.Equal(t, shelf.CellRect(1, 2), occ.Cells[1][2].Rect)
}

func TestAnalyzeCollisionLastWins(t *testing.T) {
	index := catalog.Index([]catalog.Piece{
		{MarkerID: "1", Model: "first", Type: catalog.TypeMale},
		{MarkerID: "2", Model: "second", Type: catalog.TypeFemale},
	})

	occ, err := Analyze([]markers.Detection{markerAt(1, 100, 100), markerAt(2, 120, 130)}, shelf, index)
	require.NoError(t, err)
	assert.Equal(t, "2", occ.Cells[0][0].MarkerID)

	occ, err = Analyze([]markers.Detection{markerAt(2, 120, 130), markerAt(1, 100, 100)}, shelf, index)
	require.NoError(t, err)
	assert.Equal(t, "1", occ.Cells[0][0].MarkerID)
}

func TestAnalyzeInvalidGrid(t *testing.T) {
	bad := shelf
	bad.Cols = 0

	occ, err := Analyze([]markers.Detection{markerAt(1, 100, 100)}, bad, nil)
	assert.Nil(t, occ)
	assert.True(t, errors.Is(err, geometry.ErrInvalidGrid))
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	detections := []markers.Detection{markerAt(4, 640, 360), markerAt(5, 1239, 709)}
	first, err := Analyze(detections, shelf, nil)
	require.NoError(t, err)
	second, err := Analyze(detections, shelf, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "5", first.Cells[2][3].MarkerID, "last pixel inside the region maps to the last cell")
}

func TestRenderDrawsCellColors(t *testing.T) {
	grid := geometry.Grid{OriginX: 0, OriginY: 0, Width: 100, Height: 100, Rows: 1, Cols: 2}
	occ, err := Analyze([]markers.Detection{markerAt(8, 75, 50)}, grid, nil)
	require.NoError(t, err)

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 120, gocv.MatTypeCV8UC3)
	defer frame.Close()
	Render(&frame, occ)

	empty := frame.GetVecbAt(0, 25)
	assert.Equal(t, []uint8{80, 80, 80}, []uint8{empty[0], empty[1], empty[2]})

	unassociated := frame.GetVecbAt(0, 75)
	want := palette.CellUnknown
	assert.Equal(t, []uint8{want.B, want.G, want.R}, []uint8{unassociated[0], unassociated[1], unassociated[2]})
}

func TestHighlighterExpires(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	h := NewHighlighter(2 * time.Second)
	h.now = func() time.Time { return now }

	_, ok := h.Active()
	assert.False(t, ok)
	assert.Equal(t, palette.Marker, h.Color(7))

	h.Set("7")
	id, ok := h.Active()
	assert.True(t, ok)
	assert.Equal(t, "7", id)
	assert.Equal(t, palette.MarkerRecent, h.Color(7))
	assert.Equal(t, palette.Marker, h.Color(8))

	now = now.Add(1999 * time.Millisecond)
	assert.Equal(t, palette.MarkerRecent, h.Color(7))

	now = now.Add(time.Millisecond)
	_, ok = h.Active()
	assert.False(t, ok)
	assert.Equal(t, palette.Marker, h.Color(7))
}

func TestHighlighterRestartsOnSet(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	h := NewHighlighter(2 * time.Second)
	h.now = func() time.Time { return now }

	h.Set("1")
	now = now.Add(1500 * time.Millisecond)
	h.Set("2")
	now = now.Add(1500 * time.Millisecond)

	id, ok := h.Active()
	assert.True(t, ok)
	assert.Equal(t, "2", id)
}

func TestSelectionUpdatesOnlyOnChange(t *testing.T) {
	var s Selection

	options, pick, changed := s.Update([]int{3, 12})
	assert.True(t, changed)
	assert.Equal(t, []string{"3", "12"}, options)
	assert.Equal(t, "12", pick)

	_, _, changed = s.Update([]int{3, 12})
	assert.False(t, changed)

	options, pick, changed = s.Update([]int{3})
	assert.True(t, changed)
	assert.Equal(t, []string{"3"}, options)
	assert.Equal(t, "3", pick)

	options, pick, changed = s.Update(nil)
	assert.True(t, changed)
	assert.Empty(t, options)
	assert.Equal(t, "", pick)
	assert.Empty(t, s.Options())
}

func TestCellStatusRectWithinRegion(t *testing.T) {
	occ, err := Analyze(nil, shelf, nil)
	require.NoError(t, err)
	for _, row := range occ.Cells {
		for _, cell := range row {
			assert.True(t, cell.Rect.In(shelf.Bounds()))
			assert.False(t, cell.Rect.Empty())
		}
	}
	assert.Equal(t, image.Rect(40, 10, 1240, 710), shelf.Bounds())
}

func TestHighlighterMatchesPaddedIDs(t *testing.T) {
	h := NewHighlighter(time.Minute)

	h.Set(" 07")
	id, ok := h.Active()
	require.True(t, ok)
	assert.Equal(t, "7", id)
	assert.Equal(t, palette.MarkerRecent, h.Color(7))
}
