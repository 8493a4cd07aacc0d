package blobs

import (
	"errors"
	"image"
	"image/color"
	"sort"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"vision-inventory/internal/geometry"
)

func newDetector() *Detector {
	logger, _ := test.NewNullLogger()
	return NewDetector(logger)
}

// canvas returns a BGR frame filled with a uniform gray level.
func canvas(level float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(level, level, level, 0), 240, 320, gocv.MatTypeCV8UC3)
}

func fill(mat *gocv.Mat, rect image.Rectangle, level uint8) {
	gocv.Rectangle(mat, rect, color.RGBA{R: level, G: level, B: level}, -1)
}

func sortedBounds(blobs []Blob) []image.Rectangle {
	out := make([]image.Rectangle, len(blobs))
	for i, b := range blobs {
		out[i] = b.Bounds
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Min.Y != out[j].Min.Y {
			return out[i].Min.Y < out[j].Min.Y
		}
		return out[i].Min.X < out[j].Min.X
	})
	return out
}

func assertRectNear(t *testing.T, want, got image.Rectangle) {
	t.Helper()
	assert.InDelta(t, want.Min.X, got.Min.X, 1)
	assert.InDelta(t, want.Min.Y, got.Min.Y, 1)
	assert.InDelta(t, want.Max.X, got.Max.X, 1)
	assert.InDelta(t, want.Max.Y, got.Max.Y, 1)
}

func TestDetectEmptyFrame(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := newDetector().Detect(empty, Params{Mode: ModeInverse, Threshold: 127})
	assert.True(t, errors.Is(err, ErrEmptyFrame))
}

func TestDetectNothingLeavesViewsUnannotated(t *testing.T) {
	frame := canvas(255)
	defer frame.Close()

	result, err := newDetector().Detect(frame, Params{Mode: ModeInverse, Threshold: 127})
	require.NoError(t, err)
	defer result.Close()

	assert.Equal(t, 0, result.Count)
	assert.Empty(t, result.Blobs)
	assert.Equal(t, "BLOBS FOUND: 0", result.Summary())

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(frame, result.Annotated, &diff)
	diffGray := gocv.NewMat()
	defer diffGray.Close()
	gocv.CvtColor(diff, &diffGray, gocv.ColorBGRToGray)
	assert.Zero(t, gocv.CountNonZero(diffGray))

	maskGray := gocv.NewMat()
	defer maskGray.Close()
	gocv.CvtColor(result.Mask, &maskGray, gocv.ColorBGRToGray)
	assert.Zero(t, gocv.CountNonZero(maskGray))
}

func TestDetectDisjointRectangles(t *testing.T) {
	frame := canvas(255)
	defer frame.Close()

	rects := []image.Rectangle{
		image.Rect(20, 20, 80, 60),
		image.Rect(150, 30, 200, 90),
		image.Rect(40, 150, 140, 200),
	}
	for _, r := range rects {
		fill(&frame, r, 0)
	}
	original := frame.Clone()
	defer original.Close()

	result, err := newDetector().Detect(frame, Params{Mode: ModeInverse, Threshold: 127})
	require.NoError(t, err)
	defer result.Close()

	require.Equal(t, 3, result.Count)
	assert.Equal(t, "BLOBS FOUND: 3", result.Summary())

	got := sortedBounds(result.Blobs)
	for i, want := range rects {
		assertRectNear(t, want, got[i])
	}

	for i, b := range result.Blobs {
		assert.Equal(t, i+1, b.Index)
		assert.Greater(t, b.Area, MinArea)
		assert.False(t, b.Degenerate)
		assert.True(t, b.Centroid.In(b.Bounds))
		assert.NotEmpty(t, b.Contour)
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(frame, original, &diff)
	diffGray := gocv.NewMat()
	defer diffGray.Close()
	gocv.CvtColor(diff, &diffGray, gocv.ColorBGRToGray)
	assert.Zero(t, gocv.CountNonZero(diffGray), "source frame must not be mutated")
}

func TestDetectBandMode(t *testing.T) {
	frame := canvas(220)
	defer frame.Close()
	fill(&frame, image.Rect(100, 100, 160, 150), 100)

	result, err := newDetector().Detect(frame, Params{Mode: ModeBand, Low: 60, High: 160})
	require.NoError(t, err)
	defer result.Close()

	require.Equal(t, 1, result.Count)
	assertRectNear(t, image.Rect(100, 100, 160, 150), result.Blobs[0].Bounds)
}

func TestDetectDropsSmallRegions(t *testing.T) {
	frame := canvas(255)
	defer frame.Close()
	fill(&frame, image.Rect(30, 30, 40, 40), 0)
	fill(&frame, image.Rect(100, 100, 160, 160), 0)

	result, err := newDetector().Detect(frame, Params{Mode: ModeInverse, Threshold: 127})
	require.NoError(t, err)
	defer result.Close()

	require.Equal(t, 1, result.Count)
	assertRectNear(t, image.Rect(100, 100, 160, 160), result.Blobs[0].Bounds)
}

func TestDetectUnknownMode(t *testing.T) {
	frame := canvas(255)
	defer frame.Close()

	_, err := newDetector().Detect(frame, Params{Mode: "otsu"})
	assert.Error(t, err)
}

func TestKeepAreaIsStrict(t *testing.T) {
	assert.False(t, keepArea(0))
	assert.False(t, keepArea(199.5))
	assert.False(t, keepArea(200))
	assert.True(t, keepArea(200.5))
}

func TestDegenerateContourFallsBackToBoundsOrigin(t *testing.T) {
	line := gocv.NewPointVectorFromPoints([]image.Point{{X: 5, Y: 7}, {X: 25, Y: 7}})
	defer line.Close()

	bounds := gocv.BoundingRect(line)
	centroid, degenerate := contourCentroid(line, bounds)

	assert.True(t, degenerate)
	assert.Equal(t, bounds.Min, centroid)
}

func TestContourCentroidOfSquare(t *testing.T) {
	square := gocv.NewPointVectorFromPoints([]image.Point{{X: 10, Y: 10}, {X: 10, Y: 30}, {X: 30, Y: 30}, {X: 30, Y: 10}})
	defer square.Close()

	centroid, degenerate := contourCentroid(square, gocv.BoundingRect(square))
	assert.False(t, degenerate)
	assert.Equal(t, image.Pt(20, 20), centroid)
}

func TestOccupy(t *testing.T) {
	grid := geometry.Grid{OriginX: 0, OriginY: 0, Width: 300, Height: 200, Rows: 2, Cols: 3}
	blobs := []Blob{
		{Index: 1, Centroid: image.Pt(50, 50)},
		{Index: 2, Centroid: image.Pt(250, 150)},
		{Index: 3, Centroid: image.Pt(150, 20), Degenerate: true},
		{Index: 4, Centroid: image.Pt(400, 50)},
	}

	occ, err := Occupy(blobs, grid)
	require.NoError(t, err)

	assert.Equal(t, [][]bool{{true, false, false}, {false, false, true}}, occ.Occupied)
	assert.Equal(t, 2, occ.Count())
	assert.Equal(t, []geometry.Cell{{Row: 0, Col: 1}, {Row: 0, Col: 2}}, occ.Empty(0))
	assert.Nil(t, occ.Empty(5))
}

func TestOccupyInvalidGrid(t *testing.T) {
	_, err := Occupy(nil, geometry.Grid{Width: 100, Height: 100, Rows: 0, Cols: 2})
	assert.True(t, errors.Is(err, geometry.ErrInvalidGrid))
}

func TestDrawGridInvalidDrawsNothing(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 50, 50, gocv.MatTypeCV8UC3)
	defer frame.Close()

	DrawGrid(&frame, geometry.Grid{Width: 40, Height: 40, Rows: -1, Cols: 2})
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	assert.Zero(t, gocv.CountNonZero(gray))

	DrawGrid(&frame, geometry.Grid{OriginX: 5, OriginY: 5, Width: 40, Height: 40, Rows: 2, Cols: 2})
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	assert.NotZero(t, gocv.CountNonZero(gray))
}
