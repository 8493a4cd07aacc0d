// Blob counting: binarize a frame, find external contours and label survivors
package blobs

import (
	"errors"
	"fmt"
	"image"
	"strconv"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"vision-inventory/internal/algorithms"
	"vision-inventory/internal/geometry"
	"vision-inventory/internal/palette"
)

// MinArea is the contour area a blob must exceed to be counted.
const MinArea = 200.0

const blurKernel = 7

// Binarization modes.
const (
	ModeInverse = "inverse"
	ModeBand    = "band"
)

var ErrEmptyFrame = errors.New("empty frame")

// Params selects the binarization. Threshold applies to ModeInverse, Low and
// High to ModeBand.
type Params struct {
	Mode      string
	Threshold int
	Low       int
	High      int
}

// Blob is one counted region. Index is 1-based in contour discovery order.
type Blob struct {
	Index    int
	Contour  []image.Point
	Bounds   image.Rectangle
	Centroid image.Point
	Area     float64
	// Degenerate is set when the zeroth moment is zero and Centroid fell back
	// to the bounding rectangle origin.
	Degenerate bool
}

// Result holds the count and both annotated views. Close releases the Mats.
type Result struct {
	Count     int
	Blobs     []Blob
	Annotated gocv.Mat
	Mask      gocv.Mat
}

func (r *Result) Close() {
	r.Annotated.Close()
	r.Mask.Close()
}

// Summary is the status line shown next to the views.
func (r *Result) Summary() string {
	return fmt.Sprintf("BLOBS FOUND: %d", r.Count)
}

type Detector struct {
	logger *logrus.Logger
}

func NewDetector(logger *logrus.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect runs the pipeline on a BGR frame. The frame is not modified.
func (d *Detector) Detect(frame gocv.Mat, p Params) (*Result, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	mask, err := d.binarize(frame, p)
	if err != nil {
		return nil, err
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	annotated := frame.Clone()
	maskView := gocv.NewMat()
	gocv.CvtColor(mask, &maskView, gocv.ColorGrayToBGR)
	mask.Close()

	result := &Result{
		Blobs:     make([]Blob, 0),
		Annotated: annotated,
		Mask:      maskView,
	}

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if !keepArea(area) {
			continue
		}

		bounds := gocv.BoundingRect(contour)
		centroid, degenerate := contourCentroid(contour, bounds)

		blob := Blob{
			Index:      len(result.Blobs) + 1,
			Contour:    contour.ToPoints(),
			Bounds:     bounds,
			Centroid:   centroid,
			Area:       area,
			Degenerate: degenerate,
		}
		result.Blobs = append(result.Blobs, blob)

		label := strconv.Itoa(blob.Index)
		labelAt := centroid.Add(image.Pt(-10, 10))

		gocv.Rectangle(&result.Annotated, bounds, palette.BlobOutline, 2)
		gocv.PutText(&result.Annotated, label, labelAt, gocv.FontHersheyTriplex, 1, palette.BlobLabel, 2)

		gocv.DrawContours(&result.Mask, contours, i, palette.BlobOutline, 2)
		gocv.PutText(&result.Mask, label, labelAt, gocv.FontHersheyTriplex, 1, palette.BlobLabel, 2)
	}
	result.Count = len(result.Blobs)

	d.logger.WithFields(logrus.Fields{
		"mode":     p.Mode,
		"contours": contours.Size(),
		"count":    result.Count,
	}).Debug("Blob detection complete")

	return result, nil
}

// binarize runs grayscale, blur and the configured threshold step.
func (d *Detector) binarize(frame gocv.Mat, p Params) (gocv.Mat, error) {
	gray, err := algorithms.Apply("grayscale", frame, nil)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("grayscale: %w", err)
	}
	defer gray.Close()

	blurred, err := algorithms.Apply("gaussian", gray, map[string]interface{}{"kernel_size": blurKernel})
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("blur: %w", err)
	}
	defer blurred.Close()

	switch p.Mode {
	case ModeBand:
		return algorithms.Apply("band_pass", blurred, map[string]interface{}{"low": p.Low, "high": p.High})
	case ModeInverse, "":
		return algorithms.Apply("threshold_inverse", blurred, map[string]interface{}{"threshold": p.Threshold})
	default:
		return gocv.NewMat(), fmt.Errorf("unknown blob mode %q", p.Mode)
	}
}

func keepArea(area float64) bool {
	return area > MinArea
}

func contourCentroid(contour gocv.PointVector, bounds image.Rectangle) (image.Point, bool) {
	points := gocv.NewMatFromPointVector(contour, true)
	defer points.Close()

	m := gocv.Moments(points, false)
	return geometry.MomentCentroid(m["m00"], m["m10"], m["m01"], bounds.Min), m["m00"] == 0
}
