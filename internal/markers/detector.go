// ArUco marker detection and drawing
package markers

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"vision-inventory/internal/geometry"
)

// DefaultDictionary is used when none is configured.
const DefaultDictionary = "5x5_100"

// cornerRefineSubpix selects sub-pixel corner refinement in the detector
// parameters.
const cornerRefineSubpix = 1

var (
	ErrUnknownDictionary = errors.New("unknown marker dictionary")
	ErrEmptyFrame        = errors.New("empty frame")
)

type dictionary struct {
	code gocv.ArucoDictionaryCode
	size int
}

var dictionaries = map[string]dictionary{
	"4x4_50":   {gocv.ArucoDict4x4_50, 50},
	"4x4_100":  {gocv.ArucoDict4x4_100, 100},
	"4x4_250":  {gocv.ArucoDict4x4_250, 250},
	"4x4_1000": {gocv.ArucoDict4x4_1000, 1000},
	"5x5_50":   {gocv.ArucoDict5x5_50, 50},
	"5x5_100":  {gocv.ArucoDict5x5_100, 100},
	"5x5_250":  {gocv.ArucoDict5x5_250, 250},
	"5x5_1000": {gocv.ArucoDict5x5_1000, 1000},
	"6x6_50":   {gocv.ArucoDict6x6_50, 50},
	"6x6_100":  {gocv.ArucoDict6x6_100, 100},
	"6x6_250":  {gocv.ArucoDict6x6_250, 250},
	"6x6_1000": {gocv.ArucoDict6x6_1000, 1000},
}

func lookup(name string) (dictionary, error) {
	if name == "" {
		name = DefaultDictionary
	}
	dict, ok := dictionaries[name]
	if !ok {
		return dictionary{}, fmt.Errorf("%w: %s", ErrUnknownDictionary, name)
	}
	return dict, nil
}

// DictionarySize returns how many marker IDs the named dictionary holds.
func DictionarySize(name string) (int, error) {
	dict, err := lookup(name)
	if err != nil {
		return 0, err
	}
	return dict.size, nil
}

// Dictionaries lists the supported dictionary names.
func Dictionaries() []string {
	names := make([]string, 0, len(dictionaries))
	for name := range dictionaries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detection is one marker found in a frame. Corners are in detector order
// (clockwise from the top-left of the marker).
type Detection struct {
	ID      int
	Corners []geometry.PointF
}

// Centroid is the mean of the corners, truncated to whole pixels.
func (d Detection) Centroid() image.Point {
	return geometry.MeanPoint(d.Corners)
}

// Key is the catalog key for the marker ID.
func (d Detection) Key() string {
	return strconv.Itoa(d.ID)
}

// Detector wraps an ArUco detector for one dictionary. It is not safe for
// concurrent use.
type Detector struct {
	name     string
	detector gocv.ArucoDetector
	logger   *logrus.Logger
}

func NewDetector(name string, logger *logrus.Logger) (*Detector, error) {
	dict, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = DefaultDictionary
	}

	params := gocv.NewArucoDetectorParameters()
	params.SetCornerRefinementMethod(cornerRefineSubpix)

	return &Detector{
		name:     name,
		detector: gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(dict.code), params),
		logger:   logger,
	}, nil
}

// Dictionary returns the configured dictionary name.
func (d *Detector) Dictionary() string {
	return d.name
}

// Detect finds markers in a BGR or grayscale frame, in detector order.
func (d *Detector) Detect(frame gocv.Mat) ([]Detection, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	gray := frame
	if frame.Channels() != 1 {
		gray = gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	}

	corners, ids, _ := d.detector.DetectMarkers(gray)

	detections := make([]Detection, 0, len(ids))
	for i, id := range ids {
		if i >= len(corners) {
			break
		}
		pts := make([]geometry.PointF, len(corners[i]))
		for j, c := range corners[i] {
			pts[j] = geometry.PointF{X: float64(c.X), Y: float64(c.Y)}
		}
		detections = append(detections, Detection{ID: id, Corners: pts})
	}

	if len(detections) > 0 {
		d.logger.WithFields(logrus.Fields{
			"dictionary": d.name,
			"markers":    len(detections),
		}).Debug("Markers detected")
	}
	return detections, nil
}

func (d *Detector) Close() {
	d.detector.Close()
}

// IDs returns the distinct marker IDs in ascending order.
func IDs(detections []Detection) []int {
	seen := make(map[int]bool, len(detections))
	ids := make([]int, 0, len(detections))
	for _, det := range detections {
		if seen[det.ID] {
			continue
		}
		seen[det.ID] = true
		ids = append(ids, det.ID)
	}
	sort.Ints(ids)
	return ids
}

// Draw outlines each detection with its ID, in the color returned by colorFor.
func Draw(img *gocv.Mat, detections []Detection, colorFor func(id int) color.RGBA) {
	for _, det := range detections {
		corners := make([]gocv.Point2f, len(det.Corners))
		for i, p := range det.Corners {
			corners[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
		}
		c := colorFor(det.ID)
		gocv.ArucoDrawDetectedMarkers(*img, [][]gocv.Point2f{corners}, []int{det.ID},
			gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0))
	}
}

// Generate renders marker id of the named dictionary as a side x side
// single-channel image with a one-bit border. The caller owns the Mat.
func Generate(name string, id, side int) (gocv.Mat, error) {
	dict, err := lookup(name)
	if err != nil {
		return gocv.NewMat(), err
	}
	if id < 0 || id >= dict.size {
		return gocv.NewMat(), fmt.Errorf("marker id %d outside dictionary %s (0-%d)", id, name, dict.size-1)
	}

	img := gocv.NewMat()
	gocv.ArucoGenerateImageMarker(dict.code, id, side, img, 1)
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("marker %d could not be generated", id)
	}
	return img, nil
}
