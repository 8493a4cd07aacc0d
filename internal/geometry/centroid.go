package geometry

import "image"

// PointF is a sub-pixel image coordinate.
type PointF struct {
	X float64
	Y float64
}

// MomentCentroid returns (m10/m00, m01/m00) truncated to whole pixels. A region
// with a zero zeroth moment has no defined centroid and yields fallback, which
// callers set to the bounding rectangle origin.
func MomentCentroid(m00, m10, m01 float64, fallback image.Point) image.Point {
	if m00 == 0 {
		return fallback
	}
	return image.Pt(int(m10/m00), int(m01/m00))
}

// MeanPoint averages points and truncates the result to whole pixels.
func MeanPoint(points []PointF) image.Point {
	if len(points) == 0 {
		return image.Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return image.Pt(int(sx/n), int(sy/n))
}
