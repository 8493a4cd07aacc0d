package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Grayscale converts a BGR frame to a single channel. Single-channel input is
// copied unchanged.
type Grayscale struct{}

func NewGrayscale() *Grayscale {
	return &Grayscale{}
}

func (g *Grayscale) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	if input.Channels() == 1 {
		return input.Clone(), nil
	}

	output := gocv.NewMat()
	gocv.CvtColor(input, &output, gocv.ColorBGRToGray)
	return output, nil
}

func (g *Grayscale) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{}
}

func (g *Grayscale) GetName() string {
	return "Grayscale"
}

func (g *Grayscale) GetDescription() string {
	return "BGR to single-channel luminance"
}

func (g *Grayscale) Validate(params map[string]interface{}) error {
	return nil
}

func (g *Grayscale) GetParameterInfo() []ParameterInfo {
	return nil
}

// GaussianFilter implements Gaussian blur filter. Sigma is derived from the
// kernel size.
type GaussianFilter struct{}

// NewGaussianFilter creates a new Gaussian filter algorithm
func NewGaussianFilter() *GaussianFilter {
	return &GaussianFilter{}
}

func (g *GaussianFilter) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	kernelSize := intParam(params, "kernel_size", 7)

	// Ensure kernel size is odd
	if kernelSize%2 == 0 {
		kernelSize++
	}

	output := gocv.NewMat()
	gocv.GaussianBlur(input, &output, image.Pt(kernelSize, kernelSize), 0, 0, gocv.BorderDefault)

	return output, nil
}

func (g *GaussianFilter) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel_size": 7,
	}
}

func (g *GaussianFilter) GetName() string {
	return "Gaussian Filter"
}

func (g *GaussianFilter) GetDescription() string {
	return "Gaussian blur for general noise reduction"
}

func (g *GaussianFilter) Validate(params map[string]interface{}) error {
	return checkRange(params, "kernel_size", 1, 31)
}

func (g *GaussianFilter) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "kernel_size",
			Type:        "int",
			Min:         1,
			Max:         31,
			Default:     7,
			Description: "Size of the Gaussian kernel (must be odd)",
		},
	}
}

// InverseThreshold marks pixels at or below the cutoff as foreground (255) and
// everything brighter as background. Dark objects on a light background become
// white blobs.
type InverseThreshold struct{}

func NewInverseThreshold() *InverseThreshold {
	return &InverseThreshold{}
}

func (t *InverseThreshold) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}
	if input.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("threshold expects a single-channel image, got %d channels", input.Channels())
	}

	cutoff := intParam(params, "threshold", 127)

	output := gocv.NewMat()
	gocv.Threshold(input, &output, float32(cutoff), 255, gocv.ThresholdBinaryInv)
	return output, nil
}

func (t *InverseThreshold) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"threshold": 127,
	}
}

func (t *InverseThreshold) GetName() string {
	return "Inverse Threshold"
}

func (t *InverseThreshold) GetDescription() string {
	return "Binary inverse threshold: darker than the cutoff becomes foreground"
}

func (t *InverseThreshold) Validate(params map[string]interface{}) error {
	return checkRange(params, "threshold", 0, 255)
}

func (t *InverseThreshold) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "threshold",
			Type:        "int",
			Min:         0,
			Max:         255,
			Default:     127,
			Description: "Intensity cutoff",
		},
	}
}

// BandPass marks pixels whose intensity lies within [low, high] inclusive as
// foreground. An inverted band (low > high) selects nothing.
type BandPass struct{}

func NewBandPass() *BandPass {
	return &BandPass{}
}

func (b *BandPass) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}
	if input.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("band pass expects a single-channel image, got %d channels", input.Channels())
	}

	low := intParam(params, "low", 127)
	high := intParam(params, "high", 127)

	output := gocv.NewMat()
	gocv.InRangeWithScalar(input,
		gocv.NewScalar(float64(low), 0, 0, 0),
		gocv.NewScalar(float64(high), 0, 0, 0),
		&output)
	return output, nil
}

func (b *BandPass) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"low":  127,
		"high": 127,
	}
}

func (b *BandPass) GetName() string {
	return "Band Pass"
}

func (b *BandPass) GetDescription() string {
	return "Keeps pixels inside an intensity band"
}

func (b *BandPass) Validate(params map[string]interface{}) error {
	if err := checkRange(params, "low", 0, 255); err != nil {
		return err
	}
	return checkRange(params, "high", 0, 255)
}

func (b *BandPass) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "low",
			Type:        "int",
			Min:         0,
			Max:         255,
			Default:     127,
			Description: "Lower intensity bound",
		},
		{
			Name:        "high",
			Type:        "int",
			Min:         0,
			Max:         255,
			Default:     127,
			Description: "Upper intensity bound",
		},
	}
}
