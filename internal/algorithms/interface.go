// Named image processing steps used by the blob pipeline
package algorithms

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"
)

// Algorithm is a single processing step. Apply never modifies input; the caller
// owns and must close the returned Mat.
type Algorithm interface {
	Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error)
	GetDefaultParams() map[string]interface{}
	GetName() string
	GetDescription() string
	Validate(params map[string]interface{}) error
	GetParameterInfo() []ParameterInfo
}

// ParameterInfo describes a parameter for UI generation
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "int", "float"
	Min         interface{} `json:"min,omitempty"`
	Max         interface{} `json:"max,omitempty"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
}

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

func Apply(name string, input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return gocv.NewMat(), fmt.Errorf("algorithm not found: %s", name)
	}
	if err := algorithm.Validate(params); err != nil {
		return gocv.NewMat(), fmt.Errorf("%s: %w", name, err)
	}

	return algorithm.Apply(input, params)
}

func IsValidAlgorithm(name string) bool {
	_, exists := algorithms[name]
	return exists
}

// Names returns the registered step names in sorted order.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func GetAlgorithmsByCategory() map[string][]string {
	return map[string][]string{
		"Preprocessing": {
			"grayscale",
			"gaussian",
		},
		"Binarization": {
			"threshold_inverse",
			"band_pass",
		},
	}
}

func init() {
	Register("grayscale", NewGrayscale())
	Register("gaussian", NewGaussianFilter())
	Register("threshold_inverse", NewInverseThreshold())
	Register("band_pass", NewBandPass())
}

// intParam reads an integer parameter. Values may arrive as int or float64
// (the latter when decoded from JSON or a slider).
func intParam(params map[string]interface{}, key string, fallback int) int {
	val, ok := params[key]
	if !ok {
		return fallback
	}
	switch v := val.(type) {
	case int:
		return v
	case float64:
		return int(v)
	case float32:
		return int(v)
	default:
		return fallback
	}
}

func checkRange(params map[string]interface{}, key string, min, max int) error {
	if _, ok := params[key]; !ok {
		return nil
	}
	v := intParam(params, key, min-1)
	if v < min || v > max {
		return fmt.Errorf("%s must be between %d and %d", key, min, max)
	}
	return nil
}
