// Camera access by device index probing
package camera

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"vision-inventory/internal/core"
)

var (
	// ErrNoCamera is returned when none of the probed devices opens.
	ErrNoCamera = errors.New("no camera available")
	// ErrReadFailed is returned when the device yields no frame.
	ErrReadFailed = errors.New("camera read failed")
)

// Camera is an open capture device.
type Camera struct {
	capture *gocv.VideoCapture
	index   int
}

// Open tries each device index in order and returns the first that opens.
func Open(probe []int, logger *logrus.Logger) (*Camera, error) {
	for _, index := range probe {
		capture, err := gocv.VideoCaptureDevice(index)
		if err != nil {
			logger.WithFields(logrus.Fields{"index": index, "error": err}).Debug("Camera probe failed")
			continue
		}
		if !capture.IsOpened() {
			capture.Close()
			logger.WithField("index", index).Debug("Camera probe failed")
			continue
		}

		logger.WithField("index", index).Info("Camera opened")
		return &Camera{capture: capture, index: index}, nil
	}
	return nil, fmt.Errorf("%w (tried %v)", ErrNoCamera, probe)
}

// Opener adapts Open for sessions.
func Opener(probe []int, logger *logrus.Logger) core.Opener {
	return func() (core.Source, error) {
		cam, err := Open(probe, logger)
		if err != nil {
			return nil, err
		}
		return cam, nil
	}
}

// Index is the device index that opened.
func (c *Camera) Index() int {
	return c.index
}

func (c *Camera) Read(dst *gocv.Mat) error {
	if ok := c.capture.Read(dst); !ok || dst.Empty() {
		return fmt.Errorf("%w: device %d", ErrReadFailed, c.index)
	}
	return nil
}

func (c *Camera) Close() error {
	return c.capture.Close()
}
