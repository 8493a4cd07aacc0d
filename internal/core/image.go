// Current frame storage shared between the poll loop and UI handlers
package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// FrameOrigin says where the stored frame came from.
type FrameOrigin int

const (
	OriginNone FrameOrigin = iota
	OriginCamera
	OriginFile
)

func (o FrameOrigin) String() string {
	switch o {
	case OriginCamera:
		return "camera"
	case OriginFile:
		return "file"
	default:
		return "none"
	}
}

// FrameMetadata contains frame information
type FrameMetadata struct {
	Width    int
	Height   int
	Channels int
	Origin   FrameOrigin
	Format   string
	Path     string
	Captured time.Time
}

// FrameStore holds the most recent source frame. Every setter stores its own
// copy and every getter returns a copy, so callers keep ownership of the Mats
// they pass and receive.
type FrameStore struct {
	mu       sync.RWMutex
	frame    gocv.Mat
	hasFrame bool
	metadata FrameMetadata
}

func NewFrameStore() *FrameStore {
	return &FrameStore{
		frame: gocv.NewMat(),
	}
}

// Set replaces the stored frame with a copy of mat.
func (fs *FrameStore) Set(mat gocv.Mat, origin FrameOrigin, path string) error {
	if err := ValidateImage(mat); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.frame.Close()
	fs.frame = mat.Clone()
	fs.hasFrame = true
	fs.metadata = FrameMetadata{
		Width:    mat.Cols(),
		Height:   mat.Rows(),
		Channels: mat.Channels(),
		Origin:   origin,
		Format:   getFormatFromPath(path),
		Path:     path,
		Captured: time.Now(),
	}
	return nil
}

// Snapshot returns a copy of the stored frame, or an empty Mat when there is
// none. The caller must close it.
func (fs *FrameStore) Snapshot() gocv.Mat {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.hasFrame {
		return gocv.NewMat()
	}
	return fs.frame.Clone()
}

func (fs *FrameStore) HasFrame() bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.hasFrame
}

func (fs *FrameStore) Metadata() FrameMetadata {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.metadata
}

// Clear drops the stored frame.
func (fs *FrameStore) Clear() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.frame.Close()
	fs.frame = gocv.NewMat()
	fs.hasFrame = false
	fs.metadata = FrameMetadata{}
}

// Close releases all resources
func (fs *FrameStore) Close() {
	fs.Clear()
}

func getFormatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "unknown"
	}
	return ext
}

// ValidateImage validates an OpenCV Mat for basic requirements
func ValidateImage(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("image is empty")
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", mat.Cols(), mat.Rows())
	}

	if mat.Channels() != 3 {
		return fmt.Errorf("expected a 3-channel BGR frame, got %d channels", mat.Channels())
	}

	// Check for reasonable size limits (prevent memory issues)
	const maxDimension = 16384
	if mat.Cols() > maxDimension || mat.Rows() > maxDimension {
		return fmt.Errorf("image too large: %dx%d (max: %d)", mat.Cols(), mat.Rows(), maxDimension)
	}

	return nil
}
