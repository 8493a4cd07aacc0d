package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ErrNotAcquired is returned by Capture when no source is open.
var ErrNotAcquired = errors.New("frame source not acquired")

// Source yields frames, typically a camera.
type Source interface {
	Read(dst *gocv.Mat) error
	Close() error
}

// Opener opens a Source. Each call must return an independent handle.
type Opener func() (Source, error)

// Session owns the frame source of one screen exclusively, along with the
// current frame and the mirror setting. Acquire and Release bracket the time a
// screen is visible.
type Session struct {
	mu     sync.Mutex
	name   string
	open   Opener
	source Source
	mirror bool
	frames *FrameStore
	logger *logrus.Logger
}

func NewSession(name string, open Opener, mirror bool, logger *logrus.Logger) *Session {
	return &Session{
		name:   name,
		open:   open,
		mirror: mirror,
		frames: NewFrameStore(),
		logger: logger,
	}
}

// Acquire opens the source if it is not already open.
func (s *Session) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source != nil {
		return nil
	}

	source, err := s.open()
	if err != nil {
		s.logger.WithFields(logrus.Fields{"session": s.name, "error": err}).Warn("Camera unavailable")
		return fmt.Errorf("%s: %w", s.name, err)
	}
	s.source = source
	s.logger.WithField("session", s.name).Info("Camera acquired")
	return nil
}

// Release closes the source. Calling it without a source is a no-op.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return
	}
	if err := s.source.Close(); err != nil {
		s.logger.WithFields(logrus.Fields{"session": s.name, "error": err}).Warn("Camera close failed")
	}
	s.source = nil
	s.logger.WithField("session", s.name).Info("Camera released")
}

// Active reports whether the source is open.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source != nil
}

func (s *Session) SetMirror(mirror bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = mirror
}

func (s *Session) Mirror() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirror
}

// Capture reads the next frame, mirrors it if configured, stores it and returns
// a copy that the caller must close.
func (s *Session) Capture() (gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return gocv.NewMat(), ErrNotAcquired
	}

	raw := gocv.NewMat()
	defer raw.Close()
	if err := s.source.Read(&raw); err != nil {
		return gocv.NewMat(), err
	}

	frame := raw
	if s.mirror {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(raw, &flipped, 1)
		frame = flipped
	}

	if err := s.frames.Set(frame, OriginCamera, ""); err != nil {
		return gocv.NewMat(), err
	}
	return frame.Clone(), nil
}

// LoadStill releases the source and stores a still image instead. Stills are
// never mirrored.
func (s *Session) LoadStill(mat gocv.Mat, path string) error {
	s.Release()
	return s.frames.Set(mat, OriginFile, path)
}

// Frames exposes the current frame store.
func (s *Session) Frames() *FrameStore {
	return s.frames
}

// Close releases the source and the stored frame.
func (s *Session) Close() {
	s.Release()
	s.frames.Close()
}
