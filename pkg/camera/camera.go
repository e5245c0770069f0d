// Package camera defines the frame source used by recognition sessions and
// photo enrollment. Sources are scoped resources: Open acquires the device,
// Close releases it, and Next yields frames in between.
package camera

import (
	"errors"
	"image"
	"time"
)

// Frame represents a single captured frame.
type Frame struct {
	Image     image.Image // color frame, for display
	Gray      *image.Gray // grayscale frame, for detection
	Timestamp time.Time
}

// Source is a frame source independent of any display sink.
type Source interface {
	Open() error
	Next() (Frame, error)
	Close() error
}

// ErrCameraNotFound is returned when the camera device cannot be opened.
var ErrCameraNotFound = errors.New("camera device not found")

// ErrCameraNotOpen is returned when reading from a closed source.
var ErrCameraNotOpen = errors.New("camera not open")

// ErrNoFrame is returned when no frame could be captured.
var ErrNoFrame = errors.New("failed to capture frame")

// GrayFrame wraps a grayscale image as a frame.
func GrayFrame(gray *image.Gray) Frame {
	return Frame{Image: gray, Gray: gray, Timestamp: time.Now()}
}
