package dataset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MrCodeEU/faceattend/pkg/camera"
	"github.com/MrCodeEU/faceattend/pkg/logging"
	"github.com/MrCodeEU/faceattend/pkg/vision"
)

// DefaultSamples is how many photo samples enrollment captures.
const DefaultSamples = 50

const jpegQuality = 95

// Enroller captures normalized face crops from a frame source into an
// identity's photo folder.
type Enroller struct {
	detector vision.Detector
	params   vision.DetectParams
	display  vision.Display
}

// NewEnroller returns an enroller using vision.EnrollParams.
func NewEnroller(detector vision.Detector) *Enroller {
	return &Enroller{detector: detector, params: vision.EnrollParams}
}

// WithDisplay previews each frame; a confirm from the display stops capture.
func (e *Enroller) WithDisplay(d vision.Display) *Enroller {
	e.display = d
	return e
}

// Capture writes up to count samples as dir/1.jpg, dir/2.jpg, ... and returns
// how many were written. It stops early when the source runs out of frames,
// the display asks to stop or ctx is done. The source is always released.
func (e *Enroller) Capture(ctx context.Context, src camera.Source, dir string, count int) (int, error) {
	if count <= 0 {
		count = DefaultSamples
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create photo folder: %w", err)
	}

	if e.display != nil {
		defer e.display.Close()
	}
	if err := src.Open(); err != nil {
		return 0, fmt.Errorf("failed to open camera: %w", err)
	}
	defer src.Close()

	log := logging.Component("enroll").WithField("folder", dir)
	written := 0
	for written < count {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		frame, err := src.Next()
		if err != nil {
			if !errors.Is(err, camera.ErrNoFrame) {
				log.WithError(err).Warn("Frame read failed, stopping capture")
			}
			break
		}

		gray := frame.Gray
		if gray == nil {
			gray = vision.ToGray(frame.Image)
		}
		regions, err := e.detector.Detect(gray, e.params)
		if err != nil {
			return written, fmt.Errorf("face detection failed: %w", err)
		}

		var marks []vision.Annotation
		for _, r := range regions {
			if written >= count {
				break
			}
			written++
			path := filepath.Join(dir, strconv.Itoa(written)+".jpg")
			if err := writeJPEG(path, vision.Normalize(gray, r)); err != nil {
				return written - 1, err
			}
			marks = append(marks, vision.Annotation{Region: r, Label: strconv.Itoa(written), Accepted: true})
		}

		if e.display != nil && e.display.Show(frame, marks) {
			break
		}
	}

	log.Infof("Captured %d face sample(s)", written)
	return written, nil
}

// ExistingSamples counts the sample files in dir. A missing folder has none.
func ExistingSamples(dir string) (int, error) {
	paths, err := listImages(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read photo folder: %w", err)
	}
	return len(paths), nil
}

// ClearSamples removes the sample files in dir so a new capture does not mix
// with an older one. Subdirectories are left alone.
func ClearSamples(dir string) error {
	paths, err := listImages(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read photo folder: %w", err)
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove old sample: %w", err)
		}
	}
	logging.Infof("Removed %d old sample(s) from %s", len(paths), dir)
	return nil
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create sample: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode sample: %w", err)
	}
	return f.Close()
}
