// Package dlib provides a face detector backed by dlib via go-face. It is an
// alternative to the Haar cascade when the dlib models are installed; the
// matcher is still LBPH.
package dlib

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"github.com/Kagami/go-face"
	"github.com/MrCodeEU/faceattend/pkg/logging"
	"github.com/MrCodeEU/faceattend/pkg/vision"
)

// ErrModelNotLoaded is returned when models are not loaded.
var ErrModelNotLoaded = errors.New("dlib models not loaded")

// FaceEngine is the part of *face.Recognizer the detector uses.
type FaceEngine interface {
	Recognize(imgData []byte) ([]face.Face, error)
	Close()
}

// Detector implements vision.Detector using go-face.
type Detector struct {
	mu       sync.RWMutex
	engine   FaceEngine
	modelDir string
	loaded   bool
	factory  func(dir string) (FaceEngine, error)
}

// NewDetector creates a detector. Call LoadModels before Detect.
func NewDetector() *Detector {
	return &Detector{
		factory: func(dir string) (FaceEngine, error) {
			return face.NewRecognizer(dir)
		},
	}
}

// LoadModels loads the dlib models from dir. The directory should contain
// shape_predictor_5_face_landmarks.dat, dlib_face_recognition_resnet_model_v1.dat
// and mmod_human_face_detector.dat.
func (d *Detector) LoadModels(dir string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded {
		return nil
	}

	logging.Infof("Loading dlib models from: %s", dir)
	engine, err := d.factory(dir)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	d.engine = engine
	d.modelDir = dir
	d.loaded = true
	return nil
}

// IsLoaded returns true if models are loaded.
func (d *Detector) IsLoaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// Close releases the engine.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.engine != nil {
		d.engine.Close()
		d.engine = nil
	}
	d.loaded = false
	return nil
}

// Detect finds faces in img. dlib's HOG detector has no scale or neighbor
// knobs, so only params.MinSize applies.
func (d *Detector) Detect(img *image.Gray, params vision.DetectParams) ([]image.Rectangle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.loaded {
		return nil, ErrModelNotLoaded
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	faces, err := d.engine.Recognize(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	origin := img.Bounds().Min
	var regions []image.Rectangle
	for _, f := range faces {
		r := f.Rectangle
		if r.Dx() < params.MinSize.X || r.Dy() < params.MinSize.Y {
			continue
		}
		regions = append(regions, r.Add(origin))
	}

	logging.Debugf("Detected %d face(s), %d above minimum size", len(faces), len(regions))
	return regions, nil
}
