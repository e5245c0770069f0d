// Package opencv implements the vision capabilities on top of gocv: a Haar
// cascade face detector, an LBPH face matcher, a webcam frame source and a
// preview window.
package opencv

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/MrCodeEU/faceattend/pkg/logging"
	"github.com/MrCodeEU/faceattend/pkg/vision"
	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

// ErrCascadeNotLoaded is returned when the cascade file cannot be loaded.
var ErrCascadeNotLoaded = errors.New("failed to load face cascade classifier")

// HaarDetector finds faces with an OpenCV Haar cascade.
type HaarDetector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

// NewHaarDetector loads the cascade XML at path.
func NewHaarDetector(path string) (*HaarDetector, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCascadeNotLoaded, path, err)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrCascadeNotLoaded, path)
	}

	logging.Debugf("Loaded face cascade from %s", path)
	return &HaarDetector{classifier: classifier}, nil
}

// Detect runs the cascade over img. Regions are reported in img coordinates.
func (d *HaarDetector) Detect(img *image.Gray, params vision.DetectParams) ([]image.Rectangle, error) {
	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(
		mat,
		params.ScaleFactor,
		params.MinNeighbors,
		0,
		params.MinSize,
		image.Point{},
	)
	d.mu.Unlock()

	origin := img.Bounds().Min
	for i := range rects {
		rects[i] = rects[i].Add(origin)
	}
	return rects, nil
}

// Close releases the cascade.
func (d *HaarDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}

// LBPHMatcher trains Local Binary Pattern Histogram models.
type LBPHMatcher struct {
	params vision.LBPHParams
}

// NewLBPHMatcher returns a matcher with the fixed structural parameters.
// OpenCV's defaults already use the 8x8 grid.
func NewLBPHMatcher() *LBPHMatcher {
	return &LBPHMatcher{params: vision.DefaultLBPH}
}

func (m *LBPHMatcher) recognizer() *contrib.LBPHFaceRecognizer {
	rec := contrib.NewLBPHFaceRecognizer()
	rec.SetRadius(m.params.Radius)
	rec.SetNeighbors(m.params.Neighbors)
	return rec
}

// Train fits a model to samples.
func (m *LBPHMatcher) Train(samples []vision.Labeled) (vision.Model, error) {
	if len(samples) == 0 {
		return nil, vision.ErrModelNotTrained
	}

	mats := make([]gocv.Mat, 0, len(samples))
	labels := make([]int, 0, len(samples))
	defer func() {
		for _, mat := range mats {
			mat.Close()
		}
	}()

	for _, s := range samples {
		mat, err := gocv.ImageGrayToMatGray(s.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to convert sample: %w", err)
		}
		mats = append(mats, mat)
		labels = append(labels, s.Label)
	}

	rec := m.recognizer()
	rec.Train(mats, labels)
	return &LBPHModel{rec: rec, trained: true}, nil
}

// Load reads a model saved by LBPHModel.Save.
func (m *LBPHMatcher) Load(path string) (vision.Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	rec := m.recognizer()
	rec.LoadFile(path)
	return &LBPHModel{rec: rec, trained: true}, nil
}

// LBPHModel is a trained LBPH recognizer.
type LBPHModel struct {
	mu      sync.Mutex
	rec     *contrib.LBPHFaceRecognizer
	trained bool
}

// Predict classifies a normalized face. Distance is the histogram chi-square
// distance; lower is better.
func (m *LBPHModel) Predict(face *image.Gray) (int, float64, error) {
	if !m.trained {
		return -1, 0, vision.ErrModelNotTrained
	}

	mat, err := gocv.ImageGrayToMatGray(face)
	if err != nil {
		return -1, 0, fmt.Errorf("failed to convert face: %w", err)
	}
	defer mat.Close()

	m.mu.Lock()
	resp := m.rec.PredictExtendedResponse(mat)
	m.mu.Unlock()
	return int(resp.Label), float64(resp.Confidence), nil
}

// Save writes the model. The format follows the extension (.yml or .xml).
func (m *LBPHModel) Save(path string) error {
	if !m.trained {
		return vision.ErrModelNotTrained
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.SaveFile(path)
	return nil
}
