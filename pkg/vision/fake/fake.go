// Package fake provides scripted vision backends for deterministic tests of
// the dataset builder, the trainer and the recognition session.
package fake

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"os"
	"sync"

	"github.com/MrCodeEU/faceattend/pkg/camera"
	"github.com/MrCodeEU/faceattend/pkg/vision"
)

// Detector returns scripted regions. With no DetectFunc it reports one face
// covering the whole image.
type Detector struct {
	DetectFunc func(img *image.Gray, params vision.DetectParams) ([]image.Rectangle, error)

	mu     sync.Mutex
	calls  []vision.DetectParams
	closed bool
}

// Detect records the parameters and returns the scripted regions.
func (d *Detector) Detect(img *image.Gray, params vision.DetectParams) ([]image.Rectangle, error) {
	d.mu.Lock()
	d.calls = append(d.calls, params)
	d.mu.Unlock()

	if d.DetectFunc != nil {
		return d.DetectFunc(img, params)
	}
	return []image.Rectangle{img.Bounds()}, nil
}

// Close marks the detector closed.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Calls returns the parameters of every Detect call so far.
func (d *Detector) Calls() []vision.DetectParams {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]vision.DetectParams(nil), d.calls...)
}

// FacesByFirstPixel scripts a detector whose face count is the value of the
// image's top-left pixel. Each face covers the whole image.
func FacesByFirstPixel(img *image.Gray, _ vision.DetectParams) ([]image.Rectangle, error) {
	if len(img.Pix) == 0 {
		return nil, nil
	}
	n := int(img.Pix[0])
	regions := make([]image.Rectangle, n)
	for i := range regions {
		regions[i] = img.Bounds()
	}
	return regions, nil
}

// Matcher trains Models that remember their samples.
type Matcher struct {
	TrainErr error
	Trained  int // number of Train calls
}

// Train returns a Model over a copy of samples.
func (m *Matcher) Train(samples []vision.Labeled) (vision.Model, error) {
	if m.TrainErr != nil {
		return nil, m.TrainErr
	}
	m.Trained++
	return &Model{Samples: append([]vision.Labeled(nil), samples...)}, nil
}

// Load reads a model previously written by Model.Save.
func (m *Matcher) Load(path string) (vision.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var saved savedModel
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, err
	}

	model := &Model{}
	for _, s := range saved.Samples {
		img := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
		copy(img.Pix, s.Pix)
		model.Samples = append(model.Samples, vision.Labeled{Image: img, Label: s.Label})
	}
	return model, nil
}

// Model predicts by exact pixel match against its samples unless PredictFunc
// is set. Unmatched faces get label -1 at distance 100.
type Model struct {
	Samples     []vision.Labeled
	PredictFunc func(face *image.Gray) (int, float64, error)
}

// Predict classifies face.
func (m *Model) Predict(face *image.Gray) (int, float64, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(face)
	}
	if len(m.Samples) == 0 {
		return -1, 0, vision.ErrModelNotTrained
	}
	for _, s := range m.Samples {
		if bytes.Equal(s.Image.Pix, face.Pix) {
			return s.Label, 0, nil
		}
	}
	return -1, 100, nil
}

type savedSample struct {
	Label  int    `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pix    []byte `json:"pix"`
}

type savedModel struct {
	Samples []savedSample `json:"samples"`
}

// Save writes the samples as JSON.
func (m *Model) Save(path string) error {
	if m.PredictFunc != nil && len(m.Samples) == 0 {
		return errors.New("scripted model cannot be saved")
	}
	var saved savedModel
	for _, s := range m.Samples {
		b := s.Image.Bounds()
		saved.Samples = append(saved.Samples, savedSample{
			Label:  s.Label,
			Width:  b.Dx(),
			Height: b.Dy(),
			Pix:    s.Image.Pix,
		})
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Display records what would be shown and confirms early on a given frame.
type Display struct {
	ConfirmOn int // 1-based Show call that returns true; 0 never confirms

	mu     sync.Mutex
	shown  int
	marks  [][]vision.Annotation
	closed bool
}

// Show records the annotations.
func (d *Display) Show(_ camera.Frame, marks []vision.Annotation) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown++
	d.marks = append(d.marks, append([]vision.Annotation(nil), marks...))
	return d.ConfirmOn > 0 && d.shown == d.ConfirmOn
}

// Close marks the display torn down.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Shown returns the annotations of every rendered frame.
func (d *Display) Shown() [][]vision.Annotation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.marks
}

// Closed reports whether Close was called.
func (d *Display) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
