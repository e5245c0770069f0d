package session

import (
	"image"
	"sync"
	"time"

	"github.com/MrCodeEU/faceattend/pkg/camera"
	"github.com/MrCodeEU/faceattend/pkg/ledger"
	"github.com/MrCodeEU/faceattend/pkg/vision/fake"
)

type MockRecorder struct {
	RecordFunc func(id int, name string, ts time.Time) (ledger.Result, error)

	mu    sync.Mutex
	calls int
}

func (m *MockRecorder) Record(id int, name string, ts time.Time) (ledger.Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.RecordFunc != nil {
		return m.RecordFunc(id, name, ts)
	}
	return ledger.Recorded, nil
}

func (m *MockRecorder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// stepClock advances by step on every reading.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{t: time.Date(2026, 1, 10, 9, 15, 0, 0, time.Local), step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

type prediction struct {
	label    int
	distance float64
	err      error
}

// scriptedModel returns predictions in order, repeating the last one.
func scriptedModel(preds ...prediction) *fake.Model {
	var mu sync.Mutex
	i := 0
	return &fake.Model{PredictFunc: func(*image.Gray) (int, float64, error) {
		mu.Lock()
		defer mu.Unlock()
		p := preds[i]
		if i < len(preds)-1 {
			i++
		}
		return p.label, p.distance, p.err
	}}
}

func grayFrames(n int) []camera.Frame {
	out := make([]camera.Frame, n)
	for i := range out {
		img := image.NewGray(image.Rect(0, 0, 120, 120))
		for j := range img.Pix {
			img.Pix[j] = uint8(i * 20)
		}
		out[i] = camera.GrayFrame(img)
	}
	return out
}
