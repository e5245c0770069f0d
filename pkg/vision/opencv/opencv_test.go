package opencv

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/MrCodeEU/faceattend/pkg/camera"
	"github.com/MrCodeEU/faceattend/pkg/vision"
)

func TestDeviceID(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"0", 0},
		{" 2 ", 2},
		{"/dev/video0", "/dev/video0"},
	}

	for _, tt := range tests {
		if got := deviceID(tt.in); got != tt.want {
			t.Errorf("deviceID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConfirmKey(t *testing.T) {
	tests := []struct {
		key  int
		want bool
	}{
		{13, true},
		{10, true},
		{27, true},
		{'q', true},
		{'a', false},
		{0x100 | 13, true},
	}

	for _, tt := range tests {
		if got := confirmKey(tt.key); got != tt.want {
			t.Errorf("confirmKey(%d) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestAnnotationColor(t *testing.T) {
	if annotationColor(vision.Annotation{Accepted: true}) != acceptedColor {
		t.Error("accepted faces should be green")
	}
	if annotationColor(vision.Annotation{}) != rejectedColor {
		t.Error("rejected faces should be red")
	}
}

func TestNewHaarDetector_Missing(t *testing.T) {
	_, err := NewHaarDetector(filepath.Join(t.TempDir(), "missing.xml"))
	if !errors.Is(err, ErrCascadeNotLoaded) {
		t.Errorf("expected ErrCascadeNotLoaded, got %v", err)
	}
}

func TestWebcam_NotOpen(t *testing.T) {
	w := NewWebcam("0", 640, 480)
	if _, err := w.Next(); !errors.Is(err, camera.ErrCameraNotOpen) {
		t.Errorf("expected ErrCameraNotOpen, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("closing an unopened webcam should be a no-op, got %v", err)
	}
}

func face(v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, vision.SampleSize, vision.SampleSize))
	for y := 0; y < vision.SampleSize; y++ {
		for x := 0; x < vision.SampleSize; x++ {
			img.Pix[y*img.Stride+x] = uint8((x*int(v) + y*3) % 256)
		}
	}
	return img
}

func TestLBPH_TrainSaveLoad(t *testing.T) {
	m := NewLBPHMatcher()

	model, err := m.Train([]vision.Labeled{
		{Image: face(1), Label: 1},
		{Image: face(7), Label: 2},
	})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	label, dist, err := model.Predict(face(7))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if label != 2 || dist > 1e-6 {
		t.Errorf("expected exact match for label 2, got (%d, %v)", label, dist)
	}

	path := filepath.Join(t.TempDir(), "trainer.yml")
	if err := model.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := m.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if label, _, _ := loaded.Predict(face(1)); label != 1 {
		t.Errorf("expected label 1 after reload, got %d", label)
	}
}

func TestLBPH_Empty(t *testing.T) {
	if _, err := NewLBPHMatcher().Train(nil); !errors.Is(err, vision.ErrModelNotTrained) {
		t.Errorf("expected ErrModelNotTrained, got %v", err)
	}
}
