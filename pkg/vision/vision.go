// Package vision defines the face detector and face matcher capabilities the
// attendance core depends on, plus the region normalization shared by the
// dataset builder and the live recognition session.
//
// Concrete backends live in sub-packages: opencv (Haar cascade + LBPH via
// gocv), dlib (go-face detector) and fake (scripted, for tests).
package vision

import (
	"errors"
	"image"

	"github.com/MrCodeEU/faceattend/pkg/camera"
	"golang.org/x/image/draw"
)

// SampleSize is the edge length every face region is normalized to.
const SampleSize = 200

// DetectParams tunes a cascade-style face detector.
type DetectParams struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
}

var (
	// LiveParams favor latency inside the capture loop.
	LiveParams = DetectParams{ScaleFactor: 1.2, MinNeighbors: 5, MinSize: image.Pt(80, 80)}

	// BatchParams are used when building the training corpus offline.
	BatchParams = DetectParams{ScaleFactor: 1.2, MinNeighbors: 5, MinSize: image.Pt(50, 50)}

	// EnrollParams are used while capturing photo samples.
	EnrollParams = DetectParams{ScaleFactor: 1.2, MinNeighbors: 5, MinSize: image.Pt(30, 30)}
)

// LBPHParams are the structural parameters of the face matcher. They are
// chosen once and held constant across retrains.
type LBPHParams struct {
	Radius    int
	Neighbors int
	GridX     int
	GridY     int
}

// DefaultLBPH is the matcher configuration used for every model.
var DefaultLBPH = LBPHParams{Radius: 1, Neighbors: 8, GridX: 8, GridY: 8}

// ErrModelNotTrained is returned when predicting with an empty model.
var ErrModelNotTrained = errors.New("model not trained")

// Detector finds face regions in a grayscale image.
type Detector interface {
	Detect(img *image.Gray, params DetectParams) ([]image.Rectangle, error)
	Close() error
}

// Labeled is one training example for the matcher.
type Labeled struct {
	Image *image.Gray
	Label int
}

// Matcher trains and loads face matching models.
type Matcher interface {
	Train(samples []Labeled) (Model, error)
	Load(path string) (Model, error)
}

// Model classifies a normalized face. Distance is lower-is-better.
type Model interface {
	Predict(face *image.Gray) (label int, distance float64, err error)
	Save(path string) error
}

// Annotation is one labeled region drawn on a preview frame.
type Annotation struct {
	Region   image.Rectangle
	Label    string
	Accepted bool
}

// Display renders preview frames. Show reports whether the operator asked to
// confirm early.
type Display interface {
	Show(frame camera.Frame, marks []Annotation) (confirm bool)
	Close() error
}

// Normalize crops region out of img and scales it to SampleSize x SampleSize.
// The region is clipped to the image bounds first.
func Normalize(img *image.Gray, region image.Rectangle) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, SampleSize, SampleSize))
	src := region.Intersect(img.Bounds())
	if src.Empty() {
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst
}

// ToGray converts any decoded image to 8-bit grayscale.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}
