package opencv

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrCodeEU/faceattend/pkg/camera"
	"github.com/MrCodeEU/faceattend/pkg/logging"
	"github.com/MrCodeEU/faceattend/pkg/vision"
	"gocv.io/x/gocv"
)

// Webcam is a camera.Source backed by an OpenCV VideoCapture.
type Webcam struct {
	device string
	width  int
	height int

	mu    sync.Mutex
	vc    *gocv.VideoCapture
	frame gocv.Mat
}

// NewWebcam returns a source for device: a numeric index or a device path.
func NewWebcam(device string, width, height int) *Webcam {
	return &Webcam{device: device, width: width, height: height}
}

// deviceID turns "0" into an index and keeps paths as strings.
func deviceID(device string) interface{} {
	if n, err := strconv.Atoi(strings.TrimSpace(device)); err == nil {
		return n
	}
	return device
}

// Open acquires the capture device.
func (w *Webcam) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(deviceID(w.device))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", camera.ErrCameraNotFound, w.device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("%w: %s", camera.ErrCameraNotFound, w.device)
	}

	if w.width > 0 && w.height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(w.width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(w.height))
	}

	w.vc = vc
	w.frame = gocv.NewMat()
	logging.Debugf("Camera opened: %s", w.device)
	return nil
}

// Next reads one frame.
func (w *Webcam) Next() (camera.Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.vc == nil {
		return camera.Frame{}, camera.ErrCameraNotOpen
	}
	if ok := w.vc.Read(&w.frame); !ok || w.frame.Empty() {
		return camera.Frame{}, camera.ErrNoFrame
	}

	colorImg, err := w.frame.ToImage()
	if err != nil {
		return camera.Frame{}, fmt.Errorf("%w: %v", camera.ErrNoFrame, err)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(w.frame, &gray, gocv.ColorBGRToGray)
	grayImg, err := gray.ToImage()
	if err != nil {
		return camera.Frame{}, fmt.Errorf("%w: %v", camera.ErrNoFrame, err)
	}

	return camera.Frame{
		Image:     colorImg,
		Gray:      vision.ToGray(grayImg),
		Timestamp: time.Now(),
	}, nil
}

// Close releases the device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.vc == nil {
		return nil
	}
	w.frame.Close()
	err := w.vc.Close()
	w.vc = nil
	logging.Debugf("Camera closed: %s", w.device)
	return err
}

const (
	keyEnter    = 13
	keyNewline  = 10
	keyEscape   = 27
	fontScale   = 0.8
	strokeWidth = 2
)

var (
	acceptedColor = color.RGBA{G: 255}
	rejectedColor = color.RGBA{R: 255}
)

// Window is a vision.Display drawing annotations in an OpenCV window.
// Enter confirms early; Escape or q stops.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a preview window titled title.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// confirmKey reports whether a WaitKey code ends the capture loop.
func confirmKey(key int) bool {
	switch key & 0xFF {
	case keyEnter, keyNewline, keyEscape, 'q':
		return true
	}
	return false
}

func annotationColor(a vision.Annotation) color.RGBA {
	if a.Accepted {
		return acceptedColor
	}
	return rejectedColor
}

// Show draws marks over frame and polls the keyboard.
func (w *Window) Show(frame camera.Frame, marks []vision.Annotation) bool {
	mat, err := gocv.ImageToMatRGB(frame.Image)
	if err != nil {
		logging.Debugf("Failed to render frame: %v", err)
		return false
	}
	defer mat.Close()

	for _, m := range marks {
		c := annotationColor(m)
		gocv.Rectangle(&mat, m.Region, c, strokeWidth)
		gocv.PutText(&mat, m.Label, image.Pt(m.Region.Min.X, m.Region.Min.Y-10), gocv.FontHersheySimplex, fontScale, c, strokeWidth)
	}

	w.win.IMShow(mat)
	key := w.win.WaitKey(1)
	return key >= 0 && confirmKey(key)
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
