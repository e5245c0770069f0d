package main

import (
	"fmt"

	"github.com/MrCodeEU/faceattend/pkg/config"
	"github.com/MrCodeEU/faceattend/pkg/ledger"
	"github.com/MrCodeEU/faceattend/pkg/roster"
	"github.com/MrCodeEU/faceattend/pkg/storage"
	"github.com/MrCodeEU/faceattend/pkg/table"
	"github.com/MrCodeEU/faceattend/pkg/training"
	"github.com/MrCodeEU/faceattend/pkg/vision"
	"github.com/MrCodeEU/faceattend/pkg/vision/dlib"
	"github.com/MrCodeEU/faceattend/pkg/vision/opencv"
)

const windowTitle = "Face Recognition"

// newDetector builds the configured detector backend.
func newDetector(c *config.Config) (vision.Detector, error) {
	switch c.Detector.Backend {
	case config.BackendDlib:
		d := dlib.NewDetector()
		if err := d.LoadModels(c.Detector.DlibModelDir); err != nil {
			return nil, fmt.Errorf("%w (run 'faceattend download dlib')", err)
		}
		return d, nil
	default:
		d, err := opencv.NewHaarDetector(c.Detector.CascadePath)
		if err != nil {
			return nil, fmt.Errorf("%w (run 'faceattend download haar')", err)
		}
		return d, nil
	}
}

func newCamera(c *config.Config) *opencv.Webcam {
	return opencv.NewWebcam(c.Camera.Device, c.Camera.Width, c.Camera.Height)
}

func newWindow() vision.Display {
	return opencv.NewWindow(windowTitle)
}

func newTrainer(c *config.Config) (*training.Trainer, error) {
	store, err := storage.NewArtifactStore(c.Storage.EncryptModel)
	if err != nil {
		return nil, err
	}
	return training.NewTrainer(opencv.NewLBPHMatcher(), store), nil
}

func rosterStore(c *config.Config) *table.XLSX {
	return table.NewXLSX(c.Storage.RosterPath, table.DefaultSheet)
}

func newRepository(c *config.Config) *roster.Repository {
	return roster.NewRepository(rosterStore(c))
}

func newLedger(c *config.Config) *ledger.Ledger {
	return ledger.New(table.NewXLSX(c.Storage.AttendancePath, table.DefaultSheet))
}
