// Package training fits the face matcher to a sample corpus, persists the
// resulting model artifact and loads it back for recognition.
package training

import (
	"errors"
	"fmt"
	"os"

	"github.com/MrCodeEU/faceattend/pkg/dataset"
	"github.com/MrCodeEU/faceattend/pkg/logging"
	"github.com/MrCodeEU/faceattend/pkg/metrics"
	"github.com/MrCodeEU/faceattend/pkg/storage"
	"github.com/MrCodeEU/faceattend/pkg/vision"
)

// ErrEmptyCorpus is returned when training on no samples.
var ErrEmptyCorpus = errors.New("no face samples to train on")

// ErrModelNotFound is returned when the model artifact does not exist.
var ErrModelNotFound = errors.New("trained model not found")

// Trainer trains, persists and loads models for one matcher backend.
type Trainer struct {
	matcher vision.Matcher
	store   *storage.ArtifactStore
}

// NewTrainer returns a trainer. A nil store writes plain artifacts.
func NewTrainer(matcher vision.Matcher, store *storage.ArtifactStore) *Trainer {
	if store == nil {
		store = &storage.ArtifactStore{}
	}
	return &Trainer{matcher: matcher, store: store}
}

// Train fits a new model. The model is not persisted.
func (t *Trainer) Train(samples []dataset.Sample) (vision.Model, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyCorpus
	}

	labeled := make([]vision.Labeled, len(samples))
	identities := make(map[int]struct{})
	for i, s := range samples {
		labeled[i] = vision.Labeled{Image: s.Image, Label: s.IdentityID}
		identities[s.IdentityID] = struct{}{}
	}

	logging.Infof("Training on %d face samples from %d identities", len(samples), len(identities))
	model, err := t.matcher.Train(labeled)
	if err != nil {
		return nil, fmt.Errorf("failed to train model: %w", err)
	}
	return model, nil
}

// Persist writes model to path, replacing any previous artifact atomically.
func (t *Trainer) Persist(model vision.Model, path string) error {
	if err := t.store.Write(path, model.Save); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	logging.Infof("Model saved to %s", path)
	return nil
}

// TrainAndPersist trains on samples and writes the model to path. Nothing is
// written when training fails, so an existing artifact stays in place.
func (t *Trainer) TrainAndPersist(samples []dataset.Sample, path string) (vision.Model, error) {
	model, err := t.Train(samples)
	if err != nil {
		return nil, err
	}
	if err := t.Persist(model, path); err != nil {
		return nil, err
	}
	return model, nil
}

// Load reads the model at path.
func (t *Trainer) Load(path string) (vision.Model, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
	}

	var model vision.Model
	err := t.store.Read(path, func(plain string) error {
		var err error
		model, err = t.matcher.Load(plain)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	return model, nil
}

// Evaluate reclassifies every sample and returns correct/total. The samples
// are usually the training corpus itself, so this is a self-consistency
// check and says nothing about accuracy on unseen faces.
func Evaluate(model vision.Model, samples []dataset.Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmptyCorpus
	}

	correct := 0
	for _, s := range samples {
		label, _, err := model.Predict(s.Image)
		if err != nil {
			return 0, fmt.Errorf("failed to classify %s: %w", s.SourcePath, err)
		}
		if label == s.IdentityID {
			correct++
		}
	}

	ratio := float64(correct) / float64(len(samples))
	metrics.TrainingAccuracy(ratio)
	logging.Infof("Self-consistency: %d/%d samples (%.2f%%)", correct, len(samples), ratio*100)
	return ratio, nil
}
