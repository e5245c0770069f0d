package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/MrCodeEU/faceattend/pkg/dataset"
	"github.com/MrCodeEU/faceattend/pkg/logging"
	"github.com/MrCodeEU/faceattend/pkg/roster"
	"github.com/MrCodeEU/faceattend/pkg/training"
	"github.com/schollz/progressbar/v3"
)

func cmdEnroll(args []string) error {
	fs := flag.NewFlagSet("enroll", flag.ContinueOnError)
	samples := fs.Int("samples", cfg.Enroll.Samples, "Number of face samples to capture")
	replace := fs.Bool("replace", false, "Replace existing samples without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("student id required\nUsage: %s", commands["enroll"].Usage)
	}
	id, ok := roster.ParseID(fs.Arg(0))
	if !ok {
		return fmt.Errorf("%w: %s", roster.ErrInvalidID, fs.Arg(0))
	}

	repo := newRepository(cfg)
	student, err := repo.Get(id)
	if err != nil {
		return err
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	folder := cfg.PhotoFolder(id)
	existing, err := dataset.ExistingSamples(folder)
	if err != nil {
		return err
	}
	if existing > 0 {
		if !*replace {
			yes, err := prompt(os.Stdin, os.Stdout, fmt.Sprintf("%s already has %d sample(s). Replace them?", student.Name, existing))
			if err != nil {
				return fmt.Errorf("failed to read answer: %w", err)
			}
			if !yes {
				fmt.Println("Enrollment cancelled. Existing samples were kept.")
				return nil
			}
		}
		if err := dataset.ClearSamples(folder); err != nil {
			return err
		}
	}

	detector, err := newDetector(cfg)
	if err != nil {
		return err
	}
	defer detector.Close()

	enroller := dataset.NewEnroller(detector)
	if cfg.Recognition.ShowWindow {
		enroller.WithDisplay(newWindow())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Capturing %d samples for %s (%d). Face the camera...\n", *samples, student.Name, id)
	n, err := enroller.Capture(ctx, newCamera(cfg), folder, *samples)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Printf("Saved %d sample(s) to %s\n", n, folder)

	if n == 0 {
		return nil
	}
	if err := repo.MarkPhotoSample(id); err != nil {
		return fmt.Errorf("failed to update roster: %w", err)
	}
	fmt.Println("Run 'faceattend train' to update the model.")
	return nil
}

func cmdTrain(args []string) error {
	names, err := roster.NewDirectory(rosterStore(cfg)).Load()
	if err != nil {
		return err
	}
	ids := roster.IDs(names)
	logging.Infof("Training on %d student(s)", len(ids))

	detector, err := newDetector(cfg)
	if err != nil {
		return err
	}
	defer detector.Close()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Loading samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWriter(os.Stderr),
	)
	corpus := dataset.NewBuilder(detector, cfg.Detector.Batch.Vision()).
		WithProgress(bar).
		Build(ids, cfg.Storage.PhotoDir)
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	for _, w := range corpus.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	counts := corpus.CountByIdentity()
	for _, id := range ids {
		fmt.Printf("  %-6s %-24s %d sample(s)\n", strconv.Itoa(id), names[id], counts[id])
	}

	trainer, err := newTrainer(cfg)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	model, err := trainer.TrainAndPersist(corpus.Samples, cfg.Recognition.ModelPath)
	if err != nil {
		if errors.Is(err, training.ErrEmptyCorpus) {
			return fmt.Errorf("%w: enroll students with 'faceattend enroll <id>' first", err)
		}
		return err
	}

	accuracy, err := training.Evaluate(model, corpus.Samples)
	if err != nil {
		return err
	}
	fmt.Printf("Trained on %d sample(s), saved to %s\n", len(corpus.Samples), cfg.Recognition.ModelPath)
	fmt.Printf("Accuracy on training samples: %.2f%%\n", accuracy*100)
	return nil
}
