package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MrCodeEU/faceattend/pkg/roster"
	"github.com/MrCodeEU/faceattend/pkg/session"
	"github.com/MrCodeEU/faceattend/pkg/training"
	"github.com/MrCodeEU/faceattend/pkg/vision"
)

// loadRecognizer loads what a live session needs: the roster names, the
// trained model and the detector. The caller closes the detector.
func loadRecognizer() (map[int]string, vision.Model, vision.Detector, error) {
	names, err := roster.NewDirectory(rosterStore(cfg)).Load()
	if err != nil {
		if errors.Is(err, roster.ErrRosterNotFound) {
			return nil, nil, nil, fmt.Errorf("%w: add students with 'faceattend roster add' first", err)
		}
		return nil, nil, nil, err
	}

	trainer, err := newTrainer(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	model, err := trainer.Load(cfg.Recognition.ModelPath)
	if err != nil {
		if errors.Is(err, training.ErrModelNotFound) {
			return nil, nil, nil, fmt.Errorf("%w: run 'faceattend train' first", err)
		}
		return nil, nil, nil, err
	}

	detector, err := newDetector(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return names, model, detector, nil
}

func cmdAttend(args []string) error {
	names, model, detector, err := loadRecognizer()
	if err != nil {
		return err
	}
	defer detector.Close()

	var opts []session.Option
	if cfg.Recognition.ShowWindow {
		opts = append(opts, session.WithDisplay(newWindow))
	}
	sess := session.New(detector, names, newLedger(cfg), opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Look at the camera (%s)...\n", session.CaptureBudget)
	outcome, err := sess.Start(ctx, newCamera(cfg), model, nil)
	if err != nil {
		return err
	}

	if outcome.Code == session.OutcomeNoMatch {
		fmt.Println(outcome.Code.Message())
		return nil
	}

	yes, err := prompt(os.Stdin, os.Stdout, fmt.Sprintf("Is this %s?", outcome.Candidate.Name))
	if err != nil {
		return fmt.Errorf("failed to read answer: %w", err)
	}

	res, err := sess.Confirm(yes)
	if err != nil {
		return err
	}
	fmt.Println(res.Message())
	return nil
}

// cmdRecognize shows a live preview that labels faces until the window is
// closed with q or Ctrl-C. Nothing is recorded.
func cmdRecognize(args []string) error {
	names, model, detector, err := loadRecognizer()
	if err != nil {
		return err
	}
	defer detector.Close()

	sess := session.New(detector, names, nil, session.WithDisplay(newWindow))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Press q in the preview window to stop.")
	outcome, err := sess.Preview(ctx, newCamera(cfg), model, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d frame(s) in %s.\n", outcome.Frames, outcome.Duration.Round(time.Second))
	if outcome.Candidate != nil {
		fmt.Printf("Last recognized: %s (%d)\n", outcome.Candidate.Name, outcome.Candidate.IdentityID)
	}
	return nil
}

// prompt asks a yes/no question. Anything but y or yes is a no.
func prompt(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return isYes(line), nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
