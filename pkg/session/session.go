// Package session runs timed recognition sessions: a bounded detect/classify
// loop over a frame source, a confidence gate, and a yes/no confirmation that
// forwards the identity to the attendance ledger.
//
// One session is active at a time. The frame source is opened on entry to
// Capturing and released, together with any preview display, on every exit.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/MrCodeEU/faceattend/pkg/camera"
	"github.com/MrCodeEU/faceattend/pkg/ledger"
	"github.com/MrCodeEU/faceattend/pkg/logging"
	"github.com/MrCodeEU/faceattend/pkg/metrics"
	"github.com/MrCodeEU/faceattend/pkg/vision"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// ConfidenceThreshold is the matcher distance below which a face is accepted.
	ConfidenceThreshold = 60.0

	// CaptureBudget bounds the time spent in Capturing.
	CaptureBudget = 8 * time.Second

	// UnknownName labels faces that are rejected or missing from the roster.
	UnknownName = "Unknown"
)

// ErrAcquisition is returned when the frame source cannot be opened.
var ErrAcquisition = errors.New("frame acquisition failed")

// ErrBusy is returned when starting while another capture or confirmation is pending.
var ErrBusy = errors.New("a recognition session is already active")

// ErrInvalidState is returned by Confirm outside Confirming.
var ErrInvalidState = errors.New("no identity awaiting confirmation")

// Accept reports whether distance passes the confidence gate.
func Accept(distance float64) bool {
	return distance < ConfidenceThreshold
}

// Recorder persists confirmed attendance. *ledger.Ledger implements it.
type Recorder interface {
	Record(id int, name string, ts time.Time) (ledger.Result, error)
}

// Option configures a Session.
type Option func(*Session)

// WithDisplay renders every frame through a display created on entry to
// Capturing.
func WithDisplay(newDisplay func() vision.Display) Option {
	return func(s *Session) { s.newDisplay = newDisplay }
}

// WithClock replaces time.Now for the budget and attendance timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithParams overrides the live detection parameters.
func WithParams(p vision.DetectParams) Option {
	return func(s *Session) { s.params = p }
}

// Session is the recognition state machine.
type Session struct {
	detector   vision.Detector
	names      map[int]string
	recorder   Recorder
	params     vision.DetectParams
	budget     time.Duration
	now        func() time.Time
	newDisplay func() vision.Display

	mu        sync.Mutex
	state     State
	id        string
	candidate *Candidate
	log       *logrus.Entry
}

// New creates an idle session. names is the roster snapshot used for labels.
func New(detector vision.Detector, names map[int]string, recorder Recorder, opts ...Option) *Session {
	s := &Session{
		detector: detector,
		names:    names,
		recorder: recorder,
		params:   vision.LiveParams,
		budget:   CaptureBudget,
		now:      time.Now,
		state:    Idle,
		log:      logging.Component("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the id of the most recent capture, or "" before the first.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Candidate returns the identity awaiting confirmation, if any.
func (s *Session) Candidate() *Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.candidate == nil {
		return nil
	}
	c := *s.candidate
	return &c
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) name(id int) string {
	if n, ok := s.names[id]; ok {
		return n
	}
	return UnknownName
}

// Label formats the annotation for a classified face.
func (s *Session) Label(r Result) string {
	if !r.Known {
		return UnknownName
	}
	return fmt.Sprintf("%s (%d%%)", s.name(r.IdentityID), int(math.Round(r.Confidence())))
}

// Start runs one capture loop with src and model. It returns when early
// fires, the capture budget is spent or src runs out of frames. A cancelled
// ctx abandons the session and returns to Idle.
func (s *Session) Start(ctx context.Context, src camera.Source, model vision.Model, early <-chan struct{}) (Outcome, error) {
	log, err := s.begin()
	if err != nil {
		return Outcome{}, err
	}

	outcome, err := s.run(ctx, src, model, early, s.budget, log)
	if err != nil {
		s.setState(Idle)
		if !errors.Is(err, ErrAcquisition) {
			metrics.SessionFinished("cancelled", outcome.Duration)
			log.WithError(err).Warn("Capture abandoned")
		}
		return outcome, err
	}

	s.mu.Lock()
	if outcome.Candidate == nil {
		s.state = TimedOut
		outcome.Code = OutcomeNoMatch
	} else {
		s.state = Confirming
		s.candidate = outcome.Candidate
		outcome.Code = OutcomeCandidate
	}
	s.mu.Unlock()

	s.finish(outcome, string(outcome.Code), log)
	return outcome, nil
}

// Preview runs the capture loop without a time budget until stop fires, the
// display asks to stop, src runs out of frames or ctx is done. Faces are
// classified and annotated as in Start, but nothing is proposed for
// confirmation and nothing is recorded. The session is Idle afterwards.
func (s *Session) Preview(ctx context.Context, src camera.Source, model vision.Model, stop <-chan struct{}) (Outcome, error) {
	log, err := s.begin()
	if err != nil {
		return Outcome{}, err
	}

	outcome, err := s.run(ctx, src, model, stop, 0, log)
	s.setState(Idle)
	if err != nil {
		if ctx.Err() == nil || errors.Is(err, ErrAcquisition) {
			return outcome, err
		}
		outcome.Reason = "interrupted"
	}

	outcome.Code = OutcomeNoMatch
	if outcome.Candidate != nil {
		outcome.Code = OutcomeCandidate
	}
	s.finish(outcome, "preview", log)
	return outcome, nil
}

// begin moves an idle session to Capturing under a fresh session id.
func (s *Session) begin() (*logrus.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Capturing || s.state == Confirming {
		return nil, ErrBusy
	}
	s.state = Capturing
	s.candidate = nil
	s.id = uuid.New().String()
	return s.log.WithField("session_id", s.id), nil
}

// run acquires src and the display, runs the capture loop and releases both
// on every exit path. A budget of zero or less means no time limit.
func (s *Session) run(ctx context.Context, src camera.Source, model vision.Model, early <-chan struct{}, budget time.Duration, log *logrus.Entry) (Outcome, error) {
	if err := src.Open(); err != nil {
		log.WithError(err).Error("Failed to acquire frame source")
		metrics.SessionFinished("acquisition_failed", 0)
		return Outcome{}, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	defer src.Close()

	var display vision.Display
	if s.newDisplay != nil {
		display = s.newDisplay()
		defer display.Close()
	}

	log.Info("Capture started")
	return s.capture(ctx, src, model, display, early, budget, log)
}

func (s *Session) finish(outcome Outcome, label string, log *logrus.Entry) {
	metrics.SessionFinished(label, outcome.Duration)
	log.WithFields(logrus.Fields{
		"outcome":  outcome.Code,
		"frames":   outcome.Frames,
		"duration": outcome.Duration.Round(time.Millisecond),
		"reason":   outcome.Reason,
	}).Info("Capture finished")
}

func (s *Session) capture(ctx context.Context, src camera.Source, model vision.Model, display vision.Display, early <-chan struct{}, budget time.Duration, log *logrus.Entry) (Outcome, error) {
	start := s.now()
	var outcome Outcome

	for {
		outcome.Duration = s.now().Sub(start)
		if budget > 0 && outcome.Duration >= budget {
			outcome.Reason = "capture budget spent"
			return outcome, nil
		}

		select {
		case <-ctx.Done():
			return outcome, ctx.Err()
		case <-early:
			outcome.Reason = "confirmed early"
			return outcome, nil
		default:
		}

		frame, err := src.Next()
		if err != nil {
			log.WithError(err).Debug("Frame source ended")
			outcome.Reason = "frame source ended"
			return outcome, nil
		}
		outcome.Frames++

		gray := frame.Gray
		if gray == nil {
			gray = vision.ToGray(frame.Image)
		}
		regions, err := s.detector.Detect(gray, s.params)
		if err != nil {
			log.WithError(err).Warn("Face detection failed")
			continue
		}

		marks := make([]vision.Annotation, 0, len(regions))
		for _, region := range regions {
			label, distance, err := model.Predict(vision.Normalize(gray, region))
			if err != nil {
				log.WithError(err).Debug("Classification failed, skipping face")
				continue
			}

			r := NewResult(label, distance, region)
			if r.Known {
				outcome.Candidate = &Candidate{IdentityID: label, Name: s.name(label), Distance: distance}
			}
			log.WithFields(logrus.Fields{
				"identity_id": label,
				"distance":    distance,
				"accepted":    r.Known,
			}).Debug("Face classified")
			marks = append(marks, vision.Annotation{Region: region, Label: s.Label(r), Accepted: r.Known})
		}

		if display != nil && display.Show(frame, marks) {
			outcome.Duration = s.now().Sub(start)
			outcome.Reason = "confirmed early"
			return outcome, nil
		}
	}
}

// Confirm answers the confirmation prompt. A yes records the candidate at
// the current time and moves to Done; a no returns to Idle without recording.
func (s *Session) Confirm(yes bool) (Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Confirming || s.candidate == nil {
		return "", ErrInvalidState
	}
	c := s.candidate
	log := s.log.WithField("session_id", s.id).WithField("identity_id", c.IdentityID)

	if !yes {
		s.state = Idle
		s.candidate = nil
		log.Info("Candidate rejected by operator")
		return ResolutionRejected, nil
	}

	res, err := s.recorder.Record(c.IdentityID, c.Name, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to record attendance: %w", err)
	}

	s.state = Done
	s.candidate = nil
	if res == ledger.AlreadyRecordedToday {
		return ResolutionAlreadyRecorded, nil
	}
	return ResolutionRecorded, nil
}
