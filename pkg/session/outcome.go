package session

import (
	"fmt"
	"image"
	"math"
	"time"
)

// State is the recognition session lifecycle.
type State int

const (
	Idle State = iota
	Capturing
	Confirming
	TimedOut
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Capturing:
		return "CAPTURING"
	case Confirming:
		return "CONFIRMING"
	case TimedOut:
		return "TIMED_OUT"
	case Done:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// OutcomeCode is how a capture loop ended. Neither code is an error.
type OutcomeCode string

const (
	OutcomeCandidate OutcomeCode = "CANDIDATE"
	OutcomeNoMatch   OutcomeCode = "NO_MATCH"
)

// Resolution is the result of answering the confirmation prompt.
type Resolution string

const (
	ResolutionRejected        Resolution = "REJECTED"
	ResolutionRecorded        Resolution = "RECORDED"
	ResolutionAlreadyRecorded Resolution = "ALREADY_RECORDED"
)

// User-facing messages
var messages = map[string]string{
	string(OutcomeNoMatch):            "Face not recognized. Try again.",
	string(ResolutionRejected):        "Attendance not recorded.",
	string(ResolutionRecorded):        "Attendance logged successfully.",
	string(ResolutionAlreadyRecorded): "Attendance already recorded today.",
}

// Message returns the operator message for the outcome.
func (c OutcomeCode) Message() string {
	if msg, ok := messages[string(c)]; ok {
		return msg
	}
	return "Face recognized."
}

// Message returns the operator message for the resolution.
func (r Resolution) Message() string {
	return messages[string(r)]
}

// Result is one classified face in one frame.
type Result struct {
	IdentityID int
	Known      bool
	Distance   float64
	Region     image.Rectangle
}

// NewResult applies the confidence gate to one classification.
func NewResult(label int, distance float64, region image.Rectangle) Result {
	return Result{
		IdentityID: label,
		Known:      Accept(distance),
		Distance:   distance,
		Region:     region,
	}
}

// Confidence is 100 - distance clamped to [0, 100]. It is for display only.
func (r Result) Confidence() float64 {
	return math.Max(0, math.Min(100, 100-r.Distance))
}

// Candidate is the identity a capture loop proposes for confirmation.
type Candidate struct {
	IdentityID int
	Name       string
	Distance   float64
}

// Outcome reports one capture loop.
type Outcome struct {
	Code      OutcomeCode
	Candidate *Candidate
	Frames    int
	Duration  time.Duration
	Reason    string
}
