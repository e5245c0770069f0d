package camera

import "sync"

// ScriptedSource replays a fixed sequence of frames. It is the deterministic
// stand-in for a webcam in tests and offline replays.
type ScriptedSource struct {
	Frames  []Frame
	Loop    bool  // repeat Frames forever instead of ending with ErrNoFrame
	OpenErr error // returned by Open when set

	mu     sync.Mutex
	pos    int
	open   bool
	opened int
	closed int
}

// NewScriptedSource creates a source that yields frames once, in order.
func NewScriptedSource(frames ...Frame) *ScriptedSource {
	return &ScriptedSource{Frames: frames}
}

// Open acquires the scripted device.
func (s *ScriptedSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.OpenErr != nil {
		return s.OpenErr
	}
	s.open = true
	s.opened++
	s.pos = 0
	return nil
}

// Next returns the next scripted frame.
func (s *ScriptedSource) Next() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return Frame{}, ErrCameraNotOpen
	}
	if len(s.Frames) == 0 {
		return Frame{}, ErrNoFrame
	}
	if s.pos >= len(s.Frames) {
		if !s.Loop {
			return Frame{}, ErrNoFrame
		}
		s.pos = 0
	}
	f := s.Frames[s.pos]
	s.pos++
	return f, nil
}

// Close releases the scripted device.
func (s *ScriptedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		s.open = false
		s.closed++
	}
	return nil
}

// IsOpen reports whether the device is currently held.
func (s *ScriptedSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Counts reports how often the device was opened and closed.
func (s *ScriptedSource) Counts() (opened, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.closed
}
