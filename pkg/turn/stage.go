package turn

import (
	"sync"
	"time"
)

type Stage int

const (
	StageCapturing Stage = iota
	StageTranscribing
	StageQuerying
	StageSynthesizing
	StagePlaying
	StageDone
	StageFailed
)

// String returns the string representation of a Stage
func (s Stage) String() string {
	switch s {
	case StageCapturing:
		return "CAPTURING"
	case StageTranscribing:
		return "TRANSCRIBING"
	case StageQuerying:
		return "QUERYING"
	case StageSynthesizing:
		return "SYNTHESIZING"
	case StagePlaying:
		return "PLAYING"
	case StageDone:
		return "DONE"
	case StageFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the stage ends the turn.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// stageMachine validates the forward-only stage progression of one turn.
type stageMachine struct {
	mu      sync.Mutex
	current Stage
}

func newStageMachine() *stageMachine {
	return &stageMachine{current: StageCapturing}
}

func (m *stageMachine) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

var validTransitions = map[Stage][]Stage{
	StageCapturing:    {StageTranscribing},
	StageTranscribing: {StageQuerying},
	StageQuerying:     {StageSynthesizing},
	StageSynthesizing: {StagePlaying},
	StagePlaying:      {StageDone},
}

// transitionValid checks if a stage transition is valid (must be called with lock held).
func (m *stageMachine) transitionValid(from, to Stage) bool {
	if to == StageFailed {
		return !from.Terminal()
	}
	allowed, exists := validTransitions[from]
	if !exists {
		return false
	}
	for _, next := range allowed {
		if next == to {
			return true
		}
	}
	return false
}

// Advance moves to the next stage with validation.
func (m *stageMachine) Advance(to Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.transitionValid(m.current, to) {
		return &InvalidStageError{From: m.current, To: to}
	}
	m.current = to
	return nil
}

// InvalidStageError represents an invalid stage transition attempt
type InvalidStageError struct {
	From Stage
	To   Stage
}

func (e *InvalidStageError) Error() string {
	return "invalid stage transition from " + e.From.String() + " to " + e.To.String()
}

// Turn is one capture/transcribe/query/synthesize/play cycle for one
// participant. It exists only for the duration of one engine invocation and
// is owned exclusively by that invocation.
type Turn struct {
	ID            string
	SessionID     string
	ParticipantID string
	StartedAt     time.Time

	stages *stageMachine
}

func (t *Turn) Stage() Stage { return t.stages.Stage() }
