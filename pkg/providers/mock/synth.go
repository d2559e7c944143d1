package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/voxa/pkg/adapters/dialogue"
	"github.com/harunnryd/voxa/pkg/adapters/synth"
)

// SynthConfig scripts the speech-synthesis fake.
type SynthConfig struct {
	Audio []byte
	Err   error
}

type Synth struct {
	mu    sync.Mutex
	cfg   SynthConfig
	calls int
}

func NewSynth(cfg SynthConfig) *Synth {
	return &Synth{cfg: cfg}
}

func (s *Synth) Name() string { return "mock_synth" }

func (s *Synth) Synthesize(ctx context.Context, reply dialogue.Reply, voiceID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.cfg.Err != nil {
		return nil, s.cfg.Err
	}
	return append([]byte(nil), s.cfg.Audio...), nil
}

// Calls returns how many synthesis requests were made.
func (s *Synth) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ synth.Service = (*Synth)(nil)
