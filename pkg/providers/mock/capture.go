package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/voxa/pkg/adapters/capture"
)

// CaptureConfig scripts what one capture window returns.
type CaptureConfig struct {
	Audio    map[string][]byte // participantID -> buffered audio
	StartErr error
	StopErr  error
}

type Capture struct {
	mu     sync.Mutex
	cfg    CaptureConfig
	starts int
}

func NewCapture(cfg CaptureConfig) *Capture {
	return &Capture{cfg: cfg}
}

func (c *Capture) Name() string { return "mock_capture" }

func (c *Capture) Start(ctx context.Context, scopeID string) (capture.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.StartErr != nil {
		return nil, c.cfg.StartErr
	}
	c.starts++
	return captureHandle{scopeID: scopeID}, nil
}

func (c *Capture) Stop(h capture.Handle) (map[string][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.StopErr != nil {
		return nil, c.cfg.StopErr
	}
	out := make(map[string][]byte, len(c.cfg.Audio))
	for id, audio := range c.cfg.Audio {
		out[id] = append([]byte(nil), audio...)
	}
	return out, nil
}

// SetAudio replaces the scripted capture result.
func (c *Capture) SetAudio(audio map[string][]byte) {
	c.mu.Lock()
	c.cfg.Audio = audio
	c.mu.Unlock()
}

// Starts returns how many captures were started.
func (c *Capture) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

type captureHandle struct {
	scopeID string
}

func (h captureHandle) ScopeID() string { return h.scopeID }

var _ capture.Service = (*Capture)(nil)
