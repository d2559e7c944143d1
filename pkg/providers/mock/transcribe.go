package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/voxa/pkg/adapters/transcribe"
)

// TranscribeResult is one scripted transcription outcome.
type TranscribeResult struct {
	Text string
	Err  error
}

// Transcribe replays a scripted sequence of results; the last entry repeats
// once the sequence is exhausted.
type Transcribe struct {
	mu      sync.Mutex
	results []TranscribeResult
	calls   int
}

func NewTranscribe(results ...TranscribeResult) *Transcribe {
	if len(results) == 0 {
		results = []TranscribeResult{{Text: "mock transcript"}}
	}
	return &Transcribe{results: results}
}

func (t *Transcribe) Name() string { return "mock_stt" }

func (t *Transcribe) Transcribe(ctx context.Context, audio []byte) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.calls
	if idx >= len(t.results) {
		idx = len(t.results) - 1
	}
	t.calls++
	r := t.results[idx]
	return r.Text, r.Err
}

// Calls returns how many transcriptions were requested.
func (t *Transcribe) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

var _ transcribe.Service = (*Transcribe)(nil)
