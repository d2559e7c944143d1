package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/voxa/pkg/adapters/dialogue"
)

// DialogueResult is one scripted agent outcome.
type DialogueResult struct {
	Reply dialogue.Reply
	Err   error
}

// Dialogue replays a scripted sequence of replies; the last entry repeats
// once the sequence is exhausted.
type Dialogue struct {
	mu      sync.Mutex
	results []DialogueResult
	calls   int
}

func NewDialogue(results ...DialogueResult) *Dialogue {
	if len(results) == 0 {
		results = []DialogueResult{{Reply: dialogue.Reply{Text: "mock reply", CandidateID: "mock"}}}
	}
	return &Dialogue{results: results}
}

func (d *Dialogue) Name() string { return "mock_dialogue" }

func (d *Dialogue) Send(ctx context.Context, agentID, sessionID, text string) (dialogue.Reply, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.calls
	if idx >= len(d.results) {
		idx = len(d.results) - 1
	}
	d.calls++
	r := d.results[idx]
	return r.Reply, r.Err
}

// Calls returns how many messages were sent to the agent.
func (d *Dialogue) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

var _ dialogue.Service = (*Dialogue)(nil)
