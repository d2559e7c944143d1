package dialogue

import (
	"context"
	"errors"
)

// ErrNoReply is returned when the agent answered but produced no usable
// primary candidate.
var ErrNoReply = errors.New("dialogue returned no usable reply")

// Reply is the primary candidate chosen from the agent's response, plus the
// identifiers speech synthesis needs to voice it.
type Reply struct {
	Text        string
	ChatID      string
	TurnID      string
	CandidateID string
}

// Service defines the contract for the conversational-agent backend.
// Implementations may keep a per-session dialogue context keyed by
// (agentID, sessionID); the core does not manage that context.
type Service interface {
	Name() string
	Send(ctx context.Context, agentID, sessionID, text string) (Reply, error)
}
