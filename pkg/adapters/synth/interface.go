package synth

import (
	"context"

	"github.com/harunnryd/voxa/pkg/adapters/dialogue"
)

// Service defines the contract for the speech-synthesis backend. The reply
// metadata carries the dialogue identifiers some vendors need to voice a
// specific generated candidate.
type Service interface {
	Name() string
	Synthesize(ctx context.Context, reply dialogue.Reply, voiceID string) ([]byte, error)
}
