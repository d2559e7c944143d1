package transcribe

import (
	"context"
	"errors"
)

// ErrUnintelligible is returned when the service processed the audio but
// recognized no speech. Distinct from transport/service errors because the
// caller's retry policy differs.
var ErrUnintelligible = errors.New("audio not intelligible")

// Service defines the contract for any speech-to-text vendor.
type Service interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
