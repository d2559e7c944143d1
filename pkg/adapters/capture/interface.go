package capture

import "context"

// Handle identifies one in-progress capture on a voice scope.
type Handle interface {
	ScopeID() string
}

// Service defines the contract for the raw audio capture mechanism.
// Start begins buffering audio for every speaking participant in the scope;
// Stop ends the capture and returns the buffered audio attributed per
// participant id. Buffers live in memory only.
type Service interface {
	Name() string
	Start(ctx context.Context, scopeID string) (Handle, error)
	Stop(h Handle) (map[string][]byte, error)
}
