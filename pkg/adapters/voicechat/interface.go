package voicechat

import "context"

// SessionProvider is the contract the core needs from the chat/voice
// platform. The core never holds live connection objects, only scope ids
// (one voice scope per guild/server) that are re-resolved on every call.
type SessionProvider interface {
	// Name returns provider name for logging/metrics.
	Name() string
	// IsConnected reports whether a live voice connection exists for the scope.
	IsConnected(scopeID string) bool
	// ChannelID returns the voice channel the bot currently occupies.
	ChannelID(scopeID string) (string, error)
	// ParticipantChannel returns the voice channel a participant occupies,
	// or ok=false when the participant is not in voice at all.
	ParticipantChannel(scopeID, participantID string) (channelID string, ok bool)
	// Connect joins (or moves to) the given voice channel.
	Connect(ctx context.Context, scopeID, channelID string) error
	// Disconnect tears down the voice connection. Idempotent.
	Disconnect(ctx context.Context, scopeID string) error
	// StopAudio requests immediate stop of in-progress capture and playback.
	// Idempotent; safe to call with no connection.
	StopAudio(scopeID string)
}

// Notifier delivers human-readable status messages to the response channel
// bound to a session. Delivery failures are observability losses, never
// correctness failures.
type Notifier interface {
	Notify(ctx context.Context, channelID, text string) error
}

// Player owns the single voice-audio player per scope. Play blocks until
// playback completes or the player reports an error. Busy players decline
// new playback instead of queueing.
type Player interface {
	IsPlaying(scopeID string) bool
	Play(ctx context.Context, scopeID string, audio []byte) error
}
