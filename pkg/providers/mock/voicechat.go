package mock

import (
	"context"
	"sync"
	"time"

	"github.com/harunnryd/voxa/pkg/adapters/voicechat"
)

// VoiceConfig scripts the fake platform state.
type VoiceConfig struct {
	Connected    bool
	Channel      string
	Participants map[string]string // participantID -> voice channel
	PlayErr      error
	PlayDelay    time.Duration
}

// Voice is a scriptable in-memory platform: session provider, notifier and
// player in one, mirroring how the real provider backs all three.
type Voice struct {
	mu            sync.Mutex
	cfg           VoiceConfig
	playing       map[string]bool
	notifications []string
	playCalls     int
	disconnects   int
	audioStops    int
}

func NewVoice(cfg VoiceConfig) *Voice {
	if cfg.Participants == nil {
		cfg.Participants = make(map[string]string)
	}
	return &Voice{cfg: cfg, playing: make(map[string]bool)}
}

func (v *Voice) Name() string { return "mock_voice" }

func (v *Voice) IsConnected(scopeID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cfg.Connected
}

func (v *Voice) ChannelID(scopeID string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cfg.Channel, nil
}

func (v *Voice) ParticipantChannel(scopeID, participantID string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ch, ok := v.cfg.Participants[participantID]
	return ch, ok
}

func (v *Voice) Connect(ctx context.Context, scopeID, channelID string) error {
	v.mu.Lock()
	v.cfg.Connected = true
	v.cfg.Channel = channelID
	v.mu.Unlock()
	return nil
}

func (v *Voice) Disconnect(ctx context.Context, scopeID string) error {
	v.mu.Lock()
	v.cfg.Connected = false
	v.disconnects++
	v.mu.Unlock()
	return nil
}

func (v *Voice) StopAudio(scopeID string) {
	v.mu.Lock()
	v.audioStops++
	v.mu.Unlock()
}

func (v *Voice) Notify(ctx context.Context, channelID, text string) error {
	v.mu.Lock()
	v.notifications = append(v.notifications, text)
	v.mu.Unlock()
	return nil
}

func (v *Voice) IsPlaying(scopeID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing[scopeID]
}

func (v *Voice) Play(ctx context.Context, scopeID string, audio []byte) error {
	v.mu.Lock()
	v.playCalls++
	v.playing[scopeID] = true
	delay := v.cfg.PlayDelay
	err := v.cfg.PlayErr
	v.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}

	v.mu.Lock()
	v.playing[scopeID] = false
	v.mu.Unlock()
	return err
}

// SetConnected flips the scripted connection state.
func (v *Voice) SetConnected(connected bool) {
	v.mu.Lock()
	v.cfg.Connected = connected
	v.mu.Unlock()
}

// SetParticipant places (or with channel "" removes) a participant.
func (v *Voice) SetParticipant(participantID, channelID string) {
	v.mu.Lock()
	if channelID == "" {
		delete(v.cfg.Participants, participantID)
	} else {
		v.cfg.Participants[participantID] = channelID
	}
	v.mu.Unlock()
}

// SetBusy marks a scope's player as already playing.
func (v *Voice) SetBusy(scopeID string, busy bool) {
	v.mu.Lock()
	v.playing[scopeID] = busy
	v.mu.Unlock()
}

// Notifications returns a copy of everything sent to the response channel.
func (v *Voice) Notifications() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.notifications))
	copy(out, v.notifications)
	return out
}

// PlayCalls returns the number of playback attempts that started.
func (v *Voice) PlayCalls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playCalls
}

// Disconnects returns how many times Disconnect was called.
func (v *Voice) Disconnects() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disconnects
}

// AudioStops returns how many times StopAudio was called.
func (v *Voice) AudioStops() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.audioStops
}

var (
	_ voicechat.SessionProvider = (*Voice)(nil)
	_ voicechat.Notifier        = (*Voice)(nil)
	_ voicechat.Player          = (*Voice)(nil)
)
