package discord

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/harunnryd/voxa/pkg/adapters/voicechat"
	"github.com/harunnryd/voxa/pkg/logging"
)

// Provider backs the voice session, notifier and player adapters with one
// discordgo session. Scope id is the guild id; live voice connections are
// looked up on every call, never cached by callers.
type Provider struct {
	session *discordgo.Session
	logger  *slog.Logger

	mu            sync.Mutex
	playing       map[string]*playback
	ssrcUsers     map[string]map[uint32]string // guild -> ssrc -> user
	speakingHooks map[string]bool
}

func NewProvider(session *discordgo.Session, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		session:       session,
		logger:        logging.NewComponentLogger(logger, "discord"),
		playing:       make(map[string]*playback),
		ssrcUsers:     make(map[string]map[uint32]string),
		speakingHooks: make(map[string]bool),
	}
}

func (p *Provider) Name() string { return "discord" }

func (p *Provider) voiceConn(scopeID string) *discordgo.VoiceConnection {
	p.session.RLock()
	defer p.session.RUnlock()
	return p.session.VoiceConnections[scopeID]
}

func (p *Provider) IsConnected(scopeID string) bool {
	vc := p.voiceConn(scopeID)
	return vc != nil && vc.Ready
}

func (p *Provider) ChannelID(scopeID string) (string, error) {
	vc := p.voiceConn(scopeID)
	if vc == nil {
		return "", errors.New("no voice connection for scope " + scopeID)
	}
	return vc.ChannelID, nil
}

func (p *Provider) ParticipantChannel(scopeID, participantID string) (string, bool) {
	vs, err := p.session.State.VoiceState(scopeID, participantID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

// Connect joins the channel, moving there when already connected elsewhere
// in the guild.
func (p *Provider) Connect(ctx context.Context, scopeID, channelID string) error {
	vc, err := p.session.ChannelVoiceJoin(scopeID, channelID, false, false)
	if err != nil {
		return err
	}
	p.hookSpeaking(scopeID, vc)
	p.logger.Info("voice connected",
		slog.String("guild_id", scopeID),
		slog.String("channel_id", channelID))
	return nil
}

func (p *Provider) Disconnect(ctx context.Context, scopeID string) error {
	vc := p.voiceConn(scopeID)
	if vc == nil {
		return nil
	}
	err := vc.Disconnect()
	p.mu.Lock()
	delete(p.ssrcUsers, scopeID)
	delete(p.speakingHooks, scopeID)
	p.mu.Unlock()
	return err
}

// StopAudio cancels an in-progress playback. Capture sessions stop through
// their own handles; this only tears down the audible side immediately.
func (p *Provider) StopAudio(scopeID string) {
	p.mu.Lock()
	pb := p.playing[scopeID]
	p.mu.Unlock()
	if pb != nil {
		pb.cancel()
	}
}

func (p *Provider) Notify(ctx context.Context, channelID, text string) error {
	_, err := p.session.ChannelMessageSend(channelID, text)
	return err
}

// hookSpeaking registers the speaking-update handler that maps RTP SSRCs to
// user ids. VoiceConnection handlers cannot be removed, so exactly one is
// installed per guild connection.
func (p *Provider) hookSpeaking(scopeID string, vc *discordgo.VoiceConnection) {
	p.mu.Lock()
	if p.speakingHooks[scopeID] {
		p.mu.Unlock()
		return
	}
	p.speakingHooks[scopeID] = true
	p.mu.Unlock()

	vc.AddHandler(func(_ *discordgo.VoiceConnection, vs *discordgo.VoiceSpeakingUpdate) {
		p.mu.Lock()
		users := p.ssrcUsers[scopeID]
		if users == nil {
			users = make(map[uint32]string)
			p.ssrcUsers[scopeID] = users
		}
		users[uint32(vs.SSRC)] = vs.UserID
		p.mu.Unlock()
	})
}

func (p *Provider) ssrcUser(scopeID string, ssrc uint32) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	userID, ok := p.ssrcUsers[scopeID][ssrc]
	return userID, ok
}

var (
	_ voicechat.SessionProvider = (*Provider)(nil)
	_ voicechat.Notifier        = (*Provider)(nil)
)
