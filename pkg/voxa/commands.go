package voxa

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/harunnryd/voxa/pkg/convo"
	"github.com/harunnryd/voxa/pkg/session"
)

// commandHandler turns prefix commands from guild text channels into
// controller calls. The guild id is the conversation scope.
type commandHandler struct {
	engine *Engine
	logger *slog.Logger
}

func newCommandHandler(engine *Engine) *commandHandler {
	return &commandHandler{
		engine: engine,
		logger: engine.logger.With(slog.String("component", "commands")),
	}
}

func (h *commandHandler) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	prefix := h.engine.cfg.Discord.CommandPrefix
	if !strings.HasPrefix(m.Content, prefix) {
		return
	}
	command := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(m.Content, prefix)))

	ctx := context.Background()
	switch command {
	case "join":
		h.join(ctx, m)
	case "leave":
		h.leave(ctx, m)
	case "stopconvo":
		h.stopConvo(ctx, m)
	case "record":
		h.record(ctx, m)
	}
}

// join connects (or moves) to the invoker's voice channel and starts
// conversation mode.
func (h *commandHandler) join(ctx context.Context, m *discordgo.MessageCreate) {
	channelID, ok := h.engine.voice.ParticipantChannel(m.GuildID, m.Author.ID)
	if !ok {
		h.reply(ctx, m, "You need to be in a voice channel first.")
		return
	}
	if err := h.engine.voice.Connect(ctx, m.GuildID, channelID); err != nil {
		h.logger.Error("voice join failed",
			slog.String("guild_id", m.GuildID),
			slog.String("error", err.Error()))
		h.reply(ctx, m, "I couldn't join your voice channel.")
		return
	}

	err := h.engine.controller.Start(m.GuildID, m.Author.ID, m.ChannelID)
	switch {
	case errors.Is(err, session.ErrAlreadyActive):
		h.reply(ctx, m, "A conversation is already active in this server.")
	case err != nil:
		h.logger.Error("conversation start failed",
			slog.String("guild_id", m.GuildID),
			slog.String("error", err.Error()))
		h.reply(ctx, m, "I couldn't start the conversation.")
	}
}

func (h *commandHandler) leave(ctx context.Context, m *discordgo.MessageCreate) {
	if !h.engine.voice.IsConnected(m.GuildID) {
		h.reply(ctx, m, "I'm not in a voice channel.")
		return
	}
	h.engine.controller.Stop(ctx, m.GuildID)
	h.reply(ctx, m, "Left the voice channel.")
}

func (h *commandHandler) stopConvo(ctx context.Context, m *discordgo.MessageCreate) {
	if !h.engine.controller.Running(m.GuildID) {
		h.reply(ctx, m, "No conversation is active.")
		return
	}
	h.engine.controller.StopConversation(ctx, m.GuildID)
	h.reply(ctx, m, "Conversation mode stopped.")
}

// record runs exactly one turn. Connects first when the invoker is in voice
// and the bot is not.
func (h *commandHandler) record(ctx context.Context, m *discordgo.MessageCreate) {
	if h.engine.controller.Running(m.GuildID) {
		h.reply(ctx, m, "A conversation is already active, no need to record manually.")
		return
	}
	if !h.engine.voice.IsConnected(m.GuildID) {
		channelID, ok := h.engine.voice.ParticipantChannel(m.GuildID, m.Author.ID)
		if !ok {
			h.reply(ctx, m, "You need to be in a voice channel first.")
			return
		}
		if err := h.engine.voice.Connect(ctx, m.GuildID, channelID); err != nil {
			h.logger.Error("voice join failed",
				slog.String("guild_id", m.GuildID),
				slog.String("error", err.Error()))
			h.reply(ctx, m, "I couldn't join your voice channel.")
			return
		}
	}

	// One turn can block for the whole capture window plus service calls;
	// never hold the gateway event handler for that long.
	go func() {
		_, err := h.engine.controller.RecordOnce(ctx, m.GuildID, m.Author.ID, m.ChannelID)
		if errors.Is(err, convo.ErrConversationActive) {
			h.reply(ctx, m, "A conversation is already active, no need to record manually.")
		}
	}()
}

func (h *commandHandler) reply(ctx context.Context, m *discordgo.MessageCreate, text string) {
	if err := h.engine.voice.Notify(ctx, m.ChannelID, text); err != nil {
		h.logger.Warn("reply failed",
			slog.String("channel_id", m.ChannelID),
			slog.String("error", err.Error()))
	}
}
