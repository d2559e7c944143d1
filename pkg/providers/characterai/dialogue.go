package characterai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/harunnryd/voxa/pkg/adapters/dialogue"
	"github.com/harunnryd/voxa/pkg/errorsx"
	"github.com/harunnryd/voxa/pkg/resilience"
)

type wsCommand struct {
	Command   string `json:"command"`
	RequestID string `json:"request_id"`
	Payload   any    `json:"payload"`
	OriginID  string `json:"origin_id"`
}

type wsResponse struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload"`
}

type chatPayload struct {
	Chat struct {
		ChatID string `json:"chat_id"`
	} `json:"chat"`
}

type turnPayload struct {
	Turn struct {
		TurnKey struct {
			ChatID string `json:"chat_id"`
			TurnID string `json:"turn_id"`
		} `json:"turn_key"`
		Author struct {
			IsHuman bool `json:"is_human"`
		} `json:"author"`
		Candidates []struct {
			CandidateID string `json:"candidate_id"`
			RawContent  string `json:"raw_content"`
			IsFinal     bool   `json:"is_final"`
		} `json:"candidates"`
		PrimaryCandidateID string `json:"primary_candidate_id"`
	} `json:"turn"`
}

// DialogueService talks to the Character.AI agent over its websocket
// endpoint. One dialogue context per (agent, session) pair is created lazily
// and reused for the rest of the conversation.
type DialogueService struct {
	client  *Client
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger

	mu    sync.Mutex
	chats map[string]string // agentID+sessionID -> chat_id
}

func NewDialogue(client *Client) *DialogueService {
	return &DialogueService{
		client:  client,
		breaker: resilience.NewCircuitBreaker(3, 30*time.Second),
		logger:  client.logger.With(slog.String("component", "characterai_dialogue")),
		chats:   make(map[string]string),
	}
}

func (d *DialogueService) Name() string { return "characterai_dialogue" }

func (d *DialogueService) Send(ctx context.Context, agentID, sessionID, text string) (dialogue.Reply, error) {
	if !d.breaker.Allow() {
		return dialogue.Reply{}, errorsx.New(errorsx.ReasonRateLimit, "characterai circuit open")
	}

	conn, err := d.client.dialWS(ctx)
	if err != nil {
		d.breaker.OnError(err)
		return dialogue.Reply{}, errorsx.Wrap(err, errorsx.ReasonDialogueConnect)
	}
	defer conn.Close()

	chatID, err := d.ensureChat(ctx, conn, agentID, sessionID)
	if err != nil {
		d.breaker.OnError(err)
		return dialogue.Reply{}, errorsx.Wrap(err, errorsx.ReasonDialogueSend)
	}

	reply, err := d.generateTurn(ctx, conn, agentID, chatID, text)
	if err != nil {
		d.breaker.OnError(err)
		return dialogue.Reply{}, err
	}
	d.breaker.OnSuccess()
	return reply, nil
}

func (d *DialogueService) ensureChat(ctx context.Context, conn *websocket.Conn, agentID, sessionID string) (string, error) {
	key := agentID + "/" + sessionID
	d.mu.Lock()
	chatID, ok := d.chats[key]
	d.mu.Unlock()
	if ok {
		return chatID, nil
	}

	newChatID := uuid.NewString()
	cmd := wsCommand{
		Command:   "create_chat",
		RequestID: uuid.NewString(),
		OriginID:  originID,
		Payload: map[string]any{
			"chat": map[string]any{
				"chat_id":      newChatID,
				"character_id": agentID,
				"visibility":   "VISIBILITY_PRIVATE",
				"type":         "TYPE_ONE_ON_ONE",
			},
			"with_greeting": false,
		},
	}
	if err := d.write(ctx, conn, cmd); err != nil {
		return "", err
	}

	for {
		var resp wsResponse
		if err := d.read(ctx, conn, &resp); err != nil {
			return "", err
		}
		if resp.Command != "create_chat_response" {
			continue
		}
		var payload chatPayload
		if err := json.Unmarshal(resp.Payload, &payload); err != nil {
			return "", err
		}
		if payload.Chat.ChatID == "" {
			return "", errors.New("characterai: chat creation returned no chat id")
		}
		chatID = payload.Chat.ChatID
		break
	}

	d.mu.Lock()
	d.chats[key] = chatID
	d.mu.Unlock()
	d.logger.Info("chat created",
		slog.String("agent_id", agentID),
		slog.String("session_id", sessionID))
	return chatID, nil
}

func (d *DialogueService) generateTurn(ctx context.Context, conn *websocket.Conn, agentID, chatID, text string) (dialogue.Reply, error) {
	userTurnID := uuid.NewString()
	cmd := wsCommand{
		Command:   "create_and_generate_turn",
		RequestID: uuid.NewString(),
		OriginID:  originID,
		Payload: map[string]any{
			"num_candidates": 1,
			"tts_enabled":    false,
			"character_id":   agentID,
			"turn": map[string]any{
				"turn_key": map[string]any{"chat_id": chatID, "turn_id": userTurnID},
				"author":   map[string]any{"is_human": true},
				"candidates": []map[string]any{
					{"candidate_id": userTurnID, "raw_content": text},
				},
				"primary_candidate_id": userTurnID,
			},
		},
	}
	if err := d.write(ctx, conn, cmd); err != nil {
		return dialogue.Reply{}, errorsx.Wrap(err, errorsx.ReasonDialogueSend)
	}

	// The agent streams partial turns; wait for the final agent candidate.
	for {
		var resp wsResponse
		if err := d.read(ctx, conn, &resp); err != nil {
			return dialogue.Reply{}, errorsx.Wrap(err, errorsx.ReasonDialogueSend)
		}
		if resp.Command == "neo_error" {
			return dialogue.Reply{}, errorsx.New(errorsx.ReasonDialogueSend, "characterai: generation error")
		}
		if resp.Command != "add_turn" && resp.Command != "update_turn" {
			continue
		}
		var payload turnPayload
		if err := json.Unmarshal(resp.Payload, &payload); err != nil {
			return dialogue.Reply{}, errorsx.Wrap(err, errorsx.ReasonDialogueSend)
		}
		if payload.Turn.Author.IsHuman {
			continue
		}
		reply, done := primaryCandidate(payload)
		if !done {
			continue
		}
		if reply.Text == "" {
			return dialogue.Reply{}, dialogue.ErrNoReply
		}
		return reply, nil
	}
}

func primaryCandidate(payload turnPayload) (dialogue.Reply, bool) {
	primary := payload.Turn.PrimaryCandidateID
	for _, cand := range payload.Turn.Candidates {
		if !cand.IsFinal {
			continue
		}
		if primary != "" && cand.CandidateID != primary {
			continue
		}
		return dialogue.Reply{
			Text:        cand.RawContent,
			ChatID:      payload.Turn.TurnKey.ChatID,
			TurnID:      payload.Turn.TurnKey.TurnID,
			CandidateID: cand.CandidateID,
		}, true
	}
	return dialogue.Reply{}, false
}

func (d *DialogueService) write(ctx context.Context, conn *websocket.Conn, cmd wsCommand) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	return conn.WriteJSON(cmd)
}

func (d *DialogueService) read(ctx context.Context, conn *websocket.Conn, out *wsResponse) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	return conn.ReadJSON(out)
}

var _ dialogue.Service = (*DialogueService)(nil)
