package convo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/voxa/pkg/adapters/voicechat"
	"github.com/harunnryd/voxa/pkg/errorsx"
	"github.com/harunnryd/voxa/pkg/logging"
	"github.com/harunnryd/voxa/pkg/metrics"
	"github.com/harunnryd/voxa/pkg/session"
	"github.com/harunnryd/voxa/pkg/turn"
)

// ErrConversationActive is returned by RecordOnce while the scope already
// has a loop or a one-shot turn running.
var ErrConversationActive = errorsx.New(errorsx.ReasonConversationActive, "conversation mode is active")

// Engine runs one full turn. Narrow on purpose so the controller can be
// tested with fakes.
type Engine interface {
	RunTurn(ctx context.Context, sess *session.Session, participantID string) turn.Outcome
}

type Config struct {
	// MaxSoftRetries bounds consecutive NoAudio/Unintelligible retries
	// before the loop gives up instead of listening forever.
	MaxSoftRetries int
}

// Controller owns the per-session conversation loop: after each turn it
// decides, from the session's active flag and the turn outcome, whether to
// schedule the next turn. The next turn is only ever started from the
// previous turn's completion, never speculatively, so at most one turn per
// session is in flight.
type Controller struct {
	cfg      Config
	sessions *session.Registry
	engine   Engine
	voice    voicechat.SessionProvider
	notifier voicechat.Notifier
	observer metrics.Observer
	logger   *slog.Logger

	mu       sync.Mutex
	loops    map[string]*loop
	oneShots map[string]struct{}
}

type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(
	cfg Config,
	sessions *session.Registry,
	engine Engine,
	voice voicechat.SessionProvider,
	notifier voicechat.Notifier,
	observer metrics.Observer,
	logger *slog.Logger,
) *Controller {
	if cfg.MaxSoftRetries <= 0 {
		cfg.MaxSoftRetries = 3
	}
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:      cfg,
		sessions: sessions,
		engine:   engine,
		voice:    voice,
		notifier: notifier,
		observer: observer,
		logger:   logging.NewComponentLogger(logger, "convo"),
		loops:    make(map[string]*loop),
		oneShots: make(map[string]struct{}),
	}
}

// Start creates the session and launches the conversation loop for the
// initiating participant. Fails with session.ErrAlreadyActive when a loop or
// a one-shot turn is already running for that scope.
func (c *Controller) Start(scopeID, participantID, channelID string) error {
	c.mu.Lock()
	if c.occupiedLocked(scopeID) {
		c.mu.Unlock()
		return session.ErrAlreadyActive
	}
	sess, err := c.sessions.Create(scopeID, channelID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{cancel: cancel, done: make(chan struct{})}
	c.loops[scopeID] = l
	c.mu.Unlock()

	c.logger.Info("conversation started",
		slog.String("session_id", scopeID),
		slog.String("participant_id", participantID))
	go c.run(ctx, l, sess, participantID)
	return nil
}

func (c *Controller) run(ctx context.Context, l *loop, sess *session.Session, participantID string) {
	defer func() {
		// Remove the session before the loop entry so that once Running
		// reports false the registry is already clean.
		c.sessions.Remove(sess.ID)
		c.mu.Lock()
		delete(c.loops, sess.ID)
		c.mu.Unlock()
		close(l.done)
		c.logger.Info("conversation ended", slog.String("session_id", sess.ID))
	}()

	softFailures := 0
	for {
		started := time.Now()
		out := c.engine.RunTurn(ctx, sess, participantID)
		c.record(sess.ID, out, time.Since(started))

		// Manual stop lets the in-flight turn finish, then ends the loop
		// without scheduling or notifying anything further.
		if !sess.Active() {
			return
		}

		if !out.Failed() {
			softFailures = 0
			continue
		}

		switch {
		case out.Reason == errorsx.ReasonParticipantAbsent:
			c.notify(ctx, sess, fmt.Sprintf("<@%s> is no longer in my voice channel, stopping the conversation.", participantID))
			c.sessions.Deactivate(sess.ID)
			return

		case errorsx.SoftFailure(out.Reason):
			softFailures++
			if softFailures > c.cfg.MaxSoftRetries {
				c.notify(ctx, sess, fmt.Sprintf("I still can't hear <@%s>, stopping the conversation.", participantID))
				c.sessions.Deactivate(sess.ID)
				return
			}
			c.notify(ctx, sess, retryMessage(out.Reason, participantID))
			continue

		case out.Reason == errorsx.ReasonPlaybackBusy:
			// Skipped playback, not a terminal error; the participant gets
			// another turn even though the previous reply never played.
			c.notify(ctx, sess, "Already playing audio, that reply was skipped. Listening again...")
			continue

		default:
			// Service/configuration failures will not self-heal by retrying.
			c.notify(ctx, sess, failureMessage(out))
			c.sessions.Deactivate(sess.ID)
			return
		}
	}
}

// Stop deactivates the loop, halts in-progress capture/playback and
// disconnects the voice connection. Idempotent; an in-flight turn finishes
// on its own, no next turn is scheduled.
func (c *Controller) Stop(ctx context.Context, scopeID string) {
	c.halt(ctx, scopeID, true)
}

// StopConversation ends conversation mode for the scope. Like Stop it halts
// audio and disconnects the voice connection; it exists as the semantically
// explicit way to end an active conversation.
func (c *Controller) StopConversation(ctx context.Context, scopeID string) {
	c.halt(ctx, scopeID, true)
}

func (c *Controller) halt(ctx context.Context, scopeID string, disconnect bool) {
	c.sessions.Deactivate(scopeID)
	c.mu.Lock()
	l := c.loops[scopeID]
	c.mu.Unlock()
	if l != nil {
		// Interrupts a turn waiting out the capture window; turns blocked on
		// an external call run to completion, the loop just will not go on.
		l.cancel()
	}
	c.voice.StopAudio(scopeID)
	if disconnect {
		if err := c.voice.Disconnect(ctx, scopeID); err != nil {
			c.logger.Warn("disconnect failed",
				slog.String("session_id", scopeID),
				slog.String("error", err.Error()))
		}
	}
}

// RecordOnce runs exactly one turn without entering the loop. Fails with
// ErrConversationActive while the scope is occupied by a loop or another
// one-shot turn. The scope stays occupied until the turn finishes, so a
// concurrent Start cannot overlap a second turn onto it.
func (c *Controller) RecordOnce(ctx context.Context, scopeID, participantID, channelID string) (turn.Outcome, error) {
	c.mu.Lock()
	if c.occupiedLocked(scopeID) {
		c.mu.Unlock()
		return turn.Outcome{}, ErrConversationActive
	}
	c.oneShots[scopeID] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.oneShots, scopeID)
		c.mu.Unlock()
	}()

	sess := session.New(scopeID, channelID)
	started := time.Now()
	out := c.engine.RunTurn(ctx, sess, participantID)
	c.record(scopeID, out, time.Since(started))
	if out.Failed() {
		c.notify(ctx, sess, failureMessage(out))
	}
	return out, nil
}

// occupiedLocked reports whether any turn can currently be in flight for the
// scope, either through the loop or a one-shot. Callers hold c.mu.
func (c *Controller) occupiedLocked(scopeID string) bool {
	if _, running := c.loops[scopeID]; running {
		return true
	}
	_, busy := c.oneShots[scopeID]
	return busy
}

// Running reports whether a conversation loop is active for the scope.
func (c *Controller) Running(scopeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.loops[scopeID]
	return ok
}

// Drain stops every loop and waits for in-flight turns to finish.
func (c *Controller) Drain() error {
	c.mu.Lock()
	loops := make(map[string]*loop, len(c.loops))
	for id, l := range c.loops {
		loops[id] = l
	}
	c.mu.Unlock()

	for id, l := range loops {
		c.sessions.Deactivate(id)
		l.cancel()
	}
	for _, l := range loops {
		<-l.done
	}
	return nil
}

func (c *Controller) record(scopeID string, out turn.Outcome, elapsed time.Duration) {
	reason := string(out.Reason)
	if reason == "" {
		reason = "done"
	}
	c.observer.RecordEvent(metrics.MetricsEvent{
		Name:  "turn_outcome",
		Time:  time.Now(),
		Value: elapsed.Seconds(),
		Tags: map[string]string{
			"session_id": scopeID,
			"reason":     reason,
		},
	})
}

func (c *Controller) notify(ctx context.Context, sess *session.Session, text string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, sess.ChannelID, text); err != nil {
		c.logger.Warn("notify failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()))
	}
}

func retryMessage(reason errorsx.ReasonCode, participantID string) string {
	if reason == errorsx.ReasonNoAudio {
		return fmt.Sprintf("I couldn't record any audio from <@%s>. Listening again...", participantID)
	}
	return fmt.Sprintf("Sorry <@%s>, I couldn't understand that. Listening again...", participantID)
}

func failureMessage(out turn.Outcome) string {
	switch out.Reason {
	case errorsx.ReasonSTTService:
		return "The transcription service is unavailable, stopping the conversation."
	case errorsx.ReasonNoDialogueReply:
		return "The agent did not return a usable reply, stopping the conversation."
	case errorsx.ReasonDialogueService:
		return "The dialogue service failed, stopping the conversation."
	case errorsx.ReasonSynthesisFailed:
		return "Speech generation failed, stopping the conversation."
	case errorsx.ReasonVoiceConnLost:
		return "The voice connection was lost, stopping the conversation."
	case errorsx.ReasonNoAudio:
		return "I couldn't record any audio this time."
	case errorsx.ReasonUnintelligible:
		return "I couldn't understand that audio."
	case errorsx.ReasonPlaybackBusy:
		return "Already playing audio, the reply was not played."
	case errorsx.ReasonParticipantAbsent:
		return "You need to be in my voice channel."
	default:
		return "The conversation stopped: " + string(out.Reason) + "."
	}
}
