package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harunnryd/voxa/pkg/adapters/capture"
	"github.com/harunnryd/voxa/pkg/adapters/dialogue"
	"github.com/harunnryd/voxa/pkg/adapters/synth"
	"github.com/harunnryd/voxa/pkg/adapters/transcribe"
	"github.com/harunnryd/voxa/pkg/adapters/voicechat"
	"github.com/harunnryd/voxa/pkg/errorsx"
	"github.com/harunnryd/voxa/pkg/logging"
	"github.com/harunnryd/voxa/pkg/redact"
	"github.com/harunnryd/voxa/pkg/session"
)

// Outcome is the terminal result of one engine invocation. Reason is empty
// for a completed turn and carries the failure taxonomy otherwise.
type Outcome struct {
	Reason     errorsx.ReasonCode
	Transcript string
	Reply      dialogue.Reply
	Err        error
}

// Failed reports whether the turn ended without playing a reply.
func (o Outcome) Failed() bool { return o.Reason != "" }

// Config carries the knobs one turn needs.
type Config struct {
	AgentID         string
	VoiceID         string
	CaptureDuration time.Duration
	ServiceTimeout  time.Duration
}

// Engine runs the five-stage pipeline for one participant and reports a
// terminal outcome. It never schedules follow-up turns; that is the loop
// controller's job.
type Engine struct {
	cfg      Config
	voice    voicechat.SessionProvider
	player   voicechat.Player
	notifier voicechat.Notifier
	capture  capture.Service
	stt      transcribe.Service
	dialogue dialogue.Service
	synth    synth.Service
	logger   *slog.Logger
}

func NewEngine(
	cfg Config,
	voice voicechat.SessionProvider,
	player voicechat.Player,
	notifier voicechat.Notifier,
	cap capture.Service,
	stt transcribe.Service,
	dlg dialogue.Service,
	syn synth.Service,
	logger *slog.Logger,
) *Engine {
	if cfg.CaptureDuration <= 0 {
		cfg.CaptureDuration = 10 * time.Second
	}
	if cfg.ServiceTimeout <= 0 {
		cfg.ServiceTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		voice:    voice,
		player:   player,
		notifier: notifier,
		capture:  cap,
		stt:      stt,
		dialogue: dlg,
		synth:    syn,
		logger:   logging.NewComponentLogger(logger, "turn_engine"),
	}
}

// RunTurn executes capture, transcription, query, synthesis and playback for
// one participant. Status messages are emitted in stage order; failures are
// reported only through the outcome, the caller owns failure notifications.
func (e *Engine) RunTurn(ctx context.Context, sess *session.Session, participantID string) Outcome {
	t := &Turn{
		ID:            uuid.NewString(),
		SessionID:     sess.ID,
		ParticipantID: participantID,
		StartedAt:     time.Now(),
		stages:        newStageMachine(),
	}
	log := e.logger.With(
		slog.String("turn_id", t.ID),
		slog.String("session_id", sess.ID),
		slog.String("participant_id", participantID),
	)

	pcm, out := e.captureStage(ctx, t, sess, log)
	if out != nil {
		return *out
	}

	text, out := e.transcribeStage(ctx, t, sess, pcm, log)
	if out != nil {
		return *out
	}

	reply, out := e.queryStage(ctx, t, sess, text, log)
	if out != nil {
		return *out
	}

	audio, out := e.synthesizeStage(ctx, t, reply, log)
	if out != nil {
		return *out
	}

	return e.playStage(ctx, t, sess, text, reply, audio, log)
}

func (e *Engine) captureStage(ctx context.Context, t *Turn, sess *session.Session, log *slog.Logger) ([]byte, *Outcome) {
	if !e.voice.IsConnected(sess.ID) {
		return nil, e.fail(t, errorsx.ReasonVoiceConnLost, nil, log)
	}
	botChannel, err := e.voice.ChannelID(sess.ID)
	if err != nil {
		return nil, e.fail(t, errorsx.ReasonVoiceConnLost, err, log)
	}
	participantChannel, ok := e.voice.ParticipantChannel(sess.ID, t.ParticipantID)
	if !ok || participantChannel != botChannel {
		// Not a conversation-ending error by itself; the caller decides.
		return nil, e.fail(t, errorsx.ReasonParticipantAbsent, nil, log)
	}

	e.notify(ctx, sess, fmt.Sprintf("Listening to <@%s> for %d seconds...", t.ParticipantID, int(e.cfg.CaptureDuration.Seconds())))

	handle, err := e.capture.Start(ctx, sess.ID)
	if err != nil {
		return nil, e.fail(t, errorsx.ReasonCaptureStart, err, log)
	}

	// Fixed-duration capture. A manual stop cancels ctx and skips straight
	// to stopping the capture.
	select {
	case <-time.After(e.cfg.CaptureDuration):
	case <-ctx.Done():
	}

	byParticipant, err := e.capture.Stop(handle)
	if err != nil {
		return nil, e.fail(t, errorsx.ReasonCaptureStart, err, log)
	}
	pcm := byParticipant[t.ParticipantID]
	if len(pcm) == 0 {
		return nil, e.fail(t, errorsx.ReasonNoAudio, nil, log)
	}
	log.Debug("capture complete", slog.Int("bytes", len(pcm)))
	return pcm, nil
}

func (e *Engine) transcribeStage(ctx context.Context, t *Turn, sess *session.Session, pcm []byte, log *slog.Logger) (string, *Outcome) {
	_ = t.stages.Advance(StageTranscribing)

	cctx, cancel := context.WithTimeout(ctx, e.cfg.ServiceTimeout)
	text, err := e.stt.Transcribe(cctx, pcm)
	cancel()
	if errors.Is(err, transcribe.ErrUnintelligible) {
		return "", e.fail(t, errorsx.ReasonUnintelligible, err, log)
	}
	if err != nil {
		return "", e.fail(t, errorsx.ReasonSTTService, err, log)
	}

	e.notify(ctx, sess, fmt.Sprintf("You (<@%s>) said: %q", t.ParticipantID, redact.Text(text)))
	return text, nil
}

func (e *Engine) queryStage(ctx context.Context, t *Turn, sess *session.Session, text string, log *slog.Logger) (dialogue.Reply, *Outcome) {
	_ = t.stages.Advance(StageQuerying)

	cctx, cancel := context.WithTimeout(ctx, e.cfg.ServiceTimeout)
	reply, err := e.dialogue.Send(cctx, e.cfg.AgentID, sess.ID, text)
	cancel()
	if errors.Is(err, dialogue.ErrNoReply) {
		return dialogue.Reply{}, e.fail(t, errorsx.ReasonNoDialogueReply, err, log)
	}
	if err != nil {
		return dialogue.Reply{}, e.fail(t, errorsx.ReasonDialogueService, err, log)
	}
	if reply.Text == "" {
		return dialogue.Reply{}, e.fail(t, errorsx.ReasonNoDialogueReply, nil, log)
	}

	e.notify(ctx, sess, "Agent: "+redact.Text(reply.Text))
	return reply, nil
}

func (e *Engine) synthesizeStage(ctx context.Context, t *Turn, reply dialogue.Reply, log *slog.Logger) ([]byte, *Outcome) {
	_ = t.stages.Advance(StageSynthesizing)

	cctx, cancel := context.WithTimeout(ctx, e.cfg.ServiceTimeout)
	audio, err := e.synth.Synthesize(cctx, reply, e.cfg.VoiceID)
	cancel()
	if err != nil {
		return nil, e.fail(t, errorsx.ReasonSynthesisFailed, err, log)
	}
	if len(audio) == 0 {
		return nil, e.fail(t, errorsx.ReasonSynthesisFailed, nil, log)
	}
	return audio, nil
}

func (e *Engine) playStage(ctx context.Context, t *Turn, sess *session.Session, text string, reply dialogue.Reply, audio []byte, log *slog.Logger) Outcome {
	_ = t.stages.Advance(StagePlaying)

	if !e.voice.IsConnected(sess.ID) {
		return *e.fail(t, errorsx.ReasonVoiceConnLost, nil, log)
	}
	// Busy players decline; dropping the playback beats serializing turns
	// indefinitely, the reply text already reached the text channel.
	if e.player.IsPlaying(sess.ID) {
		return *e.fail(t, errorsx.ReasonPlaybackBusy, nil, log)
	}

	e.notify(ctx, sess, "Playing the agent's reply...")

	err := e.player.Play(ctx, sess.ID, audio)
	if err != nil {
		// Player-reported errors end the playback wait but the turn still
		// completed its cycle; surface the error for observability only.
		log.Warn("playback error", slog.String("error", err.Error()))
	}
	_ = t.stages.Advance(StageDone)
	log.Info("turn complete",
		slog.Duration("elapsed", time.Since(t.StartedAt)),
		slog.Int("reply_chars", len(reply.Text)))
	return Outcome{Transcript: text, Reply: reply, Err: err}
}

func (e *Engine) fail(t *Turn, reason errorsx.ReasonCode, err error, log *slog.Logger) *Outcome {
	failedAt := t.Stage()
	_ = t.stages.Advance(StageFailed)
	log.Warn("turn failed",
		slog.String("stage", failedAt.String()),
		slog.String("reason", string(reason)),
		slog.Any("error", err))
	return &Outcome{Reason: reason, Err: errorsx.Wrap(err, reason)}
}

func (e *Engine) notify(ctx context.Context, sess *session.Session, text string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, sess.ChannelID, text); err != nil {
		e.logger.Warn("notify failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()))
	}
}
