package turn

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/voxa/pkg/adapters/dialogue"
	"github.com/harunnryd/voxa/pkg/adapters/transcribe"
	"github.com/harunnryd/voxa/pkg/errorsx"
	"github.com/harunnryd/voxa/pkg/providers/mock"
	"github.com/harunnryd/voxa/pkg/session"
)

type engineFixture struct {
	voice    *mock.Voice
	capture  *mock.Capture
	stt      *mock.Transcribe
	dialogue *mock.Dialogue
	synth    *mock.Synth
	engine   *Engine
	sess     *session.Session
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		voice: mock.NewVoice(mock.VoiceConfig{
			Connected:    true,
			Channel:      "vc-1",
			Participants: map[string]string{"P1": "vc-1"},
		}),
		capture:  mock.NewCapture(mock.CaptureConfig{Audio: map[string][]byte{"P1": []byte("...")}}),
		stt:      mock.NewTranscribe(mock.TranscribeResult{Text: "hello"}),
		dialogue: mock.NewDialogue(mock.DialogueResult{Reply: dialogue.Reply{Text: "hi there", CandidateID: "c1", ChatID: "chat-1", TurnID: "t-1"}}),
		synth:    mock.NewSynth(mock.SynthConfig{Audio: []byte{0x00, 0x01}}),
		sess:     session.New("guild-1", "chan-1"),
	}
	f.engine = NewEngine(
		Config{AgentID: "agent-1", VoiceID: "voice-1", CaptureDuration: 5 * time.Millisecond, ServiceTimeout: time.Second},
		f.voice, f.voice, f.voice, f.capture, f.stt, f.dialogue, f.synth, nil,
	)
	return f
}

func TestRunTurnHappyPath(t *testing.T) {
	f := newEngineFixture(t)

	out := f.engine.RunTurn(context.Background(), f.sess, "P1")
	if out.Failed() {
		t.Fatalf("expected done, got %s (%v)", out.Reason, out.Err)
	}
	if out.Transcript != "hello" {
		t.Fatalf("transcript = %q", out.Transcript)
	}
	if out.Reply.Text != "hi there" || out.Reply.CandidateID != "c1" {
		t.Fatalf("reply = %+v", out.Reply)
	}

	notes := f.voice.Notifications()
	if len(notes) != 4 {
		t.Fatalf("expected exactly 4 status notifications, got %d: %v", len(notes), notes)
	}
	wantOrder := []string{"Listening", "hello", "hi there", "Playing"}
	for i, want := range wantOrder {
		if !strings.Contains(notes[i], want) {
			t.Fatalf("notification %d = %q, want substring %q", i, notes[i], want)
		}
	}
	if f.voice.PlayCalls() != 1 {
		t.Fatalf("expected one playback, got %d", f.voice.PlayCalls())
	}
}

func TestRunTurnParticipantAbsent(t *testing.T) {
	f := newEngineFixture(t)
	f.voice.SetParticipant("P1", "")

	out := f.engine.RunTurn(context.Background(), f.sess, "P1")
	if out.Reason != errorsx.ReasonParticipantAbsent {
		t.Fatalf("expected participant_absent, got %s", out.Reason)
	}
	if f.capture.Starts() != 0 {
		t.Fatalf("capture must not start when participant is absent")
	}
	if len(f.voice.Notifications()) != 0 {
		t.Fatalf("no stage notifications expected, got %v", f.voice.Notifications())
	}
}

func TestRunTurnParticipantInOtherChannel(t *testing.T) {
	f := newEngineFixture(t)
	f.voice.SetParticipant("P1", "vc-2")

	out := f.engine.RunTurn(context.Background(), f.sess, "P1")
	if out.Reason != errorsx.ReasonParticipantAbsent {
		t.Fatalf("expected participant_absent, got %s", out.Reason)
	}
}

func TestRunTurnNoAudio(t *testing.T) {
	f := newEngineFixture(t)
	f.capture.SetAudio(map[string][]byte{"P2": []byte("other speaker")})

	out := f.engine.RunTurn(context.Background(), f.sess, "P1")
	if out.Reason != errorsx.ReasonNoAudio {
		t.Fatalf("expected no_audio, got %s", out.Reason)
	}
	if f.stt.Calls() != 0 {
		t.Fatalf("transcription must not run without audio")
	}
}

func TestRunTurnUnintelligible(t *testing.T) {
	f := newEngineFixture(t)
	f.stt = mock.NewTranscribe(mock.TranscribeResult{Err: transcribe.ErrUnintelligible})
	f.engine = NewEngine(Config{CaptureDuration: time.Millisecond, ServiceTimeout: time.Second},
		f.voice, f.voice, f.voice, f.capture, f.stt, f.dialogue, f.synth, nil)

	out := f.engine.RunTurn(context.Background(), f.sess, "P1")
	if out.Reason != errorsx.ReasonUnintelligible {
		t.Fatalf("expected unintelligible, got %s", out.Reason)
	}
	if f.dialogue.Calls() != 0 {
		t.Fatalf("dialogue must not run on unintelligible audio")
	}
}

func TestRunTurnTranscriptionServiceError(t *testing.T) {
	f := newEngineFixture(t)
	f.stt = mock.NewTranscribe(mock.TranscribeResult{Err: errors.New("dial tcp: timeout")})
	f.engine = NewEngine(Config{CaptureDuration: time.Millisecond, ServiceTimeout: time.Second},
		f.voice, f.voice, f.voice, f.capture, f.stt, f.dialogue, f.synth, nil)

	out := f.engine.RunTurn(context.Background(), f.sess, "P1")
	if out.Reason != errorsx.ReasonSTTService {
		t.Fatalf("expected stt_service, got %s", out.Reason)
	}
	if errorsx.Reason(out.Err) != errorsx.ReasonSTTService {
		t.Fatalf("outcome error must carry the reason, got %s", errorsx.Reason(out.Err))
	}
}

func TestRunTurnDialogueFailures(t *testing.T) {
	cases := []struct {
		name   string
		result mock.DialogueResult
		want   errorsx.ReasonCode
	}{
		{"no reply sentinel", mock.DialogueResult{Err: dialogue.ErrNoReply}, errorsx.ReasonNoDialogueReply},
		{"empty primary candidate", mock.DialogueResult{Reply: dialogue.Reply{}}, errorsx.ReasonNoDialogueReply},
		{"service error", mock.DialogueResult{Err: errors.New("500 internal")}, errorsx.ReasonDialogueService},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newEngineFixture(t)
			f.dialogue = mock.NewDialogue(tc.result)
			f.engine = NewEngine(Config{CaptureDuration: time.Millisecond, ServiceTimeout: time.Second},
				f.voice, f.voice, f.voice, f.capture, f.stt, f.dialogue, f.synth, nil)

			out := f.engine.RunTurn(context.Background(), f.sess, "P1")
			if out.Reason != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, out.Reason)
			}
			if f.synth.Calls() != 0 {
				t.Fatalf("synthesis must not run after a dialogue failure")
			}
		})
	}
}

func TestRunTurnSynthesisFailed(t *testing.T) {
	f := newEngineFixture(t)
	f.synth = mock.NewSynth(mock.SynthConfig{})
	f.engine = NewEngine(Config{CaptureDuration: time.Millisecond, ServiceTimeout: time.Second},
		f.voice, f.voice, f.voice, f.capture, f.stt, f.dialogue, f.synth, nil)

	out := f.engine.RunTurn(context.Background(), f.sess, "P1")
	if out.Reason != errorsx.ReasonSynthesisFailed {
		t.Fatalf("expected synthesis_failed, got %s", out.Reason)
	}
	if f.voice.PlayCalls() != 0 {
		t.Fatalf("nothing should play after synthesis failure")
	}
}

func TestRunTurnPlaybackBusy(t *testing.T) {
	f := newEngineFixture(t)
	f.voice.SetBusy("guild-1", true)

	out := f.engine.RunTurn(context.Background(), f.sess, "P1")
	if out.Reason != errorsx.ReasonPlaybackBusy {
		t.Fatalf("expected playback_busy, got %s", out.Reason)
	}
	if f.voice.PlayCalls() != 0 {
		t.Fatalf("busy player must decline, not queue")
	}
}

func TestRunTurnPlayerErrorStillCompletes(t *testing.T) {
	f := newEngineFixture(t)
	f.voice = mock.NewVoice(mock.VoiceConfig{
		Connected:    true,
		Channel:      "vc-1",
		Participants: map[string]string{"P1": "vc-1"},
		PlayErr:      errors.New("encoder died"),
	})
	f.engine = NewEngine(Config{CaptureDuration: time.Millisecond, ServiceTimeout: time.Second},
		f.voice, f.voice, f.voice, f.capture, f.stt, f.dialogue, f.synth, nil)

	out := f.engine.RunTurn(context.Background(), f.sess, "P1")
	if out.Failed() {
		t.Fatalf("player errors end the wait but the turn is complete, got %s", out.Reason)
	}
	if out.Err == nil {
		t.Fatalf("player error must be surfaced on the outcome")
	}
}

func TestRunTurnVoiceConnectionLost(t *testing.T) {
	f := newEngineFixture(t)
	f.voice.SetConnected(false)

	out := f.engine.RunTurn(context.Background(), f.sess, "P1")
	if out.Reason != errorsx.ReasonVoiceConnLost {
		t.Fatalf("expected voice_connection_lost, got %s", out.Reason)
	}
}

func TestRunTurnStopInterruptsCaptureWait(t *testing.T) {
	f := newEngineFixture(t)
	f.engine = NewEngine(Config{CaptureDuration: 5 * time.Second, ServiceTimeout: time.Second},
		f.voice, f.voice, f.voice, f.capture, f.stt, f.dialogue, f.synth, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	out := f.engine.RunTurn(ctx, f.sess, "P1")
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cancel did not interrupt the capture wait, took %s", elapsed)
	}
	// Capture is stopped regardless; the buffered audio still flows through.
	if out.Failed() && out.Reason != errorsx.ReasonNoAudio {
		t.Fatalf("unexpected outcome %s", out.Reason)
	}
}
