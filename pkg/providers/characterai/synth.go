package characterai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/harunnryd/voxa/pkg/adapters/dialogue"
	"github.com/harunnryd/voxa/pkg/adapters/synth"
	"github.com/harunnryd/voxa/pkg/errorsx"
	"github.com/harunnryd/voxa/pkg/resilience"
)

const replayPath = "/multimodal/api/v1/memo/replay"

type replayRequest struct {
	RoomID      string `json:"roomId"`
	TurnID      string `json:"turnId"`
	CandidateID string `json:"candidateId"`
	VoiceID     string `json:"voiceId"`
}

type replayResponse struct {
	ReplayURL string `json:"replayUrl"`
}

// SynthService voices a specific generated candidate with a configured
// Character.AI voice. The reply metadata pins the exact candidate.
type SynthService struct {
	client *Client
	retry  resilience.RetryPolicy
	logger *slog.Logger
}

func NewSynth(client *Client) *SynthService {
	return &SynthService{
		client: client,
		retry:  resilience.NewRetryPolicy(2, 250*time.Millisecond),
		logger: client.logger.With(slog.String("component", "characterai_synth")),
	}
}

func (s *SynthService) Name() string { return "characterai_synth" }

func (s *SynthService) Synthesize(ctx context.Context, reply dialogue.Reply, voiceID string) ([]byte, error) {
	if reply.ChatID == "" || reply.TurnID == "" || reply.CandidateID == "" {
		return nil, errorsx.New(errorsx.ReasonSynthesisFailed, "reply is missing speech identifiers")
	}

	req := replayRequest{
		RoomID:      reply.ChatID,
		TurnID:      reply.TurnID,
		CandidateID: reply.CandidateID,
		VoiceID:     voiceID,
	}

	var audio []byte
	err := s.retry.Do(ctx, func() error {
		var resp replayResponse
		if err := s.client.postJSON(ctx, replayPath, req, &resp); err != nil {
			return err
		}
		if resp.ReplayURL == "" {
			return errors.New("characterai: replay returned no audio url")
		}
		data, err := s.client.getBytes(ctx, resp.ReplayURL)
		if err != nil {
			return err
		}
		audio = data
		return nil
	})
	if err != nil {
		s.logger.Error("speech generation failed",
			slog.String("turn_id", reply.TurnID),
			slog.String("error", err.Error()))
		return nil, errorsx.Wrap(err, errorsx.ReasonSynthesisFailed)
	}

	s.logger.Debug("speech generated",
		slog.String("turn_id", reply.TurnID),
		slog.Int("bytes", len(audio)))
	return audio, nil
}

var _ synth.Service = (*SynthService)(nil)
