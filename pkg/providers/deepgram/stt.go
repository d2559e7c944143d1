package deepgram

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	listenv1rest "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/harunnryd/voxa/pkg/adapters/transcribe"
	"github.com/harunnryd/voxa/pkg/errorsx"
	"github.com/harunnryd/voxa/pkg/logging"
)

type Config struct {
	APIKey     string
	Model      string
	Language   string
	SampleRate int
	Channels   int
	Encoding   string
}

// Transcriber sends a whole capture buffer to Deepgram's prerecorded API.
// Batch rather than streaming: the capture window is fixed-duration, the
// audio is complete before transcription starts.
type Transcriber struct {
	cfg    Config
	rest   *listenv1rest.Client
	logger *slog.Logger
}

func New(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing deepgram api key")
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 48000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 2
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "linear16"
	}

	rest := client.NewREST(cfg.APIKey, &interfaces.ClientOptions{})
	return &Transcriber{
		cfg:    cfg,
		rest:   listenv1rest.New(rest),
		logger: logging.NewComponentLogger(slog.Default(), "deepgram_stt"),
	}, nil
}

func (t *Transcriber) Name() string { return "deepgram_prerecorded" }

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       t.cfg.Model,
		Language:    t.cfg.Language,
		Encoding:    t.cfg.Encoding,
		SampleRate:  t.cfg.SampleRate,
		Channels:    t.cfg.Channels,
		SmartFormat: true,
	}

	res, err := t.rest.FromStream(ctx, bytes.NewReader(audio), options)
	if err != nil {
		t.logger.Error("transcription request failed",
			slog.Int("bytes", len(audio)),
			slog.String("error", err.Error()))
		return "", errorsx.Wrap(err, errorsx.ReasonSTTService)
	}

	if res == nil || len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
		return "", transcribe.ErrUnintelligible
	}
	alt := res.Results.Channels[0].Alternatives[0]
	text := strings.TrimSpace(alt.Transcript)
	if text == "" {
		return "", transcribe.ErrUnintelligible
	}

	t.logger.Debug("transcription complete",
		slog.Int("chars", len(text)),
		slog.Float64("confidence", alt.Confidence))
	return text, nil
}

var _ transcribe.Service = (*Transcriber)(nil)
