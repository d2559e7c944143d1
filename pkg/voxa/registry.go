package voxa

import (
	"fmt"
	"strings"

	"github.com/harunnryd/voxa/pkg/adapters/dialogue"
	"github.com/harunnryd/voxa/pkg/adapters/synth"
	"github.com/harunnryd/voxa/pkg/adapters/transcribe"
	"github.com/harunnryd/voxa/pkg/configutil"
	"github.com/harunnryd/voxa/pkg/providers/characterai"
	"github.com/harunnryd/voxa/pkg/providers/deepgram"
	"github.com/harunnryd/voxa/pkg/providers/mock"
)

type STTFactory func(cfg Config) (transcribe.Service, error)
type DialogueFactory func(cfg Config) (dialogue.Service, error)
type SynthFactory func(cfg Config) (synth.Service, error)

type ProviderRegistry struct {
	stt      map[string]STTFactory
	dialogue map[string]DialogueFactory
	synth    map[string]SynthFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		stt:      make(map[string]STTFactory),
		dialogue: make(map[string]DialogueFactory),
		synth:    make(map[string]SynthFactory),
	}
}

func (r *ProviderRegistry) RegisterSTT(name string, factory STTFactory) {
	r.stt[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterDialogue(name string, factory DialogueFactory) {
	r.dialogue[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterSynth(name string, factory SynthFactory) {
	r.synth[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) BuildSTT(provider string, cfg Config) (transcribe.Service, error) {
	fn := r.stt[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("stt provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildDialogue(provider string, cfg Config) (dialogue.Service, error) {
	fn := r.dialogue[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("dialogue provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildSynth(provider string, cfg Config) (synth.Service, error) {
	fn := r.synth[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("synth provider not registered: %s", provider)
	}
	return fn(cfg)
}

func validateSettings(path string, settings map[string]any, schema configutil.Schema) error {
	if err := configutil.ValidateSettings(settings, schema); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

type deepgramSettings struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Language   string `mapstructure:"language"`
	SampleRate int    `mapstructure:"sample_rate"`
	Channels   int    `mapstructure:"channels"`
	Encoding   string `mapstructure:"encoding"`
}

type characteraiSettings struct {
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"`
	WSURL   string `mapstructure:"ws_url"`
}

type mockSTTSettings struct {
	Transcript string `mapstructure:"transcript"`
}

type mockDialogueSettings struct {
	ReplyText string `mapstructure:"reply_text"`
}

// RegisterDefaults wires the built-in providers. Both Character.AI services
// get their own client so mixed vendor blocks stay independent.
func RegisterDefaults(r *ProviderRegistry) {
	r.RegisterSTT("deepgram", func(cfg Config) (transcribe.Service, error) {
		if err := validateSettings("vendors.stt.settings", cfg.Vendors.STT.Settings, configutil.Schema{
			Required: []string{"api_key"},
			Optional: []string{"model", "language", "sample_rate", "channels", "encoding"},
		}); err != nil {
			return nil, err
		}
		var settings deepgramSettings
		if err := configutil.DecodeSettings(cfg.Vendors.STT.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.stt.settings.api_key"); err != nil {
			return nil, err
		}
		return deepgram.New(deepgram.Config{
			APIKey:     settings.APIKey,
			Model:      settings.Model,
			Language:   settings.Language,
			SampleRate: settings.SampleRate,
			Channels:   settings.Channels,
			Encoding:   settings.Encoding,
		})
	})

	r.RegisterDialogue("characterai", func(cfg Config) (dialogue.Service, error) {
		client, err := characteraiClient("vendors.dialogue.settings", cfg.Vendors.Dialogue.Settings)
		if err != nil {
			return nil, err
		}
		return characterai.NewDialogue(client), nil
	})

	r.RegisterSynth("characterai", func(cfg Config) (synth.Service, error) {
		client, err := characteraiClient("vendors.synth.settings", cfg.Vendors.Synth.Settings)
		if err != nil {
			return nil, err
		}
		return characterai.NewSynth(client), nil
	})

	r.RegisterSTT("mock", func(cfg Config) (transcribe.Service, error) {
		var settings mockSTTSettings
		if err := configutil.DecodeSettings(cfg.Vendors.STT.Settings, &settings); err != nil {
			return nil, err
		}
		if settings.Transcript == "" {
			return mock.NewTranscribe(), nil
		}
		return mock.NewTranscribe(mock.TranscribeResult{Text: settings.Transcript}), nil
	})

	r.RegisterDialogue("mock", func(cfg Config) (dialogue.Service, error) {
		var settings mockDialogueSettings
		if err := configutil.DecodeSettings(cfg.Vendors.Dialogue.Settings, &settings); err != nil {
			return nil, err
		}
		if settings.ReplyText == "" {
			return mock.NewDialogue(), nil
		}
		return mock.NewDialogue(mock.DialogueResult{
			Reply: dialogue.Reply{Text: settings.ReplyText, CandidateID: "mock"},
		}), nil
	})

	r.RegisterSynth("mock", func(cfg Config) (synth.Service, error) {
		// Non-empty audio so a mock-backed turn completes its playback stage.
		return mock.NewSynth(mock.SynthConfig{Audio: []byte{0x00, 0x01}}), nil
	})
}

func characteraiClient(path string, settings map[string]any) (*characterai.Client, error) {
	if err := validateSettings(path, settings, configutil.Schema{
		Required: []string{"token"},
		Optional: []string{"base_url", "ws_url"},
	}); err != nil {
		return nil, err
	}
	var s characteraiSettings
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return nil, err
	}
	return characterai.NewClient(characterai.Config{
		Token:   s.Token,
		BaseURL: s.BaseURL,
		WSURL:   s.WSURL,
	})
}
