package voxa

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/harunnryd/voxa/pkg/convo"
	"github.com/harunnryd/voxa/pkg/metrics"
	discordprovider "github.com/harunnryd/voxa/pkg/providers/discord"
	"github.com/harunnryd/voxa/pkg/redact"
	"github.com/harunnryd/voxa/pkg/session"
	"github.com/harunnryd/voxa/pkg/turn"
)

// Engine wires the chat session, providers and conversation controller into
// one runnable app. Satisfies runner.Drainer so shutdown waits for in-flight
// turns.
type Engine struct {
	cfg        Config
	logger     *slog.Logger
	discord    *discordgo.Session
	voice      *discordprovider.Provider
	controller *convo.Controller
	commands   *commandHandler
	metricsOut *os.File
}

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	Logger    *slog.Logger
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	redact.SetEnabled(cfg.Privacy.RedactPII)

	providers := opts.Providers
	if providers == nil {
		providers = NewProviderRegistry()
		RegisterDefaults(providers)
	}

	stt, err := providers.BuildSTT(cfg.Vendors.STT.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("build stt: %w", err)
	}
	dlg, err := providers.BuildDialogue(cfg.Vendors.Dialogue.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("build dialogue: %w", err)
	}
	syn, err := providers.BuildSynth(cfg.Vendors.Synth.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("build synth: %w", err)
	}

	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildVoiceStates |
		discordgo.IntentMessageContent

	voice := discordprovider.NewProvider(dg, logger)
	capture := discordprovider.NewCapture(voice)

	observer, metricsOut, err := buildObserver(cfg)
	if err != nil {
		return nil, err
	}

	engine := turn.NewEngine(
		turn.Config{
			AgentID:         cfg.Agent.CharacterID,
			VoiceID:         cfg.Agent.VoiceID,
			CaptureDuration: time.Duration(cfg.Convo.CaptureDurationMS) * time.Millisecond,
			ServiceTimeout:  time.Duration(cfg.Convo.ServiceTimeoutMS) * time.Millisecond,
		},
		voice, voice, voice,
		capture, stt, dlg, syn,
		logger,
	)

	controller := convo.NewController(
		convo.Config{MaxSoftRetries: cfg.Convo.MaxSoftRetries},
		session.NewRegistry(),
		engine,
		voice, voice,
		observer,
		logger,
	)

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		discord:    dg,
		voice:      voice,
		controller: controller,
		metricsOut: metricsOut,
	}
	e.commands = newCommandHandler(e)
	dg.AddHandler(e.commands.handleMessage)

	slog.Info("voxa_init",
		"environment", cfg.Environment,
		"stt_provider", cfg.Vendors.STT.Provider,
		"dialogue_provider", cfg.Vendors.Dialogue.Provider,
		"synth_provider", cfg.Vendors.Synth.Provider,
	)
	return e, nil
}

func buildObserver(cfg Config) (metrics.Observer, *os.File, error) {
	memory := metrics.NewMemoryObserver()
	path := cfg.Observability.MetricsPath
	if path == "" {
		return memory, nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open metrics file: %w", err)
	}
	return metrics.NewMultiObserver(memory, metrics.NewJSONLObserver(f)), f, nil
}

// Start opens the gateway connection. Commands flow in through the
// message-create handler from here on.
func (e *Engine) Start() error {
	if err := e.discord.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	e.logger.Info("gateway connected", slog.String("prefix", e.cfg.Discord.CommandPrefix))
	return nil
}

// Drain stops all conversation loops, waits for in-flight turns and closes
// the gateway connection.
func (e *Engine) Drain() error {
	if err := e.controller.Drain(); err != nil {
		e.logger.Warn("drain failed", slog.String("error", err.Error()))
	}
	err := e.discord.Close()
	if e.metricsOut != nil {
		if cerr := e.metricsOut.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
