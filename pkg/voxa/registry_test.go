package voxa

import (
	"context"
	"testing"
)

func defaultsRegistry() *ProviderRegistry {
	r := NewProviderRegistry()
	RegisterDefaults(r)
	return r
}

func TestBuildMockProviders(t *testing.T) {
	r := defaultsRegistry()
	cfg := Config{
		Vendors: VendorsConfig{
			STT:      VendorConfig{Provider: "mock", Settings: map[string]any{"transcript": "hello"}},
			Dialogue: VendorConfig{Provider: "mock", Settings: map[string]any{"reply_text": "hi there"}},
			Synth:    VendorConfig{Provider: "mock"},
		},
	}

	stt, err := r.BuildSTT(cfg.Vendors.STT.Provider, cfg)
	if err != nil {
		t.Fatalf("BuildSTT: %v", err)
	}
	text, err := stt.Transcribe(context.Background(), []byte("..."))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello" {
		t.Fatalf("transcript = %q, want hello", text)
	}

	dlg, err := r.BuildDialogue(cfg.Vendors.Dialogue.Provider, cfg)
	if err != nil {
		t.Fatalf("BuildDialogue: %v", err)
	}
	reply, err := dlg.Send(context.Background(), "agent", "scope", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Text != "hi there" {
		t.Fatalf("reply = %q, want hi there", reply.Text)
	}

	if _, err := r.BuildSynth(cfg.Vendors.Synth.Provider, cfg); err != nil {
		t.Fatalf("BuildSynth: %v", err)
	}
}

func TestBuildUnknownProvider(t *testing.T) {
	r := defaultsRegistry()
	if _, err := r.BuildSTT("nope", Config{}); err == nil {
		t.Fatalf("expected error for unregistered provider")
	}
}

func TestDeepgramRequiresAPIKey(t *testing.T) {
	r := defaultsRegistry()
	cfg := Config{
		Vendors: VendorsConfig{
			STT: VendorConfig{Provider: "deepgram", Settings: map[string]any{"model": "nova-2"}},
		},
	}
	if _, err := r.BuildSTT("deepgram", cfg); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestCharacterAIRequiresToken(t *testing.T) {
	r := defaultsRegistry()
	cfg := Config{
		Vendors: VendorsConfig{
			Dialogue: VendorConfig{Provider: "characterai", Settings: map[string]any{}},
		},
	}
	if _, err := r.BuildDialogue("characterai", cfg); err == nil {
		t.Fatalf("expected error for missing token")
	}
}
