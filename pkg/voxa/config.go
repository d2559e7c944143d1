package voxa

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Discord       DiscordConfig       `mapstructure:"discord"`
	Agent         AgentConfig         `mapstructure:"agent"`
	Convo         ConvoConfig         `mapstructure:"convo"`
	Vendors       VendorsConfig       `mapstructure:"vendors"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
}

type DiscordConfig struct {
	Token         string `mapstructure:"token"`
	CommandPrefix string `mapstructure:"command_prefix"`
}

type AgentConfig struct {
	CharacterID string `mapstructure:"character_id"`
	VoiceID     string `mapstructure:"voice_id"`
}

type ConvoConfig struct {
	CaptureDurationMS int `mapstructure:"capture_duration_ms"`
	MaxSoftRetries    int `mapstructure:"max_soft_retries"`
	ServiceTimeoutMS  int `mapstructure:"service_timeout_ms"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	STT      VendorConfig `mapstructure:"stt"`
	Dialogue VendorConfig `mapstructure:"dialogue"`
	Synth    VendorConfig `mapstructure:"synth"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

type ObservabilityConfig struct {
	MetricsPath string `mapstructure:"metrics_path"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("discord.command_prefix", "!")
	v.SetDefault("convo.capture_duration_ms", 10000)
	v.SetDefault("convo.max_soft_retries", 3)
	v.SetDefault("convo.service_timeout_ms", 30000)
	v.SetDefault("vendors.stt.provider", "deepgram")
	v.SetDefault("vendors.dialogue.provider", "characterai")
	v.SetDefault("vendors.synth.provider", "characterai")
	v.SetDefault("privacy.redact_pii", true)
	v.SetDefault("observability.metrics_path", "")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return fmt.Errorf("discord.token is required")
	}
	if strings.TrimSpace(c.Agent.CharacterID) == "" {
		return fmt.Errorf("agent.character_id is required")
	}
	if strings.TrimSpace(c.Vendors.STT.Provider) == "" {
		return fmt.Errorf("vendors.stt.provider is required")
	}
	if strings.TrimSpace(c.Vendors.Dialogue.Provider) == "" {
		return fmt.Errorf("vendors.dialogue.provider is required")
	}
	if strings.TrimSpace(c.Vendors.Synth.Provider) == "" {
		return fmt.Errorf("vendors.synth.provider is required")
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.STT.Settings = expandSettings(cfg.Vendors.STT.Settings)
	cfg.Vendors.Dialogue.Settings = expandSettings(cfg.Vendors.Dialogue.Settings)
	cfg.Vendors.Synth.Settings = expandSettings(cfg.Vendors.Synth.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	}
}
