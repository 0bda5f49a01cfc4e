// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"live-speech-translator/internal/models"
)

// Configuration holds all service configuration.
type Configuration struct {
	Service       ServiceConfig
	Session       SessionConfig
	Providers     ProviderConfig
	Tuning        TuningConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Principal   string // logical identity used as event principal
	HTTPAddr    string // control API listen address
	MetricsAddr string // observability server listen address
}

// SessionConfig holds the user-facing session settings.
type SessionConfig struct {
	SourceLanguage string // BCP-47 tag, e.g. "en-US"
	TargetLanguage string // BCP-47 tag, e.g. "fr-FR"
	InputMode      models.InputMode
	PlayMode       models.PlayMode
}

// ProviderConfig selects and configures the active providers.
type ProviderConfig struct {
	Recognizer        string // gateway, google, mock
	Synthesizer       string // deepgram, elevenlabs, mock
	GatewayURL        string
	GatewayAPIKey     string
	DeepgramAPIKey    string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
}

// TuningConfig holds empirically tuned policy parameters. These are policy,
// not correctness, knobs.
type TuningConfig struct {
	OverlapRatio     float64       // common-prefix share that marks a duplicate final
	MinOverlapLength int           // minimum previous-final length for overlap removal
	PromoteMinLength int           // minimum interim length for pseudo-final promotion
	StabilityWindow  time.Duration // quiet period before speaking a provisional translation
	StabilityEnabled bool          // speak incremental (pre-final) translations
	ConnectTimeout   time.Duration // provider connect deadline
}

// KafkaConfig configures transcript event export.
type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	TopicPartial     string
	TopicFinal       string
	TopicTranslation string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// Load reads configuration from the environment, applying defaults.
func Load() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal:   envOrDefault("SERVICE_PRINCIPAL", "svc-live-translator"),
			HTTPAddr:    envOrDefault("HTTP_ADDR", ":8080"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
		Session: SessionConfig{
			SourceLanguage: envOrDefault("SOURCE_LANGUAGE", "en-US"),
			TargetLanguage: envOrDefault("TARGET_LANGUAGE", "zh-CN"),
			InputMode:      models.ParseInputMode(envOrDefault("INPUT_MODE", "pushToTalk")),
			PlayMode:       models.ParsePlayMode(envOrDefault("PLAY_MODE", "all")),
		},
		Providers: ProviderConfig{
			Recognizer:        envOrDefault("RECOGNIZER_PROVIDER", "mock"),
			Synthesizer:       envOrDefault("SYNTHESIZER_PROVIDER", "mock"),
			GatewayURL:        envOrDefault("GATEWAY_URL", "wss://localhost:8443/v1/stream"),
			GatewayAPIKey:     os.Getenv("GATEWAY_API_KEY"),
			DeepgramAPIKey:    os.Getenv("DEEPGRAM_API_KEY"),
			ElevenLabsAPIKey:  os.Getenv("ELEVENLABS_API_KEY"),
			ElevenLabsVoiceID: os.Getenv("ELEVENLABS_VOICE_ID"),
		},
		Tuning: TuningConfig{
			OverlapRatio:     envFloat("TUNING_OVERLAP_RATIO", 0.7),
			MinOverlapLength: envInt("TUNING_MIN_OVERLAP_LENGTH", 5),
			PromoteMinLength: envInt("TUNING_PROMOTE_MIN_LENGTH", 10),
			StabilityWindow:  envDuration("TUNING_STABILITY_WINDOW", time.Second),
			StabilityEnabled: envBool("TUNING_STABILITY_ENABLED", false),
			ConnectTimeout:   envDuration("CONNECT_TIMEOUT", 15*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:          envBool("KAFKA_ENABLED", false),
			Brokers:          envList("KAFKA_BROKERS", nil),
			TopicPartial:     envOrDefault("KAFKA_TOPIC_PARTIAL", "session.transcript.partial"),
			TopicFinal:       envOrDefault("KAFKA_TOPIC_FINAL", "session.transcript.final"),
			TopicTranslation: envOrDefault("KAFKA_TOPIC_TRANSLATION", "session.translation.bound"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
