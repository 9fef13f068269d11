package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/socialchef/scribe/internal/errors"
)

// DefaultModels is the cascade used when neither env nor config.yaml sets one,
// best quality first, most available last.
var DefaultModels = []string{
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-flash-latest",
}

const DefaultPrompt = "Сделай полную и точную транскрибацию этого аудио. " +
	"Раздели текст на абзацы. Обозначай спикеров (Спикер 1, Спикер 2). " +
	"Пиши чистым текстом без markdown."

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	TelegramToken          string
	TelegramLocalServerURL string
	GoogleAPIKey           string

	// AdminID is always authorized and is the only principal allowed to
	// extend the allow-list.
	AdminID int64

	AccessFile string
	TempDir    string

	DatabaseURL string
	RedisURL    string

	AdminJWTSecret string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Port string

	Transcription TranscriptionConfig
}

type TranscriptionConfig struct {
	Models       []string
	Prompt       string
	AttemptDelay time.Duration
	CallTimeout  time.Duration
}

// Headers parses OTEL_EXPORTER_OTLP_HEADERS ("k1=v1,k2=v2").
func (c *Config) Headers() map[string]string {
	if c.OtelExporterOTLPHeaders == "" {
		return nil
	}
	headers := make(map[string]string)
	for _, pair := range strings.Split(c.OtelExporterOTLPHeaders, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		TelegramToken:            os.Getenv("TELEGRAM_TOKEN"),
		TelegramLocalServerURL:   os.Getenv("TELEGRAM_LOCAL_SERVER_URL"),
		GoogleAPIKey:             os.Getenv("GOOGLE_API_KEY"),
		AccessFile:               os.Getenv("ACCESS_FILE"),
		TempDir:                  os.Getenv("TEMP_DIR"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		AdminJWTSecret:           os.Getenv("ADMIN_JWT_SECRET"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Port:                     os.Getenv("PORT"),
	}

	adminID, err := parseAdminID(os.Getenv("ADMIN_ID"))
	if err != nil {
		return nil, err
	}
	cfg.AdminID = adminID

	// Defaults go first so an explicit zero from env or config.yaml survives.
	cfg.SetTranscriptionDefaults()
	if err := cfg.loadTranscriptionEnv(); err != nil {
		return nil, err
	}

	// Load from YAML file if available
	if err := cfg.LoadFromYAML("config.yaml"); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// Set defaults
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "scribe"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.AccessFile == "" {
		cfg.AccessFile = "allowed_users.txt"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = "temp_data"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Transcription struct {
			Models       []string `yaml:"models"`
			Prompt       string   `yaml:"prompt"`
			AttemptDelay string   `yaml:"attempt_delay"`
			CallTimeout  string   `yaml:"call_timeout"`
		} `yaml:"transcription"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if models := cleanModels(yamlConfig.Transcription.Models); len(models) > 0 {
		c.Transcription.Models = models
	}
	if prompt := strings.TrimSpace(yamlConfig.Transcription.Prompt); prompt != "" {
		c.Transcription.Prompt = prompt
	}
	if raw := yamlConfig.Transcription.AttemptDelay; raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid transcription.attempt_delay %q: %w", raw, err)
		}
		c.Transcription.AttemptDelay = d
	}
	if raw := yamlConfig.Transcription.CallTimeout; raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid transcription.call_timeout %q: %w", raw, err)
		}
		c.Transcription.CallTimeout = d
	}

	return nil
}

func (c *Config) loadTranscriptionEnv() error {
	if raw := os.Getenv("TRANSCRIPTION_MODELS"); raw != "" {
		if models := cleanModels(strings.Split(raw, ",")); len(models) > 0 {
			c.Transcription.Models = models
		}
	}
	if raw := os.Getenv("TRANSCRIPTION_ATTEMPT_DELAY"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return errors.NewConfigurationError(fmt.Sprintf("TRANSCRIPTION_ATTEMPT_DELAY is not a duration: %q", raw), "INVALID_ATTEMPT_DELAY")
		}
		c.Transcription.AttemptDelay = d
	}
	if raw := os.Getenv("TRANSCRIPTION_CALL_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return errors.NewConfigurationError(fmt.Sprintf("TRANSCRIPTION_CALL_TIMEOUT is not a duration: %q", raw), "INVALID_CALL_TIMEOUT")
		}
		c.Transcription.CallTimeout = d
	}
	return nil
}

// SetTranscriptionDefaults fills unset fields. Zero durations count as unset
// here, so call it before applying overrides.
func (c *Config) SetTranscriptionDefaults() {
	if len(c.Transcription.Models) == 0 {
		c.Transcription.Models = append([]string(nil), DefaultModels...)
	}
	if c.Transcription.Prompt == "" {
		c.Transcription.Prompt = DefaultPrompt
	}
	if c.Transcription.AttemptDelay == 0 {
		c.Transcription.AttemptDelay = 2 * time.Second
	}
	if c.Transcription.CallTimeout == 0 {
		c.Transcription.CallTimeout = 5 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.TelegramToken == "" {
		return errors.NewConfigurationError("TELEGRAM_TOKEN is required", "MISSING_TELEGRAM_TOKEN")
	}
	if c.GoogleAPIKey == "" {
		return errors.NewConfigurationError("GOOGLE_API_KEY is required", "MISSING_GOOGLE_API_KEY")
	}
	if c.AdminID <= 0 {
		return errors.NewConfigurationError("ADMIN_ID is required", "MISSING_ADMIN_ID")
	}
	if c.Transcription.AttemptDelay < 0 {
		return errors.NewConfigurationError("transcription attempt delay must not be negative", "INVALID_ATTEMPT_DELAY")
	}
	return nil
}

func parseAdminID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewConfigurationError(fmt.Sprintf("ADMIN_ID must be a positive integer, got %q", raw), "INVALID_ADMIN_ID")
	}
	return id, nil
}

func cleanModels(models []string) []string {
	var cleaned []string
	for _, m := range models {
		if m = strings.TrimSpace(m); m != "" {
			cleaned = append(cleaned, m)
		}
	}
	return cleaned
}
