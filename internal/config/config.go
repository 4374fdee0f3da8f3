package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL             = "http://localhost:8000/api"
	defaultChatTimeout         = 120 * time.Second
	defaultPassiveTimeout      = 90 * time.Second
	defaultManualTimeout       = 30 * time.Second
	defaultSpeakTimeout        = 15 * time.Second
	defaultPollDelay           = time.Second
	defaultRetryDelay          = 5 * time.Second
	defaultMaxRetries          = 5
	defaultSpeechEnabled       = true
	defaultSpeechQueueCapacity = 10
	defaultLogFile             = ".ema/ema-voice.log"
	defaultLogLevel            = "info"
)

const (
	EnvBaseURL             = "EMA_API_BASE_URL"
	EnvChatTimeout         = "EMA_CHAT_TIMEOUT"
	EnvPassiveTimeout      = "EMA_PASSIVE_TIMEOUT"
	EnvManualTimeout       = "EMA_MANUAL_TIMEOUT"
	EnvSpeakTimeout        = "EMA_SPEAK_TIMEOUT"
	EnvPollDelay           = "EMA_PASSIVE_POLL_DELAY"
	EnvRetryDelay          = "EMA_PASSIVE_RETRY_DELAY"
	EnvMaxRetries          = "EMA_PASSIVE_MAX_RETRIES"
	EnvPassiveOnStart      = "EMA_PASSIVE_ON_START"
	EnvSpeechEnabled       = "EMA_SPEECH_ENABLED"
	EnvSpeechQueueCapacity = "EMA_SPEECH_QUEUE_CAPACITY"
	EnvFeedAddr            = "EMA_FEED_ADDR"
	EnvLogFile             = "EMA_LOG_FILE"
	EnvLogLevel            = "EMA_LOG_LEVEL"
	EnvHeadless            = "EMA_HEADLESS"
)

type Config struct {
	BaseURL string

	ChatTimeout    time.Duration
	PassiveTimeout time.Duration
	ManualTimeout  time.Duration
	SpeakTimeout   time.Duration

	PollDelay      time.Duration
	RetryDelay     time.Duration
	MaxRetries     int
	PassiveOnStart bool

	SpeechEnabled       bool
	SpeechQueueCapacity int

	// FeedAddr is the listen address of the timeline feed. Empty disables it.
	FeedAddr string

	LogFile  string
	LogLevel string

	// Headless skips the terminal UI and listens passively until interrupted.
	Headless bool
}

func Default() Config {
	return Config{
		BaseURL:             defaultBaseURL,
		ChatTimeout:         defaultChatTimeout,
		PassiveTimeout:      defaultPassiveTimeout,
		ManualTimeout:       defaultManualTimeout,
		SpeakTimeout:        defaultSpeakTimeout,
		PollDelay:           defaultPollDelay,
		RetryDelay:          defaultRetryDelay,
		MaxRetries:          defaultMaxRetries,
		SpeechEnabled:       defaultSpeechEnabled,
		SpeechQueueCapacity: defaultSpeechQueueCapacity,
		LogFile:             defaultLogFile,
		LogLevel:            defaultLogLevel,
	}
}

// Load builds the configuration from defaults, the config file if one is
// found, and EMA_* environment variables, in that order of precedence.
func Load() (Config, error) {
	cfg := Default()

	file, err := loadFileConfig()
	if err != nil {
		return Config{}, err
	}
	if err := file.apply(&cfg); err != nil {
		return Config{}, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := EnvString(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	c.ChatTimeout = parseDurationEnv(EnvChatTimeout, c.ChatTimeout)
	c.PassiveTimeout = parseDurationEnv(EnvPassiveTimeout, c.PassiveTimeout)
	c.ManualTimeout = parseDurationEnv(EnvManualTimeout, c.ManualTimeout)
	c.SpeakTimeout = parseDurationEnv(EnvSpeakTimeout, c.SpeakTimeout)
	c.PollDelay = parseDurationEnv(EnvPollDelay, c.PollDelay)
	c.RetryDelay = parseDurationEnv(EnvRetryDelay, c.RetryDelay)
	c.MaxRetries = parseIntEnv(EnvMaxRetries, c.MaxRetries)
	c.PassiveOnStart = parseBoolEnv(EnvPassiveOnStart, c.PassiveOnStart)
	c.SpeechEnabled = parseBoolEnv(EnvSpeechEnabled, c.SpeechEnabled)
	c.SpeechQueueCapacity = parseIntEnv(EnvSpeechQueueCapacity, c.SpeechQueueCapacity)
	if v, ok := os.LookupEnv(EnvFeedAddr); ok {
		c.FeedAddr = strings.TrimSpace(v)
	}
	if v := EnvString(EnvLogFile); v != "" {
		c.LogFile = v
	}
	if v := EnvString(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	c.Headless = parseBoolEnv(EnvHeadless, c.Headless)
}

func (c Config) Validate() error {
	parsed, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL", EnvBaseURL)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{EnvChatTimeout, c.ChatTimeout},
		{EnvPassiveTimeout, c.PassiveTimeout},
		{EnvManualTimeout, c.ManualTimeout},
		{EnvSpeakTimeout, c.SpeakTimeout},
		{EnvPollDelay, c.PollDelay},
		{EnvRetryDelay, c.RetryDelay},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be > 0", d.name)
		}
	}

	if c.MaxRetries <= 0 {
		return fmt.Errorf("%s must be > 0", EnvMaxRetries)
	}
	if c.SpeechQueueCapacity <= 0 {
		return fmt.Errorf("%s must be > 0", EnvSpeechQueueCapacity)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s must be one of debug, info, warn or error", EnvLogLevel)
	}
	return nil
}

func EnvString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := EnvString(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseIntEnv(key string, fallback int) int {
	raw := EnvString(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseBoolEnv(key string, fallback bool) bool {
	raw := strings.ToLower(EnvString(key))
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
