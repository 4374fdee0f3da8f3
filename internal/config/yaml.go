package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/koscakluka/ema-voice/internal/utils"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigFile           = "EMA_CONFIG_FILE"
	emaDirName              = ".ema"
	defaultConfigFileName   = "config.yaml"
	alternateConfigFileName = "config.yml"
)

type fileConfig struct {
	API     fileAPIConfig     `yaml:"api"`
	Passive filePassiveConfig `yaml:"passive"`
	Speech  fileSpeechConfig  `yaml:"speech"`
	Feed    fileFeedConfig    `yaml:"feed"`
	Log     fileLogConfig     `yaml:"log"`
	UI      fileUIConfig      `yaml:"ui"`
}

type fileAPIConfig struct {
	BaseURL        string `yaml:"base_url"`
	ChatTimeout    string `yaml:"chat_timeout"`
	PassiveTimeout string `yaml:"passive_timeout"`
	ManualTimeout  string `yaml:"manual_timeout"`
	SpeakTimeout   string `yaml:"speak_timeout"`
}

type filePassiveConfig struct {
	PollDelay  string `yaml:"poll_delay"`
	RetryDelay string `yaml:"retry_delay"`
	MaxRetries *int   `yaml:"max_retries"`
	OnStart    *bool  `yaml:"on_start"`
}

type fileSpeechConfig struct {
	Enabled       *bool `yaml:"enabled"`
	QueueCapacity *int  `yaml:"queue_capacity"`
}

type fileFeedConfig struct {
	Addr string `yaml:"addr"`
}

type fileLogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

type fileUIConfig struct {
	Headless *bool `yaml:"headless"`
}

func (f fileConfig) apply(cfg *Config) error {
	if v := strings.TrimSpace(f.API.BaseURL); v != "" {
		cfg.BaseURL = v
	}

	durations := []struct {
		key    string
		raw    string
		target *time.Duration
	}{
		{"api.chat_timeout", f.API.ChatTimeout, &cfg.ChatTimeout},
		{"api.passive_timeout", f.API.PassiveTimeout, &cfg.PassiveTimeout},
		{"api.manual_timeout", f.API.ManualTimeout, &cfg.ManualTimeout},
		{"api.speak_timeout", f.API.SpeakTimeout, &cfg.SpeakTimeout},
		{"passive.poll_delay", f.Passive.PollDelay, &cfg.PollDelay},
		{"passive.retry_delay", f.Passive.RetryDelay, &cfg.RetryDelay},
	}
	for _, d := range durations {
		raw := strings.TrimSpace(d.raw)
		if raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.key, err)
		}
		*d.target = parsed
	}

	cfg.MaxRetries = utils.Deref(f.Passive.MaxRetries, cfg.MaxRetries)
	cfg.PassiveOnStart = utils.Deref(f.Passive.OnStart, cfg.PassiveOnStart)
	cfg.SpeechEnabled = utils.Deref(f.Speech.Enabled, cfg.SpeechEnabled)
	cfg.SpeechQueueCapacity = utils.Deref(f.Speech.QueueCapacity, cfg.SpeechQueueCapacity)
	if v := strings.TrimSpace(f.Feed.Addr); v != "" {
		cfg.FeedAddr = v
	}
	if v := strings.TrimSpace(f.Log.File); v != "" {
		cfg.LogFile = v
	}
	if v := strings.TrimSpace(f.Log.Level); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.Headless = utils.Deref(f.UI.Headless, cfg.Headless)
	return nil
}

func loadFileConfig() (fileConfig, error) {
	path, ok, err := resolveConfigFilePath()
	if err != nil {
		return fileConfig{}, err
	}
	if !ok {
		return fileConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decode config file %s: %w", path, err)
	}

	return cfg, nil
}

func resolveConfigFilePath() (string, bool, error) {
	if explicit := EnvString(EnvConfigFile); explicit != "" {
		resolvedPath, err := expandPath(explicit)
		if err != nil {
			return "", false, fmt.Errorf("resolve %s: %w", EnvConfigFile, err)
		}
		info, err := os.Stat(resolvedPath)
		if err != nil {
			return "", false, fmt.Errorf("config file %s: %w", resolvedPath, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config file %s is a directory", resolvedPath)
		}
		return resolvedPath, true, nil
	}

	candidates := []string{
		filepath.Join(emaDirName, defaultConfigFileName),
		filepath.Join(emaDirName, alternateConfigFileName),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(homeDir, emaDirName, defaultConfigFileName),
			filepath.Join(homeDir, emaDirName, alternateConfigFileName),
		)
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", false, fmt.Errorf("config path %s is a directory", candidate)
			}
			return candidate, true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat config file %s: %w", candidate, err)
		}
	}

	return "", false, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" {
		return os.UserHomeDir()
	}
	if strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(trimmed, "~/")), nil
	}
	return trimmed, nil
}
