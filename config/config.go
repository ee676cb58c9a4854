package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Chat    ChatConfig    `yaml:"chat"`
	Storage StorageConfig `yaml:"storage"`
	Breaker BreakerConfig `yaml:"breaker"`
	Log     LogConfig     `yaml:"log"`
}

type AudioConfig struct {
	// Source is "microphone" or "file".
	Source           string        `yaml:"source"`
	Dir              string        `yaml:"dir"`
	SampleRate       int           `yaml:"sample_rate"`
	MaxSeconds       int           `yaml:"max_seconds"`
	SilenceThreshold int           `yaml:"silence_threshold"`
	SilenceSeconds   float64       `yaml:"silence_seconds"`
	PollInterval     time.Duration `yaml:"poll_interval"`
}

type OpenAIConfig struct {
	BaseURL            string        `yaml:"base_url"`
	TranscriptionModel string        `yaml:"transcription_model"`
	ChatModel          string        `yaml:"chat_model"`
	Language           string        `yaml:"language"`
	Timeout            time.Duration `yaml:"timeout"`
	RequestsPerMinute  int           `yaml:"requests_per_minute"`
}

type ChatConfig struct {
	SystemPrompt        string `yaml:"system_prompt"`
	KeepFailedQuestions bool   `yaml:"keep_failed_questions"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type BreakerConfig struct {
	Enabled     *bool         `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// IsEnabled defaults to true when the key is absent.
func (b BreakerConfig) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Output is "stderr", "stdout" or a file path.
	Output string `yaml:"output"`
}

// Load reads the YAML file at path, expanding ${VAR} references from the
// environment. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Audio.Source == "" {
		c.Audio.Source = "microphone"
	}
	if c.Audio.Dir == "" {
		c.Audio.Dir = "./audio"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.MaxSeconds == 0 {
		c.Audio.MaxSeconds = 30
	}
	if c.Audio.SilenceThreshold == 0 {
		c.Audio.SilenceThreshold = 500
	}
	if c.Audio.SilenceSeconds == 0 {
		c.Audio.SilenceSeconds = 1.5
	}
	if c.Audio.PollInterval == 0 {
		c.Audio.PollInterval = 500 * time.Millisecond
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = "whisper-1"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4-turbo"
	}
	if c.OpenAI.Timeout == 0 {
		c.OpenAI.Timeout = 60 * time.Second
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStoragePath()
	}
	if c.Breaker.MaxFailures == 0 {
		c.Breaker.MaxFailures = 5
	}
	if c.Breaker.Timeout == 0 {
		c.Breaker.Timeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stderr"
	}
}

func (c *Config) validate() error {
	switch c.Audio.Source {
	case "microphone", "file":
	default:
		return fmt.Errorf("invalid audio.source %q: must be microphone or file", c.Audio.Source)
	}
	if c.Audio.SilenceThreshold < 0 || c.Audio.SilenceThreshold > 32767 {
		return fmt.Errorf("invalid audio.silence_threshold %d", c.Audio.SilenceThreshold)
	}
	if c.OpenAI.RequestsPerMinute < 0 {
		return fmt.Errorf("invalid openai.requests_per_minute %d", c.OpenAI.RequestsPerMinute)
	}
	return nil
}

func defaultStoragePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "voiceqa", "assistant.db")
}
