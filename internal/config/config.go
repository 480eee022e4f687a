// Package config handles loading and persisting user configuration
// for sapphire. Settings are stored in ~/.sapphire/settings.json.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	dirName  = ".sapphire"
	fileName = "settings.json"

	defaultModel     = "gemma3:latest"
	defaultOllamaURL = "http://localhost:11434"
	defaultEmbed     = "nomic-embed-text"

	envKeyHome        = "SAPPHIRE_HOME"
	envKeyModel       = "SAPPHIRE_MODEL"
	envKeyOllamaURL   = "SAPPHIRE_OLLAMA_URL"
	envKeyIdleTimeout = "SAPPHIRE_IDLE_TIMEOUT"
	envKeyEmbedModel  = "SAPPHIRE_EMBED_MODEL"
)

// ErrUnknownKey is returned by Set for a key that is not a setting.
var ErrUnknownKey = errors.New("unknown setting")

// Config holds the user's settings.
type Config struct {
	Theme     string `json:"theme"`
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
	AIEnabled bool   `json:"aiEnabled"`
	Model     string `json:"aiModel"`
	OllamaURL string `json:"ollamaURL"`
	// IdleTimeoutSec aborts a stream after that many seconds without data.
	// Zero disables it.
	IdleTimeoutSec int `json:"idleTimeout"`
	// EmbedModel embeds notes for similarity search.
	EmbedModel string `json:"embedModel"`
}

// Keys lists the settings accepted by Set, in display order.
var Keys = []string{"theme", "sortBy", "sortOrder", "aiEnabled", "aiModel", "ollamaURL", "idleTimeout", "embedModel"}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Theme:      "dark",
		SortBy:     "updatedAt",
		SortOrder:  "desc",
		AIEnabled:  true,
		Model:      defaultModel,
		OllamaURL:  defaultOllamaURL,
		EmbedModel: defaultEmbed,
	}
}

// IdleTimeout returns the idle-chunk timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	if c.IdleTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.IdleTimeoutSec) * time.Second
}

// Dir returns the configuration directory path. SAPPHIRE_HOME overrides it.
func Dir() string {
	if d := os.Getenv(envKeyHome); d != "" {
		return d
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}

// Path returns the settings file path.
func Path() string {
	return filepath.Join(Dir(), fileName)
}

// Load reads the settings from disk, .env files and environment variables.
// A missing or corrupt settings file yields the defaults.
func Load() (*Config, error) {
	// Variables already in the environment win over .env files.
	_ = godotenv.Load(filepath.Join(Dir(), ".env"))
	_ = godotenv.Load()

	cfg := read()

	if model := os.Getenv(envKeyModel); model != "" {
		cfg.Model = model
	}
	if u := os.Getenv(envKeyOllamaURL); u != "" {
		cfg.OllamaURL = u
	}
	if m := os.Getenv(envKeyEmbedModel); m != "" {
		cfg.EmbedModel = m
	}
	if v := os.Getenv(envKeyIdleTimeout); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			cfg.IdleTimeoutSec = secs
		}
	}

	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.OllamaURL == "" {
		cfg.OllamaURL = defaultOllamaURL
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = defaultEmbed
	}

	return cfg, nil
}

// read returns the settings file merged over the defaults, ignoring the
// environment.
func read() *Config {
	cfg := Default()
	data, err := os.ReadFile(Path())
	if err == nil {
		_ = json.Unmarshal(data, cfg)
	}
	return cfg
}

// Save persists the settings to disk.
func Save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	return os.WriteFile(Path(), data, 0o600)
}

// Set validates and stores a single setting in the settings file.
// Environment overrides are not written back.
func Set(key, value string) error {
	cfg := read()
	if err := cfg.apply(key, value); err != nil {
		return err
	}
	return Save(cfg)
}

// SetModel saves the model preference to the settings file.
func SetModel(model string) error {
	return Set("aiModel", model)
}

// Get returns the string form of a setting.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "theme":
		return c.Theme, nil
	case "sortBy":
		return c.SortBy, nil
	case "sortOrder":
		return c.SortOrder, nil
	case "aiEnabled":
		return strconv.FormatBool(c.AIEnabled), nil
	case "aiModel":
		return c.Model, nil
	case "ollamaURL":
		return c.OllamaURL, nil
	case "idleTimeout":
		return strconv.Itoa(c.IdleTimeoutSec), nil
	case "embedModel":
		return c.EmbedModel, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

func (c *Config) apply(key, value string) error {
	switch key {
	case "theme":
		if err := oneOf(key, value, "dark", "light"); err != nil {
			return err
		}
		c.Theme = value
	case "sortBy":
		if err := oneOf(key, value, "updatedAt", "createdAt", "title"); err != nil {
			return err
		}
		c.SortBy = value
	case "sortOrder":
		if err := oneOf(key, value, "asc", "desc"); err != nil {
			return err
		}
		c.SortOrder = value
	case "aiEnabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("aiEnabled must be true or false, got %q", value)
		}
		c.AIEnabled = b
	case "aiModel":
		if value == "" {
			return errors.New("aiModel cannot be empty")
		}
		c.Model = value
	case "ollamaURL":
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("ollamaURL must be an http(s) URL, got %q", value)
		}
		c.OllamaURL = value
	case "idleTimeout":
		secs, err := strconv.Atoi(value)
		if err != nil || secs < 0 {
			return fmt.Errorf("idleTimeout must be a number of seconds >= 0, got %q", value)
		}
		c.IdleTimeoutSec = secs
	case "embedModel":
		if value == "" {
			return errors.New("embedModel cannot be empty")
		}
		c.EmbedModel = value
	default:
		return fmt.Errorf("%w: %q (known: %v)", ErrUnknownKey, key, Keys)
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s must be one of %v, got %q", key, allowed, value)
}
