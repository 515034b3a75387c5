// Package config loads the council CLI configuration.
//
// Configuration lives under os.UserConfigDir()/council/:
//
//	~/Library/Application Support/council/   (macOS)
//	~/.config/council/                       (Linux)
//	%AppData%/council/                       (Windows)
//
// Layout:
//
//	council/
//	├── config.yaml   # server and client settings
//	└── session       # plain text: the seeker's session id
//
// A missing config file is not an error; defaults apply and environment
// variables override whatever the file says.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Providers the serve command can generate with.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds everything the CLI needs.
type Config struct {
	// Dir is the root configuration directory.
	Dir string `yaml:"-"`

	// Addr is the serve listen address.
	Addr string `yaml:"addr"`

	// DataDir is the durable store location. Empty means in-memory,
	// which loses sessions on restart.
	DataDir string `yaml:"data_dir"`

	// Provider selects the generation backend: "gemini" or "openai".
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	OpenAIAPIKey string `yaml:"openai_api_key"`

	// Catalogue is an optional YAML file replacing the built-in sages.
	Catalogue string `yaml:"catalogue"`

	// InitialCredits is the grant for new sessions. Zero keeps the
	// server default.
	InitialCredits int `yaml:"initial_credits"`

	// ServerURL is where the ask command finds a running council.
	ServerURL string `yaml:"server_url"`
}

// Load reads the configuration from the default location.
func Load() (*Config, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return LoadFrom(filepath.Join(base, "council"))
}

// LoadFrom reads the configuration rooted at a specific directory.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{
		Dir:       dir,
		Addr:      ":8080",
		Provider:  ProviderGemini,
		ServerURL: "http://localhost:8080",
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		"COUNCIL_ADDR":   &c.Addr,
		"COUNCIL_DATA":   &c.DataDir,
		"COUNCIL_SERVER": &c.ServerURL,
		"GEMINI_API_KEY": &c.GeminiAPIKey,
		"OPENAI_API_KEY": &c.OpenAIAPIKey,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("COUNCIL_PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}
}

// APIKey returns the key for the configured provider, or an error naming
// what is missing.
func (c *Config) APIKey() (string, error) {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return "", fmt.Errorf("gemini_api_key not set (config.yaml or GEMINI_API_KEY)")
		}
		return c.GeminiAPIKey, nil
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return "", fmt.Errorf("openai_api_key not set (config.yaml or OPENAI_API_KEY)")
		}
		return c.OpenAIAPIKey, nil
	default:
		return "", fmt.Errorf("unknown provider %q", c.Provider)
	}
}

// SessionID returns the saved seeker session id, or empty if none.
func (c *Config) SessionID() string {
	data, err := os.ReadFile(filepath.Join(c.Dir, "session"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SaveSessionID persists the seeker session id for the next invocation.
func (c *Config) SaveSessionID(id string) error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(filepath.Join(c.Dir, "session"), []byte(id+"\n"), 0644)
}
