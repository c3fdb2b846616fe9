package config

import (
	"fmt"
	"os"

	"github.com/timmy/narrator/internal/domain"
)

// ProviderCredentials maps a backend name to its credentials.
type ProviderCredentials map[string]ProviderConfig

// ProviderConfig defines configuration for a single generation backend.
type ProviderConfig struct {
	Model     string `mapstructure:"model"`       // Model name/ID
	APIKey    string `mapstructure:"api_key"`     // API key (can be set directly or via env var)
	APIKeyEnv string `mapstructure:"api_key_env"` // Environment variable name for API key
	BaseURL   string `mapstructure:"base_url"`    // Override for the backend endpoint
}

// ResolveEnvVars loads APIKey from APIKeyEnv when it is not set directly.
func (c *ProviderConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		if val := os.Getenv(c.APIKeyEnv); val != "" {
			c.APIKey = val
		}
	}
}

var (
	speechBackends = map[string]bool{"elevenlabs": true, "openai": true}
	imageBackends  = map[string]bool{"deepinfra": true, "pollinations": true, "airforce": true, "together": true}
	// keyless backends work without an API key
	keyless = map[string]bool{"pollinations": true, "airforce": true}
)

// Chain returns the primary backend followed by its fallbacks, without duplicates.
func (c *SpeechConfig) Chain() []string { return chain(c.Provider, c.Fallbacks) }

// Chain returns the primary backend followed by its fallbacks, without duplicates.
func (c *ImageConfig) Chain() []string { return chain(c.Provider, c.Fallbacks) }

func chain(primary string, fallbacks []string) []string {
	seen := map[string]bool{primary: true}
	out := []string{primary}
	for _, f := range fallbacks {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Validate checks the configuration for values that make a job impossible
// to run. It returns the first failure found, wrapping
// domain.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return nil
}

func (c *Config) validate() error {
	for _, name := range c.Speech.Chain() {
		if !speechBackends[name] {
			return fmt.Errorf("speech: unknown provider %q", name)
		}
		if err := c.Speech.Providers.require(name); err != nil {
			return fmt.Errorf("speech: %w", err)
		}
	}
	for _, name := range c.Image.Chain() {
		if !imageBackends[name] {
			return fmt.Errorf("image: unknown provider %q", name)
		}
		if err := c.Image.Providers.require(name); err != nil {
			return fmt.Errorf("image: %w", err)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry: max_attempts must be positive")
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry: delay must not be negative")
	}
	if c.Job.MaxSegmentDuration <= 0 {
		return fmt.Errorf("job: max_segment_duration must be positive")
	}
	if c.Job.SubtitleMaxChars <= 0 {
		return fmt.Errorf("job: subtitle_max_chars must be positive")
	}
	if c.Job.ReelsMinChars <= 0 || c.Job.StoryMinChars <= 0 {
		return fmt.Errorf("job: min chars must be positive")
	}
	if c.Job.Concurrency < 1 {
		return fmt.Errorf("job: concurrency must be at least 1")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	return nil
}

func (p ProviderCredentials) require(name string) error {
	if keyless[name] {
		return nil
	}
	pc := p[name]
	pc.ResolveEnvVars()
	if pc.APIKey == "" {
		return fmt.Errorf("provider %q: api_key is required", name)
	}
	p[name] = pc
	return nil
}
