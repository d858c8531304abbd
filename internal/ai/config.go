package ai

import (
	"strings"
	"time"
)

// Provider names the backend kind that served a call.
type Provider string

const (
	ProviderHosted Provider = "hosted"
	ProviderLocal  Provider = "local"
)

const (
	DefaultHostedModel   = "gpt-4o-mini"
	DefaultLocalModel    = "qwen3:4b"
	DefaultHostedBaseURL = "https://api.openai.com"
	DefaultTimeout       = 45 * time.Second
	DefaultStreamTimeout = 55 * time.Second
)

// Config selects and addresses the AI backends.
type Config struct {
	// OpenAIAPIKey enables the hosted backend. Takes precedence over the local one.
	OpenAIAPIKey string `yaml:"openai_api_key"`
	// OpenAIBaseURL overrides the hosted endpoint (OpenAI-compatible gateways).
	OpenAIBaseURL string `yaml:"openai_base_url"`
	// OllamaBaseURL enables the local backend.
	OllamaBaseURL string `yaml:"ollama_base_url"`
	// Timeout bounds a non-streaming call.
	Timeout time.Duration `yaml:"timeout"`
	// StreamTimeout bounds the wait for a streaming response to start.
	StreamTimeout time.Duration `yaml:"stream_timeout"`
}

// Configured returns true if at least one backend is configured.
func (c Config) Configured() bool {
	_, ok := c.Provider()
	return ok
}

// Provider returns the backend that calls will resolve to.
func (c Config) Provider() (Provider, bool) {
	switch {
	case strings.TrimSpace(c.OpenAIAPIKey) != "":
		return ProviderHosted, true
	case strings.TrimSpace(c.OllamaBaseURL) != "":
		return ProviderLocal, true
	}
	return "", false
}

// backend is a fully resolved call target.
type backend struct {
	provider Provider
	model    string
	endpoint string
	apiKey   string
}

// resolve applies the provider precedence: hosted key, then local URL.
func (c Config) resolve(model string) (backend, error) {
	provider, ok := c.Provider()
	if !ok {
		return backend{}, ErrNotConfigured
	}

	switch provider {
	case ProviderHosted:
		if model == "" {
			model = DefaultHostedModel
		}
		base := c.OpenAIBaseURL
		if base == "" {
			base = DefaultHostedBaseURL
		}
		return backend{
			provider: ProviderHosted,
			model:    model,
			endpoint: strings.TrimRight(base, "/") + "/v1/chat/completions",
			apiKey:   strings.TrimSpace(c.OpenAIAPIKey),
		}, nil
	default:
		if model == "" {
			model = DefaultLocalModel
		}
		return backend{
			provider: ProviderLocal,
			model:    model,
			endpoint: strings.TrimRight(c.OllamaBaseURL, "/") + "/api/chat",
		}, nil
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c Config) streamTimeout() time.Duration {
	if c.StreamTimeout > 0 {
		return c.StreamTimeout
	}
	return DefaultStreamTimeout
}
