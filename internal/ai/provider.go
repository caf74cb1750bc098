// Package ai wraps language-model providers behind one interface and runs
// the bounded analysis conversation against them.
package ai

import (
	"context"
	"fmt"
	"os"
)

// Role of one conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in the orchestration conversation. Turns are ephemeral;
// only the final rendered text outlives the orchestration.
type Turn struct {
	Role    string
	Content string
}

// Reply is a provider response plus token accounting when the transport
// reports it.
type Reply struct {
	Text   string
	Tokens int
}

// Provider is the abstract AI backend. Implementations must be safe for
// concurrent use by independent analyses.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, turns []Turn) (Reply, error)
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider string // "openai" or "claude"
	Model    string // backend default when empty
	APIKey   string // read from the conventional env var when empty
}

// NewProvider builds a provider from config, falling back to environment
// variables for credentials.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("OpenAI API key not set (OPENAI_API_KEY)")
		}
		return newOpenAI(key, cfg.Model), nil
	case "claude", "":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("Anthropic API key not set (ANTHROPIC_API_KEY)")
		}
		return newClaude(key, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q (supported: claude, openai)", cfg.Provider)
	}
}
