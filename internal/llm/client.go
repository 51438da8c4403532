// Package llm implements the AI extraction tier: provider clients, response
// parsing, call pacing, and retry around rate limits.
package llm

import (
	"context"
	"time"

	"github.com/finsift/finsift/internal/common"
)

// Client defines the interface for AI providers. Responses are raw text with
// JSON embedded; rate-limit responses surface as common.ErrRateLimit.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds configuration for the AI extraction tier.
type Config struct {
	Provider      string
	APIKey        string
	Model         string
	MinInterval   time.Duration
	Temperature   float64
	MaxTokens     int
	MinConfidence int
	Retry         common.RetryOptions
}
