package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/model"
)

// maxPromptChars bounds how much document text goes into a single prompt.
const maxPromptChars = 8000

// Extractor is the AI extraction tier. It paces calls, retries rate-limit
// responses with exponential backoff, and filters results below the
// configured confidence floor. It does not touch the circuit breaker; the
// cascade owns that, so a skipped call can never be counted as a failure.
type Extractor struct {
	client        Client
	pacer         *pacer
	clock         common.Clock
	logger        *slog.Logger
	provider      string
	retryOpts     common.RetryOptions
	minConfidence int
}

// NewExtractor creates the AI tier from configuration.
func NewExtractor(cfg Config, clock common.Clock, logger *slog.Logger) (*Extractor, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}
	return NewExtractorWithClient(client, cfg, clock, logger), nil
}

// NewExtractorWithClient creates the AI tier around an existing client.
func NewExtractorWithClient(client Client, cfg Config, clock common.Clock, logger *slog.Logger) *Extractor {
	if clock == nil {
		clock = common.NewSystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	minConfidence := cfg.MinConfidence
	if minConfidence == 0 {
		minConfidence = 70
	}

	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = "openai"
	}

	return &Extractor{
		client:        client,
		pacer:         newPacer(cfg.MinInterval, clock),
		clock:         clock,
		logger:        logger,
		provider:      provider,
		retryOpts:     cfg.Retry,
		minConfidence: minConfidence,
	}
}

// MinConfidence returns the tier's confidence floor.
func (e *Extractor) MinConfidence() int {
	return e.minConfidence
}

// ExtractTransactions asks the AI capability for transactions in the text.
// Rate-limit responses are retried with backoff; exhausting the retries (or
// any other provider error) returns an error so the caller can count exactly
// one failure against the breaker. A successful call that yields nothing
// usable returns an empty slice and no error.
func (e *Extractor) ExtractTransactions(ctx context.Context, text string, opCtx model.OperationContext) ([]model.Candidate, error) {
	prompt := buildPrompt(text, opCtx)

	var content string
	err := common.WithRetry(ctx, e.clock, e.retryOpts,
		func(err error) bool { return errors.Is(err, common.ErrRateLimit) },
		func() error {
			if err := e.pacer.wait(ctx); err != nil {
				return err
			}
			out, err := e.client.Generate(ctx, prompt)
			if err != nil {
				return err
			}
			content = out
			return nil
		})
	if err != nil {
		return nil, err
	}

	candidates, err := ParseCandidates(content)
	if err != nil {
		// The provider answered; a garbled answer is an empty result,
		// not a capability failure.
		e.logger.Warn("unparseable AI response",
			"operation", opCtx.OperationID,
			"error", err)
		return nil, nil
	}

	kept := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence < e.minConfidence {
			e.logger.Debug("dropping low-confidence AI candidate",
				"confidence", c.Confidence,
				"floor", e.minConfidence)
			continue
		}
		c.Reasoning = fmt.Sprintf("ai tier (%s): %s", e.provider, reasonFor(c))
		kept = append(kept, c)
	}

	e.logger.Info("AI extraction completed",
		"operation", opCtx.OperationID,
		"parsed", len(candidates),
		"kept", len(kept))

	return kept, nil
}

func reasonFor(c model.Candidate) string {
	if c.Description != "" {
		return c.Description
	}
	return "extracted from document text"
}

func buildPrompt(text string, opCtx model.OperationContext) string {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars] + "\n[... truncated ...]"
	}

	var b strings.Builder
	b.WriteString("Analyze the following document text extracted from an email attachment ")
	b.WriteString("and list every financial transaction it describes.\n\n")
	if opCtx.Name != "" {
		fmt.Fprintf(&b, "Business operation: %s\n", opCtx.Name)
	}
	if opCtx.Client != "" {
		fmt.Fprintf(&b, "Client: %s\n", opCtx.Client)
	}
	b.WriteString(`
Respond with a JSON array. Each element must have:
- type: "payment" (money received) or "expense" (money spent)
- amount: number, the transaction amount
- currency: ISO 4217 code (USD, MXN, EUR, ...)
- date: "YYYY-MM-DD"
- description: short human-readable summary
- reference: invoice/folio/reference number if present, else omit
- confidence: integer 0-100, how certain you are this is a real transaction

Return [] if the document describes no transactions.

Document text:
`)
	b.WriteString(text)
	return b.String()
}
