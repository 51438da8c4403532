package engine

import (
	"context"
	"log/slog"

	"github.com/finsift/finsift/internal/breaker"
	"github.com/finsift/finsift/internal/model"
)

// minTextLength is the threshold below which extracted text is treated as
// insufficient for any text-based tier.
const minTextLength = 50

// Detection is the outcome of running one document through the cascade.
type Detection struct {
	Method     model.DetectionMethod
	Text       string
	Candidates []model.Candidate
}

// Cascade runs the extraction tiers in strict order: text extraction, then
// the AI tier gated by the circuit breaker, then the rule-based fallback.
// Tier failures fall through; the cascade itself never fails on document
// content.
type Cascade struct {
	router  TextRouter
	ai      AIExtractor
	rules   RuleAnalyzer
	breaker *breaker.Breaker
	logger  *slog.Logger
}

// NewCascade wires the tiers together. The breaker instance is owned by the
// caller and shared with nothing else; the cascade is its only writer.
func NewCascade(router TextRouter, ai AIExtractor, rules RuleAnalyzer, brk *breaker.Breaker, logger *slog.Logger) *Cascade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cascade{
		router:  router,
		ai:      ai,
		rules:   rules,
		breaker: brk,
		logger:  logger,
	}
}

// Detect runs the cascade over one attachment. An empty result with
// MethodNone is a valid terminal outcome, not an error; errors are reserved
// for caller defects and infrastructure faults outside document content.
func (c *Cascade) Detect(ctx context.Context, binary []byte, filename string, opCtx model.OperationContext) (Detection, error) {
	result, err := c.router.Extract(ctx, binary, filename)
	if err != nil {
		// Adapters absorb corrupt input themselves; a router error is
		// unexpected but still must not lose the document.
		c.logger.Warn("text extraction failed", "file", filename, "error", err)
		result.Text = ""
	}
	text := result.Text

	detection := Detection{Method: model.MethodNone, Text: text}

	if len(text) >= minTextLength {
		if candidates, ok := c.tryAI(ctx, text, opCtx); ok && len(candidates) > 0 {
			detection.Method = model.MethodAI
			detection.Candidates = candidates
			return detection, nil
		}
	}

	if text != "" {
		if candidates := c.rules.Analyze(text, opCtx); len(candidates) > 0 {
			detection.Method = model.MethodRuleBased
			if result.OCR {
				detection.Method = model.MethodOCR
			}
			detection.Candidates = candidates
			return detection, nil
		}
	}

	c.logger.Info("no tier produced candidates", "file", filename, "operation", opCtx.OperationID)
	return detection, nil
}

// tryAI runs the AI tier under the circuit breaker. The boolean reports
// whether a call was actually made and succeeded; a skipped call (breaker
// open) or a failed call both read as "tier produced nothing".
func (c *Cascade) tryAI(ctx context.Context, text string, opCtx model.OperationContext) ([]model.Candidate, bool) {
	if !c.breaker.CanCall() {
		c.logger.Warn("ai tier skipped, circuit open", "operation", opCtx.OperationID)
		return nil, false
	}

	candidates, err := c.ai.ExtractTransactions(ctx, text, opCtx)
	if err != nil {
		// Retries already happened at the call site; this is one failure.
		c.breaker.RecordFailure()
		c.logger.Warn("ai tier failed, falling through",
			"operation", opCtx.OperationID,
			"error", err)
		return nil, false
	}

	// A successful call counts even when it found nothing.
	c.breaker.RecordSuccess()
	return candidates, true
}
