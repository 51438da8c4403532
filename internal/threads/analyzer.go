package threads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/model"
)

// TransactionExtractor is the AI tier as the thread analyzer sees it.
type TransactionExtractor interface {
	ExtractTransactions(ctx context.Context, text string, opCtx model.OperationContext) ([]model.Candidate, error)
}

// autoReplyMarkers short-circuit analysis when found in the latest message.
var autoReplyMarkers = []string{
	"out of office",
	"automatic reply",
	"auto-reply",
	"autoreply",
	"unsubscribe",
	"do not reply",
	"no-reply",
	"noreply",
	"fuera de oficina",
	"respuesta automatica",
}

// actionKeywords mark a conversation as worth analyzing. A thread whose last
// three messages contain none of these is skipped before cache or AI.
var actionKeywords = []string{
	"invoice",
	"factura",
	"payment",
	"pago",
	"receipt",
	"recibo",
	"transfer",
	"transferencia",
	"deposit",
	"deposito",
	"attached",
	"adjunto",
	"total",
	"amount",
	"monto",
	"quote",
	"cotizacion",
	"charge",
	"cargo",
}

// Analyzer answers "does this conversation describe transactions" while
// touching the AI tier as rarely as possible.
type Analyzer struct {
	extractor TransactionExtractor
	cache     *Cache
	clock     common.Clock
	logger    *slog.Logger
	settings  Settings
}

// NewAnalyzer creates a thread analyzer at the given optimization level.
func NewAnalyzer(extractor TransactionExtractor, level OptimizationLevel, clock common.Clock, logger *slog.Logger) *Analyzer {
	if clock == nil {
		clock = common.NewSystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	settings := level.Settings()

	return &Analyzer{
		extractor: extractor,
		cache:     NewCache(settings.CacheTTL, clock),
		clock:     clock,
		logger:    logger,
		settings:  settings,
	}
}

// Cache exposes the result cache so an external scheduler can evict.
func (a *Analyzer) Cache() *Cache {
	return a.cache
}

// AnalyzeThread runs pre-filters, then cache, then the AI tier. Pre-filter
// skips never touch the cache or the AI capability.
func (a *Analyzer) AnalyzeThread(ctx context.Context, messages []model.ThreadMessage, opCtx model.OperationContext) (model.AnalysisResult, error) {
	if len(messages) == 0 {
		return a.skip("empty thread"), nil
	}

	latest := messages[len(messages)-1]
	if marker, ok := matchesAny(latest.Subject+" "+latest.Snippet, autoReplyMarkers); ok {
		a.logger.Debug("skipping auto-reply thread", "marker", marker, "message", latest.MessageID)
		return a.skip(fmt.Sprintf("auto-reply content (%q)", marker)), nil
	}

	if !a.hasActionContent(messages) {
		a.logger.Debug("skipping thread with no actionable content", "message", latest.MessageID)
		return a.skip("no actionable content in recent messages"), nil
	}

	key := ThreadKey(messages)
	if result, ok := a.cache.Get(key); ok {
		a.logger.Debug("thread analysis cache hit", "key", key)
		return result, nil
	}

	candidates, err := a.extractor.ExtractTransactions(ctx, renderThread(messages), opCtx)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	kept := candidates[:0:0]
	for _, c := range candidates {
		if c.Confidence >= a.settings.MinConfidence {
			kept = append(kept, c)
		}
	}

	result := model.AnalysisResult{
		Candidates: kept,
		Method:     model.MethodAI,
		ComputedAt: a.clock.Now(),
	}
	a.cache.Put(key, result)

	a.logger.Info("thread analyzed",
		"operation", opCtx.OperationID,
		"messages", len(messages),
		"candidates", len(kept))

	return result, nil
}

func (a *Analyzer) skip(reason string) model.AnalysisResult {
	return model.AnalysisResult{
		Skipped:    true,
		SkipReason: reason,
		Method:     model.MethodNone,
		ComputedAt: a.clock.Now(),
	}
}

// hasActionContent scans the last three messages for action keywords.
func (a *Analyzer) hasActionContent(messages []model.ThreadMessage) bool {
	start := len(messages) - 3
	if start < 0 {
		start = 0
	}
	for _, m := range messages[start:] {
		if _, ok := matchesAny(m.Subject+" "+m.Snippet, actionKeywords); ok {
			return true
		}
	}
	return false
}

func matchesAny(text string, needles []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return n, true
		}
	}
	return "", false
}

func renderThread(messages []model.ThreadMessage) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "From: %s\nSubject: %s\nDate: %s\n%s\n\n",
			m.Sender, m.Subject, m.Timestamp.Format("2006-01-02"), m.Snippet)
	}
	return b.String()
}
