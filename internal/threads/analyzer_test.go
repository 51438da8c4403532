package threads

import (
	"context"
	"testing"
	"time"

	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExtractor struct {
	candidates []model.Candidate
	calls      int
}

func (c *countingExtractor) ExtractTransactions(_ context.Context, _ string, _ model.OperationContext) ([]model.Candidate, error) {
	c.calls++
	return c.candidates, nil
}

func message(id, subject, snippet string) model.ThreadMessage {
	return model.ThreadMessage{
		MessageID: id,
		Sender:    "client@example.com",
		Subject:   subject,
		Snippet:   snippet,
		Timestamp: time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAnalyzerSkipsAutoReplies(t *testing.T) {
	extractor := &countingExtractor{}
	analyzer := NewAnalyzer(extractor, OptimizationMedium, nil, nil)

	result, err := analyzer.AnalyzeThread(context.Background(),
		[]model.ThreadMessage{message("m1", "Automatic reply: invoice received", "I am away until Monday")},
		model.OperationContext{})
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Contains(t, result.SkipReason, "auto-reply")
	assert.Equal(t, 0, extractor.calls, "pre-filter must not touch the AI tier")
	assert.Equal(t, 0, analyzer.Cache().Size(), "pre-filter must not touch the cache")
}

func TestAnalyzerSkipsNonActionableThreads(t *testing.T) {
	extractor := &countingExtractor{}
	analyzer := NewAnalyzer(extractor, OptimizationMedium, nil, nil)

	result, err := analyzer.AnalyzeThread(context.Background(),
		[]model.ThreadMessage{
			message("m1", "Lunch on Friday?", "Want to grab tacos"),
			message("m2", "Re: Lunch on Friday?", "Sure, see you there"),
		},
		model.OperationContext{})
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Contains(t, result.SkipReason, "no actionable content")
	assert.Equal(t, 0, extractor.calls)
}

func TestAnalyzerActionKeywordOnlyInOldMessages(t *testing.T) {
	extractor := &countingExtractor{}
	analyzer := NewAnalyzer(extractor, OptimizationMedium, nil, nil)

	// The invoice mention is four messages back; the last three are chatter.
	result, err := analyzer.AnalyzeThread(context.Background(),
		[]model.ThreadMessage{
			message("m1", "Invoice F-10", "Attached the invoice"),
			message("m2", "Re: hello", "ok"),
			message("m3", "Re: hello", "sounds good"),
			message("m4", "Re: hello", "see you"),
		},
		model.OperationContext{})
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Equal(t, 0, extractor.calls)
}

func TestAnalyzerCachesResults(t *testing.T) {
	clock := common.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	extractor := &countingExtractor{candidates: []model.Candidate{
		{Type: model.TypePayment, Amount: 100, Currency: model.CurrencyUSD, Confidence: 90},
	}}
	analyzer := NewAnalyzer(extractor, OptimizationMedium, clock, nil)

	messages := []model.ThreadMessage{message("m1", "Invoice F-10", "Payment attached, total $100")}

	first, err := analyzer.AnalyzeThread(context.Background(), messages, model.OperationContext{})
	require.NoError(t, err)
	require.Len(t, first.Candidates, 1)
	assert.Equal(t, 1, extractor.calls)

	// Within TTL: served from cache, no new AI call.
	clock.Advance(time.Hour)
	second, err := analyzer.AnalyzeThread(context.Background(), messages, model.OperationContext{})
	require.NoError(t, err)
	assert.Equal(t, 1, extractor.calls)
	assert.Equal(t, first.ComputedAt, second.ComputedAt)

	// Past TTL (medium = 6h): recomputed.
	clock.Advance(6 * time.Hour)
	_, err = analyzer.AnalyzeThread(context.Background(), messages, model.OperationContext{})
	require.NoError(t, err)
	assert.Equal(t, 2, extractor.calls)
}

func TestAnalyzerFiltersByLevelConfidence(t *testing.T) {
	extractor := &countingExtractor{candidates: []model.Candidate{
		{Type: model.TypePayment, Amount: 100, Currency: model.CurrencyUSD, Confidence: 72},
	}}

	// High optimization raises the floor to 75.
	analyzer := NewAnalyzer(extractor, OptimizationHigh, nil, nil)
	result, err := analyzer.AnalyzeThread(context.Background(),
		[]model.ThreadMessage{message("m1", "Invoice", "total $100")},
		model.OperationContext{})
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)

	// Low optimization admits the same candidate.
	analyzer = NewAnalyzer(extractor, OptimizationLow, nil, nil)
	result, err = analyzer.AnalyzeThread(context.Background(),
		[]model.ThreadMessage{message("m1", "Invoice", "total $100")},
		model.OperationContext{})
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 1)
}

func TestCacheEviction(t *testing.T) {
	clock := common.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	cache := NewCache(time.Hour, clock)

	cache.Put("k1", model.AnalysisResult{Method: model.MethodAI})
	clock.Advance(30 * time.Minute)
	cache.Put("k2", model.AnalysisResult{Method: model.MethodAI})

	clock.Advance(30 * time.Minute)
	// k1 is now exactly at TTL, k2 is 30m old.
	_, ok := cache.Get("k1")
	assert.False(t, ok)
	_, ok = cache.Get("k2")
	assert.True(t, ok)

	assert.Equal(t, 1, cache.EvictExpired())
	assert.Equal(t, 1, cache.Size())
}

func TestThreadKeyDeterministic(t *testing.T) {
	messages := []model.ThreadMessage{
		message("m1", "Invoice", "total $100"),
		message("m2", "Re: Invoice", "paid"),
	}
	assert.Equal(t, ThreadKey(messages), ThreadKey(messages))
	assert.NotEqual(t, ThreadKey(messages), ThreadKey(messages[:1]))
}
