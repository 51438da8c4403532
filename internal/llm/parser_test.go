package llm

import (
	"testing"
	"time"

	"github.com/finsift/finsift/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandidates(t *testing.T) {
	t.Run("plain JSON array", func(t *testing.T) {
		content := `[
			{"type": "payment", "amount": 1500.50, "currency": "MXN", "date": "2025-01-20", "description": "Invoice F-1042 paid", "reference": "F-1042", "confidence": 92},
			{"type": "expense", "amount": 89.99, "currency": "USD", "date": "2025-01-21", "description": "Software subscription", "confidence": 80}
		]`

		candidates, err := ParseCandidates(content)
		require.NoError(t, err)
		require.Len(t, candidates, 2)

		assert.Equal(t, model.TypePayment, candidates[0].Type)
		assert.InDelta(t, 1500.50, candidates[0].Amount, 0.001)
		assert.Equal(t, model.CurrencyMXN, candidates[0].Currency)
		assert.Equal(t, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), candidates[0].Date)
		assert.Equal(t, "F-1042", candidates[0].Reference)
		assert.Equal(t, 92, candidates[0].Confidence)

		assert.Equal(t, model.TypeExpense, candidates[1].Type)
	})

	t.Run("markdown fenced JSON", func(t *testing.T) {
		content := "```json\n[{\"type\": \"expense\", \"amount\": 10, \"currency\": \"USD\", \"date\": \"2025-02-01\", \"description\": \"taxi\", \"confidence\": 75}]\n```"

		candidates, err := ParseCandidates(content)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "taxi", candidates[0].Description)
	})

	t.Run("JSON embedded in prose", func(t *testing.T) {
		content := `Here are the transactions I found:
[{"type": "payment", "amount": 250, "currency": "EUR", "date": "2025-03-05", "description": "deposit", "confidence": 88}]
Let me know if you need more.`

		candidates, err := ParseCandidates(content)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, model.CurrencyEUR, candidates[0].Currency)
	})

	t.Run("skips malformed entries", func(t *testing.T) {
		content := `[
			{"type": "donation", "amount": 50, "currency": "USD", "date": "2025-01-01", "confidence": 90},
			{"type": "expense", "amount": 0, "currency": "USD", "date": "2025-01-01", "confidence": 90},
			{"type": "expense", "amount": 20, "currency": "USD", "date": "not-a-date", "confidence": 90},
			{"type": "expense", "amount": 20, "currency": "USD", "date": "2025-01-01", "description": "ok", "confidence": 90}
		]`

		candidates, err := ParseCandidates(content)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "ok", candidates[0].Description)
	})

	t.Run("clamps confidence", func(t *testing.T) {
		content := `[{"type": "expense", "amount": 5, "currency": "USD", "date": "2025-01-01", "confidence": 140}]`

		candidates, err := ParseCandidates(content)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, 100, candidates[0].Confidence)
	})

	t.Run("empty array", func(t *testing.T) {
		candidates, err := ParseCandidates("[]")
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("no JSON at all", func(t *testing.T) {
		_, err := ParseCandidates("I could not find any transactions.")
		require.Error(t, err)
	})
}
