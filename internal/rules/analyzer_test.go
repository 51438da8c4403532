package rules

import (
	"testing"
	"time"

	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	clock := common.NewFakeClock(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))
	a, err := NewAnalyzer(Config{}, clock)
	require.NoError(t, err)
	return a
}

func TestAnalyzerClassifiesPayment(t *testing.T) {
	a := testAnalyzer(t)

	text := "Comprobante de pago. Pago recibido por transferencia.\nMonto: $1,500.00 MXN\nFecha: 2025-01-20\nFolio: ABC-123"
	candidates := a.Analyze(text, model.OperationContext{})

	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, model.TypePayment, c.Type)
	assert.InDelta(t, 1500.00, c.Amount, 0.001)
	assert.Equal(t, model.CurrencyMXN, c.Currency)
	assert.Equal(t, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), c.Date)
	assert.Equal(t, "ABC-123", c.Reference)
	assert.Equal(t, DefaultConfidence, c.Confidence)
	assert.Contains(t, c.Reasoning, "rule-based tier")
}

func TestAnalyzerClassifiesExpense(t *testing.T) {
	a := testAnalyzer(t)

	text := "Receipt for your purchase\nOrder date: 01/25/2025\nTotal: $45.99 USD"
	candidates := a.Analyze(text, model.OperationContext{})

	require.Len(t, candidates, 1)
	assert.Equal(t, model.TypeExpense, candidates[0].Type)
	assert.InDelta(t, 45.99, candidates[0].Amount, 0.001)
	assert.Equal(t, model.CurrencyUSD, candidates[0].Currency)
}

func TestAnalyzerPaymentWinsTie(t *testing.T) {
	a := testAnalyzer(t)

	// "invoice paid" votes payment, "invoice" votes expense.
	text := "Invoice paid. Total: $200.00"
	candidates := a.Analyze(text, model.OperationContext{})

	require.Len(t, candidates, 1)
	assert.Equal(t, model.TypePayment, candidates[0].Type)
}

func TestAmountPatternPriority(t *testing.T) {
	a := testAnalyzer(t)

	// The bare-symbol match is larger, but the labelled total outranks it.
	amount, pattern, ok := a.extractAmount("Receipt. Shipping to ref $999.99.\nTotal: $45.00")
	require.True(t, ok)
	assert.InDelta(t, 45.00, amount, 0.001)
	assert.Equal(t, "labelled total", pattern)
}

func TestAmountTieBreakByValue(t *testing.T) {
	a := testAnalyzer(t)

	amount, _, ok := a.extractAmount("Subtotal total: $100.00\nGrand total: $150.00")
	require.True(t, ok)
	assert.InDelta(t, 150.00, amount, 0.001)
}

func TestParseNumberSeparators(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1,234.56", 1234.56},
		{"1.234,56", 1234.56},
		{"1500", 1500},
		{"45.00", 45},
		{"2,000", 2000},
		{"12,345,678", 12345678},
		{"2,50", 2.5},
		{"1.234,567", 1234.567},
	}
	for _, tt := range tests {
		got, err := parseNumber(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 0.001, tt.in)
	}
}

func TestExtractDateFormats(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"iso", "Fecha: 2025-03-04", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"day first slash", "Fecha: 25/01/2025", time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC)},
		{"swapped slash", "Date: 01/25/2025", time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC)},
		{"english month", "Paid on Jan 5, 2025", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"spanish month", "3 de febrero de 2025", time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractDate(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzerNoKeywordsNoCandidate(t *testing.T) {
	a := testAnalyzer(t)
	assert.Empty(t, a.Analyze("Quarterly team meeting agenda, room 4B, $0 budget discussion", model.OperationContext{}))
}

func TestAnalyzerKeywordsButNoAmount(t *testing.T) {
	a := testAnalyzer(t)
	assert.Empty(t, a.Analyze("Here is the receipt you asked about, attached separately.", model.OperationContext{}))
}

func TestAnalyzerFallsBackToToday(t *testing.T) {
	a := testAnalyzer(t)

	candidates := a.Analyze("Receipt. Total: $10.00", model.OperationContext{})
	require.Len(t, candidates, 1)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), candidates[0].Date)
}
