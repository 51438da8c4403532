package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/finsift/finsift/internal/model"
)

// aiTransaction mirrors the JSON shape the prompt asks providers to emit.
type aiTransaction struct {
	Type        string  `json:"type"`
	Currency    string  `json:"currency"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Reference   string  `json:"reference,omitempty"`
	Amount      float64 `json:"amount"`
	Confidence  int     `json:"confidence"`
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"01/02/2006",
}

// ParseCandidates extracts transaction candidates from a provider's raw
// response text. Entries with an unknown type or an unparseable date are
// skipped, not fatal: providers are allowed to be sloppy around the edges.
func ParseCandidates(content string) ([]model.Candidate, error) {
	content = cleanMarkdownWrapper(content)
	content = extractJSONArray(content)
	if content == "" {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var raw []aiTransaction
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	candidates := make([]model.Candidate, 0, len(raw))
	for _, tx := range raw {
		candidate, ok := toCandidate(tx)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

func toCandidate(tx aiTransaction) (model.Candidate, bool) {
	var txType model.TransactionType
	switch strings.ToLower(strings.TrimSpace(tx.Type)) {
	case "payment", "income":
		txType = model.TypePayment
	case "expense", "purchase":
		txType = model.TypeExpense
	default:
		slog.Debug("skipping candidate with unknown type", "type", tx.Type)
		return model.Candidate{}, false
	}

	if tx.Amount <= 0 {
		return model.Candidate{}, false
	}

	date, ok := parseDate(tx.Date)
	if !ok {
		slog.Debug("skipping candidate with unparseable date", "date", tx.Date)
		return model.Candidate{}, false
	}

	confidence := tx.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 100 {
		confidence = 100
	}

	currency := model.Currency(strings.ToUpper(strings.TrimSpace(tx.Currency)))
	if currency == "" {
		currency = model.CurrencyUSD
	}

	return model.Candidate{
		Type:        txType,
		Amount:      tx.Amount,
		Currency:    currency,
		Date:        date,
		Description: strings.TrimSpace(tx.Description),
		Reference:   strings.TrimSpace(tx.Reference),
		Confidence:  confidence,
	}, true
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, value); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}

// cleanMarkdownWrapper strips markdown code fences some providers wrap
// around JSON despite instructions not to.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// extractJSONArray returns the outermost JSON array in the content, or empty
// if none is present.
func extractJSONArray(content string) string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return content[start : end+1]
}
