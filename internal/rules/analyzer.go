// Package rules implements the regex and keyword fallback analyzer used when
// the AI tier is unavailable or finds nothing.
package rules

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/model"
)

// DefaultConfidence is the fixed confidence assigned to rule-based results,
// deliberately below the AI tier's floor: keyword evidence is weaker.
const DefaultConfidence = 62

// Config tunes the analyzer.
type Config struct {
	Confidence int
}

type compiledAmount struct {
	regex *regexp.Regexp
	AmountPattern
}

// Analyzer classifies document text with keyword vocabularies and extracts
// fields with prioritized regex tables.
type Analyzer struct {
	clock          common.Clock
	vocabularies   []Vocabulary
	amountPatterns []compiledAmount
	confidence     int
}

// NewAnalyzer creates an analyzer with the default tables.
func NewAnalyzer(cfg Config, clock common.Clock) (*Analyzer, error) {
	if clock == nil {
		clock = common.NewSystemClock()
	}
	confidence := cfg.Confidence
	if confidence == 0 {
		confidence = DefaultConfidence
	}

	patterns := DefaultAmountPatterns()
	compiled := make([]compiledAmount, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("failed to compile amount pattern %s: %w", p.Name, err)
		}
		compiled = append(compiled, compiledAmount{AmountPattern: p, regex: re})
	}
	sort.Slice(compiled, func(i, j int) bool {
		return compiled[i].Priority > compiled[j].Priority
	})

	return &Analyzer{
		clock:          clock,
		vocabularies:   DefaultVocabularies(),
		amountPatterns: compiled,
		confidence:     confidence,
	}, nil
}

// Confidence returns the confidence assigned to this tier's candidates.
func (a *Analyzer) Confidence() int {
	return a.confidence
}

// Analyze runs keyword classification and field extraction over the text.
// It returns at most one candidate; no keyword match or no amount means no
// candidate, which the cascade treats as "nothing found".
func (a *Analyzer) Analyze(text string, _ model.OperationContext) []model.Candidate {
	txType, keyword, ok := a.classify(text)
	if !ok {
		return nil
	}

	amount, patternName, ok := a.extractAmount(text)
	if !ok {
		slog.Debug("rule-based analyzer found keywords but no amount", "keyword", keyword)
		return nil
	}

	date, hasDate := extractDate(text)
	if !hasDate {
		date = a.clock.Now().Truncate(24 * time.Hour)
	}

	candidate := model.Candidate{
		Type:        txType,
		Amount:      amount,
		Currency:    extractCurrency(text),
		Date:        date,
		Description: fmt.Sprintf("%s detected from document keywords", txType),
		Reference:   extractReference(text),
		Confidence:  a.confidence,
		Reasoning:   fmt.Sprintf("rule-based tier: keyword %q, amount via %s pattern", keyword, patternName),
	}
	return []model.Candidate{candidate}
}

// classify votes each vocabulary's keywords against the text; the type with
// the most hits wins, payments winning ties since paid-invoice documents
// usually contain expense vocabulary too.
func (a *Analyzer) classify(text string) (model.TransactionType, string, bool) {
	lower := strings.ToLower(text)

	bestType := model.TransactionType("")
	bestKeyword := ""
	bestScore := 0

	for _, vocab := range a.vocabularies {
		score := 0
		first := ""
		for _, kw := range vocab.Keywords {
			if strings.Contains(lower, kw) {
				score++
				if first == "" {
					first = kw
				}
			}
		}
		if score > bestScore || (score == bestScore && score > 0 && vocab.Type == model.TypePayment && bestType != model.TypePayment) {
			bestScore = score
			bestType = vocab.Type
			bestKeyword = first
		}
	}

	if bestScore == 0 {
		return "", "", false
	}
	return bestType, bestKeyword, true
}

// extractAmount walks the pattern table in priority order; the first
// priority tier with any match wins, and the largest value within that tier
// breaks ties.
func (a *Analyzer) extractAmount(text string) (float64, string, bool) {
	for _, pattern := range a.amountPatterns {
		matches := pattern.regex.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}

		best := 0.0
		found := false
		for _, m := range matches {
			for _, group := range m[1:] {
				if group == "" {
					continue
				}
				value, err := parseNumber(group)
				if err != nil || value <= 0 {
					continue
				}
				if value > best {
					best = value
					found = true
				}
			}
		}
		if found {
			return best, pattern.Name, true
		}
	}
	return 0, "", false
}

// parseNumber handles both 1,234.56 and 1.234,56 style separators.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma > lastDot && (lastDot >= 0 || !isThousandsGroup(s[lastComma+1:])):
		// Comma is the decimal separator, 1.234,56 style.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		// Commas are thousands separators: 1,234.56 and, when no dot is
		// present and exactly three digits follow, 2,000.
		s = strings.ReplaceAll(s, ",", "")
	}

	return strconv.ParseFloat(s, 64)
}

// isThousandsGroup reports whether the text after a comma reads as a
// thousands group rather than a decimal fraction: exactly three digits.
func isThousandsGroup(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var currencyHints = []struct {
	hint     string
	currency model.Currency
}{
	{"mxn", model.CurrencyMXN},
	{"mx$", model.CurrencyMXN},
	{"pesos", model.CurrencyMXN},
	{"eur", model.CurrencyEUR},
	{"€", model.CurrencyEUR},
	{"gbp", model.CurrencyGBP},
	{"£", model.CurrencyGBP},
	{"cad", model.CurrencyCAD},
	{"usd", model.CurrencyUSD},
	{"us$", model.CurrencyUSD},
}

func extractCurrency(text string) model.Currency {
	lower := strings.ToLower(text)
	for _, h := range currencyHints {
		if strings.Contains(lower, h.hint) {
			return h.currency
		}
	}
	return model.CurrencyUSD
}

var (
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRe   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	monthNameRe   = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2}),?\s+(\d{4})`)
	spanishDateRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+de\s+(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)\s+de\s+(\d{4})`)
)

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"octubre": time.October, "noviembre": time.November, "diciembre": time.December,
}

func extractDate(text string) (time.Time, bool) {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if date, ok := makeDate(year, month, day); ok {
			return date, true
		}
	}

	if m := slashDateRe.FindStringSubmatch(text); m != nil {
		// Day-first, the regional convention for these documents; swap
		// when that reading is impossible.
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month > 12 && day <= 12 {
			day, month = month, day
		}
		if date, ok := makeDate(year, month, day); ok {
			return date, true
		}
	}

	if m := monthNameRe.FindStringSubmatch(text); m != nil {
		month := monthIndex[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if date, ok := makeDate(year, int(month), day); ok {
			return date, true
		}
	}

	if m := spanishDateRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month := monthIndex[strings.ToLower(m[2])]
		year, _ := strconv.Atoi(m[3])
		if date, ok := makeDate(year, int(month), day); ok {
			return date, true
		}
	}

	return time.Time{}, false
}

func makeDate(year, month, day int) (time.Time, bool) {
	if year < 1990 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

var referenceRe = regexp.MustCompile(`(?i)\b(?:ref(?:erence)?|folio|invoice|factura|no)\s*[.:#]?\s*([A-Z0-9][A-Z0-9-]{2,})`)

func extractReference(text string) string {
	if m := referenceRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
