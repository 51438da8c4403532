// Package model defines the core domain types shared across the pipeline.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// TransactionType classifies a detected transaction.
type TransactionType string

const (
	// TypePayment represents incoming money (a client paying an invoice).
	TypePayment TransactionType = "payment"
	// TypeExpense represents outgoing money (a purchase, a bill).
	TypeExpense TransactionType = "expense"
)

// DetectionMethod records which extraction tier produced a result.
type DetectionMethod string

const (
	// MethodAI means the AI extraction tier produced the result.
	MethodAI DetectionMethod = "ai"
	// MethodRuleBased means the regex/keyword fallback produced the result.
	MethodRuleBased DetectionMethod = "rule-based"
	// MethodOCR means the result came from OCR-extracted text.
	MethodOCR DetectionMethod = "ocr"
	// MethodNone means no tier produced a result.
	MethodNone DetectionMethod = "none"
)

// SuggestionStatus tracks the human review state of a suggestion.
type SuggestionStatus string

const (
	// StatusPending means the suggestion awaits review.
	StatusPending SuggestionStatus = "pending"
	// StatusApproved means a reviewer accepted the suggestion.
	StatusApproved SuggestionStatus = "approved"
	// StatusRejected means a reviewer dismissed the suggestion.
	StatusRejected SuggestionStatus = "rejected"
)

// Currency is an ISO 4217 currency code.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyMXN Currency = "MXN"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCAD Currency = "CAD"
)

// Candidate is a transaction extracted from a document, before duplicate
// evaluation and persistence.
type Candidate struct {
	Date        time.Time
	Type        TransactionType
	Currency    Currency
	Description string
	Reference   string
	Reasoning   string
	Amount      float64
	Confidence  int
}

// Suggestion is the stored, reviewable output of the pipeline. The pipeline
// only ever creates suggestions; approval and rejection belong to a human
// reviewer, and rejected suggestions are kept for audit.
type Suggestion struct {
	Date                 time.Time
	CreatedAt            time.Time
	ID                   string
	OperationID          string
	Type                 TransactionType
	Currency             Currency
	Description          string
	Reasoning            string
	DetectionMethod      DetectionMethod
	DuplicateReason      string
	RelatedSuggestionID  string
	AttachmentHash       string
	ExtractedTextExcerpt string
	Status               SuggestionStatus
	Amount               float64
	Confidence           int
	IsDuplicate          bool
}

// OperationContext carries the business context a document belongs to. The
// AI tier includes it in prompts; the duplicate detector scopes fuzzy
// matching by operation.
type OperationContext struct {
	OperationID string
	Name        string
	Client      string
}

// HashBytes returns the SHA-256 hex digest of a file's contents, used for
// exact duplicate detection and blob-store keys.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}
