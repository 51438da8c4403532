package dedup

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/model"
	"github.com/finsift/finsift/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	suggestions []model.Suggestion
}

func (m *memoryStore) FindByAttachmentHash(_ context.Context, hash string) (*model.Suggestion, error) {
	var matches []model.Suggestion
	for _, s := range m.suggestions {
		if s.AttachmentHash == hash {
			matches = append(matches, s)
		}
	}
	if len(matches) == 0 {
		return nil, common.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].IsDuplicate != matches[j].IsDuplicate {
			return !matches[i].IsDuplicate
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return &matches[0], nil
}

func (m *memoryStore) FindSimilar(_ context.Context, q service.SimilarQuery) ([]model.Suggestion, error) {
	var matches []model.Suggestion
	for _, s := range m.suggestions {
		if s.IsDuplicate || s.OperationID != q.OperationID || s.Type != q.Type || s.Currency != q.Currency {
			continue
		}
		if s.Amount < q.MinAmount || s.Amount > q.MaxAmount {
			continue
		}
		if s.Date.Before(q.StartDate) || s.Date.After(q.EndDate) {
			continue
		}
		matches = append(matches, s)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	return matches, nil
}

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func storedSuggestion(id string, amount float64, date time.Time) model.Suggestion {
	return model.Suggestion{
		ID:          id,
		OperationID: "op-1",
		Type:        model.TypeExpense,
		Currency:    model.CurrencyMXN,
		Amount:      amount,
		Date:        date,
		CreatedAt:   date,
		Status:      model.StatusPending,
	}
}

func expenseCandidate(amount float64, date time.Time) model.Candidate {
	return model.Candidate{
		Type:     model.TypeExpense,
		Currency: model.CurrencyMXN,
		Amount:   amount,
		Date:     date,
	}
}

func TestFuzzyDuplicateInsideWindow(t *testing.T) {
	store := &memoryStore{suggestions: []model.Suggestion{
		storedSuggestion("first", 1000, day(20)),
	}}
	detector := New(store, DefaultConfig())

	result, err := detector.Check(context.Background(), expenseCandidate(1015, day(21)), "op-1")
	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "first", result.RelatedID)
	assert.Contains(t, result.Reason, "1000.00")
}

func TestFuzzyBoundaryIsInclusive(t *testing.T) {
	store := &memoryStore{suggestions: []model.Suggestion{
		storedSuggestion("first", 1000, day(20)),
	}}
	detector := New(store, DefaultConfig())

	// Exactly +2% on the same date.
	result, err := detector.Check(context.Background(), expenseCandidate(1020, day(20)), "op-1")
	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)

	// Exactly +3 days.
	result, err = detector.Check(context.Background(), expenseCandidate(1000, day(23)), "op-1")
	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
}

func TestNotADuplicateOutsideWindow(t *testing.T) {
	store := &memoryStore{suggestions: []model.Suggestion{
		storedSuggestion("first", 1000, day(20)),
	}}
	detector := New(store, DefaultConfig())

	result, err := detector.Check(context.Background(), expenseCandidate(1500, day(20)), "op-1")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)

	result, err = detector.Check(context.Background(), expenseCandidate(1000, day(24)), "op-1")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate, "+4 days is outside the window")
}

func TestExactHashDuplicateIgnoresValues(t *testing.T) {
	existing := storedSuggestion("first", 1000, day(20))
	existing.AttachmentHash = "same-hash"
	store := &memoryStore{suggestions: []model.Suggestion{existing}}
	detector := New(store, DefaultConfig())

	// The file seen before flags regardless of candidate values.
	result, err := detector.CheckFile(context.Background(), "same-hash")
	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "same file already processed", result.Reason)
	assert.Equal(t, "first", result.RelatedID)
}

func TestCheckFileUnknownHash(t *testing.T) {
	detector := New(&memoryStore{}, DefaultConfig())

	result, err := detector.CheckFile(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)

	result, err = detector.CheckFile(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
}

func TestRelatedIDPointsToEarliestNonDuplicate(t *testing.T) {
	dup := storedSuggestion("second", 1005, day(21))
	dup.IsDuplicate = true
	dup.RelatedSuggestionID = "first"
	store := &memoryStore{suggestions: []model.Suggestion{
		storedSuggestion("first", 1000, day(20)),
		dup,
	}}
	detector := New(store, DefaultConfig())

	result, err := detector.Check(context.Background(), expenseCandidate(1010, day(22)), "op-1")
	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "first", result.RelatedID, "pointer must never chain through a duplicate")
}

func TestDifferentOperationNotDuplicate(t *testing.T) {
	store := &memoryStore{suggestions: []model.Suggestion{
		storedSuggestion("first", 1000, day(20)),
	}}
	detector := New(store, DefaultConfig())

	result, err := detector.Check(context.Background(), expenseCandidate(1000, day(20)), "op-2")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
}
