package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lockstep-fin/lockstep/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrEmptySlice        = errors.New("slice cannot be empty")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidItem       = errors.New("invalid inbox item")
	ErrInvalidTxn        = errors.New("invalid transaction")
	ErrInvalidSuggestion = errors.New("invalid match suggestion")
	ErrInvalidEmbedding  = errors.New("invalid embedding")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateInboxItem validates a single inbox item.
func validateInboxItem(item *model.InboxItem) error {
	if item == nil {
		return fmt.Errorf("%w: inbox item", ErrNilParameter)
	}
	if item.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidItem)
	}
	if item.TenantID == "" {
		return fmt.Errorf("%w: missing tenant ID", ErrInvalidItem)
	}
	if item.Status == "" {
		return fmt.Errorf("%w: missing status", ErrInvalidItem)
	}
	return nil
}

// validateTransactions validates a slice of ledger transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if txn.ID == "" {
			return fmt.Errorf("transaction at index %d: %w: missing ID", i, ErrInvalidTxn)
		}
		if txn.TenantID == "" {
			return fmt.Errorf("transaction at index %d: %w: missing tenant ID", i, ErrInvalidTxn)
		}
		if txn.BookedAt.IsZero() {
			return fmt.Errorf("transaction at index %d: %w: missing booked date", i, ErrInvalidTxn)
		}
		if txn.Currency == "" {
			return fmt.Errorf("transaction at index %d: %w: missing currency", i, ErrInvalidTxn)
		}
	}
	return nil
}

// validateSuggestion validates a match suggestion before persisting.
func validateSuggestion(suggestion *model.MatchSuggestion) error {
	if suggestion == nil {
		return fmt.Errorf("%w: suggestion", ErrNilParameter)
	}
	if suggestion.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidSuggestion)
	}
	if suggestion.TenantID == "" {
		return fmt.Errorf("%w: missing tenant ID", ErrInvalidSuggestion)
	}
	if suggestion.InboxItemID == "" || suggestion.TransactionID == "" {
		return fmt.Errorf("%w: missing pair identifiers", ErrInvalidSuggestion)
	}
	switch suggestion.Status {
	case model.SuggestionPending, model.SuggestionConfirmed, model.SuggestionDeclined, model.SuggestionUnmatched:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, suggestion.Status)
	}
	if suggestion.Confidence < 0 || suggestion.Confidence > 1 {
		return fmt.Errorf("%w: confidence %f out of range", ErrInvalidSuggestion, suggestion.Confidence)
	}
	for name, s := range map[string]*float64{
		"amount_score":    suggestion.AmountScore,
		"currency_score":  suggestion.CurrencyScore,
		"date_score":      suggestion.DateScore,
		"embedding_score": suggestion.EmbeddingScore,
	} {
		if s != nil && (*s < 0 || *s > 1) {
			return fmt.Errorf("%w: %s %f out of range", ErrInvalidSuggestion, name, *s)
		}
	}
	return nil
}

// validateEmbedding validates an embedding record.
func validateEmbedding(embedding *model.Embedding) error {
	if embedding == nil {
		return fmt.Errorf("%w: embedding", ErrNilParameter)
	}
	if embedding.TenantID == "" {
		return fmt.Errorf("%w: missing tenant ID", ErrInvalidEmbedding)
	}
	if embedding.EntityID == "" {
		return fmt.Errorf("%w: missing entity ID", ErrInvalidEmbedding)
	}
	switch embedding.EntityType {
	case model.EntityInboxItem, model.EntityTransaction, model.EntityCategory:
	default:
		return fmt.Errorf("%w: unknown entity type %q", ErrInvalidEmbedding, embedding.EntityType)
	}
	if len(embedding.Vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidEmbedding)
	}
	return nil
}
