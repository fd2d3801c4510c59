// Package match owns the match suggestion lifecycle: proposing pairings,
// applying user decisions, and the batch engine that discovers candidates.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/lockstep-fin/lockstep/internal/common"
	"github.com/lockstep-fin/lockstep/internal/model"
	"github.com/lockstep-fin/lockstep/internal/score"
	"github.com/lockstep-fin/lockstep/internal/service"
)

// Confidence weights for combining component scores. Embedding dominates
// because it is the only merchant-identity signal; amount is the strongest
// financial signal. Dimensions that could not be compared enter at the
// neutral score, so an information-free pair lands mid-scale instead of
// looking like a strong match.
const (
	weightEmbedding = 0.45
	weightAmount    = 0.30
	weightDate      = 0.15
	weightCurrency  = 0.10
)

// HighConfidenceThreshold separates high_confidence suggestions from plain
// ones when pattern eligibility does not pass.
const HighConfidenceThreshold = 0.90

// ErrInsufficientSignal marks a candidate whose amount and date are both
// unknown. A confidence built entirely from neutral fallbacks must not be
// asserted as a suggestion.
var ErrInsufficientSignal = errors.New("insufficient signal: neither amount nor date comparable")

// Confidence combines a score bundle into one overall value in [0,1].
func Confidence(b score.Bundle) float64 {
	c := weightEmbedding*b.Embedding +
		weightAmount*b.Amount +
		weightDate*b.Date +
		weightCurrency*b.Currency
	return math.Max(0, math.Min(1, c))
}

// ScoreCandidate computes the full score bundle for an inbox item against a
// candidate transaction. embeddingScore comes from the similarity store
// (1 - cosine distance); the remaining dimensions are scored in-process.
func ScoreCandidate(item *model.InboxItem, txn *model.Transaction, embeddingScore float64) score.Bundle {
	bundle := score.Bundle{
		Amount:    score.AmountScore(item.Amount, &txn.Amount),
		Currency:  score.CurrencyScore(item.Currency, &txn.Currency),
		Date:      score.DateScore(item.DocumentDate, &txn.BookedAt),
		Embedding: embeddingScore,
	}

	// AmountScore reports 0 for an unknown amount so the eligibility gate
	// stays strict, but an unknown amount is absence of information, not a
	// mismatch: it enters the combined confidence at the neutral score.
	weighted := bundle
	if item.Amount == nil {
		weighted.Amount = score.Neutral
	}
	bundle.Confidence = Confidence(weighted)
	return bundle
}

// Lifecycle records proposed pairings and transitions them on user action,
// keeping the linked inbox item's status in step.
type Lifecycle struct {
	store service.Storage
}

// NewLifecycle creates a lifecycle over the given storage.
func NewLifecycle(store service.Storage) *Lifecycle {
	return &Lifecycle{store: store}
}

// Propose upserts a suggestion for the (inbox item, transaction) pair. An
// existing suggestion is refreshed with the latest scores rather than
// duplicated. Candidates where neither amount nor date is comparable are
// rejected with ErrInsufficientSignal.
func (l *Lifecycle) Propose(ctx context.Context, item *model.InboxItem, txn *model.Transaction, bundle score.Bundle, matchType model.MatchType) (*model.MatchSuggestion, error) {
	if item == nil || txn == nil {
		return nil, fmt.Errorf("%w: item and transaction are required", common.ErrInvariantViolation)
	}
	if item.Amount == nil && item.DocumentDate == nil {
		return nil, fmt.Errorf("inbox item %s: %w", item.ID, ErrInsufficientSignal)
	}

	suggestion := &model.MatchSuggestion{
		ID:             uuid.NewString(),
		TenantID:       item.TenantID,
		InboxItemID:    item.ID,
		TransactionID:  txn.ID,
		EmbeddingScore: &bundle.Embedding,
		Confidence:     bundle.Confidence,
		MatchType:      matchType,
		Status:         model.SuggestionPending,
	}
	if item.Amount != nil {
		suggestion.AmountScore = &bundle.Amount
	}
	if item.Currency != nil && *item.Currency != "" {
		suggestion.CurrencyScore = &bundle.Currency
	}
	if item.DocumentDate != nil {
		suggestion.DateScore = &bundle.Date
	}

	if err := l.store.UpsertSuggestion(ctx, suggestion); err != nil {
		return nil, err
	}

	// The upsert may have refreshed an existing row; read back the
	// authoritative record so the caller sees the surviving ID.
	stored, err := l.store.GetSuggestionByPair(ctx, item.TenantID, item.ID, txn.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: suggestion vanished after upsert", common.ErrInvariantViolation)
	}

	slog.Debug("suggestion proposed",
		"tenant_id", item.TenantID,
		"inbox_item_id", item.ID,
		"transaction_id", txn.ID,
		"confidence", bundle.Confidence,
		"match_type", matchType)
	return stored, nil
}

// Confirm applies a user confirmation: the suggestion becomes confirmed and
// the inbox item moves to done with its transaction link set, atomically.
// userID may be empty for system-applied auto-matches.
func (l *Lifecycle) Confirm(ctx context.Context, tenantID, suggestionID, inboxItemID, transactionID, userID string) error {
	suggestion, err := l.store.GetSuggestion(ctx, tenantID, suggestionID)
	if err != nil {
		return err
	}
	if suggestion.InboxItemID != inboxItemID || suggestion.TransactionID != transactionID {
		return fmt.Errorf("%w: suggestion %s does not pair %s with %s",
			common.ErrInvariantViolation, suggestionID, inboxItemID, transactionID)
	}

	return l.store.ConfirmSuggestion(ctx, tenantID, suggestionID, inboxItemID, transactionID, userID)
}

// Decline applies a user decline: the suggestion becomes declined and the
// inbox item re-enters the matching pool as pending.
func (l *Lifecycle) Decline(ctx context.Context, tenantID, suggestionID, inboxItemID, userID string) error {
	suggestion, err := l.store.GetSuggestion(ctx, tenantID, suggestionID)
	if err != nil {
		return err
	}
	if suggestion.InboxItemID != inboxItemID {
		return fmt.Errorf("%w: suggestion %s does not belong to inbox item %s",
			common.ErrInvariantViolation, suggestionID, inboxItemID)
	}

	return l.store.DeclineSuggestion(ctx, tenantID, suggestionID, inboxItemID, userID)
}

// WasPreviouslyDismissed reports whether the exact pair was declined by a
// user or marked unmatched by the external classifier. Used upstream to
// suppress re-proposing a rejected pairing.
func (l *Lifecycle) WasPreviouslyDismissed(ctx context.Context, tenantID, inboxItemID, transactionID string) (bool, error) {
	return l.store.HasDismissedSuggestion(ctx, tenantID, inboxItemID, transactionID)
}
