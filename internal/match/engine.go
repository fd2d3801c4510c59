package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lockstep-fin/lockstep/internal/common"
	"github.com/lockstep-fin/lockstep/internal/model"
	"github.com/lockstep-fin/lockstep/internal/pattern"
	"github.com/lockstep-fin/lockstep/internal/service"
)

// Options bounds candidate discovery for the batch engine.
type Options struct {
	// CandidateDistance is the maximum cosine distance between the inbox
	// item's embedding and a candidate transaction's embedding.
	CandidateDistance float64
	// CandidateWindowDays bounds how far a candidate's booked date may sit
	// from the document date.
	CandidateWindowDays int
	// CandidateLimit caps candidates evaluated per inbox item.
	CandidateLimit int
}

// DefaultOptions returns the production candidate discovery configuration.
func DefaultOptions() Options {
	return Options{
		CandidateDistance:   0.35,
		CandidateWindowDays: 30,
		CandidateLimit:      10,
	}
}

// ItemOutcome describes what the engine did with one inbox item.
type ItemOutcome string

// Item outcomes.
const (
	OutcomeAutoMatched ItemOutcome = "auto_matched"
	OutcomeSuggested   ItemOutcome = "suggested"
	OutcomeNoMatch     ItemOutcome = "no_match"
)

// Engine drives the matching workflow for pending inbox items: discover
// candidates, score them, consult the pattern analyzer, and record
// suggestions through the lifecycle. The engine is the only writer; the
// analyzer and recommender stay read-only.
type Engine struct {
	store     service.Storage
	provider  service.EmbeddingProvider
	analyzer  *pattern.Analyzer
	lifecycle *Lifecycle
	opts      Options
}

// NewEngine creates a matching engine.
func NewEngine(store service.Storage, provider service.EmbeddingProvider, analyzer *pattern.Analyzer, opts Options) *Engine {
	return &Engine{
		store:     store,
		provider:  provider,
		analyzer:  analyzer,
		lifecycle: NewLifecycle(store),
		opts:      opts,
	}
}

// Lifecycle exposes the engine's suggestion lifecycle for user actions.
func (e *Engine) Lifecycle() *Lifecycle {
	return e.lifecycle
}

// PendingItems returns the inbox items awaiting matching for a tenant: the
// newly ingested plus those returned to the pool by a decline.
func (e *Engine) PendingItems(ctx context.Context, tenantID string) ([]model.InboxItem, error) {
	var items []model.InboxItem
	for _, status := range []model.InboxItemStatus{model.InboxStatusNew, model.InboxStatusPending} {
		s := status
		batch, err := e.store.ListInboxItems(ctx, tenantID, service.InboxItemFilter{Status: &s})
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}
	return items, nil
}

// ProcessTenant runs the matching workflow over every pending inbox item of a
// tenant. onItem, when non-nil, is called after each item — the CLI uses it to
// advance its progress bar. Item-level failures are counted, logged, and do
// not abort the batch. Different inbox items are independent; callers that
// parallelize must still serialize retries for the same item.
func (e *Engine) ProcessTenant(ctx context.Context, tenantID string, onItem func()) (service.MatchStats, error) {
	start := time.Now()
	var stats service.MatchStats

	items, err := e.PendingItems(ctx, tenantID)
	if err != nil {
		return stats, fmt.Errorf("failed to list pending inbox items: %w", err)
	}

	for i := range items {
		outcome, itemErr := e.ProcessItem(ctx, &items[i])
		stats.ItemsProcessed++
		switch {
		case itemErr != nil:
			stats.Errors++
			common.LogError(itemErr, "failed to process inbox item", common.Fields{
				"tenant_id":     tenantID,
				"inbox_item_id": items[i].ID,
			})
		case outcome == OutcomeAutoMatched:
			stats.AutoMatched++
		case outcome == OutcomeSuggested:
			stats.Suggested++
		default:
			stats.NoMatch++
		}

		if onItem != nil {
			onItem()
		}
	}

	stats.Duration = time.Since(start)
	slog.Info("matching run complete",
		"tenant_id", tenantID,
		"processed", stats.ItemsProcessed,
		"auto_matched", stats.AutoMatched,
		"suggested", stats.Suggested,
		"no_match", stats.NoMatch,
		"errors", stats.Errors,
		"duration", stats.Duration)
	return stats, nil
}

// ProcessItem runs one inbox item through
// processing → analyzing → {suggested_match | no_match}, or straight to done
// when a candidate clears the auto-match gate.
func (e *Engine) ProcessItem(ctx context.Context, item *model.InboxItem) (ItemOutcome, error) {
	if err := e.store.UpdateInboxItemStatus(ctx, item.TenantID, item.ID, model.InboxStatusProcessing); err != nil {
		return OutcomeNoMatch, err
	}

	inboxVec, err := e.inboxEmbedding(ctx, item)
	if err != nil {
		// Leave the item in the pool; the embedding may succeed next run.
		_ = e.store.UpdateInboxItemStatus(ctx, item.TenantID, item.ID, model.InboxStatusPending)
		return OutcomeNoMatch, err
	}

	if err := e.store.UpdateInboxItemStatus(ctx, item.TenantID, item.ID, model.InboxStatusAnalyzing); err != nil {
		return OutcomeNoMatch, err
	}

	candidates, err := e.store.FindCandidateTransactions(ctx, item.TenantID, inboxVec, item.DocumentDate, service.CandidateQuery{
		DistanceThreshold: e.opts.CandidateDistance,
		DateWindowDays:    e.opts.CandidateWindowDays,
		Limit:             e.opts.CandidateLimit,
	})
	if err != nil {
		_ = e.store.UpdateInboxItemStatus(ctx, item.TenantID, item.ID, model.InboxStatusPending)
		return OutcomeNoMatch, err
	}

	outcome := OutcomeNoMatch
	for i := range candidates {
		candidate := &candidates[i]

		dismissed, dErr := e.lifecycle.WasPreviouslyDismissed(ctx, item.TenantID, item.ID, candidate.Transaction.ID)
		if dErr != nil {
			return outcome, dErr
		}
		if dismissed {
			continue
		}

		auto, propErr := e.evaluateCandidate(ctx, item, candidate, inboxVec)
		if errors.Is(propErr, ErrInsufficientSignal) {
			continue
		}
		if propErr != nil {
			return outcome, propErr
		}

		if auto {
			// Confirm already moved the item to done.
			return OutcomeAutoMatched, nil
		}
		outcome = OutcomeSuggested
	}

	final := model.InboxStatusNoMatch
	if outcome == OutcomeSuggested {
		final = model.InboxStatusSuggestedMatch
	}
	if err := e.store.UpdateInboxItemStatus(ctx, item.TenantID, item.ID, final); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// evaluateCandidate scores one candidate, records the suggestion, and
// auto-confirms it when the merchant pattern gate passes. Returns whether the
// pair was auto-matched.
func (e *Engine) evaluateCandidate(ctx context.Context, item *model.InboxItem, candidate *service.CandidateTransaction, inboxVec []float64) (bool, error) {
	bundle := ScoreCandidate(item, &candidate.Transaction, candidate.Similarity)

	txnEmbedding, err := e.store.GetEmbedding(ctx, item.TenantID, model.EntityTransaction, candidate.Transaction.ID)
	if err != nil {
		return false, err
	}

	eligibility := e.analyzer.CheckEligibility(ctx, item.TenantID, inboxVec, txnEmbedding.Vector, &bundle)

	matchType := model.MatchTypeSuggested
	switch {
	case eligibility.CanAutoMatch:
		matchType = model.MatchTypeAuto
	case bundle.Confidence >= HighConfidenceThreshold:
		matchType = model.MatchTypeHighConfidence
	}

	suggestion, err := e.lifecycle.Propose(ctx, item, &candidate.Transaction, bundle, matchType)
	if err != nil {
		return false, err
	}

	if !eligibility.CanAutoMatch {
		return false, nil
	}

	slog.Info("auto-matching suggestion",
		"tenant_id", item.TenantID,
		"inbox_item_id", item.ID,
		"transaction_id", candidate.Transaction.ID,
		"reason", eligibility.Reason)
	if err := e.lifecycle.Confirm(ctx, item.TenantID, suggestion.ID, item.ID, candidate.Transaction.ID, ""); err != nil {
		return false, err
	}
	return true, nil
}

// inboxEmbedding returns the stored embedding for an inbox item, generating
// one from its display name when absent.
func (e *Engine) inboxEmbedding(ctx context.Context, item *model.InboxItem) ([]float64, error) {
	stored, err := e.store.GetEmbedding(ctx, item.TenantID, model.EntityInboxItem, item.ID)
	if err == nil {
		return stored.Vector, nil
	}
	if !errors.Is(err, common.ErrEmbeddingMissing) {
		return nil, err
	}

	if item.DisplayName == "" {
		return nil, fmt.Errorf("inbox item %s has no embedding and no display name to embed", item.ID)
	}

	vector, err := e.provider.Embed(ctx, item.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("failed to embed inbox item %s: %w", item.ID, err)
	}

	if err := e.store.SaveEmbedding(ctx, &model.Embedding{
		TenantID:   item.TenantID,
		EntityType: model.EntityInboxItem,
		EntityID:   item.ID,
		SourceText: item.DisplayName,
		Vector:     vector,
	}); err != nil {
		return nil, err
	}
	return vector, nil
}
