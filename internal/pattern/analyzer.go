// Package pattern decides whether a candidate match may be applied without
// human review, based on how reliably similar merchants have matched
// historically.
package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/lockstep-fin/lockstep/internal/model"
	"github.com/lockstep-fin/lockstep/internal/score"
	"github.com/lockstep-fin/lockstep/internal/service"
)

// Thresholds holds the tunable parameters of the eligibility gate. The
// defaults encode a deliberate precision/recall tradeoff: tight embedding
// distance approximates "same merchant", and the history bar keeps a single
// lucky match from unlocking auto-apply.
type Thresholds struct {
	// History query bounds.
	DistanceThreshold float64
	Lookback          time.Duration
	SampleLimit       int

	// Historical requirements.
	MinConfirmed     int
	MinAccuracy      float64
	MaxNegatives     int
	MinAvgConfidence float64

	// Current-candidate requirements.
	MinEmbeddingScore float64
	MinDateScore      float64
	MinAmountScore    float64
	ConfidenceCeiling float64
	ConfidenceMargin  float64
}

// DefaultThresholds returns the production eligibility configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DistanceThreshold: 0.15,
		Lookback:          6 * 30 * 24 * time.Hour,
		SampleLimit:       20,
		MinConfirmed:      3,
		MinAccuracy:       0.90,
		MaxNegatives:      1,
		MinAvgConfidence:  0.85,
		MinEmbeddingScore: 0.85,
		MinDateScore:      0.70,
		MinAmountScore:    0.95,
		ConfidenceCeiling: 0.90,
		ConfidenceMargin:  0.05,
	}
}

// Stats aggregates the decided history found near a merchant pair.
type Stats struct {
	Total                  int
	Confirmed              int
	Declined               int
	Unmatched              int
	Accuracy               float64
	AvgConfidenceConfirmed float64
}

// NegativeCount is declined plus unmatched outcomes.
func (s Stats) NegativeCount() int {
	return s.Declined + s.Unmatched
}

// Eligibility is the analyzer's verdict for one candidate pair. Evaluation is
// read-only; the caller applies the result.
type Eligibility struct {
	Reason       string
	Stats        Stats
	Confidence   float64
	CanAutoMatch bool
}

// Analyzer computes merchant-pattern eligibility from historical suggestions.
type Analyzer struct {
	store      service.SimilarityStore
	thresholds Thresholds
	now        func() time.Time
}

// NewAnalyzer creates an analyzer backed by the given similarity store.
func NewAnalyzer(store service.SimilarityStore, thresholds Thresholds) *Analyzer {
	return &Analyzer{
		store:      store,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// CheckEligibility decides whether the current candidate pair may be
// auto-applied. current may be nil when the caller only wants the historical
// verdict. Storage failures degrade to a conservative "not eligible" result;
// an auto-match must never be approved by default.
func (a *Analyzer) CheckEligibility(ctx context.Context, tenantID string, inboxVec, transactionVec []float64, current *score.Bundle) Eligibility {
	records, err := a.store.FindNearMerchantPatterns(ctx, tenantID, inboxVec, transactionVec, service.PatternQuery{
		DecidedAfter:      a.now().Add(-a.thresholds.Lookback),
		DistanceThreshold: a.thresholds.DistanceThreshold,
		Limit:             a.thresholds.SampleLimit,
	})
	if err != nil {
		slog.Error("merchant pattern lookup failed",
			"tenant_id", tenantID,
			"error", err)
		return Eligibility{Reason: "Error checking patterns"}
	}

	stats := aggregate(records)
	result := Eligibility{Stats: stats}

	if stats.Confirmed < a.thresholds.MinConfirmed {
		result.Reason = fmt.Sprintf("Only %d confirmed matches (need %d)", stats.Confirmed, a.thresholds.MinConfirmed)
		return result
	}
	if stats.Accuracy < a.thresholds.MinAccuracy {
		result.Reason = fmt.Sprintf("Accuracy %.0f%% below %.0f%%", stats.Accuracy*100, a.thresholds.MinAccuracy*100)
		return result
	}
	if stats.NegativeCount() > a.thresholds.MaxNegatives {
		result.Reason = fmt.Sprintf("Too many negative signals (%d declined, %d unmatched)", stats.Declined, stats.Unmatched)
		return result
	}
	if stats.AvgConfidenceConfirmed < a.thresholds.MinAvgConfidence {
		result.Reason = fmt.Sprintf("Average confirmed confidence %.2f below %.2f", stats.AvgConfidenceConfirmed, a.thresholds.MinAvgConfidence)
		return result
	}

	if current != nil {
		if current.Embedding < a.thresholds.MinEmbeddingScore {
			result.Reason = fmt.Sprintf("Embedding score %.2f below %.2f", current.Embedding, a.thresholds.MinEmbeddingScore)
			return result
		}
		if current.Date < a.thresholds.MinDateScore {
			result.Reason = fmt.Sprintf("Date score %.2f below %.2f", current.Date, a.thresholds.MinDateScore)
			return result
		}
		if !current.IsPerfectFinancialMatch() && current.Amount < a.thresholds.MinAmountScore {
			result.Reason = fmt.Sprintf("Amount score %.2f below %.2f without a perfect financial match", current.Amount, a.thresholds.MinAmountScore)
			return result
		}
		required := math.Min(a.thresholds.ConfidenceCeiling, stats.AvgConfidenceConfirmed-a.thresholds.ConfidenceMargin)
		if current.Confidence < required {
			result.Reason = fmt.Sprintf("Confidence %.2f below required %.2f", current.Confidence, required)
			return result
		}
	}

	result.CanAutoMatch = true
	result.Confidence = stats.AvgConfidenceConfirmed
	result.Reason = fmt.Sprintf("Merchant matched %d times with %.0f%% accuracy", stats.Confirmed, stats.Accuracy*100)

	slog.Debug("merchant pattern eligible",
		"tenant_id", tenantID,
		"confirmed", stats.Confirmed,
		"accuracy", stats.Accuracy,
		"avg_confidence", stats.AvgConfidenceConfirmed)
	return result
}

func aggregate(records []model.MerchantPatternRecord) Stats {
	var stats Stats
	var confirmedConfidence float64

	for _, record := range records {
		stats.Total++
		switch record.Status {
		case model.SuggestionConfirmed:
			stats.Confirmed++
			confirmedConfidence += record.Confidence
		case model.SuggestionDeclined:
			stats.Declined++
		case model.SuggestionUnmatched:
			stats.Unmatched++
		}
	}

	if stats.Total > 0 {
		stats.Accuracy = float64(stats.Confirmed) / float64(stats.Total)
	}
	if stats.Confirmed > 0 {
		stats.AvgConfidenceConfirmed = confirmedConfidence / float64(stats.Confirmed)
	}

	return stats
}
