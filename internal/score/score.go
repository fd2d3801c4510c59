// Package score provides the pure similarity scoring primitives used by the
// matching engine. Every function here is deterministic, side-effect-free,
// and returns a value in [0,1].
package score

import (
	"math"
	"time"
)

// Neutral is the fallback score when a dimension carries no information in
// either direction. It must never be treated as a positive signal.
const Neutral = 0.5

// AmountScore compares two monetary amounts by relative difference of their
// absolute values. Financial matches are rarely bit-exact (fees, FX rounding),
// so small deltas stay strong while large ones are penalized sharply rather
// than linearly.
func AmountScore(a, b *float64) float64 {
	if a == nil || b == nil {
		return 0.0
	}

	absA := math.Abs(*a)
	absB := math.Abs(*b)
	if absA == absB {
		return 1.0
	}

	larger := math.Max(absA, absB)
	if larger == 0 {
		return 1.0
	}

	relDiff := math.Abs(absA-absB) / larger
	switch {
	case relDiff <= 0.05:
		return 0.9
	case relDiff <= 0.15:
		return 0.7
	default:
		return 0.3
	}
}

// CurrencyScore compares two ISO currency codes. A missing code is
// insufficient information, not a mismatch.
func CurrencyScore(a, b *string) float64 {
	if a == nil || b == nil || *a == "" || *b == "" {
		return Neutral
	}
	if *a == *b {
		return 1.0
	}
	return 0.3
}

// DateScore compares two dates by whole-day distance. Strictly non-increasing
// with a floor: very old candidate pairs remain plausible, just not preferred.
func DateScore(a, b *time.Time) float64 {
	if a == nil || b == nil {
		return Neutral
	}

	days := int(math.Abs(a.Sub(*b).Hours()) / 24)
	switch {
	case days == 0:
		return 1.0
	case days == 1:
		return 0.9
	case days <= 3:
		return 0.8
	case days <= 7:
		return 0.7
	case days <= 14:
		return 0.6
	default:
		return Neutral
	}
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched lengths or zero-magnitude input. This is the only
// cosine implementation in the codebase; the similarity store adapter routes
// through it so that merchant-pattern distance and category similarity share
// identical floating-point behavior.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// CosineDistance is 1 - CosineSimilarity, the convention used by the
// similarity store's nearest-neighbor filters.
func CosineDistance(a, b []float64) float64 {
	return 1 - CosineSimilarity(a, b)
}

// Bundle carries the component scores for one candidate pairing, as consumed
// by the merchant pattern eligibility gate.
type Bundle struct {
	Amount     float64
	Currency   float64
	Date       float64
	Embedding  float64
	Confidence float64
}

// IsPerfectFinancialMatch reports an exact amount and currency agreement.
func (b Bundle) IsPerfectFinancialMatch() bool {
	return b.Amount == 1.0 && b.Currency == 1.0
}
