package model

import "time"

// SuggestionStatus indicates where a match suggestion sits in its lifecycle.
type SuggestionStatus string

// Suggestion status constants. StatusUnmatched is written by an external
// negative-feedback classifier, never by user confirmation or decline; this
// engine only reads it as a negative signal.
const (
	SuggestionPending   SuggestionStatus = "pending"
	SuggestionConfirmed SuggestionStatus = "confirmed"
	SuggestionDeclined  SuggestionStatus = "declined"
	SuggestionUnmatched SuggestionStatus = "unmatched"
)

// IsDecided reports whether a human or classifier has ruled on the pairing.
func (s SuggestionStatus) IsDecided() bool {
	return s == SuggestionConfirmed || s == SuggestionDeclined || s == SuggestionUnmatched
}

// MatchType tags how a suggestion was produced.
type MatchType string

// Match type constants.
const (
	MatchTypeAuto           MatchType = "auto_matched"
	MatchTypeHighConfidence MatchType = "high_confidence"
	MatchTypeSuggested      MatchType = "suggested"
)

// MatchSuggestion is a proposed pairing between an inbox item and a ledger
// transaction. At most one suggestion exists per (inbox item, transaction)
// pair; re-derivation refreshes the existing row.
//
// Component scores are nil when the underlying dimension could not be
// compared (for example a missing document date).
type MatchSuggestion struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ActedAt        *time.Time
	AmountScore    *float64
	CurrencyScore  *float64
	DateScore      *float64
	EmbeddingScore *float64
	ActedBy        *string
	ID             string
	TenantID       string
	InboxItemID    string
	TransactionID  string
	MatchType      MatchType
	Status         SuggestionStatus
	Confidence     float64
}

// MerchantPatternRecord is a historical, decided suggestion returned by the
// similarity store for merchant-pattern analysis, together with how close its
// stored embeddings sit to the current pair.
type MerchantPatternRecord struct {
	DecidedAt             time.Time
	Status                SuggestionStatus
	Confidence            float64
	InboxSimilarity       float64
	TransactionSimilarity float64
}
