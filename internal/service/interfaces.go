// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/lockstep-fin/lockstep/internal/model"
)

// InboxItemFilter defines filtering options for inbox item queries.
type InboxItemFilter struct {
	Status *model.InboxItemStatus
	Limit  int
	Offset int
}

// SuggestionFilter defines filtering options for suggestion queries.
type SuggestionFilter struct {
	Status      *model.SuggestionStatus
	InboxItemID string
	Limit       int
}

// PatternQuery bounds a merchant-pattern similarity lookup.
type PatternQuery struct {
	DecidedAfter      time.Time
	DistanceThreshold float64
	Limit             int
}

// CandidateQuery bounds a candidate-transaction similarity lookup.
type CandidateQuery struct {
	DistanceThreshold float64
	DateWindowDays    int
	Limit             int
}

// CandidateTransaction is a ledger transaction returned by nearest-neighbor
// search, with its embedding similarity to the query vector.
type CandidateTransaction struct {
	Transaction model.Transaction
	Similarity  float64
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	SimilarityStore

	// Inbox item operations
	SaveInboxItem(ctx context.Context, item *model.InboxItem) error
	GetInboxItem(ctx context.Context, tenantID, id string) (*model.InboxItem, error)
	ListInboxItems(ctx context.Context, tenantID string, filter InboxItemFilter) ([]model.InboxItem, error)
	UpdateInboxItemStatus(ctx context.Context, tenantID, id string, status model.InboxItemStatus) error

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransaction(ctx context.Context, tenantID, id string) (*model.Transaction, error)

	// Suggestion operations
	UpsertSuggestion(ctx context.Context, suggestion *model.MatchSuggestion) error
	GetSuggestion(ctx context.Context, tenantID, id string) (*model.MatchSuggestion, error)
	GetSuggestionByPair(ctx context.Context, tenantID, inboxItemID, transactionID string) (*model.MatchSuggestion, error)
	ListSuggestions(ctx context.Context, tenantID string, filter SuggestionFilter) ([]model.MatchSuggestion, error)
	HasDismissedSuggestion(ctx context.Context, tenantID, inboxItemID, transactionID string) (bool, error)

	// ConfirmSuggestion and DeclineSuggestion each apply the suggestion
	// status change and the inbox item status change in one database
	// transaction; a crash cannot leave the two halves disagreeing.
	ConfirmSuggestion(ctx context.Context, tenantID, suggestionID, inboxItemID, transactionID, userID string) error
	DeclineSuggestion(ctx context.Context, tenantID, suggestionID, inboxItemID, userID string) error

	// Embedding operations
	SaveEmbedding(ctx context.Context, embedding *model.Embedding) error
	GetEmbedding(ctx context.Context, tenantID string, entityType model.EmbeddingEntity, entityID string) (*model.Embedding, error)

	// Category catalog (read side; seeding exists for demos and tests)
	GetCategories(ctx context.Context, tenantID string) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, tenantID, id string) (*model.Category, error)
	SaveCategory(ctx context.Context, category *model.Category) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// SimilarityStore is the vector-similarity contract consumed by the merchant
// pattern analyzer and the category recommender. It retrieves rows near a
// query embedding; it never interprets scores.
type SimilarityStore interface {
	// FindNearMerchantPatterns returns decided suggestions whose stored
	// inbox and transaction embeddings are each within the cosine distance
	// threshold of the supplied vectors, most recent first.
	FindNearMerchantPatterns(ctx context.Context, tenantID string, inboxVec, transactionVec []float64, query PatternQuery) ([]model.MerchantPatternRecord, error)

	// FindCategoryEmbeddings returns all stored category embeddings for a tenant.
	FindCategoryEmbeddings(ctx context.Context, tenantID string) ([]model.Embedding, error)

	// UpsertCategoryEmbedding stores the single live embedding for a category.
	UpsertCategoryEmbedding(ctx context.Context, embedding *model.Embedding) error

	// FindCandidateTransactions returns transactions near the inbox item's
	// embedding within a booked-date window around the document date.
	FindCandidateTransactions(ctx context.Context, tenantID string, inboxVec []float64, documentDate *time.Time, query CandidateQuery) ([]CandidateTransaction, error)
}

// EmbeddingProvider generates fixed-length vectors from text. Failures must
// surface as distinguishable errors, never as a zero vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// MatchStats shows the results of a batch matching run.
type MatchStats struct {
	ItemsProcessed int
	AutoMatched    int
	Suggested      int
	NoMatch        int
	Errors         int
	Duration       time.Duration
}
