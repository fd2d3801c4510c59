package model

import "time"

// EmbeddingEntity identifies which kind of record a vector belongs to.
type EmbeddingEntity string

// Embedding entity constants.
const (
	EntityInboxItem   EmbeddingEntity = "inbox_item"
	EntityTransaction EmbeddingEntity = "transaction"
	EntityCategory    EmbeddingEntity = "category"
)

// Embedding is a fixed-length vector attached to an inbox item, transaction,
// or category. It is produced by an external provider from normalized source
// text and treated as an opaque similarity key; at most one live embedding
// exists per (tenant, entity type, entity id).
type Embedding struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	TenantID   string
	EntityType EmbeddingEntity
	EntityID   string
	SourceText string
	Model      string
	Vector     []float64
}
