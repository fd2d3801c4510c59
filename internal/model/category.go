package model

import "time"

// Category represents one entry of the tenant's taxonomy catalog. The catalog
// is owned by the surrounding application; this engine only reads name,
// description, and slug to build embedding source text.
type Category struct {
	CreatedAt   time.Time
	ID          string
	TenantID    string
	Name        string
	Description string
	Slug        string
	IsActive    bool
}

// CategoryMatch is one scored recommendation result.
type CategoryMatch struct {
	CategoryID string
	Name       string
	Similarity float64
}
