// Package model defines the core domain models used throughout the application.
package model

import "time"

// InboxItemStatus tracks an inbox item through the matching lifecycle.
type InboxItemStatus string

// Inbox item status constants.
const (
	InboxStatusNew            InboxItemStatus = "new"
	InboxStatusProcessing     InboxItemStatus = "processing"
	InboxStatusAnalyzing      InboxItemStatus = "analyzing"
	InboxStatusPending        InboxItemStatus = "pending"
	InboxStatusSuggestedMatch InboxItemStatus = "suggested_match"
	InboxStatusNoMatch        InboxItemStatus = "no_match"
	InboxStatusDone           InboxItemStatus = "done"
	InboxStatusArchived       InboxItemStatus = "archived"
	InboxStatusDeleted        InboxItemStatus = "deleted"
)

// IsTerminal reports whether no further matching activity is expected.
func (s InboxItemStatus) IsTerminal() bool {
	return s == InboxStatusDone || s == InboxStatusArchived || s == InboxStatusDeleted
}

// InboxItem represents an incoming financial document (invoice, receipt,
// expense) awaiting reconciliation against a ledger transaction.
//
// Amount, Currency, and DocumentDate are nullable: OCR or upstream parsing
// may fail to extract them, and the scoring layer treats a missing value as
// an explicit signal rather than a zero.
type InboxItem struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DocumentDate  *time.Time
	Amount        *float64
	Currency      *string
	TransactionID *string // set only once a suggestion is confirmed
	ID            string
	TenantID      string
	DisplayName   string // merchant or document title extracted upstream
	Status        InboxItemStatus
}
