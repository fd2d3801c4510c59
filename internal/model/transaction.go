package model

import "time"

// Transaction represents an existing ledger entry. Transactions originate
// outside this engine and are read-only here.
type Transaction struct {
	BookedAt     time.Time
	CreatedAt    time.Time
	ID           string
	TenantID     string
	Description  string // raw booking text
	MerchantName string // cleaned counterparty name
	Currency     string
	Amount       float64
}
