package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lockstep-fin/lockstep/internal/common"
	"github.com/lockstep-fin/lockstep/internal/model"
)

// SaveTransactions stores ledger transactions. Existing rows are left
// untouched: transactions are immutable from this engine's perspective.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_transactions (
			id, tenant_id, description, merchant_name, amount, currency, booked_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, txn := range transactions {
		createdAt := txn.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			txn.ID, txn.TenantID, txn.Description, txn.MerchantName,
			txn.Amount, txn.Currency, txn.BookedAt, createdAt,
		); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransaction returns a single ledger transaction for a tenant.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, tenantID, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var txn model.Transaction
	var merchant sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, description, merchant_name, amount, currency, booked_at, created_at
		FROM ledger_transactions
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id).Scan(
		&txn.ID, &txn.TenantID, &txn.Description, &merchant,
		&txn.Amount, &txn.Currency, &txn.BookedAt, &txn.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}

	txn.MerchantName = merchant.String
	return &txn, nil
}
