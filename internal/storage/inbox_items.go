package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lockstep-fin/lockstep/internal/common"
	"github.com/lockstep-fin/lockstep/internal/model"
	"github.com/lockstep-fin/lockstep/internal/service"
)

// SaveInboxItem inserts or updates an inbox item.
func (s *SQLiteStorage) SaveInboxItem(ctx context.Context, item *model.InboxItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInboxItem(item); err != nil {
		return err
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	item.UpdatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inbox_items (
			id, tenant_id, display_name, amount, currency, document_date,
			status, transaction_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			display_name = excluded.display_name,
			amount = excluded.amount,
			currency = excluded.currency,
			document_date = excluded.document_date,
			status = excluded.status,
			transaction_id = excluded.transaction_id,
			updated_at = excluded.updated_at
	`,
		item.ID, item.TenantID, item.DisplayName, item.Amount, item.Currency,
		item.DocumentDate, string(item.Status), item.TransactionID,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save inbox item: %w", err)
	}

	return nil
}

// GetInboxItem returns a single inbox item for a tenant.
func (s *SQLiteStorage) GetInboxItem(ctx context.Context, tenantID, id string) (*model.InboxItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, display_name, amount, currency, document_date,
		       status, transaction_id, created_at, updated_at
		FROM inbox_items
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id)

	item, err := scanInboxItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("inbox item %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query inbox item: %w", err)
	}

	return item, nil
}

// ListInboxItems returns inbox items for a tenant, optionally filtered by status.
func (s *SQLiteStorage) ListInboxItems(ctx context.Context, tenantID string, filter service.InboxItemFilter) ([]model.InboxItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, display_name, amount, currency, document_date,
		       status, transaction_id, created_at, updated_at
		FROM inbox_items
		WHERE tenant_id = ?`
	args := []any{tenantID}

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inbox items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.InboxItem
	for rows.Next() {
		item, scanErr := scanInboxItem(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan inbox item: %w", scanErr)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inbox items: %w", err)
	}

	slog.Debug("retrieved inbox items", "tenant_id", tenantID, "count", len(items))
	return items, nil
}

// UpdateInboxItemStatus moves an inbox item to a new lifecycle status without
// touching its transaction link.
func (s *SQLiteStorage) UpdateInboxItemStatus(ctx context.Context, tenantID, id string, status model.InboxItemStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE inbox_items
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND id = ?
	`, string(status), tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to update inbox item status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("inbox item %s: %w", id, common.ErrNotFound)
	}

	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanInboxItem(row scanner) (*model.InboxItem, error) {
	var item model.InboxItem
	var status string
	if err := row.Scan(
		&item.ID, &item.TenantID, &item.DisplayName, &item.Amount,
		&item.Currency, &item.DocumentDate, &status, &item.TransactionID,
		&item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	item.Status = model.InboxItemStatus(status)
	return &item, nil
}
