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

// UpsertSuggestion inserts a match suggestion or, if one already exists for
// the same (inbox item, transaction) pair, refreshes its scores and status.
// The original row ID and creation time survive a refresh.
func (s *SQLiteStorage) UpsertSuggestion(ctx context.Context, suggestion *model.MatchSuggestion) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSuggestion(suggestion); err != nil {
		return err
	}

	if suggestion.CreatedAt.IsZero() {
		suggestion.CreatedAt = time.Now()
	}
	suggestion.UpdatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_suggestions (
			id, tenant_id, inbox_item_id, transaction_id,
			amount_score, currency_score, date_score, embedding_score,
			confidence, match_type, status, acted_by, acted_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, inbox_item_id, transaction_id) DO UPDATE SET
			amount_score = excluded.amount_score,
			currency_score = excluded.currency_score,
			date_score = excluded.date_score,
			embedding_score = excluded.embedding_score,
			confidence = excluded.confidence,
			match_type = excluded.match_type,
			status = excluded.status,
			updated_at = excluded.updated_at
	`,
		suggestion.ID, suggestion.TenantID, suggestion.InboxItemID, suggestion.TransactionID,
		suggestion.AmountScore, suggestion.CurrencyScore, suggestion.DateScore, suggestion.EmbeddingScore,
		suggestion.Confidence, string(suggestion.MatchType), string(suggestion.Status),
		suggestion.ActedBy, suggestion.ActedAt, suggestion.CreatedAt, suggestion.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert suggestion: %w", err)
	}

	return nil
}

// GetSuggestion returns a suggestion by ID.
func (s *SQLiteStorage) GetSuggestion(ctx context.Context, tenantID, id string) (*model.MatchSuggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, suggestionSelect+`WHERE tenant_id = ? AND id = ?`, tenantID, id)

	suggestion, err := scanSuggestion(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("suggestion %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestion: %w", err)
	}

	return suggestion, nil
}

// GetSuggestionByPair returns the suggestion for an exact (inbox item,
// transaction) pair, or nil if the pair has never been evaluated.
func (s *SQLiteStorage) GetSuggestionByPair(ctx context.Context, tenantID, inboxItemID, transactionID string) (*model.MatchSuggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		suggestionSelect+`WHERE tenant_id = ? AND inbox_item_id = ? AND transaction_id = ?`,
		tenantID, inboxItemID, transactionID)

	suggestion, err := scanSuggestion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestion by pair: %w", err)
	}

	return suggestion, nil
}

// ListSuggestions returns suggestions for a tenant, newest first.
func (s *SQLiteStorage) ListSuggestions(ctx context.Context, tenantID string, filter service.SuggestionFilter) ([]model.MatchSuggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	query := suggestionSelect + `WHERE tenant_id = ?`
	args := []any{tenantID}

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.InboxItemID != "" {
		query += ` AND inbox_item_id = ?`
		args = append(args, filter.InboxItemID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var suggestions []model.MatchSuggestion
	for rows.Next() {
		suggestion, scanErr := scanSuggestion(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", scanErr)
		}
		suggestions = append(suggestions, *suggestion)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}

	return suggestions, nil
}

// HasDismissedSuggestion reports whether the pair was previously declined by a
// user or marked unmatched by the external classifier.
func (s *SQLiteStorage) HasDismissedSuggestion(ctx context.Context, tenantID, inboxItemID, transactionID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return false, err
	}

	var dismissed bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM match_suggestions
			WHERE tenant_id = ? AND inbox_item_id = ? AND transaction_id = ?
			  AND status IN (?, ?)
		)
	`, tenantID, inboxItemID, transactionID,
		string(model.SuggestionDeclined), string(model.SuggestionUnmatched),
	).Scan(&dismissed)
	if err != nil {
		return false, fmt.Errorf("failed to check dismissed suggestion: %w", err)
	}

	return dismissed, nil
}

// ConfirmSuggestion marks a pending suggestion confirmed and moves the linked
// inbox item to done with its transaction link set. Both writes happen in one
// database transaction: a confirmed suggestion whose inbox item is not done
// would violate the lifecycle invariant.
func (s *SQLiteStorage) ConfirmSuggestion(ctx context.Context, tenantID, suggestionID, inboxItemID, transactionID, userID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for name, v := range map[string]string{
		"tenantID": tenantID, "suggestionID": suggestionID,
		"inboxItemID": inboxItemID, "transactionID": transactionID,
	} {
		if err := validateString(v, name); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.decideSuggestionTx(ctx, tx, tenantID, suggestionID, model.SuggestionConfirmed, userID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE inbox_items
		SET status = ?, transaction_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND id = ?
	`, string(model.InboxStatusDone), transactionID, tenantID, inboxItemID)
	if err != nil {
		return fmt.Errorf("failed to update inbox item: %w", err)
	}
	if affected, raErr := result.RowsAffected(); raErr != nil {
		return fmt.Errorf("failed to check rows affected: %w", raErr)
	} else if affected == 0 {
		return fmt.Errorf("%w: confirm touched suggestion %s but inbox item %s does not exist",
			common.ErrInvariantViolation, suggestionID, inboxItemID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit confirmation: %w", err)
	}

	slog.Info("suggestion confirmed",
		"tenant_id", tenantID,
		"suggestion_id", suggestionID,
		"inbox_item_id", inboxItemID,
		"transaction_id", transactionID)
	return nil
}

// DeclineSuggestion marks a pending suggestion declined and returns the inbox
// item to the matching pool. Applied in one database transaction, leaving the
// item's transaction link untouched.
func (s *SQLiteStorage) DeclineSuggestion(ctx context.Context, tenantID, suggestionID, inboxItemID, userID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for name, v := range map[string]string{
		"tenantID": tenantID, "suggestionID": suggestionID, "inboxItemID": inboxItemID,
	} {
		if err := validateString(v, name); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.decideSuggestionTx(ctx, tx, tenantID, suggestionID, model.SuggestionDeclined, userID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE inbox_items
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND id = ?
	`, string(model.InboxStatusPending), tenantID, inboxItemID)
	if err != nil {
		return fmt.Errorf("failed to update inbox item: %w", err)
	}
	if affected, raErr := result.RowsAffected(); raErr != nil {
		return fmt.Errorf("failed to check rows affected: %w", raErr)
	} else if affected == 0 {
		return fmt.Errorf("%w: decline touched suggestion %s but inbox item %s does not exist",
			common.ErrInvariantViolation, suggestionID, inboxItemID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit decline: %w", err)
	}

	slog.Info("suggestion declined",
		"tenant_id", tenantID,
		"suggestion_id", suggestionID,
		"inbox_item_id", inboxItemID)
	return nil
}

// decideSuggestionTx moves a suggestion from pending to a decided status.
// Only pending suggestions may be decided by user action.
func (s *SQLiteStorage) decideSuggestionTx(ctx context.Context, tx *sql.Tx, tenantID, suggestionID string, status model.SuggestionStatus, userID string) error {
	var actedBy any
	if userID != "" {
		actedBy = userID
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE match_suggestions
		SET status = ?, acted_by = ?, acted_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND id = ? AND status = ?
	`, string(status), actedBy, time.Now(), tenantID, suggestionID, string(model.SuggestionPending))
	if err != nil {
		return fmt.Errorf("failed to update suggestion: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		existing, getErr := s.getSuggestionStatusTx(ctx, tx, tenantID, suggestionID)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: suggestion %s is %s, not pending", common.ErrInvariantViolation, suggestionID, existing)
	}

	return nil
}

func (s *SQLiteStorage) getSuggestionStatusTx(ctx context.Context, tx *sql.Tx, tenantID, suggestionID string) (model.SuggestionStatus, error) {
	var status string
	err := tx.QueryRowContext(ctx, `
		SELECT status FROM match_suggestions WHERE tenant_id = ? AND id = ?
	`, tenantID, suggestionID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("suggestion %s: %w", suggestionID, common.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query suggestion status: %w", err)
	}
	return model.SuggestionStatus(status), nil
}

const suggestionSelect = `
	SELECT id, tenant_id, inbox_item_id, transaction_id,
	       amount_score, currency_score, date_score, embedding_score,
	       confidence, match_type, status, acted_by, acted_at,
	       created_at, updated_at
	FROM match_suggestions
`

func scanSuggestion(row scanner) (*model.MatchSuggestion, error) {
	var suggestion model.MatchSuggestion
	var matchType, status string
	if err := row.Scan(
		&suggestion.ID, &suggestion.TenantID, &suggestion.InboxItemID, &suggestion.TransactionID,
		&suggestion.AmountScore, &suggestion.CurrencyScore, &suggestion.DateScore, &suggestion.EmbeddingScore,
		&suggestion.Confidence, &matchType, &status, &suggestion.ActedBy, &suggestion.ActedAt,
		&suggestion.CreatedAt, &suggestion.UpdatedAt,
	); err != nil {
		return nil, err
	}
	suggestion.MatchType = model.MatchType(matchType)
	suggestion.Status = model.SuggestionStatus(status)
	return &suggestion, nil
}
