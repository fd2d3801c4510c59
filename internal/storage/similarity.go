package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lockstep-fin/lockstep/internal/model"
	"github.com/lockstep-fin/lockstep/internal/score"
	"github.com/lockstep-fin/lockstep/internal/service"
)

// The similarity store adapter. SQLite carries no vector index, so
// nearest-neighbor queries hydrate candidate rows and filter by cosine
// distance in the adapter, behind the same contract a vector-indexed store
// would implement. All cosine math goes through score.CosineSimilarity: one
// floating-point implementation for both the merchant-pattern path and the
// category path.

// FindNearMerchantPatterns returns decided suggestions whose stored inbox and
// transaction embeddings are each within the cosine distance threshold of the
// supplied vectors, most recent first, capped at query.Limit.
func (s *SQLiteStorage) FindNearMerchantPatterns(ctx context.Context, tenantID string, inboxVec, transactionVec []float64, query service.PatternQuery) ([]model.MerchantPatternRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if len(inboxVec) == 0 || len(transactionVec) == 0 {
		return nil, fmt.Errorf("%w: query vectors", ErrEmptySlice)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ms.status, ms.confidence, ms.acted_at, ms.updated_at,
		       ie.vector, te.vector
		FROM match_suggestions ms
		JOIN embeddings ie ON ie.tenant_id = ms.tenant_id
			AND ie.entity_type = ? AND ie.entity_id = ms.inbox_item_id
		JOIN embeddings te ON te.tenant_id = ms.tenant_id
			AND te.entity_type = ? AND te.entity_id = ms.transaction_id
		WHERE ms.tenant_id = ?
		  AND ms.status IN (?, ?, ?)
		  AND ms.updated_at >= ?
		ORDER BY ms.updated_at DESC
	`,
		string(model.EntityInboxItem), string(model.EntityTransaction), tenantID,
		string(model.SuggestionConfirmed), string(model.SuggestionDeclined), string(model.SuggestionUnmatched),
		query.DecidedAfter,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchant patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.MerchantPatternRecord
	for rows.Next() {
		var status, inboxRaw, txnRaw string
		var confidence float64
		var actedAt *time.Time
		var updatedAt time.Time
		if err := rows.Scan(&status, &confidence, &actedAt, &updatedAt, &inboxRaw, &txnRaw); err != nil {
			return nil, fmt.Errorf("failed to scan merchant pattern: %w", err)
		}

		storedInbox, err := decodeVector(inboxRaw)
		if err != nil {
			return nil, err
		}
		storedTxn, err := decodeVector(txnRaw)
		if err != nil {
			return nil, err
		}

		inboxSim := score.CosineSimilarity(inboxVec, storedInbox)
		txnSim := score.CosineSimilarity(transactionVec, storedTxn)
		if 1-inboxSim > query.DistanceThreshold || 1-txnSim > query.DistanceThreshold {
			continue
		}

		decidedAt := updatedAt
		if actedAt != nil {
			decidedAt = *actedAt
		}
		records = append(records, model.MerchantPatternRecord{
			DecidedAt:             decidedAt,
			Status:                model.SuggestionStatus(status),
			Confidence:            confidence,
			InboxSimilarity:       inboxSim,
			TransactionSimilarity: txnSim,
		})

		if query.Limit > 0 && len(records) >= query.Limit {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating merchant patterns: %w", err)
	}

	slog.Debug("merchant pattern lookup",
		"tenant_id", tenantID,
		"matches", len(records),
		"threshold", query.DistanceThreshold)
	return records, nil
}

// FindCategoryEmbeddings returns all stored category embeddings for a tenant.
func (s *SQLiteStorage) FindCategoryEmbeddings(ctx context.Context, tenantID string) ([]model.Embedding, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id, entity_type, entity_id, vector, source_text, model,
		       created_at, updated_at
		FROM embeddings
		WHERE tenant_id = ? AND entity_type = ?
	`, tenantID, string(model.EntityCategory))
	if err != nil {
		return nil, fmt.Errorf("failed to query category embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var embeddings []model.Embedding
	for rows.Next() {
		var embedding model.Embedding
		var entity, vector string
		if err := rows.Scan(
			&embedding.TenantID, &entity, &embedding.EntityID, &vector,
			&embedding.SourceText, &embedding.Model,
			&embedding.CreatedAt, &embedding.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category embedding: %w", err)
		}

		embedding.EntityType = model.EmbeddingEntity(entity)
		embedding.Vector, err = decodeVector(vector)
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, embedding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category embeddings: %w", err)
	}

	return embeddings, nil
}

// UpsertCategoryEmbedding stores the single live embedding for a category.
func (s *SQLiteStorage) UpsertCategoryEmbedding(ctx context.Context, embedding *model.Embedding) error {
	if embedding != nil && embedding.EntityType == "" {
		embedding.EntityType = model.EntityCategory
	}
	if embedding != nil && embedding.EntityType != model.EntityCategory {
		return fmt.Errorf("%w: entity type %q is not a category", ErrInvalidEmbedding, embedding.EntityType)
	}
	return s.SaveEmbedding(ctx, embedding)
}

// FindCandidateTransactions returns transactions whose embeddings sit within
// the cosine distance threshold of the inbox item's vector and whose booked
// date falls inside the day window around the document date (when known).
func (s *SQLiteStorage) FindCandidateTransactions(ctx context.Context, tenantID string, inboxVec []float64, documentDate *time.Time, query service.CandidateQuery) ([]service.CandidateTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if len(inboxVec) == 0 {
		return nil, fmt.Errorf("%w: inbox vector", ErrEmptySlice)
	}

	sqlQuery := `
		SELECT lt.id, lt.tenant_id, lt.description, COALESCE(lt.merchant_name, ''),
		       lt.amount, lt.currency, lt.booked_at, lt.created_at, e.vector
		FROM ledger_transactions lt
		JOIN embeddings e ON e.tenant_id = lt.tenant_id
			AND e.entity_type = ? AND e.entity_id = lt.id
		WHERE lt.tenant_id = ?`
	args := []any{string(model.EntityTransaction), tenantID}

	if documentDate != nil && query.DateWindowDays > 0 {
		window := time.Duration(query.DateWindowDays) * 24 * time.Hour
		sqlQuery += ` AND lt.booked_at BETWEEN ? AND ?`
		args = append(args, documentDate.Add(-window), documentDate.Add(window))
	}
	sqlQuery += ` ORDER BY lt.booked_at DESC`

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []service.CandidateTransaction
	for rows.Next() {
		var txn model.Transaction
		var vector string
		if err := rows.Scan(
			&txn.ID, &txn.TenantID, &txn.Description, &txn.MerchantName,
			&txn.Amount, &txn.Currency, &txn.BookedAt, &txn.CreatedAt, &vector,
		); err != nil {
			return nil, fmt.Errorf("failed to scan candidate transaction: %w", err)
		}

		stored, err := decodeVector(vector)
		if err != nil {
			return nil, err
		}

		similarity := score.CosineSimilarity(inboxVec, stored)
		if 1-similarity > query.DistanceThreshold {
			continue
		}

		candidates = append(candidates, service.CandidateTransaction{
			Transaction: txn,
			Similarity:  similarity,
		})

		if query.Limit > 0 && len(candidates) >= query.Limit {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate transactions: %w", err)
	}

	return candidates, nil
}
