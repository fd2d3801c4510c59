package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lockstep-fin/lockstep/internal/common"
	"github.com/lockstep-fin/lockstep/internal/model"
)

// SaveEmbedding stores the single live embedding for an entity, replacing any
// previous vector for the same (tenant, entity type, entity id).
func (s *SQLiteStorage) SaveEmbedding(ctx context.Context, embedding *model.Embedding) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEmbedding(embedding); err != nil {
		return err
	}

	vector, err := encodeVector(embedding.Vector)
	if err != nil {
		return err
	}

	if embedding.CreatedAt.IsZero() {
		embedding.CreatedAt = time.Now()
	}
	embedding.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO embeddings (
			tenant_id, entity_type, entity_id, vector, source_text, model,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, entity_type, entity_id) DO UPDATE SET
			vector = excluded.vector,
			source_text = excluded.source_text,
			model = excluded.model,
			updated_at = excluded.updated_at
	`,
		embedding.TenantID, string(embedding.EntityType), embedding.EntityID,
		vector, embedding.SourceText, embedding.Model,
		embedding.CreatedAt, embedding.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}

	return nil
}

// GetEmbedding returns the stored embedding for an entity.
func (s *SQLiteStorage) GetEmbedding(ctx context.Context, tenantID string, entityType model.EmbeddingEntity, entityID string) (*model.Embedding, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if err := validateString(entityID, "entityID"); err != nil {
		return nil, err
	}

	var embedding model.Embedding
	var entity, vector string
	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, entity_type, entity_id, vector, source_text, model,
		       created_at, updated_at
		FROM embeddings
		WHERE tenant_id = ? AND entity_type = ? AND entity_id = ?
	`, tenantID, string(entityType), entityID).Scan(
		&embedding.TenantID, &entity, &embedding.EntityID, &vector,
		&embedding.SourceText, &embedding.Model,
		&embedding.CreatedAt, &embedding.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s %s: %w", entityType, entityID, common.ErrEmbeddingMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query embedding: %w", err)
	}

	embedding.EntityType = model.EmbeddingEntity(entity)
	embedding.Vector, err = decodeVector(vector)
	if err != nil {
		return nil, err
	}

	return &embedding, nil
}

// Vectors are persisted as JSON arrays in a TEXT column. SQLite has no native
// vector type; the adapter owns the codec so every query path hydrates
// identical float64 slices.
func encodeVector(vector []float64) (string, error) {
	data, err := json.Marshal(vector)
	if err != nil {
		return "", fmt.Errorf("failed to encode vector: %w", err)
	}
	return string(data), nil
}

func decodeVector(data string) ([]float64, error) {
	var vector []float64
	if err := json.Unmarshal([]byte(data), &vector); err != nil {
		return nil, fmt.Errorf("failed to decode vector: %w", err)
	}
	return vector, nil
}
