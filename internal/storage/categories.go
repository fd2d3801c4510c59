package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lockstep-fin/lockstep/internal/common"
	"github.com/lockstep-fin/lockstep/internal/model"
)

// The category catalog is owned by the surrounding application; this engine
// reads it to build embedding source text. SaveCategory exists so demos and
// tests can seed a catalog.

// GetCategories returns all active categories for a tenant.
func (s *SQLiteStorage) GetCategories(ctx context.Context, tenantID string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, description, slug, is_active, created_at
		FROM categories
		WHERE tenant_id = ? AND is_active = 1
		ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.TenantID, &cat.Name, &cat.Description, &cat.Slug, &cat.IsActive, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "tenant_id", tenantID, "count", len(categories))
	return categories, nil
}

// GetCategoryByID returns a category by its identifier.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, tenantID, id string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var cat model.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, description, slug, is_active, created_at
		FROM categories
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id).Scan(&cat.ID, &cat.TenantID, &cat.Name, &cat.Description, &cat.Slug, &cat.IsActive, &cat.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &cat, nil
}

// SaveCategory inserts or updates a catalog entry.
func (s *SQLiteStorage) SaveCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if err := validateString(category.ID, "category.ID"); err != nil {
		return err
	}
	if err := validateString(category.TenantID, "category.TenantID"); err != nil {
		return err
	}
	if err := validateString(category.Name, "category.Name"); err != nil {
		return err
	}

	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, tenant_id, name, description, slug, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			slug = excluded.slug,
			is_active = excluded.is_active
	`, category.ID, category.TenantID, category.Name, category.Description, category.Slug, category.IsActive, category.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}

	return nil
}
