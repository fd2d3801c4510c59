// Package category recommends taxonomy categories via semantic similarity of
// learned embeddings.
package category

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/lockstep-fin/lockstep/internal/model"
	"github.com/lockstep-fin/lockstep/internal/score"
	"github.com/lockstep-fin/lockstep/internal/service"
)

// Similarity cutoffs. Listings tolerate weaker matches than a single
// best-match recommendation.
const (
	MinListSimilarity = 0.30
	MinBestSimilarity = 0.40
)

// Store is the persistence surface the recommender needs: stored category
// embeddings plus the read-only category catalog.
type Store interface {
	FindCategoryEmbeddings(ctx context.Context, tenantID string) ([]model.Embedding, error)
	UpsertCategoryEmbedding(ctx context.Context, embedding *model.Embedding) error
	GetCategories(ctx context.Context, tenantID string) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, tenantID, id string) (*model.Category, error)
}

// Recommender finds the most semantically similar categories for a tenant.
// All its operations are read-only analysis except embedding generation,
// which upserts through the store.
type Recommender struct {
	store    Store
	provider service.EmbeddingProvider
}

// NewRecommender creates a category recommender.
func NewRecommender(store Store, provider service.EmbeddingProvider) *Recommender {
	return &Recommender{
		store:    store,
		provider: provider,
	}
}

// Recommend returns the topN categories most similar to the given free text.
// Provider failures propagate: a degraded recommendation is worse than an
// explicit error.
func (r *Recommender) Recommend(ctx context.Context, tenantID, text string, topN int, minSimilarity float64) ([]model.CategoryMatch, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("recommendation text cannot be empty")
	}

	query, err := r.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed recommendation text: %w", err)
	}

	return r.rank(ctx, tenantID, query, "", topN, minSimilarity)
}

// BestMatch returns the single strongest recommendation for the text, or nil
// when nothing clears the best-match cutoff. "No good candidate" is a valid
// negative result, not an error.
func (r *Recommender) BestMatch(ctx context.Context, tenantID, text string) (*model.CategoryMatch, error) {
	matches, err := r.Recommend(ctx, tenantID, text, 1, MinBestSimilarity)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// Relate returns the topN categories most similar to an existing category,
// excluding the category itself. The category's embedding is generated
// lazily on first use.
func (r *Recommender) Relate(ctx context.Context, tenantID, categoryID string, topN int) ([]model.CategoryMatch, error) {
	embedding, err := r.EnsureEmbedding(ctx, tenantID, categoryID)
	if err != nil {
		return nil, err
	}

	return r.rank(ctx, tenantID, embedding.Vector, categoryID, topN, MinListSimilarity)
}

// EnsureEmbedding returns the stored embedding for a category, generating and
// persisting it when absent. Unlike listing paths, generation failures
// propagate to the caller.
func (r *Recommender) EnsureEmbedding(ctx context.Context, tenantID, categoryID string) (*model.Embedding, error) {
	stored, err := r.store.FindCategoryEmbeddings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load category embeddings: %w", err)
	}
	for i := range stored {
		if stored[i].EntityID == categoryID {
			return &stored[i], nil
		}
	}

	cat, err := r.store.GetCategoryByID(ctx, tenantID, categoryID)
	if err != nil {
		return nil, err
	}

	return r.generateEmbedding(ctx, cat)
}

// RefreshEmbeddings rebuilds the embeddings of every active category for a
// tenant. Returns the number of categories refreshed.
func (r *Recommender) RefreshEmbeddings(ctx context.Context, tenantID string) (int, error) {
	categories, err := r.store.GetCategories(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to load categories: %w", err)
	}

	for i := range categories {
		if _, err := r.generateEmbedding(ctx, &categories[i]); err != nil {
			return i, fmt.Errorf("failed to refresh embedding for category %s: %w", categories[i].ID, err)
		}
	}

	slog.Info("category embeddings refreshed", "tenant_id", tenantID, "count", len(categories))
	return len(categories), nil
}

func (r *Recommender) generateEmbedding(ctx context.Context, cat *model.Category) (*model.Embedding, error) {
	sourceText := EmbeddingSourceText(cat)

	vector, err := r.provider.Embed(ctx, sourceText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed category %s: %w", cat.ID, err)
	}

	embedding := &model.Embedding{
		TenantID:   cat.TenantID,
		EntityType: model.EntityCategory,
		EntityID:   cat.ID,
		SourceText: sourceText,
		Vector:     vector,
	}
	if err := r.store.UpsertCategoryEmbedding(ctx, embedding); err != nil {
		return nil, err
	}

	return embedding, nil
}

// rank scores every stored category embedding against the query vector and
// returns the filtered, sorted top N.
func (r *Recommender) rank(ctx context.Context, tenantID string, query []float64, excludeID string, topN int, minSimilarity float64) ([]model.CategoryMatch, error) {
	embeddings, err := r.store.FindCategoryEmbeddings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load category embeddings: %w", err)
	}

	categories, err := r.store.GetCategories(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	names := make(map[string]string, len(categories))
	for _, cat := range categories {
		names[cat.ID] = cat.Name
	}

	var matches []model.CategoryMatch
	for _, embedding := range embeddings {
		if embedding.EntityID == excludeID {
			continue
		}
		name, active := names[embedding.EntityID]
		if !active {
			continue
		}

		similarity := score.CosineSimilarity(query, embedding.Vector)
		if similarity < minSimilarity {
			continue
		}

		matches = append(matches, model.CategoryMatch{
			CategoryID: embedding.EntityID,
			Name:       name,
			Similarity: roundSimilarity(similarity),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if topN > 0 && len(matches) > topN {
		matches = matches[:topN]
	}
	return matches, nil
}

// EmbeddingSourceText builds the text a category is embedded from: name,
// description, and the static keyword expansion for its slug. Short, generic
// category names produce poor embeddings on their own.
func EmbeddingSourceText(cat *model.Category) string {
	parts := []string{cat.Name}
	if cat.Description != "" {
		parts = append(parts, cat.Description)
	}
	if keywords := keywordExpansion(cat.Slug); len(keywords) > 0 {
		parts = append(parts, strings.Join(keywords, ", "))
	}
	return strings.Join(parts, ". ")
}

func roundSimilarity(similarity float64) float64 {
	return math.Round(similarity*1000) / 1000
}
