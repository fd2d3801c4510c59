package category_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockstep-fin/lockstep/internal/category"
	"github.com/lockstep-fin/lockstep/internal/model"
	"github.com/lockstep-fin/lockstep/internal/storage"
	"github.com/lockstep-fin/lockstep/internal/testutil"
)

// scriptedProvider returns vectors by exact source text, falling back to a
// default vector for anything unscripted.
type scriptedProvider struct {
	byText   map[string][]float64
	fallback []float64
	err      error
	calls    int
}

func (p *scriptedProvider) Embed(_ context.Context, text string) ([]float64, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if vec, ok := p.byText[text]; ok {
		return vec, nil
	}
	return p.fallback, nil
}

func seedCatalog(t *testing.T, store *storage.SQLiteStorage) {
	t.Helper()
	testutil.SeedCategories(t, store,
		model.Category{ID: "cat-software", Name: "Software", Slug: "software"},
		model.Category{ID: "cat-travel", Name: "Travel", Slug: "travel"},
		model.Category{ID: "cat-meals", Name: "Meals", Slug: "meals"},
	)
}

func seedCategoryVector(t *testing.T, store *storage.SQLiteStorage, categoryID string, vector []float64) {
	t.Helper()
	err := store.UpsertCategoryEmbedding(context.Background(), &model.Embedding{
		TenantID: testutil.TestTenant,
		EntityID: categoryID,
		Vector:   vector,
	})
	require.NoError(t, err)
}

func TestRecommend(t *testing.T) {
	store := testutil.SetupTestDB(t)
	seedCatalog(t, store)
	seedCategoryVector(t, store, "cat-software", []float64{1, 0})
	seedCategoryVector(t, store, "cat-travel", []float64{0, 1})
	seedCategoryVector(t, store, "cat-meals", []float64{0.8, 0.6})

	provider := &scriptedProvider{fallback: []float64{0.9, 0.1}}
	recommender := category.NewRecommender(store, provider)

	matches, err := recommender.Recommend(context.Background(), testutil.TestTenant, "acme cloud subscription", 5, category.MinListSimilarity)
	require.NoError(t, err)

	// Travel sits near-orthogonal to the query and falls below the cutoff.
	require.Len(t, matches, 2)
	assert.Equal(t, "cat-software", matches[0].CategoryID)
	assert.Equal(t, "Software", matches[0].Name)
	assert.Equal(t, "cat-meals", matches[1].CategoryID)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)
}

func TestRecommendRoundsToThreeDecimals(t *testing.T) {
	store := testutil.SetupTestDB(t)
	seedCatalog(t, store)
	seedCategoryVector(t, store, "cat-software", []float64{1, 0})

	provider := &scriptedProvider{fallback: []float64{0.9, 0.1}}
	recommender := category.NewRecommender(store, provider)

	matches, err := recommender.Recommend(context.Background(), testutil.TestTenant, "saas invoice", 1, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	// cos([0.9 0.1], [1 0]) = 0.99388..., rounded to 0.994.
	assert.Equal(t, 0.994, matches[0].Similarity)
}

func TestRecommendHonorsTopN(t *testing.T) {
	store := testutil.SetupTestDB(t)
	seedCatalog(t, store)
	seedCategoryVector(t, store, "cat-software", []float64{1, 0})
	seedCategoryVector(t, store, "cat-meals", []float64{0.9, 0.1})

	provider := &scriptedProvider{fallback: []float64{1, 0}}
	recommender := category.NewRecommender(store, provider)

	matches, err := recommender.Recommend(context.Background(), testutil.TestTenant, "software", 1, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "cat-software", matches[0].CategoryID)
}

func TestRecommendSkipsInactiveCategories(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()
	seedCatalog(t, store)
	seedCategoryVector(t, store, "cat-software", []float64{1, 0})

	// Deactivate after the embedding was stored.
	require.NoError(t, store.SaveCategory(ctx, &model.Category{
		ID:       "cat-software",
		TenantID: testutil.TestTenant,
		Name:     "Software",
		Slug:     "software",
		IsActive: false,
	}))

	provider := &scriptedProvider{fallback: []float64{1, 0}}
	recommender := category.NewRecommender(store, provider)

	matches, err := recommender.Recommend(ctx, testutil.TestTenant, "software", 5, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRecommendEmptyText(t *testing.T) {
	store := testutil.SetupTestDB(t)
	recommender := category.NewRecommender(store, &scriptedProvider{fallback: []float64{1}})

	_, err := recommender.Recommend(context.Background(), testutil.TestTenant, "   ", 5, 0)
	assert.Error(t, err)
}

func TestRecommendProviderErrorPropagates(t *testing.T) {
	store := testutil.SetupTestDB(t)
	recommender := category.NewRecommender(store, &scriptedProvider{err: errors.New("rate limited")})

	_, err := recommender.Recommend(context.Background(), testutil.TestTenant, "software", 5, 0)
	assert.ErrorContains(t, err, "rate limited")
}

func TestBestMatch(t *testing.T) {
	store := testutil.SetupTestDB(t)
	seedCatalog(t, store)
	seedCategoryVector(t, store, "cat-software", []float64{1, 0})
	seedCategoryVector(t, store, "cat-travel", []float64{0, 1})

	provider := &scriptedProvider{fallback: []float64{1, 0}}
	recommender := category.NewRecommender(store, provider)

	best, err := recommender.BestMatch(context.Background(), testutil.TestTenant, "github subscription")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "cat-software", best.CategoryID)
}

func TestBestMatchNothingClearsCutoff(t *testing.T) {
	store := testutil.SetupTestDB(t)
	seedCatalog(t, store)
	seedCategoryVector(t, store, "cat-travel", []float64{0, 1})

	provider := &scriptedProvider{fallback: []float64{1, 0}}
	recommender := category.NewRecommender(store, provider)

	best, err := recommender.BestMatch(context.Background(), testutil.TestTenant, "unrelated text")
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestRelateExcludesSelf(t *testing.T) {
	store := testutil.SetupTestDB(t)
	seedCatalog(t, store)
	seedCategoryVector(t, store, "cat-software", []float64{1, 0})
	seedCategoryVector(t, store, "cat-meals", []float64{0.9, 0.1})

	provider := &scriptedProvider{fallback: []float64{1, 0}}
	recommender := category.NewRecommender(store, provider)

	matches, err := recommender.Relate(context.Background(), testutil.TestTenant, "cat-software", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "cat-meals", matches[0].CategoryID)
}

func TestRelateGeneratesMissingEmbedding(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()
	seedCatalog(t, store)
	seedCategoryVector(t, store, "cat-meals", []float64{0.9, 0.1})

	provider := &scriptedProvider{fallback: []float64{1, 0}}
	recommender := category.NewRecommender(store, provider)

	// cat-software has no stored embedding yet; Relate generates one.
	matches, err := recommender.Relate(ctx, testutil.TestTenant, "cat-software", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, provider.calls)

	stored, err := store.FindCategoryEmbeddings(ctx, testutil.TestTenant)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRefreshEmbeddings(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()
	seedCatalog(t, store)

	provider := &scriptedProvider{fallback: []float64{1, 0}}
	recommender := category.NewRecommender(store, provider)

	count, err := recommender.RefreshEmbeddings(ctx, testutil.TestTenant)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 3, provider.calls)

	stored, err := store.FindCategoryEmbeddings(ctx, testutil.TestTenant)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	for _, embedding := range stored {
		assert.NotEmpty(t, embedding.SourceText)
	}
}

func TestEmbeddingSourceText(t *testing.T) {
	tests := []struct {
		name     string
		cat      model.Category
		want     string
		contains []string
	}{
		{
			name: "name only",
			cat:  model.Category{Name: "Miscellaneous"},
			want: "Miscellaneous",
		},
		{
			name: "name and description",
			cat:  model.Category{Name: "Rent", Description: "Monthly office rent"},
			want: "Rent. Monthly office rent",
		},
		{
			name:     "description and slug keywords",
			cat:      model.Category{Name: "Rent", Description: "Monthly office rent", Slug: "rent"},
			contains: []string{"Rent. Monthly office rent. ", "lease", "premises"},
		},
		{
			name:     "slug keywords expanded",
			cat:      model.Category{Name: "Software", Slug: "software"},
			contains: []string{"Software. ", "subscription", "saas"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := category.EmbeddingSourceText(&tt.cat)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
			}
			for _, fragment := range tt.contains {
				assert.Contains(t, got, fragment)
			}
		})
	}
}
