package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func floatPtr(f float64) *float64 { return &f }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestAmountScore(t *testing.T) {
	tests := []struct {
		a    *float64
		b    *float64
		name string
		want float64
	}{
		{name: "both nil", a: nil, b: nil, want: 0.0},
		{name: "left nil", a: nil, b: floatPtr(100), want: 0.0},
		{name: "right nil", a: floatPtr(100), b: nil, want: 0.0},
		{name: "exact match", a: floatPtr(100), b: floatPtr(100), want: 1.0},
		{name: "equal absolute values", a: floatPtr(-100), b: floatPtr(100), want: 1.0},
		{name: "both zero", a: floatPtr(0), b: floatPtr(0), want: 1.0},
		{name: "within 5 percent", a: floatPtr(100), b: floatPtr(96), want: 0.9},
		{name: "exactly 5 percent", a: floatPtr(95), b: floatPtr(100), want: 0.9},
		{name: "within 15 percent", a: floatPtr(100), b: floatPtr(88), want: 0.7},
		{name: "exactly 15 percent", a: floatPtr(85), b: floatPtr(100), want: 0.7},
		{name: "large delta", a: floatPtr(100), b: floatPtr(50), want: 0.3},
		{name: "order of magnitude apart", a: floatPtr(10), b: floatPtr(1000), want: 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AmountScore(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCurrencyScore(t *testing.T) {
	tests := []struct {
		a    *string
		b    *string
		name string
		want float64
	}{
		{name: "equal codes", a: strPtr("EUR"), b: strPtr("EUR"), want: 1.0},
		{name: "different codes", a: strPtr("EUR"), b: strPtr("USD"), want: 0.3},
		{name: "left missing", a: nil, b: strPtr("USD"), want: 0.5},
		{name: "right missing", a: strPtr("EUR"), b: nil, want: 0.5},
		{name: "empty string is missing", a: strPtr(""), b: strPtr("USD"), want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CurrencyScore(tt.a, tt.b), 1e-9)
		})
	}
}

func TestDateScore(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		days int
		want float64
	}{
		{name: "same day", days: 0, want: 1.0},
		{name: "one day", days: 1, want: 0.9},
		{name: "three days", days: 3, want: 0.8},
		{name: "one week", days: 7, want: 0.7},
		{name: "two weeks", days: 14, want: 0.6},
		{name: "one month", days: 30, want: 0.5},
		{name: "one year", days: 365, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base.AddDate(0, 0, tt.days)
			assert.InDelta(t, tt.want, DateScore(timePtr(base), timePtr(other)), 1e-9)
			// Symmetric in direction
			assert.InDelta(t, tt.want, DateScore(timePtr(other), timePtr(base)), 1e-9)
		})
	}

	t.Run("missing dates are neutral", func(t *testing.T) {
		assert.InDelta(t, Neutral, DateScore(nil, timePtr(base)), 1e-9)
		assert.InDelta(t, Neutral, DateScore(timePtr(base), nil), 1e-9)
	})

	t.Run("non-increasing with distance", func(t *testing.T) {
		prev := 1.1
		for days := 0; days <= 60; days++ {
			got := DateScore(timePtr(base), timePtr(base.AddDate(0, 0, days)))
			assert.LessOrEqual(t, got, prev, "score increased at %d days", days)
			if days > 0 {
				assert.Less(t, got, 1.0, "only zero days may score 1.0")
			}
			prev = got
		}
	})
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vector scores one", func(t *testing.T) {
		v := []float64{0.3, -1.2, 4.5, 0.01}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := []float64{1, 2, 3}
		b := []float64{-2, 0.5, 1}
		assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-12)
	})

	t.Run("orthogonal vectors score zero", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	})

	t.Run("opposite vectors score negative one", func(t *testing.T) {
		assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 2}, []float64{-1, -2}), 1e-9)
	})

	t.Run("zero magnitude scores zero", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity([]float64{0, 0}, []float64{1, 2}))
	})

	t.Run("mismatched lengths score zero", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}))
		assert.Zero(t, CosineSimilarity(nil, []float64{1}))
	})

	t.Run("distance complements similarity", func(t *testing.T) {
		a := []float64{1, 2, 3}
		b := []float64{2, 4, 7}
		assert.InDelta(t, 1-CosineSimilarity(a, b), CosineDistance(a, b), 1e-12)
	})
}

func TestBundleIsPerfectFinancialMatch(t *testing.T) {
	assert.True(t, Bundle{Amount: 1.0, Currency: 1.0}.IsPerfectFinancialMatch())
	assert.False(t, Bundle{Amount: 0.9, Currency: 1.0}.IsPerfectFinancialMatch())
	assert.False(t, Bundle{Amount: 1.0, Currency: 0.5}.IsPerfectFinancialMatch())
}
