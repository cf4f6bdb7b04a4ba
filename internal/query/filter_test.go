package query

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptointel/internal/domain"
)

func rec(id int64, addr, risk string, cat domain.Category) domain.InvestigationRecord {
	return domain.InvestigationRecord{
		ID:         id,
		Address:    addr,
		CryptoType: domain.CryptoBTC,
		RiskScore:  decimal.RequireFromString(risk),
		Category:   cat,
		PII:        "Partial Match",
		Source:     "News Outlet",
		LastScan:   time.Date(2024, 7, 20, 0, 0, 0, 0, time.UTC),
		Confidence: decimal.RequireFromString("90.0"),
	}
}

func scenario() []domain.InvestigationRecord {
	return []domain.InvestigationRecord{
		rec(1, "bc1qAAA111", "3.0", domain.CategoryScam),
		rec(2, "bc1qbbb222", "8.0", domain.CategoryScam),
		rec(3, "0xCCC333", "9.5", domain.CategoryDarknetMarket),
	}
}

func ids(rs []domain.InvestigationRecord) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestFilterScenario(t *testing.T) {
	r := scenario()

	got, err := Filter(r, FilterSpec{MinRiskScore: decimal.RequireFromString("8.0")})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(got))

	got, err = Filter(r, FilterSpec{
		Categories:   []domain.Category{domain.CategoryScam},
		MinRiskScore: decimal.RequireFromString("5.0"),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(got))

	got, err = Filter(r, FilterSpec{
		Categories:   []domain.Category{domain.CategoryScam},
		MinRiskScore: decimal.RequireFromString("8.5"),
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterIdentity(t *testing.T) {
	r := scenario()
	got, err := Filter(r, FilterSpec{})
	require.NoError(t, err)
	assert.Equal(t, r, got)

	got[0].Address = "mutated"
	assert.Equal(t, "bc1qAAA111", r[0].Address, "filter must return a new slice")
}

func TestFilterEmptyInput(t *testing.T) {
	got, err := Filter(nil, FilterSpec{SearchTerm: "x"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterSearchTermIsCaseInsensitive(t *testing.T) {
	got, err := Filter(scenario(), FilterSpec{SearchTerm: "BC1Q"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(got))

	got, err = Filter(scenario(), FilterSpec{SearchTerm: "ccc"})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(got))
}

func TestFilterThresholdBoundary(t *testing.T) {
	r := []domain.InvestigationRecord{
		rec(1, "a", "7.9", domain.CategoryScam),
		rec(2, "b", "8.0", domain.CategoryScam),
		rec(3, "c", "7.95", domain.CategoryScam),
	}
	got, err := Filter(r, FilterSpec{MinRiskScore: decimal.RequireFromString("8.0")})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(got), "7.95 displays as 8.0 but must not pass")
}

func TestFilterMonotonic(t *testing.T) {
	r := scenario()
	specs := []FilterSpec{
		{},
		{SearchTerm: "bc1q"},
		{SearchTerm: "bc1q", Categories: []domain.Category{domain.CategoryScam}},
		{SearchTerm: "bc1q", Categories: []domain.Category{domain.CategoryScam}, MinRiskScore: decimal.NewFromInt(5)},
	}
	prev := len(r) + 1
	for _, s := range specs {
		got, err := Filter(r, s)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), prev)
		prev = len(got)
	}
}

func TestFilterIdempotent(t *testing.T) {
	spec := FilterSpec{Categories: []domain.Category{domain.CategoryScam, domain.CategoryDarknetMarket}, MinRiskScore: decimal.NewFromInt(4)}
	a, err := Filter(scenario(), spec)
	require.NoError(t, err)
	b, err := Filter(scenario(), spec)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFilterValidation(t *testing.T) {
	tests := []struct {
		name string
		spec FilterSpec
	}{
		{"negative threshold", FilterSpec{MinRiskScore: decimal.RequireFromString("-0.1")}},
		{"threshold above max", FilterSpec{MinRiskScore: decimal.RequireFromString("10.5")}},
		{"unknown category", FilterSpec{Categories: []domain.Category{"Phishing"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Filter(scenario(), tt.spec)
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}
}

func TestToggle(t *testing.T) {
	var s FilterSpec
	s = s.Toggle(domain.CategoryScam)
	s = s.Toggle(domain.CategorySuspicious)
	assert.Equal(t, []domain.Category{domain.CategoryScam, domain.CategorySuspicious}, s.Categories)

	before := s
	s = s.Toggle(domain.CategoryScam)
	assert.Equal(t, []domain.Category{domain.CategorySuspicious}, s.Categories)
	assert.Len(t, before.Categories, 2, "toggle must not alias the previous spec")
	assert.False(t, s.IsEmpty())
	assert.True(t, s.Toggle(domain.CategorySuspicious).IsEmpty())
}
