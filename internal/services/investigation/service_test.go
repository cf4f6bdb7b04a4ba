package investigation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptointel/internal/adapters/memory"
	"cryptointel/internal/domain"
	"cryptointel/internal/export"
	"cryptointel/internal/metrics"
	"cryptointel/internal/ports"
	"cryptointel/internal/query"
	"cryptointel/internal/seed"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	now := func() time.Time { return time.Date(2024, 7, 26, 12, 0, 0, 0, time.UTC) }
	ds, err := seed.Generator{Count: 20, Seed: 5, Now: now}.Load(context.Background())
	require.NoError(t, err)
	store := memory.New(memory.WithClock(now))
	require.NoError(t, store.Seed(context.Background(), ds))
	return New(store, export.New(export.Options{}), ds.Detail, metrics.New("test"), nil), store
}

func TestSearchMatchesPureFilter(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	spec := query.FilterSpec{MinRiskScore: decimal.NewFromInt(6)}

	got, err := svc.Search(ctx, spec)
	require.NoError(t, err)
	all, _ := store.ListRecords(ctx)
	want, err := query.Filter(all, spec)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	for _, r := range got {
		assert.True(t, r.RiskScore.GreaterThanOrEqual(decimal.NewFromInt(6)))
	}
}

func TestSearchRejectsInvalidSpec(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Search(context.Background(), query.FilterSpec{MinRiskScore: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, query.ErrInvalidFilter)
}

func TestExport(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Export(ctx, query.FilterSpec{}, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "crypto_intel_export.csv", p.Filename)
	assert.Len(t, strings.Split(string(p.Body), "\n"), 21)

	_, err = svc.Export(ctx, query.FilterSpec{SearchTerm: "no-such-address"}, export.FormatCSV)
	assert.ErrorIs(t, err, export.ErrEmptyExport)

	p, err = svc.Export(ctx, query.FilterSpec{SearchTerm: "no-such-address"}, export.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(p.Body))

	_, err = svc.Export(ctx, query.FilterSpec{}, export.Format("pdf"))
	assert.ErrorIs(t, err, export.ErrUnsupportedFormat)
}

func TestResolve(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	res, err := svc.Resolve(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.False(t, res.Fallback)
	assert.Equal(t, int64(7), res.Record.ID)

	res, err = svc.Resolve(ctx, "99")
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	require.NotNil(t, res.Detail)
	assert.Equal(t, domain.CategoryTerrorFinancing, res.Detail.Category)
}

func TestMutationKeepsContracts(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.InvestigationRecord{
		Address: "bc1qNEEDLE", CryptoType: domain.CryptoXMR,
		RiskScore: decimal.RequireFromString("9.9"), Category: domain.CategorySuspicious,
		LastScan: time.Now().UTC(), Confidence: decimal.RequireFromString("99.0"),
	})
	require.NoError(t, err)

	got, err := svc.Search(ctx, query.FilterSpec{SearchTerm: "needle"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, created.ID, got[0].ID)

	require.NoError(t, svc.Delete(ctx, created.ID))
	res, err := svc.Resolve(ctx, "21")
	require.NoError(t, err)
	assert.True(t, res.Fallback)

	err = svc.Update(ctx, created)
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}
