package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptointel/internal/domain"
	"cryptointel/internal/ports"
	"cryptointel/internal/seed"
)

var clock = func() time.Time { return time.Date(2024, 7, 26, 12, 0, 0, 0, time.UTC) }

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "intel.db"), WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	ds, err := seed.Generator{Count: 5, Seed: 3, Now: clock}.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Seed(context.Background(), ds))
	return s
}

func TestSeedIsIdempotentAndExact(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	ds, err := seed.Generator{Count: 5, Seed: 3, Now: clock}.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Seed(ctx, ds))

	list, err := s.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, list, 5)
	for i, r := range list {
		want := ds.Records[i]
		assert.Equal(t, want.ID, r.ID)
		assert.True(t, want.RiskScore.Equal(r.RiskScore), "risk %s != %s", want.RiskScore, r.RiskScore)
		assert.True(t, want.Confidence.Equal(r.Confidence))
		assert.True(t, want.LastScan.Equal(r.LastScan))
	}

	alerts, err := s.ListAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, len(ds.Alerts))
}

func TestRecordCRUD(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	created, err := s.InsertRecord(ctx, domain.InvestigationRecord{
		Address:    "0xnew",
		CryptoType: domain.CryptoETH,
		RiskScore:  decimal.RequireFromString("7.95"),
		Category:   domain.CategorySuspicious,
		LastScan:   clock(),
		Confidence: decimal.RequireFromString("88.1"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), created.ID)

	got, found, err := s.GetRecord(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "7.95", got.RiskScore.String())

	got.Category = domain.CategoryScam
	require.NoError(t, s.UpdateRecord(ctx, got))
	got, _, _ = s.GetRecord(ctx, created.ID)
	assert.Equal(t, domain.CategoryScam, got.Category)

	require.NoError(t, s.DeleteRecord(ctx, created.ID))
	_, found, err = s.GetRecord(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.ErrorIs(t, s.DeleteRecord(ctx, created.ID), ports.ErrNotFound)

	got.ID = 404
	assert.ErrorIs(t, s.UpdateRecord(ctx, got), ports.ErrNotFound)
}

func TestScrapeJobLifecycle(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	src, err := s.AddSource(ctx, "intel.example", domain.SourceNewsOutlet)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, src.Status)

	_, err = s.Enqueue(ctx, 999)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	okID, err := s.Enqueue(ctx, src.ID)
	require.NoError(t, err)
	failID, err := s.Enqueue(ctx, 4)
	require.NoError(t, err)

	job, found, err := s.ClaimNext(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, okID, job.ID)
	require.NoError(t, s.MarkCompleted(ctx, job.ID))

	job, found, err = s.ClaimNext(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, failID, job.ID)
	require.NoError(t, s.MarkFailed(ctx, job.ID, "timeout"))

	_, found, err = s.ClaimNext(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	byID := map[int64]domain.DataSourceRecord{}
	list, err := s.ListSources(ctx)
	require.NoError(t, err)
	for _, x := range list {
		byID[x.ID] = x
	}
	assert.Equal(t, src.ID, list[0].ID, "newest source first")
	assert.Equal(t, domain.StatusActive, byID[src.ID].Status)
	require.NotNil(t, byID[src.ID].LastScraped)
	assert.True(t, clock().Equal(*byID[src.ID].LastScraped))
	assert.Equal(t, domain.StatusOffline, byID[4].Status)

	assert.ErrorIs(t, s.MarkCompleted(ctx, "missing"), ports.ErrNotFound)
}

func TestRemoveSourceDropsQueuedJobs(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	_, err := s.Enqueue(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, s.RemoveSource(ctx, 1))
	assert.ErrorIs(t, s.RemoveSource(ctx, 1), ports.ErrNotFound)

	_, found, err := s.ClaimNext(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewSourcesListFirstUnderFixedClock(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	a, err := s.AddSource(ctx, "first.example", domain.SourceNewsOutlet)
	require.NoError(t, err)
	b, err := s.AddSource(ctx, "second.example", domain.SourceSocialMedia)
	require.NoError(t, err)

	list, err := s.ListSources(ctx)
	require.NoError(t, err)
	var ids []int64
	for _, src := range list {
		ids = append(ids, src.ID)
	}
	assert.Equal(t, []int64{b.ID, a.ID, 1, 2, 3, 4}, ids)
}

func TestRequeueReturnsRunningJob(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	id, err := s.Enqueue(ctx, 2)
	require.NoError(t, err)

	job, found, err := s.ClaimNext(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, s.Requeue(ctx, job.ID))

	again, found, err := s.ClaimNext(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, again.ID)

	assert.ErrorIs(t, s.Requeue(ctx, "missing"), ports.ErrNotFound)
}
