package ports

import (
	"context"
	"errors"
	"time"

	"cryptointel/internal/domain"
	"cryptointel/internal/seed"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// RecordRepository stores investigation records ordered by id.
type RecordRepository interface {
	ListRecords(ctx context.Context) ([]domain.InvestigationRecord, error)
	GetRecord(ctx context.Context, id int64) (rec domain.InvestigationRecord, found bool, err error)
	// InsertRecord assigns the next id and returns the stored record.
	InsertRecord(ctx context.Context, rec domain.InvestigationRecord) (domain.InvestigationRecord, error)
	UpdateRecord(ctx context.Context, rec domain.InvestigationRecord) error
	DeleteRecord(ctx context.Context, id int64) error
}

// AlertRepository provides recent alerts, newest first.
type AlertRepository interface {
	ListAlerts(ctx context.Context) ([]domain.AlertRecord, error)
}

// SourceRepository manages the data source collection. New sources come
// first; ids are never reused.
type SourceRepository interface {
	ListSources(ctx context.Context) ([]domain.DataSourceRecord, error)
	AddSource(ctx context.Context, name string, typ domain.SourceType) (domain.DataSourceRecord, error)
	RemoveSource(ctx context.Context, id int64) error
	SetSourceStatus(ctx context.Context, id int64, status domain.SourceStatus, scrapedAt *time.Time) error
}

// Seeder loads a start-up dataset into an empty store.
type Seeder interface {
	Seed(ctx context.Context, ds seed.Dataset) error
}
