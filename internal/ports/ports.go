package ports

import (
	"context"

	"cryptointel/internal/domain"
	"cryptointel/internal/export"
	"cryptointel/internal/query"
)

// Investigations runs filter, export and resolve over the record store.
type Investigations interface {
	Search(ctx context.Context, spec query.FilterSpec) ([]domain.InvestigationRecord, error)
	Export(ctx context.Context, spec query.FilterSpec, format export.Format) (export.Payload, error)
	Resolve(ctx context.Context, rawID string) (query.Resolution, error)
	Create(ctx context.Context, rec domain.InvestigationRecord) (domain.InvestigationRecord, error)
	Update(ctx context.Context, rec domain.InvestigationRecord) error
	Delete(ctx context.Context, id int64) error
}

// Sources is the data source manager.
type Sources interface {
	List(ctx context.Context) ([]domain.DataSourceRecord, error)
	Add(ctx context.Context, name string, typ domain.SourceType) (domain.DataSourceRecord, error)
	Remove(ctx context.Context, id int64) error
}

// Alerts lists recent high-risk alerts.
type Alerts interface {
	List(ctx context.Context) ([]domain.AlertRecord, error)
}
