package investigation

import (
	"context"
	"log/slog"

	"cryptointel/internal/domain"
	"cryptointel/internal/export"
	"cryptointel/internal/metrics"
	"cryptointel/internal/ports"
	"cryptointel/internal/query"
)

var _ ports.Investigations = (*Service)(nil)

// Service runs the pure query operations against a snapshot of the record
// store. Each call reads the collection once; no state is shared between
// calls.
type Service struct {
	records   ports.RecordRepository
	exporter  *export.Serializer
	canonical *domain.AddressDetailRecord
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func New(records ports.RecordRepository, exporter *export.Serializer, canonical *domain.AddressDetailRecord, m *metrics.Metrics, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{records: records, exporter: exporter, canonical: canonical, metrics: m, log: log}
}

func (s *Service) Search(ctx context.Context, spec query.FilterSpec) ([]domain.InvestigationRecord, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	all, err := s.records.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := query.Apply(all, spec.Predicate())
	s.metrics.ObserveFilter(len(out))
	return out, nil
}

func (s *Service) Export(ctx context.Context, spec query.FilterSpec, format export.Format) (export.Payload, error) {
	rs, err := s.Search(ctx, spec)
	if err != nil {
		return export.Payload{}, err
	}
	p, err := s.exporter.Export(rs, format)
	if err != nil {
		return export.Payload{}, err
	}
	s.metrics.CountExport(string(format))
	s.log.InfoContext(ctx, "records exported", "format", format, "records", len(rs), "bytes", len(p.Body))
	return p, nil
}

// Resolve never returns a not-found error: unknown or malformed ids resolve to
// the canonical detail with Fallback set.
func (s *Service) Resolve(ctx context.Context, rawID string) (query.Resolution, error) {
	all, err := s.records.ListRecords(ctx)
	if err != nil {
		return query.Resolution{}, err
	}
	res := query.Resolve(all, rawID, s.canonical)
	if res.Fallback {
		s.log.DebugContext(ctx, "resolve fell back to canonical record", "id", rawID)
	}
	return res, nil
}

func (s *Service) Create(ctx context.Context, rec domain.InvestigationRecord) (domain.InvestigationRecord, error) {
	return s.records.InsertRecord(ctx, rec)
}

func (s *Service) Update(ctx context.Context, rec domain.InvestigationRecord) error {
	return s.records.UpdateRecord(ctx, rec)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.records.DeleteRecord(ctx, id)
}
