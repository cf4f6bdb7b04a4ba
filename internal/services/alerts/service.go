package alerts

import (
	"context"
	"slices"

	"cryptointel/internal/domain"
	"cryptointel/internal/ports"
)

var _ ports.Alerts = (*Service)(nil)

type Service struct {
	alerts ports.AlertRepository
}

func New(alerts ports.AlertRepository) *Service { return &Service{alerts: alerts} }

// List returns alerts newest first.
func (s *Service) List(ctx context.Context) ([]domain.AlertRecord, error) {
	as, err := s.alerts.ListAlerts(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(as, func(a, b domain.AlertRecord) int {
		return b.DetectedAt.Compare(a.DetectedAt)
	})
	return as, nil
}
