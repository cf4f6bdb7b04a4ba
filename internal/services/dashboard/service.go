// Package dashboard aggregates the overview figures: KPIs, category
// breakdown, a 30-day threat timeline and the source hotspot list.
package dashboard

import (
	"context"
	"slices"
	"time"

	"cryptointel/internal/domain"
	"cryptointel/internal/ports"
)

// TimelineDays is the length of the threat timeline, today included.
const TimelineDays = 30

type KPIs struct {
	TotalAddresses   int                 `json:"totalAddresses"`
	HighRiskEntities int                 `json:"highRiskEntities"`
	NewAddresses24h  int                 `json:"newAddresses24h"`
	ScraperStatus    domain.SourceStatus `json:"scraperStatus"`
}

type CategoryCount struct {
	Category domain.Category `json:"name"`
	Count    int             `json:"value"`
}

type TimelinePoint struct {
	Date       string `json:"date"`
	Scam       int    `json:"scam"`
	Laundering int    `json:"laundering"`
	Darknet    int    `json:"darknet"`
}

type Summary struct {
	KPIs            KPIs                      `json:"kpis"`
	IllicitActivity []CategoryCount           `json:"illicitActivity"`
	ThreatTimeline  []TimelinePoint           `json:"threatTimeline"`
	TopSources      []domain.DataSourceRecord `json:"topSources"`
}

type Service struct {
	records ports.RecordRepository
	sources ports.SourceRepository
	now     func() time.Time
}

func New(records ports.RecordRepository, sources ports.SourceRepository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{records: records, sources: sources, now: now}
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	rs, err := s.records.ListRecords(ctx)
	if err != nil {
		return Summary{}, err
	}
	srcs, err := s.sources.ListSources(ctx)
	if err != nil {
		return Summary{}, err
	}
	now := s.now()
	return Summary{
		KPIs:            computeKPIs(rs, srcs, now),
		IllicitActivity: breakdown(rs),
		ThreatTimeline:  timeline(rs, now),
		TopSources:      rankSources(srcs),
	}, nil
}

func computeKPIs(rs []domain.InvestigationRecord, srcs []domain.DataSourceRecord, now time.Time) KPIs {
	k := KPIs{TotalAddresses: len(rs), ScraperStatus: domain.StatusOffline}
	cutoff := now.Add(-24 * time.Hour)
	for _, r := range rs {
		if r.HighRisk() {
			k.HighRiskEntities++
		}
		if r.LastScan.After(cutoff) && !r.LastScan.After(now) {
			k.NewAddresses24h++
		}
	}
	for _, src := range srcs {
		if src.Status == domain.StatusActive {
			k.ScraperStatus = domain.StatusActive
			break
		}
	}
	return k
}

// breakdown counts records per category in declaration order, zero counts
// included.
func breakdown(rs []domain.InvestigationRecord) []CategoryCount {
	counts := make(map[domain.Category]int, len(domain.Categories))
	for _, r := range rs {
		counts[r.Category]++
	}
	out := make([]CategoryCount, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		out = append(out, CategoryCount{Category: c, Count: counts[c]})
	}
	return out
}

func timeline(rs []domain.InvestigationRecord, now time.Time) []TimelinePoint {
	today := truncateDay(now)
	first := today.AddDate(0, 0, -(TimelineDays - 1))
	points := make([]TimelinePoint, TimelineDays)
	for i := range points {
		points[i].Date = first.AddDate(0, 0, i).Format("Jan 2")
	}
	for _, r := range rs {
		d := truncateDay(r.LastScan)
		if d.Before(first) || d.After(today) {
			continue
		}
		i := int(d.Sub(first).Hours() / 24)
		switch r.Category {
		case domain.CategoryScam:
			points[i].Scam++
		case domain.CategoryMoneyLaundering:
			points[i].Laundering++
		case domain.CategoryDarknetMarket:
			points[i].Darknet++
		}
	}
	return points
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var statusRank = map[domain.SourceStatus]int{
	domain.StatusActive:  0,
	domain.StatusPending: 1,
	domain.StatusOffline: 2,
}

// rankSources puts Active sources first, keeping collection order within a
// status.
func rankSources(srcs []domain.DataSourceRecord) []domain.DataSourceRecord {
	out := slices.Clone(srcs)
	slices.SortStableFunc(out, func(a, b domain.DataSourceRecord) int {
		return statusRank[a.Status] - statusRank[b.Status]
	})
	return out
}
