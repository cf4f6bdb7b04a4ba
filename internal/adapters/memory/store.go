// Package memory is the default in-process store. One RWMutex guards every
// collection, so writers (including data source appends) are serialized.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptointel/internal/domain"
	"cryptointel/internal/ports"
	"cryptointel/internal/seed"
)

var (
	_ ports.RecordRepository    = (*Store)(nil)
	_ ports.AlertRepository     = (*Store)(nil)
	_ ports.SourceRepository    = (*Store)(nil)
	_ ports.ScrapeJobRepository = (*Store)(nil)
	_ ports.Seeder              = (*Store)(nil)
)

type jobState string

const (
	jobQueued    jobState = "queued"
	jobRunning   jobState = "running"
	jobCompleted jobState = "completed"
	jobFailed    jobState = "failed"
)

type scrapeJob struct {
	id       string
	sourceID int64
	state    jobState
	attempts int
	reason   string
}

type Store struct {
	mu sync.RWMutex

	records      []domain.InvestigationRecord
	nextRecordID int64
	alerts       []domain.AlertRecord
	sources      []domain.DataSourceRecord
	nextSourceID int64
	jobs         []*scrapeJob

	now func() time.Time
}

type Option func(*Store)

// WithClock overrides time.Now for timestamps the store assigns.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{nextRecordID: 1, nextSourceID: 1, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Seed replaces the store contents with ds. Counters continue after the
// highest seeded id.
func (s *Store) Seed(ctx context.Context, ds seed.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = slices.Clone(ds.Records)
	slices.SortStableFunc(s.records, func(a, b domain.InvestigationRecord) int {
		return cmpID(a.ID, b.ID)
	})
	s.nextRecordID = 1
	for _, r := range s.records {
		if r.ID >= s.nextRecordID {
			s.nextRecordID = r.ID + 1
		}
	}
	s.alerts = slices.Clone(ds.Alerts)
	s.sources = slices.Clone(ds.Sources)
	s.nextSourceID = 1
	for _, src := range s.sources {
		if src.ID >= s.nextSourceID {
			s.nextSourceID = src.ID + 1
		}
	}
	s.jobs = nil
	return nil
}

func cmpID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// RecordRepository

func (s *Store) ListRecords(ctx context.Context) ([]domain.InvestigationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records), nil
}

func (s *Store) GetRecord(ctx context.Context, id int64) (domain.InvestigationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.records[i], true, nil
	}
	return domain.InvestigationRecord{}, false, nil
}

func (s *Store) InsertRecord(ctx context.Context, rec domain.InvestigationRecord) (domain.InvestigationRecord, error) {
	rec.ID = 0
	if err := rec.Validate(); err != nil {
		return domain.InvestigationRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextRecordID
	s.nextRecordID++
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *Store) UpdateRecord(ctx context.Context, rec domain.InvestigationRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(rec.ID)
	if i < 0 {
		return ports.ErrNotFound
	}
	s.records[i] = rec
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ports.ErrNotFound
	}
	s.records = slices.Delete(s.records, i, i+1)
	return nil
}

// indexOf relies on records being sorted by id. Caller holds the lock.
func (s *Store) indexOf(id int64) int {
	i, ok := slices.BinarySearchFunc(s.records, id, func(r domain.InvestigationRecord, id int64) int {
		return cmpID(r.ID, id)
	})
	if !ok {
		return -1
	}
	return i
}

// AlertRepository

func (s *Store) ListAlerts(ctx context.Context) ([]domain.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.alerts), nil
}

// SourceRepository

func (s *Store) ListSources(ctx context.Context) ([]domain.DataSourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sources), nil
}

func (s *Store) AddSource(ctx context.Context, name string, typ domain.SourceType) (domain.DataSourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := domain.DataSourceRecord{
		ID:     s.nextSourceID,
		Name:   name,
		Type:   typ,
		Status: domain.StatusPending,
	}
	s.nextSourceID++
	s.sources = slices.Insert(s.sources, 0, src)
	return src, nil
}

func (s *Store) RemoveSource(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.sourceIndex(id)
	if i < 0 {
		return ports.ErrNotFound
	}
	s.sources = slices.Delete(s.sources, i, i+1)
	return nil
}

func (s *Store) SetSourceStatus(ctx context.Context, id int64, status domain.SourceStatus, scrapedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setSourceStatus(id, status, scrapedAt)
}

func (s *Store) setSourceStatus(id int64, status domain.SourceStatus, scrapedAt *time.Time) error {
	i := s.sourceIndex(id)
	if i < 0 {
		return ports.ErrNotFound
	}
	s.sources[i].Status = status
	if scrapedAt != nil {
		t := *scrapedAt
		s.sources[i].LastScraped = &t
	}
	return nil
}

func (s *Store) sourceIndex(id int64) int {
	return slices.IndexFunc(s.sources, func(src domain.DataSourceRecord) bool { return src.ID == id })
}

// ScrapeJobRepository

func (s *Store) Enqueue(ctx context.Context, sourceID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sourceIndex(sourceID) < 0 {
		return "", ports.ErrNotFound
	}
	j := &scrapeJob{id: uuid.NewString(), sourceID: sourceID, state: jobQueued}
	s.jobs = append(s.jobs, j)
	return j.id, nil
}

// ClaimNext hands out queued jobs in FIFO order. Jobs whose source was
// removed meanwhile are dropped.
func (s *Store) ClaimNext(ctx context.Context) (ports.ScrapeJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.state != jobQueued {
			continue
		}
		if s.sourceIndex(j.sourceID) < 0 {
			j.state = jobFailed
			j.reason = "source removed"
			continue
		}
		j.state = jobRunning
		j.attempts++
		return ports.ScrapeJob{ID: j.id, SourceID: j.sourceID}, true, nil
	}
	return ports.ScrapeJob{}, false, nil
}

func (s *Store) MarkCompleted(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.job(jobID)
	if j == nil {
		return ports.ErrNotFound
	}
	j.state = jobCompleted
	now := s.now()
	// The source may have been removed while the job ran.
	_ = s.setSourceStatus(j.sourceID, domain.StatusActive, &now)
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, jobID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.job(jobID)
	if j == nil {
		return ports.ErrNotFound
	}
	j.state = jobFailed
	j.reason = reason
	_ = s.setSourceStatus(j.sourceID, domain.StatusOffline, nil)
	return nil
}

func (s *Store) Requeue(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.job(jobID)
	if j == nil {
		return ports.ErrNotFound
	}
	if j.state == jobRunning {
		j.state = jobQueued
	}
	return nil
}

func (s *Store) job(id string) *scrapeJob {
	for _, j := range s.jobs {
		if j.id == id {
			return j
		}
	}
	return nil
}

// PendingJobs counts queued jobs.
func (s *Store) PendingJobs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, j := range s.jobs {
		if j.state == jobQueued {
			n++
		}
	}
	return n
}
