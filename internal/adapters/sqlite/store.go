// Package sqlite is a single-file store on gorm and SQLite.
package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

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

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases shared.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&recordRow{}, &alertRow{}, &sourceRow{}, &jobRow{}); err != nil {
		return nil, err
	}
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// RecordRepository

func (s *Store) ListRecords(ctx context.Context) ([]domain.InvestigationRecord, error) {
	var rows []recordRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.InvestigationRecord, 0, len(rows))
	for _, row := range rows {
		r, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) GetRecord(ctx context.Context, id int64) (domain.InvestigationRecord, bool, error) {
	var row recordRow
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.InvestigationRecord{}, false, nil
	}
	if err != nil {
		return domain.InvestigationRecord{}, false, err
	}
	r, err := row.toDomain()
	return r, err == nil, err
}

func (s *Store) InsertRecord(ctx context.Context, rec domain.InvestigationRecord) (domain.InvestigationRecord, error) {
	rec.ID = 0
	if err := rec.Validate(); err != nil {
		return domain.InvestigationRecord{}, err
	}
	row := toRecordRow(rec)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.InvestigationRecord{}, err
	}
	rec.ID = row.ID
	return rec, nil
}

func (s *Store) UpdateRecord(ctx context.Context, rec domain.InvestigationRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	row := toRecordRow(rec)
	res := s.db.WithContext(ctx).Model(&recordRow{}).Where("id = ?", rec.ID).Updates(map[string]any{
		"address":     row.Address,
		"crypto_type": row.CryptoType,
		"risk_score":  row.RiskScore,
		"category":    row.Category,
		"pii":         row.PII,
		"source":      row.Source,
		"last_scan":   row.LastScan,
		"confidence":  row.Confidence,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&recordRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// AlertRepository

func (s *Store) ListAlerts(ctx context.Context) ([]domain.AlertRecord, error) {
	var rows []alertRow
	if err := s.db.WithContext(ctx).Order("detected_at DESC, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AlertRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.AlertRecord{
			ID:         row.ID,
			Address:    row.Address,
			Category:   domain.Category(row.Category),
			Source:     row.Source,
			DetectedAt: row.DetectedAt.UTC(),
		})
	}
	return out, nil
}

// SourceRepository

func (s *Store) ListSources(ctx context.Context) ([]domain.DataSourceRecord, error) {
	var rows []sourceRow
	if err := s.db.WithContext(ctx).Order("added_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.DataSourceRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Store) AddSource(ctx context.Context, name string, typ domain.SourceType) (domain.DataSourceRecord, error) {
	row := sourceRow{Name: name, Type: string(typ), Status: string(domain.StatusPending), AddedAt: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.DataSourceRecord{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) RemoveSource(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&sourceRow{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ports.ErrNotFound
		}
		return tx.Where("source_id = ? AND status = ?", id, "queued").Delete(&jobRow{}).Error
	})
}

func (s *Store) SetSourceStatus(ctx context.Context, id int64, status domain.SourceStatus, scrapedAt *time.Time) error {
	return setSourceStatus(s.db.WithContext(ctx), id, status, scrapedAt)
}

func setSourceStatus(tx *gorm.DB, id int64, status domain.SourceStatus, scrapedAt *time.Time) error {
	updates := map[string]any{"status": string(status)}
	if scrapedAt != nil {
		updates["last_scraped"] = scrapedAt.UTC()
	}
	res := tx.Model(&sourceRow{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// ScrapeJobRepository

func (s *Store) Enqueue(ctx context.Context, sourceID int64) (string, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&sourceRow{}).Where("id = ?", sourceID).Count(&n).Error; err != nil {
		return "", err
	}
	if n == 0 {
		return "", ports.ErrNotFound
	}
	row := jobRow{ID: uuid.NewString(), SourceID: sourceID, Status: "queued", QueuedAt: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.ID, nil
}

// ClaimNext flips the oldest queued job to running. The conditional update
// makes the claim safe without row locks.
func (s *Store) ClaimNext(ctx context.Context) (ports.ScrapeJob, bool, error) {
	var job ports.ScrapeJob
	found := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row jobRow
		err := tx.Where("status = ?", "queued").Order("queued_at, rowid").First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		now := s.now().UTC()
		res := tx.Model(&jobRow{}).Where("id = ? AND status = ?", row.ID, "queued").Updates(map[string]any{
			"status":     "running",
			"started_at": now,
			"attempts":   gorm.Expr("attempts + 1"),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			job = ports.ScrapeJob{ID: row.ID, SourceID: row.SourceID}
			found = true
		}
		return nil
	})
	return job, found, err
}

func (s *Store) MarkCompleted(ctx context.Context, jobID string) error {
	now := s.now()
	return s.finish(ctx, jobID, "completed", "", domain.StatusActive, &now)
}

func (s *Store) MarkFailed(ctx context.Context, jobID string, reason string) error {
	return s.finish(ctx, jobID, "failed", reason, domain.StatusOffline, nil)
}

func (s *Store) Requeue(ctx context.Context, jobID string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&jobRow{}).Where("id = ?", jobID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return s.db.WithContext(ctx).Model(&jobRow{}).Where("id = ? AND status = ?", jobID, "running").Updates(map[string]any{
		"status":     "queued",
		"started_at": nil,
	}).Error
}

func (s *Store) finish(ctx context.Context, jobID, status, reason string, srcStatus domain.SourceStatus, scrapedAt *time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row jobRow
		err := tx.First(&row, "id = ?", jobID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ErrNotFound
		}
		if err != nil {
			return err
		}
		finished := s.now().UTC()
		if err := tx.Model(&row).Updates(map[string]any{
			"status":      status,
			"last_error":  reason,
			"finished_at": finished,
		}).Error; err != nil {
			return err
		}
		err = setSourceStatus(tx, row.SourceID, srcStatus, scrapedAt)
		if errors.Is(err, ports.ErrNotFound) {
			return nil
		}
		return err
	})
}

// Seed loads ds when the record table is empty.
func (s *Store) Seed(ctx context.Context, ds seed.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&recordRow{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range ds.Records {
			row := toRecordRow(r)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		for _, a := range ds.Alerts {
			row := alertRow{ID: a.ID, Address: a.Address, Category: string(a.Category), Source: a.Source, DetectedAt: a.DetectedAt.UTC()}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		// Staggered so the seeded batch lists in dataset order.
		addedAt := s.now().UTC().Add(-time.Minute)
		for i, src := range ds.Sources {
			row := sourceRow{ID: src.ID, Name: src.Name, Type: string(src.Type), Status: string(src.Status), LastScraped: src.LastScraped, AddedAt: addedAt.Add(-time.Duration(i) * time.Second)}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
