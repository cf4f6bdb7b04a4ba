package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"cryptointel/internal/domain"
	"cryptointel/internal/ports"
	"cryptointel/internal/seed"
)

var (
	_ ports.RecordRepository    = (*DB)(nil)
	_ ports.AlertRepository     = (*DB)(nil)
	_ ports.SourceRepository    = (*DB)(nil)
	_ ports.ScrapeJobRepository = (*DB)(nil)
	_ ports.Seeder              = (*DB)(nil)
)

const recordColumns = `id, address, crypto_type, risk_score, category, pii, source, last_scan, confidence`

func scanRecord(row pgx.Row) (domain.InvestigationRecord, error) {
	var r domain.InvestigationRecord
	err := row.Scan(&r.ID, &r.Address, &r.CryptoType, &r.RiskScore, &r.Category, &r.PII, &r.Source, &r.LastScan, &r.Confidence)
	return r, err
}

// RecordRepository
func (db *DB) ListRecords(ctx context.Context) ([]domain.InvestigationRecord, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+recordColumns+` FROM investigation_records ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.InvestigationRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) GetRecord(ctx context.Context, id int64) (domain.InvestigationRecord, bool, error) {
	r, err := scanRecord(db.Pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM investigation_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.InvestigationRecord{}, false, nil
	}
	if err != nil {
		return domain.InvestigationRecord{}, false, err
	}
	return r, true, nil
}

func (db *DB) InsertRecord(ctx context.Context, rec domain.InvestigationRecord) (domain.InvestigationRecord, error) {
	rec.ID = 0
	if err := rec.Validate(); err != nil {
		return domain.InvestigationRecord{}, err
	}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO investigation_records (address, crypto_type, risk_score, category, pii, source, last_scan, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, rec.Address, rec.CryptoType, rec.RiskScore, rec.Category, rec.PII, rec.Source, rec.LastScan, rec.Confidence).Scan(&rec.ID)
	return rec, err
}

func (db *DB) UpdateRecord(ctx context.Context, rec domain.InvestigationRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE investigation_records
		SET address=$2, crypto_type=$3, risk_score=$4, category=$5, pii=$6, source=$7, last_scan=$8, confidence=$9
		WHERE id=$1
	`, rec.ID, rec.Address, rec.CryptoType, rec.RiskScore, rec.Category, rec.PII, rec.Source, rec.LastScan, rec.Confidence)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (db *DB) DeleteRecord(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM investigation_records WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// AlertRepository
func (db *DB) ListAlerts(ctx context.Context) ([]domain.AlertRecord, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, address, category, source, detected_at FROM alerts ORDER BY detected_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.AlertRecord{}
	for rows.Next() {
		var a domain.AlertRecord
		if err := rows.Scan(&a.ID, &a.Address, &a.Category, &a.Source, &a.DetectedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SourceRepository

// ListSources orders by added_at so new sources come first; ties go to the
// higher id. Seeding staggers added_at so the batch keeps dataset order.
func (db *DB) ListSources(ctx context.Context) ([]domain.DataSourceRecord, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, name, type, status, last_scraped FROM data_sources ORDER BY added_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.DataSourceRecord{}
	for rows.Next() {
		var s domain.DataSourceRecord
		if err := rows.Scan(&s.ID, &s.Name, &s.Type, &s.Status, &s.LastScraped); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) AddSource(ctx context.Context, name string, typ domain.SourceType) (domain.DataSourceRecord, error) {
	src := domain.DataSourceRecord{Name: name, Type: typ, Status: domain.StatusPending}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO data_sources (name, type, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`, name, typ, src.Status).Scan(&src.ID)
	return src, err
}

func (db *DB) RemoveSource(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM data_sources WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (db *DB) SetSourceStatus(ctx context.Context, id int64, status domain.SourceStatus, scrapedAt *time.Time) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE data_sources SET status=$2, last_scraped=COALESCE($3, last_scraped) WHERE id=$1
	`, id, status, scrapedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Seed loads ds when the record table is empty. Ids are regenerated by the
// sequences, in dataset order.
func (db *DB) Seed(ctx context.Context, ds seed.Dataset) (err error) {
	if err := ds.Validate(); err != nil {
		return err
	}
	var n int
	if err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM investigation_records`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	batch := &pgx.Batch{}
	for _, r := range ds.Records {
		batch.Queue(`
			INSERT INTO investigation_records (address, crypto_type, risk_score, category, pii, source, last_scan, confidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, r.Address, r.CryptoType, r.RiskScore, r.Category, r.PII, r.Source, r.LastScan, r.Confidence)
	}
	for _, a := range ds.Alerts {
		batch.Queue(`INSERT INTO alerts (address, category, source, detected_at) VALUES ($1, $2, $3, $4)`,
			a.Address, a.Category, a.Source, a.DetectedAt)
	}
	addedAt := time.Now().Add(-time.Minute)
	for i, s := range ds.Sources {
		batch.Queue(`INSERT INTO data_sources (name, type, status, last_scraped, added_at) VALUES ($1, $2, $3, $4, $5)`,
			s.Name, s.Type, s.Status, s.LastScraped, addedAt.Add(-time.Duration(i)*time.Second))
	}
	return tx.SendBatch(ctx, batch).Close()
}
