package sqlite

import (
	"time"

	"github.com/shopspring/decimal"

	"cryptointel/internal/domain"
)

// Scores are stored as decimal strings so SQLite's REAL affinity never
// rounds them.
type recordRow struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Address    string `gorm:"not null;index"`
	CryptoType string `gorm:"not null"`
	RiskScore  string `gorm:"type:text;not null"`
	Category   string `gorm:"not null;index"`
	PII        string
	Source     string
	LastScan   time.Time `gorm:"not null"`
	Confidence string    `gorm:"type:text;not null"`
}

func (recordRow) TableName() string { return "investigation_records" }

type alertRow struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	Address    string
	Category   string
	Source     string
	DetectedAt time.Time `gorm:"index"`
}

func (alertRow) TableName() string { return "alerts" }

type sourceRow struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	Name        string
	Type        string
	Status      string `gorm:"not null;default:Pending"`
	LastScraped *time.Time
	AddedAt     time.Time `gorm:"not null;index"`
}

func (sourceRow) TableName() string { return "data_sources" }

type jobRow struct {
	ID         string `gorm:"primaryKey"`
	SourceID   int64  `gorm:"index"`
	Status     string `gorm:"not null;default:queued;index"`
	Attempts   int
	LastError  string
	QueuedAt   time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

func (jobRow) TableName() string { return "scrape_jobs" }

func toRecordRow(r domain.InvestigationRecord) recordRow {
	return recordRow{
		ID:         r.ID,
		Address:    r.Address,
		CryptoType: string(r.CryptoType),
		RiskScore:  r.RiskScore.String(),
		Category:   string(r.Category),
		PII:        r.PII,
		Source:     r.Source,
		LastScan:   r.LastScan.UTC(),
		Confidence: r.Confidence.String(),
	}
}

func (row recordRow) toDomain() (domain.InvestigationRecord, error) {
	risk, err := decimal.NewFromString(row.RiskScore)
	if err != nil {
		return domain.InvestigationRecord{}, err
	}
	conf, err := decimal.NewFromString(row.Confidence)
	if err != nil {
		return domain.InvestigationRecord{}, err
	}
	return domain.InvestigationRecord{
		ID:         row.ID,
		Address:    row.Address,
		CryptoType: domain.CryptoType(row.CryptoType),
		RiskScore:  risk,
		Category:   domain.Category(row.Category),
		PII:        row.PII,
		Source:     row.Source,
		LastScan:   row.LastScan.UTC(),
		Confidence: conf,
	}, nil
}

func (row sourceRow) toDomain() domain.DataSourceRecord {
	s := domain.DataSourceRecord{
		ID:     row.ID,
		Name:   row.Name,
		Type:   domain.SourceType(row.Type),
		Status: domain.SourceStatus(row.Status),
	}
	if row.LastScraped != nil {
		t := row.LastScraped.UTC()
		s.LastScraped = &t
	}
	return s
}
