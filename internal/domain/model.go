package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Core domain models. HTTP shapes live in the http adapter; keep these free of
// transport concerns.

// ErrInvalidRecord is wrapped by every construction-time validation failure.
var ErrInvalidRecord = errors.New("invalid record")

var (
	MinRiskScore   = decimal.Zero
	MaxRiskScore   = decimal.NewFromInt(10)
	MinConfidence  = decimal.NewFromInt(70)
	MaxConfidence  = decimal.NewFromInt(100)
	HighRiskCutoff = decimal.NewFromInt(8)
)

type CryptoType string

const (
	CryptoBTC CryptoType = "BTC"
	CryptoETH CryptoType = "ETH"
	CryptoXMR CryptoType = "XMR"
)

var CryptoTypes = []CryptoType{CryptoBTC, CryptoETH, CryptoXMR}

func (c CryptoType) Valid() bool {
	for _, v := range CryptoTypes {
		if v == c {
			return true
		}
	}
	return false
}

type Category string

const (
	CategoryScam            Category = "Scam"
	CategoryMoneyLaundering Category = "Money Laundering"
	CategoryDarknetMarket   Category = "Darknet Market"
	CategorySuspicious      Category = "Suspicious"
	CategoryTerrorFinancing Category = "Terror Financing"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryScam,
	CategoryMoneyLaundering,
	CategoryDarknetMarket,
	CategorySuspicious,
	CategoryTerrorFinancing,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// ParseCategory matches s against the category names, ignoring case.
func ParseCategory(s string) (Category, error) {
	for _, v := range Categories {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidRecord, s)
}

// InvestigationRecord is one tracked address. Field order is the export order.
type InvestigationRecord struct {
	ID         int64           `json:"id"`
	Address    string          `json:"address"`
	CryptoType CryptoType      `json:"cryptoType"`
	RiskScore  decimal.Decimal `json:"riskScore"`
	Category   Category        `json:"category"`
	PII        string          `json:"pii"`
	Source     string          `json:"source"`
	LastScan   time.Time       `json:"lastScan"`
	Confidence decimal.Decimal `json:"confidence"`
}

type recordJSON struct {
	ID         int64      `json:"id"`
	Address    string     `json:"address"`
	CryptoType CryptoType `json:"cryptoType"`
	RiskScore  string     `json:"riskScore"`
	Category   Category   `json:"category"`
	PII        string     `json:"pii"`
	Source     string     `json:"source"`
	LastScan   time.Time  `json:"lastScan"`
	Confidence string     `json:"confidence"`
}

// MarshalJSON writes scores as quoted decimals with at least one fractional
// digit, matching the CSV export.
func (r InvestigationRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:         r.ID,
		Address:    r.Address,
		CryptoType: r.CryptoType,
		RiskScore:  FormatScore(r.RiskScore),
		Category:   r.Category,
		PII:        r.PII,
		Source:     r.Source,
		LastScan:   r.LastScan,
		Confidence: FormatScore(r.Confidence),
	})
}

// FormatScore renders d exactly, keeping at least one fractional digit:
// 8 and 8.00 give "8.0", 7.95 stays "7.95".
func FormatScore(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Validate checks the range and enumeration invariants. The id is not
// checked here because stores assign it on insert.
func (r InvestigationRecord) Validate() error {
	if r.ID < 0 {
		return fmt.Errorf("%w: negative id %d", ErrInvalidRecord, r.ID)
	}
	if !r.CryptoType.Valid() {
		return fmt.Errorf("%w: unknown crypto type %q", ErrInvalidRecord, r.CryptoType)
	}
	if !r.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRecord, r.Category)
	}
	if r.RiskScore.LessThan(MinRiskScore) || r.RiskScore.GreaterThan(MaxRiskScore) {
		return fmt.Errorf("%w: riskScore %s outside [0, 10]", ErrInvalidRecord, r.RiskScore)
	}
	if r.Confidence.LessThan(MinConfidence) || r.Confidence.GreaterThan(MaxConfidence) {
		return fmt.Errorf("%w: confidence %s outside [70, 100]", ErrInvalidRecord, r.Confidence)
	}
	return nil
}

// NewInvestigationRecord returns r if it satisfies every invariant.
func NewInvestigationRecord(r InvestigationRecord) (InvestigationRecord, error) {
	if err := r.Validate(); err != nil {
		return InvestigationRecord{}, err
	}
	return r, nil
}

// HighRisk reports whether the record counts toward the high-risk KPI.
func (r InvestigationRecord) HighRisk() bool {
	return r.RiskScore.GreaterThanOrEqual(HighRiskCutoff)
}

type PiiBundle struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	BankInfo string `json:"bankInfo"`
}

type FlowSummary struct {
	Received string `json:"received"`
	Sent     string `json:"sent"`
	Balance  string `json:"balance"`
}

type SourceSighting struct {
	Date   time.Time `json:"date"`
	Source string    `json:"source"`
}

// AddressDetailRecord is the rich single-address view. One canonical instance
// backs the resolver fallback.
type AddressDetailRecord struct {
	Address         string           `json:"address"`
	RiskScore       decimal.Decimal  `json:"riskScore"`
	Category        Category         `json:"category"`
	PII             PiiBundle        `json:"pii"`
	Summary         FlowSummary      `json:"summary"`
	SourceHistory   []SourceSighting `json:"sourceHistory"`
	TransactionFlow *FlowGraph       `json:"transactionFlow"`
}

type AlertRecord struct {
	ID         int64     `json:"id"`
	Address    string    `json:"address"`
	Category   Category  `json:"category"`
	Source     string    `json:"source"`
	DetectedAt time.Time `json:"detectedAt"`
}

// TimeLabel renders the detection time relative to now, e.g. "15 minutes ago".
func (a AlertRecord) TimeLabel(now time.Time) string {
	return relativeLabel(a.DetectedAt, now)
}

type SourceType string

const (
	SourceDarknetForum   SourceType = "Darknet Forum"
	SourcePublicDatabase SourceType = "Public Database"
	SourceSocialMedia    SourceType = "Social Media"
	SourceDarknetMarket  SourceType = "Darknet Market"
	SourceNewsOutlet     SourceType = "News Outlet"
)

var SourceTypes = []SourceType{
	SourceDarknetForum,
	SourcePublicDatabase,
	SourceSocialMedia,
	SourceDarknetMarket,
	SourceNewsOutlet,
}

func ParseSourceType(s string) (SourceType, error) {
	for _, v := range SourceTypes {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unknown source type %q", ErrInvalidRecord, s)
}

type SourceStatus string

const (
	StatusActive  SourceStatus = "Active"
	StatusOffline SourceStatus = "Offline"
	StatusPending SourceStatus = "Pending"
)

// NeverScraped is the label of a source that has not been scraped yet.
const NeverScraped = "Never"

type DataSourceRecord struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Type        SourceType   `json:"type"`
	Status      SourceStatus `json:"status"`
	LastScraped *time.Time   `json:"lastScraped,omitempty"`
}

func (s DataSourceRecord) LastScrapedLabel(now time.Time) string {
	if s.LastScraped == nil {
		return NeverScraped
	}
	return relativeLabel(*s.LastScraped, now)
}

func relativeLabel(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
