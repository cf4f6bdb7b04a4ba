// Package seed provides the start-up dataset: a deterministic synthetic
// generator and a JSON file loader. Stores never depend on where records come
// from.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cryptointel/internal/domain"
)

type Dataset struct {
	Records []domain.InvestigationRecord `json:"records"`
	Alerts  []domain.AlertRecord         `json:"alerts"`
	Sources []domain.DataSourceRecord    `json:"sources"`
	Detail  *domain.AddressDetailRecord  `json:"detail,omitempty"`
}

// Validate checks every record, requires positive unique record ids and fills
// in the canonical detail if missing.
func (d *Dataset) Validate() error {
	seen := make(map[int64]struct{}, len(d.Records))
	for i, r := range d.Records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if r.ID <= 0 {
			return fmt.Errorf("record %d: %w: id must be positive, got %d", i, domain.ErrInvalidRecord, r.ID)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("record %d: %w: duplicate id %d", i, domain.ErrInvalidRecord, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	if d.Detail == nil {
		d.Detail = CanonicalDetail()
	}
	return nil
}

type Loader interface {
	Load(ctx context.Context) (Dataset, error)
}

// DefaultRecords matches the dashboard's generated result set.
const DefaultRecords = 50

// Generator produces synthetic investigation data. The same Seed and Now
// always yield the same dataset.
type Generator struct {
	Count int
	Seed  uint64
	Now   func() time.Time
}

var (
	sourcePool = []string{"darkweb-forum-1.onion", "Telegram Channel", "CryptoScamDB.org", "News Outlet"}
	base36     = "0123456789abcdefghijklmnopqrstuvwxyz"
)

func (g Generator) Load(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	ts := now().UTC().Truncate(time.Second)
	count := g.Count
	if count <= 0 {
		count = DefaultRecords
	}
	rng := rand.New(rand.NewPCG(g.Seed, g.Seed^0x9e3779b97f4a7c15))

	ds := Dataset{
		Records: make([]domain.InvestigationRecord, 0, count),
		Alerts:  seedAlerts(ts),
		Sources: seedSources(ts),
		Detail:  CanonicalDetail(),
	}
	for i := 0; i < count; i++ {
		age := time.Duration(rng.Int64N(int64(1_000_000 * time.Second)))
		r, err := domain.NewInvestigationRecord(domain.InvestigationRecord{
			ID:         int64(i + 1),
			Address:    "bc1q" + randString(rng, 20),
			CryptoType: domain.CryptoTypes[rng.IntN(len(domain.CryptoTypes))],
			RiskScore:  decimal.NewFromFloat(rng.Float64()*8 + 2).Round(1),
			Category:   domain.Categories[rng.IntN(len(domain.Categories))],
			PII:        "Partial Match",
			Source:     sourcePool[rng.IntN(len(sourcePool))],
			LastScan:   ts.Add(-age).Truncate(time.Second),
			Confidence: decimal.NewFromFloat(rng.Float64()*30 + 70).Round(1),
		})
		if err != nil {
			return Dataset{}, err
		}
		ds.Records = append(ds.Records, r)
	}
	return ds, nil
}

func randString(rng *rand.Rand, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(base36[rng.IntN(len(base36))])
	}
	return b.String()
}

func seedAlerts(now time.Time) []domain.AlertRecord {
	return []domain.AlertRecord{
		{ID: 1, Address: "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh", Category: domain.CategoryScam, Source: "darkweb-forum-1.onion", DetectedAt: now.Add(-2 * time.Minute)},
		{ID: 2, Address: "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", Category: domain.CategoryMoneyLaundering, Source: "CryptoScamDB.org", DetectedAt: now.Add(-15 * time.Minute)},
		{ID: 3, Address: "44d21i361aV537b9g71b3e9aB6CEc5b3c5a639bB", Category: domain.CategoryDarknetMarket, Source: "dark-market-alpha.onion", DetectedAt: now.Add(-time.Hour)},
		{ID: 4, Address: "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", Category: domain.CategoryTerrorFinancing, Source: "News Outlet", DetectedAt: now.Add(-3 * time.Hour)},
		{ID: 5, Address: "0x1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b", Category: domain.CategoryScam, Source: "Telegram Channel", DetectedAt: now.Add(-5 * time.Hour)},
	}
}

func seedSources(now time.Time) []domain.DataSourceRecord {
	ago := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}
	return []domain.DataSourceRecord{
		{ID: 1, Name: "darkweb-forum-1.onion", Type: domain.SourceDarknetForum, Status: domain.StatusActive, LastScraped: ago(2 * time.Minute)},
		{ID: 2, Name: "CryptoScamDB.org", Type: domain.SourcePublicDatabase, Status: domain.StatusActive, LastScraped: ago(15 * time.Minute)},
		{ID: 3, Name: "Telegram Intel Channel", Type: domain.SourceSocialMedia, Status: domain.StatusActive, LastScraped: ago(time.Hour)},
		{ID: 4, Name: "dark-market-alpha.onion", Type: domain.SourceDarknetMarket, Status: domain.StatusOffline, LastScraped: ago(5 * time.Hour)},
	}
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// CanonicalDetail returns a fresh copy of the fallback address detail.
func CanonicalDetail() *domain.AddressDetailRecord {
	w := decimal.RequireFromString
	return &domain.AddressDetailRecord{
		Address:   "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq",
		RiskScore: w("9.8"),
		Category:  domain.CategoryTerrorFinancing,
		PII: domain.PiiBundle{
			Name:     "John Doe (Alias)",
			Phone:    "+1-XXX-XXX-5678",
			Email:    "j.doe***@proton.me",
			BankInfo: "Bank of S.A. - Acct# ...9876",
		},
		Summary: domain.FlowSummary{Received: "15.4 BTC", Sent: "15.1 BTC", Balance: "0.3 BTC"},
		SourceHistory: []domain.SourceSighting{
			{Date: day("2024-07-19"), Source: "telegram-channel-xyz"},
			{Date: day("2024-07-22"), Source: "dark-web-forum-alpha.onion"},
			{Date: day("2024-07-25"), Source: "intelligence-report.gov"},
		},
		TransactionFlow: domain.MustFlowGraph(
			[]string{
				"Source A (Unverified)", "Source B (High-Risk)", "Suspect Wallet",
				"Destination X (Mixer)", "Destination Y (Exchange)", "Destination Z (Unverified)",
			},
			[]domain.FlowEdge{
				{Source: 0, Target: 2, Value: w("8")},
				{Source: 1, Target: 2, Value: w("7.4")},
				{Source: 2, Target: 3, Value: w("9.1")},
				{Source: 2, Target: 4, Value: w("3")},
				{Source: 2, Target: 5, Value: w("3")},
			},
		),
	}
}

// FileLoader reads a Dataset from a JSON document with "records", "alerts",
// "sources" and an optional "detail".
type FileLoader struct {
	Path string
}

func (f FileLoader) Load(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read seed file: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(b, &ds); err != nil {
		return Dataset{}, fmt.Errorf("decode seed file %s: %w", f.Path, err)
	}
	if ds.Detail != nil && ds.Detail.TransactionFlow != nil {
		g := ds.Detail.TransactionFlow
		labels := make([]string, len(g.Nodes))
		for i, n := range g.Nodes {
			labels[i] = n.Name
		}
		ds.Detail.TransactionFlow = domain.MustFlowGraph(labels, g.Links)
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, fmt.Errorf("seed file %s: %w", f.Path, err)
	}
	return ds, nil
}
