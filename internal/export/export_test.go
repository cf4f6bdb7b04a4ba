package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptointel/internal/domain"
)

func sample() []domain.InvestigationRecord {
	ts := time.Date(2024, 7, 25, 9, 30, 0, 0, time.UTC)
	return []domain.InvestigationRecord{
		{
			ID: 1, Address: "bc1qxy2kgdy", CryptoType: domain.CryptoBTC,
			RiskScore: decimal.NewFromInt(8), Category: domain.CategoryScam,
			PII: "Partial Match", Source: "darkweb-forum-1.onion", LastScan: ts,
			Confidence: decimal.RequireFromString("91.4"),
		},
		{
			ID: 2, Address: "0xAb58", CryptoType: domain.CryptoETH,
			RiskScore: decimal.RequireFromString("7.95"), Category: domain.CategoryMoneyLaundering,
			PII: `Alias "JD", partial`, Source: "News Outlet", LastScan: ts.Add(time.Hour),
			Confidence: decimal.RequireFromString("70.0"),
		},
	}
}

func TestExportCSV(t *testing.T) {
	p, err := New(Options{}).Export(sample(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "crypto_intel_export.csv", p.Filename)
	assert.Equal(t, "text/csv", p.MediaType)

	want := strings.Join([]string{
		"id,address,cryptoType,riskScore,category,pii,source,lastScan,confidence",
		`"1","bc1qxy2kgdy","BTC","8.0","Scam","Partial Match","darkweb-forum-1.onion","2024-07-25T09:30:00Z","91.4"`,
		`"2","0xAb58","ETH","7.95","Money Laundering","Alias ""JD"", partial","News Outlet","2024-07-25T10:30:00Z","70.0"`,
	}, "\n")
	assert.Equal(t, want, string(p.Body))
}

func TestExportCSVLegacy(t *testing.T) {
	p, err := New(Options{LegacyCSV: true}).Export(sample(), FormatCSV)
	require.NoError(t, err)
	lines := strings.Split(string(p.Body), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], `"Alias "JD", partial"`)
}

func TestExportCSVAlignment(t *testing.T) {
	p, err := New(Options{}).Export(sample()[:1], FormatCSV)
	require.NoError(t, err)
	lines := strings.Split(string(p.Body), "\n")
	require.Len(t, lines, 2)
	header := strings.Split(lines[0], ",")
	assert.Equal(t, Header(), header)
	assert.Len(t, strings.Split(lines[1], `","`), len(header))
}

func TestExportCSVEmpty(t *testing.T) {
	_, err := New(Options{}).Export(nil, FormatCSV)
	assert.ErrorIs(t, err, ErrEmptyExport)
}

func TestExportJSONRoundTrip(t *testing.T) {
	in := sample()
	p, err := New(Options{BaseName: "case42"}).Export(in, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "case42_export.json", p.Filename)
	assert.True(t, strings.HasPrefix(string(p.Body), "[\n  {\n    \"id\": 1,\n    \"address\""))

	var out []domain.InvestigationRecord
	require.NoError(t, json.Unmarshal(p.Body, &out))
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.Equal(t, in[i].Address, out[i].Address)
		assert.Equal(t, in[i].CryptoType, out[i].CryptoType)
		assert.True(t, in[i].RiskScore.Equal(out[i].RiskScore))
		assert.Equal(t, in[i].Category, out[i].Category)
		assert.Equal(t, in[i].PII, out[i].PII)
		assert.Equal(t, in[i].Source, out[i].Source)
		assert.True(t, in[i].LastScan.Equal(out[i].LastScan))
		assert.True(t, in[i].Confidence.Equal(out[i].Confidence))
	}
}

func TestExportJSONEmpty(t *testing.T) {
	p, err := New(Options{}).Export(nil, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(p.Body))
}

func TestExportUnsupported(t *testing.T) {
	_, err := New(Options{}).Export(sample(), Format("xml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ParseFormat("XLSX")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
}

func TestDataURI(t *testing.T) {
	p := Payload{MediaType: "text/csv", Body: []byte("a,b\n\"x y\"")}
	assert.Equal(t, "data:text/csv;charset=utf-8,a%2Cb%0A%22x%20y%22", p.DataURI())
	assert.Equal(t, "-_.!~*'()%C3%A9", EncodeURIComponent("-_.!~*'()é"))
}
