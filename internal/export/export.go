// Package export serializes investigation records to CSV or JSON payloads.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cryptointel/internal/domain"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrEmptyExport is returned for a CSV export of zero records; no file
	// should be produced.
	ErrEmptyExport = errors.New("nothing to export")
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// DefaultBaseName prefixes the suggested filename: crypto_intel_export.csv.
const DefaultBaseName = "crypto_intel"

type Options struct {
	// BaseName overrides DefaultBaseName.
	BaseName string
	// LegacyCSV wraps values in quotes without doubling embedded quotes,
	// byte-compatible with the dashboard's original export. The default
	// doubles them as RFC 4180 requires.
	LegacyCSV bool
}

// Payload is a finished export.
type Payload struct {
	Format    Format
	Filename  string
	MediaType string
	Body      []byte
}

// DataURI embeds the payload in a data URI, percent-encoded the way
// encodeURIComponent does in browsers.
func (p Payload) DataURI() string {
	return "data:" + p.MediaType + ";charset=utf-8," + EncodeURIComponent(string(p.Body))
}

type Serializer struct {
	opts Options
}

func New(opts Options) *Serializer {
	if opts.BaseName == "" {
		opts.BaseName = DefaultBaseName
	}
	return &Serializer{opts: opts}
}

// Export serializes records in the given format. Record order is preserved.
func (s *Serializer) Export(records []domain.InvestigationRecord, format Format) (Payload, error) {
	switch format {
	case FormatJSON:
		body, err := s.JSON(records)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Format: FormatJSON, Filename: s.filename(FormatJSON), MediaType: "application/json", Body: body}, nil
	case FormatCSV:
		body, err := s.CSV(records)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Format: FormatCSV, Filename: s.filename(FormatCSV), MediaType: "text/csv", Body: body}, nil
	}
	return Payload{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func (s *Serializer) filename(f Format) string {
	return s.opts.BaseName + "_export." + string(f)
}

// JSON writes a 2-space indented array; zero records give "[]".
func (s *Serializer) JSON(records []domain.InvestigationRecord) ([]byte, error) {
	if records == nil {
		records = []domain.InvestigationRecord{}
	}
	return json.MarshalIndent(records, "", "  ")
}

// CSV writes a header line and one line per record, every value quoted, lines
// separated by "\n" with no trailing newline.
func (s *Serializer) CSV(records []domain.InvestigationRecord) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrEmptyExport
	}
	var buf bytes.Buffer
	for i, c := range columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(c.name)
	}
	for _, r := range records {
		buf.WriteByte('\n')
		for i, c := range columns {
			if i > 0 {
				buf.WriteByte(',')
			}
			s.writeQuoted(&buf, c.value(r))
		}
	}
	return buf.Bytes(), nil
}

func (s *Serializer) writeQuoted(buf *bytes.Buffer, v string) {
	buf.WriteByte('"')
	if s.opts.LegacyCSV {
		buf.WriteString(v)
	} else {
		buf.WriteString(strings.ReplaceAll(v, `"`, `""`))
	}
	buf.WriteByte('"')
}

// Header returns the CSV column names in record field order.
func Header() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.name
	}
	return out
}

type column struct {
	name  string
	value func(domain.InvestigationRecord) string
}

// columns mirrors the json tags of domain.InvestigationRecord.
var columns = []column{
	{"id", func(r domain.InvestigationRecord) string { return strconv.FormatInt(r.ID, 10) }},
	{"address", func(r domain.InvestigationRecord) string { return r.Address }},
	{"cryptoType", func(r domain.InvestigationRecord) string { return string(r.CryptoType) }},
	{"riskScore", func(r domain.InvestigationRecord) string { return domain.FormatScore(r.RiskScore) }},
	{"category", func(r domain.InvestigationRecord) string { return string(r.Category) }},
	{"pii", func(r domain.InvestigationRecord) string { return r.PII }},
	{"source", func(r domain.InvestigationRecord) string { return r.Source }},
	{"lastScan", func(r domain.InvestigationRecord) string { return r.LastScan.UTC().Format(time.RFC3339) }},
	{"confidence", func(r domain.InvestigationRecord) string { return domain.FormatScore(r.Confidence) }},
}

// EncodeURIComponent escapes every byte except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
