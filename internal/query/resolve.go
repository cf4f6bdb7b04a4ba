package query

import (
	"strconv"
	"strings"

	"cryptointel/internal/domain"
)

// Resolution is the outcome of a detail lookup. Exactly one of Record or
// Detail is set. Fallback is true when the identifier did not parse or did not
// match, in which case Detail holds the canonical record: a detail view always
// has something to show.
type Resolution struct {
	Record   *domain.InvestigationRecord `json:"record,omitempty"`
	Detail   *domain.AddressDetailRecord `json:"detail,omitempty"`
	Fallback bool                        `json:"fallback"`
}

// ParseID accepts base-10 positive integers only.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Resolve looks up rawID in records and falls back to canonical when the id is
// malformed or absent. It never fails.
func Resolve(records []domain.InvestigationRecord, rawID string, canonical *domain.AddressDetailRecord) Resolution {
	id, ok := ParseID(rawID)
	if !ok {
		return Resolution{Detail: canonical, Fallback: true}
	}
	return ResolveID(records, id, canonical)
}

// ResolveID is Resolve for an already numeric identifier.
func ResolveID(records []domain.InvestigationRecord, id int64, canonical *domain.AddressDetailRecord) Resolution {
	if id > 0 {
		for i := range records {
			if records[i].ID == id {
				r := records[i]
				return Resolution{Record: &r}
			}
		}
	}
	return Resolution{Detail: canonical, Fallback: true}
}
