package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"

	"cryptointel/internal/domain"
	"cryptointel/internal/export"
	"cryptointel/internal/query"
	"cryptointel/internal/services/sources"
)

func isValidation(err error) bool {
	return errors.Is(err, query.ErrInvalidFilter) ||
		errors.Is(err, domain.ErrInvalidRecord) ||
		errors.Is(err, export.ErrUnsupportedFormat) ||
		errors.Is(err, sources.ErrInvalidSource)
}

// filterParams binds q, category (repeatable) and min_risk.
func filterParams(r *http.Request) (query.FilterSpec, error) {
	params := r.URL.Query()
	var (
		spec    query.FilterSpec
		q       *string
		cats    []string
		minRisk *string
	)
	if err := runtime.BindQueryParameter("form", true, false, "q", params, &q); err != nil {
		return spec, badRequest(err.Error())
	}
	if err := runtime.BindQueryParameter("form", true, false, "category", params, &cats); err != nil {
		return spec, badRequest(err.Error())
	}
	if err := runtime.BindQueryParameter("form", true, false, "min_risk", params, &minRisk); err != nil {
		return spec, badRequest(err.Error())
	}
	if q != nil {
		spec.SearchTerm = *q
	}
	for _, c := range cats {
		cat, err := domain.ParseCategory(c)
		if err != nil {
			return spec, fmt.Errorf("%w: %v", query.ErrInvalidFilter, err)
		}
		spec.Categories = append(spec.Categories, cat)
	}
	if minRisk != nil && strings.TrimSpace(*minRisk) != "" {
		d, err := decimal.NewFromString(strings.TrimSpace(*minRisk))
		if err != nil {
			return spec, fmt.Errorf("%w: min_risk %q is not a number", query.ErrInvalidFilter, *minRisk)
		}
		spec.MinRiskScore = d
	}
	return spec, nil
}

func pathID(r *http.Request) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil || id < 1 {
		return 0, badRequest(fmt.Sprintf("invalid id %q", chi.URLParam(r, "id")))
	}
	return id, nil
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	spec, err := filterParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rs, err := s.investigations.Search(r.Context(), spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

// exportRecords serves the filtered records as a download. With
// encoding=datauri the body is the data URI instead of the file content.
func (s *Server) exportRecords(w http.ResponseWriter, r *http.Request) {
	spec, err := filterParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var rawFormat, encoding *string
	params := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "format", params, &rawFormat); err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "encoding", params, &encoding); err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}
	format := export.FormatJSON
	if rawFormat != nil {
		if format, err = export.ParseFormat(*rawFormat); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	p, err := s.investigations.Export(r.Context(), spec, format)
	if errors.Is(err, export.ErrEmptyExport) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if encoding != nil && *encoding == "datauri" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(p.DataURI()))
		return
	}
	w.Header().Set("Content-Type", p.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", p.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Body)
}

// getRecord resolves the raw path segment; unknown ids answer with the
// canonical detail and fallback=true.
func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	res, err := s.investigations.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type recordBody struct {
	Address    string          `json:"address"`
	CryptoType string          `json:"cryptoType"`
	RiskScore  decimal.Decimal `json:"riskScore"`
	Category   string          `json:"category"`
	PII        string          `json:"pii"`
	Source     string          `json:"source"`
	LastScan   *time.Time      `json:"lastScan"`
	Confidence decimal.Decimal `json:"confidence"`
}

func (s *Server) decodeRecord(r *http.Request) (domain.InvestigationRecord, error) {
	var body recordBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return domain.InvestigationRecord{}, badRequest("invalid JSON body: " + err.Error())
	}
	cat, err := domain.ParseCategory(body.Category)
	if err != nil {
		return domain.InvestigationRecord{}, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	rec := domain.InvestigationRecord{
		Address:    body.Address,
		CryptoType: domain.CryptoType(strings.ToUpper(body.CryptoType)),
		RiskScore:  body.RiskScore,
		Category:   cat,
		PII:        body.PII,
		Source:     body.Source,
		LastScan:   s.now().UTC().Truncate(time.Second),
		Confidence: body.Confidence,
	}
	if body.LastScan != nil {
		rec.LastScan = body.LastScan.UTC()
	}
	return domain.NewInvestigationRecord(rec)
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.decodeRecord(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.investigations.Create(r.Context(), rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/records/%d", created.ID))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.decodeRecord(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec.ID = id
	if err := s.investigations.Update(r.Context(), rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.investigations.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
