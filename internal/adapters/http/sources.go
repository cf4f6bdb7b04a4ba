package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	"cryptointel/internal/domain"
	"cryptointel/internal/services/sources"
)

type alertView struct {
	ID         int64           `json:"id"`
	Address    string          `json:"address"`
	Category   domain.Category `json:"category"`
	Source     string          `json:"source"`
	Time       string          `json:"time"`
	DetectedAt time.Time       `json:"detectedAt"`
}

type sourceView struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Domain      string              `json:"domain,omitempty"`
	Type        domain.SourceType   `json:"type"`
	Status      domain.SourceStatus `json:"status"`
	LastScraped string              `json:"lastScraped"`
}

func toSourceView(src domain.DataSourceRecord, now time.Time) sourceView {
	return sourceView{
		ID:          src.ID,
		Name:        src.Name,
		Domain:      sources.Domain(src.Name),
		Type:        src.Type,
		Status:      src.Status,
		LastScraped: src.LastScrapedLabel(now),
	}
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	as, err := s.alerts.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.now()
	out := make([]alertView, 0, len(as))
	for _, a := range as {
		out = append(out, alertView{
			ID:         a.ID,
			Address:    a.Address,
			Category:   a.Category,
			Source:     a.Source,
			Time:       a.TimeLabel(now),
			DetectedAt: a.DetectedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	srcs, err := s.sources.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.now()
	out := make([]sourceView, 0, len(srcs))
	for _, src := range srcs {
		out = append(out, toSourceView(src, now))
	}
	writeJSON(w, http.StatusOK, out)
}

type sourceBody struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// addSource registers a source. With wait=true the queued scrape runs before
// the response so the returned status is final.
func (s *Server) addSource(w http.ResponseWriter, r *http.Request) {
	var body sourceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, badRequest("invalid JSON body: "+err.Error()))
		return
	}
	typ, err := domain.ParseSourceType(body.Type)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", sources.ErrInvalidSource, err))
		return
	}
	var wait *bool
	if err := runtime.BindQueryParameter("form", true, false, "wait", r.URL.Query(), &wait); err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}

	src, err := s.sources.Add(r.Context(), body.Name, typ)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if wait != nil && *wait && s.runner != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		if _, err := s.runner.Drain(ctx); err != nil {
			s.writeError(w, r, err)
			return
		}
		if src, err = s.findSource(ctx, src.ID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	w.Header().Set("Location", fmt.Sprintf("/sources/%d", src.ID))
	writeJSON(w, http.StatusCreated, toSourceView(src, s.now()))
}

func (s *Server) findSource(ctx context.Context, id int64) (domain.DataSourceRecord, error) {
	srcs, err := s.sources.List(ctx)
	if err != nil {
		return domain.DataSourceRecord{}, err
	}
	for _, src := range srcs {
		if src.ID == id {
			return src, nil
		}
	}
	return domain.DataSourceRecord{}, &runtimeError{code: http.StatusNotFound, msg: fmt.Sprintf("source %d not found", id)}
}

func (s *Server) removeSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sources.Remove(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	if s.dashboard == nil {
		s.writeError(w, r, &runtimeError{code: http.StatusNotImplemented, msg: "dashboard not configured"})
		return
	}
	sum, err := s.dashboard.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
