package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"cryptointel/internal/domain"
	"cryptointel/internal/ports"
)

var _ ports.Sources = (*Service)(nil)

var ErrInvalidSource = errors.New("invalid data source")

type Service struct {
	sources ports.SourceRepository
	jobs    ports.ScrapeJobRepository
	log     *slog.Logger
}

func New(sources ports.SourceRepository, jobs ports.ScrapeJobRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{sources: sources, jobs: jobs, log: log}
}

func (s *Service) List(ctx context.Context) ([]domain.DataSourceRecord, error) {
	return s.sources.ListSources(ctx)
}

// Add registers a Pending source and queues its first scrape.
func (s *Service) Add(ctx context.Context, rawName string, typ domain.SourceType) (domain.DataSourceRecord, error) {
	name, err := NormalizeName(rawName)
	if err != nil {
		return domain.DataSourceRecord{}, err
	}
	if !validType(typ) {
		return domain.DataSourceRecord{}, fmt.Errorf("%w: unknown type %q", ErrInvalidSource, typ)
	}
	src, err := s.sources.AddSource(ctx, name, typ)
	if err != nil {
		return domain.DataSourceRecord{}, err
	}
	if s.jobs != nil {
		jobID, err := s.jobs.Enqueue(ctx, src.ID)
		if err != nil {
			return src, fmt.Errorf("enqueue scrape for source %d: %w", src.ID, err)
		}
		s.log.InfoContext(ctx, "data source added", "source_id", src.ID, "name", src.Name, "domain", Domain(src.Name), "job_id", jobID)
	}
	return src, nil
}

func (s *Service) Remove(ctx context.Context, id int64) error {
	return s.sources.RemoveSource(ctx, id)
}

// NormalizeName trims surrounding space. The name is otherwise free-form and
// kept as typed.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidSource)
	}
	return name, nil
}

// Domain returns the registrable domain (eTLD+1) of a name that is a URL or a
// bare host, or "" when it is neither. Sources sharing a domain can be
// grouped by it; the name itself is never rewritten.
func Domain(name string) string {
	name = strings.TrimSpace(name)
	host := name
	if strings.Contains(name, "://") {
		u, err := url.Parse(name)
		if err != nil {
			return ""
		}
		host = u.Hostname()
	} else if strings.ContainsAny(name, " /") || !strings.Contains(name, ".") {
		return ""
	}
	host = strings.ToLower(host)
	if host == "" {
		return ""
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return registrable
}

func validType(t domain.SourceType) bool {
	for _, v := range domain.SourceTypes {
		if v == t {
			return true
		}
	}
	return false
}
