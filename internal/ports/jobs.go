package ports

import "context"

type ScrapeJob struct {
	ID       string
	SourceID int64
}

// ScrapeJobRepository supports enqueuing, claiming and finishing scrape jobs.
// Completing a job marks its source Active; failing it marks it Offline.
// Requeue hands a running job back to the queue without touching its source.
type ScrapeJobRepository interface {
	Enqueue(ctx context.Context, sourceID int64) (jobID string, err error)
	ClaimNext(ctx context.Context) (job ScrapeJob, found bool, err error)
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
	Requeue(ctx context.Context, jobID string) error
}
