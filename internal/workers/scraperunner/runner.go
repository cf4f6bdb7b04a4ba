package scraperunner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cryptointel/internal/metrics"
	"cryptointel/internal/ports"
)

// ScrapeProcessor performs the scrape work for a claimed job.
type ScrapeProcessor interface {
	Process(ctx context.Context, job ports.ScrapeJob) error
}

var ErrScrapeFailed = errors.New("scrape failed")

const finishTimeout = 5 * time.Second

// SimulatedProcessor stands in for a real scraper. It waits Delay and then
// succeeds unless Fail reports the job as failing.
type SimulatedProcessor struct {
	Delay time.Duration
	Fail  func(ports.ScrapeJob) bool
}

func (p SimulatedProcessor) Process(ctx context.Context, job ports.ScrapeJob) error {
	if p.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}
	if p.Fail != nil && p.Fail(job) {
		return ErrScrapeFailed
	}
	return nil
}

type Runner struct {
	Repo      ports.ScrapeJobRepository
	Processor ScrapeProcessor
	Log       *slog.Logger
	Metrics   *metrics.Metrics
}

// Run starts worker goroutines that claim jobs and process them. It returns
// immediately; workers stop when ctx is cancelled.
func (r Runner) Run(ctx context.Context, concurrency int, pollInterval time.Duration) {
	if concurrency < 1 {
		return
	}
	log := r.logger()
	jobsCh := make(chan ports.ScrapeJob, concurrency)

	// dispatcher loop
	go func() {
		defer close(jobsCh)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for {
					job, found, err := r.Repo.ClaimNext(ctx)
					if err != nil {
						if ctx.Err() == nil {
							log.Error("scrape job claim failed", "err", err)
						}
						break
					}
					if !found {
						break
					}
					select {
					case jobsCh <- job:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	for i := 0; i < concurrency; i++ {
		go func(idx int) {
			for job := range jobsCh {
				if err := r.process(ctx, job); err != nil {
					log.Warn("scrape job failed", "worker", idx, "job_id", job.ID, "source_id", job.SourceID, "err", err)
				}
			}
		}(i)
	}
}

// Drain claims and processes queued jobs on the calling goroutine until the
// queue is empty. It returns the number of jobs handled.
func (r Runner) Drain(ctx context.Context) (int, error) {
	n := 0
	for {
		job, found, err := r.Repo.ClaimNext(ctx)
		if err != nil {
			return n, err
		}
		if !found {
			return n, nil
		}
		n++
		if err := r.process(ctx, job); err != nil && !errors.Is(err, ErrScrapeFailed) {
			return n, err
		}
	}
}

// process runs one claimed job and records the outcome on the job and its
// source. A job interrupted by cancellation goes back to the queue and its
// source keeps its status. Outcome writes outlive ctx so a stopping worker
// never strands a running job.
func (r Runner) process(ctx context.Context, job ports.ScrapeJob) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	err := ctx.Err()
	if err == nil {
		err = r.Processor.Process(ctx, job)
	}
	if err != nil && ctx.Err() != nil {
		if reqErr := r.Repo.Requeue(wctx, job.ID); reqErr != nil {
			return errors.Join(err, reqErr)
		}
		return err
	}
	if err != nil {
		r.Metrics.CountScrape("failed")
		if markErr := r.Repo.MarkFailed(wctx, job.ID, err.Error()); markErr != nil {
			return errors.Join(err, markErr)
		}
		return err
	}
	r.Metrics.CountScrape("completed")
	return r.Repo.MarkCompleted(wctx, job.ID)
}

func (r Runner) logger() *slog.Logger {
	if r.Log == nil {
		return slog.Default()
	}
	return r.Log
}
