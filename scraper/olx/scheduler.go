package olx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"housing-scraper/config"
	"housing-scraper/models"
	"housing-scraper/utils"
)

// JobResult is the structured outcome of one (location, segment) job.
// A failed or empty job carries an empty offer sequence; Err is set
// only for failures, which never affect sibling jobs.
type JobResult struct {
	Location models.Location
	Segment  models.Segment
	Offers   []models.RawOffer
	Err      error
}

// Scheduler drives jobs through pagination discovery and the two-level
// concurrent page fan-out.
type Scheduler struct {
	client *Client
	cfg    *config.Config
	logger *slog.Logger
	retry  *utils.RetryConfig
}

// NewScheduler creates a Scheduler with its own API client.
func NewScheduler(cfg *config.Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		client: NewClient(cfg),
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Run executes all jobs with bounded outer concurrency and returns one
// result per job, in submission order. Partial failures are contained:
// a failed job yields zero offers and its cause, nothing more.
func (s *Scheduler) Run(ctx context.Context, jobs []*models.Job) []JobResult {
	results := make([]JobResult, len(jobs))

	pool := utils.NewWorkerPool(s.cfg.MaxJobs)
	for i, job := range jobs {
		i, job := i, job
		pool.Submit(func() {
			offers, err := s.runJob(ctx, job)
			results[i] = JobResult{
				Location: job.Location,
				Segment:  job.Segment,
				Offers:   offers,
				Err:      err,
			}
		})
	}
	pool.Wait()

	return results
}

// runJob discovers the job's page count, fans out the page fetches and
// reassembles the results in ascending page-index order. Completion
// order of the fetches carries no ordering guarantee, so pages are
// written into their index slot and concatenated afterwards.
func (s *Scheduler) runJob(ctx context.Context, job *models.Job) ([]models.RawOffer, error) {
	pages, err := s.discoverPages(ctx, job)
	if err != nil {
		s.logger.Error("[olx] job failed during discovery",
			"location", job.Location.Name, "segment", job.Segment.Name, "err", err)
		return nil, err
	}
	if pages == 0 {
		s.logger.Info("[olx] no results", "location", job.Location.Name, "segment", job.Segment.Name)
		return nil, nil
	}
	job.Pages = pages

	pageOffers := make([][]models.RawOffer, pages)
	pageErrs := make([]error, pages)

	inner := pages
	if inner > s.cfg.MaxPageFetchers {
		inner = s.cfg.MaxPageFetchers
	}

	pool := utils.NewWorkerPool(inner)
	for page := 0; page < pages; page++ {
		page := page
		req := job.PageRequest(page, s.cfg.PageSize)
		pool.Submit(func() {
			pageErrs[page] = s.retry.Do(ctx,
				fmt.Sprintf("fetch-%s-page-%d", job.Location.Name, page),
				func() error {
					offers, err := s.fetchPage(ctx, req)
					if err != nil {
						return err
					}
					pageOffers[page] = offers
					return nil
				})
		})
	}
	pool.Wait()

	// One bad page fails the whole job; its siblings stay intact in
	// their slots but the job is reported empty to keep the output
	// free of silently truncated locations.
	for page, err := range pageErrs {
		if err != nil {
			s.logger.Error("[olx] job failed",
				"location", job.Location.Name, "segment", job.Segment.Name,
				"page", page, "err", err)
			return nil, err
		}
	}

	var offers []models.RawOffer
	for _, p := range pageOffers {
		offers = append(offers, p...)
	}
	return offers, nil
}

// discoverPages probes the job at offset 0 and computes the page count
// from the reported total. The count is fixed once discovered.
func (s *Scheduler) discoverPages(ctx context.Context, job *models.Job) (int, error) {
	var total int
	err := s.retry.Do(ctx, "discover-"+job.Location.Name, func() error {
		resp, err := s.client.search(ctx, job.Params)
		if err != nil {
			return err
		}
		total = resp.Metadata.TotalElements
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pageCount(total, s.cfg.PageSize), nil
}

// pageCount is ceil(total/size) with zero totals treated as empty.
func pageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
