package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"housing-scraper/config"
	"housing-scraper/models"
	"housing-scraper/scraper/olx"
	"housing-scraper/services"
	"housing-scraper/storage"
	"housing-scraper/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLogger(cfg.LogLevel)
	runID := uuid.New()
	start := time.Now()

	logger.Info("=== Housing market scraper starting ===",
		"run_id", runID,
		"page_size", cfg.PageSize,
		"max_jobs", cfg.MaxJobs,
		"max_page_fetchers", cfg.MaxPageFetchers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The exchange rate is fetched once; without it no price can be
	// normalized, so failure aborts the whole run.
	rate, err := olx.FetchExchangeRate(ctx, cfg.RateURL, time.Duration(cfg.RequestTimeoutSec)*time.Second)
	if err != nil {
		logger.Error("Failed to fetch exchange rate", "err", err)
		os.Exit(1)
	}
	logger.Info("Exchange rate loaded", "rate", rate)

	locations, err := storage.LoadLocations(cfg.LocationsPath, cfg.CapitalRegion)
	if err != nil {
		logger.Error("Failed to load locations table", "err", err)
		os.Exit(1)
	}
	logger.Info("Locations loaded", "count", len(locations))

	csvWriter, err := storage.NewCSVWriter(cfg.OutputDir)
	if err != nil {
		logger.Error("Failed to create CSV writer", "err", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	pgWriter, err := storage.NewPostgresWriter(cfg.DSN(), runID)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", "err", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer pgWriter.Close()

	scheduler := olx.NewScheduler(cfg, logger)
	normalizer := services.NewNormalizer(rate, cfg.QuoteCurrency, logger)
	trimmer := services.NewTrimmer(services.TrimConfig{
		DensityMin:   cfg.DensityMin,
		DensityMax:   cfg.DensityMax,
		LowPct:       cfg.TrimLowPct,
		HighPct:      cfg.TrimHighPct,
		MinGroupSize: cfg.MinGroupSize,
	}, logger)

	sinks := []storage.ReportWriter{csvWriter, pgWriter}

	for _, segment := range olx.Segments() {
		if ctx.Err() != nil {
			logger.Warn("Run interrupted, stopping before next segment", "segment", segment.Name)
			break
		}

		logger.Info("Segment starting", "segment", segment.Name)

		jobs := make([]*models.Job, 0, len(locations))
		for _, loc := range locations {
			jobs = append(jobs, olx.BuildJob(cfg, loc, segment))
		}

		results := scheduler.Run(ctx, jobs)

		var records []models.PriceRecord
		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
				continue
			}
			records = append(records, normalizer.BuildRecords(res.Location, res.Offers)...)
		}
		if failed > 0 {
			logger.Warn("Some jobs yielded no records", "segment", segment.Name, "failed_jobs", failed)
		}

		cleaned, report := trimmer.Trim(segment, records)
		logger.Info("Segment done",
			"segment", segment.Name,
			"rows", report.Kept,
			"dropped", report.Dropped)

		for _, sink := range sinks {
			if err := sink.WriteSegment(segment, cleaned); err != nil {
				logger.Error("Report write failed", "segment", segment.Name, "err", err)
			}
		}
	}

	logger.Info("Scraping is done",
		"run_id", runID,
		"elapsed", time.Since(start).Round(time.Second))
}
