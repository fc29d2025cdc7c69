package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/services"
)

// ScrapeIngestJob runs all registered scrapers and feeds their raw records
// through the ingest pipeline. One failing scraper never blocks the others.
type ScrapeIngestJob struct {
	Scrapers []services.Scraper
	Pipeline *services.IngestPipeline
	Store    services.ListingStore
	// StaleAfter is the retention window handed to MarkStale after each
	// platform's scrape completes.
	StaleAfter time.Duration
	Timeout    time.Duration
}

func NewScrapeIngestJob(scrapers []services.Scraper, pipeline *services.IngestPipeline, store services.ListingStore, staleAfter time.Duration) *ScrapeIngestJob {
	return &ScrapeIngestJob{
		Scrapers:   scrapers,
		Pipeline:   pipeline,
		Store:      store,
		StaleAfter: staleAfter,
		Timeout:    15 * time.Minute,
	}
}

func (j *ScrapeIngestJob) Run() {
	logrus.Info("Starting scrape and ingest job")
	ctx, cancel := context.WithTimeout(context.Background(), j.Timeout)
	defer cancel()

	for _, scraper := range j.Scrapers {
		platform := scraper.Platform()
		jobLog := logrus.WithField("platform", platform)

		records, err := scraper.Scrape(ctx)
		if err != nil {
			jobLog.Errorf("Scrape failed: %v", err)
			continue
		}
		if len(records) == 0 {
			jobLog.Warn("Scrape produced no records, skipping stale marking")
			continue
		}

		report := j.Pipeline.Run(ctx, records)
		jobLog.WithFields(logrus.Fields{
			"total":    report.Total,
			"inserted": report.Inserted,
			"updated":  report.Updated,
			"dropped":  report.Dropped,
		}).Info("Batch ingested")

		// Only a successful scrape counts as a full observation of the
		// platform, so stale marking happens here and not on a timer of
		// its own.
		seen := make(map[string]bool, len(records))
		for _, record := range records {
			seen[record.SourceID] = true
		}
		marked, err := j.Store.MarkStale(ctx, platform, seen, j.StaleAfter)
		if err != nil {
			jobLog.Errorf("Stale marking failed: %v", err)
			continue
		}
		if marked > 0 {
			jobLog.Infof("Marked %d listings inactive", marked)
		}
	}

	logrus.Info("Scrape and ingest job completed")
}

// RunOnce ingests an externally supplied batch for a single platform. The
// admin ingest endpoint uses it.
func (j *ScrapeIngestJob) RunOnce(ctx context.Context, batch []models.RawRecord) models.BatchReport {
	return j.Pipeline.Run(ctx, batch)
}
