package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/shared"
)

// IngestPipeline drives a batch of raw records through normalize, upsert and
// score. Records are processed by a bounded worker pool; writes for the same
// identity key are serialized so the upsert-then-score pair never interleaves
// for one listing. A bad record is dropped and counted, never fatal to the
// batch.
type IngestPipeline struct {
	normalizer *Normalizer
	store      ListingStore
	engine     *ScoringEngine
	scoringCfg ScoringConfig
	workers    int
	keyLocks   *shared.KeyedMutex
	metrics    *shared.ServiceMetrics
}

func NewIngestPipeline(normalizer *Normalizer, store ListingStore, engine *ScoringEngine, scoringCfg ScoringConfig, workers int) *IngestPipeline {
	if workers <= 0 {
		workers = shared.NewDefaultUnifiedConfiguration().Batch.MaxConcurrency
	}
	return &IngestPipeline{
		normalizer: normalizer,
		store:      store,
		engine:     engine,
		scoringCfg: scoringCfg,
		workers:    workers,
		keyLocks:   shared.NewKeyedMutex(),
		metrics:    shared.NewServiceMetrics("ingest-pipeline"),
	}
}

// Run processes a batch and reports the outcome. Cancellation is honored
// between records: in-flight records finish their upsert-and-score pair, the
// rest are dropped as cancelled, and no partially written listing remains.
func (p *IngestPipeline) Run(ctx context.Context, batch []models.RawRecord) models.BatchReport {
	start := time.Now()
	report := models.BatchReport{
		Total:       len(batch),
		DropReasons: make(map[string]int),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var sampleErrors []error
	sem := make(chan struct{}, p.workers)

	for _, raw := range batch {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			report.Dropped++
			report.DropReasons[shared.CodeCancelled]++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(raw models.RawRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, err := p.processRecord(ctx, raw)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Dropped++
				report.DropReasons[shared.ErrorCode(err)]++
				if len(sampleErrors) < 5 {
					sampleErrors = append(sampleErrors, err)
				}
				logrus.WithFields(logrus.Fields{
					"platform":  raw.Platform,
					"source_id": raw.SourceID,
					"error":     err.Error(),
				}).Warn("Record dropped during ingestion")
				return
			}
			switch outcome {
			case models.UpsertInserted:
				report.Inserted++
			case models.UpsertUpdated:
				report.Updated++
			}
		}(raw)
	}

	wg.Wait()
	report.Duration = time.Since(start)

	succeeded := report.Inserted + report.Updated
	p.metrics.RecordRequest(report.Dropped == 0, report.Duration)
	logrus.WithFields(logrus.Fields{
		"total":    report.Total,
		"inserted": report.Inserted,
		"updated":  report.Updated,
		"dropped":  report.Dropped,
		"duration": report.Duration.String(),
		"summary":  shared.BuildBatchErrorSummary(succeeded, report.Dropped, sampleErrors),
	}).Info("Ingestion batch completed")

	return report
}

// processRecord runs one record through the full pipeline. The keyed lock
// covers the upsert, the re-read and the score write, so two observations of
// the same listing cannot produce a score from a half-merged state.
func (p *IngestPipeline) processRecord(ctx context.Context, raw models.RawRecord) (models.UpsertOutcome, error) {
	listing, err := p.normalizer.Normalize(raw)
	if err != nil {
		return "", err
	}

	var outcome models.UpsertOutcome
	var procErr error
	p.keyLocks.WithLock(listing.IdentityKey(), func() {
		outcome, procErr = p.store.Upsert(ctx, listing)
		if procErr != nil {
			return
		}

		stored, err := p.store.GetByIdentity(ctx, listing.Platform, listing.SourceID)
		if err != nil {
			procErr = err
			return
		}
		if stored == nil {
			procErr = shared.NewServiceError(
				shared.ErrorCategoryProcessing, shared.CodeNotFound,
				"listing vanished between upsert and score", "ingest-pipeline", "processRecord", true, nil)
			return
		}

		score := p.engine.Score(*stored, p.scoringCfg)
		procErr = p.store.SaveScore(ctx, score)
	})

	if procErr != nil {
		return "", procErr
	}
	return outcome, nil
}

// Metrics exposes the pipeline's service metrics.
func (p *IngestPipeline) Metrics() *shared.ServiceMetrics {
	return p.metrics
}
