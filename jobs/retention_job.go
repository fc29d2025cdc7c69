package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/services"
)

// RetentionJob sweeps every platform for listings that have gone unseen past
// the retention window, independent of scrape runs. It covers the case where
// a scraper has been failing long enough that no per-run stale marking
// happened.
type RetentionJob struct {
	Store      services.ListingStore
	StaleAfter time.Duration
}

func NewRetentionJob(store services.ListingStore, staleAfter time.Duration) *RetentionJob {
	return &RetentionJob{
		Store:      store,
		StaleAfter: staleAfter,
	}
}

func (j *RetentionJob) Run() {
	logrus.Info("Starting retention sweep")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	total := 0
	for _, platform := range []models.Platform{models.PlatformYad2, models.PlatformFacebook} {
		// An empty seen-set means every listing past the window is a
		// candidate.
		marked, err := j.Store.MarkStale(ctx, platform, map[string]bool{}, j.StaleAfter)
		if err != nil {
			logrus.WithField("platform", platform).Errorf("Retention sweep failed: %v", err)
			continue
		}
		total += marked
	}

	logrus.WithField("marked", total).Info("Retention sweep completed")
}
