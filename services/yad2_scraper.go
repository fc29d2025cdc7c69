package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"github.com/market-scout/scout-backend/config"
	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/shared"
)

// Scraper produces raw records from one marketplace. Adapters never touch
// the store; the pipeline owns normalization and persistence.
type Scraper interface {
	Platform() models.Platform
	Scrape(ctx context.Context) ([]models.RawRecord, error)
}

// Yad2Scraper collects computer-component listings from Yad2 category pages.
type Yad2Scraper struct {
	baseURL     string
	config      *config.ScrapeSourceConfig
	rateLimiter *shared.ScrapeRateLimiter
	httpClient  *http.Client
	metrics     *shared.ServiceMetrics
}

func NewYad2Scraper(cfg *config.ScrapeSourceConfig) *Yad2Scraper {
	if cfg == nil {
		cfg = config.DefaultScrapeSourceConfig()
	}
	return &Yad2Scraper{
		baseURL:     "https://www.yad2.co.il/products/computers",
		config:      cfg,
		rateLimiter: shared.NewScrapeRateLimiter(cfg.PolitenessDelay),
		httpClient:  shared.NewHTTPClientFactory(30 * time.Second).CreateClient(),
		metrics:     shared.NewServiceMetrics("yad2-scraper"),
	}
}

// probe checks that the category feed answers before the pagination walk
// starts, retrying transient failures so one 502 does not skip a whole cycle.
func (s *Yad2Scraper) probe(ctx context.Context) error {
	req, err := http.NewRequest(http.MethodGet, s.baseURL, nil)
	if err != nil {
		return err
	}
	shared.SetBrowserLikeHeaders(req)

	resp, err := shared.ExecuteHTTPRequestWithRetry(ctx, s.httpClient, req, 2, "yad2-probe")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (s *Yad2Scraper) Platform() models.Platform {
	return models.PlatformYad2
}

// Scrape walks the category feed up to the configured page count and turns
// each listing card into a raw record. Cards missing an item id are skipped.
func (s *Yad2Scraper) Scrape(ctx context.Context) ([]models.RawRecord, error) {
	start := time.Now()
	var records []models.RawRecord

	if err := s.probe(ctx); err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		return nil, shared.WrapError(err, shared.ErrorCategoryNetwork, "SCRAPE_PROBE_FAILED",
			"yad2-scraper", "Scrape", true)
	}

	c := colly.NewCollector(
		colly.AllowedDomains("www.yad2.co.il", "yad2.co.il"),
	)
	c.SetRequestTimeout(30 * time.Second)
	c.WithTransport(s.httpClient.Transport)

	c.OnRequest(func(r *colly.Request) {
		s.rateLimiter.EnforceRateLimit()
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		r.Headers.Set("Accept-Language", "he-IL,he;q=0.9,en;q=0.8")
		logrus.WithField("url", r.URL.String()).Debug("Fetching Yad2 page")
	})

	c.OnHTML("div[data-item-id]", func(e *colly.HTMLElement) {
		sourceID := e.Attr("data-item-id")
		if sourceID == "" {
			return
		}

		record := models.RawRecord{
			Platform:     models.PlatformYad2,
			SourceID:     sourceID,
			Title:        strings.TrimSpace(e.ChildText("[data-testid='title'], .title")),
			Description:  strings.TrimSpace(e.ChildText("[data-testid='description'], .description")),
			PriceText:    strings.TrimSpace(e.ChildText("[data-testid='price'], .price")),
			LocationText: strings.TrimSpace(e.ChildText("[data-testid='location'], .location")),
			URL:          e.Request.AbsoluteURL(e.ChildAttr("a", "href")),
			SellerName:   strings.TrimSpace(e.ChildText("[data-testid='seller'], .seller-name")),
		}
		if record.Title == "" {
			return
		}
		records = append(records, record)
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = shared.NewServiceError(
			shared.ErrorCategoryNetwork, "SCRAPE_FETCH_FAILED",
			fmt.Sprintf("yad2 fetch failed with status %d", r.StatusCode),
			"yad2-scraper", "Scrape", true, err)
	})

	for page := 1; page <= s.config.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			s.metrics.RecordRequest(false, time.Since(start))
			return records, err
		}

		pageURL := s.baseURL
		if page > 1 {
			pageURL = fmt.Sprintf("%s?page=%d", s.baseURL, page)
		}
		if err := c.Visit(pageURL); err != nil {
			logrus.WithFields(logrus.Fields{
				"page":  page,
				"error": err.Error(),
			}).Warn("Yad2 page visit failed, stopping pagination")
			break
		}
	}
	c.Wait()

	success := scrapeErr == nil || len(records) > 0
	s.metrics.RecordRequest(success, time.Since(start))
	logrus.WithFields(logrus.Fields{
		"records":  len(records),
		"duration": time.Since(start).String(),
	}).Info("Yad2 scrape completed")

	if len(records) == 0 && scrapeErr != nil {
		return nil, scrapeErr
	}
	return records, nil
}
