package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/market-scout/scout-backend/config"
	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/shared"
)

// FacebookScraper collects listings from Facebook Marketplace search pages.
// Marketplace renders entirely through JavaScript, so a headless browser
// fetches the DOM and goquery parses the snapshot.
type FacebookScraper struct {
	searchURL   string
	config      *config.ScrapeSourceConfig
	rateLimiter *shared.ScrapeRateLimiter
	metrics     *shared.ServiceMetrics
}

func NewFacebookScraper(cfg *config.ScrapeSourceConfig) *FacebookScraper {
	if cfg == nil {
		cfg = config.DefaultScrapeSourceConfig()
	}
	return &FacebookScraper{
		searchURL:   "https://www.facebook.com/marketplace/category/electronics/computers",
		config:      cfg,
		rateLimiter: shared.NewScrapeRateLimiter(cfg.PolitenessDelay),
		metrics:     shared.NewServiceMetrics("facebook-scraper"),
	}
}

func (s *FacebookScraper) Platform() models.Platform {
	return models.PlatformFacebook
}

// Scrape renders the marketplace page headlessly and parses listing cards
// out of the resulting DOM.
func (s *FacebookScraper) Scrape(ctx context.Context) ([]models.RawRecord, error) {
	start := time.Now()
	s.rateLimiter.EnforceRateLimit()

	html, err := s.renderPage(ctx)
	if err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		return nil, err
	}

	records, err := s.parseListings(html)
	s.metrics.RecordRequest(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"records":  len(records),
		"duration": time.Since(start).String(),
	}).Info("Facebook scrape completed")
	return records, nil
}

// renderPage drives a headless browser to the marketplace page and returns
// the rendered HTML after the listing grid appears.
func (s *FacebookScraper) renderPage(parent context.Context) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-images", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	defer cancelAlloc()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, s.config.PolitenessDelay+45*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(ctx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(s.searchURL),
		chromedp.WaitVisible(`a[href*="/marketplace/item/"]`, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", shared.NewServiceError(
			shared.ErrorCategoryNetwork, "SCRAPE_RENDER_FAILED",
			"failed to render facebook marketplace page", "facebook-scraper", "renderPage", true, err)
	}
	return html, nil
}

// parseListings extracts raw records from the rendered DOM. The item id in
// the marketplace URL is the source id.
func (s *FacebookScraper) parseListings(html string) ([]models.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse marketplace HTML: %w", err)
	}

	var records []models.RawRecord
	seen := make(map[string]bool)

	doc.Find(`a[href*="/marketplace/item/"]`).Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		sourceID := extractMarketplaceItemID(href)
		if sourceID == "" || seen[sourceID] {
			return
		}

		// Card text stacks price, title and location in separate spans.
		var lines []string
		sel.Find("span").Each(func(j int, span *goquery.Selection) {
			text := strings.TrimSpace(span.Text())
			if text != "" {
				lines = append(lines, text)
			}
		})
		if len(lines) == 0 {
			return
		}

		record := models.RawRecord{
			Platform: models.PlatformFacebook,
			SourceID: sourceID,
			URL:      "https://www.facebook.com/marketplace/item/" + sourceID,
		}
		for _, line := range lines {
			switch {
			case record.PriceText == "" && looksLikePrice(line):
				record.PriceText = line
			case record.Title == "":
				record.Title = line
			case record.LocationText == "":
				record.LocationText = line
			default:
				if record.Description != "" {
					record.Description += " "
				}
				record.Description += line
			}
		}
		if record.Title == "" {
			return
		}

		seen[sourceID] = true
		records = append(records, record)
	})

	return records, nil
}

// extractMarketplaceItemID pulls the numeric item id out of a marketplace
// item URL.
func extractMarketplaceItemID(href string) string {
	marker := "/marketplace/item/"
	idx := strings.Index(href, marker)
	if idx < 0 {
		return ""
	}
	rest := href[idx+len(marker):]
	for i, r := range rest {
		if r < '0' || r > '9' {
			rest = rest[:i]
			break
		}
	}
	return rest
}

func looksLikePrice(text string) bool {
	if !strings.ContainsAny(text, "0123456789") {
		return false
	}
	return strings.ContainsAny(text, "₪$€") || strings.Contains(strings.ToUpper(text), "ILS")
}
