package shared

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPClientFactory creates configured HTTP clients for scraper adapters
type HTTPClientFactory struct {
	defaultTimeout time.Duration
}

// NewHTTPClientFactory creates a factory with the given default timeout
func NewHTTPClientFactory(defaultTimeout time.Duration) *HTTPClientFactory {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &HTTPClientFactory{defaultTimeout: defaultTimeout}
}

// CreateClient returns an HTTP client with connection pooling tuned for
// repeated fetches against the same marketplace host
func (f *HTTPClientFactory) CreateClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  false,
	}
	return &http.Client{
		Timeout:   f.defaultTimeout,
		Transport: transport,
	}
}

// SetBrowserLikeHeaders configures request headers so marketplace endpoints
// treat the fetch like a regular browser session
func SetBrowserLikeHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "he-IL,he;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")
}

// ExecuteHTTPRequestWithRetry executes an HTTP request with exponential
// backoff. Non-retryable status codes fail immediately.
func ExecuteHTTPRequestWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, operation string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * time.Second
			logrus.WithFields(logrus.Fields{
				"operation": operation,
				"attempt":   attempt,
				"backoff":   backoff.String(),
			}).Debug("Retrying HTTP request")

			select {
			case <-ctx.Done():
				return nil, NewServiceError(ErrorCategoryTimeout, "REQUEST_CANCELLED",
					fmt.Sprintf("%s cancelled during retry backoff", operation),
					"http-client", operation, false, ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = NewServiceError(ErrorCategoryNetwork, "HTTP_REQUEST_FAILED",
				fmt.Sprintf("%s request failed", operation),
				"http-client", operation, true, err)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = NewServiceError(ErrorCategoryNetwork, "HTTP_STATUS_RETRYABLE",
				fmt.Sprintf("%s returned status %d", operation, resp.StatusCode),
				"http-client", operation, true, nil)
		default:
			resp.Body.Close()
			return nil, NewServiceError(ErrorCategoryNetwork, "HTTP_STATUS_ERROR",
				fmt.Sprintf("%s returned status %d", operation, resp.StatusCode),
				"http-client", operation, false, nil)
		}
	}

	return nil, lastErr
}
