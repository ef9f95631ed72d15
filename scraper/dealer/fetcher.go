package dealer

import (
	"context"
	"fmt"
	"time"

	"escalade-finder/config"
	"escalade-finder/utils"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Fetcher downloads the markup of one inventory page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// HTTPFetcher fetches pages with plain HTTP requests. Requests share one
// limiter so that concurrent workers stay polite.
type HTTPFetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
	retries int
}

func NewHTTPFetcher(cfg *config.Config) *HTTPFetcher {
	client := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetHeader("User-Agent", utils.DesktopUserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9")

	return &HTTPFetcher{
		client:  client,
		limiter: newLimiter(cfg.RequestInterval),
		retries: cfg.MaxRetries,
	}
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	var body string
	err := utils.Retry(ctx, f.retries, func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}

		utils.Info("Fetching inventory page: %s", pageURL)
		resp, err := f.client.R().SetContext(ctx).Get(pageURL)
		if err != nil {
			return fmt.Errorf("request %s: %w", pageURL, err)
		}
		if resp.IsError() {
			return fmt.Errorf("HTTP %d for %s", resp.StatusCode(), pageURL)
		}
		body = resp.String()
		return nil
	})
	if err != nil {
		return "", err
	}
	return body, nil
}
