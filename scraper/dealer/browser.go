package dealer

import (
	"context"
	"fmt"

	"escalade-finder/config"
	"escalade-finder/utils"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

// BrowserFetcher renders inventory pages in headless Chrome, for dealer
// sites that only fill their vehicle grid with JavaScript.
type BrowserFetcher struct {
	cfg           *config.Config
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	limiter       *rate.Limiter
}

// NewBrowserFetcher starts one Chrome process that every Fetch opens a tab
// in. It fails when Chrome cannot be launched.
func NewBrowserFetcher(cfg *config.Config) (*BrowserFetcher, error) {
	utils.Info("Launching Chrome browser...")
	allocCtx, allocCancel := chromedp.NewExecAllocator(
		context.Background(),
		utils.BrowserOpts(cfg.Headless)...,
	)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}
	utils.Success("Browser ready")

	return &BrowserFetcher{
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		limiter:       newLimiter(cfg.RequestInterval),
	}, nil
}

func (b *BrowserFetcher) Close() {
	utils.Info("Closing browser...")
	b.browserCancel()
	b.allocCancel()
}

func (b *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	var page string
	err := utils.Retry(ctx, b.cfg.MaxRetries, func() error {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		page, err = b.render(ctx, pageURL)
		return err
	})
	if err != nil {
		return "", err
	}
	return page, nil
}

func (b *BrowserFetcher) render(ctx context.Context, pageURL string) (string, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	defer tabCancel()

	runCtx, cancel := context.WithTimeout(tabCtx, b.cfg.RequestTimeout)
	defer cancel()

	// the tab hangs off the browser, so follow the caller's cancellation by hand
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	utils.Info("Rendering inventory page: %s", pageURL)

	var page string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.cfg.BrowserSettle),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(b.cfg.BrowserSettle/2),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("chromedp failed for %s: %w", pageURL, err)
	}
	return page, nil
}
