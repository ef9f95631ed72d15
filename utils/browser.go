package utils

import (
	"github.com/chromedp/chromedp"
)

// DesktopUserAgent is sent with every request so dealer sites serve their
// normal desktop inventory markup.
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// BrowserOpts returns the chromedp launch options used for JS-rendered
// inventory pages.
func BrowserOpts(headless bool) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(DesktopUserAgent),
	}

	if headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	return opts
}
