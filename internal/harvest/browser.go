package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Default page load parameters for artist pages.
const (
	DefaultPageTimeout = 60 * time.Second
	DefaultViewportW   = 1366
	DefaultViewportH   = 900
)

// pageHeaders pins the page language to English.
var pageHeaders = network.Headers{"Accept-Language": "en-US,en;q=0.9"}

// Page is what the scrape path needs from a rendered artist page.
type Page struct {
	// JSONLD holds the text of every application/ld+json script block.
	JSONLD []string
	// State is the JSON-encoded embedded client state, empty when absent.
	State string
}

// PageLoader renders a page and returns its structured data.
type PageLoader interface {
	Load(ctx context.Context, url string) (Page, error)
}

const (
	jsonLDScript = `Array.from(document.querySelectorAll('script[type="application/ld+json"]')).map(n => n.textContent || "")`
	stateScript  = `(() => { const d = window.__NEXT_DATA__ || window.__data || null; try { return d ? JSON.stringify(d) : ""; } catch (e) { return ""; } })()`
)

// ChromeLoader launches a headless Chromium per page via chromedp, so a hung
// page only stalls its own load until Timeout.
type ChromeLoader struct {
	UserAgent string
	Timeout   time.Duration
	// ExecPath overrides the Chromium binary lookup when set.
	ExecPath string
}

// Load navigates to url, waits for the DOM to be ready and collects the
// JSON-LD blocks and the embedded state.
func (l *ChromeLoader) Load(parentCtx context.Context, url string) (Page, error) {
	if url == "" {
		return Page{}, fmt.Errorf("browser: URL is required")
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultPageTimeout
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if l.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.UserAgent))
	}
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parentCtx, opts...)
	defer cancelAlloc()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	// Apply timeout to the entire load sequence.
	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)
	defer timeoutCancel()

	var page Page
	tasks := chromedp.Tasks{
		network.Enable(),
		network.SetExtraHTTPHeaders(pageHeaders),
		chromedp.EmulateViewport(DefaultViewportW, DefaultViewportH),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(jsonLDScript, &page.JSONLD),
		chromedp.Evaluate(stateScript, &page.State),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return Page{}, fmt.Errorf("browser: chromedp run failed: %w", err)
	}
	return page, nil
}
