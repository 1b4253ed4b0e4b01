package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/progscout/progscout/internal/utils"
)

// RendererConfig configures the headless-browser fetcher.
type RendererConfig struct {
	Timeout   time.Duration
	UserAgent string
	// WaitDelay gives script-heavy pages time to settle after the
	// document is ready.
	WaitDelay time.Duration
	Logger    utils.Logger
}

// Renderer fetches pages through headless Chrome, returning the DOM
// after scripts have run. Use it for pages whose program details are
// filled in client-side.
type Renderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	waitDelay   time.Duration
	logger      utils.Logger
}

// NewRenderer starts a browser allocator. The browser process itself
// launches lazily on the first Fetch.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.Logger == nil {
		config.Logger = utils.NewLogger()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Renderer{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		timeout:     config.Timeout,
		waitDelay:   config.WaitDelay,
		logger:      config.Logger,
	}
}

// Fetch navigates to the page and returns its rendered HTML.
func (r *Renderer) Fetch(ctx context.Context, pageURL string) (string, error) {
	tabCtx, cancel := chromedp.NewContext(r.allocCtx)
	defer cancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, r.timeout)
	defer timeoutCancel()

	// Honor caller cancellation alongside the tab's own timeout.
	go func() {
		select {
		case <-ctx.Done():
			timeoutCancel()
		case <-tabCtx.Done():
		}
	}()

	tasks := []chromedp.Action{
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
	}
	if r.waitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(r.waitDelay))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	start := time.Now()
	if err := chromedp.Run(tabCtx, tasks...); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", pageURL, err)
	}

	r.logger.WithFields(map[string]interface{}{
		"url":      pageURL,
		"duration": time.Since(start).String(),
	}).Debug("page rendered")

	return html, nil
}

// Close shuts the browser down.
func (r *Renderer) Close() error {
	r.allocCancel()
	return nil
}
