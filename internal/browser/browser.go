// Package browser implements the browser collaborator on chromedp. The
// Chrome instance starts lazily on the first action, so sequences without
// browser steps never pay for one.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/loopwise/loopwise/internal/logging"
	"github.com/loopwise/loopwise/pkg/domain"
)

const defaultActionTimeout = 10 * time.Second

// Browser drives a headless Chrome through chromedp. Safe for sequential
// use by one executor; Close releases the instance.
type Browser struct {
	headless bool
	timeout  time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	allocCtx   context.Context
	browserCtx context.Context
	cancels    []context.CancelFunc
}

// Option configures a Browser.
type Option func(*Browser)

// WithHeadless toggles headless mode, on by default.
func WithHeadless(headless bool) Option {
	return func(b *Browser) { b.headless = headless }
}

// WithActionTimeout bounds each individual action.
func WithActionTimeout(d time.Duration) Option {
	return func(b *Browser) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Browser) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Browser. Chrome is not started until the first action.
func New(opts ...Option) *Browser {
	b := &Browser{
		headless: true,
		timeout:  defaultActionTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ensure starts the Chrome instance on first use.
func (b *Browser) ensure(ctx context.Context) (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		return b.browserCtx, nil
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", b.headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the browser process now so a broken environment fails here,
	// not inside the first real action.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	b.allocCtx = allocCtx
	b.browserCtx = browserCtx
	b.cancels = []context.CancelFunc{cancelBrowser, cancelAlloc}
	b.logger.Info("browser started", "headless", b.headless)
	return browserCtx, nil
}

// Do executes one browser action. Supported types: navigate, click, type,
// wait, screenshot. Unknown types are an error so the failure gets recorded.
func (b *Browser) Do(ctx context.Context, action domain.BrowserAction) error {
	browserCtx, err := b.ensure(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(browserCtx, b.timeout)
	defer cancel()

	switch action.Type {
	case "navigate":
		url := stringParam(action.Params, "url")
		if url == "" {
			return fmt.Errorf("navigate action needs a url")
		}
		return chromedp.Run(runCtx, chromedp.Navigate(url))

	case "click":
		sel := stringParam(action.Params, "selector")
		if sel == "" {
			return fmt.Errorf("click action needs a selector")
		}
		return chromedp.Run(runCtx,
			chromedp.WaitVisible(sel, chromedp.ByQuery),
			chromedp.Click(sel, chromedp.ByQuery))

	case "type":
		sel := stringParam(action.Params, "selector")
		text := stringParam(action.Params, "text")
		if sel == "" {
			return fmt.Errorf("type action needs a selector")
		}
		return chromedp.Run(runCtx,
			chromedp.WaitVisible(sel, chromedp.ByQuery),
			chromedp.SendKeys(sel, text, chromedp.ByQuery))

	case "wait":
		if sel := stringParam(action.Params, "selector"); sel != "" {
			return chromedp.Run(runCtx, chromedp.WaitVisible(sel, chromedp.ByQuery))
		}
		seconds := floatParam(action.Params, "seconds", 1)
		select {
		case <-time.After(time.Duration(seconds * float64(time.Second))):
			return nil
		case <-runCtx.Done():
			return runCtx.Err()
		}

	case "screenshot":
		path := stringParam(action.Params, "path")
		if path == "" {
			path = fmt.Sprintf("screenshot-%d.png", time.Now().Unix())
		}
		var buf []byte
		if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
			return err
		}
		return os.WriteFile(path, buf, 0644)

	default:
		return fmt.Errorf("unknown browser action %q", action.Type)
	}
}

// Close shuts the Chrome instance down. Safe to call without one running.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
	b.browserCtx = nil
	b.allocCtx = nil
	return nil
}

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

func floatParam(params map[string]any, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}
