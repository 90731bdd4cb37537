package thumbnail

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/antigravity-dev/webforge/internal/ports"
)

// RodBrowserFactory implements ports.BrowserFactory with a headless
// Chromium instance driven by go-rod/rod, launching one browser per
// capture session. Grounded on thumbnail_queue.py's
// `playwright.chromium.launch()` per-job pattern — rod is this module's
// equivalent, since the example pack carries no Playwright-for-Go
// dependency.
type RodBrowserFactory struct{}

// NewBrowser launches a fresh headless browser for one capture.
func (RodBrowserFactory) NewBrowser(ctx context.Context) (ports.Browser, error) {
	browser := rod.New()
	if err := browser.Context(ctx).Connect(); err != nil {
		return nil, fmt.Errorf("thumbnail: connect browser: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("thumbnail: open page: %w", err)
	}
	return &rodBrowser{browser: browser, page: page}, nil
}

type rodBrowser struct {
	browser *rod.Browser
	page    *rod.Page
}

func (b *rodBrowser) SetViewport(_ context.Context, v ports.Viewport) error {
	return b.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             v.Width,
		Height:            v.Height,
		DeviceScaleFactor: 2,
		Mobile:            false,
	})
}

func (b *rodBrowser) Navigate(_ context.Context, url string) error {
	if err := b.page.Navigate(url); err != nil {
		return err
	}
	return b.page.WaitLoad()
}

func (b *rodBrowser) Screenshot(_ context.Context, fullPage bool) ([]byte, error) {
	return b.page.Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (b *rodBrowser) Close() error {
	b.page.Close()
	return b.browser.Close()
}
