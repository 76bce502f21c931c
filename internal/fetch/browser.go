package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/tyler180/epl-player-stats/internal/logging"
)

// BrowserFetcher renders pages in headless Chrome. It is used when a site
// only serves its tables to a real browser.
type BrowserFetcher struct {
	// WaitSelector, when set, must appear before the HTML is read.
	WaitSelector string
	Timeout      time.Duration

	log *zap.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewBrowserFetcher(waitSelector string, timeout time.Duration, log *zap.Logger) *BrowserFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BrowserFetcher{WaitSelector: waitSelector, Timeout: timeout, log: logging.OrNop(log)}
}

func (b *BrowserFetcher) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}
	l := launcher.New().Headless(true)
	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	b.launcher = l
	b.browser = browser
	return browser, nil
}

func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	browser, err := b.connect()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("open page %s: %w", url, err)
	}
	defer func() { _ = page.Close() }()

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}
	if b.WaitSelector != "" {
		if _, err := page.Element(b.WaitSelector); err != nil {
			return "", fmt.Errorf("wait for %q: %w", b.WaitSelector, err)
		}
	}
	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	b.log.Debug("rendered", zap.String("url", url), zap.Int("bytes", len(html)))
	return html, nil
}

// Close shuts the browser down. It is safe to call when nothing was launched.
func (b *BrowserFetcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.launcher.Cleanup()
	b.browser = nil
	b.launcher = nil
	return err
}
