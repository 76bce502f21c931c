package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/tyler180/epl-player-stats/internal/config"
	"github.com/tyler180/epl-player-stats/internal/logging"
)

// Fetcher returns the HTML body of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// StatusError is returned for a final non-200 response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d for %s", e.Code, e.URL)
}

// HTTPFetcher fetches pages with a browser UA and retries on transport
// errors, 429 and 5xx. Retry-After is respected when present.
type HTTPFetcher struct {
	client  *resty.Client
	referer string
	log     *zap.Logger
}

func NewHTTPFetcher(cfg config.HTTPConfig, referer string, log *zap.Logger) *HTTPFetcher {
	log = logging.OrNop(log)
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	maxWait := cfg.RetryMax()
	if cfg.Cooldown() > maxWait {
		maxWait = cfg.Cooldown()
	}
	cooldown := cfg.Cooldown()

	client := resty.New()
	client.SetHeader("User-Agent", cfg.UserAgent)
	client.SetHeader("Accept-Language", "en-US,en;q=0.9")
	if cfg.TimeoutMS > 0 {
		client.SetTimeout(cfg.Timeout())
	}
	client.
		SetRetryCount(attempts - 1).
		SetRetryWaitTime(cfg.RetryBase()).
		SetRetryMaxWaitTime(maxWait).
		AddRetryCondition(retryable).
		SetRetryAfter(func(_ *resty.Client, res *resty.Response) (time.Duration, error) {
			if res == nil || res.StatusCode() != http.StatusTooManyRequests {
				return 0, nil
			}
			if d := parseRetryAfter(res.Header().Get("Retry-After")); d > 0 {
				return d, nil
			}
			return cooldown, nil
		}).
		AddRetryHook(func(res *resty.Response, err error) {
			if res != nil {
				log.Debug("retrying", zap.String("url", res.Request.URL), zap.Int("status", res.StatusCode()), zap.Int("attempt", res.Request.Attempt))
				return
			}
			log.Debug("retrying after transport error", zap.Error(err))
		})

	return &HTTPFetcher{client: client, referer: referer, log: log}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req := f.client.R().SetContext(ctx)
	if f.referer != "" {
		req.SetHeader("Referer", f.referer)
	}
	res, err := req.Get(url)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	if res.StatusCode() != http.StatusOK {
		return "", &StatusError{Code: res.StatusCode(), URL: url}
	}
	f.log.Debug("fetched", zap.String("url", url), zap.Int("bytes", len(res.Body())))
	return res.String(), nil
}

func retryable(res *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if res == nil {
		return false
	}
	code := res.StatusCode()
	return code == http.StatusTooManyRequests || code >= 500
}

func parseRetryAfter(h string) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(h); err == nil {
		return time.Duration(secs) * time.Second
	}
	// HTTP date
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
