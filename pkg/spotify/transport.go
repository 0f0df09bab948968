package spotify

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/catalog"
)

// defaultRetryAfter is used when a 429 comes without a usable Retry-After.
const defaultRetryAfter = 5 * time.Second

// rateLimitTransport turns 429 responses into *catalog.RateLimitError so the
// hint in Retry-After survives the trip through the API client.
type rateLimitTransport struct {
	base http.RoundTripper
	now  func() time.Time
}

func newRateLimitTransport(base http.RoundTripper) *rateLimitTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &rateLimitTransport{base: base, now: time.Now}
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		return resp, nil
	}

	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), t.now())
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return nil, &catalog.RateLimitError{RetryAfter: retryAfter}
}

// parseRetryAfter accepts both forms of the header: delay in seconds and an
// HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultRetryAfter
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return defaultRetryAfter
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}

	return defaultRetryAfter
}
