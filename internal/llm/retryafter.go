package llm

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryAfterHeaders lists the header conventions observed across
// OpenAI-compatible deployments, in lookup order. Headers ending in
// "-ms" carry milliseconds; the rest carry whole seconds or an
// HTTP-date.
var retryAfterHeaders = []string{
	"Retry-After",
	"Retry-After-Ms",
	"X-RateLimit-Reset-Requests",
	"X-RateLimit-Reset-Tokens",
}

// ParseRetryAfter normalizes a provider's rate-limit wait hint into a
// duration. It returns (0, false) when no header carries a usable
// value, decoupling the backoff policy from provider header quirks.
func ParseRetryAfter(h http.Header) (time.Duration, bool) {
	for _, name := range retryAfterHeaders {
		raw := strings.TrimSpace(h.Get(name))
		if raw == "" {
			continue
		}
		if d, ok := parseRetryAfterValue(name, raw); ok {
			return d, true
		}
	}
	return 0, false
}

func parseRetryAfterValue(name, raw string) (time.Duration, bool) {
	milliseconds := strings.HasSuffix(strings.ToLower(name), "-ms")

	// Plain number: seconds or milliseconds depending on the header.
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		if n < 0 {
			return 0, false
		}
		if milliseconds {
			return time.Duration(n * float64(time.Millisecond)), true
		}
		return time.Duration(n * float64(time.Second)), true
	}

	// Duration strings like "2s" or "1m30s" (reset-style headers).
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d, true
	}

	// Retry-After may also be an HTTP-date.
	if t, err := http.ParseTime(raw); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0, false
		}
		return d, true
	}

	return 0, false
}
