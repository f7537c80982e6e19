package llm

import (
	"net/http"
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		want   time.Duration
		ok     bool
	}{
		{
			name:   "seconds",
			header: http.Header{"Retry-After": []string{"7"}},
			want:   7 * time.Second,
			ok:     true,
		},
		{
			name:   "fractional seconds",
			header: http.Header{"Retry-After": []string{"1.5"}},
			want:   1500 * time.Millisecond,
			ok:     true,
		},
		{
			name:   "milliseconds header",
			header: http.Header{"Retry-After-Ms": []string{"2500"}},
			want:   2500 * time.Millisecond,
			ok:     true,
		},
		{
			name:   "reset duration string",
			header: http.Header{"X-Ratelimit-Reset-Requests": []string{"3s"}},
			want:   3 * time.Second,
			ok:     true,
		},
		{
			name:   "first matching header wins",
			header: http.Header{"Retry-After": []string{"4"}, "Retry-After-Ms": []string{"100"}},
			want:   4 * time.Second,
			ok:     true,
		},
		{
			name:   "negative value is unusable",
			header: http.Header{"Retry-After": []string{"-1"}},
			ok:     false,
		},
		{
			name:   "garbage value is unusable",
			header: http.Header{"Retry-After": []string{"soon"}},
			ok:     false,
		},
		{
			name:   "no headers",
			header: http.Header{},
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRetryAfter(tt.header)
			if ok != tt.ok {
				t.Fatalf("ParseRetryAfter ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseRetryAfter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRateLimitErrorMessage(t *testing.T) {
	e := &RateLimitError{RetryAfter: 2 * time.Second}
	if e.Error() != "completion service rate limited, retry after 2s" {
		t.Errorf("unexpected message: %q", e.Error())
	}

	e = &RateLimitError{}
	if e.Error() != "completion service rate limited" {
		t.Errorf("unexpected message: %q", e.Error())
	}
}
