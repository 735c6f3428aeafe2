// internal/github/ratelimit.go
package github

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"

	custom_errors "starred-digest/internal/errors"
)

const (
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
	headerRetryAfter    = "Retry-After"
)

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeNotModified
	outcomeRateLimited
	outcomeServerError
	outcomeFatal
)

// attempt is the classified result of one HTTP round trip.
type attempt struct {
	outcome    outcome
	status     int
	limit      int
	remaining  int
	reset      time.Time     // zero when unknown
	retryAfter time.Duration // zero when unknown
}

func classify(resp *github.Response, err error) attempt {
	a := attempt{outcome: outcomeFatal}
	if resp != nil && resp.Response != nil {
		a.status = resp.StatusCode
	}

	if err == nil {
		a.outcome = outcomeSuccess
		return a
	}
	if a.status == http.StatusNotModified {
		a.outcome = outcomeNotModified
		return a
	}

	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		a.outcome = outcomeRateLimited
		a.limit = rle.Rate.Limit
		a.remaining = rle.Rate.Remaining
		a.reset = rle.Rate.Reset.Time
		return a
	}

	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		a.outcome = outcomeRateLimited
		if abuse.RetryAfter != nil {
			a.retryAfter = *abuse.RetryAfter
		}
		if resp != nil {
			a.fillFromHeaders(resp.Header)
		}
		return a
	}

	mentionsRateLimit := strings.Contains(strings.ToLower(err.Error()), "rate limit")
	if resp != nil && resp.Response != nil {
		switch {
		case a.status == http.StatusTooManyRequests,
			a.status == http.StatusForbidden && (resp.Header.Get(headerRateRemaining) == "0" || mentionsRateLimit):
			a.outcome = outcomeRateLimited
			a.fillFromHeaders(resp.Header)
			return a
		case a.status >= http.StatusInternalServerError:
			a.outcome = outcomeServerError
			return a
		}
		return a
	}

	// No response at all, but the transport error itself says we were throttled.
	if mentionsRateLimit {
		a.outcome = outcomeRateLimited
	}
	return a
}

func (a *attempt) fillFromHeaders(h http.Header) {
	if v, err := strconv.Atoi(h.Get(headerRateLimit)); err == nil {
		a.limit = v
	}
	if v, err := strconv.Atoi(h.Get(headerRateRemaining)); err == nil {
		a.remaining = v
	}
	if v, err := strconv.ParseInt(h.Get(headerRateReset), 10, 64); err == nil && v > 0 {
		a.reset = time.Unix(v, 0)
	}
	if a.retryAfter == 0 {
		if v, err := strconv.Atoi(h.Get(headerRetryAfter)); err == nil && v > 0 {
			a.retryAfter = time.Duration(v) * time.Second
		}
	}
}

// wait is the backoff before retrying a rate-limited request.
func (a attempt) wait(now time.Time) time.Duration {
	switch {
	case a.retryAfter > 0:
		return a.retryAfter + rateLimitBuffer
	case !a.reset.IsZero():
		d := a.reset.Sub(now)
		if d < 0 {
			d = 0
		}
		return d + rateLimitBuffer
	default:
		return fallbackRateLimitWait
	}
}

func (a attempt) rateLimitError(err error) *custom_errors.RateLimitError {
	return &custom_errors.RateLimitError{
		Limit:     a.limit,
		Remaining: a.remaining,
		Reset:     a.reset,
		Err:       err,
	}
}
