// internal/github/client.go
package github

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "starred-digest/internal/errors"
)

const (
	maxPerPage            = 100
	maxRetries            = 3
	serverErrorBackoff    = 2 * time.Second
	rateLimitBuffer       = 5 * time.Second
	fallbackRateLimitWait = 60 * time.Second
)

// RateLimitPolicy decides what the client does when the API quota is exhausted.
type RateLimitPolicy string

const (
	// RateLimitRaise returns *errors.RateLimitError immediately.
	RateLimitRaise RateLimitPolicy = "raise"
	// RateLimitWait sleeps until the quota resets and retries the request.
	RateLimitWait RateLimitPolicy = "wait"
)

// Options tunes fetch behaviour.
type Options struct {
	RateLimitPolicy RateLimitPolicy
	ExcludeBots     bool
	DefaultLookback time.Duration // lower bound for repositories without a marker
}

// Client is a wrapper around the go-github client.
// A single instance, and therefore a single HTTP transport, serves every call of a run.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
	opts   Options
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewClient creates and configures a new Client instance.
// The provided token is used to create an authenticated http.Client.
func NewClient(token string, logger *slog.Logger, opts Options) *Client {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &Client{
		gh:     github.NewClient(tc),
		logger: logger,
		opts:   opts,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// LogRateLimit logs the remaining core API quota.
func (c *Client) LogRateLimit(ctx context.Context) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		c.logger.Warn("Failed to fetch rate limit", "error", err)
		return
	}
	core := limits.GetCore()
	c.logger.Info("GitHub API rate limit",
		"limit", core.Limit,
		"remaining", core.Remaining,
		"reset", core.Reset.Time.Format(time.RFC3339))
}

// do sends req and decodes the body into v, driving one request through
// attempt -> success | not modified | rate limited -> backoff -> attempt |
// server error -> backoff -> attempt | fatal.
// A 304 is returned as a response without error. While a known limit is in force
// go-github answers locally with a *github.RateLimitError, which takes the same path.
func (c *Client) do(ctx context.Context, op string, req *http.Request, v interface{}) (*github.Response, error) {
	serverErrors := 0
	for {
		resp, err := c.gh.Do(ctx, req, v)
		a := classify(resp, err)

		switch a.outcome {
		case outcomeSuccess, outcomeNotModified:
			return resp, nil

		case outcomeRateLimited:
			if c.opts.RateLimitPolicy != RateLimitWait {
				return resp, a.rateLimitError(err)
			}
			wait := a.wait(c.now())
			c.logger.Warn("Rate limited, waiting for quota reset", "op", op, "wait", wait.String(), "remaining", a.remaining)
			if err := c.sleep(ctx, wait); err != nil {
				return resp, err
			}

		case outcomeServerError:
			serverErrors++
			if serverErrors >= maxRetries {
				return resp, &custom_errors.TransportError{Op: op, StatusCode: a.status, Err: err}
			}
			backoff := time.Duration(serverErrors) * serverErrorBackoff
			c.logger.Warn("Server error, retrying", "op", op, "status", a.status, "attempt", serverErrors, "backoff", backoff.String())
			if err := c.sleep(ctx, backoff); err != nil {
				return resp, err
			}

		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return resp, ctxErr
			}
			return resp, &custom_errors.TransportError{Op: op, StatusCode: a.status, Err: err}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
