// internal/github/client_test.go
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "starred-digest/internal/errors"
	"starred-digest/internal/model"
)

// fakeClock drives now/sleep deterministically and records every backoff.
type fakeClock struct {
	current time.Time
	slept   []time.Duration
}

func (f *fakeClock) now() time.Time { return f.current }

func (f *fakeClock) sleep(_ context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	f.current = f.current.Add(d)
	return nil
}

// setupTestClient creates a httptest server and a github client pointing to it.
func setupTestClient(t *testing.T, handler http.Handler, opts Options) (*Client, *fakeClock) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := NewClient("", logger, opts)

	// Override the client's internal http client to point to our test server.
	testClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	testClient.BaseURL = baseURL
	client.gh = testClient

	clock := &fakeClock{current: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)}
	client.now = clock.now
	client.sleep = clock.sleep

	return client, clock
}

func TestClient_Do_RateLimit(t *testing.T) {
	repo := model.RepoRef{ID: "test/repo"}
	marker := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	rateLimited := func(w http.ResponseWriter, reset time.Time) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset.Unix()))
		w.WriteHeader(http.StatusForbidden) // RateLimitError is a 403
		fmt.Fprintln(w, `{"message": "API rate limit exceeded for user ID 1."}`)
	}

	t.Run("raise policy fails immediately with quota metadata", func(t *testing.T) {
		var requestCount int32
		reset := time.Date(2024, 6, 10, 12, 30, 0, 0, time.UTC)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			rateLimited(w, reset)
		})
		client, clock := setupTestClient(t, handler, Options{RateLimitPolicy: RateLimitRaise})

		_, err := client.FetchCommitDelta(context.Background(), repo, marker)

		var rle *custom_errors.RateLimitError
		require.ErrorAs(t, err, &rle)
		assert.Equal(t, 0, rle.Remaining)
		assert.Equal(t, 5000, rle.Limit)
		assert.True(t, reset.Equal(rle.Reset))
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
		assert.Empty(t, clock.slept)
	})

	t.Run("raise policy answers from the recorded limit without another request", func(t *testing.T) {
		var requestCount int32
		reset := time.Now().Add(time.Hour).Truncate(time.Second)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			rateLimited(w, reset)
		})
		client, clock := setupTestClient(t, handler, Options{RateLimitPolicy: RateLimitRaise})

		_, err := client.FetchCommitDelta(context.Background(), repo, marker)
		require.Error(t, err)
		_, err = client.FetchCommitDelta(context.Background(), model.RepoRef{ID: "test/other"}, marker)

		var rle *custom_errors.RateLimitError
		require.ErrorAs(t, err, &rle)
		assert.Equal(t, 0, rle.Remaining)
		assert.True(t, reset.Equal(rle.Reset))
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
		assert.Empty(t, clock.slept)
	})

	t.Run("wait policy sleeps until reset plus buffer and retries", func(t *testing.T) {
		var requestCount int32
		reset := time.Date(2024, 6, 10, 12, 0, 30, 0, time.UTC)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&requestCount, 1) == 1 {
				rateLimited(w, reset)
				return
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `[]`)
		})
		client, clock := setupTestClient(t, handler, Options{RateLimitPolicy: RateLimitWait})

		delta, err := client.FetchCommitDelta(context.Background(), repo, marker)

		require.NoError(t, err)
		assert.Empty(t, delta.Commits)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount))
		assert.Equal(t, []time.Duration{30*time.Second + rateLimitBuffer}, clock.slept)
	})

	t.Run("wait policy honours 429 with Retry-After", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&requestCount, 1) == 1 {
				w.Header().Set("Retry-After", "7")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintln(w, `{"message": "slow down"}`)
				return
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `[]`)
		})
		client, clock := setupTestClient(t, handler, Options{RateLimitPolicy: RateLimitWait})

		_, err := client.FetchCommitDelta(context.Background(), repo, marker)

		require.NoError(t, err)
		assert.Equal(t, []time.Duration{7*time.Second + rateLimitBuffer}, clock.slept)
	})

	t.Run("wait policy falls back to fixed wait without metadata", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&requestCount, 1) == 1 {
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprintln(w, `{"message": "You have exceeded a secondary rate limit."}`)
				return
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `[]`)
		})
		client, clock := setupTestClient(t, handler, Options{RateLimitPolicy: RateLimitWait})

		_, err := client.FetchCommitDelta(context.Background(), repo, marker)

		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount))
		assert.Equal(t, []time.Duration{fallbackRateLimitWait}, clock.slept)
	})
}

func TestClient_Do_TransportErrors(t *testing.T) {
	repo := model.RepoRef{ID: "test/repo"}

	t.Run("retries on 503 server error and succeeds", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&requestCount, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable) // Fail first time
				return
			}
			w.WriteHeader(http.StatusOK) // Succeed second time
			fmt.Fprintln(w, `[]`)
		})
		client, clock := setupTestClient(t, handler, Options{})

		_, err := client.FetchCommitDelta(context.Background(), repo, time.Time{})

		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount), "should have made two requests")
		assert.Equal(t, []time.Duration{serverErrorBackoff}, clock.slept)
	})

	t.Run("fails after max retries on persistent server error", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusInternalServerError)
		})
		client, _ := setupTestClient(t, handler, Options{})

		_, err := client.FetchCommitDelta(context.Background(), repo, time.Time{})

		require.Error(t, err)
		var te *custom_errors.TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
		var ghErr *github.ErrorResponse
		assert.ErrorAs(t, err, &ghErr)
		assert.Equal(t, int32(maxRetries), atomic.LoadInt32(&requestCount))
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"message": "Not Found"}`)
		})
		client, _ := setupTestClient(t, handler, Options{})

		_, err := client.FetchCommitDelta(context.Background(), repo, time.Time{})

		var te *custom_errors.TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusNotFound, te.StatusCode)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
	})
}

func TestClassify(t *testing.T) {
	t.Run("transport error mentioning rate limit", func(t *testing.T) {
		a := classify(nil, fmt.Errorf("secondary rate limit hit"))
		assert.Equal(t, outcomeRateLimited, a.outcome)
		assert.Equal(t, fallbackRateLimitWait, a.wait(time.Now()))
	})

	t.Run("plain transport error is fatal", func(t *testing.T) {
		a := classify(nil, fmt.Errorf("connection reset by peer"))
		assert.Equal(t, outcomeFatal, a.outcome)
	})

	t.Run("past reset waits only the buffer", func(t *testing.T) {
		now := time.Now()
		a := attempt{reset: now.Add(-time.Minute)}
		assert.Equal(t, rateLimitBuffer, a.wait(now))
	})
}
