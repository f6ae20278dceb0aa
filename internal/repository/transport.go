package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fakhrymubarak/weather-compare/internal/config"
)

// maxResponseBytes caps how much of an archive body is read.
const maxResponseBytes = 8 << 20

// rawResponse is what a single attempt yields when the archive answered
// with a status that must not be retried.
type rawResponse struct {
	status int
	body   []byte
}

// breakerTripRequests is how many fully failed requests in a row open the
// breaker. Each request makes up to retries+1 attempts.
const breakerTripRequests = 6

func newArchiveBreaker(retries int) *gobreaker.CircuitBreaker {
	threshold := uint32(breakerTripRequests * (retries + 1))
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "open-meteo-archive",
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			config.GetLogger().Warnw("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// backoffDelay returns factor * 2^attempt, capped at limit when limit > 0.
func backoffDelay(factor, limit time.Duration, attempt int) time.Duration {
	delay := factor * time.Duration(math.Pow(2, float64(attempt)))
	if limit > 0 && delay > limit {
		delay = limit
	}
	return delay
}

// fetchWithRetry performs the GET with exponential backoff on network
// errors, 429 and 5xx. Other statuses are returned to the caller as errors
// without retrying.
func (r *archiveRepository) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var attempt int
	for {
		if err := ctx.Err(); err != nil {
			return nil, &RemoteFetchError{Err: err}
		}

		body, err := r.attemptOnce(ctx, url)
		if err == nil {
			return body, nil
		}

		var rfe *RemoteFetchError
		if !errors.As(err, &rfe) || !rfe.Retryable() || attempt >= r.cfg.Retries {
			return nil, err
		}

		delay := backoffDelay(r.cfg.BackoffFactor, r.cfg.MaxBackoff, attempt)
		config.GetLogger().Warnw("Archive request failed, retrying",
			"attempt", attempt+1, "max_retries", r.cfg.Retries, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &RemoteFetchError{Err: ctx.Err()}
		case <-timer.C:
		}
		attempt++
	}
}

func (r *archiveRepository) attemptOnce(ctx context.Context, url string) ([]byte, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, &RemoteFetchError{Err: err}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, &RemoteFetchError{Err: err, retryable: ctx.Err() == nil}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, &RemoteFetchError{StatusCode: resp.StatusCode, Err: err, retryable: true}
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &RemoteFetchError{
				StatusCode: resp.StatusCode,
				Reason:     upstreamReason(body),
				retryable:  true,
			}
		}
		return rawResponse{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &RemoteFetchError{Err: fmt.Errorf("%w: %v", ErrCircuitOpen, err)}
		}
		return nil, err
	}

	raw, ok := result.(rawResponse)
	if !ok {
		return nil, &RemoteFetchError{Err: fmt.Errorf("unexpected result type %T from circuit breaker", result)}
	}
	if raw.status < 200 || raw.status >= 300 {
		return nil, &RemoteFetchError{StatusCode: raw.status, Reason: upstreamReason(raw.body)}
	}
	return raw.body, nil
}

// upstreamReason extracts the "reason" field of an archive error body.
func upstreamReason(body []byte) string {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Reason
}
