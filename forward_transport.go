package acctlib

import (
	"net/http"
	"strconv"
	"time"
)

// retryTransport retries forwarded calls that fail transiently: network
// errors, 429, and gateway-class 5xx statuses. Backoff doubles per attempt
// and a callee Retry-After header overrides it. Every other status passes
// through untouched; in particular callee failure verdicts must reach the
// forwarder so it can surface them as RawCallError.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	onRetry    func(attempt int, wait time.Duration, status int)
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := base.RoundTrip(attemptReq)
		if err == nil && !retryableForwardStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt >= t.maxRetries {
			return resp, err
		}

		wait := t.wait(attempt, resp)
		status := 0
		if resp != nil {
			status = resp.StatusCode
			_ = resp.Body.Close()
		}
		if t.onRetry != nil {
			t.onRetry(attempt+1, wait, status)
		}
		time.Sleep(wait)
	}
}

// wait computes the pause before the next attempt, honoring a callee
// Retry-After header in seconds or HTTP-date form.
func (t *retryTransport) wait(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if after := resp.Header.Get("Retry-After"); after != "" {
			if seconds, err := strconv.Atoi(after); err == nil {
				return clampWait(time.Duration(seconds)*time.Second, t.maxBackoff)
			}
			if at, err := http.ParseTime(after); err == nil {
				if d := time.Until(at); d > 0 {
					return clampWait(d, t.maxBackoff)
				}
				return t.backoff
			}
		}
	}
	return clampWait(t.backoff*(1<<attempt), t.maxBackoff)
}

func clampWait(d, limit time.Duration) time.Duration {
	if d > limit {
		return limit
	}
	return d
}

// retryableForwardStatus reports whether a callee status is transient. Other
// 4xx/5xx statuses are real callee verdicts, not transport conditions.
func retryableForwardStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
