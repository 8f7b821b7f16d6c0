package genesys

import (
	"net/http"
	"strconv"
	"time"
)

// Rate-limit response headers set by the platform API.
const (
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
)

// Pre-throttle tuning. When the remaining request budget drops to
// throttleThreshold or below, the client sleeps until the reset instant plus
// a small margin, clamped to throttleMaxWait.
const (
	throttleThreshold = 2
	throttleMargin    = 250 * time.Millisecond
	throttleMaxWait   = 60 * time.Second
)

// Epoch magnitude thresholds for disambiguating the reset header. Values
// above msEpochFloor are millisecond epochs, values above secEpochFloor are
// second epochs, anything smaller is a relative seconds-from-now offset.
const (
	msEpochFloor  = 1_000_000_000_000
	secEpochFloor = 1_000_000_000
)

// RateLimitState is the last-observed rate-limit telemetry for one client.
// Unknown is the sentinel for fields the provider did not report. The client
// threads a single value through each call; there is no shared mutation
// beyond last-writer-wins on the client's own copy.
type RateLimitState struct {
	Limit      int
	Remaining  int
	ResetAt    time.Time // zero when the reset instant is unknown
	CapturedAt time.Time // zero value means no snapshot has been captured
}

// Unknown marks Limit or Remaining values the provider did not report.
const Unknown = -1

// Captured reports whether any rate-limit telemetry has been observed.
func (s RateLimitState) Captured() bool {
	return !s.CapturedAt.IsZero()
}

// throttleDelay returns how long to sleep before the next request, or zero
// when no preemptive throttling is needed.
func (s RateLimitState) throttleDelay(now time.Time) time.Duration {
	if !s.Captured() || s.Remaining == Unknown || s.Remaining > throttleThreshold {
		return 0
	}

	if s.ResetAt.IsZero() {
		return 0
	}

	delay := s.ResetAt.Sub(now) + throttleMargin
	if delay <= 0 {
		return 0
	}

	if delay > throttleMaxWait {
		delay = throttleMaxWait
	}

	return delay
}

// captureRateLimit parses rate-limit headers from a response. When no header
// parses, it returns the previous state unchanged so a single response with
// stripped headers does not erase known telemetry.
func captureRateLimit(prev RateLimitState, h http.Header, now time.Time) RateLimitState {
	limit, okLimit := parseHeaderInt(h.Get(headerRateLimit))
	remaining, okRemaining := parseHeaderInt(h.Get(headerRateRemaining))
	resetAt, okReset := parseResetInstant(h.Get(headerRateReset), now)

	if !okLimit && !okRemaining && !okReset {
		return prev
	}

	next := RateLimitState{Limit: Unknown, Remaining: Unknown, CapturedAt: now}
	if okLimit {
		next.Limit = limit
	}

	if okRemaining {
		next.Remaining = remaining
	}

	if okReset {
		next.ResetAt = resetAt
	}

	return next
}

// parseHeaderInt parses an integer header value, tolerating float encodings
// some edges emit.
func parseHeaderInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}

	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}

	return 0, false
}

// parseResetInstant decodes the reset header, which the provider encodes
// inconsistently: a millisecond epoch, a second epoch, or a relative
// seconds-from-now offset. Magnitude disambiguates the three.
func parseResetInstant(s string, now time.Time) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, false
	}

	switch {
	case f > msEpochFloor:
		return time.UnixMilli(int64(f)), true
	case f > secEpochFloor:
		return time.Unix(int64(f), 0), true
	default:
		if f < 0 {
			f = 0
		}

		return now.Add(time.Duration(f * float64(time.Second))), true
	}
}
