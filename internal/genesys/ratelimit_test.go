package genesys

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCaptureRateLimit_ResetEncodings(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	resetAt := now.Add(45 * time.Second)

	tests := []struct {
		name  string
		reset string
	}{
		{"millisecond epoch", strconv.FormatInt(resetAt.UnixMilli(), 10)},
		{"second epoch", strconv.FormatInt(resetAt.Unix(), 10)},
		{"relative seconds", "45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set(headerRateLimit, "180")
			h.Set(headerRateRemaining, "12")
			h.Set(headerRateReset, tt.reset)

			state := captureRateLimit(RateLimitState{}, h, now)

			assert.Equal(t, 180, state.Limit)
			assert.Equal(t, 12, state.Remaining)
			assert.True(t, state.ResetAt.Equal(resetAt), "got %v, want %v", state.ResetAt, resetAt)
			assert.True(t, state.Captured())
		})
	}
}

func TestCaptureRateLimit_NoHeadersKeepsPrevious(t *testing.T) {
	now := time.Now()
	prev := RateLimitState{Limit: 180, Remaining: 5, ResetAt: now.Add(time.Minute), CapturedAt: now}

	state := captureRateLimit(prev, http.Header{}, now.Add(time.Second))

	assert.Equal(t, prev, state)
}

func TestCaptureRateLimit_PartialHeaders(t *testing.T) {
	now := time.Now()
	h := http.Header{}
	h.Set(headerRateRemaining, "3")

	state := captureRateLimit(RateLimitState{Limit: 180, Remaining: 99}, h, now)

	assert.Equal(t, Unknown, state.Limit)
	assert.Equal(t, 3, state.Remaining)
	assert.True(t, state.ResetAt.IsZero())
}

func TestCaptureRateLimit_FloatEncodedValues(t *testing.T) {
	now := time.Now()
	h := http.Header{}
	h.Set(headerRateLimit, "180.0")
	h.Set(headerRateRemaining, "7.0")

	state := captureRateLimit(RateLimitState{}, h, now)

	assert.Equal(t, 180, state.Limit)
	assert.Equal(t, 7, state.Remaining)
}

func TestThrottleDelay(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		state RateLimitState
		min   time.Duration
		max   time.Duration
	}{
		{
			name:  "no snapshot",
			state: RateLimitState{Limit: Unknown, Remaining: Unknown},
		},
		{
			name:  "budget healthy",
			state: RateLimitState{Limit: 180, Remaining: 50, ResetAt: now.Add(30 * time.Second), CapturedAt: now},
		},
		{
			name:  "remaining unknown",
			state: RateLimitState{Limit: 180, Remaining: Unknown, ResetAt: now.Add(30 * time.Second), CapturedAt: now},
		},
		{
			name:  "low budget no reset instant",
			state: RateLimitState{Limit: 180, Remaining: 1, CapturedAt: now},
		},
		{
			name:  "low budget reset already passed",
			state: RateLimitState{Limit: 180, Remaining: 0, ResetAt: now.Add(-time.Second), CapturedAt: now},
		},
		{
			name:  "low budget waits for reset plus margin",
			state: RateLimitState{Limit: 180, Remaining: 2, ResetAt: now.Add(10 * time.Second), CapturedAt: now},
			min:   10*time.Second + throttleMargin,
			max:   10*time.Second + throttleMargin,
		},
		{
			name:  "wait clamped to maximum",
			state: RateLimitState{Limit: 180, Remaining: 0, ResetAt: now.Add(5 * time.Minute), CapturedAt: now},
			min:   throttleMaxWait,
			max:   throttleMaxWait,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.state.throttleDelay(now)

			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}
