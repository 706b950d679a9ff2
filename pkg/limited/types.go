// Package limited enforces usage plan throttling and quotas in memory.
//
// It reproduces how API Gateway meters a usage plan per API key: a token
// bucket for the steady rate and burst, and a request count per calendar
// quota period.
package limited

import "time"

// RateLimitKey identifies a metered caller, typically an API key on a stage.
type RateLimitKey struct {
	Identifier string
	Resource   string
}

// Reason explains a rejection. Allowed decisions carry the zero value.
type Reason string

const (
	ReasonThrottled     Reason = "throttled"
	ReasonQuotaExceeded Reason = "quota_exceeded"
)

// LimitDecision represents the result of a rate limit check.
type LimitDecision struct {
	Allowed      bool
	Reason       Reason
	CurrentCount int
	Limit        int
	ResetsAt     time.Time
	RetryAfter   *time.Duration
}

// UsageStats is the quota usage of a key in the current period.
type UsageStats struct {
	Identifier string
	Resource   string
	Quota      UsageWindow
}

// UsageWindow represents usage within a time window.
type UsageWindow struct {
	Count       int
	Limit       int
	WindowStart time.Time
	WindowEnd   time.Time
}

// TimeWindow represents a time period for rate limiting.
type TimeWindow struct {
	Start time.Time
	End   time.Time
	Key   string
}
