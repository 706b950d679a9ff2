package limited

import (
	"math"
	"sync"
	"time"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/config"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// UsagePlanLimiter meters requests against one usage plan.
//
// A zero rate disables throttling; a zero quota limit disables the quota.
type UsagePlanLimiter struct {
	clock Clock

	rate   float64
	burst  int
	limit  int
	period config.QuotaPeriod

	mu      sync.Mutex
	buckets map[RateLimitKey]*bucket
	usage   map[RateLimitKey]map[string]int
}

type bucket struct {
	tokens float64
	last   time.Time
}

func NewUsagePlanLimiter(plan config.UsagePlanConfig, clock Clock) (*UsagePlanLimiter, error) {
	if plan.Throttle.RateLimit < 0 || plan.Throttle.BurstLimit < 0 || plan.Quota.Limit < 0 {
		return nil, apigwmock.NewError(apigwmock.ErrorCodeConfigInvalid, "usage plan limits must not be negative")
	}
	if plan.Quota.Limit > 0 {
		if _, err := QuotaWindow(time.Time{}, plan.Quota.Period); err != nil {
			return nil, apigwmock.WrapError(apigwmock.ErrorCodeConfigInvalid, "usage plan quota", err)
		}
	}
	if clock == nil {
		clock = realClock{}
	}
	return &UsagePlanLimiter{
		clock:   clock,
		rate:    plan.Throttle.RateLimit,
		burst:   plan.Throttle.BurstLimit,
		limit:   plan.Quota.Limit,
		period:  plan.Quota.Period,
		buckets: map[RateLimitKey]*bucket{},
		usage:   map[RateLimitKey]map[string]int{},
	}, nil
}

// CheckAndIncrement throttles first, then counts the request against the quota.
// Throttled requests do not consume quota.
func (l *UsagePlanLimiter) CheckAndIncrement(key RateLimitKey) *LimitDecision {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if retry, ok := l.takeToken(key, now); !ok {
		return &LimitDecision{
			Allowed:    false,
			Reason:     ReasonThrottled,
			Limit:      l.burst,
			ResetsAt:   now.Add(retry),
			RetryAfter: &retry,
		}
	}

	if l.limit <= 0 {
		return &LimitDecision{Allowed: true}
	}

	window, _ := QuotaWindow(now, l.period)
	counts := l.usage[key]
	if counts == nil {
		counts = map[string]int{}
		l.usage[key] = counts
	}
	for k := range counts {
		if k != window.Key {
			delete(counts, k)
		}
	}

	current := counts[window.Key]
	if current >= l.limit {
		l.refundToken(key)
		retry := window.End.Sub(now)
		return &LimitDecision{
			Allowed:      false,
			Reason:       ReasonQuotaExceeded,
			CurrentCount: current,
			Limit:        l.limit,
			ResetsAt:     window.End,
			RetryAfter:   &retry,
		}
	}

	counts[window.Key] = current + 1
	return &LimitDecision{
		Allowed:      true,
		CurrentCount: current + 1,
		Limit:        l.limit,
		ResetsAt:     window.End,
	}
}

// GetUsage returns the quota usage of key in the current period.
func (l *UsagePlanLimiter) GetUsage(key RateLimitKey) *UsageStats {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	stats := &UsageStats{Identifier: key.Identifier, Resource: key.Resource}
	window, err := QuotaWindow(now, l.period)
	if err != nil {
		stats.Quota = UsageWindow{Count: sum(l.usage[key]), Limit: l.limit}
		return stats
	}
	stats.Quota = UsageWindow{
		Count:       l.usage[key][window.Key],
		Limit:       l.limit,
		WindowStart: window.Start,
		WindowEnd:   window.End,
	}
	return stats
}

func (l *UsagePlanLimiter) takeToken(key RateLimitKey, now time.Time) (time.Duration, bool) {
	if l.rate <= 0 {
		return 0, true
	}

	capacity := float64(l.burst)
	if capacity < 1 {
		capacity = 1
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, last: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(capacity, b.tokens+elapsed*l.rate)
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}
	wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
	return wait, false
}

func (l *UsagePlanLimiter) refundToken(key RateLimitKey) {
	if b, ok := l.buckets[key]; ok {
		b.tokens++
	}
}

func sum(counts map[string]int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}
