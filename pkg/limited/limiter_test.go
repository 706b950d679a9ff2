package limited

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/config"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func plan(rate float64, burst, limit int, period config.QuotaPeriod) config.UsagePlanConfig {
	return config.UsagePlanConfig{
		Throttle: config.ThrottleConfig{RateLimit: rate, BurstLimit: burst},
		Quota:    config.QuotaConfig{Limit: limit, Period: period},
	}
}

func TestQuotaWindow(t *testing.T) {
	// Wednesday.
	now := time.Date(2026, 10, 14, 15, 4, 5, 0, time.UTC)

	day, err := QuotaWindow(now, config.PeriodDay)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), day.Start)
	require.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), day.End)

	week, err := QuotaWindow(now, config.PeriodWeek)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), week.Start)
	require.Equal(t, time.Sunday, week.Start.Weekday())
	require.Equal(t, 7*24*time.Hour, week.End.Sub(week.Start))

	month, err := QuotaWindow(now, config.PeriodMonth)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), month.Start)
	require.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), month.End)
	require.Equal(t, "MONTH_2026-10-01T00:00:00Z", month.Key)

	_, err = QuotaWindow(now, "YEAR")
	require.Error(t, err)
}

func TestQuotaWindow_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	now := time.Date(2026, 10, 31, 22, 0, 0, 0, loc)

	month, err := QuotaWindow(now, config.PeriodMonth)
	require.NoError(t, err)
	require.Equal(t, time.November, month.Start.Month())
}

func TestNewUsagePlanLimiter_Validates(t *testing.T) {
	_, err := NewUsagePlanLimiter(plan(-1, 0, 0, config.PeriodDay), nil)
	require.Equal(t, apigwmock.ErrorCodeConfigInvalid, apigwmock.CodeOf(err))

	_, err = NewUsagePlanLimiter(plan(1, 1, 5, "YEAR"), nil)
	require.Equal(t, apigwmock.ErrorCodeConfigInvalid, apigwmock.CodeOf(err))

	l, err := NewUsagePlanLimiter(plan(0, 0, 0, ""), nil)
	require.NoError(t, err)
	require.True(t, l.CheckAndIncrement(RateLimitKey{Identifier: "k"}).Allowed)
}

func TestUsagePlanLimiter_Throttles(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)}
	l, err := NewUsagePlanLimiter(plan(1, 2, 0, config.PeriodMonth), clock)
	require.NoError(t, err)
	key := RateLimitKey{Identifier: "k", Resource: "prod"}

	require.True(t, l.CheckAndIncrement(key).Allowed)
	require.True(t, l.CheckAndIncrement(key).Allowed)

	d := l.CheckAndIncrement(key)
	require.False(t, d.Allowed)
	require.Equal(t, ReasonThrottled, d.Reason)
	require.NotNil(t, d.RetryAfter)
	require.Equal(t, time.Second, *d.RetryAfter)

	clock.Advance(time.Second)
	require.True(t, l.CheckAndIncrement(key).Allowed)

	// Buckets are per key.
	require.True(t, l.CheckAndIncrement(RateLimitKey{Identifier: "other", Resource: "prod"}).Allowed)
}

func TestUsagePlanLimiter_EnforcesQuotaPerPeriod(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC)}
	l, err := NewUsagePlanLimiter(plan(0, 0, 2, config.PeriodDay), clock)
	require.NoError(t, err)
	key := RateLimitKey{Identifier: "k"}

	first := l.CheckAndIncrement(key)
	require.True(t, first.Allowed)
	require.Equal(t, 1, first.CurrentCount)
	require.True(t, l.CheckAndIncrement(key).Allowed)

	d := l.CheckAndIncrement(key)
	require.False(t, d.Allowed)
	require.Equal(t, ReasonQuotaExceeded, d.Reason)
	require.Equal(t, 2, d.CurrentCount)
	require.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), d.ResetsAt)
	require.Equal(t, time.Hour, *d.RetryAfter)

	usage := l.GetUsage(key)
	require.Equal(t, 2, usage.Quota.Count)
	require.Equal(t, 2, usage.Quota.Limit)

	clock.Advance(time.Hour)
	require.True(t, l.CheckAndIncrement(key).Allowed)
	require.Equal(t, 1, l.GetUsage(key).Quota.Count)
}

func TestUsagePlanLimiter_QuotaRejectionKeepsToken(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)}
	l, err := NewUsagePlanLimiter(plan(1, 1, 1, config.PeriodMonth), clock)
	require.NoError(t, err)
	key := RateLimitKey{Identifier: "k"}

	require.True(t, l.CheckAndIncrement(key).Allowed)
	clock.Advance(time.Second)

	require.Equal(t, ReasonQuotaExceeded, l.CheckAndIncrement(key).Reason)
	require.Equal(t, ReasonQuotaExceeded, l.CheckAndIncrement(key).Reason)
}

func TestUsagePlanLimiter_Concurrent(t *testing.T) {
	l, err := NewUsagePlanLimiter(plan(0, 0, 50, config.PeriodMonth), nil)
	require.NoError(t, err)
	key := RateLimitKey{Identifier: "k"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.CheckAndIncrement(key).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 50, allowed)
}
