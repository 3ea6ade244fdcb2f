package luftmetrics

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is the two-tier schedule for poll failures: a short delay
// after the first failure, a long one for every consecutive failure after
// it. Reset on the first success.
//
// It satisfies backoff.BackOff so it can slot in wherever the exponential
// policies do, but NextBackOff never returns backoff.Stop: polling retries
// forever.
type RetryPolicy struct {
	Short time.Duration
	Long  time.Duration

	failures int
}

var _ backoff.BackOff = (*RetryPolicy)(nil)

func NewRetryPolicy(short, long time.Duration) *RetryPolicy {
	return &RetryPolicy{Short: short, Long: long}
}

func (p *RetryPolicy) NextBackOff() time.Duration {
	p.failures++
	if p.failures > 1 {
		return p.Long
	}
	return p.Short
}

func (p *RetryPolicy) Reset() { p.failures = 0 }
