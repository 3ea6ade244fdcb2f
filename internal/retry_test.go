package luftmetrics_test

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"

	lm "github.com/hausgeist/luftmetrics/internal"
)

func TestRetryPolicy(t *testing.T) {
	p := lm.NewRetryPolicy(600*time.Second, 3600*time.Second)

	// First failure retries quickly; repeated failures settle on the long
	// tier and stay there.
	assert.Equal(t, 600*time.Second, p.NextBackOff())
	assert.Equal(t, 3600*time.Second, p.NextBackOff())
	assert.Equal(t, 3600*time.Second, p.NextBackOff())

	p.Reset()
	assert.Equal(t, 600*time.Second, p.NextBackOff())
}

func TestRetryPolicy_NeverStops(t *testing.T) {
	var p backoff.BackOff = lm.NewRetryPolicy(time.Second, time.Minute)

	for i := 0; i < 10; i++ {
		assert.NotEqual(t, backoff.Stop, p.NextBackOff())
	}
}
