package x

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff returns the retry policy used by the fetch and classify stages:
// exponential from base, capped at maxInterval, with at most retries extra
// attempts. Each call returns a fresh policy.
func Backoff(base, maxInterval time.Duration, retries int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = maxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithMaxRetries(b, uint64(max(retries, 0)))
}
