package service

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// Backoff kinds.
const (
	BackoffNone        = "none"
	BackoffConstant    = "constant"
	BackoffExponential = "exponential"
)

// RetryPolicy bounds the attempts spent on one record.
type RetryPolicy struct {
	// MaxAttempts counts every call, the first included.
	MaxAttempts int
	// Backoff is one of BackoffNone, BackoffConstant or BackoffExponential.
	Backoff string
	// BaseDelay is the constant delay or the exponential base.
	BaseDelay time.Duration
}

// DefaultRetryPolicy matches the configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 10, Backoff: BackoffNone, BaseDelay: 2 * time.Second}
}

// backoff builds a fresh go-retry Backoff. Backoffs are stateful, so each
// record gets its own.
func (p RetryPolicy) backoff() retry.Backoff {
	var b retry.Backoff
	switch {
	case p.Backoff == BackoffConstant && p.BaseDelay > 0:
		b = retry.NewConstant(p.BaseDelay)
	case p.Backoff == BackoffExponential && p.BaseDelay > 0:
		b = retry.NewExponential(p.BaseDelay)
	default:
		b = retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	}

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return retry.WithMaxRetries(uint64(attempts-1), b)
}
