package ai

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryClient retries retryable failures with capped exponential backoff.
type retryClient struct {
	next     Client
	attempts int
	base     time.Duration
	ceiling  time.Duration
}

// WithRetry wraps client so that timeouts, rate limits and unavailability
// are retried up to attempts times in total. attempts <= 1 returns client
// unchanged.
func WithRetry(client Client, attempts int, base, ceiling time.Duration) Client {
	if attempts <= 1 {
		return client
	}
	return &retryClient{next: client, attempts: attempts, base: base, ceiling: ceiling}
}

func (r *retryClient) Complete(ctx context.Context, req Request) (string, error) {
	var text string
	operation := func() error {
		var err error
		text, err = r.next.Complete(ctx, req)
		if err != nil && !KindOf(err).Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.policy(), uint64(r.attempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		var serviceErr *ServiceError
		if !errors.As(err, &serviceErr) {
			if kind, ok := kindFromTransport(err); ok {
				return "", &ServiceError{Kind: kind, Err: err}
			}
		}
		return "", err
	}
	return text, nil
}

func (r *retryClient) policy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.base
	b.MaxInterval = r.ceiling
	b.MaxElapsedTime = 0
	return b
}
