package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	errs  []error
	calls int
}

func (s *scriptedClient) Complete(context.Context, Request) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return "ok", nil
}

func TestWithRetry_SingleAttemptIsPassthrough(t *testing.T) {
	inner := &scriptedClient{}
	assert.Same(t, inner, WithRetry(inner, 1, time.Millisecond, time.Millisecond))
}

func TestWithRetry_RetriesRetryableKinds(t *testing.T) {
	inner := &scriptedClient{errs: []error{
		&ServiceError{Kind: KindRateLimit, Err: errors.New("429")},
		&ServiceError{Kind: KindUnavailable, Err: errors.New("503")},
	}}
	client := WithRetry(inner, 3, time.Millisecond, 2*time.Millisecond)

	text, err := client.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, inner.calls)
}

func TestWithRetry_StopsOnPermanentKind(t *testing.T) {
	inner := &scriptedClient{errs: []error{
		&ServiceError{Kind: KindAuth, Err: errors.New("401")},
	}}
	client := WithRetry(inner, 3, time.Millisecond, time.Millisecond)

	_, err := client.Complete(context.Background(), Request{})
	assert.Equal(t, KindAuth, KindOf(err))
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetry_GivesUpAfterAttempts(t *testing.T) {
	timeout := &ServiceError{Kind: KindTimeout, Err: context.DeadlineExceeded}
	inner := &scriptedClient{errs: []error{timeout, timeout, timeout}}
	client := WithRetry(inner, 2, time.Millisecond, time.Millisecond)

	_, err := client.Complete(context.Background(), Request{})
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Equal(t, 2, inner.calls)
}

func TestWithRetry_CanceledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inner := &scriptedClient{errs: []error{&ServiceError{Kind: KindUnavailable, Err: errors.New("503")}}}
	client := WithRetry(inner, 3, time.Hour, time.Hour)

	cancel()
	_, err := client.Complete(ctx, Request{})
	assert.Equal(t, KindCanceled, KindOf(err))
	assert.Equal(t, 1, inner.calls)
}

func TestRetryPolicyIsCapped(t *testing.T) {
	r := &retryClient{base: 100 * time.Millisecond, ceiling: 700 * time.Millisecond}
	b := r.policy()
	b.Reset()

	assert.Equal(t, 100*time.Millisecond, b.InitialInterval)
	assert.Zero(t, b.MaxElapsedTime)

	limit := time.Duration(float64(r.ceiling) * (1 + b.RandomizationFactor))
	for i := 0; i < 20; i++ {
		assert.LessOrEqual(t, int64(b.NextBackOff()), int64(limit))
	}
}

func TestWithRetry_RejectedIsNotRetried(t *testing.T) {
	inner := &scriptedClient{errs: []error{
		&ServiceError{Kind: KindRejected, Err: errors.New("400")},
	}}
	client := WithRetry(inner, 3, time.Millisecond, time.Millisecond)

	_, err := client.Complete(context.Background(), Request{})
	assert.Equal(t, KindRejected, KindOf(err))
	assert.Equal(t, 1, inner.calls)
}
