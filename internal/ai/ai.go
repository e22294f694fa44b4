package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// Request is a single completion call.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Client produces generated text from a prompt.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Kind classifies completion failures.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindCanceled    Kind = "canceled"
	KindAuth        Kind = "auth"
	KindRateLimit   Kind = "rate_limit"
	KindRejected    Kind = "rejected"
	KindMalformed   Kind = "malformed"
	KindUnavailable Kind = "unavailable"
)

// Retryable reports whether another attempt may succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindTimeout, KindRateLimit, KindUnavailable:
		return true
	default:
		return false
	}
}

// ServiceError is returned by every Client for a failed completion call.
type ServiceError struct {
	Kind Kind
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("completion %s: %v", e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a ServiceError in err's chain, or
// KindUnavailable.
func KindOf(err error) Kind {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Kind
	}
	return KindUnavailable
}

// kindFromStatus maps an HTTP status of the completion endpoint.
func kindFromStatus(code int) Kind {
	switch {
	case code == 401 || code == 403:
		return KindAuth
	case code == 408:
		return KindTimeout
	case code == 429:
		return KindRateLimit
	case code >= 500:
		return KindUnavailable
	case code >= 400:
		return KindRejected
	default:
		return KindMalformed
	}
}

// kindFromTransport classifies errors that carry no HTTP status.
func kindFromTransport(err error) (Kind, bool) {
	if errors.Is(err, context.Canceled) {
		return KindCanceled, true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout, true
	}
	return "", false
}

var statusPattern = regexp.MustCompile(`status code: (\d{3})`)

// kindFromMessage is the fallback for providers that only report the status
// code inside the error text.
func kindFromMessage(err error) Kind {
	msg := strings.ToLower(err.Error())
	if m := statusPattern.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		return kindFromStatus(code)
	}
	switch {
	case strings.Contains(msg, "unauthorized"):
		return KindAuth
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "quota"):
		return KindRateLimit
	default:
		return KindUnavailable
	}
}
