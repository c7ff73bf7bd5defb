package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes an upstream AI service failure.
type Kind string

const (
	KindAuth         Kind = "auth"
	KindRateLimit    Kind = "rate_limit"
	KindTimeout      Kind = "timeout"
	KindConnectivity Kind = "connectivity"
	KindUnknown      Kind = "unknown"
)

// Service names used in wrapped errors.
const (
	ServiceEmbedding  = "embedding"
	ServiceGeneration = "generation"
)

// ServiceError wraps an upstream embedding or generation failure with a
// stable kind. Downstream code must branch on Kind, never on the message
// text of the wrapped error.
type ServiceError struct {
	Service string
	Kind    Kind
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service error (%s): %v", e.Service, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying. Auth and
// unknown failures are treated as configuration problems.
func (e *ServiceError) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindTimeout, KindConnectivity:
		return true
	default:
		return false
	}
}

// Classify maps an upstream error onto the taxonomy. The mapping is
// best-effort substring matching against known provider wordings and is
// confined to this boundary adapter.
func Classify(service string, err error) *ServiceError {
	if err == nil {
		return nil
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}

	kind := KindUnknown

	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	} else {
		msg := strings.ToLower(err.Error())
		switch {
		case containsAny(msg, "api key", "unauthenticated", "unauthorized", "permission denied", "401", "403"):
			kind = KindAuth
		case containsAny(msg, "quota", "rate limit", "resource exhausted", "resource_exhausted", "429", "too many requests"):
			kind = KindRateLimit
		case containsAny(msg, "deadline exceeded", "timeout", "timed out"):
			kind = KindTimeout
		case containsAny(msg, "connection refused", "no such host", "network", "unavailable", "connection reset", "503", "502"):
			kind = KindConnectivity
		}
	}

	return &ServiceError{Service: service, Kind: kind, Err: err}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
