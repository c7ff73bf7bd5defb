package ai

import (
	"context"
	"errors"
	"testing"
)

func TestClassifyKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"api key", errors.New("API key not valid. Please pass a valid API key"), KindAuth},
		{"permission", errors.New("rpc error: code = PermissionDenied desc = permission denied"), KindAuth},
		{"quota", errors.New("googleapi: Error 429: Quota exceeded"), KindRateLimit},
		{"resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = resource exhausted"), KindRateLimit},
		{"timeout text", errors.New("request timed out"), KindTimeout},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"refused", errors.New("dial tcp 127.0.0.1:443: connection refused"), KindConnectivity},
		{"no host", errors.New("dial tcp: lookup generativelanguage.googleapis.com: no such host"), KindConnectivity},
		{"unknown", errors.New("something odd happened"), KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			se := Classify(ServiceGeneration, tc.err)
			if se.Kind != tc.want {
				t.Errorf("Classify(%q): kind = %s, want %s", tc.err, se.Kind, tc.want)
			}
			if se.Service != ServiceGeneration {
				t.Errorf("service = %s, want %s", se.Service, ServiceGeneration)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if Classify(ServiceEmbedding, nil) != nil {
		t.Fatal("Classify(nil) should return nil")
	}
}

func TestClassifyPreservesExistingServiceError(t *testing.T) {
	orig := &ServiceError{Service: ServiceEmbedding, Kind: KindAuth, Err: errors.New("bad key")}
	got := Classify(ServiceGeneration, orig)
	if got != orig {
		t.Fatal("existing ServiceError should pass through unchanged")
	}
}

func TestRetryable(t *testing.T) {
	retryable := []Kind{KindRateLimit, KindTimeout, KindConnectivity}
	for _, k := range retryable {
		se := &ServiceError{Service: ServiceGeneration, Kind: k, Err: errors.New("x")}
		if !se.Retryable() {
			t.Errorf("kind %s should be retryable", k)
		}
	}
	for _, k := range []Kind{KindAuth, KindUnknown} {
		se := &ServiceError{Service: ServiceGeneration, Kind: k, Err: errors.New("x")}
		if se.Retryable() {
			t.Errorf("kind %s should not be retryable", k)
		}
	}
}

func TestServiceErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	se := &ServiceError{Service: ServiceEmbedding, Kind: KindUnknown, Err: inner}
	if !errors.Is(se, inner) {
		t.Fatal("errors.Is should reach the wrapped error")
	}
}
