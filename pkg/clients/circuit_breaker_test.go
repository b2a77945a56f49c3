package clients

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_StartsInClosedState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	if cb.State() != StateClosed {
		t.Fatalf("expected circuit breaker to start in CLOSED state, got %d", cb.State())
	}
}

func TestCircuitBreaker_DoesNotTripBelowFailureThreshold(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          100 * time.Millisecond,
	}
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 4; i++ {
		_ = cb.Call(func() error { return errors.New("fail") })
	}

	if cb.State() != StateClosed {
		t.Fatalf("expected CLOSED state below failure threshold, got %d", cb.State())
	}

	// A success in closed state resets the failure count.
	_ = cb.Call(func() error { return nil })
	_, failures, _ := cb.Stats()
	if failures != 0 {
		t.Fatalf("expected failure count reset on success, got %d", failures)
	}
}

func TestCircuitBreaker_TripsAtFailureThreshold(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	}
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 3; i++ {
		_ = cb.Call(func() error { return errors.New("fail") })
	}

	if cb.State() != StateOpen {
		t.Fatalf("expected OPEN state at failure threshold, got %d", cb.State())
	}

	// Calls are rejected while open, without invoking the function.
	called := false
	err := cb.Call(func() error { called = true; return nil })
	if err == nil {
		t.Fatal("expected rejection while circuit is open")
	}
	if called {
		t.Fatal("function must not run while circuit is open")
	}
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          10 * time.Millisecond,
	}
	cb := NewCircuitBreaker(cfg)

	_ = cb.Call(func() error { return errors.New("fail") })
	if cb.State() != StateOpen {
		t.Fatalf("expected OPEN state, got %d", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	// First probe moves the breaker to half-open; enough successes close it.
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected probe to pass after timeout: %v", err)
	}
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected second probe to pass: %v", err)
	}

	if cb.State() != StateClosed {
		t.Fatalf("expected CLOSED state after recovery, got %d", cb.State())
	}
}

func TestCircuitBreaker_ReopensOnHalfOpenFailure(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          10 * time.Millisecond,
	}
	cb := NewCircuitBreaker(cfg)

	_ = cb.Call(func() error { return errors.New("fail") })
	time.Sleep(20 * time.Millisecond)

	_ = cb.Call(func() error { return errors.New("fail again") })
	if cb.State() != StateOpen {
		t.Fatalf("expected OPEN state after half-open failure, got %d", cb.State())
	}
}
