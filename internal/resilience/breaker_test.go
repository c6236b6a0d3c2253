package resilience

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"
)

var errUnavailable = errors.New("nats: no servers available for connection")

func trip(b *Breaker, n int) {
	for range n {
		_ = b.Execute(func() error { return errUnavailable })
	}
}

func TestClosedPassesResult(t *testing.T) {
	b := NewBreaker(3, time.Second)

	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}

	if err := b.Execute(func() error { return errUnavailable }); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected fn error to pass through, got %v", err)
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)
	trip(b, 3)

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("fn must not run while open")
	}
	if !b.Open() {
		t.Error("expected Open to report true")
	}
}

func TestExpectedErrorsDoNotTrip(t *testing.T) {
	b := NewBreaker(2, time.Second, fs.ErrNotExist)

	missing := fmt.Errorf("%w: bucket not found", fs.ErrNotExist)
	for range 5 {
		if err := b.Execute(func() error { return missing }); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("expected ErrNotExist to pass through, got %v", err)
		}
	}
	if b.Open() {
		t.Fatal("expected errors to leave the circuit closed")
	}
}

func TestExpectedErrorResetsFailures(t *testing.T) {
	b := NewBreaker(2, time.Second, fs.ErrNotExist)

	trip(b, 1)
	_ = b.Execute(func() error { return fs.ErrNotExist })
	trip(b, 1)

	if b.Open() {
		t.Fatal("expected an answered call to reset the failure count")
	}
}

func TestHalfOpenTrial(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	trip(b, 2)
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	now = now.Add(2 * time.Second)
	if b.Open() {
		t.Fatal("expected the timeout to end rejection")
	}

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected trial call to run, got %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != stateClosed {
		t.Fatalf("expected closed after successful trial call, got %d", b.state)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	trip(b, 2)
	now = now.Add(2 * time.Second)
	trip(b, 1)

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after failed trial call, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Second)

	trip(b, 2)
	_ = b.Execute(func() error { return nil })
	trip(b, 2)

	if b.Open() {
		t.Fatal("expected circuit to stay closed")
	}
}
