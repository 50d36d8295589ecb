package gateway

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// fakeSender records payloads and can be told to fail sends.
type fakeSender struct {
	mu       sync.Mutex
	payloads []any
	sendErr  error
	closed   bool
}

func (f *fakeSender) Send(payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeSender) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSender) received() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.payloads...)
}

func (f *fakeSender) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRegistry_RegisterUnregister(t *testing.T) {
	r := NewRegistry(testLogger())
	sender := &fakeSender{}

	id := r.Register(sender)
	if r.Count() != 1 {
		t.Fatalf("expected 1 connection, got %d", r.Count())
	}

	r.Unregister(id)
	if r.Count() != 0 {
		t.Fatalf("expected 0 connections, got %d", r.Count())
	}
	if !sender.isClosed() {
		t.Fatal("expected sender closed on unregister")
	}

	// Idempotent: a second unregister and an unknown handle are no-ops.
	r.Unregister(id)
	r.Unregister(uuid.New())
}

func TestRegistry_BroadcastAll(t *testing.T) {
	r := NewRegistry(testLogger())
	a, b := &fakeSender{}, &fakeSender{}
	r.Register(a)
	r.Register(b)

	r.Broadcast(nil, "tick")

	if len(a.received()) != 1 || len(b.received()) != 1 {
		t.Fatalf("expected both connections to receive, got %d and %d", len(a.received()), len(b.received()))
	}
}

func TestRegistry_BroadcastFiltersBySubscription(t *testing.T) {
	r := NewRegistry(testLogger())
	subscribed, other := &fakeSender{}, &fakeSender{}
	idSub := r.Register(subscribed)
	idOther := r.Register(other)

	r.SetSubscriptions(idSub, []string{"NSE:TCS", "NSE:INFY"})
	r.SetSubscriptions(idOther, []string{"NSE:RELIANCE"})

	r.Broadcast([]string{"NSE:TCS"}, "tick")

	if len(subscribed.received()) != 1 {
		t.Fatalf("expected subscribed connection to receive, got %d", len(subscribed.received()))
	}
	if len(other.received()) != 0 {
		t.Fatalf("expected unsubscribed connection to receive nothing, got %d", len(other.received()))
	}
}

func TestRegistry_BroadcastIsolatesFailures(t *testing.T) {
	r := NewRegistry(testLogger())
	dead := &fakeSender{sendErr: errors.New("broken pipe")}
	alive := &fakeSender{}

	idDead := r.Register(dead)
	idAlive := r.Register(alive)
	r.SetSubscriptions(idDead, []string{"NSE:TCS"})
	r.SetSubscriptions(idAlive, []string{"NSE:TCS"})

	r.Broadcast([]string{"NSE:TCS"}, "tick")

	if len(alive.received()) != 1 {
		t.Fatal("expected healthy connection to receive despite sibling failure")
	}
	if r.Count() != 1 {
		t.Fatalf("expected failed connection dropped, count=%d", r.Count())
	}
	if !dead.isClosed() {
		t.Fatal("expected failed connection to be closed")
	}

	// The dropped connection no longer receives anything.
	r.Broadcast([]string{"NSE:TCS"}, "tick2")
	if len(dead.received()) != 0 {
		t.Fatal("dropped connection must not receive further broadcasts")
	}
}

func TestRegistry_SetSubscriptionsReplaces(t *testing.T) {
	r := NewRegistry(testLogger())
	s := &fakeSender{}
	id := r.Register(s)

	r.SetSubscriptions(id, []string{"NSE:TCS"})
	r.SetSubscriptions(id, []string{"NSE:INFY"})

	r.Broadcast([]string{"NSE:TCS"}, "tick")
	if len(s.received()) != 0 {
		t.Fatal("replaced subscription must not match old symbol")
	}

	r.Broadcast([]string{"NSE:INFY"}, "tick")
	if len(s.received()) != 1 {
		t.Fatal("expected delivery on current subscription")
	}

	subs := r.Subscriptions(id)
	if len(subs) != 1 || subs[0] != "NSE:INFY" {
		t.Fatalf("expected [NSE:INFY], got %v", subs)
	}
}
