package gateway

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// connID is the opaque handle identifying one registered connection.
type connID = uuid.UUID

// Sender is the outbound half of a client connection as seen by the registry.
type Sender interface {
	Send(payload any) error
	Close()
}

// Registry tracks live client connections and their subscription lists, and
// fans broadcasts out to them. A send failure drops only the failing
// connection; delivery to siblings continues.
type Registry struct {
	logger *logrus.Logger

	mu    sync.RWMutex
	conns map[uuid.UUID]*registration
}

type registration struct {
	sender        Sender
	subscriptions map[string]struct{}
}

func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		logger: logger,
		conns:  make(map[uuid.UUID]*registration),
	}
}

// Register adds a connection and returns its handle.
func (r *Registry) Register(sender Sender) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.conns[id] = &registration{
		sender:        sender,
		subscriptions: make(map[string]struct{}),
	}
	r.mu.Unlock()

	r.logger.WithField("conn_id", id).Debug("Connection registered")
	return id
}

// Unregister removes a connection and closes its sender. Idempotent: a handle
// already removed (or never registered) is a no-op.
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	reg, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()

	if ok {
		reg.sender.Close()
		r.logger.WithField("conn_id", id).Debug("Connection unregistered")
	}
}

// SetSubscriptions replaces the connection's subscription list.
func (r *Registry) SetSubscriptions(id uuid.UUID, symbols []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.conns[id]
	if !ok {
		return
	}
	reg.subscriptions = make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		reg.subscriptions[s] = struct{}{}
	}
}

// Subscriptions returns the connection's current subscription list.
func (r *Registry) Subscriptions(id uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.conns[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(reg.subscriptions))
	for s := range reg.subscriptions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast delivers payload to every connection subscribed to at least one
// of symbols; an empty symbols slice targets all connections. Failed sends
// are logged and the offending connection is dropped without aborting the
// rest of the fan-out.
func (r *Registry) Broadcast(symbols []string, payload any) {
	type target struct {
		id     uuid.UUID
		sender Sender
	}

	r.mu.RLock()
	targets := make([]target, 0, len(r.conns))
	for id, reg := range r.conns {
		if len(symbols) == 0 || subscribedToAny(reg.subscriptions, symbols) {
			targets = append(targets, target{id: id, sender: reg.sender})
		}
	}
	r.mu.RUnlock()

	for _, t := range targets {
		if err := t.sender.Send(payload); err != nil {
			r.logger.WithError(err).WithField("conn_id", t.id).Warn("Dropping unreachable connection")
			r.Unregister(t.id)
		}
	}
}

func subscribedToAny(subs map[string]struct{}, symbols []string) bool {
	for _, s := range symbols {
		if _, ok := subs[s]; ok {
			return true
		}
	}
	return false
}
