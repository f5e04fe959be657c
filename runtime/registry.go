// Package runtime holds the in-process shared state of the messenger: the
// connection registry and the per-chat serialization locks. No business
// logic lives here.
package runtime

import (
	"sync"

	"messenger/contract"

	"github.com/google/uuid"
)

type connection struct {
	userID uuid.UUID
	sink   contract.EventSink
}

// Registry maps authenticated users to their live connection sinks.
// Lifecycle is process uptime; nothing is persisted. It performs a two-step
// lookup: user id -> connection ids -> sinks, so a user connected from
// several devices is fanned out to each one independently.
//
// Registry is safe for concurrent use; callers never lock around it.
type Registry struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]connection
	userConns   map[uuid.UUID]map[uuid.UUID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[uuid.UUID]connection),
		userConns:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// Register attaches a live connection to a user. Multiple simultaneous
// connections per user are normal.
func (r *Registry) Register(userID uuid.UUID, connID uuid.UUID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.connections[connID] = connection{userID: userID, sink: sink}

	if _, ok := r.userConns[userID]; !ok {
		r.userConns[userID] = make(map[uuid.UUID]struct{})
	}
	r.userConns[userID][connID] = struct{}{}
}

// Unregister removes one connection, graceful or abrupt alike. The transport
// calls this from its disconnect path. Empty user entries are dropped so the
// maps don't leak over time.
func (r *Registry) Unregister(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return
	}
	delete(r.connections, connID)

	if conns, ok := r.userConns[conn.userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.userConns, conn.userID)
		}
	}
}

// SinksFor resolves every live sink of the given users. Offline users simply
// contribute nothing; the result is never an error.
func (r *Registry) SinksFor(userIDs ...uuid.UUID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for _, userID := range userIDs {
		for connID := range r.userConns[userID] {
			if conn, ok := r.connections[connID]; ok {
				sinks = append(sinks, conn.sink)
			}
		}
	}
	return sinks
}
