package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/liliumshare/liliumshare/internal/core"
	"github.com/liliumshare/liliumshare/internal/domain"
)

// Registry maps an identity to its single live signaling connection.
// One logical session per identity: a new connection replaces any prior one.
// The registry never closes connections itself; Register hands the superseded
// connection back so the caller can shut it down.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.Identity]core.SignalConnection
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[domain.Identity]core.SignalConnection),
	}
}

// Register installs conn as the identity's live connection and returns the
// superseded one, if any. Always succeeds.
func (r *Registry) Register(id domain.Identity, conn core.SignalConnection) core.SignalConnection {
	r.mu.Lock()
	prev := r.conns[id]
	r.conns[id] = conn
	r.mu.Unlock()
	if prev != nil {
		log.Info().Str("module", "app.registry").Str("identity", string(id)).Msg("superseded existing connection")
	} else {
		log.Info().Str("module", "app.registry").Str("identity", string(id)).Msg("registered connection")
	}
	return prev
}

func (r *Registry) Lookup(id domain.Identity) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Unregister removes the mapping only if conn is still the current entry,
// so a late close of a superseded connection cannot evict its replacement.
func (r *Registry) Unregister(id domain.Identity, conn core.SignalConnection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[id]; !ok || cur != conn {
		return false
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("identity", string(id)).Msg("unregistered connection")
	return true
}

// Snapshot lists currently connected identities, for diagnostics.
func (r *Registry) Snapshot() []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Identity, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}
