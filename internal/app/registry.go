package app

import (
	"context"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dkeye/MedCall/internal/core"
	"github.com/dkeye/MedCall/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Signal core.SignalConnection
	Cancel context.CancelFunc

	mu       sync.RWMutex
	userID   domain.UserID
	userName string

	// superseded is set once another connection registers the same identity.
	superseded atomic.Bool
}

// Registry is the connection registry: every attached transport by handle,
// plus the identity -> live handle index. At most one live handle per user.
type Registry struct {
	conns *shardMap[domain.ConnID, *connEntry]
	users *shardMap[domain.UserID, domain.ConnID]
}

func NewRegistry() *Registry {
	return &Registry{
		conns: newShardMap[domain.ConnID, *connEntry](),
		users: newShardMap[domain.UserID, domain.ConnID](),
	}
}

// Attach records a freshly opened transport. It is addressable right away,
// before it claims an identity.
func (r *Registry) Attach(id domain.ConnID, sig core.SignalConnection, cancel context.CancelFunc) {
	r.conns.Update(id, func(*connEntry, bool) (*connEntry, bool) {
		return &connEntry{Signal: sig, Cancel: cancel}, true
	})
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("attached connection")
}

// Detach forgets the transport and releases its identity if it still owns it.
func (r *Registry) Detach(id domain.ConnID) {
	r.UnregisterConn(id)
	r.conns.Update(id, func(*connEntry, bool) (*connEntry, bool) { return nil, false })
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("detached connection")
}

// Register maps userID to id, superseding whatever handle held it before.
// The old handle stays open but is no longer addressable.
func (r *Registry) Register(userID domain.UserID, id domain.ConnID) {
	var prev domain.ConnID
	var oldUser domain.UserID
	// Entries are flipped under the identity's shard lock so two racing
	// registrations agree on which handle won.
	r.users.Update(userID, func(cur domain.ConnID, ok bool) (domain.ConnID, bool) {
		if ok && cur != id {
			prev = cur
			if e, found := r.conns.Load(cur); found {
				e.superseded.Store(true)
			}
		}
		if e, found := r.conns.Load(id); found {
			e.superseded.Store(false)
			e.mu.Lock()
			oldUser = e.userID
			e.userID = userID
			e.mu.Unlock()
		}
		return id, true
	})
	// A handle owns at most one identity. The old one may share a shard with
	// userID, so it is released only after Update has unlocked.
	if oldUser != "" && oldUser != userID {
		if r.users.CompareAndDelete(oldUser, func(cur domain.ConnID) bool { return cur == id }) {
			log.Info().Str("module", "app.registry").Str("user", string(oldUser)).Str("conn", string(id)).Msg("released previous identity")
		}
	}
	if prev != "" {
		log.Info().Str("module", "app.registry").Str("user", string(userID)).Str("old_conn", string(prev)).Str("conn", string(id)).Msg("superseded connection")
	}
	log.Info().Str("module", "app.registry").Str("user", string(userID)).Str("conn", string(id)).Msg("registered user")
}

// Unregister drops the identity mapping. Absent users are a no-op.
func (r *Registry) Unregister(userID domain.UserID) {
	r.users.Update(userID, func(domain.ConnID, bool) (domain.ConnID, bool) { return "", false })
}

// UnregisterConn drops the identity owned by id, but only while id still owns
// it; a late disconnect of a superseded handle must not evict its successor.
func (r *Registry) UnregisterConn(id domain.ConnID) {
	userID, _, ok := r.Identity(id)
	if !ok || userID == "" {
		return
	}
	if r.users.CompareAndDelete(userID, func(cur domain.ConnID) bool { return cur == id }) {
		log.Info().Str("module", "app.registry").Str("user", string(userID)).Str("conn", string(id)).Msg("unregistered user")
	}
}

// SetIdentity labels a connection without registering it, so that signaling
// sent from it can carry the sender's identity. A registered identity wins.
func (r *Registry) SetIdentity(id domain.ConnID, userID domain.UserID, name string) {
	e, ok := r.conns.Load(id)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if userID != "" && e.userID == "" {
		e.userID = userID
	}
	if name != "" {
		e.userName = name
	}
}

func (r *Registry) Identity(id domain.ConnID) (domain.UserID, string, bool) {
	e, ok := r.conns.Load(id)
	if !ok {
		return "", "", false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.userID, e.userName, true
}

// Lookup returns the transport behind id if it is attached and not superseded.
func (r *Registry) Lookup(id domain.ConnID) (core.SignalConnection, bool) {
	e, ok := r.conns.Load(id)
	if !ok || e.superseded.Load() {
		return nil, false
	}
	return e.Signal, true
}

// ConnOf returns the live handle registered for userID.
func (r *Registry) ConnOf(userID domain.UserID) (domain.ConnID, bool) {
	return r.users.Load(userID)
}

// ListOnline yields the registered identities as of the call.
func (r *Registry) ListOnline() iter.Seq[domain.UserID] {
	snap := r.users.Snapshot()
	ids := make([]domain.UserID, 0, len(snap))
	for _, e := range snap {
		ids = append(ids, e.Key)
	}
	slices.Sort(ids)
	return slices.Values(ids)
}

// Cancel stops the connection's pumps; the transport then raises Disconnect.
func (r *Registry) Cancel(id domain.ConnID) bool {
	e, ok := r.conns.Load(id)
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	if e.Signal != nil {
		e.Signal.Close()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("canceled connection")
	return true
}

func (r *Registry) ConnCount() int { return r.conns.Len() }
