package store

import (
	"context"
	"sync"
	"time"

	"github.com/liliumshare/liliumshare/internal/domain"
)

type pair struct {
	host   domain.Identity
	viewer domain.Identity
}

// Memory is a map-backed Directory for tests and single-process runs.
type Memory struct {
	mu      sync.RWMutex
	users   map[domain.Identity]domain.User
	friends map[pair]domain.Friendship
	keys    map[pair]domain.ConnectionKey
	nowFn   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[domain.Identity]domain.User),
		friends: make(map[pair]domain.Friendship),
		keys:    make(map[pair]domain.ConnectionKey),
		nowFn:   time.Now,
	}
}

func (m *Memory) UpsertUser(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Pubkey] = user
	return nil
}

func (m *Memory) GetUser(_ context.Context, pubkey domain.Identity) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[pubkey]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) GetUserByNickname(_ context.Context, nickname string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Nickname == nickname {
			return u, nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (m *Memory) GetFriendship(_ context.Context, host, viewer domain.Identity) (domain.Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.friends[pair{host, viewer}]
	if !ok {
		return domain.Friendship{}, ErrNotFound
	}
	f.Permissions = f.Permissions.Clone()
	return f, nil
}

func (m *Memory) RequestFriendship(_ context.Context, from, to domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := pair{from, to}
	if _, ok := m.friends[p]; ok {
		return nil
	}
	m.friends[p] = domain.Friendship{
		Host:        from,
		Viewer:      to,
		Status:      domain.FriendPending,
		Permissions: domain.PermissionSet{},
	}
	return nil
}

func (m *Memory) AcceptFriendship(_ context.Context, a, b domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range []pair{{a, b}, {b, a}} {
		f, ok := m.friends[p]
		if !ok {
			f = domain.Friendship{Host: p.host, Viewer: p.viewer, Permissions: domain.PermissionSet{}}
		}
		f.Status = domain.FriendAccepted
		m.friends[p] = f
	}
	return nil
}

func (m *Memory) UpsertFriendship(_ context.Context, f domain.Friendship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Permissions == nil {
		f.Permissions = domain.PermissionSet{}
	}
	f.Permissions = f.Permissions.Clone()
	m.friends[pair{f.Host, f.Viewer}] = f
	return nil
}

func (m *Memory) SetPermissions(_ context.Context, host, viewer domain.Identity, perms domain.PermissionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := pair{host, viewer}
	f, ok := m.friends[p]
	if !ok {
		return ErrNotFound
	}
	f.Permissions = perms.Clone()
	m.friends[p] = f
	return nil
}

func (m *Memory) ListFriendships(_ context.Context, me domain.Identity) ([]domain.Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Friendship, 0)
	for p, f := range m.friends {
		if p.host == me || p.viewer == me {
			f.Permissions = f.Permissions.Clone()
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *Memory) PutConnectionKey(_ context.Context, key domain.ConnectionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key.CreatedAt.IsZero() {
		key.CreatedAt = m.nowFn()
	}
	m.keys[pair{key.Host, key.Viewer}] = key
	return nil
}

func (m *Memory) GetConnectionKey(_ context.Context, host, viewer domain.Identity) (domain.ConnectionKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.keys[pair{host, viewer}]
	if !ok {
		return domain.ConnectionKey{}, ErrNotFound
	}
	return k, nil
}
