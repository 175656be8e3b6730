// Package store is the directory of identities, friendships and connection
// keys. The relay consults it on every join decision; nothing here caches.
package store

import (
	"context"
	"errors"

	"github.com/liliumshare/liliumshare/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Directory is the durable record of identities and pairwise
// friendship/permission state. All methods are safe for concurrent use from
// multiple connection goroutines.
type Directory interface {
	UpsertUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, pubkey domain.Identity) (domain.User, error)
	GetUserByNickname(ctx context.Context, nickname string) (domain.User, error)

	// GetFriendship reads the directed (host, viewer) row.
	GetFriendship(ctx context.Context, host, viewer domain.Identity) (domain.Friendship, error)
	// RequestFriendship creates the single pending (from→to) row. An
	// existing row in that direction is left untouched, so a request never
	// downgrades an accepted friendship. The reverse row appears on accept.
	RequestFriendship(ctx context.Context, from, to domain.Identity) error
	// AcceptFriendship marks both directions accepted in one transaction,
	// creating absent rows. Idempotent.
	AcceptFriendship(ctx context.Context, a, b domain.Identity) error
	// UpsertFriendship writes a single directed row outright.
	UpsertFriendship(ctx context.Context, f domain.Friendship) error
	// SetPermissions replaces the host→viewer permission mapping.
	// Returns ErrNotFound if the row does not exist.
	SetPermissions(ctx context.Context, host, viewer domain.Identity, perms domain.PermissionSet) error
	// ListFriendships returns every row where me is either side, so callers
	// can split pending rows into incoming and outgoing views.
	ListFriendships(ctx context.Context, me domain.Identity) ([]domain.Friendship, error)

	// PutConnectionKey overwrites the token for the (host, viewer) pair.
	PutConnectionKey(ctx context.Context, key domain.ConnectionKey) error
	GetConnectionKey(ctx context.Context, host, viewer domain.Identity) (domain.ConnectionKey, error)
}
