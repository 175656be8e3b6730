package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/liliumshare/liliumshare/internal/domain"
	"github.com/liliumshare/liliumshare/internal/store"
)

// Denial reason codes surfaced to the requesting viewer.
const (
	DenyNotFriends    = "not-friends"
	DenyHostOffline   = "host-offline"
	DenyInternalError = "internal-error"
)

// Decision is the outcome of a join authorization. Permissions is non-nil
// exactly when Accepted is true.
type Decision struct {
	Accepted    bool
	Permissions domain.PermissionSet
	Reason      string
}

func accepted(perms domain.PermissionSet) Decision {
	if perms == nil {
		perms = domain.PermissionSet{}
	}
	return Decision{Accepted: true, Permissions: perms}
}

func denied(reason string) Decision {
	return Decision{Reason: reason}
}

// Authorizer gates join requests on friendship status and host liveness.
// Every call re-reads the directory, so revocations and disconnects take
// effect on the next attempt without any cache to invalidate.
type Authorizer struct {
	Store    store.Directory
	Registry *Registry
}

// AuthorizeJoin checks the directed (host, viewer) friendship row and the
// host's presence in the registry. Only the host→viewer row is consulted;
// the reciprocal row's permissions carry no meaning for a join.
func (a *Authorizer) AuthorizeJoin(ctx context.Context, host, viewer domain.Identity) Decision {
	f, err := a.Store.GetFriendship(ctx, host, viewer)
	if errors.Is(err, store.ErrNotFound) {
		return denied(DenyNotFriends)
	}
	if err != nil {
		log.Error().Err(err).Str("module", "app.auth").
			Str("host", string(host)).Str("viewer", string(viewer)).
			Msg("friendship lookup failed")
		return denied(DenyInternalError)
	}
	if !f.Usable() {
		return denied(DenyNotFriends)
	}
	if _, ok := a.Registry.Lookup(host); !ok {
		return denied(DenyHostOffline)
	}
	return accepted(f.Permissions)
}
