package domain

import "time"

type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
)

// PermissionSet is a sparse set of named capability flags. Absent keys mean
// the capability is not granted; unknown keys are carried but never
// interpreted by the server. Observed names: keyboard, mouse, controller,
// immersion, autoJoin.
type PermissionSet map[string]bool

func (p PermissionSet) Allowed(name string) bool {
	return p[name]
}

// Clone returns an independent copy, never nil.
func (p PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Friendship is a directed row: permissions are host→viewer directives.
// The reciprocal (viewer, host) row is an independent record and may carry
// different status and permissions.
type Friendship struct {
	Host        Identity      `json:"host"`
	Viewer      Identity      `json:"viewer"`
	Status      FriendStatus  `json:"status"`
	Permissions PermissionSet `json:"permissions"`
}

func (f Friendship) Usable() bool {
	return f.Status == FriendAccepted
}

// ConnectionKey is the out-of-band symmetric token endpoints use to
// bootstrap their own end-to-end encrypted chat. The server stores and
// hands it out but never uses it.
type ConnectionKey struct {
	Host      Identity  `json:"host"`
	Viewer    Identity  `json:"viewer"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}
