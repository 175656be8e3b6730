package store

import (
	"context"
	"errors"
	"testing"

	"github.com/liliumshare/liliumshare/internal/domain"
)

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.GetUser(ctx, "pk1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.UpsertUser(ctx, domain.User{Pubkey: "pk1", Nickname: "HostA"}); err != nil {
		t.Fatal(err)
	}
	u, err := m.GetUserByNickname(ctx, "HostA")
	if err != nil || u.Pubkey != "pk1" {
		t.Fatalf("nickname lookup got %+v, %v", u, err)
	}

	// Re-registering updates the nickname in place.
	if err := m.UpsertUser(ctx, domain.User{Pubkey: "pk1", Nickname: "HostA2"}); err != nil {
		t.Fatal(err)
	}
	u, err = m.GetUser(ctx, "pk1")
	if err != nil || u.Nickname != "HostA2" {
		t.Fatalf("expected updated nickname, got %+v, %v", u, err)
	}
}

func TestRequestCreatesSingleDirectedRow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.RequestFriendship(ctx, "a", "b"); err != nil {
		t.Fatal(err)
	}
	f, err := m.GetFriendship(ctx, "a", "b")
	if err != nil || f.Status != domain.FriendPending {
		t.Fatalf("row (a,b): %+v, %v", f, err)
	}
	// The reverse row only appears on accept; its absence is what lets a
	// list call tell incoming requests from outgoing ones.
	if _, err := m.GetFriendship(ctx, "b", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reverse row should not exist before accept, got %v", err)
	}
}

func TestRequestDoesNotDowngradeAccepted(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.AcceptFriendship(ctx, "a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := m.RequestFriendship(ctx, "a", "b"); err != nil {
		t.Fatal(err)
	}
	f, err := m.GetFriendship(ctx, "a", "b")
	if err != nil || f.Status != domain.FriendAccepted {
		t.Fatalf("re-request must not touch an accepted row: %+v, %v", f, err)
	}
}

func TestAcceptIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.AcceptFriendship(ctx, "a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetPermissions(ctx, "a", "b", domain.PermissionSet{"keyboard": true}); err != nil {
		t.Fatal(err)
	}
	// Second accept must not clobber existing permissions.
	if err := m.AcceptFriendship(ctx, "a", "b"); err != nil {
		t.Fatal(err)
	}

	ab, err := m.GetFriendship(ctx, "a", "b")
	if err != nil || ab.Status != domain.FriendAccepted {
		t.Fatalf("(a,b) after double accept: %+v, %v", ab, err)
	}
	if !ab.Permissions.Allowed("keyboard") {
		t.Fatalf("double accept lost permissions: %v", ab.Permissions)
	}
	ba, err := m.GetFriendship(ctx, "b", "a")
	if err != nil || ba.Status != domain.FriendAccepted {
		t.Fatalf("(b,a) after double accept: %+v, %v", ba, err)
	}
}

func TestSetPermissionsRequiresRow(t *testing.T) {
	m := NewMemory()
	err := m.SetPermissions(context.Background(), "a", "b", domain.PermissionSet{"mouse": true})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPermissionsAreIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	perms := domain.PermissionSet{"keyboard": true}
	if err := m.UpsertFriendship(ctx, domain.Friendship{
		Host: "a", Viewer: "b", Status: domain.FriendAccepted, Permissions: perms,
	}); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's map after the write must not affect the store.
	perms["mouse"] = true
	f, err := m.GetFriendship(ctx, "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if f.Permissions.Allowed("mouse") {
		t.Fatalf("store shares the caller's permission map")
	}

	// Mutating a read result must not affect later reads.
	f.Permissions["controller"] = true
	again, _ := m.GetFriendship(ctx, "a", "b")
	if again.Permissions.Allowed("controller") {
		t.Fatalf("reads share the stored permission map")
	}
}

func TestConnectionKeyOverwrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.GetConnectionKey(ctx, "a", "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.PutConnectionKey(ctx, domain.ConnectionKey{Host: "a", Viewer: "b", Key: "k1"}); err != nil {
		t.Fatal(err)
	}
	if err := m.PutConnectionKey(ctx, domain.ConnectionKey{Host: "a", Viewer: "b", Key: "k2"}); err != nil {
		t.Fatal(err)
	}
	k, err := m.GetConnectionKey(ctx, "a", "b")
	if err != nil || k.Key != "k2" {
		t.Fatalf("expected k2 after overwrite, got %+v, %v", k, err)
	}
	if k.CreatedAt.IsZero() {
		t.Fatalf("created_at not stamped")
	}

	// Direction matters: the (b,a) slot is a different key.
	if _, err := m.GetConnectionKey(ctx, "b", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reverse direction should be empty, got %v", err)
	}
}

func TestListFriendshipsBothDirections(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.AcceptFriendship(ctx, "a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := m.RequestFriendship(ctx, "c", "a"); err != nil {
		t.Fatal(err)
	}
	if err := m.RequestFriendship(ctx, "c", "d"); err != nil {
		t.Fatal(err)
	}

	rows, err := m.ListFriendships(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	// Accepted pair (a,b)+(b,a) plus the incoming pending (c,a).
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows for a, got %d: %+v", len(rows), rows)
	}
	for _, f := range rows {
		if f.Host != "a" && f.Viewer != "a" {
			t.Fatalf("list leaked unrelated row %+v", f)
		}
	}
}
