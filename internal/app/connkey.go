package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/liliumshare/liliumshare/internal/domain"
	"github.com/liliumshare/liliumshare/internal/store"
)

const connKeyBytes = 32

// ErrNotAccepted rejects key issuance for pairs that are not accepted friends.
var ErrNotAccepted = errors.New("friendship not accepted")

// KeyIssuer mints and stores the per-pair symmetric token both endpoints
// fetch to bootstrap their own end-to-end encrypted chat. The server never
// uses the token itself. Regenerating overwrites the previous token.
type KeyIssuer struct {
	Store store.Directory
	nowFn func() time.Time
}

func NewKeyIssuer(s store.Directory) *KeyIssuer {
	return &KeyIssuer{Store: s, nowFn: time.Now}
}

func (k *KeyIssuer) Generate(ctx context.Context, host, viewer domain.Identity) (domain.ConnectionKey, error) {
	f, err := k.Store.GetFriendship(ctx, host, viewer)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ConnectionKey{}, ErrNotAccepted
	}
	if err != nil {
		return domain.ConnectionKey{}, fmt.Errorf("friendship lookup: %w", err)
	}
	if !f.Usable() {
		return domain.ConnectionKey{}, ErrNotAccepted
	}

	buf := make([]byte, connKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return domain.ConnectionKey{}, fmt.Errorf("generate key: %w", err)
	}

	key := domain.ConnectionKey{
		Host:      host,
		Viewer:    viewer,
		Key:       base64.StdEncoding.EncodeToString(buf),
		CreatedAt: k.nowFn().UTC(),
	}
	if err := k.Store.PutConnectionKey(ctx, key); err != nil {
		return domain.ConnectionKey{}, fmt.Errorf("store key: %w", err)
	}
	return key, nil
}

func (k *KeyIssuer) Fetch(ctx context.Context, host, viewer domain.Identity) (domain.ConnectionKey, error) {
	return k.Store.GetConnectionKey(ctx, host, viewer)
}
