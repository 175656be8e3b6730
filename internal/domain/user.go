// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxNicknameLen = 64
	MaxIdentityLen = 1024
)

var (
	ErrNicknameTooLong = errors.New("nickname too long")
	ErrNicknameEmpty   = errors.New("nickname empty")
	ErrIdentityEmpty   = errors.New("identity empty")
	ErrIdentityTooLong = errors.New("identity too long")
)

// Identity is the opaque public-key encoding that names a participant.
type Identity string

func (id Identity) Validate() error {
	if len(id) == 0 {
		return ErrIdentityEmpty
	}
	if len(id) > MaxIdentityLen {
		return ErrIdentityTooLong
	}
	return nil
}

type User struct {
	Pubkey   Identity `json:"pubkey"`
	Nickname string   `json:"nickname"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(pubkey Identity, nickname string) (*User, error) {
	if err := pubkey.Validate(); err != nil {
		return nil, err
	}
	if len(nickname) == 0 {
		return nil, ErrNicknameEmpty
	}
	if len(nickname) > MaxNicknameLen {
		return nil, ErrNicknameTooLong
	}
	return &User{Pubkey: pubkey, Nickname: nickname}, nil
}
