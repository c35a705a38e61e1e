package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RefreshToken stores the sha256 hash of a rotating refresh token. The raw
// value never touches the database.
type RefreshToken struct {
	ID         uuid.UUID  `db:"id" json:"-"`
	UserID     uuid.UUID  `db:"user_id" json:"-"`
	TokenHash  string     `db:"token_hash" json:"-"`
	ExpiresAt  time.Time  `db:"expires_at" json:"-"`
	RevokedAt  *time.Time `db:"revoked_at" json:"-"`
	ReplacedBy *uuid.UUID `db:"replaced_by" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"-"`
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// TokenPair is returned on signup, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
	ExpiresIn    int    `json:"expires_in"`
}

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	// ErrRefreshTokenReused marks replay of a rotated token; the whole
	// family gets revoked when this is seen.
	ErrRefreshTokenReused = errors.New("refresh token reuse detected")
)
