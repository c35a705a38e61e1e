package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ResetCodeTTL is how long a password reset code stays redeemable.
const ResetCodeTTL = 5 * time.Minute

// PasswordResetCode is a single-use code mailed to a user. Redemption is
// serialized with a row-level lock so one code can never succeed twice.
type PasswordResetCode struct {
	ID        uuid.UUID `db:"id" json:"-"`
	UserID    uuid.UUID `db:"user_id" json:"-"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Expired reports whether the code is past its redemption window.
func (c *PasswordResetCode) Expired(now time.Time) bool {
	return now.After(c.CreatedAt.Add(ResetCodeTTL))
}

var (
	// ErrResetCodeNotFound is returned for unknown or already-consumed codes
	ErrResetCodeNotFound = errors.New("reset code not found")

	// ErrResetCodeExpired is returned for codes past their window
	ErrResetCodeExpired = errors.New("reset code expired")

	// ErrResetCodeConflict flags the uniqueness-invariant violation of
	// multiple stored codes sharing one value. The handler self-heals by
	// purging them so a freshly issued code succeeds on retry.
	ErrResetCodeConflict = errors.New("multiple reset codes found")
)
