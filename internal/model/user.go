package model

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// User represents an account in the system. The slug is derived from the
// username exactly once, at construction, and never recomputed afterwards.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Slug         string     `db:"slug" json:"slug"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsActive     bool       `db:"is_active" json:"-"`
	IsStaff      bool       `db:"is_staff" json:"-"`
	IsSuperuser  bool       `db:"is_superuser" json:"-"`
	Deleted      bool       `db:"deleted" json:"-"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// NewUser constructs a user with a fresh ID and a slug computed from the
// username. Slug derivation happens here and nowhere else.
func NewUser(username, email, passwordHash string) *User {
	return &User{
		ID:           uuid.New(),
		Username:     username,
		Slug:         Slugify(username),
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
}

// Slugify converts a username to its url-safe form: lowercase, spaces and
// runs of non-alphanumerics collapsed to single hyphens, trimmed.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// SignupRequest carries the fields needed to create an account.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest carries login credentials. The identifier may be a username
// or an email address.
type LoginRequest struct {
	LoginIdentifier string `json:"login_identifier"`
	Password        string `json:"password"`
}

// UserUpdateRequest carries the account fields that may be changed after
// signup. Only email and password are updatable.
type UserUpdateRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// PasswordForgotRequest starts the reset flow.
type PasswordForgotRequest struct {
	Email string `json:"email"`
}

// PasswordResetRequest redeems a reset code.
type PasswordResetRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when attempting to create a user with a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrEmailExists is returned when attempting to create a user with a taken email
	ErrEmailExists = errors.New("email already exists")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAlreadyLoggedIn is returned when an authenticated user calls login again
	ErrAlreadyLoggedIn = errors.New("you are already logged in")

	// ErrNothingToUpdate is returned when an update carries neither email nor password
	ErrNothingToUpdate = errors.New("only email and password are updatable")
)
