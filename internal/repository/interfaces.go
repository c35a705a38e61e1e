package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sociable/internal/model"
)

// UserRepository persists accounts. Every read filters soft-deleted rows
// out by default; the AnyState variant exists solely for the signup
// resurrection check.
type UserRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetBySlug(ctx context.Context, slug string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByEmailAnyState also returns soft-deleted rows.
	GetByEmailAnyState(ctx context.Context, email string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, passwordHash string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	HardDelete(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
}

// ProfileRepository persists profiles and their privacy flags.
type ProfileRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, profile *model.Profile) error
	CreatePrivacy(ctx context.Context, tx *sqlx.Tx, privacy *model.ProfilePrivacy) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	GetPrivacyByProfileID(ctx context.Context, profileID uuid.UUID) (*model.ProfilePrivacy, error)
	// GetDetailBySlug loads user+profile+privacy in one query. Missing
	// privacy rows surface as model.ErrPrivacyNotFound so callers can
	// lazily create defaults; missing profiles as model.ErrProfileNotFound.
	GetDetailBySlug(ctx context.Context, slug string) (*model.ProfileDetail, error)
	Update(ctx context.Context, profile *model.Profile) error
	UpdatePrivacy(ctx context.Context, privacy *model.ProfilePrivacy) error
	IncrementViews(ctx context.Context, profileID uuid.UUID) error
	// List pages through profiles visible to the viewer: excludes the
	// viewer's own profile and any pair with a block in either direction;
	// q filters on username or bio. Returns the page and the total count.
	List(ctx context.Context, viewerID uuid.UUID, q string, page, perPage int) ([]model.ProfileDetail, int, error)
}

// RelationshipRepository persists the follow-request / following / block
// edges. Mutations participating in multi-write sequences take the caller's
// transaction.
type RelationshipRepository interface {
	// CreateRequest reports false when a pending request already exists.
	CreateRequest(ctx context.Context, request *model.FollowRequest) (bool, error)
	DeleteRequest(ctx context.Context, tx *sqlx.Tx, userID, followingID uuid.UUID) (bool, error)
	// DeleteRequestsBetween removes pending requests in both directions.
	DeleteRequestsBetween(ctx context.Context, tx *sqlx.Tx, a, b uuid.UUID) error
	RequestExists(ctx context.Context, userID, followingID uuid.UUID) (bool, error)
	// IncomingRequests lists requests sent to userID; OutgoingRequests the
	// ones userID sent. Both carry the counterpart's full detail for
	// privacy projection.
	IncomingRequests(ctx context.Context, userID uuid.UUID) ([]model.FollowRequestDetail, error)
	OutgoingRequests(ctx context.Context, userID uuid.UUID) ([]model.FollowRequestDetail, error)

	// CreateFollowing reports false when the edge already exists.
	CreateFollowing(ctx context.Context, tx *sqlx.Tx, userID, followingID uuid.UUID) (bool, error)
	DeleteFollowing(ctx context.Context, tx *sqlx.Tx, userID, followingID uuid.UUID) (bool, error)
	// DeleteFollowingsBetween removes follow edges in both directions.
	DeleteFollowingsBetween(ctx context.Context, tx *sqlx.Tx, a, b uuid.UUID) error
	FollowingExists(ctx context.Context, userID, followingID uuid.UUID) (bool, error)
	CountFollowers(ctx context.Context, userID uuid.UUID) (int, error)
	CountFollowings(ctx context.Context, userID uuid.UUID) (int, error)
	ListFollowers(ctx context.Context, userID uuid.UUID) ([]model.ProfileDetail, error)
	ListFollowings(ctx context.Context, userID uuid.UUID) ([]model.ProfileDetail, error)
	FollowerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// CreateBlock reports false when the edge already exists.
	CreateBlock(ctx context.Context, tx *sqlx.Tx, userID, blockedID uuid.UUID) (bool, error)
	DeleteBlock(ctx context.Context, userID, blockedID uuid.UUID) error
	BlockExists(ctx context.Context, userID, blockedID uuid.UUID) (bool, error)
	ListBlocked(ctx context.Context, userID uuid.UUID) ([]model.ProfileDetail, error)
	BlockedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	BlockerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ResetCodeRepository persists password reset codes. The lookup for
// redemption locks the matched rows so concurrent redemptions of the same
// code serialize.
type ResetCodeRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, code *model.PasswordResetCode) error
	DeleteForUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error
	// FindByCodeForUpdate returns every row matching the code value under
	// FOR UPDATE; more than one row signals the uniqueness-invariant
	// violation the caller self-heals from.
	FindByCodeForUpdate(ctx context.Context, tx *sqlx.Tx, code string) ([]model.PasswordResetCode, error)
	Delete(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
	DeleteByCode(ctx context.Context, tx *sqlx.Tx, code string) error
}

// RefreshTokenRepository persists rotating refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID, replacedBy *uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}
