package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// FollowRequest is a pending, directed ask: UserID requests to follow
// FollowingID. At most one pending request exists per ordered pair; the row
// is deleted on accept, reject, withdrawal, or when either party blocks.
type FollowRequest struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	FollowingID uuid.UUID `db:"following_id" json:"following_id"`
	Message     *string   `db:"message" json:"message"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Following is a directed follow edge: UserID follows FollowingID.
type Following struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	FollowingID uuid.UUID `db:"following_id" json:"following_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Block is a directed block edge: UserID blocks BlockedID. Creating one
// cascades away any Following edges between the pair in either direction.
type Block struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	BlockedID uuid.UUID `db:"blocked_id" json:"blocked_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FollowRequestDetail pairs a pending request with the counterpart's full
// detail, so request lists can run through the privacy engine like any
// other user list.
type FollowRequestDetail struct {
	Detail    ProfileDetail
	Message   *string
	CreatedAt time.Time
}

// FollowCounts is the response of the counts endpoint.
type FollowCounts struct {
	Followers  int `json:"followers"`
	Followings int `json:"followings"`
}

var (
	// ErrSelfRelationship rejects self-referencing edges (follow/request/block yourself)
	ErrSelfRelationship = errors.New("cannot target yourself")

	// ErrAlreadyRequested is returned for a duplicate pending follow request
	ErrAlreadyRequested = errors.New("already requested")

	// ErrAlreadyBlocked is returned for a duplicate block
	ErrAlreadyBlocked = errors.New("already blocked")

	// ErrBlockedByTarget is returned when the target has blocked the acting user
	ErrBlockedByTarget = errors.New("blocked by this user")

	// ErrRequestNotFound is returned when no pending follow request exists
	ErrRequestNotFound = errors.New("follow request not found")

	// ErrNotFollowing is returned when deleting a follow edge that does not exist
	ErrNotFollowing = errors.New("not following this user")

	// ErrBlockNotFound is returned when unblocking a user who is not blocked
	ErrBlockNotFound = errors.New("block not found")

	// ErrPrivateProfile gates follower/following reads of private profiles
	ErrPrivateProfile = errors.New("cannot view connections of a private profile")
)
