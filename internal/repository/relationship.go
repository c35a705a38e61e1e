package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sociable/internal/model"
)

// relationshipRepository implements RelationshipRepository using sqlx
type relationshipRepository struct {
	db *sqlx.DB
}

// NewRelationshipRepository creates a new relationship repository
func NewRelationshipRepository(db *sqlx.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

// CreateRequest inserts a pending follow request; reports false when one
// already exists for the pair.
func (r *relationshipRepository) CreateRequest(ctx context.Context, fr *model.FollowRequest) (bool, error) {
	query := `
		INSERT INTO follow_requests (id, user_id, following_id, message, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, following_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, fr.ID, fr.UserID, fr.FollowingID, fr.Message)
	if err != nil {
		return false, fmt.Errorf("failed to insert follow request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// DeleteRequest removes a pending request; reports whether one existed
func (r *relationshipRepository) DeleteRequest(ctx context.Context, tx *sqlx.Tx, userID, followingID uuid.UUID) (bool, error) {
	query := `DELETE FROM follow_requests WHERE user_id = $1 AND following_id = $2`

	result, err := tx.ExecContext(ctx, query, userID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// DeleteRequestsBetween removes pending requests in both directions
func (r *relationshipRepository) DeleteRequestsBetween(ctx context.Context, tx *sqlx.Tx, a, b uuid.UUID) error {
	query := `
		DELETE FROM follow_requests
		WHERE (user_id = $1 AND following_id = $2)
		   OR (user_id = $2 AND following_id = $1)
	`

	if _, err := tx.ExecContext(ctx, query, a, b); err != nil {
		return fmt.Errorf("failed to delete follow requests between users: %w", err)
	}

	return nil
}

// RequestExists checks for a pending follow request
func (r *relationshipRepository) RequestExists(ctx context.Context, userID, followingID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follow_requests WHERE user_id = $1 AND following_id = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, followingID); err != nil {
		return false, fmt.Errorf("failed to check follow request existence: %w", err)
	}

	return exists, nil
}

// IncomingRequests lists pending requests sent to userID, carrying the
// sender's detail for projection
func (r *relationshipRepository) IncomingRequests(ctx context.Context, userID uuid.UUID) ([]model.FollowRequestDetail, error) {
	query := `
		SELECT ` + detailColumns + `, fr.message, fr.created_at AS requested_at
		FROM follow_requests fr
		JOIN users u ON u.id = fr.user_id AND u.deleted = FALSE` + detailJoins + `
		WHERE fr.following_id = $1
		ORDER BY fr.created_at DESC
	`

	return r.selectRequestDetails(ctx, query, userID)
}

// OutgoingRequests lists pending requests userID sent, carrying the
// recipient's detail for projection
func (r *relationshipRepository) OutgoingRequests(ctx context.Context, userID uuid.UUID) ([]model.FollowRequestDetail, error) {
	query := `
		SELECT ` + detailColumns + `, fr.message, fr.created_at AS requested_at
		FROM follow_requests fr
		JOIN users u ON u.id = fr.following_id AND u.deleted = FALSE` + detailJoins + `
		WHERE fr.user_id = $1
		ORDER BY fr.created_at DESC
	`

	return r.selectRequestDetails(ctx, query, userID)
}

type requestDetailRow struct {
	detailRow
	Message     *string   `db:"message"`
	RequestedAt time.Time `db:"requested_at"`
}

func (r *relationshipRepository) selectRequestDetails(ctx context.Context, query string, userID uuid.UUID) ([]model.FollowRequestDetail, error) {
	var rows []requestDetailRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list follow requests: %w", err)
	}

	details := make([]model.FollowRequestDetail, 0, len(rows))
	for i := range rows {
		details = append(details, model.FollowRequestDetail{
			Detail:    rows[i].detailRow.toDetail(),
			Message:   rows[i].Message,
			CreatedAt: rows[i].RequestedAt,
		})
	}

	return details, nil
}

// CreateFollowing inserts a follow edge inside the caller's transaction;
// reports false when the edge already exists.
func (r *relationshipRepository) CreateFollowing(ctx context.Context, tx *sqlx.Tx, userID, followingID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO followings (id, user_id, following_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, following_id) DO NOTHING
	`

	result, err := tx.ExecContext(ctx, query, uuid.New(), userID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to insert following: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// DeleteFollowing removes a follow edge; reports whether one existed
func (r *relationshipRepository) DeleteFollowing(ctx context.Context, tx *sqlx.Tx, userID, followingID uuid.UUID) (bool, error) {
	query := `DELETE FROM followings WHERE user_id = $1 AND following_id = $2`

	result, err := tx.ExecContext(ctx, query, userID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to delete following: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// DeleteFollowingsBetween removes follow edges in both directions
func (r *relationshipRepository) DeleteFollowingsBetween(ctx context.Context, tx *sqlx.Tx, a, b uuid.UUID) error {
	query := `
		DELETE FROM followings
		WHERE (user_id = $1 AND following_id = $2)
		   OR (user_id = $2 AND following_id = $1)
	`

	if _, err := tx.ExecContext(ctx, query, a, b); err != nil {
		return fmt.Errorf("failed to delete followings between users: %w", err)
	}

	return nil
}

// FollowingExists checks for a follow edge
func (r *relationshipRepository) FollowingExists(ctx context.Context, userID, followingID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM followings WHERE user_id = $1 AND following_id = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, followingID); err != nil {
		return false, fmt.Errorf("failed to check following existence: %w", err)
	}

	return exists, nil
}

// CountFollowers counts live accounts following userID
func (r *relationshipRepository) CountFollowers(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM followings f
		JOIN users u ON u.id = f.user_id AND u.deleted = FALSE
		WHERE f.following_id = $1
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}

	return count, nil
}

// CountFollowings counts live accounts userID follows
func (r *relationshipRepository) CountFollowings(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM followings f
		JOIN users u ON u.id = f.following_id AND u.deleted = FALSE
		WHERE f.user_id = $1
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count followings: %w", err)
	}

	return count, nil
}

// ListFollowers lists the accounts following userID with full detail
func (r *relationshipRepository) ListFollowers(ctx context.Context, userID uuid.UUID) ([]model.ProfileDetail, error) {
	query := `
		SELECT ` + detailColumns + `
		FROM followings f
		JOIN users u ON u.id = f.user_id AND u.deleted = FALSE` + detailJoins + `
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC
	`

	var rows []detailRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}

	return toDetails(rows), nil
}

// ListFollowings lists the accounts userID follows with full detail
func (r *relationshipRepository) ListFollowings(ctx context.Context, userID uuid.UUID) ([]model.ProfileDetail, error) {
	query := `
		SELECT ` + detailColumns + `
		FROM followings f
		JOIN users u ON u.id = f.following_id AND u.deleted = FALSE` + detailJoins + `
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
	`

	var rows []detailRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list followings: %w", err)
	}

	return toDetails(rows), nil
}

// FollowerIDs lists the ids of accounts following userID
func (r *relationshipRepository) FollowerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT f.user_id FROM followings f
		JOIN users u ON u.id = f.user_id AND u.deleted = FALSE
		WHERE f.following_id = $1
	`

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list follower ids: %w", err)
	}

	return ids, nil
}

// FollowingIDs lists the ids of accounts userID follows
func (r *relationshipRepository) FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT f.following_id FROM followings f
		JOIN users u ON u.id = f.following_id AND u.deleted = FALSE
		WHERE f.user_id = $1
	`

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list following ids: %w", err)
	}

	return ids, nil
}

// CreateBlock inserts a block edge inside the caller's transaction;
// reports false when the edge already exists.
func (r *relationshipRepository) CreateBlock(ctx context.Context, tx *sqlx.Tx, userID, blockedID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO blocks (id, user_id, blocked_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, blocked_id) DO NOTHING
	`

	result, err := tx.ExecContext(ctx, query, uuid.New(), userID, blockedID)
	if err != nil {
		return false, fmt.Errorf("failed to insert block: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// DeleteBlock removes a block edge
func (r *relationshipRepository) DeleteBlock(ctx context.Context, userID, blockedID uuid.UUID) error {
	query := `DELETE FROM blocks WHERE user_id = $1 AND blocked_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, blockedID); err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}

	return nil
}

// BlockExists checks whether userID has blocked blockedID
func (r *relationshipRepository) BlockExists(ctx context.Context, userID, blockedID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM blocks WHERE user_id = $1 AND blocked_id = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, blockedID); err != nil {
		return false, fmt.Errorf("failed to check block existence: %w", err)
	}

	return exists, nil
}

// ListBlocked lists the accounts userID has blocked with full detail
func (r *relationshipRepository) ListBlocked(ctx context.Context, userID uuid.UUID) ([]model.ProfileDetail, error) {
	query := `
		SELECT ` + detailColumns + `
		FROM blocks b
		JOIN users u ON u.id = b.blocked_id AND u.deleted = FALSE` + detailJoins + `
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`

	var rows []detailRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list blocked users: %w", err)
	}

	return toDetails(rows), nil
}

// BlockedIDs lists the ids userID has blocked
func (r *relationshipRepository) BlockedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT blocked_id FROM blocks WHERE user_id = $1`

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list blocked ids: %w", err)
	}

	return ids, nil
}

// BlockerIDs lists the ids of users who blocked userID
func (r *relationshipRepository) BlockerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM blocks WHERE blocked_id = $1`

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list blocker ids: %w", err)
	}

	return ids, nil
}
