package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sociable/internal/model"
)

// profileRepository implements ProfileRepository using sqlx
type profileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Create inserts a profile inside the caller's transaction
func (r *profileRepository) Create(ctx context.Context, tx *sqlx.Tx, p *model.Profile) error {
	query := `
		INSERT INTO profiles (id, user_id, bio, photo, is_public, location, social_links, views, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	row := tx.QueryRowxContext(ctx, query,
		p.ID,
		p.UserID,
		p.Bio,
		p.Photo,
		p.IsPublic,
		p.Location,
		p.SocialLinks,
		p.Views,
	)

	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	return nil
}

// CreatePrivacy inserts a privacy record inside the caller's transaction
func (r *profileRepository) CreatePrivacy(ctx context.Context, tx *sqlx.Tx, pp *model.ProfilePrivacy) error {
	query := `
		INSERT INTO profile_privacy (id, profile_id, show_email, show_photo, show_bio, show_location, show_social_links, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	row := tx.QueryRowxContext(ctx, query,
		pp.ID,
		pp.ProfileID,
		pp.ShowEmail,
		pp.ShowPhoto,
		pp.ShowBio,
		pp.ShowLocation,
		pp.ShowSocialLinks,
	)

	if err := row.Scan(&pp.CreatedAt, &pp.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert profile privacy: %w", err)
	}

	return nil
}

// GetByUserID retrieves the profile owned by a user
func (r *profileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	query := `
		SELECT id, user_id, bio, photo, is_public, location, social_links, views, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	var p model.Profile
	err := r.db.GetContext(ctx, &p, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile by user id: %w", err)
	}

	return &p, nil
}

// GetPrivacyByProfileID retrieves the privacy flags of a profile
func (r *profileRepository) GetPrivacyByProfileID(ctx context.Context, profileID uuid.UUID) (*model.ProfilePrivacy, error) {
	query := `
		SELECT id, profile_id, show_email, show_photo, show_bio, show_location, show_social_links, created_at, updated_at
		FROM profile_privacy
		WHERE profile_id = $1
	`

	var pp model.ProfilePrivacy
	err := r.db.GetContext(ctx, &pp, query, profileID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrPrivacyNotFound
		}
		return nil, fmt.Errorf("failed to get profile privacy: %w", err)
	}

	return &pp, nil
}

// GetDetailBySlug loads user, profile and privacy in one query
func (r *profileRepository) GetDetailBySlug(ctx context.Context, slug string) (*model.ProfileDetail, error) {
	query := `
		SELECT ` + detailColumns + `
		FROM users u` + detailJoins + `
		WHERE u.slug = $1 AND u.deleted = FALSE
	`

	var row detailRow
	err := r.db.GetContext(ctx, &row, query, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get profile detail: %w", err)
	}

	if row.ProfileID == nil {
		return nil, model.ErrProfileNotFound
	}
	if row.PrivacyID == nil {
		return nil, model.ErrPrivacyNotFound
	}

	detail := row.toDetail()
	return &detail, nil
}

// Update persists the mutable profile fields
func (r *profileRepository) Update(ctx context.Context, p *model.Profile) error {
	query := `
		UPDATE profiles
		SET bio = $1, photo = $2, is_public = $3, location = $4, social_links = $5, updated_at = NOW()
		WHERE id = $6
	`

	result, err := r.db.ExecContext(ctx, query, p.Bio, p.Photo, p.IsPublic, p.Location, p.SocialLinks, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrProfileNotFound
	}

	return nil
}

// UpdatePrivacy persists the privacy flags
func (r *profileRepository) UpdatePrivacy(ctx context.Context, pp *model.ProfilePrivacy) error {
	query := `
		UPDATE profile_privacy
		SET show_email = $1, show_photo = $2, show_bio = $3, show_location = $4, show_social_links = $5, updated_at = NOW()
		WHERE id = $6
	`

	result, err := r.db.ExecContext(ctx, query, pp.ShowEmail, pp.ShowPhoto, pp.ShowBio, pp.ShowLocation, pp.ShowSocialLinks, pp.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile privacy: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPrivacyNotFound
	}

	return nil
}

// IncrementViews bumps the profile view counter
func (r *profileRepository) IncrementViews(ctx context.Context, profileID uuid.UUID) error {
	query := `UPDATE profiles SET views = views + 1 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, profileID); err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}

	return nil
}

// List pages through profiles visible to the viewer. The viewer's own row
// and any pair with a block in either direction are excluded; q matches
// username or bio, case-insensitively.
func (r *profileRepository) List(ctx context.Context, viewerID uuid.UUID, q string, page, perPage int) ([]model.ProfileDetail, int, error) {
	where := `
		WHERE u.deleted = FALSE
		  AND u.id <> $1
		  AND NOT EXISTS (
			SELECT 1 FROM blocks b
			WHERE (b.user_id = $1 AND b.blocked_id = u.id)
			   OR (b.user_id = u.id AND b.blocked_id = $1)
		  )
		  AND ($2 = '' OR u.username ILIKE '%' || $2 || '%' OR p.bio ILIKE '%' || $2 || '%')
	`

	countQuery := `SELECT COUNT(*) FROM users u` + detailJoins + where

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, viewerID, q); err != nil {
		return nil, 0, fmt.Errorf("failed to count profiles: %w", err)
	}

	query := `
		SELECT ` + detailColumns + `
		FROM users u` + detailJoins + where + `
		ORDER BY u.username ASC
		LIMIT $3 OFFSET $4
	`

	var rows []detailRow
	offset := (page - 1) * perPage
	if err := r.db.SelectContext(ctx, &rows, query, viewerID, q, perPage, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	return toDetails(rows), total, nil
}
