package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sociable/internal/model"
)

type resetCodeRepository struct {
	db *sqlx.DB
}

// NewResetCodeRepository creates a new password reset code repository
func NewResetCodeRepository(db *sqlx.DB) ResetCodeRepository {
	return &resetCodeRepository{db: db}
}

// Create inserts a reset code inside the caller's transaction
func (r *resetCodeRepository) Create(ctx context.Context, tx *sqlx.Tx, code *model.PasswordResetCode) error {
	query := `
		INSERT INTO password_reset_codes (id, user_id, code, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`

	err := tx.QueryRowxContext(ctx, query, code.ID, code.UserID, code.Code).Scan(&code.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reset code: %w", err)
	}

	return nil
}

// DeleteForUser removes every outstanding code of a user, keeping at most
// one live code per account.
func (r *resetCodeRepository) DeleteForUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	query := `DELETE FROM password_reset_codes WHERE user_id = $1`

	if _, err := tx.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete reset codes for user: %w", err)
	}

	return nil
}

// FindByCodeForUpdate returns every row matching the code value, locked
// FOR UPDATE so concurrent redemptions serialize.
func (r *resetCodeRepository) FindByCodeForUpdate(ctx context.Context, tx *sqlx.Tx, code string) ([]model.PasswordResetCode, error) {
	query := `
		SELECT id, user_id, code, created_at
		FROM password_reset_codes
		WHERE code = $1
		FOR UPDATE
	`

	var codes []model.PasswordResetCode
	if err := tx.SelectContext(ctx, &codes, query, code); err != nil {
		return nil, fmt.Errorf("failed to find reset code: %w", err)
	}

	return codes, nil
}

// Delete removes one code row
func (r *resetCodeRepository) Delete(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	query := `DELETE FROM password_reset_codes WHERE id = $1`

	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete reset code: %w", err)
	}

	return nil
}

// DeleteByCode removes every row sharing a code value. Used to self-heal
// when the at-most-one invariant is found violated.
func (r *resetCodeRepository) DeleteByCode(ctx context.Context, tx *sqlx.Tx, code string) error {
	query := `DELETE FROM password_reset_codes WHERE code = $1`

	if _, err := tx.ExecContext(ctx, query, code); err != nil {
		return fmt.Errorf("failed to delete reset codes by value: %w", err)
	}

	return nil
}
