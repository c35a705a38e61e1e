package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sociable/internal/mail"
	"sociable/internal/metrics"
	"sociable/internal/model"
	"sociable/internal/queue"
	"sociable/internal/repository"
)

// UserService owns the account lifecycle: signup, login, updates, soft
// deletion and the password reset flow. Lifecycle changes publish an event
// after commit so downstream services can mirror account data.
type UserService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	resetRepo   repository.ResetCodeRepository
	auth        *AuthService
	db          *sqlx.DB
	publisher   queue.Publisher
	mailer      mail.Sender
	logger      *zap.Logger
}

func NewUserService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	resetRepo repository.ResetCodeRepository,
	auth *AuthService,
	db *sqlx.DB,
	publisher queue.Publisher,
	mailer mail.Sender,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		resetRepo:   resetRepo,
		auth:        auth,
		db:          db,
		publisher:   publisher,
		mailer:      mailer,
		logger:      logger,
	}
}

// Signup creates a user with their profile and privacy defaults in one
// transaction. Re-signup with the email of a soft-deleted account replaces
// the stale row inside the same transaction, so exactly one live row
// remains either way.
func (s *UserService) Signup(ctx context.Context, req model.SignupRequest) (*model.User, *model.TokenPair, error) {
	taken, err := s.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, nil, err
	}
	if taken {
		return nil, nil, model.ErrUsernameExists
	}

	var staleID *uuid.UUID
	existing, err := s.userRepo.GetByEmailAnyState(ctx, req.Email)
	switch {
	case err == nil && !existing.Deleted:
		return nil, nil, model.ErrEmailExists
	case err == nil:
		staleID = &existing.ID
	case !errors.Is(err, model.ErrUserNotFound):
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := model.NewUser(req.Username, req.Email, string(hash))
	profile := model.NewProfile(user.ID)
	privacy := model.NewProfilePrivacy(profile.ID)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if staleID != nil {
		if err := s.userRepo.HardDelete(ctx, tx, *staleID); err != nil {
			return nil, nil, err
		}
	}

	if err := s.userRepo.Create(ctx, tx, user); err != nil {
		return nil, nil, err
	}
	if err := s.profileRepo.Create(ctx, tx, profile); err != nil {
		return nil, nil, err
	}
	if err := s.profileRepo.CreatePrivacy(ctx, tx, privacy); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}

	metrics.NewUsersTotal.Inc()
	s.publishUserEvent(ctx, queue.EventUserCreated, user)

	pair, err := s.auth.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Login authenticates by username or email. Unknown identifier and wrong
// password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (*model.User, *model.TokenPair, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.LoginIdentifier)
	if errors.Is(err, model.ErrUserNotFound) {
		user, err = s.userRepo.GetByEmail(ctx, req.LoginIdentifier)
	}
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
			return nil, nil, model.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		return nil, nil, model.ErrInvalidCredentials
	}

	pair, err := s.auth.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return user, pair, nil
}

// Get loads a live account by id.
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// Update changes the email and/or password of an account. Anything else is
// immutable after signup; a request carrying neither field is rejected.
func (s *UserService) Update(ctx context.Context, userID uuid.UUID, req model.UserUpdateRequest) (*model.User, error) {
	if req.Email == nil && req.Password == nil {
		return nil, model.ErrNothingToUpdate
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		other, err := s.userRepo.GetByEmailAnyState(ctx, *req.Email)
		if err == nil && other.ID != userID {
			return nil, model.ErrEmailExists
		}
		if err != nil && !errors.Is(err, model.ErrUserNotFound) {
			return nil, err
		}
		user.Email = *req.Email
	}

	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.publishUserEvent(ctx, queue.EventUserUpdated, user)
	return user, nil
}

// SoftDelete marks the account deleted, revokes its refresh tokens and
// publishes the delete event. A second delete of the same account is a 404.
func (s *UserService) SoftDelete(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.userRepo.SoftDelete(ctx, userID); err != nil {
		return err
	}

	if err := s.auth.RevokeAll(ctx, userID); err != nil {
		s.logger.Error("failed to revoke tokens on delete",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	metrics.UsersDeletedTotal.Inc()
	s.publishUserEvent(ctx, queue.EventUserDeleted, user)
	return nil
}

// PasswordForgot issues a fresh reset code and mails it. The outcome is the
// same whether or not the email exists, so accounts cannot be enumerated.
// Returns the moment the code stops being redeemable.
func (s *UserService) PasswordForgot(ctx context.Context, email string) (time.Time, error) {
	metrics.PasswordResetRequestsTotal.Inc()
	expiresAt := time.Now().Add(model.ResetCodeTTL)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return expiresAt, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	code, err := GenerateResetCode()
	if err != nil {
		return time.Time{}, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.resetRepo.DeleteForUser(ctx, tx, user.ID); err != nil {
		return time.Time{}, err
	}

	resetCode := &model.PasswordResetCode{
		ID:     uuid.New(),
		UserID: user.ID,
		Code:   code,
	}
	if err := s.resetRepo.Create(ctx, tx, resetCode); err != nil {
		return time.Time{}, err
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("commit transaction: %w", err)
	}

	// Best effort: a mail failure never fails the request.
	body := fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.",
		code, int(model.ResetCodeTTL.Minutes()))
	if err := s.mailer.Send(user.Email, "Password reset code", body); err != nil {
		s.logger.Error("failed to send reset code mail",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}

	return expiresAt, nil
}

// PasswordReset redeems a code. The lookup locks the row, so two concurrent
// redemptions of one code serialize and the loser sees it gone. Finding
// several rows sharing one code violates the at-most-one invariant; the
// rows are purged so a freshly requested code succeeds on retry.
func (s *UserService) PasswordReset(ctx context.Context, code, password string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	codes, err := s.resetRepo.FindByCodeForUpdate(ctx, tx, code)
	if err != nil {
		return err
	}

	switch {
	case len(codes) == 0:
		return model.ErrResetCodeNotFound
	case len(codes) > 1:
		if err := s.resetRepo.DeleteByCode(ctx, tx, code); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		s.logger.Error("purged duplicate reset codes", zap.Int("count", len(codes)))
		return model.ErrResetCodeConflict
	}

	resetCode := codes[0]
	if resetCode.Expired(time.Now()) {
		if err := s.resetRepo.Delete(ctx, tx, resetCode.ID); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return model.ErrResetCodeExpired
	}

	user, err := s.userRepo.GetByID(ctx, resetCode.UserID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return model.ErrUserNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, tx, user.ID, string(hash)); err != nil {
		return err
	}
	if err := s.resetRepo.Delete(ctx, tx, resetCode.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	if err := s.auth.RevokeAll(ctx, user.ID); err != nil {
		s.logger.Error("failed to revoke tokens after reset",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}

	return nil
}

func (s *UserService) publishUserEvent(ctx context.Context, eventType string, user *model.User) {
	if s.publisher == nil {
		return
	}

	event := queue.NewUserEvent(eventType, user)
	if _, err := s.publisher.Publish(ctx, queue.StreamUserEvents, event); err != nil {
		s.logger.Error("failed to publish user event",
			zap.String("type", eventType),
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}
}
