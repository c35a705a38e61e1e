package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sociable/internal/model"
	"sociable/internal/queue"
)

type userServiceFixture struct {
	users       *mockUserRepo
	profiles    *mockProfileRepo
	resets      *mockResetRepo
	refresh     *mockRefreshRepo
	publisher   *mockPublisher
	mailer      *mockMailer
	dbMock      sqlmock.Sqlmock
	svc         *UserService
	authService *AuthService
}

func newUserServiceFixture(t *testing.T) *userServiceFixture {
	t.Helper()
	db, dbMock := newTestDB(t)

	f := &userServiceFixture{
		users:     &mockUserRepo{},
		profiles:  &mockProfileRepo{},
		resets:    &mockResetRepo{},
		refresh:   newMockRefreshRepo(),
		publisher: &mockPublisher{},
		mailer:    &mockMailer{},
		dbMock:    dbMock,
	}
	f.authService = NewAuthService(f.refresh, f.users, "test-secret", 15*time.Minute, 720*time.Hour, zap.NewNop())
	f.svc = NewUserService(f.users, f.profiles, f.resets, f.authService, db, f.publisher, f.mailer, zap.NewNop())
	return f
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

// =============================================================================
// SIGNUP
// =============================================================================

func TestUserService_Signup_Success(t *testing.T) {
	// ARRANGE
	f := newUserServiceFixture(t)
	f.dbMock.ExpectBegin()
	f.dbMock.ExpectCommit()

	req := model.SignupRequest{
		Username: "New User",
		Email:    "new@example.com",
		Password: "Password1#",
	}

	// ACT
	user, pair, err := f.svc.Signup(context.Background(), req)

	// ASSERT
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if user == nil || pair == nil {
		t.Fatal("expected user and token pair")
	}
	if user.Slug != "new-user" {
		t.Errorf("slug = %q, want %q", user.Slug, "new-user")
	}
	if user.PasswordHash == req.Password {
		t.Error("password should be hashed, not stored in plain text")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("expected both tokens to be issued")
	}

	// User, profile and privacy rows all created in the transaction.
	if len(f.users.createCalls) != 1 {
		t.Fatalf("user creates = %d, want 1", len(f.users.createCalls))
	}
	if len(f.profiles.profileCreates) != 1 || len(f.profiles.privacyCreates) != 1 {
		t.Errorf("profile creates = %d, privacy creates = %d, want 1 each",
			len(f.profiles.profileCreates), len(f.profiles.privacyCreates))
	}
	if f.profiles.profileCreates[0].UserID != user.ID {
		t.Error("profile should belong to the created user")
	}

	// Lifecycle event published after commit.
	if len(f.publisher.published) != 1 {
		t.Fatalf("published events = %d, want 1", len(f.publisher.published))
	}
	event, ok := f.publisher.published[0].event.(queue.UserEvent)
	if !ok {
		t.Fatalf("published event type = %T, want queue.UserEvent", f.publisher.published[0].event)
	}
	if event.Type != queue.EventUserCreated {
		t.Errorf("event type = %q, want %q", event.Type, queue.EventUserCreated)
	}

	if err := f.dbMock.ExpectationsWereMet(); err != nil {
		t.Errorf("db expectations: %v", err)
	}
}

func TestUserService_Signup_UsernameTaken(t *testing.T) {
	f := newUserServiceFixture(t)
	f.users.existsByUsernameFn = func(ctx context.Context, username string) (bool, error) {
		return true, nil
	}

	_, _, err := f.svc.Signup(context.Background(), model.SignupRequest{
		Username: "taken",
		Email:    "x@example.com",
		Password: "Password1#",
	})

	if !errors.Is(err, model.ErrUsernameExists) {
		t.Fatalf("error = %v, want ErrUsernameExists", err)
	}
	if len(f.users.createCalls) != 0 {
		t.Error("no user should be created")
	}
}

func TestUserService_Signup_EmailTakenByLiveAccount(t *testing.T) {
	f := newUserServiceFixture(t)
	f.users.getByEmailAnyStateFn = func(ctx context.Context, email string) (*model.User, error) {
		return &model.User{ID: uuid.New(), Email: email}, nil
	}

	_, _, err := f.svc.Signup(context.Background(), model.SignupRequest{
		Username: "fresh",
		Email:    "taken@example.com",
		Password: "Password1#",
	})

	if !errors.Is(err, model.ErrEmailExists) {
		t.Fatalf("error = %v, want ErrEmailExists", err)
	}
}

func TestUserService_Signup_ReplacesSoftDeletedAccount(t *testing.T) {
	// A soft-deleted account holding the email is hard-deleted in the same
	// transaction that creates the new one.
	f := newUserServiceFixture(t)
	staleID := uuid.New()
	f.users.getByEmailAnyStateFn = func(ctx context.Context, email string) (*model.User, error) {
		return &model.User{ID: staleID, Email: email, Deleted: true}, nil
	}
	f.dbMock.ExpectBegin()
	f.dbMock.ExpectCommit()

	user, _, err := f.svc.Signup(context.Background(), model.SignupRequest{
		Username: "returning",
		Email:    "back@example.com",
		Password: "Password1#",
	})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(f.users.hardDeleteCalls) != 1 || f.users.hardDeleteCalls[0] != staleID {
		t.Errorf("hard deletes = %v, want exactly [%s]", f.users.hardDeleteCalls, staleID)
	}
	if len(f.users.createCalls) != 1 {
		t.Fatalf("user creates = %d, want 1", len(f.users.createCalls))
	}
	if user.ID == staleID {
		t.Error("new account must get a fresh id")
	}
	if err := f.dbMock.ExpectationsWereMet(); err != nil {
		t.Errorf("db expectations: %v", err)
	}
}

// =============================================================================
// LOGIN
// =============================================================================

func TestUserService_Login(t *testing.T) {
	hash := hashPassword(t, "Password1#")
	account := &model.User{
		ID:           uuid.New(),
		Username:     "alice",
		Slug:         "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		IsActive:     true,
	}

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{name: "by username", identifier: "alice", password: "Password1#"},
		{name: "by email", identifier: "alice@example.com", password: "Password1#"},
		{name: "unknown identifier", identifier: "nobody", password: "Password1#", wantErr: model.ErrInvalidCredentials},
		{name: "wrong password", identifier: "alice", password: "wrong", wantErr: model.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserServiceFixture(t)
			f.users.getByUsernameFn = func(ctx context.Context, username string) (*model.User, error) {
				if username == account.Username {
					return account, nil
				}
				return nil, model.ErrUserNotFound
			}
			f.users.getByEmailFn = func(ctx context.Context, email string) (*model.User, error) {
				if email == account.Email {
					return account, nil
				}
				return nil, model.ErrUserNotFound
			}

			user, pair, err := f.svc.Login(context.Background(), model.LoginRequest{
				LoginIdentifier: tt.identifier,
				Password:        tt.password,
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if user.ID != account.ID {
				t.Error("wrong account returned")
			}
			if pair == nil || pair.AccessToken == "" {
				t.Error("expected issued tokens")
			}
		})
	}
}

// =============================================================================
// UPDATE / DELETE
// =============================================================================

func TestUserService_Update_NothingToUpdate(t *testing.T) {
	f := newUserServiceFixture(t)

	_, err := f.svc.Update(context.Background(), uuid.New(), model.UserUpdateRequest{})

	if !errors.Is(err, model.ErrNothingToUpdate) {
		t.Fatalf("error = %v, want ErrNothingToUpdate", err)
	}
}

func TestUserService_Update_EmailConflict(t *testing.T) {
	f := newUserServiceFixture(t)
	userID := uuid.New()
	f.users.getByIDFn = func(ctx context.Context, id uuid.UUID) (*model.User, error) {
		return &model.User{ID: userID, Email: "old@example.com"}, nil
	}
	f.users.getByEmailAnyStateFn = func(ctx context.Context, email string) (*model.User, error) {
		return &model.User{ID: uuid.New(), Email: email}, nil
	}

	newEmail := "other@example.com"
	_, err := f.svc.Update(context.Background(), userID, model.UserUpdateRequest{Email: &newEmail})

	if !errors.Is(err, model.ErrEmailExists) {
		t.Fatalf("error = %v, want ErrEmailExists", err)
	}
}

func TestUserService_Update_ChangesPassword(t *testing.T) {
	f := newUserServiceFixture(t)
	userID := uuid.New()
	f.users.getByIDFn = func(ctx context.Context, id uuid.UUID) (*model.User, error) {
		return &model.User{ID: userID, Email: "a@example.com", PasswordHash: "old-hash"}, nil
	}

	password := "Password1#"
	user, err := f.svc.Update(context.Background(), userID, model.UserUpdateRequest{Password: &password})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if user.PasswordHash == "old-hash" || user.PasswordHash == password {
		t.Error("password hash should change and not be plain text")
	}
	if len(f.publisher.published) != 1 {
		t.Errorf("published events = %d, want 1", len(f.publisher.published))
	}
}

func TestUserService_SoftDelete(t *testing.T) {
	f := newUserServiceFixture(t)
	userID := uuid.New()
	f.users.getByIDFn = func(ctx context.Context, id uuid.UUID) (*model.User, error) {
		return &model.User{ID: userID, Username: "gone", Slug: "gone", Email: "gone@example.com"}, nil
	}

	if err := f.svc.SoftDelete(context.Background(), userID); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(f.refresh.userRevokes) != 1 || f.refresh.userRevokes[0] != userID {
		t.Errorf("token revocations = %v, want [%s]", f.refresh.userRevokes, userID)
	}
	if len(f.publisher.published) != 1 {
		t.Fatalf("published events = %d, want 1", len(f.publisher.published))
	}
	event := f.publisher.published[0].event.(queue.UserEvent)
	if event.Type != queue.EventUserDeleted {
		t.Errorf("event type = %q, want %q", event.Type, queue.EventUserDeleted)
	}
}

// =============================================================================
// PASSWORD RESET FLOW
// =============================================================================

func TestUserService_PasswordForgot_UnknownEmail(t *testing.T) {
	// Unknown emails get the same answer as known ones so accounts cannot
	// be enumerated.
	f := newUserServiceFixture(t)

	expiresAt, err := f.svc.PasswordForgot(context.Background(), "nobody@example.com")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if expiresAt.IsZero() {
		t.Error("expected a plausible expiry even for unknown emails")
	}
	if len(f.mailer.sent) != 0 {
		t.Error("no mail should be sent for unknown emails")
	}
	if len(f.resets.creates) != 0 {
		t.Error("no code should be stored for unknown emails")
	}
}

func TestUserService_PasswordForgot_Success(t *testing.T) {
	f := newUserServiceFixture(t)
	userID := uuid.New()
	f.users.getByEmailFn = func(ctx context.Context, email string) (*model.User, error) {
		return &model.User{ID: userID, Email: email, IsActive: true}, nil
	}
	f.dbMock.ExpectBegin()
	f.dbMock.ExpectCommit()

	expiresAt, err := f.svc.PasswordForgot(context.Background(), "alice@example.com")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if time.Until(expiresAt) > model.ResetCodeTTL {
		t.Error("expiry should be within the code TTL")
	}

	// Previous codes purged, one fresh code stored.
	if len(f.resets.userDeletes) != 1 || f.resets.userDeletes[0] != userID {
		t.Errorf("per-user purges = %v, want [%s]", f.resets.userDeletes, userID)
	}
	if len(f.resets.creates) != 1 {
		t.Fatalf("stored codes = %d, want 1", len(f.resets.creates))
	}
	code := f.resets.creates[0].Code
	if len(code) != 6 {
		t.Errorf("code length = %d, want 6", len(code))
	}

	if len(f.mailer.sent) != 1 {
		t.Fatalf("mails sent = %d, want 1", len(f.mailer.sent))
	}
	if !strings.Contains(f.mailer.sent[0].body, code) {
		t.Error("mail body should carry the code")
	}
	if err := f.dbMock.ExpectationsWereMet(); err != nil {
		t.Errorf("db expectations: %v", err)
	}
}

func TestUserService_PasswordReset_Success(t *testing.T) {
	f := newUserServiceFixture(t)
	userID := uuid.New()
	codeID := uuid.New()
	f.resets.findByCodeFn = func(ctx context.Context, code string) ([]model.PasswordResetCode, error) {
		return []model.PasswordResetCode{{ID: codeID, UserID: userID, Code: code, CreatedAt: time.Now()}}, nil
	}
	f.users.getByIDFn = func(ctx context.Context, id uuid.UUID) (*model.User, error) {
		return &model.User{ID: userID, IsActive: true}, nil
	}
	f.dbMock.ExpectBegin()
	f.dbMock.ExpectCommit()

	if err := f.svc.PasswordReset(context.Background(), "ABC123", "Password1#"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(f.users.passwordUpdates) != 1 || f.users.passwordUpdates[0] != userID {
		t.Errorf("password updates = %v, want [%s]", f.users.passwordUpdates, userID)
	}
	if len(f.resets.codeRowDeletes) != 1 || f.resets.codeRowDeletes[0] != codeID {
		t.Errorf("consumed codes = %v, want [%s]", f.resets.codeRowDeletes, codeID)
	}
	if len(f.refresh.userRevokes) != 1 {
		t.Error("all sessions should be revoked after a reset")
	}
	if err := f.dbMock.ExpectationsWereMet(); err != nil {
		t.Errorf("db expectations: %v", err)
	}
}

func TestUserService_PasswordReset_NotFound(t *testing.T) {
	f := newUserServiceFixture(t)
	f.dbMock.ExpectBegin()
	f.dbMock.ExpectRollback()

	err := f.svc.PasswordReset(context.Background(), "NOSUCH", "Password1#")

	if !errors.Is(err, model.ErrResetCodeNotFound) {
		t.Fatalf("error = %v, want ErrResetCodeNotFound", err)
	}
}

func TestUserService_PasswordReset_DuplicateCodesPurged(t *testing.T) {
	// Several rows sharing one code value violate the at-most-one invariant.
	// The redemption fails but the purge commits, so a freshly requested
	// code works on the next attempt.
	f := newUserServiceFixture(t)
	f.resets.findByCodeFn = func(ctx context.Context, code string) ([]model.PasswordResetCode, error) {
		return []model.PasswordResetCode{
			{ID: uuid.New(), UserID: uuid.New(), Code: code, CreatedAt: time.Now()},
			{ID: uuid.New(), UserID: uuid.New(), Code: code, CreatedAt: time.Now()},
		}, nil
	}
	f.dbMock.ExpectBegin()
	f.dbMock.ExpectCommit()

	err := f.svc.PasswordReset(context.Background(), "DUPES1", "Password1#")

	if !errors.Is(err, model.ErrResetCodeConflict) {
		t.Fatalf("error = %v, want ErrResetCodeConflict", err)
	}
	if len(f.resets.valueDeletes) != 1 || f.resets.valueDeletes[0] != "DUPES1" {
		t.Errorf("value purges = %v, want [DUPES1]", f.resets.valueDeletes)
	}
	if len(f.users.passwordUpdates) != 0 {
		t.Error("no password should change")
	}
	if err := f.dbMock.ExpectationsWereMet(); err != nil {
		t.Errorf("db expectations: %v", err)
	}
}

func TestUserService_PasswordReset_Expired(t *testing.T) {
	// Expired codes are deleted on sight; the deletion commits even though
	// the redemption fails.
	f := newUserServiceFixture(t)
	codeID := uuid.New()
	f.resets.findByCodeFn = func(ctx context.Context, code string) ([]model.PasswordResetCode, error) {
		return []model.PasswordResetCode{{
			ID:        codeID,
			UserID:    uuid.New(),
			Code:      code,
			CreatedAt: time.Now().Add(-model.ResetCodeTTL - time.Minute),
		}}, nil
	}
	f.dbMock.ExpectBegin()
	f.dbMock.ExpectCommit()

	err := f.svc.PasswordReset(context.Background(), "OLDOLD", "Password1#")

	if !errors.Is(err, model.ErrResetCodeExpired) {
		t.Fatalf("error = %v, want ErrResetCodeExpired", err)
	}
	if len(f.resets.codeRowDeletes) != 1 || f.resets.codeRowDeletes[0] != codeID {
		t.Errorf("deleted codes = %v, want [%s]", f.resets.codeRowDeletes, codeID)
	}
	if err := f.dbMock.ExpectationsWereMet(); err != nil {
		t.Errorf("db expectations: %v", err)
	}
}
