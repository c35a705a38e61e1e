package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"sociable/internal/model"
	"sociable/internal/queue"
)

// The services depend on the repository interfaces, so tests swap in mocks
// with per-test function fields. Transactions still run against a sqlmock
// database: the mocks ignore the *sqlx.Tx they receive, and the sqlmock
// expectations verify begin/commit ordering.

func newTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

type mockUserRepo struct {
	createFn             func(ctx context.Context, user *model.User) error
	getByIDFn            func(ctx context.Context, id uuid.UUID) (*model.User, error)
	getBySlugFn          func(ctx context.Context, slug string) (*model.User, error)
	getByUsernameFn      func(ctx context.Context, username string) (*model.User, error)
	getByEmailFn         func(ctx context.Context, email string) (*model.User, error)
	getByEmailAnyStateFn func(ctx context.Context, email string) (*model.User, error)
	existsByUsernameFn   func(ctx context.Context, username string) (bool, error)
	updateFn             func(ctx context.Context, user *model.User) error
	updatePasswordFn     func(ctx context.Context, id uuid.UUID, hash string) error
	softDeleteFn         func(ctx context.Context, id uuid.UUID) error

	createCalls     []*model.User
	hardDeleteCalls []uuid.UUID
	passwordUpdates []uuid.UUID
}

func (m *mockUserRepo) Create(ctx context.Context, _ *sqlx.Tx, user *model.User) error {
	m.createCalls = append(m.createCalls, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) GetBySlug(ctx context.Context, slug string) (*model.User, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) GetByEmailAnyState(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailAnyStateFn != nil {
		return m.getByEmailAnyStateFn(ctx, email)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, _ *sqlx.Tx, id uuid.UUID, hash string) error {
	m.passwordUpdates = append(m.passwordUpdates, id)
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, hash)
	}
	return nil
}

func (m *mockUserRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) HardDelete(_ context.Context, _ *sqlx.Tx, id uuid.UUID) error {
	m.hardDeleteCalls = append(m.hardDeleteCalls, id)
	return nil
}

type mockProfileRepo struct {
	getByUserIDFn           func(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	getPrivacyByProfileIDFn func(ctx context.Context, profileID uuid.UUID) (*model.ProfilePrivacy, error)
	getDetailBySlugFn       func(ctx context.Context, slug string) (*model.ProfileDetail, error)
	listFn                  func(ctx context.Context, viewerID uuid.UUID, q string, page, perPage int) ([]model.ProfileDetail, int, error)
	updateFn                func(ctx context.Context, profile *model.Profile) error
	updatePrivacyFn         func(ctx context.Context, privacy *model.ProfilePrivacy) error

	profileCreates []*model.Profile
	privacyCreates []*model.ProfilePrivacy
	viewIncrements []uuid.UUID
}

func (m *mockProfileRepo) Create(_ context.Context, _ *sqlx.Tx, profile *model.Profile) error {
	m.profileCreates = append(m.profileCreates, profile)
	return nil
}

func (m *mockProfileRepo) CreatePrivacy(_ context.Context, _ *sqlx.Tx, privacy *model.ProfilePrivacy) error {
	m.privacyCreates = append(m.privacyCreates, privacy)
	return nil
}

func (m *mockProfileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	if m.getByUserIDFn != nil {
		return m.getByUserIDFn(ctx, userID)
	}
	return nil, model.ErrProfileNotFound
}

func (m *mockProfileRepo) GetPrivacyByProfileID(ctx context.Context, profileID uuid.UUID) (*model.ProfilePrivacy, error) {
	if m.getPrivacyByProfileIDFn != nil {
		return m.getPrivacyByProfileIDFn(ctx, profileID)
	}
	return nil, model.ErrPrivacyNotFound
}

func (m *mockProfileRepo) GetDetailBySlug(ctx context.Context, slug string) (*model.ProfileDetail, error) {
	if m.getDetailBySlugFn != nil {
		return m.getDetailBySlugFn(ctx, slug)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockProfileRepo) Update(ctx context.Context, profile *model.Profile) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, profile)
	}
	return nil
}

func (m *mockProfileRepo) UpdatePrivacy(ctx context.Context, privacy *model.ProfilePrivacy) error {
	if m.updatePrivacyFn != nil {
		return m.updatePrivacyFn(ctx, privacy)
	}
	return nil
}

func (m *mockProfileRepo) IncrementViews(_ context.Context, profileID uuid.UUID) error {
	m.viewIncrements = append(m.viewIncrements, profileID)
	return nil
}

func (m *mockProfileRepo) List(ctx context.Context, viewerID uuid.UUID, q string, page, perPage int) ([]model.ProfileDetail, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, viewerID, q, page, perPage)
	}
	return nil, 0, nil
}

type pair struct {
	a, b uuid.UUID
}

type mockRelationshipRepo struct {
	createRequestFn   func(ctx context.Context, request *model.FollowRequest) (bool, error)
	deleteRequestFn   func(ctx context.Context, userID, followingID uuid.UUID) (bool, error)
	requestExistsFn   func(ctx context.Context, userID, followingID uuid.UUID) (bool, error)
	incomingFn        func(ctx context.Context, userID uuid.UUID) ([]model.FollowRequestDetail, error)
	outgoingFn        func(ctx context.Context, userID uuid.UUID) ([]model.FollowRequestDetail, error)
	createFollowingFn func(ctx context.Context, userID, followingID uuid.UUID) (bool, error)
	deleteFollowingFn func(ctx context.Context, userID, followingID uuid.UUID) (bool, error)
	followingExistsFn func(ctx context.Context, userID, followingID uuid.UUID) (bool, error)
	countFollowersFn  func(ctx context.Context, userID uuid.UUID) (int, error)
	countFollowingsFn func(ctx context.Context, userID uuid.UUID) (int, error)
	listFollowersFn   func(ctx context.Context, userID uuid.UUID) ([]model.ProfileDetail, error)
	listFollowingsFn  func(ctx context.Context, userID uuid.UUID) ([]model.ProfileDetail, error)
	followerIDsFn     func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	followingIDsFn    func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	createBlockFn     func(ctx context.Context, userID, blockedID uuid.UUID) (bool, error)
	blockExistsFn     func(ctx context.Context, userID, blockedID uuid.UUID) (bool, error)
	listBlockedFn     func(ctx context.Context, userID uuid.UUID) ([]model.ProfileDetail, error)
	blockedIDsFn      func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	blockerIDsFn      func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	requestCreates          []*model.FollowRequest
	requestDeletes          []pair
	requestsBetweenDeletes  []pair
	followingCreates        []pair
	followingDeletes        []pair
	followingBetweenDeletes []pair
	blockCreates            []pair
	blockDeletes            []pair
}

func (m *mockRelationshipRepo) CreateRequest(ctx context.Context, request *model.FollowRequest) (bool, error) {
	m.requestCreates = append(m.requestCreates, request)
	if m.createRequestFn != nil {
		return m.createRequestFn(ctx, request)
	}
	return true, nil
}

func (m *mockRelationshipRepo) DeleteRequest(ctx context.Context, _ *sqlx.Tx, userID, followingID uuid.UUID) (bool, error) {
	m.requestDeletes = append(m.requestDeletes, pair{userID, followingID})
	if m.deleteRequestFn != nil {
		return m.deleteRequestFn(ctx, userID, followingID)
	}
	return false, nil
}

func (m *mockRelationshipRepo) DeleteRequestsBetween(_ context.Context, _ *sqlx.Tx, a, b uuid.UUID) error {
	m.requestsBetweenDeletes = append(m.requestsBetweenDeletes, pair{a, b})
	return nil
}

func (m *mockRelationshipRepo) RequestExists(ctx context.Context, userID, followingID uuid.UUID) (bool, error) {
	if m.requestExistsFn != nil {
		return m.requestExistsFn(ctx, userID, followingID)
	}
	return false, nil
}

func (m *mockRelationshipRepo) IncomingRequests(ctx context.Context, userID uuid.UUID) ([]model.FollowRequestDetail, error) {
	if m.incomingFn != nil {
		return m.incomingFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockRelationshipRepo) OutgoingRequests(ctx context.Context, userID uuid.UUID) ([]model.FollowRequestDetail, error) {
	if m.outgoingFn != nil {
		return m.outgoingFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockRelationshipRepo) CreateFollowing(ctx context.Context, _ *sqlx.Tx, userID, followingID uuid.UUID) (bool, error) {
	m.followingCreates = append(m.followingCreates, pair{userID, followingID})
	if m.createFollowingFn != nil {
		return m.createFollowingFn(ctx, userID, followingID)
	}
	return true, nil
}

func (m *mockRelationshipRepo) DeleteFollowing(ctx context.Context, _ *sqlx.Tx, userID, followingID uuid.UUID) (bool, error) {
	m.followingDeletes = append(m.followingDeletes, pair{userID, followingID})
	if m.deleteFollowingFn != nil {
		return m.deleteFollowingFn(ctx, userID, followingID)
	}
	return true, nil
}

func (m *mockRelationshipRepo) DeleteFollowingsBetween(_ context.Context, _ *sqlx.Tx, a, b uuid.UUID) error {
	m.followingBetweenDeletes = append(m.followingBetweenDeletes, pair{a, b})
	return nil
}

func (m *mockRelationshipRepo) FollowingExists(ctx context.Context, userID, followingID uuid.UUID) (bool, error) {
	if m.followingExistsFn != nil {
		return m.followingExistsFn(ctx, userID, followingID)
	}
	return false, nil
}

func (m *mockRelationshipRepo) CountFollowers(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.countFollowersFn != nil {
		return m.countFollowersFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockRelationshipRepo) CountFollowings(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.countFollowingsFn != nil {
		return m.countFollowingsFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockRelationshipRepo) ListFollowers(ctx context.Context, userID uuid.UUID) ([]model.ProfileDetail, error) {
	if m.listFollowersFn != nil {
		return m.listFollowersFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockRelationshipRepo) ListFollowings(ctx context.Context, userID uuid.UUID) ([]model.ProfileDetail, error) {
	if m.listFollowingsFn != nil {
		return m.listFollowingsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockRelationshipRepo) FollowerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if m.followerIDsFn != nil {
		return m.followerIDsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockRelationshipRepo) FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if m.followingIDsFn != nil {
		return m.followingIDsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockRelationshipRepo) CreateBlock(ctx context.Context, _ *sqlx.Tx, userID, blockedID uuid.UUID) (bool, error) {
	m.blockCreates = append(m.blockCreates, pair{userID, blockedID})
	if m.createBlockFn != nil {
		return m.createBlockFn(ctx, userID, blockedID)
	}
	return true, nil
}

func (m *mockRelationshipRepo) DeleteBlock(_ context.Context, userID, blockedID uuid.UUID) error {
	m.blockDeletes = append(m.blockDeletes, pair{userID, blockedID})
	return nil
}

func (m *mockRelationshipRepo) BlockExists(ctx context.Context, userID, blockedID uuid.UUID) (bool, error) {
	if m.blockExistsFn != nil {
		return m.blockExistsFn(ctx, userID, blockedID)
	}
	return false, nil
}

func (m *mockRelationshipRepo) ListBlocked(ctx context.Context, userID uuid.UUID) ([]model.ProfileDetail, error) {
	if m.listBlockedFn != nil {
		return m.listBlockedFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockRelationshipRepo) BlockedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if m.blockedIDsFn != nil {
		return m.blockedIDsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockRelationshipRepo) BlockerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if m.blockerIDsFn != nil {
		return m.blockerIDsFn(ctx, userID)
	}
	return nil, nil
}

type mockResetRepo struct {
	findByCodeFn func(ctx context.Context, code string) ([]model.PasswordResetCode, error)

	creates        []*model.PasswordResetCode
	userDeletes    []uuid.UUID
	codeRowDeletes []uuid.UUID
	valueDeletes   []string
}

func (m *mockResetRepo) Create(_ context.Context, _ *sqlx.Tx, code *model.PasswordResetCode) error {
	m.creates = append(m.creates, code)
	return nil
}

func (m *mockResetRepo) DeleteForUser(_ context.Context, _ *sqlx.Tx, userID uuid.UUID) error {
	m.userDeletes = append(m.userDeletes, userID)
	return nil
}

func (m *mockResetRepo) FindByCodeForUpdate(ctx context.Context, _ *sqlx.Tx, code string) ([]model.PasswordResetCode, error) {
	if m.findByCodeFn != nil {
		return m.findByCodeFn(ctx, code)
	}
	return nil, nil
}

func (m *mockResetRepo) Delete(_ context.Context, _ *sqlx.Tx, id uuid.UUID) error {
	m.codeRowDeletes = append(m.codeRowDeletes, id)
	return nil
}

func (m *mockResetRepo) DeleteByCode(_ context.Context, _ *sqlx.Tx, code string) error {
	m.valueDeletes = append(m.valueDeletes, code)
	return nil
}

type mockRefreshRepo struct {
	byHash map[string]*model.RefreshToken

	revocations []uuid.UUID
	userRevokes []uuid.UUID
}

func newMockRefreshRepo() *mockRefreshRepo {
	return &mockRefreshRepo{byHash: make(map[string]*model.RefreshToken)}
}

func (m *mockRefreshRepo) Create(_ context.Context, token *model.RefreshToken) error {
	token.CreatedAt = time.Now()
	m.byHash[token.TokenHash] = token
	return nil
}

func (m *mockRefreshRepo) FindByTokenHash(_ context.Context, hash string) (*model.RefreshToken, error) {
	token, ok := m.byHash[hash]
	if !ok {
		return nil, model.ErrRefreshTokenNotFound
	}
	return token, nil
}

func (m *mockRefreshRepo) Revoke(_ context.Context, id uuid.UUID, replacedBy *uuid.UUID) error {
	m.revocations = append(m.revocations, id)
	for _, token := range m.byHash {
		if token.ID == id {
			now := time.Now()
			token.RevokedAt = &now
			token.ReplacedBy = replacedBy
		}
	}
	return nil
}

func (m *mockRefreshRepo) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	m.userRevokes = append(m.userRevokes, userID)
	for _, token := range m.byHash {
		if token.UserID == userID && token.RevokedAt == nil {
			now := time.Now()
			token.RevokedAt = &now
		}
	}
	return nil
}

func (m *mockRefreshRepo) DeleteExpired(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

type publishedEvent struct {
	stream string
	event  queue.Mappable
}

type mockPublisher struct {
	published []publishedEvent
}

func (m *mockPublisher) Publish(_ context.Context, stream string, event queue.Mappable) (string, error) {
	m.published = append(m.published, publishedEvent{stream: stream, event: event})
	return "1-0", nil
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type mockMailer struct {
	sent []sentMail
}

func (m *mockMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}
