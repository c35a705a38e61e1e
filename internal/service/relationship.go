package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"sociable/internal/metrics"
	"sociable/internal/model"
	"sociable/internal/privacy"
	"sociable/internal/repository"
)

// RequestEntry is a pending follow request paired with the counterpart's
// projected standing, ready for the handlers.
type RequestEntry struct {
	ListEntry
	Message     *string
	RequestedAt time.Time
}

// RequestLists groups the two directions of a user's pending requests.
type RequestLists struct {
	Incoming []RequestEntry
	Outgoing []RequestEntry
}

// RelationshipService drives the per-ordered-pair state machine between two
// users: none, request pending, following, blocked. Every target is
// resolved by slug through the live-accounts filter, and every multi-write
// sequence runs in a single transaction.
type RelationshipService struct {
	userRepo         repository.UserRepository
	profileRepo      repository.ProfileRepository
	relationshipRepo repository.RelationshipRepository
	db               *sqlx.DB
	logger           *zap.Logger
}

func NewRelationshipService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	relationshipRepo repository.RelationshipRepository,
	db *sqlx.DB,
	logger *zap.Logger,
) *RelationshipService {
	return &RelationshipService{
		userRepo:         userRepo,
		profileRepo:      profileRepo,
		relationshipRepo: relationshipRepo,
		db:               db,
		logger:           logger,
	}
}

// RequestFollow records a pending follow request toward the user behind
// slug. Self-requests, requests toward a blocker, and duplicates are
// rejected.
func (s *RelationshipService) RequestFollow(ctx context.Context, viewer Viewer, slug string, message *string) error {
	target, err := s.userRepo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if target.ID == viewer.ID {
		return model.ErrSelfRelationship
	}

	if err := s.rejectIfBlockedBy(ctx, target.ID, viewer.ID); err != nil {
		return err
	}

	request := &model.FollowRequest{
		ID:          uuid.New(),
		UserID:      viewer.ID,
		FollowingID: target.ID,
		Message:     message,
	}
	created, err := s.relationshipRepo.CreateRequest(ctx, request)
	if err != nil {
		return err
	}
	if !created {
		return model.ErrAlreadyRequested
	}

	metrics.FollowRequestsTotal.Inc()
	return nil
}

// ListRequests returns the viewer's pending requests in both directions.
func (s *RelationshipService) ListRequests(ctx context.Context, viewer Viewer) (*RequestLists, error) {
	incoming, err := s.relationshipRepo.IncomingRequests(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	outgoing, err := s.relationshipRepo.OutgoingRequests(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	followed, err := s.followedSet(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	return &RequestLists{
		Incoming: s.requestEntries(viewer, incoming, followed),
		Outgoing: s.requestEntries(viewer, outgoing, followed),
	}, nil
}

// RespondToRequest accepts or rejects a pending request sent to the viewer.
// Either way the request row is consumed; acceptance creates the follow
// edge in the same transaction.
func (s *RelationshipService) RespondToRequest(ctx context.Context, viewer Viewer, requesterSlug string, accept bool) error {
	requester, err := s.userRepo.GetBySlug(ctx, requesterSlug)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleted, err := s.relationshipRepo.DeleteRequest(ctx, tx, requester.ID, viewer.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.ErrRequestNotFound
	}

	if accept {
		created, err := s.relationshipRepo.CreateFollowing(ctx, tx, requester.ID, viewer.ID)
		if err != nil {
			return err
		}
		if created {
			metrics.FollowsTotal.Inc()
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	metrics.FollowRequestsTotal.Dec()
	return nil
}

// WithdrawRequest deletes the viewer's own pending request toward slug.
func (s *RelationshipService) WithdrawRequest(ctx context.Context, viewer Viewer, slug string) error {
	target, err := s.userRepo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleted, err := s.relationshipRepo.DeleteRequest(ctx, tx, viewer.ID, target.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.ErrRequestNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	metrics.FollowRequestsTotal.Dec()
	return nil
}

// ToggleFollow flips the follow edge viewer → slug. A pending request for
// the same pair is consumed when the edge appears: the two are exclusive
// stages. Returns whether the viewer is following after the toggle.
func (s *RelationshipService) ToggleFollow(ctx context.Context, viewer Viewer, slug string) (bool, error) {
	target, err := s.userRepo.GetBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	if target.ID == viewer.ID {
		return false, model.ErrSelfRelationship
	}

	if err := s.rejectIfBlockedBy(ctx, target.ID, viewer.ID); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	created, err := s.relationshipRepo.CreateFollowing(ctx, tx, viewer.ID, target.ID)
	if err != nil {
		return false, err
	}

	nowFollowing := created
	if created {
		requestConsumed, err := s.relationshipRepo.DeleteRequest(ctx, tx, viewer.ID, target.ID)
		if err != nil {
			return false, err
		}
		if requestConsumed {
			metrics.FollowRequestsTotal.Dec()
		}
	} else {
		if _, err := s.relationshipRepo.DeleteFollowing(ctx, tx, viewer.ID, target.ID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}

	if nowFollowing {
		metrics.FollowsTotal.Inc()
	} else {
		metrics.FollowsTotal.Dec()
	}

	return nowFollowing, nil
}

// Counts returns follower/following totals for slug, gated like the lists.
func (s *RelationshipService) Counts(ctx context.Context, viewer Viewer, slug string) (*model.FollowCounts, error) {
	target, err := s.gateConnections(ctx, viewer, slug)
	if err != nil {
		return nil, err
	}

	followers, err := s.relationshipRepo.CountFollowers(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	followings, err := s.relationshipRepo.CountFollowings(ctx, target.ID)
	if err != nil {
		return nil, err
	}

	return &model.FollowCounts{Followers: followers, Followings: followings}, nil
}

// Followers lists the accounts following slug. On a private profile only
// the owner, staff and existing followers may look.
func (s *RelationshipService) Followers(ctx context.Context, viewer Viewer, slug string) ([]ListEntry, error) {
	target, err := s.gateConnections(ctx, viewer, slug)
	if err != nil {
		return nil, err
	}

	details, err := s.relationshipRepo.ListFollowers(ctx, target.ID)
	if err != nil {
		return nil, err
	}

	return s.listEntries(ctx, viewer, details)
}

// Followings lists the accounts slug follows, gated like Followers.
func (s *RelationshipService) Followings(ctx context.Context, viewer Viewer, slug string) ([]ListEntry, error) {
	target, err := s.gateConnections(ctx, viewer, slug)
	if err != nil {
		return nil, err
	}

	details, err := s.relationshipRepo.ListFollowings(ctx, target.ID)
	if err != nil {
		return nil, err
	}

	return s.listEntries(ctx, viewer, details)
}

// Block creates the block edge viewer → slug and tears down every softer
// relationship between the pair: follow edges and pending requests, both
// directions, in one transaction.
func (s *RelationshipService) Block(ctx context.Context, viewer Viewer, slug string) error {
	target, err := s.userRepo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if target.ID == viewer.ID {
		return model.ErrSelfRelationship
	}

	if err := s.rejectIfBlockedBy(ctx, target.ID, viewer.ID); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	created, err := s.relationshipRepo.CreateBlock(ctx, tx, viewer.ID, target.ID)
	if err != nil {
		return err
	}
	if !created {
		return model.ErrAlreadyBlocked
	}

	if err := s.relationshipRepo.DeleteFollowingsBetween(ctx, tx, viewer.ID, target.ID); err != nil {
		return err
	}
	if err := s.relationshipRepo.DeleteRequestsBetween(ctx, tx, viewer.ID, target.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	metrics.BlocksTotal.Inc()
	return nil
}

// Unblock removes the block edge only. Nothing that the block tore down is
// restored.
func (s *RelationshipService) Unblock(ctx context.Context, viewer Viewer, slug string) error {
	target, err := s.userRepo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	exists, err := s.relationshipRepo.BlockExists(ctx, viewer.ID, target.ID)
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrBlockNotFound
	}

	if err := s.relationshipRepo.DeleteBlock(ctx, viewer.ID, target.ID); err != nil {
		return err
	}

	metrics.BlocksTotal.Dec()
	return nil
}

// BlockedUsers lists the accounts the viewer has blocked.
func (s *RelationshipService) BlockedUsers(ctx context.Context, viewer Viewer) ([]ListEntry, error) {
	details, err := s.relationshipRepo.ListBlocked(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	// A block removed any follow edges, so the viewer's only possible
	// elevated standing here is staff.
	entries := make([]ListEntry, 0, len(details))
	for _, d := range details {
		entries = append(entries, ListEntry{
			Detail: d,
			Rel:    privacy.Relationship{IsStaff: viewer.IsStaff},
		})
	}

	return entries, nil
}

// gateConnections resolves the target and enforces the private-profile read
// rule: connections of a private profile are visible only to the owner,
// staff, and existing followers.
func (s *RelationshipService) gateConnections(ctx context.Context, viewer Viewer, slug string) (*model.User, error) {
	target, err := s.userRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if target.ID == viewer.ID || viewer.IsStaff {
		return target, nil
	}

	profile, err := s.profileRepo.GetByUserID(ctx, target.ID)
	if errors.Is(err, model.ErrProfileNotFound) {
		// No profile row yet means the default, a public profile.
		return target, nil
	}
	if err != nil {
		return nil, err
	}
	if profile.IsPublic {
		return target, nil
	}

	following, err := s.relationshipRepo.FollowingExists(ctx, viewer.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if !following {
		return nil, model.ErrPrivateProfile
	}

	return target, nil
}

func (s *RelationshipService) rejectIfBlockedBy(ctx context.Context, blockerID, subjectID uuid.UUID) error {
	blocked, err := s.relationshipRepo.BlockExists(ctx, blockerID, subjectID)
	if err != nil {
		return err
	}
	if blocked {
		return model.ErrBlockedByTarget
	}
	return nil
}

func (s *RelationshipService) followedSet(ctx context.Context, viewerID uuid.UUID) (map[uuid.UUID]bool, error) {
	ids, err := s.relationshipRepo.FollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	followed := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		followed[id] = true
	}
	return followed, nil
}

func (s *RelationshipService) listEntries(ctx context.Context, viewer Viewer, details []model.ProfileDetail) ([]ListEntry, error) {
	followed, err := s.followedSet(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	entries := make([]ListEntry, 0, len(details))
	for _, d := range details {
		entries = append(entries, ListEntry{
			Detail: d,
			Rel: privacy.Relationship{
				IsOwner:     d.User.ID == viewer.ID,
				IsStaff:     viewer.IsStaff,
				IsFollowing: followed[d.User.ID],
			},
		})
	}

	return entries, nil
}

func (s *RelationshipService) requestEntries(viewer Viewer, details []model.FollowRequestDetail, followed map[uuid.UUID]bool) []RequestEntry {
	entries := make([]RequestEntry, 0, len(details))
	for _, d := range details {
		entries = append(entries, RequestEntry{
			ListEntry: ListEntry{
				Detail: d.Detail,
				Rel: privacy.Relationship{
					IsStaff:     viewer.IsStaff,
					IsFollowing: followed[d.Detail.User.ID],
				},
			},
			Message:     d.Message,
			RequestedAt: d.CreatedAt,
		})
	}
	return entries
}
