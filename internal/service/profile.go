package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"sociable/internal/model"
	"sociable/internal/privacy"
	"sociable/internal/repository"
)

// DefaultPageSize is the page size of the profile list.
const DefaultPageSize = 20

// Viewer identifies the authenticated caller for privacy decisions. A nil
// *Viewer means an anonymous request.
type Viewer struct {
	ID      uuid.UUID
	IsStaff bool
}

// ListEntry pairs a profile with the viewer's standing toward it, ready for
// version-specific projection at the handler.
type ListEntry struct {
	Detail model.ProfileDetail
	Rel    privacy.Relationship
}

// ProfileService serves profile reads, the paginated directory, and
// owner-only updates of profile fields and privacy flags. Profiles and
// privacy records missing for historical accounts are created on first
// touch with their defaults; a read never fails over absent metadata.
type ProfileService struct {
	userRepo         repository.UserRepository
	profileRepo      repository.ProfileRepository
	relationshipRepo repository.RelationshipRepository
	db               *sqlx.DB
	logger           *zap.Logger
}

func NewProfileService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	relationshipRepo repository.RelationshipRepository,
	db *sqlx.DB,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		userRepo:         userRepo,
		profileRepo:      profileRepo,
		relationshipRepo: relationshipRepo,
		db:               db,
		logger:           logger,
	}
}

// Get loads a profile by slug together with the viewer's standing. Reads by
// anyone but the owner bump the view counter.
func (s *ProfileService) Get(ctx context.Context, viewer *Viewer, slug string) (*model.ProfileDetail, privacy.Relationship, error) {
	detail, err := s.detailBySlug(ctx, slug)
	if err != nil {
		return nil, privacy.Relationship{}, err
	}

	rel, err := s.standing(ctx, viewer, detail.User.ID)
	if err != nil {
		return nil, privacy.Relationship{}, err
	}

	if !rel.IsOwner {
		if err := s.profileRepo.IncrementViews(ctx, detail.Profile.ID); err != nil {
			s.logger.Error("failed to increment profile views",
				zap.String("profile_id", detail.Profile.ID.String()),
				zap.Error(err))
		} else {
			detail.Profile.Views++
		}
	}

	return detail, rel, nil
}

// List pages through the directory of profiles visible to the viewer.
func (s *ProfileService) List(ctx context.Context, viewer Viewer, q string, page int) ([]ListEntry, int, error) {
	if page < 1 {
		return nil, 0, model.ErrInvalidPage
	}

	details, total, err := s.profileRepo.List(ctx, viewer.ID, q, page, DefaultPageSize)
	if err != nil {
		return nil, 0, err
	}

	if total > 0 && len(details) == 0 {
		return nil, 0, model.ErrInvalidPage
	}

	following, err := s.relationshipRepo.FollowingIDs(ctx, viewer.ID)
	if err != nil {
		return nil, 0, err
	}
	followed := make(map[uuid.UUID]bool, len(following))
	for _, id := range following {
		followed[id] = true
	}

	entries := make([]ListEntry, 0, len(details))
	for _, d := range details {
		entries = append(entries, ListEntry{
			Detail: d,
			Rel: privacy.Relationship{
				IsStaff:     viewer.IsStaff,
				IsFollowing: followed[d.User.ID],
			},
		})
	}

	return entries, total, nil
}

// Update applies a partial update to the viewer's own profile and returns
// the fresh detail.
func (s *ProfileService) Update(ctx context.Context, viewerID uuid.UUID, req model.ProfileUpdateRequest) (*model.ProfileDetail, error) {
	user, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	detail, err := s.detailBySlug(ctx, user.Slug)
	if err != nil {
		return nil, err
	}

	profile := detail.Profile
	if req.Bio != nil {
		profile.Bio = req.Bio
	}
	if req.Photo != nil {
		profile.Photo = req.Photo
	}
	if req.IsPublic != nil {
		profile.IsPublic = *req.IsPublic
	}
	if req.Location != nil {
		profile.Location = req.Location
	}
	if req.SocialLinks != nil {
		profile.SocialLinks = *req.SocialLinks
	}

	if err := s.profileRepo.Update(ctx, &profile); err != nil {
		return nil, err
	}

	detail.Profile = profile
	return detail, nil
}

// GetPrivacy reads the privacy flags of the profile behind slug. Only the
// owner and staff may see them.
func (s *ProfileService) GetPrivacy(ctx context.Context, viewer Viewer, slug string) (*model.ProfilePrivacy, error) {
	detail, err := s.detailBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if detail.User.ID != viewer.ID && !viewer.IsStaff {
		return nil, model.ErrNotOwner
	}

	return &detail.Privacy, nil
}

// UpdatePrivacy applies a partial update to the viewer's own privacy flags.
func (s *ProfileService) UpdatePrivacy(ctx context.Context, viewerID uuid.UUID, req model.PrivacyUpdateRequest) (*model.ProfilePrivacy, error) {
	user, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	detail, err := s.detailBySlug(ctx, user.Slug)
	if err != nil {
		return nil, err
	}

	flags := detail.Privacy
	if req.ShowEmail != nil {
		flags.ShowEmail = *req.ShowEmail
	}
	if req.ShowPhoto != nil {
		flags.ShowPhoto = *req.ShowPhoto
	}
	if req.ShowBio != nil {
		flags.ShowBio = *req.ShowBio
	}
	if req.ShowLocation != nil {
		flags.ShowLocation = *req.ShowLocation
	}
	if req.ShowSocialLinks != nil {
		flags.ShowSocialLinks = *req.ShowSocialLinks
	}

	if err := s.profileRepo.UpdatePrivacy(ctx, &flags); err != nil {
		return nil, err
	}

	return &flags, nil
}

// detailBySlug loads the joined detail, creating missing profile or privacy
// rows with their defaults before retrying.
func (s *ProfileService) detailBySlug(ctx context.Context, slug string) (*model.ProfileDetail, error) {
	detail, err := s.profileRepo.GetDetailBySlug(ctx, slug)
	if err == nil {
		return detail, nil
	}
	if !errors.Is(err, model.ErrProfileNotFound) && !errors.Is(err, model.ErrPrivacyNotFound) {
		return nil, err
	}

	user, err := s.userRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := s.ensureDefaults(ctx, user.ID); err != nil {
		return nil, err
	}

	return s.profileRepo.GetDetailBySlug(ctx, slug)
}

// ensureDefaults creates the profile and/or privacy rows a user is missing.
func (s *ProfileService) ensureDefaults(ctx context.Context, userID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, model.ErrProfileNotFound):
		profile = model.NewProfile(userID)
		if err := s.profileRepo.Create(ctx, tx, profile); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	_, err = s.profileRepo.GetPrivacyByProfileID(ctx, profile.ID)
	switch {
	case errors.Is(err, model.ErrPrivacyNotFound):
		if err := s.profileRepo.CreatePrivacy(ctx, tx, model.NewProfilePrivacy(profile.ID)); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// standing resolves the viewer's relationship facts toward the owner.
func (s *ProfileService) standing(ctx context.Context, viewer *Viewer, ownerID uuid.UUID) (privacy.Relationship, error) {
	if viewer == nil {
		return privacy.Relationship{}, nil
	}

	rel := privacy.Relationship{
		IsOwner: viewer.ID == ownerID,
		IsStaff: viewer.IsStaff,
	}
	if rel.IsOwner {
		return rel, nil
	}

	following, err := s.relationshipRepo.FollowingExists(ctx, viewer.ID, ownerID)
	if err != nil {
		return privacy.Relationship{}, err
	}
	rel.IsFollowing = following

	return rel, nil
}
