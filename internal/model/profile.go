package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SocialLinks is a free-form platform -> URL mapping stored as JSONB.
type SocialLinks map[string]string

func (s SocialLinks) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

func (s *SocialLinks) Scan(src interface{}) error {
	if src == nil {
		*s = SocialLinks{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported social_links type %T", src)
	}
	return json.Unmarshal(raw, s)
}

// Profile is the one-to-one public face of a User. Created alongside the
// user at signup, in the same transaction.
type Profile struct {
	ID          uuid.UUID   `db:"id" json:"-"`
	UserID      uuid.UUID   `db:"user_id" json:"-"`
	Bio         *string     `db:"bio" json:"bio"`
	Photo       *string     `db:"photo" json:"photo"`
	IsPublic    bool        `db:"is_public" json:"is_public"`
	Location    *string     `db:"location" json:"location"`
	SocialLinks SocialLinks `db:"social_links" json:"social_links"`
	Views       int         `db:"views" json:"views"`
	CreatedAt   time.Time   `db:"created_at" json:"-"`
	UpdatedAt   time.Time   `db:"updated_at" json:"-"`
}

// NewProfile constructs the default profile created at signup.
func NewProfile(userID uuid.UUID) *Profile {
	return &Profile{
		ID:          uuid.New(),
		UserID:      userID,
		IsPublic:    true,
		SocialLinks: SocialLinks{},
	}
}

// ProfilePrivacy holds the per-field visibility flags of a profile. The
// location and social-links flags are only surfaced from API version 2.0.
type ProfilePrivacy struct {
	ID              uuid.UUID `db:"id" json:"-"`
	ProfileID       uuid.UUID `db:"profile_id" json:"-"`
	ShowEmail       bool      `db:"show_email" json:"show_email"`
	ShowPhoto       bool      `db:"show_photo" json:"show_photo"`
	ShowBio         bool      `db:"show_bio" json:"show_bio"`
	ShowLocation    bool      `db:"show_location" json:"show_location"`
	ShowSocialLinks bool      `db:"show_social_links" json:"show_social_links"`
	CreatedAt       time.Time `db:"created_at" json:"-"`
	UpdatedAt       time.Time `db:"updated_at" json:"-"`
}

// NewProfilePrivacy constructs the default privacy record: everything visible.
func NewProfilePrivacy(profileID uuid.UUID) *ProfilePrivacy {
	return &ProfilePrivacy{
		ID:              uuid.New(),
		ProfileID:       profileID,
		ShowEmail:       true,
		ShowPhoto:       true,
		ShowBio:         true,
		ShowLocation:    true,
		ShowSocialLinks: true,
	}
}

// ProfileDetail bundles a profile with its owner and privacy flags, the unit
// the privacy engine projects.
type ProfileDetail struct {
	User    User
	Profile Profile
	Privacy ProfilePrivacy
}

// ProfileUpdateRequest is a partial update of the caller's own profile.
// Location and social links are only accepted from version 2.0.
type ProfileUpdateRequest struct {
	Bio         *string      `json:"bio"`
	Photo       *string      `json:"photo"`
	IsPublic    *bool        `json:"is_public"`
	Location    *string      `json:"location"`
	SocialLinks *SocialLinks `json:"social_links"`
}

// PrivacyUpdateRequest is a partial update of the caller's privacy flags.
type PrivacyUpdateRequest struct {
	ShowEmail       *bool `json:"show_email"`
	ShowPhoto       *bool `json:"show_photo"`
	ShowBio         *bool `json:"show_bio"`
	ShowLocation    *bool `json:"show_location"`
	ShowSocialLinks *bool `json:"show_social_links"`
}

var (
	// ErrProfileNotFound is returned when a profile cannot be found
	ErrProfileNotFound = errors.New("profile not found")

	// ErrPrivacyNotFound is returned when privacy flags are missing for a profile
	ErrPrivacyNotFound = errors.New("profile privacy not found")

	// ErrInvalidPage is returned for out-of-range page numbers
	ErrInvalidPage = errors.New("invalid page number")

	// ErrNotOwner is returned when a caller touches a resource owned by
	// someone else
	ErrNotOwner = errors.New("not the owner of this resource")
)
