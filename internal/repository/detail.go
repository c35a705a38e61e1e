package repository

import (
	"github.com/google/uuid"

	"sociable/internal/model"
)

// detailColumns selects one user with their profile and privacy flags in a
// single row. Profiles and privacy records are lazily created, so both
// joins are LEFT and the flags coalesce to their defaults.
const detailColumns = `
	u.id AS user_id, u.username, u.slug, u.email, u.is_staff,
	p.id AS profile_id, p.bio, p.photo,
	COALESCE(p.is_public, TRUE) AS is_public,
	p.location,
	COALESCE(p.social_links, '{}') AS social_links,
	COALESCE(p.views, 0) AS views,
	pp.id AS privacy_id,
	COALESCE(pp.show_email, TRUE) AS show_email,
	COALESCE(pp.show_photo, TRUE) AS show_photo,
	COALESCE(pp.show_bio, TRUE) AS show_bio,
	COALESCE(pp.show_location, TRUE) AS show_location,
	COALESCE(pp.show_social_links, TRUE) AS show_social_links`

const detailJoins = `
	LEFT JOIN profiles p ON p.user_id = u.id
	LEFT JOIN profile_privacy pp ON pp.profile_id = p.id`

type detailRow struct {
	UserID   uuid.UUID `db:"user_id"`
	Username string    `db:"username"`
	Slug     string    `db:"slug"`
	Email    string    `db:"email"`
	IsStaff  bool      `db:"is_staff"`

	ProfileID   *uuid.UUID        `db:"profile_id"`
	Bio         *string           `db:"bio"`
	Photo       *string           `db:"photo"`
	IsPublic    bool              `db:"is_public"`
	Location    *string           `db:"location"`
	SocialLinks model.SocialLinks `db:"social_links"`
	Views       int               `db:"views"`

	PrivacyID       *uuid.UUID `db:"privacy_id"`
	ShowEmail       bool       `db:"show_email"`
	ShowPhoto       bool       `db:"show_photo"`
	ShowBio         bool       `db:"show_bio"`
	ShowLocation    bool       `db:"show_location"`
	ShowSocialLinks bool       `db:"show_social_links"`
}

func (r *detailRow) toDetail() model.ProfileDetail {
	d := model.ProfileDetail{
		User: model.User{
			ID:       r.UserID,
			Username: r.Username,
			Slug:     r.Slug,
			Email:    r.Email,
			IsStaff:  r.IsStaff,
		},
		Profile: model.Profile{
			UserID:      r.UserID,
			Bio:         r.Bio,
			Photo:       r.Photo,
			IsPublic:    r.IsPublic,
			Location:    r.Location,
			SocialLinks: r.SocialLinks,
			Views:       r.Views,
		},
		Privacy: model.ProfilePrivacy{
			ShowEmail:       r.ShowEmail,
			ShowPhoto:       r.ShowPhoto,
			ShowBio:         r.ShowBio,
			ShowLocation:    r.ShowLocation,
			ShowSocialLinks: r.ShowSocialLinks,
		},
	}
	if r.ProfileID != nil {
		d.Profile.ID = *r.ProfileID
		d.Privacy.ProfileID = *r.ProfileID
	}
	if r.PrivacyID != nil {
		d.Privacy.ID = *r.PrivacyID
	}
	return d
}

func toDetails(rows []detailRow) []model.ProfileDetail {
	details := make([]model.ProfileDetail, 0, len(rows))
	for i := range rows {
		details = append(details, rows[i].toDetail())
	}
	return details
}
