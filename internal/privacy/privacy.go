// Package privacy computes redacted views of profiles and users. Every
// function is pure: relationship facts are resolved by the caller and passed
// in, so projections stay deterministic and trivially testable.
package privacy

import (
	"sociable/internal/model"
)

// Relationship captures the viewer's standing toward the profile owner.
type Relationship struct {
	IsOwner     bool
	IsStaff     bool
	IsFollowing bool
}

// fullAccess reports whether redaction is skipped entirely: public profiles
// are open to everyone, and owners, staff and followers see private profiles
// in full.
func (r Relationship) fullAccess(isPublic bool) bool {
	return isPublic || r.IsOwner || r.IsStaff || r.IsFollowing
}

// UserView is the identity embedding used by profile detail responses and by
// every relationship list (followers, followings, blocked users). Email is
// the only redactable field; username and slug are always visible.
type UserView struct {
	Username string  `json:"username"`
	Email    *string `json:"email"`
	Slug     string  `json:"slug"`
}

// ProfileV1 is the version-1.0 profile detail: no location, no social links.
type ProfileV1 struct {
	User     UserView `json:"user"`
	Bio      *string  `json:"bio"`
	Photo    *string  `json:"photo"`
	IsPublic bool     `json:"is_public"`
}

// ProfileV2 adds the version-2.0 fields.
type ProfileV2 struct {
	User        UserView          `json:"user"`
	Bio         *string           `json:"bio"`
	Photo       *string           `json:"photo"`
	IsPublic    bool              `json:"is_public"`
	Location    *string           `json:"location"`
	SocialLinks model.SocialLinks `json:"social_links"`
}

// ListItemV1 is the version-1.0 list row: owner identity inlined, no email.
type ListItemV1 struct {
	Username     string  `json:"username"`
	UsernameSlug string  `json:"username_slug"`
	Bio          *string `json:"bio"`
	Photo        *string `json:"photo"`
	IsPublic     bool    `json:"is_public"`
}

// ListItemV2 adds the version-2.0 fields.
type ListItemV2 struct {
	Username     string            `json:"username"`
	UsernameSlug string            `json:"username_slug"`
	Bio          *string           `json:"bio"`
	Photo        *string           `json:"photo"`
	IsPublic     bool              `json:"is_public"`
	Location     *string           `json:"location"`
	SocialLinks  model.SocialLinks `json:"social_links"`
}

// ProjectUser shapes the identity embedding, nulling email when the profile
// is private, the viewer is a stranger, and show_email is off. Missing
// profile or privacy metadata never hides anything: absent flags mean the
// defaults (all visible) and the caller lazily persists them.
func ProjectUser(u model.User, p *model.Profile, flags *model.ProfilePrivacy, rel Relationship) UserView {
	email := u.Email
	view := UserView{
		Username: u.Username,
		Email:    &email,
		Slug:     u.Slug,
	}

	if p == nil || flags == nil {
		return view
	}

	if !rel.fullAccess(p.IsPublic) && !flags.ShowEmail {
		view.Email = nil
	}

	return view
}

// ProjectProfileV1 computes the version-1.0 detail view.
func ProjectProfileV1(d model.ProfileDetail, rel Relationship) ProfileV1 {
	view := ProfileV1{
		User:     ProjectUser(d.User, &d.Profile, &d.Privacy, rel),
		Bio:      d.Profile.Bio,
		Photo:    d.Profile.Photo,
		IsPublic: d.Profile.IsPublic,
	}

	if rel.fullAccess(d.Profile.IsPublic) {
		return view
	}

	if !d.Privacy.ShowPhoto {
		view.Photo = nil
	}
	if !d.Privacy.ShowBio {
		view.Bio = nil
	}

	return view
}

// ProjectProfileV2 computes the version-2.0 detail view, additionally
// gating location and social links.
func ProjectProfileV2(d model.ProfileDetail, rel Relationship) ProfileV2 {
	view := ProfileV2{
		User:        ProjectUser(d.User, &d.Profile, &d.Privacy, rel),
		Bio:         d.Profile.Bio,
		Photo:       d.Profile.Photo,
		IsPublic:    d.Profile.IsPublic,
		Location:    d.Profile.Location,
		SocialLinks: d.Profile.SocialLinks,
	}

	if rel.fullAccess(d.Profile.IsPublic) {
		return view
	}

	if !d.Privacy.ShowPhoto {
		view.Photo = nil
	}
	if !d.Privacy.ShowBio {
		view.Bio = nil
	}
	if !d.Privacy.ShowLocation {
		view.Location = nil
	}
	if !d.Privacy.ShowSocialLinks {
		view.SocialLinks = nil
	}

	return view
}

// ProjectListItemV1 computes the version-1.0 list row.
func ProjectListItemV1(d model.ProfileDetail, rel Relationship) ListItemV1 {
	item := ListItemV1{
		Username:     d.User.Username,
		UsernameSlug: d.User.Slug,
		Bio:          d.Profile.Bio,
		Photo:        d.Profile.Photo,
		IsPublic:     d.Profile.IsPublic,
	}

	if rel.fullAccess(d.Profile.IsPublic) {
		return item
	}

	if !d.Privacy.ShowPhoto {
		item.Photo = nil
	}
	if !d.Privacy.ShowBio {
		item.Bio = nil
	}

	return item
}

// ProjectListItemV2 computes the version-2.0 list row.
func ProjectListItemV2(d model.ProfileDetail, rel Relationship) ListItemV2 {
	item := ListItemV2{
		Username:     d.User.Username,
		UsernameSlug: d.User.Slug,
		Bio:          d.Profile.Bio,
		Photo:        d.Profile.Photo,
		IsPublic:     d.Profile.IsPublic,
		Location:     d.Profile.Location,
		SocialLinks:  d.Profile.SocialLinks,
	}

	if rel.fullAccess(d.Profile.IsPublic) {
		return item
	}

	if !d.Privacy.ShowPhoto {
		item.Photo = nil
	}
	if !d.Privacy.ShowBio {
		item.Bio = nil
	}
	if !d.Privacy.ShowLocation {
		item.Location = nil
	}
	if !d.Privacy.ShowSocialLinks {
		item.SocialLinks = nil
	}

	return item
}
