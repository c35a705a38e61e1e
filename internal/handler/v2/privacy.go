package v2

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sociable/internal/apiversion"
	"sociable/internal/model"
	"sociable/internal/service"
	"sociable/internal/transport/http/middleware"
)

// PrivacyV2 exposes all five visibility flags.
type PrivacyV2 struct {
	ShowEmail       bool `json:"show_email"`
	ShowPhoto       bool `json:"show_photo"`
	ShowBio         bool `json:"show_bio"`
	ShowLocation    bool `json:"show_location"`
	ShowSocialLinks bool `json:"show_social_links"`
}

func privacyV2(flags *model.ProfilePrivacy) PrivacyV2 {
	return PrivacyV2{
		ShowEmail:       flags.ShowEmail,
		ShowPhoto:       flags.ShowPhoto,
		ShowBio:         flags.ShowBio,
		ShowLocation:    flags.ShowLocation,
		ShowSocialLinks: flags.ShowSocialLinks,
	}
}

// PrivacyHandler serves the version-2.0 privacy endpoints.
type PrivacyHandler struct {
	profiles *service.ProfileService
}

func NewPrivacyHandler(profiles *service.ProfileService) *PrivacyHandler {
	return &PrivacyHandler{profiles: profiles}
}

// Read returns the privacy flags of the profile behind slug; owner and
// staff only.
func (h *PrivacyHandler) Read(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())
	slug := chi.URLParam(r, "slug")

	flags, err := h.profiles.GetPrivacy(r.Context(), viewer.Viewer(), slug)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(privacyV2(flags)), nil
}

// Update patches the caller's own flags, all five accepted.
func (h *PrivacyHandler) Update(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())

	var req model.PrivacyUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody()
	}

	flags, err := h.profiles.UpdatePrivacy(r.Context(), viewer.ID, req)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(privacyV2(flags)), nil
}
