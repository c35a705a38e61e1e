package v1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sociable/internal/apiversion"
	"sociable/internal/model"
	"sociable/internal/service"
	"sociable/internal/transport/http/middleware"
)

// PrivacyV1 is the version-1.0 privacy view: the location and social-links
// flags stay hidden until 2.0.
type PrivacyV1 struct {
	ShowEmail bool `json:"show_email"`
	ShowPhoto bool `json:"show_photo"`
	ShowBio   bool `json:"show_bio"`
}

func privacyV1(flags *model.ProfilePrivacy) PrivacyV1 {
	return PrivacyV1{
		ShowEmail: flags.ShowEmail,
		ShowPhoto: flags.ShowPhoto,
		ShowBio:   flags.ShowBio,
	}
}

// PrivacyHandler serves the version-1.0 privacy endpoints.
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

	return apiversion.OK(privacyV1(flags)), nil
}

// Update patches the caller's own flags. Version 1.0 ignores the location
// and social-links flags.
func (h *PrivacyHandler) Update(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())

	var req model.PrivacyUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody()
	}
	req.ShowLocation = nil
	req.ShowSocialLinks = nil

	flags, err := h.profiles.UpdatePrivacy(r.Context(), viewer.ID, req)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(privacyV1(flags)), nil
}
