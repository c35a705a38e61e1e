package v2

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sociable/internal/apiversion"
	"sociable/internal/httputil"
	"sociable/internal/model"
	"sociable/internal/privacy"
	"sociable/internal/service"
	"sociable/internal/transport/http/middleware"
)

// ProfileHandler serves the version-2.0 profile endpoints, which surface
// location and social links.
type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Read returns the projected profile behind the slug path parameter.
func (h *ProfileHandler) Read(r *http.Request) (*apiversion.Result, error) {
	slug := chi.URLParam(r, "slug")

	var viewer *service.Viewer
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		v := user.Viewer()
		viewer = &v
	}

	detail, rel, err := h.profiles.Get(r.Context(), viewer, slug)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(privacy.ProjectProfileV2(*detail, rel)), nil
}

// List pages through the profile directory.
func (h *ProfileHandler) List(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())

	page, err := pageParam(r)
	if err != nil {
		return nil, err
	}
	q := r.URL.Query().Get("q")

	entries, total, err := h.profiles.List(r.Context(), viewer.Viewer(), q, page)
	if err != nil {
		return nil, err
	}

	items := make([]privacy.ListItemV2, 0, len(entries))
	for _, e := range entries {
		items = append(items, privacy.ProjectListItemV2(e.Detail, e.Rel))
	}

	return apiversion.OK(httputil.NewPage(items, total, page, service.DefaultPageSize)), nil
}

// Update patches the caller's own profile, including the 2.0-only fields.
func (h *ProfileHandler) Update(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())

	var req model.ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody()
	}

	detail, err := h.profiles.Update(r.Context(), viewer.ID, req)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(privacy.ProjectProfileV2(*detail, privacy.Relationship{IsOwner: true})), nil
}

func pageParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, model.ErrInvalidPage
	}
	return page, nil
}
