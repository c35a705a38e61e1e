package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sociable/internal/apiversion"
	"sociable/internal/httputil"
	"sociable/internal/privacy"
	"sociable/internal/service"
	"sociable/internal/transport/http/middleware"
)

// RequestItem is one pending follow request in a list response.
type RequestItem struct {
	privacy.ListItemV1
	Message     *string   `json:"message"`
	RequestedAt time.Time `json:"requested_at"`
}

// RequestListsResponse groups the caller's pending requests by direction.
type RequestListsResponse struct {
	Incoming []RequestItem `json:"incoming"`
	Outgoing []RequestItem `json:"outgoing"`
}

// FollowToggleResponse reports the state after a toggle. Status is 1 when
// the caller now follows the target and 0 after an unfollow.
type FollowToggleResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// TargetRequest names the other party of a relationship mutation.
type TargetRequest struct {
	Slug    string  `json:"slug"`
	Message *string `json:"message,omitempty"`
}

// RespondRequest carries the decision on an incoming follow request.
type RespondRequest struct {
	Slug   string `json:"slug"`
	Accept *bool  `json:"accept"`
}

// RelationshipHandler serves the relationship endpoints. The same
// implementation backs both version tags.
type RelationshipHandler struct {
	relationships *service.RelationshipService
}

func NewRelationshipHandler(relationships *service.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{relationships: relationships}
}

// RequestFollow records a pending follow request toward the named user.
func (h *RelationshipHandler) RequestFollow(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())

	req, err := decodeTarget(r)
	if err != nil {
		return nil, err
	}

	if err := h.relationships.RequestFollow(r.Context(), viewer.Viewer(), req.Slug, req.Message); err != nil {
		return nil, err
	}

	return apiversion.Created(httputil.MessageResponse{Message: "Request sent"}), nil
}

// ListRequests returns the caller's pending requests, both directions.
func (h *RelationshipHandler) ListRequests(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())

	lists, err := h.relationships.ListRequests(r.Context(), viewer.Viewer())
	if err != nil {
		return nil, err
	}

	return apiversion.OK(RequestListsResponse{
		Incoming: requestItems(lists.Incoming),
		Outgoing: requestItems(lists.Outgoing),
	}), nil
}

// RespondToRequest accepts or rejects an incoming follow request.
func (h *RelationshipHandler) RespondToRequest(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody()
	}

	var errs []string
	if req.Slug == "" {
		errs = append(errs, "slug is required")
	}
	if req.Accept == nil {
		errs = append(errs, "accept is required")
	}
	if len(errs) > 0 {
		return nil, &httputil.ValidationError{Message: "Invalid response data", Errors: errs}
	}

	if err := h.relationships.RespondToRequest(r.Context(), viewer.Viewer(), req.Slug, *req.Accept); err != nil {
		return nil, err
	}

	message := "Request rejected"
	if *req.Accept {
		message = "Request accepted"
	}
	return apiversion.OK(httputil.MessageResponse{Message: message}), nil
}

// WithdrawRequest deletes the caller's own pending request toward slug.
func (h *RelationshipHandler) WithdrawRequest(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())
	slug := chi.URLParam(r, "slug")

	if err := h.relationships.WithdrawRequest(r.Context(), viewer.Viewer(), slug); err != nil {
		return nil, err
	}

	return apiversion.OK(httputil.MessageResponse{Message: "Request withdrawn"}), nil
}

// ToggleFollow flips the follow edge toward slug.
func (h *RelationshipHandler) ToggleFollow(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())
	slug := chi.URLParam(r, "slug")

	nowFollowing, err := h.relationships.ToggleFollow(r.Context(), viewer.Viewer(), slug)
	if err != nil {
		return nil, err
	}

	if nowFollowing {
		return apiversion.Created(FollowToggleResponse{Message: "Now following", Status: 1}), nil
	}
	return apiversion.OK(FollowToggleResponse{Message: "Unfollowed successfully", Status: 0}), nil
}

// Counts returns follower and following totals for slug.
func (h *RelationshipHandler) Counts(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())
	slug := chi.URLParam(r, "slug")

	counts, err := h.relationships.Counts(r.Context(), viewer.Viewer(), slug)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(counts), nil
}

// Followers lists who follows slug.
func (h *RelationshipHandler) Followers(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())
	slug := chi.URLParam(r, "slug")

	entries, err := h.relationships.Followers(r.Context(), viewer.Viewer(), slug)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(listItems(entries)), nil
}

// Followings lists who slug follows.
func (h *RelationshipHandler) Followings(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())
	slug := chi.URLParam(r, "slug")

	entries, err := h.relationships.Followings(r.Context(), viewer.Viewer(), slug)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(listItems(entries)), nil
}

// Block blocks the named user, tearing down softer relationships.
func (h *RelationshipHandler) Block(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())

	req, err := decodeTarget(r)
	if err != nil {
		return nil, err
	}

	if err := h.relationships.Block(r.Context(), viewer.Viewer(), req.Slug); err != nil {
		return nil, err
	}

	return apiversion.Created(httputil.MessageResponse{Message: "User blocked"}), nil
}

// Unblock removes the block toward slug.
func (h *RelationshipHandler) Unblock(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())
	slug := chi.URLParam(r, "slug")

	if err := h.relationships.Unblock(r.Context(), viewer.Viewer(), slug); err != nil {
		return nil, err
	}

	return apiversion.OK(httputil.MessageResponse{Message: "User unblocked"}), nil
}

// BlockedUsers lists the accounts the caller blocked.
func (h *RelationshipHandler) BlockedUsers(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())

	entries, err := h.relationships.BlockedUsers(r.Context(), viewer.Viewer())
	if err != nil {
		return nil, err
	}

	return apiversion.OK(listItems(entries)), nil
}

func decodeTarget(r *http.Request) (*TargetRequest, error) {
	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody()
	}
	if req.Slug == "" {
		return nil, &httputil.ValidationError{Message: "Invalid request", Errors: []string{"slug is required"}}
	}
	return &req, nil
}

func listItems(entries []service.ListEntry) []privacy.ListItemV1 {
	items := make([]privacy.ListItemV1, 0, len(entries))
	for _, e := range entries {
		items = append(items, privacy.ProjectListItemV1(e.Detail, e.Rel))
	}
	return items
}

func requestItems(entries []service.RequestEntry) []RequestItem {
	items := make([]RequestItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, RequestItem{
			ListItemV1:  privacy.ProjectListItemV1(e.Detail, e.Rel),
			Message:     e.Message,
			RequestedAt: e.RequestedAt,
		})
	}
	return items
}
