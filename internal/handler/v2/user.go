package v2

import (
	"encoding/json"
	"net/http"

	"sociable/internal/apiversion"
	"sociable/internal/httputil"
	"sociable/internal/model"
	"sociable/internal/privacy"
	"sociable/internal/service"
)

// AuthResponse is the body returned on signup.
type AuthResponse struct {
	User   privacy.UserView `json:"user"`
	Tokens *model.TokenPair `json:"tokens"`
}

// UserHandler serves the version-2.0 user endpoints: the signup and
// password-reset variants that enforce the password strength policy. All
// other user operations stay on their 1.0 behavior.
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Signup creates an account, holding the password to the strength policy.
// Every violated rule is reported, not just the first.
func (h *UserHandler) Signup(r *http.Request) (*apiversion.Result, error) {
	var req model.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody()
	}

	var errs []string
	if req.Username == "" {
		errs = append(errs, "username is required")
	}
	if req.Email == "" {
		errs = append(errs, "email is required")
	}
	errs = append(errs, service.ValidatePassword(req.Password)...)
	if len(errs) > 0 {
		return nil, &httputil.ValidationError{Message: "Invalid signup data", Errors: errs}
	}

	user, pair, err := h.users.Signup(r.Context(), req)
	if err != nil {
		return nil, err
	}

	view := privacy.ProjectUser(*user, nil, nil, privacy.Relationship{IsOwner: true})
	return apiversion.Created(AuthResponse{User: view, Tokens: pair}), nil
}

// PasswordReset redeems a code, holding the new password to the same
// strength policy as version-2.0 signup.
func (h *UserHandler) PasswordReset(r *http.Request) (*apiversion.Result, error) {
	var req model.PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody()
	}

	var errs []string
	if req.Code == "" {
		errs = append(errs, "code is required")
	}
	errs = append(errs, service.ValidatePassword(req.Password)...)
	if len(errs) > 0 {
		return nil, &httputil.ValidationError{Message: "Invalid reset data", Errors: errs}
	}

	if err := h.users.PasswordReset(r.Context(), req.Code, req.Password); err != nil {
		return nil, err
	}

	return apiversion.OK(httputil.MessageResponse{Message: "Password has been reset successfully."}), nil
}

func errInvalidBody() error {
	return &httputil.ValidationError{
		Message: "Invalid request body",
		Errors:  []string{"request body must be valid JSON"},
	}
}
