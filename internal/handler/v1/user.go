package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"sociable/internal/apiversion"
	"sociable/internal/httputil"
	"sociable/internal/model"
	"sociable/internal/privacy"
	"sociable/internal/service"
	"sociable/internal/transport/http/middleware"
)

// AuthResponse is the body returned on signup, login and refresh.
type AuthResponse struct {
	User   privacy.UserView `json:"user"`
	Tokens *model.TokenPair `json:"tokens"`
}

// ForgotResponse tells the caller when the issued code stops working. The
// message is the same whether or not the account exists.
type ForgotResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefreshRequest carries the refresh token being rotated.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// UserHandler serves the version-1.0 user endpoints.
type UserHandler struct {
	users *service.UserService
	auth  *service.AuthService
}

func NewUserHandler(users *service.UserService, auth *service.AuthService) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

// selfView projects a user for their own eyes: nothing is redacted.
func selfView(user *model.User) privacy.UserView {
	return privacy.ProjectUser(*user, nil, nil, privacy.Relationship{IsOwner: true})
}

// Read returns the authenticated caller's own view.
func (h *UserHandler) Read(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())

	user, err := h.users.Get(r.Context(), viewer.ID)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(selfView(user)), nil
}

// Signup creates an account. Version 1.0 validates shape only; the password
// strength policy arrives with 2.0.
func (h *UserHandler) Signup(r *http.Request) (*apiversion.Result, error) {
	req, err := decodeSignup(r)
	if err != nil {
		return nil, err
	}

	user, pair, err := h.users.Signup(r.Context(), *req)
	if err != nil {
		return nil, err
	}

	return apiversion.Created(AuthResponse{User: selfView(user), Tokens: pair}), nil
}

func decodeSignup(r *http.Request) (*model.SignupRequest, error) {
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
	if req.Password == "" {
		errs = append(errs, "password is required")
	}
	if len(errs) > 0 {
		return nil, &httputil.ValidationError{Message: "Invalid signup data", Errors: errs}
	}

	return &req, nil
}

// Login exchanges credentials for a token pair. An already-authenticated
// caller is told to log out first.
func (h *UserHandler) Login(r *http.Request) (*apiversion.Result, error) {
	if _, ok := middleware.UserFromContext(r.Context()); ok {
		return nil, model.ErrAlreadyLoggedIn
	}

	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody()
	}

	var errs []string
	if req.LoginIdentifier == "" {
		errs = append(errs, "login_identifier is required")
	}
	if req.Password == "" {
		errs = append(errs, "password is required")
	}
	if len(errs) > 0 {
		return nil, &httputil.ValidationError{Message: "Invalid login data", Errors: errs}
	}

	user, pair, err := h.users.Login(r.Context(), req)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(AuthResponse{User: selfView(user), Tokens: pair}), nil
}

// Update changes the caller's email and/or password.
func (h *UserHandler) Update(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())

	var req model.UserUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody()
	}

	user, err := h.users.Update(r.Context(), viewer.ID, req)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(selfView(user)), nil
}

// Delete soft-deletes the caller's account.
func (h *UserHandler) Delete(r *http.Request) (*apiversion.Result, error) {
	viewer, _ := middleware.UserFromContext(r.Context())

	if err := h.users.SoftDelete(r.Context(), viewer.ID); err != nil {
		return nil, err
	}

	return apiversion.NoContent(), nil
}

// PasswordForgot starts the reset flow. The response never reveals whether
// the email belongs to an account.
func (h *UserHandler) PasswordForgot(r *http.Request) (*apiversion.Result, error) {
	var req model.PasswordForgotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody()
	}
	if req.Email == "" {
		return nil, &httputil.ValidationError{Message: "Invalid request", Errors: []string{"email is required"}}
	}

	expiresAt, err := h.users.PasswordForgot(r.Context(), req.Email)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(ForgotResponse{
		Message:   "If this email exists, a reset code has been sent.",
		ExpiresAt: expiresAt,
	}), nil
}

// PasswordReset redeems a code. Version 1.0 accepts any non-empty password.
func (h *UserHandler) PasswordReset(r *http.Request) (*apiversion.Result, error) {
	req, err := decodePasswordReset(r)
	if err != nil {
		return nil, err
	}

	if err := h.users.PasswordReset(r.Context(), req.Code, req.Password); err != nil {
		return nil, err
	}

	return apiversion.OK(httputil.MessageResponse{Message: "Password has been reset successfully."}), nil
}

func decodePasswordReset(r *http.Request) (*model.PasswordResetRequest, error) {
	var req model.PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody()
	}

	var errs []string
	if req.Code == "" {
		errs = append(errs, "code is required")
	}
	if req.Password == "" {
		errs = append(errs, "password is required")
	}
	if len(errs) > 0 {
		return nil, &httputil.ValidationError{Message: "Invalid reset data", Errors: errs}
	}

	return &req, nil
}

// RefreshToken rotates a refresh token into a fresh pair.
func (h *UserHandler) RefreshToken(r *http.Request) (*apiversion.Result, error) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody()
	}
	if req.Refresh == "" {
		return nil, model.ErrRefreshTokenNotFound
	}

	pair, err := h.auth.Refresh(r.Context(), req.Refresh)
	if err != nil {
		return nil, err
	}

	return apiversion.OK(pair), nil
}

func errInvalidBody() error {
	return &httputil.ValidationError{
		Message: "Invalid request body",
		Errors:  []string{"request body must be valid JSON"},
	}
}
