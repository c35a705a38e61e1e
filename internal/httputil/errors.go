package httputil

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"sociable/internal/model"
)

// ValidationError carries every violated rule of a request, accumulated
// rather than fail-fast. It maps to a 400 with an error list.
type ValidationError struct {
	Message string
	Errors  []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// domainStatus maps a sentinel to its HTTP status and user-facing message.
// Unexpected errors fall through to a generic 500 with no internal detail.
type domainStatus struct {
	status  int
	message string
}

var domainTaxonomy = []struct {
	err error
	domainStatus
}{
	{model.ErrUserNotFound, domainStatus{http.StatusNotFound, "Account not found"}},
	{model.ErrInvalidCredentials, domainStatus{http.StatusNotFound, "User not found"}},
	{model.ErrProfileNotFound, domainStatus{http.StatusNotFound, "Profile not found"}},
	{model.ErrRequestNotFound, domainStatus{http.StatusNotFound, "Request not found"}},
	{model.ErrBlockNotFound, domainStatus{http.StatusNotFound, "Block not found"}},
	{model.ErrAlreadyLoggedIn, domainStatus{http.StatusBadRequest, "You are already logged in"}},
	{model.ErrUsernameExists, domainStatus{http.StatusBadRequest, "Username already exists"}},
	{model.ErrEmailExists, domainStatus{http.StatusBadRequest, "Email already exists"}},
	{model.ErrNothingToUpdate, domainStatus{http.StatusBadRequest, "Only email and password are updatable"}},
	{model.ErrInvalidPage, domainStatus{http.StatusBadRequest, "Invalid page number"}},
	{model.ErrSelfRelationship, domainStatus{http.StatusBadRequest, "You cannot target yourself"}},
	{model.ErrAlreadyRequested, domainStatus{http.StatusBadRequest, "Already Requested"}},
	{model.ErrAlreadyBlocked, domainStatus{http.StatusBadRequest, "Already blocked"}},
	{model.ErrNotFollowing, domainStatus{http.StatusBadRequest, "Not following this user"}},
	{model.ErrNotOwner, domainStatus{http.StatusForbidden, "You do not have permission to perform this action"}},
	{model.ErrBlockedByTarget, domainStatus{http.StatusForbidden, "You are blocked by this user"}},
	{model.ErrPrivateProfile, domainStatus{http.StatusForbidden, "You cannot view connections of a private profile"}},
	{model.ErrResetCodeExpired, domainStatus{http.StatusBadRequest, "Code has expired. Please request a new one."}},
	{model.ErrResetCodeNotFound, domainStatus{http.StatusBadRequest, "Failed to verify code, please try again in a few moments."}},
	{model.ErrResetCodeConflict, domainStatus{http.StatusInternalServerError, "System error. Please request a new code."}},
	{model.ErrRefreshTokenNotFound, domainStatus{http.StatusUnauthorized, "Invalid refresh token"}},
	{model.ErrRefreshTokenExpired, domainStatus{http.StatusUnauthorized, "Refresh token expired"}},
	{model.ErrRefreshTokenReused, domainStatus{http.StatusUnauthorized, "Invalid refresh token"}},
}

// ErrorWriter translates handler errors into responses. It is the
// collaborator the version dispatcher delegates error formatting to.
type ErrorWriter interface {
	WriteError(w http.ResponseWriter, err error)
}

// DomainErrorWriter maps domain sentinels per the taxonomy above.
type DomainErrorWriter struct {
	Logger *zap.Logger
}

func NewDomainErrorWriter(logger *zap.Logger) *DomainErrorWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DomainErrorWriter{Logger: logger}
}

func (d *DomainErrorWriter) WriteError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		WriteJSON(w, http.StatusBadRequest, ValidationResponse{
			Message: vErr.Message,
			Errors:  vErr.Errors,
		})
		return
	}

	for _, entry := range domainTaxonomy {
		if errors.Is(err, entry.err) {
			if entry.status == http.StatusInternalServerError {
				d.Logger.Error("domain inconsistency", zap.Error(err))
			}
			WriteMessage(w, entry.status, entry.message)
			return
		}
	}

	// Unexpected: surface a 500 without leaking internal detail.
	d.Logger.Error("unhandled error", zap.Error(err))
	WriteInternalError(w, "An unexpected error occurred")
}
