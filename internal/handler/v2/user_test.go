package v2

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sociable/internal/httputil"
)

// The strength policy is checked before the service runs, so the rejection
// paths need no collaborators at all.

func postJSON(t *testing.T, body string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestUserHandler_Signup_EnforcesPasswordPolicy(t *testing.T) {
	h := NewUserHandler(nil)

	result, err := h.Signup(postJSON(t, `{"username":"alice","email":"a@example.com","password":"weak"}`))

	if result != nil {
		t.Fatal("weak passwords must not produce a result")
	}
	var vErr *httputil.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %T, want a validation error", err)
	}
	// "weak" breaks four rules; all of them come back.
	if len(vErr.Errors) != 4 {
		t.Errorf("violations = %v, want all four policy rules", vErr.Errors)
	}
}

func TestUserHandler_Signup_AccumulatesFieldAndPolicyErrors(t *testing.T) {
	h := NewUserHandler(nil)

	_, err := h.Signup(postJSON(t, `{"password":""}`))

	var vErr *httputil.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %T, want a validation error", err)
	}
	// Missing username, missing email, plus all five password rules.
	if len(vErr.Errors) != 7 {
		t.Errorf("violations = %v, want 7 accumulated errors", vErr.Errors)
	}
}

func TestUserHandler_Signup_MalformedBody(t *testing.T) {
	h := NewUserHandler(nil)

	_, err := h.Signup(postJSON(t, `{not json`))

	var vErr *httputil.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %T, want a validation error", err)
	}
	if vErr.Message != "Invalid request body" {
		t.Errorf("message = %q", vErr.Message)
	}
}

func TestUserHandler_PasswordReset_EnforcesPasswordPolicy(t *testing.T) {
	h := NewUserHandler(nil)

	_, err := h.PasswordReset(postJSON(t, `{"code":"ABC123","password":"short"}`))

	var vErr *httputil.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %T, want a validation error", err)
	}
	if len(vErr.Errors) == 0 {
		t.Error("expected policy violations listed")
	}
	for _, v := range vErr.Errors {
		if v == "code is required" {
			t.Error("a present code must not be reported missing")
		}
	}
}
