package fiber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/keralabs/passway"
	"github.com/keralabs/passway/core"
	"github.com/keralabs/passway/pkg/crypto"
	"github.com/keralabs/passway/services"
)

const testSecret = "test-secret-test-secret-test-secret"

func newTestApp(t *testing.T) (*fiber.App, *services.FakeStorage) {
	t.Helper()

	app := fiber.New()
	storage := services.NewFakeStorage()

	_, err := passway.New(passway.Config{
		Secret:  testSecret,
		Storage: storage,
		HTTP:    New(app),
		Hasher: &crypto.Argon2{
			Memory:      8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		BaseURL: "http://localhost",
	})
	if err != nil {
		t.Fatalf("passway.New() error = %v", err)
	}

	return app, storage
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	resp.Body.Close()

	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode response %q: %v", raw, err)
		}
	}
	return resp, decoded
}

func registerUser(t *testing.T, app *fiber.App, name, email, role string) (token string, userID string) {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/auth/register", "", map[string]any{
		"name":                  name,
		"email":                 email,
		"password":              "SecurePass123",
		"password_confirmation": "SecurePass123",
		"role":                  role,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %v", email, resp.StatusCode, body)
	}

	token, _ = body["token"].(string)
	user, _ := body["user"].(map[string]any)
	userID, _ = user["id"].(string)
	return token, userID
}

// Requirement: POST /auth/register creates the account, returns 201 with a
// bearer token, and never serializes the password hash.
func TestRegisterEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/register", "", map[string]any{
		"name":                  "Alice",
		"email":                 "alice@example.com",
		"password":              "SecurePass123",
		"password_confirmation": "SecurePass123",
	})

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body = %v", resp.StatusCode, body)
	}
	if body["token"] == "" || body["token"] == nil {
		t.Error("response must carry the plaintext token")
	}
	if body["token_type"] != "Bearer" {
		t.Errorf("token_type = %v, want Bearer", body["token_type"])
	}

	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("user missing from response: %v", body)
	}
	if user["email"] != "alice@example.com" {
		t.Errorf("user email = %v", user["email"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("password hash must never appear in a response")
	}
	if user["email_verified_at"] != nil {
		t.Errorf("fresh user must be unverified, got %v", user["email_verified_at"])
	}
}

// Requirement: registration violations come back as 422 with per-field
// messages; a duplicate email reports on the email field.
func TestRegisterEndpointValidation(t *testing.T) {
	app, _ := newTestApp(t)
	registerUser(t, app, "Alice", "alice@example.com", "")

	tests := []struct {
		name      string
		payload   map[string]any
		wantField string
	}{
		{
			name: "duplicate email",
			payload: map[string]any{
				"name": "Other", "email": "alice@example.com",
				"password": "SecurePass123", "password_confirmation": "SecurePass123",
			},
			wantField: "email",
		},
		{
			name: "short password",
			payload: map[string]any{
				"name": "Bob", "email": "bob@example.com",
				"password": "short", "password_confirmation": "short",
			},
			wantField: "password",
		},
		{
			name: "mismatched confirmation",
			payload: map[string]any{
				"name": "Bob", "email": "bob@example.com",
				"password": "SecurePass123", "password_confirmation": "Different123",
			},
			wantField: "password_confirmation",
		},
		{
			name:      "empty payload",
			payload:   map[string]any{},
			wantField: "name",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			resp, body := doJSON(t, app, http.MethodPost, "/auth/register", "", test.payload)
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422, body = %v", resp.StatusCode, body)
			}
			fields, _ := body["errors"].(map[string]any)
			if _, ok := fields[test.wantField]; !ok {
				t.Errorf("errors = %v, want key %q", fields, test.wantField)
			}
		})
	}
}

// Requirement: POST /auth/login issues a token for valid credentials and
// reports bad credentials as a 422 on the email field.
func TestLoginEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	registerUser(t, app, "Alice", "alice@example.com", "")

	resp, body := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "alice@example.com", "password": "SecurePass123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %v", resp.StatusCode, body)
	}
	if body["token"] == "" || body["token"] == nil {
		t.Error("login must return a fresh token")
	}

	resp, body = doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "alice@example.com", "password": "WrongPass123",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad credentials status = %d, want 422, body = %v", resp.StatusCode, body)
	}
	fields, _ := body["errors"].(map[string]any)
	if _, ok := fields["email"]; !ok {
		t.Errorf("errors = %v, want email key", fields)
	}
}

// Requirement: GET /auth/user requires a bearer token and returns the
// authenticated user.
func TestCurrentUserEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	token, userID := registerUser(t, app, "Alice", "alice@example.com", "")

	resp, body := doJSON(t, app, http.MethodGet, "/auth/user", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %v", resp.StatusCode, body)
	}
	if body["id"] != userID {
		t.Errorf("id = %v, want %v", body["id"], userID)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/auth/user", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/auth/user", "bogus-secret", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", resp.StatusCode)
	}
}

// Requirement: PUT /auth/user applies a partial update to the caller only.
func TestUpdateProfileEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	token, _ := registerUser(t, app, "Alice", "alice@example.com", "")

	resp, body := doJSON(t, app, http.MethodPut, "/auth/user", token, map[string]any{
		"name": "Alice Cooper",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %v", resp.StatusCode, body)
	}
	if body["name"] != "Alice Cooper" {
		t.Errorf("name = %v, want Alice Cooper", body["name"])
	}
	if body["email"] != "alice@example.com" {
		t.Errorf("email = %v, must stay untouched", body["email"])
	}
}

// Requirement: POST /auth/logout revokes the caller's token; the revoked
// secret stops authenticating.
func TestLogoutEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	token, _ := registerUser(t, app, "Alice", "alice@example.com", "")

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/auth/user", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d, want 401", resp.StatusCode)
	}
}

// Requirement: POST /auth/refresh rotates the bearer token; the old secret
// is dead and the new one resolves to the same user.
func TestRefreshEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	token, userID := registerUser(t, app, "Alice", "alice@example.com", "")

	resp, body := doJSON(t, app, http.MethodPost, "/auth/refresh", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200, body = %v", resp.StatusCode, body)
	}
	fresh, _ := body["token"].(string)
	if fresh == "" || fresh == token {
		t.Fatal("refresh must return a different token")
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/auth/user", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("old token status = %d, want 401", resp.StatusCode)
	}

	resp, body = doJSON(t, app, http.MethodGet, "/auth/user", fresh, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("new token status = %d, want 200", resp.StatusCode)
	}
	if body["id"] != userID {
		t.Errorf("refreshed token resolves to %v, want %v", body["id"], userID)
	}
}

// Requirement: the signed verification link flow verifies the account, a
// tampered link is a 400, and a second pass reports already verified.
func TestVerificationLinkFlow(t *testing.T) {
	app, storage := newTestApp(t)
	token, userID := registerUser(t, app, "Alice", "alice@example.com", "")

	signer := crypto.NewLinkSigner(testSecret)
	signature := signer.Sign(userID, "alice@example.com")

	resp, _ := doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/auth/email/verify/%s/%s", userID, strings.Repeat("0", 64)), "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("tampered link status = %d, want 400", resp.StatusCode)
	}

	resp, body := doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/auth/email/verify/%s/%s", userID, signature), "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid link status = %d, want 200, body = %v", resp.StatusCode, body)
	}

	stored, err := storage.GetUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if !stored.Verified() {
		t.Fatal("user must be verified after the link flow")
	}

	resp, _ = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/auth/email/verify/%s/%s", userID, signature), "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("second pass status = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/email/verification-notification", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("resend for verified status = %d, want 400", resp.StatusCode)
	}
}

// Requirement: POST /auth/email/verify verifies the authenticated caller
// without a signed link.
func TestAuthenticatedVerifyEndpoint(t *testing.T) {
	app, storage := newTestApp(t)
	token, userID := registerUser(t, app, "Alice", "alice@example.com", "")

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/email/verify", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	stored, err := storage.GetUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if !stored.Verified() {
		t.Error("user must be verified")
	}
}

// Requirement: /users is admin-only; a regular user gets 403, an admin can
// list and update accounts.
func TestAdminEndpoints(t *testing.T) {
	app, _ := newTestApp(t)
	userToken, _ := registerUser(t, app, "Alice", "alice@example.com", "")
	adminToken, _ := registerUser(t, app, "Root", "root@example.com", "admin")
	_, bobID := registerUser(t, app, "Bob", "bob@example.com", "")

	resp, _ := doJSON(t, app, http.MethodGet, "/users", userToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("regular user status = %d, want 403", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/users", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", resp.StatusCode)
	}

	resp, body := doJSON(t, app, http.MethodGet, "/users?per_page=2", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin listing status = %d, want 200, body = %v", resp.StatusCode, body)
	}
	data, _ := body["data"].([]any)
	if len(data) != 2 {
		t.Errorf("len(data) = %d, want 2", len(data))
	}
	if body["total"] != float64(3) {
		t.Errorf("total = %v, want 3", body["total"])
	}

	resp, body = doJSON(t, app, http.MethodPut, "/users/"+bobID, adminToken, map[string]any{
		"role": "admin",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin update status = %d, want 200, body = %v", resp.StatusCode, body)
	}
	if body["role"] != "admin" {
		t.Errorf("role = %v, want admin", body["role"])
	}

	resp, _ = doJSON(t, app, http.MethodPut, "/users/missing-id", adminToken, map[string]any{
		"name": "Ghost",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown target status = %d, want 404", resp.StatusCode)
	}
}

// Requirement: error kinds map onto their HTTP status codes; anything
// unrecognized is a plain 500.
func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "unauthenticated", err: core.ErrUnauthenticated, want: http.StatusUnauthorized},
		{name: "missing header", err: core.ErrMissingAuthHeader, want: http.StatusUnauthorized},
		{name: "token not found", err: core.ErrTokenNotFound, want: http.StatusUnauthorized},
		{name: "token expired", err: core.ErrTokenExpired, want: http.StatusUnauthorized},
		{name: "forbidden", err: core.ErrForbidden, want: http.StatusForbidden},
		{name: "user not found", err: core.ErrUserNotFound, want: http.StatusNotFound},
		{name: "invalid link", err: core.ErrInvalidLink, want: http.StatusBadRequest},
		{name: "already verified", err: core.ErrAlreadyVerified, want: http.StatusBadRequest},
		{name: "wrapped sentinel", err: fmt.Errorf("context: %w", core.ErrUserNotFound), want: http.StatusNotFound},
		{name: "unknown error", err: errors.New("pq: connection reset"), want: http.StatusInternalServerError},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := mapErrorToStatus(test.err); got != test.want {
				t.Errorf("mapErrorToStatus(%v) = %d, want %d", test.err, got, test.want)
			}
		})
	}
}
