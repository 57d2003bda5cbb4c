package controllers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/mittell/blogpost/models"
	"github.com/mittell/blogpost/utils"
)

func TestSignup_Success(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/auth/signup", map[string]string{
		"email":    "alice@example.com",
		"username": "alice",
		"password": "password123",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var data struct {
		UserID   string `json:"userId"`
		Email    string `json:"email"`
		Username string `json:"username"`
		Role     string `json:"role"`
		Blocked  bool   `json:"blocked"`
	}
	decodeData(t, w, &data)
	if data.UserID == "" {
		t.Error("missing userId")
	}
	if data.Email != "alice@example.com" || data.Username != "alice" {
		t.Errorf("unexpected identity: %+v", data)
	}
	if data.Role != models.RoleUser {
		t.Errorf("role = %q, want %q", data.Role, models.RoleUser)
	}
	if data.Blocked {
		t.Error("new user should not be blocked")
	}

	if strings.Contains(w.Body.String(), "password") {
		t.Error("response leaks a password field")
	}

	cookie := sessionCookie(t, w)
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	user := env.userByEmail(t, "alice@example.com")
	if !strings.HasPrefix(user.PasswordHash, "$2") {
		t.Errorf("stored credential is not bcrypt: %s", user.PasswordHash)
	}
}

func TestSignup_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"username": "alice", "password": "password123"}},
		{"missing username", map[string]string{"email": "a@example.com", "password": "password123"}},
		{"missing password", map[string]string{"email": "a@example.com", "username": "alice"}},
		{"short password", map[string]string{"email": "a@example.com", "username": "alice", "password": "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/auth/signup", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}

	var count int64
	env.db.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected signups created %d users", count)
	}
}

func TestSignup_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice@example.com", "alice", "password123")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"same email", map[string]string{"email": "alice@example.com", "username": "other", "password": "password123"}},
		{"same username", map[string]string{"email": "other@example.com", "username": "alice", "password": "password123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/auth/signup", tt.body)
			if w.Code != http.StatusConflict {
				t.Errorf("status = %d, want 409 (body: %s)", w.Code, w.Body.String())
			}
		})
	}

	var count int64
	env.db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("duplicate signups created users, total %d", count)
	}
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice@example.com", "alice", "password123")

	w := env.do(t, "POST", "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	sessionCookie(t, w)
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice@example.com", "alice", "password123")

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong password", map[string]string{"email": "alice@example.com", "password": "wrongpassword"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "nobody@example.com", "password": "password123"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"email": "alice@example.com"}, http.StatusBadRequest},
		{"missing email", map[string]string{"password": "password123"}, http.StatusBadRequest},
	}

	var unknownMsg, wrongMsg string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/auth/login", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			resp := decodeEnvelope(t, w)
			switch tt.name {
			case "wrong password":
				wrongMsg = resp.Message
			case "unknown email":
				unknownMsg = resp.Message
			}
		})
	}

	// Unknown account and wrong password must be indistinguishable.
	if unknownMsg != wrongMsg {
		t.Errorf("credential errors differ: %q vs %q", unknownMsg, wrongMsg)
	}
}

func TestLogin_LegacyCredentialMigrates(t *testing.T) {
	env := newTestEnv(t)

	user := models.User{
		Email:        "legacy@example.com",
		Username:     "legacy",
		PasswordHash: utils.LegacyHash("password123"),
		Role:         models.RoleUser,
	}
	if err := env.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	w := env.do(t, "POST", "/auth/login", map[string]string{
		"email":    "legacy@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("legacy login: status %d (body: %s)", w.Code, w.Body.String())
	}

	migrated := env.userByEmail(t, "legacy@example.com")
	if !strings.HasPrefix(migrated.PasswordHash, "$2") {
		t.Errorf("credential was not migrated to bcrypt: %s", migrated.PasswordHash)
	}

	// The migrated credential keeps working.
	env.login(t, "legacy@example.com", "password123")

	w = env.do(t, "POST", "/auth/login", map[string]string{
		"email":    "legacy@example.com",
		"password": "wrongpassword",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password after migration: status %d", w.Code)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	t.Run("no session", func(t *testing.T) {
		w := env.do(t, "GET", "/auth/me", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("with session", func(t *testing.T) {
		cookie := env.signup(t, "alice@example.com", "alice", "password123")
		w := env.do(t, "GET", "/auth/me", nil, cookie)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
		}
		var data struct {
			UserID   string `json:"userId"`
			Username string `json:"username"`
			Role     string `json:"role"`
		}
		decodeData(t, w, &data)
		if data.Username != "alice" || data.Role != models.RoleUser {
			t.Errorf("unexpected claims: %+v", data)
		}
	})
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signup(t, "alice@example.com", "alice", "password123")

	w := env.do(t, "POST", "/auth/logout", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status %d", w.Code)
	}
	cleared := sessionCookie(t, w)
	if cleared.MaxAge != -1 {
		t.Errorf("cookie MaxAge = %d, want -1", cleared.MaxAge)
	}

	// The old token is revoked server-side, so replaying it fails.
	w = env.do(t, "GET", "/auth/me", nil, cookie)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: status %d, want 401", w.Code)
	}
}

func TestLogout_WithoutSession(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "POST", "/auth/logout", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
