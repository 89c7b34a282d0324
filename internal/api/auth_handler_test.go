package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, f *apiFixture, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRegister(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		payload    map[string]interface{}
		wantStatus int
		wantToken  bool
	}{
		{
			name: "valid registration",
			payload: map[string]interface{}{
				"name":     "Test User",
				"email":    "test@example.com",
				"password": "password1234567",
			},
			wantStatus: http.StatusCreated,
			wantToken:  true,
		},
		{
			name: "invalid email",
			payload: map[string]interface{}{
				"name":     "Test User",
				"email":    "invalid-email",
				"password": "password1234567",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "password too short",
			payload: map[string]interface{}{
				"name":     "Test User",
				"email":    "test2@example.com",
				"password": "short",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing name",
			payload: map[string]interface{}{
				"email":    "test3@example.com",
				"password": "password1234567",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newAPIFixture(t)

			rec := postJSON(t, f, "/api/auth/register", tt.payload)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantToken {
				var resp AuthResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.NotEmpty(t, resp.AccessToken)
				assert.NotEmpty(t, resp.RefreshToken)
			}
		})
	}

	t.Run("duplicate email conflicts", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t)
		payload := map[string]interface{}{
			"name":     "Test User",
			"email":    "dup@example.com",
			"password": "password1234567",
		}

		rec := postJSON(t, f, "/api/auth/register", payload)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = postJSON(t, f, "/api/auth/register", payload)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.registerUser(t, "Alice", "alice@example.com", "password1234567")

	tests := []struct {
		name       string
		email      string
		password   string
		wantStatus int
	}{
		{"valid credentials", "alice@example.com", "password1234567", http.StatusOK},
		{"wrong password", "alice@example.com", "wrong-password", http.StatusUnauthorized},
		{"unknown user", "ghost@example.com", "password1234567", http.StatusUnauthorized},
		{"malformed email", "not-an-email", "password1234567", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, f, "/api/auth/login", map[string]interface{}{
				"email":    tt.email,
				"password": tt.password,
			})
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRefreshAndLogout(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.registerUser(t, "Alice", "alice@example.com", "password1234567")

	rec := postJSON(t, f, "/api/auth/login", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "password1234567",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))
	require.NotEmpty(t, login.RefreshToken)

	t.Run("refresh rotates the pair", func(t *testing.T) {
		rec := postJSON(t, f, "/api/auth/refresh", map[string]interface{}{
			"refresh_token": login.RefreshToken,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var refreshed RefreshTokenResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&refreshed))
		assert.NotEmpty(t, refreshed.AccessToken)
		assert.NotEmpty(t, refreshed.RefreshToken)
		assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

		// The presented refresh token was revoked by the rotation.
		rec = postJSON(t, f, "/api/auth/refresh", map[string]interface{}{
			"refresh_token": login.RefreshToken,
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		// Logout revokes the new one too.
		rec = postJSON(t, f, "/api/auth/logout", map[string]interface{}{
			"refresh_token": refreshed.RefreshToken,
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = postJSON(t, f, "/api/auth/refresh", map[string]interface{}{
			"refresh_token": refreshed.RefreshToken,
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage refresh token rejected", func(t *testing.T) {
		rec := postJSON(t, f, "/api/auth/refresh", map[string]interface{}{
			"refresh_token": "not.a.token",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestProfile(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	user, authHeader := f.registerUser(t, "Alice", "alice@example.com", "password1234567")

	t.Run("requires authentication", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/detail", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("returns the authenticated user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/detail", nil)
		req.Header.Set("Authorization", authHeader)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp UserResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, user.ID, resp.ID)
		assert.Equal(t, "alice@example.com", resp.Email)
	})

	t.Run("updates name and email", func(t *testing.T) {
		body, err := json.Marshal(map[string]interface{}{
			"name":  "Alice Cooper",
			"email": "Alice.Cooper@Example.com",
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPut, "/api/detail", bytes.NewReader(body))
		req.Header.Set("Authorization", authHeader)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp UserResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "Alice Cooper", resp.Name)
		assert.Equal(t, "alice.cooper@example.com", resp.Email)
	})
}
