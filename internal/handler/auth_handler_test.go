package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/tenki/internal/auth"
	"github.com/hitoshi/tenki/internal/model"
)

func testAuthResult() *auth.Result {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &auth.Result{
		AccessToken: "token-abc",
		ExpiresAt:   now.Add(24 * time.Hour),
		User: &model.User{
			ID:        "user-1",
			Name:      "Alice",
			Email:     "alice@example.com",
			Roles:     []string{model.RoleUser},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// --- POST /api/register ---

func TestAuthHandler_Register_Success(t *testing.T) {
	var got auth.RegisterInput
	h := NewAuthHandler(&mockAuthService{
		registerFn: func(_ context.Context, in auth.RegisterInput) (*auth.Result, error) {
			got = in
			return testAuthResult(), nil
		},
	})

	req := jsonRequest(t, http.MethodPost, "/api/register", map[string]string{
		"name":                  "Alice",
		"email":                 "alice@example.com",
		"password":              "password123",
		"password_confirmation": "password123",
	})
	w := httptest.NewRecorder()
	h.Register(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, auth.RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "password123"}, got)

	body := decodeBody[tokenResponse](t, w)
	assert.Equal(t, "User registered successfully", body.Message)
	assert.Equal(t, "token-abc", body.AccessToken)
	assert.Equal(t, "Bearer", body.TokenType)
	assert.Equal(t, "alice@example.com", body.User.Email)
	assert.Equal(t, []string{model.RoleUser}, body.User.Roles)
}

func TestAuthHandler_Register_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      map[string]string
		wantField string
	}{
		{
			name:      "名前なし",
			body:      map[string]string{"email": "a@example.com", "password": "password123", "password_confirmation": "password123"},
			wantField: "name",
		},
		{
			name:      "メール形式不正",
			body:      map[string]string{"name": "A", "email": "not-an-email", "password": "password123", "password_confirmation": "password123"},
			wantField: "email",
		},
		{
			name:      "パスワードが短い",
			body:      map[string]string{"name": "A", "email": "a@example.com", "password": "short", "password_confirmation": "short"},
			wantField: "password",
		},
		{
			name:      "確認用パスワード不一致",
			body:      map[string]string{"name": "A", "email": "a@example.com", "password": "password123", "password_confirmation": "password124"},
			wantField: "password_confirmation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{
				registerFn: func(context.Context, auth.RegisterInput) (*auth.Result, error) {
					t.Error("検証エラー時にRegisterが呼ばれた")
					return nil, nil
				},
			})

			w := httptest.NewRecorder()
			h.Register(w, jsonRequest(t, http.MethodPost, "/api/register", tt.body))

			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			body := parseAPIErrorResponse(t, w)
			assert.Equal(t, model.ErrCodeValidation, body.Code)
			assert.Contains(t, body.Errors, tt.wantField)
		})
	}
}

func TestAuthHandler_Register_EmailTaken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		registerFn: func(_ context.Context, in auth.RegisterInput) (*auth.Result, error) {
			return nil, model.NewEmailTakenError(in.Email)
		},
	})

	req := jsonRequest(t, http.MethodPost, "/api/register", map[string]string{
		"name": "Alice", "email": "alice@example.com",
		"password": "password123", "password_confirmation": "password123",
	})
	w := httptest.NewRecorder()
	h.Register(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, model.ErrCodeEmailTaken, parseAPIErrorResponse(t, w).Code)
}

func TestAuthHandler_Register_InvalidJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/register", nil)
	w := httptest.NewRecorder()
	h.Register(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, model.ErrCodeInvalidRequest, parseAPIErrorResponse(t, w).Code)
}

// --- POST /api/login ---

func TestAuthHandler_Login_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(_ context.Context, email, password string) (*auth.Result, error) {
			assert.Equal(t, "alice@example.com", email)
			assert.Equal(t, "password123", password)
			return testAuthResult(), nil
		},
	})

	w := httptest.NewRecorder()
	h.Login(w, jsonRequest(t, http.MethodPost, "/api/login", map[string]string{
		"email": "alice@example.com", "password": "password123",
	}))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[tokenResponse](t, w)
	assert.Equal(t, "User logged in successfully", body.Message)
	assert.Equal(t, "token-abc", body.AccessToken)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(context.Context, string, string) (*auth.Result, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	})

	w := httptest.NewRecorder()
	h.Login(w, jsonRequest(t, http.MethodPost, "/api/login", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	}))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, model.ErrCodeInvalidCredentials, parseAPIErrorResponse(t, w).Code)
}

func TestAuthHandler_Login_InternalError(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(context.Context, string, string) (*auth.Result, error) {
			return nil, errors.New("connection refused")
		},
	})

	w := httptest.NewRecorder()
	h.Login(w, jsonRequest(t, http.MethodPost, "/api/login", map[string]string{
		"email": "alice@example.com", "password": "password123",
	}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := parseAPIErrorResponse(t, w)
	assert.Equal(t, model.ErrCodeInternal, body.Code)
	assert.NotContains(t, body.Message, "connection refused")
}

// --- POST /api/logout ---

func TestAuthHandler_Logout_RevokesPresentedToken(t *testing.T) {
	var revoked string
	h := NewAuthHandler(&mockAuthService{
		logoutFn: func(_ context.Context, sessionID string) error {
			revoked = sessionID
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req = withUser(req, &model.User{ID: "user-1"}, "session-1")
	w := httptest.NewRecorder()
	h.Logout(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "session-1", revoked)
	assert.Equal(t, "Successfully logged out", decodeBody[messageResponse](t, w).Message)
}

func TestAuthHandler_Logout_NoSession_ReturnsUnauthorized(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/api/logout", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- GET /api/user ---

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req = withUser(req, &model.User{
		ID: "user-1", Name: "Alice", Email: "alice@example.com",
		PasswordHash: "secret-hash", Roles: []string{model.RoleAdmin},
	}, "session-1")
	w := httptest.NewRecorder()
	h.Me(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-hash")

	body := decodeBody[struct {
		Data userResource `json:"data"`
	}](t, w)
	assert.Equal(t, "user-1", body.Data.ID)
	assert.Equal(t, []string{model.RoleAdmin}, body.Data.Roles)
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	h.Me(w, httptest.NewRequest(http.MethodGet, "/api/user", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
