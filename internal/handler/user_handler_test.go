package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/user"
)

var (
	adminUser   = &model.User{ID: "admin-1", Name: "Admin", Email: "admin@example.com", Roles: []string{model.RoleAdmin}}
	regularUser = &model.User{ID: "user-1", Name: "Alice", Email: "alice@example.com", Roles: []string{model.RoleUser}}
)

// --- GET /api/admin/users ---

func TestUserHandler_List_PassesSearchAndPaging(t *testing.T) {
	h := NewUserHandler(&mockUserService{
		listFn: func(_ context.Context, filter model.UserFilter, page, perPage int) (*model.Page[*model.User], error) {
			assert.Equal(t, "ali", filter.Search)
			assert.Equal(t, 1, page)
			assert.Equal(t, 5, perPage)
			return &model.Page[*model.User]{Items: []*model.User{regularUser}, Total: 1, Page: 1, PerPage: 5}, nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/admin/users?search=ali&page=1&per_page=5", nil), adminUser, "s-1")
	w := httptest.NewRecorder()
	h.List(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[paginatedResponse[userResource]](t, w)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "alice@example.com", body.Data[0].Email)
	assert.Equal(t, 5, body.Meta.PerPage)
}

// --- GET /api/admin/users/{id} ---

func TestUserHandler_Show_Authorization(t *testing.T) {
	tests := []struct {
		name       string
		actor      *model.User
		target     string
		wantStatus int
	}{
		{"管理者は他ユーザーを参照できる", adminUser, "user-1", http.StatusOK},
		{"本人は自分を参照できる", regularUser, "user-1", http.StatusOK},
		{"一般ユーザーは他ユーザーを参照できない", regularUser, "user-2", http.StatusForbidden},
		{"存在しないユーザー", adminUser, "ghost", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUserHandler(&mockUserService{
				getFn: func(_ context.Context, id string) (*model.User, error) {
					if id == "ghost" {
						return nil, model.NewUserNotFoundError()
					}
					return &model.User{ID: id}, nil
				},
			})

			req := httptest.NewRequest(http.MethodGet, "/api/admin/users/"+tt.target, nil)
			req = withChiURLParam(withUser(req, tt.actor, "s-1"), "id", tt.target)
			w := httptest.NewRecorder()
			h.Show(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

// --- POST /api/admin/users ---

func TestUserHandler_Store_Created(t *testing.T) {
	var got user.CreateInput
	h := NewUserHandler(&mockUserService{
		createFn: func(_ context.Context, in user.CreateInput) (*model.User, error) {
			got = in
			return &model.User{ID: "new-1", Name: in.Name, Email: in.Email, Roles: in.Roles}, nil
		},
	})

	req := jsonRequest(t, http.MethodPost, "/api/admin/users", map[string]any{
		"name": "Bob", "email": "bob@example.com",
		"password": "password123", "password_confirmation": "password123",
		"roles": []string{model.RoleAdmin},
	})
	w := httptest.NewRecorder()
	h.Store(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, user.CreateInput{
		Name: "Bob", Email: "bob@example.com", Password: "password123", Roles: []string{model.RoleAdmin},
	}, got)
}

func TestUserHandler_Store_UnknownRole(t *testing.T) {
	h := NewUserHandler(&mockUserService{
		createFn: func(context.Context, user.CreateInput) (*model.User, error) {
			return nil, model.NewUnknownRoleError("superuser")
		},
	})

	req := jsonRequest(t, http.MethodPost, "/api/admin/users", map[string]any{
		"name": "Bob", "email": "bob@example.com",
		"password": "password123", "password_confirmation": "password123",
		"roles": []string{"superuser"},
	})
	w := httptest.NewRecorder()
	h.Store(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, model.ErrCodeUnknownRole, parseAPIErrorResponse(t, w).Code)
}

func TestUserHandler_Store_Validation(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := jsonRequest(t, http.MethodPost, "/api/admin/users", map[string]any{"email": "bob@example.com"})
	w := httptest.NewRecorder()
	h.Store(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := parseAPIErrorResponse(t, w)
	assert.Contains(t, body.Errors, "name")
	assert.Contains(t, body.Errors, "password")
}

// --- PUT /api/admin/users/{id} ---

func TestUserHandler_Update_PartialFields(t *testing.T) {
	var got user.UpdateInput
	h := NewUserHandler(&mockUserService{
		updateFn: func(_ context.Context, id string, in user.UpdateInput) (*model.User, error) {
			assert.Equal(t, "user-1", id)
			got = in
			return &model.User{ID: id, Name: *in.Name}, nil
		},
	})

	req := jsonRequest(t, http.MethodPut, "/api/admin/users/user-1", map[string]any{"name": "Alice B"})
	req = withChiURLParam(req, "id", "user-1")
	w := httptest.NewRecorder()
	h.Update(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Alice B", *got.Name)
	assert.Nil(t, got.Email)
	assert.Empty(t, got.Password)
	assert.Nil(t, got.Roles)
}

func TestUserHandler_Update_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      map[string]any
		wantField string
	}{
		{"空の名前", map[string]any{"name": ""}, "name"},
		{"メール形式不正", map[string]any{"email": "nope"}, "email"},
		{"短いパスワード", map[string]any{"password": "short", "password_confirmation": "short"}, "password"},
		{"確認用パスワード不一致", map[string]any{"password": "password123", "password_confirmation": "x"}, "password_confirmation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUserHandler(&mockUserService{
				updateFn: func(context.Context, string, user.UpdateInput) (*model.User, error) {
					t.Error("検証エラー時にUpdateが呼ばれた")
					return nil, nil
				},
			})

			req := withChiURLParam(jsonRequest(t, http.MethodPut, "/api/admin/users/user-1", tt.body), "id", "user-1")
			w := httptest.NewRecorder()
			h.Update(w, req)

			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, parseAPIErrorResponse(t, w).Errors, tt.wantField)
		})
	}
}

// --- DELETE /api/admin/users/{id} ---

func TestUserHandler_Delete(t *testing.T) {
	var gotActor, gotTarget string
	h := NewUserHandler(&mockUserService{
		deleteFn: func(_ context.Context, actorID, userID string) error {
			gotActor, gotTarget = actorID, userID
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/users/user-1", nil)
	req = withChiURLParam(withUser(req, adminUser, "s-1"), "id", "user-1")
	w := httptest.NewRecorder()
	h.Delete(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", gotActor)
	assert.Equal(t, "user-1", gotTarget)
	assert.Equal(t, "User deleted successfully.", decodeBody[messageResponse](t, w).Message)
}

func TestUserHandler_Delete_Self(t *testing.T) {
	h := NewUserHandler(&mockUserService{
		deleteFn: func(context.Context, string, string) error {
			return model.NewSelfDeleteError()
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/users/admin-1", nil)
	req = withChiURLParam(withUser(req, adminUser, "s-1"), "id", "admin-1")
	w := httptest.NewRecorder()
	h.Delete(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, model.ErrCodeSelfDelete, parseAPIErrorResponse(t, w).Code)
}
