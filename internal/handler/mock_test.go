package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tenki/internal/auth"
	"github.com/hitoshi/tenki/internal/middleware"
	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/user"
	"github.com/hitoshi/tenki/internal/weather"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn func(ctx context.Context, in auth.RegisterInput) (*auth.Result, error)
	loginFn    func(ctx context.Context, email, password string) (*auth.Result, error)
	logoutFn   func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type mockActivityService struct {
	lookupAndRecordFn func(ctx context.Context, userID, city, locale string) (*weather.NormalizedWeather, error)
}

func (m *mockActivityService) LookupAndRecord(ctx context.Context, userID, city, locale string) (*weather.NormalizedWeather, error) {
	if m.lookupAndRecordFn != nil {
		return m.lookupAndRecordFn(ctx, userID, city, locale)
	}
	return nil, nil
}

type mockLocationSearcher struct {
	searchLocationsFn func(ctx context.Context, query string) []weather.LocationCandidate
}

func (m *mockLocationSearcher) SearchLocations(ctx context.Context, query string) []weather.LocationCandidate {
	if m.searchLocationsFn != nil {
		return m.searchLocationsFn(ctx, query)
	}
	return nil
}

type mockFavoriteService struct {
	listFn   func(ctx context.Context, userID string, page, perPage int) (*model.Page[*model.FavoriteCity], error)
	addFn    func(ctx context.Context, userID, cityName string) (*model.FavoriteCity, error)
	removeFn func(ctx context.Context, userID, cityName string) (bool, error)
}

func (m *mockFavoriteService) List(ctx context.Context, userID string, page, perPage int) (*model.Page[*model.FavoriteCity], error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, page, perPage)
	}
	return &model.Page[*model.FavoriteCity]{Items: []*model.FavoriteCity{}, Page: 1, PerPage: model.DefaultPerPage}, nil
}

func (m *mockFavoriteService) Add(ctx context.Context, userID, cityName string) (*model.FavoriteCity, error) {
	if m.addFn != nil {
		return m.addFn(ctx, userID, cityName)
	}
	return nil, nil
}

func (m *mockFavoriteService) Remove(ctx context.Context, userID, cityName string) (bool, error) {
	if m.removeFn != nil {
		return m.removeFn(ctx, userID, cityName)
	}
	return false, nil
}

type mockHistoryService struct {
	listFn func(ctx context.Context, userID string, page, perPage int) (*model.Page[*model.SearchHistoryEntry], error)
}

func (m *mockHistoryService) List(ctx context.Context, userID string, page, perPage int) (*model.Page[*model.SearchHistoryEntry], error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, page, perPage)
	}
	return &model.Page[*model.SearchHistoryEntry]{Items: []*model.SearchHistoryEntry{}, Page: 1, PerPage: model.DefaultPerPage}, nil
}

type mockUserService struct {
	listFn   func(ctx context.Context, filter model.UserFilter, page, perPage int) (*model.Page[*model.User], error)
	getFn    func(ctx context.Context, id string) (*model.User, error)
	createFn func(ctx context.Context, in user.CreateInput) (*model.User, error)
	updateFn func(ctx context.Context, id string, in user.UpdateInput) (*model.User, error)
	deleteFn func(ctx context.Context, actorID, userID string) error
}

func (m *mockUserService) List(ctx context.Context, filter model.UserFilter, page, perPage int) (*model.Page[*model.User], error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter, page, perPage)
	}
	return &model.Page[*model.User]{Items: []*model.User{}, Page: 1, PerPage: model.DefaultPerPage}, nil
}

func (m *mockUserService) Get(ctx context.Context, id string) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockUserService) Create(ctx context.Context, in user.CreateInput) (*model.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return nil, nil
}

func (m *mockUserService) Update(ctx context.Context, id string, in user.UpdateInput) (*model.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return nil, nil
}

func (m *mockUserService) Delete(ctx context.Context, actorID, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actorID, userID)
	}
	return nil
}

var (
	_ AuthServiceInterface     = (*mockAuthService)(nil)
	_ ActivityServiceInterface = (*mockActivityService)(nil)
	_ LocationSearcher         = (*mockLocationSearcher)(nil)
	_ FavoriteServiceInterface = (*mockFavoriteService)(nil)
	_ HistoryServiceInterface  = (*mockHistoryService)(nil)
	_ UserServiceInterface     = (*mockUserService)(nil)
)

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withUser はテスト用にリクエストコンテキストに認証済みユーザーとセッションIDを注入するヘルパー。
func withUser(r *http.Request, u *model.User, sessionID string) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), u, sessionID))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// jsonRequest はJSONボディ付きのリクエストを生成するヘルパー。
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseAPIErrorResponse はレスポンスボディからエラーレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

// decodeBody はレスポンスボディを任意の型にデコードするヘルパー。
func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}
