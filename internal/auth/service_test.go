package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) List(context.Context, model.UserFilter, int, int) ([]*model.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) Update(context.Context, *model.User) error { return nil }

func (m *mockUserRepo) DeleteByID(context.Context, string) error { return nil }

func (m *mockUserRepo) ListRoleNames(context.Context) ([]string, error) {
	return []string{model.RoleAdmin, model.RoleUser}, nil
}

// mockSessionRepo はセッションをメモリ上に保持するモック。
type mockSessionRepo struct {
	sessions map[string]*model.Session
	createFn func(ctx context.Context, session *model.Session) error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, session); err != nil {
			return err
		}
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	s, ok := m.sessions[id]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	return s, nil
}

func (m *mockSessionRepo) DeleteByID(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(_ context.Context, userID string) error {
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

var (
	_ repository.UserRepository    = (*mockUserRepo)(nil)
	_ repository.SessionRepository = (*mockSessionRepo)(nil)
)

func newTestService(userRepo *mockUserRepo, sessionRepo *mockSessionRepo) *Service {
	return NewService(
		userRepo, sessionRepo,
		NewBcryptHasher(bcrypt.MinCost),
		NewTokenSigner("test-secret"),
		ServiceConfig{TokenTTL: time.Hour},
	)
}

// --- Register ---

func TestRegister_CreatesUserWithDefaultRoleAndToken(t *testing.T) {
	var created *model.User
	userRepo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	sessions := newMockSessionRepo()
	s := newTestService(userRepo, sessions)

	result, err := s.Register(context.Background(), RegisterInput{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register がエラーを返した: %v", err)
	}

	if created == nil {
		t.Fatal("ユーザーが作成されていない")
	}
	if len(created.Roles) != 1 || created.Roles[0] != model.RoleUser {
		t.Errorf("Roles = %v, want [user]", created.Roles)
	}
	if created.PasswordHash == "password123" || created.PasswordHash == "" {
		t.Error("パスワードがハッシュ化されていない")
	}
	if result.AccessToken == "" {
		t.Error("アクセストークンが発行されていない")
	}
	if len(sessions.sessions) != 1 {
		t.Errorf("セッション数 = %d, want 1", len(sessions.sessions))
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: "user-1"}, nil
		},
	}
	s := newTestService(userRepo, newMockSessionRepo())

	_, err := s.Register(context.Background(), RegisterInput{Email: "alice@example.com", Password: "password123"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmailTaken {
		t.Errorf("エラー = %v, want EMAIL_TAKEN", err)
	}
}

func TestRegister_ConcurrentDuplicateMapsToEmailTaken(t *testing.T) {
	userRepo := &mockUserRepo{
		createFn: func(context.Context, *model.User) error { return repository.ErrDuplicate },
	}
	s := newTestService(userRepo, newMockSessionRepo())

	_, err := s.Register(context.Background(), RegisterInput{Email: "alice@example.com", Password: "password123"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmailTaken {
		t.Errorf("エラー = %v, want EMAIL_TAKEN", err)
	}
}

// --- Login / Authenticate / Logout ---

func registeredUser(t *testing.T, password string) *model.User {
	t.Helper()
	hash, err := NewBcryptHasher(bcrypt.MinCost).Hash(password)
	if err != nil {
		t.Fatalf("ハッシュ生成に失敗: %v", err)
	}
	return &model.User{
		ID: "user-1", Name: "Alice", Email: "alice@example.com",
		PasswordHash: hash, Roles: []string{model.RoleUser},
	}
}

func TestLogin_AuthenticateLogout_Flow(t *testing.T) {
	user := registeredUser(t, "password123")
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, nil
		},
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			if id == user.ID {
				return user, nil
			}
			return nil, nil
		},
	}
	sessions := newMockSessionRepo()
	s := newTestService(userRepo, sessions)
	ctx := context.Background()

	result, err := s.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Login がエラーを返した: %v", err)
	}

	gotUser, session, err := s.Authenticate(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate がエラーを返した: %v", err)
	}
	if gotUser.ID != "user-1" {
		t.Errorf("ユーザーID = %s, want user-1", gotUser.ID)
	}

	if err := s.Logout(ctx, session.ID); err != nil {
		t.Fatalf("Logout がエラーを返した: %v", err)
	}

	_, _, err = s.Authenticate(ctx, result.AccessToken)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthorized {
		t.Errorf("ログアウト後のトークン検証エラー = %v, want UNAUTHORIZED", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	user := registeredUser(t, "password123")
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, nil
		},
	}
	s := newTestService(userRepo, newMockSessionRepo())

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "パスワード不一致", email: "alice@example.com", password: "wrong"},
		{name: "ユーザー不在", email: "ghost@example.com", password: "password123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Login(context.Background(), tt.email, tt.password)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
				t.Errorf("エラー = %v, want INVALID_CREDENTIALS", err)
			}
		})
	}
}

func TestAuthenticate_RejectsTamperedToken(t *testing.T) {
	s := newTestService(&mockUserRepo{}, newMockSessionRepo())

	other := NewTokenSigner("other-secret")
	token, err := other.Sign("user-1", "session-1", time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Sign がエラーを返した: %v", err)
	}

	_, _, err = s.Authenticate(context.Background(), token)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthorized {
		t.Errorf("エラー = %v, want UNAUTHORIZED", err)
	}
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	sessions := newMockSessionRepo()
	sessions.sessions["session-1"] = &model.Session{ID: "session-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	s := newTestService(&mockUserRepo{}, sessions)

	token, _ := s.signer.Sign("user-1", "session-1", time.Now(), time.Now().Add(time.Hour))
	_, _, err := s.Authenticate(context.Background(), token)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthorized {
		t.Errorf("エラー = %v, want UNAUTHORIZED", err)
	}
}

func TestLogout_EmptySessionID(t *testing.T) {
	s := newTestService(&mockUserRepo{}, newMockSessionRepo())
	if err := s.Logout(context.Background(), ""); err == nil {
		t.Error("空のセッションIDはエラーを返すべき")
	}
}

// --- TokenSigner ---

func TestTokenSigner_ExpiredToken(t *testing.T) {
	signer := NewTokenSigner("test-secret")
	past := time.Now().Add(-2 * time.Hour)
	token, err := signer.Sign("user-1", "session-1", past, past.Add(time.Hour))
	if err != nil {
		t.Fatalf("Sign がエラーを返した: %v", err)
	}

	if _, err := signer.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("エラー = %v, want ErrInvalidToken", err)
	}
}

func TestTokenSigner_RoundTrip(t *testing.T) {
	signer := NewTokenSigner("test-secret")
	token, err := signer.Sign("user-1", "session-1", time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Sign がエラーを返した: %v", err)
	}

	claims, err := signer.Parse(token)
	if err != nil {
		t.Fatalf("Parse がエラーを返した: %v", err)
	}
	if claims.Subject != "user-1" || claims.ID != "session-1" {
		t.Errorf("クレーム = (%s, %s), want (user-1, session-1)", claims.Subject, claims.ID)
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("secret")
	if err != nil {
		t.Fatalf("Hash がエラーを返した: %v", err)
	}
	if !h.Check("secret", hash) {
		t.Error("正しいパスワードが一致しない")
	}
	if h.Check("wrong", hash) {
		t.Error("誤ったパスワードが一致した")
	}
}
