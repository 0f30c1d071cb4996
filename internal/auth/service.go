// Package auth はパスワード認証とアクセストークン（セッション）管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	TokenTTL time.Duration // アクセストークンの有効期間
}

// RegisterInput はユーザー登録の入力値。検証済みであることを前提とする。
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Result は登録・ログイン成功時に返すアクセストークンとユーザー。
type Result struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	signer      *TokenSigner
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	signer *TokenSigner,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		signer:      signer,
		config:      config,
		now:         time.Now,
	}
}

// Register はユーザーを作成し、userロールを付与してアクセストークンを発行する。
// メールアドレスが登録済みの場合はEMAIL_TAKENのAPIErrorを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	existing, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("メールアドレスの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError(in.Email)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Roles:        []string{model.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewEmailTakenError(in.Email)
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザーを登録しました", slog.String("user_id", user.ID))

	return s.issue(ctx, user)
}

// Login はメールアドレスとパスワードを検証し、アクセストークンを発行する。
// ユーザーが存在しない場合とパスワードが一致しない場合は同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil || !s.hasher.Check(password, user.PasswordHash) {
		return nil, model.NewInvalidCredentialsError()
	}

	return s.issue(ctx, user)
}

// Logout はアクセストークンに対応するセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("セッションIDが指定されていません")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	slog.Info("ログアウトしました", slog.String("session_id", sessionID))
	return nil
}

// Authenticate はアクセストークンを検証し、ユーザーとセッションを返す。
// 署名不正、期限切れ、ログアウト済み、ユーザー削除済みの場合はUNAUTHORIZEDのAPIErrorを返す。
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, *model.Session, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	if session == nil || session.UserID != claims.Subject {
		return nil, nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewUnauthorizedError()
	}

	return user, session, nil
}

// issue はセッションを作成し、そのIDを埋め込んだアクセストークンを返す。
func (s *Service) issue(ctx context.Context, user *model.User) (*Result, error) {
	now := s.now()
	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.config.TokenTTL),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("セッションの保存に失敗しました: %w", err)
	}

	token, err := s.signer.Sign(user.ID, session.ID, now, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return &Result{
		AccessToken: token,
		ExpiresAt:   session.ExpiresAt,
		User:        user,
	}, nil
}
