// Package user はユーザー管理のドメインロジックを提供する。
package user

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

// FavoriteDeleter はお気に入りの一括削除インターフェース。
type FavoriteDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// HistoryDeleter は検索履歴の一括削除インターフェース。
type HistoryDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// PasswordHasher はパスワードのハッシュ化インターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// CreateInput は管理者によるユーザー作成の入力値。
// Rolesが空の場合はuserロールを付与する。
type CreateInput struct {
	Name     string
	Email    string
	Password string
	Roles    []string
}

// UpdateInput はユーザー更新の入力値。
// nilのフィールドと空のPasswordは変更しない。
type UpdateInput struct {
	Name     *string
	Email    *string
	Password string
	Roles    []string
}

// Service はユーザー管理のサービス層。
// 管理者向けのCRUDと削除時の関連データ削除を提供する。
type Service struct {
	userRepo       repository.UserRepository
	sessionRepo    repository.SessionRepository
	favDeleter     FavoriteDeleter
	historyDeleter HistoryDeleter
	hasher         PasswordHasher
	now            func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	favDeleter FavoriteDeleter,
	historyDeleter HistoryDeleter,
	hasher PasswordHasher,
) *Service {
	return &Service{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		favDeleter:     favDeleter,
		historyDeleter: historyDeleter,
		hasher:         hasher,
		now:            time.Now,
	}
}

// List はユーザーを作成順でページ単位に返す。
// filter.Searchが指定された場合は名前またはメールアドレスの部分一致で絞り込む。
func (s *Service) List(ctx context.Context, filter model.UserFilter, page, perPage int) (*model.Page[*model.User], error) {
	page, perPage = model.NormalizePaging(page, perPage)

	users, total, err := s.userRepo.List(ctx, filter, perPage, model.Offset(page, perPage))
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if users == nil {
		users = []*model.User{}
	}

	return &model.Page[*model.User]{
		Items:   users,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

// Get はユーザーを返す。存在しない場合はUSER_NOT_FOUNDのAPIErrorを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Create はユーザーを作成する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.User, error) {
	roles := in.Roles
	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}
	roles, err := s.checkRoles(ctx, roles)
	if err != nil {
		return nil, err
	}

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
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewEmailTakenError(in.Email)
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザーを作成しました",
		slog.String("user_id", user.ID),
		slog.Any("roles", user.Roles),
	)
	return user, nil
}

// Update はユーザーを更新する。
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil && *in.Email != user.Email {
		other, err := s.userRepo.FindByEmail(ctx, *in.Email)
		if err != nil {
			return nil, fmt.Errorf("メールアドレスの確認に失敗しました: %w", err)
		}
		if other != nil && other.ID != user.ID {
			return nil, model.NewEmailTakenError(*in.Email)
		}
		user.Email = *in.Email
	}
	if in.Name != nil {
		user.Name = *in.Name
	}

	if in.Roles != nil {
		roles, err := s.checkRoles(ctx, in.Roles)
		if err != nil {
			return nil, err
		}
		user.Roles = roles
	}

	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewEmailTakenError(user.Email)
		}
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	return user, nil
}

// Delete は管理者によるユーザー削除を実行する。
// 管理者は自分自身を削除できない。
func (s *Service) Delete(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return model.NewSelfDeleteError()
	}
	return s.Withdraw(ctx, userID)
}

// Withdraw はユーザーと関連データを削除する。
// 削除順序: search_histories → favorite_cities → sessions → user（+ CASCADE: user_roles）
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}

	slog.Info("ユーザー削除を開始します",
		slog.String("user_id", userID),
	)

	// 1. 検索履歴を削除
	if s.historyDeleter != nil {
		if err := s.historyDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("検索履歴の削除に失敗しました: %w", err)
		}
	}

	// 2. お気に入りを削除
	if s.favDeleter != nil {
		if err := s.favDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
		}
	}

	// 3. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 4. ユーザーを削除
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("ユーザー削除が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}

// checkRoles は指定ロールが全て存在することを確認し、重複を除いて返す。
func (s *Service) checkRoles(ctx context.Context, roles []string) ([]string, error) {
	known, err := s.userRepo.ListRoleNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("ロール一覧の取得に失敗しました: %w", err)
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, name := range known {
		knownSet[name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(roles))
	result := make([]string, 0, len(roles))
	for _, r := range roles {
		if _, ok := knownSet[r]; !ok {
			return nil, model.NewUnknownRoleError(r)
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		result = append(result, r)
	}
	return result, nil
}
