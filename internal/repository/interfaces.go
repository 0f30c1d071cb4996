// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/tenki/internal/model"
)

// ErrDuplicate は一意制約違反により行を作成できなかったことを表す。
var ErrDuplicate = errors.New("duplicate row")

// UserRepository はユーザーデータの永続化インターフェース。
// 返すユーザーにはロール名が含まれる。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// List はユーザー一覧をcreated_at昇順で返す。2番目の戻り値は絞り込み後の総件数。
	List(ctx context.Context, filter model.UserFilter, limit, offset int) ([]*model.User, int, error)

	// Create はユーザーとロールを同一トランザクションで作成する。
	// メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザー情報を更新し、ロールを置き換える。
	// メールアドレスが重複する場合はErrDuplicateを返す。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するuser_roles、sessions、favorite_cities、search_historiesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// ListRoleNames は定義済みのロール名を返す。
	ListRoleNames(ctx context.Context) ([]string, error)
}

// SessionRepository はアクセストークン（セッション）の永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired はbefore時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// FavoriteRepository はお気に入り都市の永続化インターフェース。
type FavoriteRepository interface {
	// FindByUserAndCity はユーザーIDと都市名でお気に入りを検索する。見つからない場合はnilを返す。
	// 都市名は完全一致で比較する。
	FindByUserAndCity(ctx context.Context, userID, cityName string) (*model.FavoriteCity, error)

	// Create はお気に入りを作成する。(user_id, city_name)が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, favorite *model.FavoriteCity) error

	// ListByUserID はユーザーのお気に入りを登録順に返す。
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*model.FavoriteCity, error)

	// CountByUserID はユーザーのお気に入り数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)

	// DeleteByUserAndCity はお気に入りを削除する。行を削除した場合のみtrueを返す。
	DeleteByUserAndCity(ctx context.Context, userID, cityName string) (bool, error)

	// DeleteByUserID はユーザーの全お気に入りを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// HistoryRepository は検索履歴の永続化インターフェース。追記と参照のみを提供する。
type HistoryRepository interface {
	// Create は履歴エントリを追加する。
	Create(ctx context.Context, entry *model.SearchHistoryEntry) error

	// ListByUserID はユーザーの履歴を新しい順に返す。
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*model.SearchHistoryEntry, error)

	// CountByUserID はユーザーの履歴件数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)

	// DeleteByUserID はユーザーの全履歴を削除する。ユーザー削除時のみ使用する。
	DeleteByUserID(ctx context.Context, userID string) error
}
