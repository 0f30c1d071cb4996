package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tenki/internal/model"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入り都市リポジトリ。
// (user_id, city_name) の一意性はfavorite_cities_user_id_city_name_key制約で保証する。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// FindByUserAndCity はユーザーIDと都市名でお気に入りを検索する。見つからない場合はnilを返す。
func (r *PostgresFavoriteRepo) FindByUserAndCity(ctx context.Context, userID, cityName string) (*model.FavoriteCity, error) {
	fav := &model.FavoriteCity{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, city_name, created_at, updated_at
		 FROM favorite_cities WHERE user_id = $1 AND city_name = $2`,
		userID, cityName,
	).Scan(&fav.ID, &fav.UserID, &fav.CityName, &fav.CreatedAt, &fav.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("お気に入りの検索に失敗しました: %w", err)
	}
	return fav, nil
}

// Create はお気に入りを作成する。(user_id, city_name)が重複する場合はErrDuplicateを返す。
func (r *PostgresFavoriteRepo) Create(ctx context.Context, fav *model.FavoriteCity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorite_cities (id, user_id, city_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		fav.ID, fav.UserID, fav.CityName, fav.CreatedAt, fav.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("お気に入りの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByUserID はユーザーのお気に入りを登録順に返す。
func (r *PostgresFavoriteRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*model.FavoriteCity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, city_name, created_at, updated_at
		 FROM favorite_cities
		 WHERE user_id = $1
		 ORDER BY created_at, id
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var favorites []*model.FavoriteCity
	for rows.Next() {
		fav := &model.FavoriteCity{}
		if err := rows.Scan(&fav.ID, &fav.UserID, &fav.CityName, &fav.CreatedAt, &fav.UpdatedAt); err != nil {
			return nil, fmt.Errorf("お気に入り行の読み取りに失敗しました: %w", err)
		}
		favorites = append(favorites, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の走査に失敗しました: %w", err)
	}
	return favorites, nil
}

// CountByUserID はユーザーのお気に入り数を返す。
func (r *PostgresFavoriteRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM favorite_cities WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("お気に入り数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// DeleteByUserAndCity はお気に入りを削除する。行を削除した場合のみtrueを返す。
func (r *PostgresFavoriteRepo) DeleteByUserAndCity(ctx context.Context, userID, cityName string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM favorite_cities WHERE user_id = $1 AND city_name = $2`,
		userID, cityName,
	)
	if err != nil {
		return false, fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByUserID はユーザーの全お気に入りを削除する。
func (r *PostgresFavoriteRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM favorite_cities WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ユーザーのお気に入り削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
