package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tenki/internal/model"
)

// PostgresHistoryRepo はPostgreSQLを使用した検索履歴リポジトリ。
// weather_dataはJSONBで保存し、中身は解釈しない。
type PostgresHistoryRepo struct {
	db *sql.DB
}

// NewPostgresHistoryRepo はPostgresHistoryRepoを生成する。
func NewPostgresHistoryRepo(db *sql.DB) *PostgresHistoryRepo {
	return &PostgresHistoryRepo{db: db}
}

// Create は履歴エントリを追加する。
func (r *PostgresHistoryRepo) Create(ctx context.Context, entry *model.SearchHistoryEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO search_histories (id, user_id, query_term, location_name, weather_data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, entry.QueryTerm, entry.LocationName, []byte(entry.WeatherData),
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("検索履歴の作成に失敗しました: %w", err)
	}
	return nil
}

// ListByUserID はユーザーの履歴を新しい順に返す。
// 同時刻のエントリは挿入順の逆になるようにシーケンス列で並べる。
func (r *PostgresHistoryRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*model.SearchHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, query_term, location_name, weather_data, created_at, updated_at
		 FROM search_histories
		 WHERE user_id = $1
		 ORDER BY created_at DESC, seq DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("検索履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []*model.SearchHistoryEntry
	for rows.Next() {
		entry := &model.SearchHistoryEntry{}
		var data []byte
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.QueryTerm, &entry.LocationName,
			&data, &entry.CreatedAt, &entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("検索履歴行の読み取りに失敗しました: %w", err)
		}
		entry.WeatherData = data
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("検索履歴の走査に失敗しました: %w", err)
	}
	return entries, nil
}

// CountByUserID はユーザーの履歴件数を返す。
func (r *PostgresHistoryRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM search_histories WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("検索履歴数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// DeleteByUserID はユーザーの全履歴を削除する。
func (r *PostgresHistoryRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM search_histories WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ユーザーの検索履歴削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ HistoryRepository = (*PostgresHistoryRepo)(nil)
