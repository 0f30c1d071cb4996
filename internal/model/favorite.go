package model

import "time"

// FavoriteCity はユーザーのお気に入り都市を表す。
// (UserID, CityName) はユーザーごとに一意で、作成後に更新されることはない。
// CityNameは正規化しないため "London" と "london" は別のお気に入りになる。
type FavoriteCity struct {
	ID        string
	UserID    string
	CityName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
