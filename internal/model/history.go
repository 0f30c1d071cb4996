package model

import (
	"encoding/json"
	"time"
)

// SearchHistoryEntry は天気検索1回分の履歴を表す。追記のみで更新・個別削除はしない。
// WeatherDataは検索時点の正規化済み天気のJSONスナップショットで、台帳側では中身を解釈しない。
type SearchHistoryEntry struct {
	ID           string
	UserID       string
	QueryTerm    string
	LocationName string
	WeatherData  json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
