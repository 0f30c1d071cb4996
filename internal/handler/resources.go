package handler

import (
	"encoding/json"
	"time"

	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/weather"
)

// weatherResource は現在の天気の表示用レスポンス。
// 数値は単位付き文字列で返し、値がない項目はN/Aとする。
type weatherResource struct {
	City        string    `json:"city"`
	Temperature string    `json:"temperature"`
	Condition   string    `json:"condition"`
	Wind        string    `json:"wind"`
	Humidity    string    `json:"humidity"`
	LocalTime   string    `json:"local_time"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

func toWeatherResource(w *weather.NormalizedWeather) weatherResource {
	return weatherResource{
		City:        w.CityText(),
		Temperature: w.TemperatureText(),
		Condition:   w.ConditionText(),
		Wind:        w.WindText(),
		Humidity:    w.HumidityText(),
		LocalTime:   w.LocalTimeText(),
		RetrievedAt: w.RetrievedAt,
	}
}

// locationResource は地名検索の候補1件のレスポンス。
type locationResource struct {
	ID        *int64   `json:"id"`
	Name      string   `json:"name"`
	Region    string   `json:"region"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func toLocationResource(c weather.LocationCandidate) locationResource {
	return locationResource{
		ID:        c.ID,
		Name:      orNA(c.Name),
		Region:    orNA(c.Region),
		Country:   orNA(c.Country),
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
	}
}

// favoriteResource はお気に入り都市のレスポンス。
type favoriteResource struct {
	ID       string    `json:"id"`
	CityName string    `json:"city_name"`
	AddedAt  time.Time `json:"added_at"`
}

func toFavoriteResource(f *model.FavoriteCity) favoriteResource {
	return favoriteResource{
		ID:       f.ID,
		CityName: f.CityName,
		AddedAt:  f.CreatedAt,
	}
}

// historyResource は検索履歴1件のレスポンス。weather_dataは保存時のスナップショットをそのまま返す。
type historyResource struct {
	ID           string          `json:"id"`
	QueryTerm    string          `json:"query_term"`
	LocationName string          `json:"location_name"`
	WeatherData  json.RawMessage `json:"weather_data"`
	SearchedAt   time.Time       `json:"searched_at"`
}

func toHistoryResource(e *model.SearchHistoryEntry) historyResource {
	data := e.WeatherData
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return historyResource{
		ID:           e.ID,
		QueryTerm:    e.QueryTerm,
		LocationName: e.LocationName,
		WeatherData:  data,
		SearchedAt:   e.CreatedAt,
	}
}

// userResource はユーザーのレスポンス。パスワードハッシュは含めない。
type userResource struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResource(u *model.User) userResource {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userResource{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func orNA(s string) string {
	if s == "" {
		return weather.NotAvailable
	}
	return s
}
