// Package weather は天気APIクライアント、天気キャッシュ、天気検索サービスを提供する。
package weather

import (
	"strconv"
	"time"
)

// NotAvailable はプロバイダーが値を返さなかったフィールドの表示用プレースホルダー。
const NotAvailable = "N/A"

// NormalizedWeather はプロバイダー非依存の現在の天気を表す値オブジェクト。
// キャッシュのペイロードと検索履歴のスナップショットの両方に使われるため、
// JSONの形は永続的な契約として扱う。生成後に変更してはならない。
type NormalizedWeather struct {
	City               string    `json:"city"`
	TemperatureCelsius *float64  `json:"temperature_celsius"`
	Condition          *string   `json:"condition"`
	WindKph            *float64  `json:"wind_kph"`
	HumidityPercent    *float64  `json:"humidity_percent"`
	LocalTime          *string   `json:"local_time"`
	RetrievedAt        time.Time `json:"retrieved_at"`
}

// TemperatureText は "15 °C" 形式の表示文字列を返す。値がない場合はN/A。
func (w NormalizedWeather) TemperatureText() string {
	return numberWithUnit(w.TemperatureCelsius, " °C")
}

// WindText は "10 kph" 形式の表示文字列を返す。値がない場合はN/A。
func (w NormalizedWeather) WindText() string {
	return numberWithUnit(w.WindKph, " kph")
}

// HumidityText は "70%" 形式の表示文字列を返す。値がない場合はN/A。
func (w NormalizedWeather) HumidityText() string {
	return numberWithUnit(w.HumidityPercent, "%")
}

// ConditionText は天気の説明を返す。値がない場合はN/A。
func (w NormalizedWeather) ConditionText() string {
	return textOrNA(w.Condition)
}

// LocalTimeText は現地時刻を返す。値がない場合はN/A。
func (w NormalizedWeather) LocalTimeText() string {
	return textOrNA(w.LocalTime)
}

// CityText は都市名を返す。空の場合はN/A。
func (w NormalizedWeather) CityText() string {
	if w.City == "" {
		return NotAvailable
	}
	return w.City
}

func numberWithUnit(v *float64, unit string) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + unit
}

func textOrNA(v *string) string {
	if v == nil || *v == "" {
		return NotAvailable
	}
	return *v
}

// LocationCandidate は地名検索の候補1件を表す。永続化はしない。
type LocationCandidate struct {
	ID        *int64   `json:"id"`
	Name      string   `json:"name"`
	Region    string   `json:"region"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lon"`
}
