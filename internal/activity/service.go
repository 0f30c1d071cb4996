// Package activity は天気検索と検索履歴の記録をまとめるファサードを提供する。
package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/tenki/internal/metrics"
	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/weather"
)

// WeatherLookup は天気検索のインターフェース。取得できない場合はnilを返す。
type WeatherLookup interface {
	GetCurrentWeather(ctx context.Context, city, locale string) *weather.NormalizedWeather
}

// HistoryRecorder は検索履歴の記録インターフェース。
type HistoryRecorder interface {
	Record(ctx context.Context, userID, queryTerm string, snapshot weather.NormalizedWeather) (*model.SearchHistoryEntry, error)
}

// Service はユーザー操作のファサード。
type Service struct {
	lookup   WeatherLookup
	recorder HistoryRecorder
	metrics  metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(lookup WeatherLookup, recorder HistoryRecorder, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		lookup:   lookup,
		recorder: recorder,
		metrics:  collector,
	}
}

// LookupAndRecord は天気を検索し、成功した場合のみ同期的に履歴を記録する。
// 天気を取得できなかった場合は(nil, nil)を返し、履歴は記録しない。
// 履歴の保存に失敗した場合はエラーを返し、天気は返さない。
func (s *Service) LookupAndRecord(ctx context.Context, userID, city, locale string) (*weather.NormalizedWeather, error) {
	w := s.lookup.GetCurrentWeather(ctx, city, locale)
	if w == nil {
		return nil, nil
	}

	entry, err := s.recorder.Record(ctx, userID, city, *w)
	if err != nil {
		return nil, fmt.Errorf("検索履歴の記録に失敗しました: %w", err)
	}
	s.metrics.RecordHistoryRecorded()

	slog.Debug("天気検索を履歴に記録しました",
		slog.String("user_id", userID),
		slog.String("history_id", entry.ID),
		slog.String("location", entry.LocationName),
	)

	return w, nil
}
