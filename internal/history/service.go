// Package history は天気検索履歴の台帳を提供する。
// 履歴は追記のみで、ユーザー削除時以外に削除されることはない。
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/repository"
	"github.com/hitoshi/tenki/internal/weather"
)

// Service は検索履歴のサービス層。
type Service struct {
	repo repository.HistoryRepository
	now  func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.HistoryRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Record は成功した天気検索を1件記録する。
// location_nameにはスナップショットの都市名を使い、空の場合は検索語を使う。
// 重複排除は行わず、同じ検索を繰り返すとその回数だけ記録される。
func (s *Service) Record(ctx context.Context, userID, queryTerm string, snapshot weather.NormalizedWeather) (*model.SearchHistoryEntry, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("天気スナップショットのエンコードに失敗しました: %w", err)
	}

	locationName := snapshot.City
	if locationName == "" {
		locationName = queryTerm
	}

	now := s.now()
	entry := &model.SearchHistoryEntry{
		ID:           uuid.New().String(),
		UserID:       userID,
		QueryTerm:    queryTerm,
		LocationName: locationName,
		WeatherData:  data,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("検索履歴の記録に失敗しました: %w", err)
	}

	return entry, nil
}

// List はユーザーの検索履歴を新しい順でページ単位に返す。
func (s *Service) List(ctx context.Context, userID string, page, perPage int) (*model.Page[*model.SearchHistoryEntry], error) {
	page, perPage = model.NormalizePaging(page, perPage)

	total, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("検索履歴数の取得に失敗しました: %w", err)
	}

	items, err := s.repo.ListByUserID(ctx, userID, perPage, model.Offset(page, perPage))
	if err != nil {
		return nil, fmt.Errorf("検索履歴の取得に失敗しました: %w", err)
	}
	if items == nil {
		items = []*model.SearchHistoryEntry{}
	}

	return &model.Page[*model.SearchHistoryEntry]{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}
