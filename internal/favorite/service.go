// Package favorite はお気に入り都市のドメインロジックを提供する。
package favorite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/repository"
)

// Service はお気に入り都市のサービス層。
// 都市名は正規化せず、入力された文字列のまま扱う。
type Service struct {
	repo repository.FavoriteRepository
	now  func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.FavoriteRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// List はユーザーのお気に入りを登録順でページ単位に返す。
func (s *Service) List(ctx context.Context, userID string, page, perPage int) (*model.Page[*model.FavoriteCity], error) {
	page, perPage = model.NormalizePaging(page, perPage)

	total, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り数の取得に失敗しました: %w", err)
	}

	items, err := s.repo.ListByUserID(ctx, userID, perPage, model.Offset(page, perPage))
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	if items == nil {
		items = []*model.FavoriteCity{}
	}

	return &model.Page[*model.FavoriteCity]{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

// Add はお気に入りを追加する。
// 同じユーザーが同じ都市名を登録済みの場合は(nil, nil)を返す。
// 同時追加により一意制約に違反した場合も登録済みとして扱う。
func (s *Service) Add(ctx context.Context, userID, cityName string) (*model.FavoriteCity, error) {
	existing, err := s.repo.FindByUserAndCity(ctx, userID, cityName)
	if err != nil {
		return nil, fmt.Errorf("お気に入りの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, nil
	}

	now := s.now()
	fav := &model.FavoriteCity{
		ID:        uuid.New().String(),
		UserID:    userID,
		CityName:  cityName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, fav); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil
		}
		return nil, fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}

	return fav, nil
}

// Remove はお気に入りを削除する。削除した場合のみtrueを返す。
func (s *Service) Remove(ctx context.Context, userID, cityName string) (bool, error) {
	removed, err := s.repo.DeleteByUserAndCity(ctx, userID, cityName)
	if err != nil {
		return false, fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return removed, nil
}
