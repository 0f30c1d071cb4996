package weather

import (
	"context"
	"log/slog"
)

// Upstream は天気プロバイダーのインターフェース。
// テスト時にモックに差し替え可能。
type Upstream interface {
	FetchCurrent(ctx context.Context, city, locale string) (*NormalizedWeather, error)
	SearchLocations(ctx context.Context, query string) ([]LocationCandidate, error)
}

// Service は天気検索サービス。
// 失敗を呼び出し元にエラーとして返さず、取得できなかったことをnilで表す。
type Service struct {
	upstream Upstream
	cache    *CachedLookup
	logger   *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(upstream Upstream, cache *CachedLookup, logger *slog.Logger) *Service {
	return &Service{
		upstream: upstream,
		cache:    cache,
		logger:   logger,
	}
}

// GetCurrentWeather は指定都市の現在の天気を返す。
// (locale, 都市名)ごとに最大CacheTTLの間キャッシュされ、その間プロバイダーは呼ばれない。
// 取得に失敗した場合はnilを返す。失敗はキャッシュされない。
func (s *Service) GetCurrentWeather(ctx context.Context, city, locale string) *NormalizedWeather {
	key := CacheKey(locale, city)

	w, err := s.cache.GetOrCompute(ctx, key, CacheTTL, func(ctx context.Context) (*NormalizedWeather, error) {
		return s.upstream.FetchCurrent(ctx, city, locale)
	})
	if err != nil {
		s.logger.Debug("天気情報を取得できませんでした",
			slog.String("city", city),
			slog.String("locale", locale),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return w
}

// SearchLocations は地名候補を返す。キャッシュは使用しない。
// 取得に失敗した場合はnilを返す。プロバイダーが0件を返した場合は空スライスを返す。
func (s *Service) SearchLocations(ctx context.Context, query string) []LocationCandidate {
	candidates, err := s.upstream.SearchLocations(ctx, query)
	if err != nil {
		s.logger.Debug("地名候補を取得できませんでした",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if candidates == nil {
		return []LocationCandidate{}
	}
	return candidates
}
