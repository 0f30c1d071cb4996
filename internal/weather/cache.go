package weather

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hitoshi/tenki/internal/metrics"
)

// CacheTTL は天気キャッシュエントリの有効期間。
const CacheTTL = 15 * time.Minute

// cacheKeyPrefix はキャッシュキーの接頭辞。
const cacheKeyPrefix = "weather_current_"

// Cache は天気スナップショットのキャッシュバックエンドのインターフェース。
// Getは期限切れや未登録の場合に(nil, false, nil)を返す。
type Cache interface {
	Get(ctx context.Context, key string) (*NormalizedWeather, bool, error)
	Set(ctx context.Context, key string, value NormalizedWeather, ttl time.Duration) error
}

// CacheKey はロケールと都市名からキャッシュキーを生成する。
// 大文字小文字、アクセント記号、区切り文字の違いは同じキーに正規化される。
func CacheKey(locale, city string) string {
	return cacheKeyPrefix + locale + "_" + Slug(city)
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug は文字列をURLスラッグ形式に変換する。
// アクセント記号を除去して小文字化し、英数字以外の連続を1つのハイフンにまとめる。
// 漢字などのラテン文字以外の文字はそのまま残す。
func Slug(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.ToLower(stripped)

	var b strings.Builder
	pendingDash := false
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	if b.Len() == 0 {
		// 記号のみの入力は空白を除いた元の文字列をそのまま使う
		return strings.TrimSpace(strings.ToLower(s))
	}
	return b.String()
}

// CachedLookup はキャッシュバックエンドの前段で同一キーの同時計算を1回にまとめる。
// 計算に失敗した結果はキャッシュしない。
type CachedLookup struct {
	cache   Cache
	group   singleflight.Group
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewCachedLookup はCachedLookupの新しいインスタンスを生成する。
func NewCachedLookup(cache Cache, logger *slog.Logger, collector metrics.MetricsCollector) *CachedLookup {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &CachedLookup{
		cache:   cache,
		logger:  logger,
		metrics: collector,
	}
}

// GetOrCompute はキャッシュ済みの値を返す。キャッシュにない場合はcomputeを実行し、
// 成功した結果をttlの間キャッシュする。
// キャッシュバックエンドの障害はミスとして扱い、ログに記録するのみで呼び出し元には返さない。
// 共有の計算は最初の呼び出し元のキャンセルを引き継がない。各呼び出し元は自身のctxが
// 終了した時点で待機をやめ、ctx.Err()を返す。
func (l *CachedLookup) GetOrCompute(
	ctx context.Context,
	key string,
	ttl time.Duration,
	compute func(ctx context.Context) (*NormalizedWeather, error),
) (*NormalizedWeather, error) {
	if cached, ok := l.lookup(ctx, key); ok {
		return cached, nil
	}

	fctx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (interface{}, error) {
		// 待機中に他の呼び出しが値を格納している可能性があるため再確認する
		if cached, ok := l.lookup(fctx, key); ok {
			return *cached, nil
		}

		l.metrics.RecordCacheMiss()
		computed, err := compute(fctx)
		if err != nil {
			return nil, err
		}

		if err := l.cache.Set(fctx, key, *computed, ttl); err != nil {
			l.logger.Warn("天気キャッシュへの書き込みに失敗しました",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return *computed, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		result := res.Val.(NormalizedWeather)
		return &result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *CachedLookup) lookup(ctx context.Context, key string) (*NormalizedWeather, bool) {
	cached, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.Warn("天気キャッシュの読み取りに失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	l.metrics.RecordCacheHit()
	return cached, true
}
