// Package cleanup は期限切れアクセストークンの定期削除ジョブを提供する。
// ログアウトされずに失効したトークン行をsessionsテーブルから取り除く。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpiredSessionDeleter は期限切れセッションの一括削除インターフェース。
// repository.SessionRepository が満たす。
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// TokenCleanupJob は期限切れトークンの削除ジョブ。
// 何度実行しても結果が変わらない冪等な削除を行う。
type TokenCleanupJob struct {
	sessions ExpiredSessionDeleter
	logger   *slog.Logger
	now      func() time.Time
}

// NewTokenCleanupJob は新しいTokenCleanupJobを生成する。
func NewTokenCleanupJob(sessions ExpiredSessionDeleter, logger *slog.Logger) *TokenCleanupJob {
	return &TokenCleanupJob{
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は現在時刻の時点で期限切れのトークンを削除する。
// 削除対象がない場合でもエラーにならない。
func (j *TokenCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.sessions.DeleteExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("トークンクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("トークンクリーンアップの実行に失敗: %w", err)
	}

	j.logger.Info("トークンクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回、その後intervalごとにRunを実行する。
// ctxがキャンセルされるまでブロックする。個々の実行失敗はログに残して継続する。
func (j *TokenCleanupJob) Start(ctx context.Context, interval time.Duration) {
	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("トークンクリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
