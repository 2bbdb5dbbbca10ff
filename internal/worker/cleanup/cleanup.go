// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// workerサブコマンドから一定間隔で実行される。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/contactman/internal/metrics"
)

// ExpiredSessionDeleter は期限切れセッションの削除インターフェース。
// repository.SessionRepositoryが満たす。
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// CleanupJob は期限切れセッションの削除ジョブ。
// 冪等であり、削除対象がない場合でもエラーにならない。
type CleanupJob struct {
	sessions ExpiredSessionDeleter
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderがnilの場合はメトリクスを記録しない。
func NewCleanupJob(sessions ExpiredSessionDeleter, logger *slog.Logger, recorder metrics.Recorder) *CleanupJob {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &CleanupJob{
		sessions: sessions,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// Run は現在時刻の時点で期限切れのセッションを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.sessions.DeleteExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}
	j.recorder.RecordSessionsCleaned(deletedCount)

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// DefaultInterval はintervalが0以下の場合に使う実行間隔。
const DefaultInterval = time.Hour

// Start はintervalごとにRunを実行する。起動直後にも1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		j.logger.Warn("invalid cleanup interval, using default",
			slog.Duration("interval", interval),
			slog.Duration("default", DefaultInterval),
		)
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("セッションクリーンアップを開始しました",
		slog.Duration("interval", interval),
	)

	// エラーはRun内でログ出力済み
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
