// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 有効期限を過ぎたセッションと、保持期間（デフォルト30日）を超過した
// 退避済み下書きを日次バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kondo/esgportal/internal/repository"
)

// defaultDraftRetention は退避済み下書きのデフォルト保持期間。
const defaultDraftRetention = 30 * 24 * time.Hour

// CleanupJob は期限切れセッションと古い下書きの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	sessionRepo    repository.SessionRepository
	draftRepo      repository.DraftRepository
	logger         *slog.Logger
	DraftRetention time.Duration // 退避済み下書きの保持期間（デフォルト: 30日）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(sessionRepo repository.SessionRepository, draftRepo repository.DraftRepository, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessionRepo:    sessionRepo,
		draftRepo:      draftRepo,
		logger:         logger,
		DraftRetention: defaultDraftRetention,
	}
}

// Start は指定間隔のティッカーでクリーンアップジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
	)

	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("クリーンアップジョブの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Run は期限切れセッションと保持期間を超過した下書きを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessionCount, err := j.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	draftCount, err := j.draftRepo.DeleteStale(ctx, j.DraftRetention)
	if err != nil {
		j.logger.Error("古い下書きの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("古い下書きの削除に失敗: %w", err)
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", sessionCount),
		slog.Int64("deleted_drafts", draftCount),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
