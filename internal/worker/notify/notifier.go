// Package notify は提出期限リマインド通知のバックグラウンドジョブを提供する。
// 期限がリマインド期間内に迫った提出物を定期的に走査し、提出担当者ごとに
// 送信内容をログ出力する（メール配送自体は行わないログオンリー実装）。
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kondo/esgportal/internal/metrics"
	"github.com/kondo/esgportal/internal/model"
	"github.com/kondo/esgportal/internal/repository"
)

// defaultReminderWindow はデフォルトのリマインド期間。
const defaultReminderWindow = 7 * 24 * time.Hour

// Notifier は提出期限リマインド通知のジョブ。
// 管理者による期限設定時の即時実行（RunOnce）と、
// ティッカーによる定期実行（Start）の両方で使用される。
type Notifier struct {
	submissionRepo repository.SubmissionRepository
	profileRepo    repository.ProfileRepository
	logger         *slog.Logger
	collector      metrics.MetricsCollector
	Window         time.Duration // リマインド期間（デフォルト: 7日）
}

// NewNotifier は新しいNotifierを生成する。
func NewNotifier(
	submissionRepo repository.SubmissionRepository,
	profileRepo repository.ProfileRepository,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Notifier {
	return &Notifier{
		submissionRepo: submissionRepo,
		profileRepo:    profileRepo,
		logger:         logger,
		collector:      collector,
		Window:         defaultReminderWindow,
	}
}

// Start は指定間隔のティッカーで通知ジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (n *Notifier) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n.logger.Info("期限リマインド通知ジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("window", n.Window),
	)

	// 起動直後に1回実行
	if err := n.RunOnce(ctx); err != nil {
		n.logger.Error("期限リマインド通知の実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("期限リマインド通知ジョブを停止しました")
			return
		case <-ticker.C:
			if err := n.RunOnce(ctx); err != nil {
				n.logger.Error("期限リマインド通知の実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は期限がリマインド期間内に迫った提出物を1回走査し、
// 未承認の提出物について提出担当者ごとに通知内容をログ出力する。
// 冪等: 対象がない場合でもエラーにならない。
func (n *Notifier) RunOnce(ctx context.Context) error {
	start := time.Now()

	submissions, err := n.submissionRepo.ListDeadlineWithin(ctx, n.Window)
	if err != nil {
		return fmt.Errorf("期限間近の提出物の取得に失敗: %w", err)
	}

	if len(submissions) == 0 {
		n.logger.Info("期限リマインド対象の提出物はありません")
		return nil
	}

	sent := 0
	for _, submission := range submissions {
		// 承認済みの提出物はリマインド不要
		if submission.Status == model.SubmissionApproved || submission.Deadline == nil {
			continue
		}

		recipients, err := n.profileRepo.ListByCompanyID(ctx, submission.CompanyID)
		if err != nil {
			n.logger.Error("通知先プロフィールの取得に失敗しました",
				slog.String("company_id", submission.CompanyID),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, recipient := range recipients {
			if recipient.Role != model.RoleSubmitter {
				continue
			}
			n.logger.Info("期限リマインド通知を送信します",
				slog.String("recipient", recipient.Email),
				slog.String("submission_id", submission.ID),
				slog.Int("reporting_year", submission.ReportingYear),
				slog.Time("deadline", *submission.Deadline),
				slog.String("status", string(submission.Status)),
			)
			sent++
		}
	}

	if n.collector != nil {
		n.collector.RecordNotificationsSent(sent)
	}

	n.logger.Info("期限リマインド通知ジョブが完了しました",
		slog.Int("submission_count", len(submissions)),
		slog.Int("notification_count", sent),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
