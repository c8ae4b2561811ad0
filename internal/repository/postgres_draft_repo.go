package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kondo/esgportal/internal/model"
)

// PostgresDraftRepo はPostgreSQLを使用した下書きリポジトリ。
type PostgresDraftRepo struct {
	db *sql.DB
}

// NewPostgresDraftRepo はPostgresDraftRepoを生成する。
func NewPostgresDraftRepo(db *sql.DB) *PostgresDraftRepo {
	return &PostgresDraftRepo{db: db}
}

// Find はユーザーIDと種別で下書きを取得する。見つからない場合はnilを返す。
func (r *PostgresDraftRepo) Find(ctx context.Context, userID string, kind model.DraftKind) (*model.Draft, error) {
	d := &model.Draft{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, kind, page, payload, updated_at
		 FROM drafts WHERE user_id = $1 AND kind = $2`,
		userID, kind,
	).Scan(&d.UserID, &d.Kind, &d.Page, &d.Payload, &d.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find draft: %w", err)
	}
	return d, nil
}

// Upsert は下書きを冪等にUPSERTする。
func (r *PostgresDraftRepo) Upsert(ctx context.Context, draft *model.Draft) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO drafts (user_id, kind, page, payload, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, kind) DO UPDATE
		 SET page = EXCLUDED.page,
		     payload = EXCLUDED.payload,
		     updated_at = EXCLUDED.updated_at`,
		draft.UserID, draft.Kind, draft.Page, draft.Payload, draft.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert draft: %w", err)
	}
	return nil
}

// Promote はliveの下書きをdraftキーに退避する。liveが存在しない場合は何もしない。
// 無操作ログアウト時の進捗退避に使用する。
func (r *PostgresDraftRepo) Promote(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO drafts (user_id, kind, page, payload, updated_at)
		 SELECT user_id, 'draft', page, payload, now()
		 FROM drafts
		 WHERE user_id = $1 AND kind = 'live'
		 ON CONFLICT (user_id, kind) DO UPDATE
		 SET page = EXCLUDED.page,
		     payload = EXCLUDED.payload,
		     updated_at = EXCLUDED.updated_at`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to promote draft: %w", err)
	}
	return nil
}

// Delete はユーザーIDと種別で下書きを削除する。存在しない場合もエラーにしない。
func (r *PostgresDraftRepo) Delete(ctx context.Context, userID string, kind model.DraftKind) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE user_id = $1 AND kind = $2`,
		userID, kind,
	)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// DeleteStale は更新からretentionを超過したdraft種別の下書きを削除し、削除件数を返す。
func (r *PostgresDraftRepo) DeleteStale(ctx context.Context, retention time.Duration) (int64, error) {
	interval := fmt.Sprintf("%d seconds", int64(retention.Seconds()))
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE kind = 'draft' AND updated_at < now() - $1::interval`,
		interval,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale drafts: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ DraftRepository = (*PostgresDraftRepo)(nil)
