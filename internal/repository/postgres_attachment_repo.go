package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kondo/esgportal/internal/model"
)

// PostgresAttachmentRepo はPostgreSQLを使用した添付ファイルリポジトリ。
type PostgresAttachmentRepo struct {
	db *sql.DB
}

// NewPostgresAttachmentRepo はPostgresAttachmentRepoを生成する。
func NewPostgresAttachmentRepo(db *sql.DB) *PostgresAttachmentRepo {
	return &PostgresAttachmentRepo{db: db}
}

// FindByID は指定IDの添付ファイルを取得する。見つからない場合はnilを返す。
func (r *PostgresAttachmentRepo) FindByID(ctx context.Context, id string) (*model.Attachment, error) {
	a := &model.Attachment{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, response_id, file_name, file_path, file_size, content_type, created_at
		 FROM attachments WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.ResponseID, &a.FileName, &a.FilePath, &a.FileSize, &a.ContentType, &a.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find attachment: %w", err)
	}
	return a, nil
}

// ListByResponseID は回答の添付ファイル一覧を作成日時降順で返す。
func (r *PostgresAttachmentRepo) ListByResponseID(ctx context.Context, responseID string) ([]*model.Attachment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, response_id, file_name, file_path, file_size, content_type, created_at
		 FROM attachments
		 WHERE response_id = $1
		 ORDER BY created_at DESC`,
		responseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*model.Attachment
	for rows.Next() {
		a := &model.Attachment{}
		if err := rows.Scan(&a.ID, &a.ResponseID, &a.FileName, &a.FilePath,
			&a.FileSize, &a.ContentType, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attachments: %w", err)
	}
	return attachments, nil
}

// Create は添付ファイルメタデータを作成する。
func (r *PostgresAttachmentRepo) Create(ctx context.Context, attachment *model.Attachment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attachments (id, response_id, file_name, file_path, file_size, content_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		attachment.ID, attachment.ResponseID, attachment.FileName, attachment.FilePath,
		attachment.FileSize, attachment.ContentType, attachment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの添付ファイルメタデータを削除する。
func (r *PostgresAttachmentRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM attachments WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AttachmentRepository = (*PostgresAttachmentRepo)(nil)
