package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kondo/esgportal/internal/model"
)

// PostgresResponseRepo はPostgreSQLを使用した回答リポジトリ。
type PostgresResponseRepo struct {
	db *sql.DB
}

// NewPostgresResponseRepo はPostgresResponseRepoを生成する。
func NewPostgresResponseRepo(db *sql.DB) *PostgresResponseRepo {
	return &PostgresResponseRepo{db: db}
}

const responseColumns = `id, submission_id, question_id, value_text, last_year_value, comments,
review_status, COALESCE(reviewed_by::text, ''), reviewed_at, updated_at`

// FindByID は指定IDの回答を取得する。見つからない場合はnilを返す。
func (r *PostgresResponseRepo) FindByID(ctx context.Context, id string) (*model.Response, error) {
	resp := &model.Response{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+responseColumns+` FROM responses WHERE id = $1`,
		id,
	).Scan(&resp.ID, &resp.SubmissionID, &resp.QuestionID, &resp.ValueText,
		&resp.LastYearValue, &resp.Comments, &resp.ReviewStatus,
		&resp.ReviewedBy, &resp.ReviewedAt, &resp.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find response: %w", err)
	}
	return resp, nil
}

// Upsert は提出物と設問の組み合わせで回答を冪等にUPSERTする。
// 再保存された回答はレビュー状態をpendingに戻す。
func (r *PostgresResponseRepo) Upsert(ctx context.Context, response *model.Response) (*model.Response, error) {
	saved := &model.Response{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO responses (id, submission_id, question_id, value_text, last_year_value, comments, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (submission_id, question_id) DO UPDATE
		 SET value_text = EXCLUDED.value_text,
		     last_year_value = EXCLUDED.last_year_value,
		     comments = EXCLUDED.comments,
		     review_status = 'pending',
		     reviewed_by = NULL,
		     reviewed_at = NULL,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+responseColumns,
		response.ID, response.SubmissionID, response.QuestionID,
		response.ValueText, response.LastYearValue, response.Comments, response.UpdatedAt,
	).Scan(&saved.ID, &saved.SubmissionID, &saved.QuestionID, &saved.ValueText,
		&saved.LastYearValue, &saved.Comments, &saved.ReviewStatus,
		&saved.ReviewedBy, &saved.ReviewedAt, &saved.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert response: %w", err)
	}
	return saved, nil
}

// ListBySubmission は提出物の回答一覧を設問情報とJOINしてセクション・コード順に返す。
func (r *PostgresResponseRepo) ListBySubmission(ctx context.Context, submissionID string) ([]*model.ResponseWithQuestion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.submission_id, r.question_id, r.value_text, r.last_year_value, r.comments,
		        r.review_status, COALESCE(r.reviewed_by::text, ''), r.reviewed_at, r.updated_at,
		        q.code, q.question_text, q.section, q.input_type
		 FROM responses r
		 JOIN questions q ON q.id = r.question_id
		 WHERE r.submission_id = $1
		 ORDER BY q.section, q.code`,
		submissionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	var responses []*model.ResponseWithQuestion
	for rows.Next() {
		rw := &model.ResponseWithQuestion{}
		if err := rows.Scan(&rw.ID, &rw.SubmissionID, &rw.QuestionID, &rw.ValueText,
			&rw.LastYearValue, &rw.Comments, &rw.ReviewStatus,
			&rw.ReviewedBy, &rw.ReviewedAt, &rw.UpdatedAt,
			&rw.QuestionCode, &rw.QuestionText, &rw.Section, &rw.InputType); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate responses: %w", err)
	}
	return responses, nil
}

// UpdateReviewStatus は回答のレビュー状態を更新する。
func (r *PostgresResponseRepo) UpdateReviewStatus(ctx context.Context, responseID string, status model.ReviewStatus, reviewerID string, reviewedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE responses
		 SET review_status = $2, reviewed_by = $3, reviewed_at = $4
		 WHERE id = $1`,
		responseID, status, reviewerID, reviewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}
	return nil
}

// CountBySubmission は提出物の回答数とレビュー済み件数を返す。
func (r *PostgresResponseRepo) CountBySubmission(ctx context.Context, submissionID string) (int, int, error) {
	var total, reviewed int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*), count(*) FILTER (WHERE review_status <> 'pending')
		 FROM responses
		 WHERE submission_id = $1`,
		submissionID,
	).Scan(&total, &reviewed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return total, reviewed, nil
}

// compile-time interface check
var _ ResponseRepository = (*PostgresResponseRepo)(nil)
