package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kondo/esgportal/internal/model"
)

// PostgresSubmissionRepo はPostgreSQLを使用した提出物リポジトリ。
type PostgresSubmissionRepo struct {
	db *sql.DB
}

// NewPostgresSubmissionRepo はPostgresSubmissionRepoを生成する。
func NewPostgresSubmissionRepo(db *sql.DB) *PostgresSubmissionRepo {
	return &PostgresSubmissionRepo{db: db}
}

const submissionColumns = `id, company_id, reporting_year, status, deadline, submitted_at, approved_at, created_at`

func scanSubmission(row interface{ Scan(...any) error }) (*model.Submission, error) {
	s := &model.Submission{}
	err := row.Scan(&s.ID, &s.CompanyID, &s.ReportingYear, &s.Status,
		&s.Deadline, &s.SubmittedAt, &s.ApprovedAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindByID は指定IDの提出物を取得する。見つからない場合はnilを返す。
func (r *PostgresSubmissionRepo) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`,
		id,
	)
	s, err := scanSubmission(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find submission: %w", err)
	}
	return s, nil
}

// FindByCompanyAndYear は企業IDと報告年度で提出物を検索する。見つからない場合はnilを返す。
func (r *PostgresSubmissionRepo) FindByCompanyAndYear(ctx context.Context, companyID string, year int) (*model.Submission, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE company_id = $1 AND reporting_year = $2`,
		companyID, year,
	)
	s, err := scanSubmission(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find submission by company and year: %w", err)
	}
	return s, nil
}

// ListByCompanyID は企業の提出物一覧を報告年度降順で返す。
// statusesが空でない場合は指定状態のみに絞り込む。
func (r *PostgresSubmissionRepo) ListByCompanyID(ctx context.Context, companyID string, statuses []model.SubmissionStatus) ([]*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE company_id = $1`
	args := []any{companyID}

	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, st := range statuses {
			placeholders[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, st)
		}
		query += ` AND status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY reporting_year DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

// List は全提出物を報告年度降順で返す。
func (r *PostgresSubmissionRepo) List(ctx context.Context) ([]*model.Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions ORDER BY reporting_year DESC, created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list all submissions: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

// ListDeadlineWithin は期限が現在からwithin以内で未提出の提出物を返す。
func (r *PostgresSubmissionRepo) ListDeadlineWithin(ctx context.Context, within time.Duration) ([]*model.Submission, error) {
	interval := fmt.Sprintf("%d seconds", int64(within.Seconds()))
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions
		 WHERE status = 'draft'
		   AND deadline IS NOT NULL
		   AND deadline >= now()
		   AND deadline <= now() + $1::interval`,
		interval,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions by deadline: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

func collectSubmissions(rows *sql.Rows) ([]*model.Submission, error) {
	var submissions []*model.Submission
	for rows.Next() {
		s := &model.Submission{}
		if err := rows.Scan(&s.ID, &s.CompanyID, &s.ReportingYear, &s.Status,
			&s.Deadline, &s.SubmittedAt, &s.ApprovedAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return submissions, nil
}

// Create は提出物を作成する。
func (r *PostgresSubmissionRepo) Create(ctx context.Context, submission *model.Submission) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO submissions (id, company_id, reporting_year, status, deadline, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		submission.ID, submission.CompanyID, submission.ReportingYear,
		submission.Status, submission.Deadline, submission.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// UpdateStatus は提出物の状態と時刻を更新する。
func (r *PostgresSubmissionRepo) UpdateStatus(ctx context.Context, submission *model.Submission) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE submissions
		 SET status = $2, submitted_at = $3, approved_at = $4
		 WHERE id = $1`,
		submission.ID, submission.Status, submission.SubmittedAt, submission.ApprovedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission status: %w", err)
	}
	return nil
}

// UpdateDeadline は提出期限を更新する。
func (r *PostgresSubmissionRepo) UpdateDeadline(ctx context.Context, id string, deadline time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET deadline = $2 WHERE id = $1`,
		id, deadline,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission deadline: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SubmissionRepository = (*PostgresSubmissionRepo)(nil)
