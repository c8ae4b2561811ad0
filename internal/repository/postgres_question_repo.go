package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kondo/esgportal/internal/model"
)

// PostgresQuestionRepo はPostgreSQLを使用した設問リポジトリ。
type PostgresQuestionRepo struct {
	db *sql.DB
}

// NewPostgresQuestionRepo はPostgresQuestionRepoを生成する。
func NewPostgresQuestionRepo(db *sql.DB) *PostgresQuestionRepo {
	return &PostgresQuestionRepo{db: db}
}

// FindByID は指定IDの設問を取得する。見つからない場合はnilを返す。
func (r *PostgresQuestionRepo) FindByID(ctx context.Context, id string) (*model.Question, error) {
	q := &model.Question{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, section, question_text, input_type FROM questions WHERE id = $1`,
		id,
	).Scan(&q.ID, &q.Code, &q.Section, &q.QuestionText, &q.InputType)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find question: %w", err)
	}
	return q, nil
}

// ListBySection は指定セクションの設問をコード昇順で返す。
func (r *PostgresQuestionRepo) ListBySection(ctx context.Context, section model.Section) ([]*model.Question, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, section, question_text, input_type
		 FROM questions
		 WHERE section = $1
		 ORDER BY code`,
		section,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []*model.Question
	for rows.Next() {
		q := &model.Question{}
		if err := rows.Scan(&q.ID, &q.Code, &q.Section, &q.QuestionText, &q.InputType); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}
	return questions, nil
}

// CountBySection はセクションごとの設問数を返す。
func (r *PostgresQuestionRepo) CountBySection(ctx context.Context) (map[model.Section]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT section, count(*) FROM questions GROUP BY section`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Section]int)
	for rows.Next() {
		var section model.Section
		var count int
		if err := rows.Scan(&section, &count); err != nil {
			return nil, fmt.Errorf("failed to scan question count: %w", err)
		}
		counts[section] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate question counts: %w", err)
	}
	return counts, nil
}

// compile-time interface check
var _ QuestionRepository = (*PostgresQuestionRepo)(nil)
