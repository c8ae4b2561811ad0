package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kondo/esgportal/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

const profileColumns = `id, email, password_hash, role, COALESCE(company_id::text, ''), created_at`

// scanProfile は1行をProfileに読み込む。
func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	p := &model.Profile{}
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Role, &p.CompanyID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByEmail は指定メールアドレスのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE email = $1`,
		email,
	)
	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by email: %w", err)
	}
	return p, nil
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE id = $1`,
		id,
	)
	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by id: %w", err)
	}
	return p, nil
}

// ListByCompanyID は指定企業に所属するプロフィール一覧を返す。
func (r *PostgresProfileRepo) ListByCompanyID(ctx context.Context, companyID string) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE company_id = $1 ORDER BY email`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles by company: %w", err)
	}
	defer rows.Close()

	return collectProfiles(rows)
}

// List は全プロフィールをメールアドレス昇順で返す。
func (r *PostgresProfileRepo) List(ctx context.Context) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM users ORDER BY email`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	return collectProfiles(rows)
}

func collectProfiles(rows *sql.Rows) ([]*model.Profile, error) {
	var profiles []*model.Profile
	for rows.Next() {
		p := &model.Profile{}
		if err := rows.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Role, &p.CompanyID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

// Create はプロフィールを作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role, company_id, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6)`,
		profile.ID, profile.Email, profile.PasswordHash, profile.Role, profile.CompanyID, profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// Update はロール・所属企業・パスワードハッシュを更新する。
func (r *PostgresProfileRepo) Update(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET role = $2, company_id = NULLIF($3, '')::uuid, password_hash = $4
		 WHERE id = $1`,
		profile.ID, profile.Role, profile.CompanyID, profile.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのプロフィールを削除する。
func (r *PostgresProfileRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
