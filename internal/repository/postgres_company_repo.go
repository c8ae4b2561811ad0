package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kondo/esgportal/internal/model"
)

// PostgresCompanyRepo はPostgreSQLを使用した企業リポジトリ。
type PostgresCompanyRepo struct {
	db *sql.DB
}

// NewPostgresCompanyRepo はPostgresCompanyRepoを生成する。
func NewPostgresCompanyRepo(db *sql.DB) *PostgresCompanyRepo {
	return &PostgresCompanyRepo{db: db}
}

// FindByID は指定IDの企業を取得する。見つからない場合はnilを返す。
func (r *PostgresCompanyRepo) FindByID(ctx context.Context, id string) (*model.Company, error) {
	c := &model.Company{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, name, region, sector FROM companies WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Code, &c.Name, &c.Region, &c.Sector)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	return c, nil
}

// FindByCode は企業コードで企業を検索する。見つからない場合はnilを返す。
func (r *PostgresCompanyRepo) FindByCode(ctx context.Context, code string) (*model.Company, error) {
	c := &model.Company{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, name, region, sector FROM companies WHERE code = $1`,
		code,
	).Scan(&c.ID, &c.Code, &c.Name, &c.Region, &c.Sector)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find company by code: %w", err)
	}
	return c, nil
}

// List は全企業を企業名昇順で返す。
func (r *PostgresCompanyRepo) List(ctx context.Context) ([]*model.Company, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, name, region, sector FROM companies ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []*model.Company
	for rows.Next() {
		c := &model.Company{}
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Region, &c.Sector); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate companies: %w", err)
	}
	return companies, nil
}

// Create は企業を作成する。
func (r *PostgresCompanyRepo) Create(ctx context.Context, company *model.Company) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO companies (id, code, name, region, sector)
		 VALUES ($1, $2, $3, $4, $5)`,
		company.ID, company.Code, company.Name, company.Region, company.Sector,
	)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// Update は企業情報を更新する。
func (r *PostgresCompanyRepo) Update(ctx context.Context, company *model.Company) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE companies SET code = $2, name = $3, region = $4, sector = $5 WHERE id = $1`,
		company.ID, company.Code, company.Name, company.Region, company.Sector,
	)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの企業を削除する。関連submissionsはCASCADE削除される。
func (r *PostgresCompanyRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM companies WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CompanyRepository = (*PostgresCompanyRepo)(nil)
