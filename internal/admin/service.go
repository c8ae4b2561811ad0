// Package admin は企業・ユーザー・提出期限の管理ドメインロジックを提供する。
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kondo/esgportal/internal/auth"
	"github.com/kondo/esgportal/internal/model"
	"github.com/kondo/esgportal/internal/repository"
)

// Notifier は期限リマインド通知の即時実行インターフェース。
// 通常は通知ワーカーが定期実行するが、期限変更時には即時に1回走らせる。
type Notifier interface {
	RunOnce(ctx context.Context) error
}

// CompanyInput は企業の作成・更新入力。
type CompanyInput struct {
	Code   string
	Name   string
	Region string
	Sector string
}

// CreateUserInput はユーザー作成の入力。
type CreateUserInput struct {
	Email     string
	Password  string
	Role      model.Role
	CompanyID string
}

// UpdateUserInput はユーザー更新の入力。Passwordが空の場合は変更しない。
type UpdateUserInput struct {
	Role      model.Role
	CompanyID string
	Password  string
}

// Service は管理機能のサービス層。
type Service struct {
	companyRepo    repository.CompanyRepository
	profileRepo    repository.ProfileRepository
	sessionRepo    repository.SessionRepository
	submissionRepo repository.SubmissionRepository
	notifier       Notifier
}

// NewService はServiceの新しいインスタンスを生成する。notifierはnil可。
func NewService(
	companyRepo repository.CompanyRepository,
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	submissionRepo repository.SubmissionRepository,
	notifier Notifier,
) *Service {
	return &Service{
		companyRepo:    companyRepo,
		profileRepo:    profileRepo,
		sessionRepo:    sessionRepo,
		submissionRepo: submissionRepo,
		notifier:       notifier,
	}
}

// ListCompanies は全企業を返す。
func (s *Service) ListCompanies(ctx context.Context) ([]*model.Company, error) {
	companies, err := s.companyRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("企業一覧の取得に失敗しました: %w", err)
	}
	return companies, nil
}

// CreateCompany は企業を作成する。企業コードは一意であること。
func (s *Service) CreateCompany(ctx context.Context, input CompanyInput) (*model.Company, error) {
	existing, err := s.companyRepo.FindByCode(ctx, input.Code)
	if err != nil {
		return nil, fmt.Errorf("企業コードの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateCompanyError(input.Code)
	}

	company := &model.Company{
		ID:     uuid.New().String(),
		Code:   input.Code,
		Name:   input.Name,
		Region: input.Region,
		Sector: input.Sector,
	}
	if err := s.companyRepo.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("企業の作成に失敗しました: %w", err)
	}

	slog.Info("company created", slog.String("company_id", company.ID), slog.String("code", company.Code))
	return company, nil
}

// UpdateCompany は企業情報を更新する。
func (s *Service) UpdateCompany(ctx context.Context, id string, input CompanyInput) (*model.Company, error) {
	company, err := s.companyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("企業の取得に失敗しました: %w", err)
	}
	if company == nil {
		return nil, model.NewCompanyNotFoundError(id)
	}

	if input.Code != company.Code {
		conflict, err := s.companyRepo.FindByCode(ctx, input.Code)
		if err != nil {
			return nil, fmt.Errorf("企業コードの確認に失敗しました: %w", err)
		}
		if conflict != nil {
			return nil, model.NewDuplicateCompanyError(input.Code)
		}
	}

	company.Code = input.Code
	company.Name = input.Name
	company.Region = input.Region
	company.Sector = input.Sector
	if err := s.companyRepo.Update(ctx, company); err != nil {
		return nil, fmt.Errorf("企業の更新に失敗しました: %w", err)
	}
	return company, nil
}

// DeleteCompany は企業を削除する。関連する提出物はCASCADE削除される。
func (s *Service) DeleteCompany(ctx context.Context, id string) error {
	company, err := s.companyRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("企業の取得に失敗しました: %w", err)
	}
	if company == nil {
		return model.NewCompanyNotFoundError(id)
	}

	if err := s.companyRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("企業の削除に失敗しました: %w", err)
	}
	slog.Info("company deleted", slog.String("company_id", id))
	return nil
}

// ListUsers は全ユーザーを返す。
func (s *Service) ListUsers(ctx context.Context) ([]*model.Profile, error) {
	users, err := s.profileRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// CreateUser はユーザーを作成する。メールアドレスは一意であること。
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*model.Profile, error) {
	if !input.Role.Valid() {
		return nil, model.NewInvalidRoleError(string(input.Role))
	}

	existing, err := s.profileRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("メールアドレスの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUserError(input.Email)
	}

	if err := s.validateCompanyRef(ctx, input.CompanyID); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	profile := &model.Profile{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		CompanyID:    input.CompanyID,
		CreatedAt:    time.Now(),
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("user created",
		slog.String("user_id", profile.ID),
		slog.String("role", string(profile.Role)),
	)
	return profile, nil
}

// UpdateUser はロール・所属企業・パスワードを更新する。
// ロールまたはパスワードが変わった場合は当該ユーザーの全セッションを失効させ、
// 旧権限・旧資格情報のまま操作が継続されるのを防ぐ。
func (s *Service) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*model.Profile, error) {
	if !input.Role.Valid() {
		return nil, model.NewInvalidRoleError(string(input.Role))
	}

	profile, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.validateCompanyRef(ctx, input.CompanyID); err != nil {
		return nil, err
	}

	roleChanged := profile.Role != input.Role
	passwordChanged := input.Password != ""

	profile.Role = input.Role
	profile.CompanyID = input.CompanyID
	if passwordChanged {
		hash, err := auth.HashPassword(input.Password)
		if err != nil {
			return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
		}
		profile.PasswordHash = hash
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}

	if roleChanged || passwordChanged {
		if err := s.sessionRepo.DeleteByEmail(ctx, profile.Email); err != nil {
			return nil, fmt.Errorf("セッションの失効に失敗しました: %w", err)
		}
		slog.Info("user sessions revoked",
			slog.String("user_id", id),
			slog.Bool("role_changed", roleChanged),
		)
	}

	return profile, nil
}

// DeleteUser はユーザーを削除する。
// セッションはここでは触らない: プロフィール行を失った有効セッションは
// 孤児セッションとして次回のセッション復元時に検出・強制サインアウトされる。
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	profile, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.profileRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	slog.Info("user deleted", slog.String("user_id", id))
	return nil
}

// GetSubmission は提出物を期限情報付きで返す。
func (s *Service) GetSubmission(ctx context.Context, submissionID string) (*model.Submission, error) {
	submission, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("提出物の取得に失敗しました: %w", err)
	}
	if submission == nil {
		return nil, model.NewSubmissionNotFoundError(submissionID)
	}
	return submission, nil
}

// ListSubmissions は全提出物を返す。
func (s *Service) ListSubmissions(ctx context.Context) ([]*model.Submission, error) {
	submissions, err := s.submissionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("提出物一覧の取得に失敗しました: %w", err)
	}
	return submissions, nil
}

// SetDeadline は提出期限を設定し、期限リマインド通知を即時に1回実行する。
// 期限は未来日時であること。
func (s *Service) SetDeadline(ctx context.Context, submissionID string, deadline time.Time) (*model.Submission, error) {
	if !deadline.After(time.Now()) {
		return nil, model.NewInvalidDeadlineError("過去の日時は指定できません")
	}

	submission, err := s.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	if err := s.submissionRepo.UpdateDeadline(ctx, submissionID, deadline); err != nil {
		return nil, fmt.Errorf("提出期限の更新に失敗しました: %w", err)
	}
	submission.Deadline = &deadline

	if s.notifier != nil {
		if err := s.notifier.RunOnce(ctx); err != nil {
			slog.Warn("deadline notification dispatch failed", slog.String("error", err.Error()))
		}
	}

	slog.Info("deadline updated",
		slog.String("submission_id", submissionID),
		slog.Time("deadline", deadline),
	)
	return submission, nil
}

// validateCompanyRef はCompanyIDが空でない場合に実在を確認する。
func (s *Service) validateCompanyRef(ctx context.Context, companyID string) error {
	if companyID == "" {
		return nil
	}
	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		return fmt.Errorf("企業の取得に失敗しました: %w", err)
	}
	if company == nil {
		return model.NewCompanyNotFoundError(companyID)
	}
	return nil
}
