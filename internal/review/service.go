// Package review は提出物レビューのドメインロジックを提供する。
//
// レビュアーは企業ごとの提出物を横断的に参照し、回答単位で承認・差戻しの
// 判定を付ける。全回答の判定が出揃った時点で提出物全体の状態が確定する:
// 1件でも差戻しがあればrejected、全件承認ならapproved。
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/kondo/esgportal/internal/metrics"
	"github.com/kondo/esgportal/internal/model"
	"github.com/kondo/esgportal/internal/repository"
)

// Decision は回答1件に対するレビュー判定。
type Decision struct {
	ResponseID string
	Status     model.ReviewStatus
}

// SubmissionDetail は提出物とレビュー進捗のサマリー。
type SubmissionDetail struct {
	Submission *model.Submission
	Responses  []*model.ResponseWithQuestion
	Total      int
	Reviewed   int
}

// Service はレビューのサービス層。
type Service struct {
	companyRepo    repository.CompanyRepository
	submissionRepo repository.SubmissionRepository
	responseRepo   repository.ResponseRepository
	collector      metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。collectorはnil可。
func NewService(
	companyRepo repository.CompanyRepository,
	submissionRepo repository.SubmissionRepository,
	responseRepo repository.ResponseRepository,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		companyRepo:    companyRepo,
		submissionRepo: submissionRepo,
		responseRepo:   responseRepo,
		collector:      collector,
	}
}

// ListCompanies はレビュー対象の企業一覧を返す。
func (s *Service) ListCompanies(ctx context.Context) ([]*model.Company, error) {
	companies, err := s.companyRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("企業一覧の取得に失敗しました: %w", err)
	}
	return companies, nil
}

// ListSubmissions は指定企業の提出済み以降の提出物一覧を返す。
// draft状態の提出物はレビュアーには見せない。
func (s *Service) ListSubmissions(ctx context.Context, companyID string) ([]*model.Submission, error) {
	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("企業の取得に失敗しました: %w", err)
	}
	if company == nil {
		return nil, model.NewCompanyNotFoundError(companyID)
	}

	submissions, err := s.submissionRepo.ListByCompanyID(ctx, companyID, []model.SubmissionStatus{
		model.SubmissionSubmitted,
		model.SubmissionApproved,
		model.SubmissionRejected,
	})
	if err != nil {
		return nil, fmt.Errorf("提出物一覧の取得に失敗しました: %w", err)
	}
	return submissions, nil
}

// SubmissionDetail は提出物の回答一覧とレビュー進捗を返す。
func (s *Service) SubmissionDetail(ctx context.Context, submissionID string) (*SubmissionDetail, error) {
	submission, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("提出物の取得に失敗しました: %w", err)
	}
	if submission == nil {
		return nil, model.NewSubmissionNotFoundError(submissionID)
	}

	responses, err := s.responseRepo.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("回答一覧の取得に失敗しました: %w", err)
	}

	total, reviewed, err := s.responseRepo.CountBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("レビュー進捗の取得に失敗しました: %w", err)
	}

	return &SubmissionDetail{
		Submission: submission,
		Responses:  responses,
		Total:      total,
		Reviewed:   reviewed,
	}, nil
}

// SaveReview は回答単位の判定を一括保存し、必要に応じて提出物全体の
// 状態を確定させる。判定対象の提出物はsubmitted状態であること。
func (s *Service) SaveReview(ctx context.Context, reviewerID, submissionID string, decisions []Decision) (*model.Submission, error) {
	submission, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("提出物の取得に失敗しました: %w", err)
	}
	if submission == nil {
		return nil, model.NewSubmissionNotFoundError(submissionID)
	}
	if submission.Status != model.SubmissionSubmitted {
		return nil, model.NewNotReviewableError(submission.Status)
	}

	for _, d := range decisions {
		if d.Status != model.ReviewApproved && d.Status != model.ReviewRejected {
			return nil, model.NewInvalidReviewStatusError(string(d.Status))
		}
	}

	now := time.Now()
	for _, d := range decisions {
		response, err := s.responseRepo.FindByID(ctx, d.ResponseID)
		if err != nil {
			return nil, fmt.Errorf("回答の取得に失敗しました: %w", err)
		}
		if response == nil || response.SubmissionID != submissionID {
			return nil, model.NewResponseNotFoundError(d.ResponseID)
		}

		if err := s.responseRepo.UpdateReviewStatus(ctx, d.ResponseID, d.Status, reviewerID, now); err != nil {
			return nil, fmt.Errorf("レビュー判定の保存に失敗しました: %w", err)
		}
		if s.collector != nil {
			s.collector.RecordReviewDecision(string(d.Status))
		}
	}

	return s.finalizeSubmission(ctx, submission)
}

// finalizeSubmission は全回答の判定が出揃っていれば提出物状態を確定する。
// 未判定の回答が残っている間はsubmittedのまま維持する。
func (s *Service) finalizeSubmission(ctx context.Context, submission *model.Submission) (*model.Submission, error) {
	responses, err := s.responseRepo.ListBySubmission(ctx, submission.ID)
	if err != nil {
		return nil, fmt.Errorf("回答一覧の取得に失敗しました: %w", err)
	}

	allReviewed := len(responses) > 0
	anyRejected := false
	for _, r := range responses {
		switch r.ReviewStatus {
		case model.ReviewPending:
			allReviewed = false
		case model.ReviewRejected:
			anyRejected = true
		}
	}
	if !allReviewed {
		return submission, nil
	}

	now := time.Now()
	if anyRejected {
		submission.Status = model.SubmissionRejected
	} else {
		submission.Status = model.SubmissionApproved
		submission.ApprovedAt = &now
	}
	if err := s.submissionRepo.UpdateStatus(ctx, submission); err != nil {
		return nil, fmt.Errorf("提出物状態の更新に失敗しました: %w", err)
	}
	return submission, nil
}
