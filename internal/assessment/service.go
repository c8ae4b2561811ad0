// Package assessment はESG自己評価の回答ドメインロジックを提供する。
//
// 質問票の閲覧、回答の保存、提出、下書きの退避・復元を担う。
// 回答の保存はUPSERTで冪等であり、保存のたびにレビュー状態はpendingに戻る。
package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kondo/esgportal/internal/model"
	"github.com/kondo/esgportal/internal/repository"
	"github.com/kondo/esgportal/internal/security"
)

// 質問票1ページあたりの既定の設問数。
const defaultPageSize = 5

// SectionSummary はセクションと設問数のサマリー。
type SectionSummary struct {
	Section       model.Section
	QuestionCount int
}

// QuestionPage は質問票の1ページ分の設問。
type QuestionPage struct {
	Questions  []*model.Question
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// SaveResponseInput は回答保存の入力。
type SaveResponseInput struct {
	ValueText     string
	LastYearValue string
	Comments      string
}

// Service はESG自己評価のサービス層。
type Service struct {
	questionRepo   repository.QuestionRepository
	submissionRepo repository.SubmissionRepository
	responseRepo   repository.ResponseRepository
	attachmentRepo repository.AttachmentRepository
	draftRepo      repository.DraftRepository
	storage        ObjectStorage
	sanitizer      security.InputSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	questionRepo repository.QuestionRepository,
	submissionRepo repository.SubmissionRepository,
	responseRepo repository.ResponseRepository,
	attachmentRepo repository.AttachmentRepository,
	draftRepo repository.DraftRepository,
	storage ObjectStorage,
	sanitizer security.InputSanitizerService,
) *Service {
	return &Service{
		questionRepo:   questionRepo,
		submissionRepo: submissionRepo,
		responseRepo:   responseRepo,
		attachmentRepo: attachmentRepo,
		draftRepo:      draftRepo,
		storage:        storage,
		sanitizer:      sanitizer,
	}
}

// ListSections はセクション一覧を設問数付きで返す。
func (s *Service) ListSections(ctx context.Context) ([]SectionSummary, error) {
	counts, err := s.questionRepo.CountBySection(ctx)
	if err != nil {
		return nil, fmt.Errorf("セクション一覧の取得に失敗しました: %w", err)
	}

	sections := []model.Section{
		model.SectionEnvironmental,
		model.SectionSocial,
		model.SectionGovernance,
	}
	results := make([]SectionSummary, len(sections))
	for i, sec := range sections {
		results[i] = SectionSummary{Section: sec, QuestionCount: counts[sec]}
	}
	return results, nil
}

// ListQuestions は指定セクションの設問をページ分割して返す。
// pageは1始まり。perPageが0以下の場合は既定値を使用する。
func (s *Service) ListQuestions(ctx context.Context, section model.Section, page, perPage int) (*QuestionPage, error) {
	if !section.Valid() {
		return nil, model.NewInvalidSectionError(string(section))
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPageSize
	}

	all, err := s.questionRepo.ListBySection(ctx, section)
	if err != nil {
		return nil, fmt.Errorf("設問一覧の取得に失敗しました: %w", err)
	}

	total := len(all)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return &QuestionPage{
		Questions:  all[start:end],
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// CurrentSubmission は提出者の今年度の提出物を返す。
// 存在しない場合はdraft状態で新規作成する。
func (s *Service) CurrentSubmission(ctx context.Context, profile *model.Profile) (*model.Submission, error) {
	if profile.CompanyID == "" {
		return nil, model.NewNoCompanyAssignmentError()
	}

	year := currentReportingYear()
	submission, err := s.submissionRepo.FindByCompanyAndYear(ctx, profile.CompanyID, year)
	if err != nil {
		return nil, fmt.Errorf("提出物の取得に失敗しました: %w", err)
	}
	if submission != nil {
		return submission, nil
	}

	submission = &model.Submission{
		ID:            uuid.New().String(),
		CompanyID:     profile.CompanyID,
		ReportingYear: year,
		Status:        model.SubmissionDraft,
		CreatedAt:     time.Now(),
	}
	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		return nil, fmt.Errorf("提出物の作成に失敗しました: %w", err)
	}
	return submission, nil
}

// SaveResponse は設問への回答を保存する。
// 提出済み・承認済みの提出物は編集できない。保存された回答の
// レビュー状態はpendingに戻る。
func (s *Service) SaveResponse(ctx context.Context, profile *model.Profile, questionID string, input SaveResponseInput) (*model.Response, error) {
	submission, err := s.CurrentSubmission(ctx, profile)
	if err != nil {
		return nil, err
	}
	if !editable(submission.Status) {
		return nil, model.NewSubmissionLockedError(submission.Status)
	}

	question, err := s.questionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("設問の取得に失敗しました: %w", err)
	}
	if question == nil {
		return nil, model.NewQuestionNotFoundError(questionID)
	}

	response := &model.Response{
		ID:            uuid.New().String(),
		SubmissionID:  submission.ID,
		QuestionID:    questionID,
		ValueText:     s.sanitizer.Sanitize(input.ValueText),
		LastYearValue: s.sanitizer.Sanitize(input.LastYearValue),
		Comments:      s.sanitizer.Sanitize(input.Comments),
		ReviewStatus:  model.ReviewPending,
		UpdatedAt:     time.Now(),
	}

	saved, err := s.responseRepo.Upsert(ctx, response)
	if err != nil {
		return nil, fmt.Errorf("回答の保存に失敗しました: %w", err)
	}
	return saved, nil
}

// ListResponses は提出者の今年度の回答一覧を設問情報付きで返す。
func (s *Service) ListResponses(ctx context.Context, profile *model.Profile) ([]*model.ResponseWithQuestion, error) {
	submission, err := s.CurrentSubmission(ctx, profile)
	if err != nil {
		return nil, err
	}

	responses, err := s.responseRepo.ListBySubmission(ctx, submission.ID)
	if err != nil {
		return nil, fmt.Errorf("回答一覧の取得に失敗しました: %w", err)
	}
	return responses, nil
}

// Submit は今年度の提出物を提出状態に遷移させる。
// draftまたはrejected（差し戻し後の再提出）からのみ遷移できる。
func (s *Service) Submit(ctx context.Context, profile *model.Profile) (*model.Submission, error) {
	submission, err := s.CurrentSubmission(ctx, profile)
	if err != nil {
		return nil, err
	}
	if !editable(submission.Status) {
		return nil, model.NewSubmissionLockedError(submission.Status)
	}

	now := time.Now()
	submission.Status = model.SubmissionSubmitted
	submission.SubmittedAt = &now
	if err := s.submissionRepo.UpdateStatus(ctx, submission); err != nil {
		return nil, fmt.Errorf("提出物の更新に失敗しました: %w", err)
	}
	return submission, nil
}

// SaveLiveDraft は編集中のフォーム状態を保存する。
// payloadは有効なJSONであること。
func (s *Service) SaveLiveDraft(ctx context.Context, userID, page string, payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("draft payload must be valid JSON")
	}

	draft := &model.Draft{
		UserID:    userID,
		Kind:      model.DraftLive,
		Page:      page,
		Payload:   payload,
		UpdatedAt: time.Now(),
	}
	if err := s.draftRepo.Upsert(ctx, draft); err != nil {
		return fmt.Errorf("下書きの保存に失敗しました: %w", err)
	}
	return nil
}

// RestoreDraft は無操作ログアウト時に退避された下書きを返す。
// 存在しない場合はnilを返す。
func (s *Service) RestoreDraft(ctx context.Context, userID string) (*model.Draft, error) {
	draft, err := s.draftRepo.Find(ctx, userID, model.DraftSaved)
	if err != nil {
		return nil, fmt.Errorf("下書きの取得に失敗しました: %w", err)
	}
	return draft, nil
}

// DiscardDraft は退避された下書きを破棄する。存在しない場合も成功する。
func (s *Service) DiscardDraft(ctx context.Context, userID string) error {
	if err := s.draftRepo.Delete(ctx, userID, model.DraftSaved); err != nil {
		return fmt.Errorf("下書きの破棄に失敗しました: %w", err)
	}
	return nil
}

// editable は提出者が回答を編集できる状態かを返す。
func editable(status model.SubmissionStatus) bool {
	return status == model.SubmissionDraft || status == model.SubmissionRejected
}

// currentReportingYear は現在の報告年度を返す。
func currentReportingYear() int {
	return time.Now().Year()
}
