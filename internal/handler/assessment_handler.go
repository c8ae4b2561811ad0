package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kondo/esgportal/internal/assessment"
	"github.com/kondo/esgportal/internal/middleware"
	"github.com/kondo/esgportal/internal/model"
)

// AssessmentServiceInterface は質問票ハンドラーが必要とするサービスインターフェース。
type AssessmentServiceInterface interface {
	ListSections(ctx context.Context) ([]assessment.SectionSummary, error)
	ListQuestions(ctx context.Context, section model.Section, page, perPage int) (*assessment.QuestionPage, error)
	CurrentSubmission(ctx context.Context, profile *model.Profile) (*model.Submission, error)
	SaveResponse(ctx context.Context, profile *model.Profile, questionID string, input assessment.SaveResponseInput) (*model.Response, error)
	ListResponses(ctx context.Context, profile *model.Profile) ([]*model.ResponseWithQuestion, error)
	Submit(ctx context.Context, profile *model.Profile) (*model.Submission, error)
	SaveLiveDraft(ctx context.Context, userID, page string, payload []byte) error
	RestoreDraft(ctx context.Context, userID string) (*model.Draft, error)
	DiscardDraft(ctx context.Context, userID string) error
	AddAttachment(ctx context.Context, profile *model.Profile, input assessment.AddAttachmentInput) (*model.Attachment, string, error)
	AttachmentURL(ctx context.Context, profile *model.Profile, attachmentID string) (string, error)
	ListAttachments(ctx context.Context, profile *model.Profile, responseID string) ([]*model.Attachment, error)
	DeleteAttachment(ctx context.Context, profile *model.Profile, attachmentID string) error
}

// AssessmentHandler は質問票回答のHTTPハンドラー。
type AssessmentHandler struct {
	service AssessmentServiceInterface
}

// NewAssessmentHandler はAssessmentHandlerを生成する。
func NewAssessmentHandler(service AssessmentServiceInterface) *AssessmentHandler {
	return &AssessmentHandler{service: service}
}

// sectionResponse はセクションサマリーのAPIレスポンス。
type sectionResponse struct {
	Section       string `json:"section"`
	QuestionCount int    `json:"question_count"`
}

// questionPageResponse は設問ページのAPIレスポンス。
type questionPageResponse struct {
	Questions  []questionResponse `json:"questions"`
	Page       int                `json:"page"`
	PerPage    int                `json:"per_page"`
	Total      int                `json:"total"`
	TotalPages int                `json:"total_pages"`
}

// saveResponseRequest は回答保存リクエストのボディ。
type saveResponseRequest struct {
	ValueText     string `json:"value_text"`
	LastYearValue string `json:"last_year_value"`
	Comments      string `json:"comments"`
}

// saveDraftRequest は下書き保存リクエストのボディ。
type saveDraftRequest struct {
	Page    string          `json:"page"`
	Payload json.RawMessage `json:"payload"`
}

// draftResponse は下書きのAPIレスポンス。
type draftResponse struct {
	Page    string          `json:"page"`
	Payload json.RawMessage `json:"payload"`
}

// addAttachmentRequest は添付ファイル登録リクエストのボディ。
type addAttachmentRequest struct {
	ResponseID  string `json:"response_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

// ListSections はセクション一覧を返す。
// GET /api/sections
func (h *AssessmentHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListSections(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]sectionResponse, len(summaries))
	for i, s := range summaries {
		results[i] = sectionResponse{
			Section:       string(s.Section),
			QuestionCount: s.QuestionCount,
		}
	}
	writeJSON(w, http.StatusOK, results)
}

// ListQuestions はセクション内の設問をページ単位で返す。
// GET /api/sections/{section}/questions?page=1
func (h *AssessmentHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	section := model.Section(chi.URLParam(r, "section"))

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || parsed < 1 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "ページ番号が不正です。",
				Category: "validation",
				Action:   "1以上の整数を指定してください。",
			})
			return
		}
		page = parsed
	}

	result, err := h.service.ListQuestions(r.Context(), section, page, 0)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	questions := make([]questionResponse, len(result.Questions))
	for i, q := range result.Questions {
		questions[i] = toQuestionResponse(q)
	}
	writeJSON(w, http.StatusOK, questionPageResponse{
		Questions:  questions,
		Page:       result.Page,
		PerPage:    result.PerPage,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

// CurrentSubmission は当年度の提出物を返す。存在しない場合は作成する。
// GET /api/submissions/current
func (h *AssessmentHandler) CurrentSubmission(w http.ResponseWriter, r *http.Request) {
	profile := requireProfile(w, r)
	if profile == nil {
		return
	}

	submission, err := h.service.CurrentSubmission(r.Context(), profile)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponse(submission))
}

// Submit は当年度の提出物を提出する。
// POST /api/submissions/current/submit
func (h *AssessmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	profile := requireProfile(w, r)
	if profile == nil {
		return
	}

	submission, err := h.service.Submit(r.Context(), profile)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponse(submission))
}

// SaveResponse は設問への回答を保存する。
// PUT /api/responses/{questionID}
func (h *AssessmentHandler) SaveResponse(w http.ResponseWriter, r *http.Request) {
	profile := requireProfile(w, r)
	if profile == nil {
		return
	}

	var req saveResponseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	questionID := chi.URLParam(r, "questionID")
	response, err := h.service.SaveResponse(r.Context(), profile, questionID, assessment.SaveResponseInput{
		ValueText:     req.ValueText,
		LastYearValue: req.LastYearValue,
		Comments:      req.Comments,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":            response.ID,
		"question_id":   response.QuestionID,
		"review_status": string(response.ReviewStatus),
	})
}

// ListResponses は当年度の提出物の全回答を設問情報付きで返す。
// GET /api/responses
func (h *AssessmentHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	profile := requireProfile(w, r)
	if profile == nil {
		return
	}

	responses, err := h.service.ListResponses(r.Context(), profile)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]answerResponse, len(responses))
	for i, resp := range responses {
		results[i] = toAnswerResponse(resp)
	}
	writeJSON(w, http.StatusOK, results)
}

// SaveLiveDraft は編集中のフォーム状態を保存する。
// PUT /api/drafts/live
func (h *AssessmentHandler) SaveLiveDraft(w http.ResponseWriter, r *http.Request) {
	profile := requireProfile(w, r)
	if profile == nil {
		return
	}

	var req saveDraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.SaveLiveDraft(r.Context(), profile.ID, req.Page, req.Payload); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreDraft は退避済み下書きを返す。
// GET /api/drafts/draft
func (h *AssessmentHandler) RestoreDraft(w http.ResponseWriter, r *http.Request) {
	profile := requireProfile(w, r)
	if profile == nil {
		return
	}

	draft, err := h.service.RestoreDraft(r.Context(), profile.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if draft == nil {
		writeJSON(w, http.StatusOK, map[string]any{"draft": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"draft": draftResponse{
			Page:    draft.Page,
			Payload: draft.Payload,
		},
	})
}

// DiscardDraft は退避済み下書きを破棄する。
// DELETE /api/drafts/draft
func (h *AssessmentHandler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	profile := requireProfile(w, r)
	if profile == nil {
		return
	}

	if err := h.service.DiscardDraft(r.Context(), profile.ID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddAttachment は添付ファイルを登録し、アップロード用署名付きURLを返す。
// POST /api/attachments
func (h *AssessmentHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	profile := requireProfile(w, r)
	if profile == nil {
		return
	}

	var req addAttachmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	attachment, uploadURL, err := h.service.AddAttachment(r.Context(), profile, assessment.AddAttachmentInput{
		ResponseID:  req.ResponseID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"attachment": toAttachmentResponse(attachment),
		"upload_url": uploadURL,
	})
}

// AttachmentURL は添付ファイルのダウンロード用署名付きURLを返す。
// GET /api/attachments/{id}/url
func (h *AssessmentHandler) AttachmentURL(w http.ResponseWriter, r *http.Request) {
	profile := requireProfile(w, r)
	if profile == nil {
		return
	}

	url, err := h.service.AttachmentURL(r.Context(), profile, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"download_url": url})
}

// ListAttachments は回答に紐づく添付ファイル一覧を返す。
// GET /api/responses/{id}/attachments
func (h *AssessmentHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	profile := requireProfile(w, r)
	if profile == nil {
		return
	}

	attachments, err := h.service.ListAttachments(r.Context(), profile, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]attachmentResponse, len(attachments))
	for i, a := range attachments {
		results[i] = toAttachmentResponse(a)
	}
	writeJSON(w, http.StatusOK, results)
}

// DeleteAttachment は添付ファイルを削除する。
// DELETE /api/attachments/{id}
func (h *AssessmentHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	profile := requireProfile(w, r)
	if profile == nil {
		return
	}

	if err := h.service.DeleteAttachment(r.Context(), profile, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
