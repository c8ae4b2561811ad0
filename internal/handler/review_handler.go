package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kondo/esgportal/internal/model"
	"github.com/kondo/esgportal/internal/review"
)

// ReviewServiceInterface はレビューハンドラーが必要とするサービスインターフェース。
type ReviewServiceInterface interface {
	ListCompanies(ctx context.Context) ([]*model.Company, error)
	ListSubmissions(ctx context.Context, companyID string) ([]*model.Submission, error)
	SubmissionDetail(ctx context.Context, submissionID string) (*review.SubmissionDetail, error)
	SaveReview(ctx context.Context, reviewerID, submissionID string, decisions []review.Decision) (*model.Submission, error)
}

// ReviewHandler はレビューのHTTPハンドラー。
type ReviewHandler struct {
	service ReviewServiceInterface
}

// NewReviewHandler はReviewHandlerを生成する。
func NewReviewHandler(service ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// decisionRequest は回答1件へのレビュー判定。
type decisionRequest struct {
	ResponseID string `json:"response_id"`
	Status     string `json:"status"`
}

// saveReviewRequest はレビュー保存リクエストのボディ。
type saveReviewRequest struct {
	Decisions []decisionRequest `json:"decisions"`
}

// submissionDetailResponse は提出物とレビュー進捗のAPIレスポンス。
type submissionDetailResponse struct {
	Submission submissionResponse `json:"submission"`
	Responses  []answerResponse   `json:"responses"`
	Total      int                `json:"total"`
	Reviewed   int                `json:"reviewed"`
}

// ListCompanies はレビュー対象の企業一覧を返す。
// GET /api/review/companies
func (h *ReviewHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.ListCompanies(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]companyResponse, len(companies))
	for i, c := range companies {
		results[i] = toCompanyResponse(c)
	}
	writeJSON(w, http.StatusOK, results)
}

// ListSubmissions は企業の提出物一覧を返す。draft状態は含まない。
// GET /api/review/companies/{id}/submissions
func (h *ReviewHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.service.ListSubmissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]submissionResponse, len(submissions))
	for i, s := range submissions {
		results[i] = toSubmissionResponse(s)
	}
	writeJSON(w, http.StatusOK, results)
}

// SubmissionDetail は提出物の全回答とレビュー進捗を返す。
// GET /api/review/submissions/{id}/responses
func (h *ReviewHandler) SubmissionDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.SubmissionDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]answerResponse, len(detail.Responses))
	for i, resp := range detail.Responses {
		responses[i] = toAnswerResponse(resp)
	}
	writeJSON(w, http.StatusOK, submissionDetailResponse{
		Submission: toSubmissionResponse(detail.Submission),
		Responses:  responses,
		Total:      detail.Total,
		Reviewed:   detail.Reviewed,
	})
}

// SaveReview は回答ごとのレビュー判定を保存し、全件判定済みであれば
// 提出物の状態を遷移させる。
// PUT /api/review/submissions/{id}
func (h *ReviewHandler) SaveReview(w http.ResponseWriter, r *http.Request) {
	profile := requireProfile(w, r)
	if profile == nil {
		return
	}

	var req saveReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	decisions := make([]review.Decision, len(req.Decisions))
	for i, d := range req.Decisions {
		decisions[i] = review.Decision{
			ResponseID: d.ResponseID,
			Status:     model.ReviewStatus(d.Status),
		}
	}

	submission, err := h.service.SaveReview(r.Context(), profile.ID, chi.URLParam(r, "id"), decisions)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponse(submission))
}
