// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kondo/esgportal/internal/middleware"
	"github.com/kondo/esgportal/internal/model"
)

// profileResponse は認証済みユーザー情報のAPIレスポンス。
type profileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
}

// companyResponse は企業情報のAPIレスポンス。
type companyResponse struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Region string `json:"region"`
	Sector string `json:"sector"`
}

// questionResponse は設問のAPIレスポンス。
type questionResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Section      string `json:"section"`
	QuestionText string `json:"question_text"`
	InputType    string `json:"input_type"`
}

// submissionResponse は提出物のAPIレスポンス。
type submissionResponse struct {
	ID            string     `json:"id"`
	CompanyID     string     `json:"company_id"`
	ReportingYear int        `json:"reporting_year"`
	Status        string     `json:"status"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
}

// answerResponse は設問情報付き回答のAPIレスポンス。
type answerResponse struct {
	ID            string     `json:"id"`
	SubmissionID  string     `json:"submission_id"`
	QuestionID    string     `json:"question_id"`
	QuestionCode  string     `json:"question_code"`
	QuestionText  string     `json:"question_text"`
	Section       string     `json:"section"`
	InputType     string     `json:"input_type"`
	ValueText     string     `json:"value_text"`
	LastYearValue string     `json:"last_year_value"`
	Comments      string     `json:"comments"`
	ReviewStatus  string     `json:"review_status"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

// attachmentResponse は添付ファイルメタデータのAPIレスポンス。
type attachmentResponse struct {
	ID          string    `json:"id"`
	ResponseID  string    `json:"response_id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Email:     p.Email,
		Role:      string(p.Role),
		CompanyID: p.CompanyID,
	}
}

func toCompanyResponse(c *model.Company) companyResponse {
	return companyResponse{
		ID:     c.ID,
		Code:   c.Code,
		Name:   c.Name,
		Region: c.Region,
		Sector: c.Sector,
	}
}

func toQuestionResponse(q *model.Question) questionResponse {
	return questionResponse{
		ID:           q.ID,
		Code:         q.Code,
		Section:      string(q.Section),
		QuestionText: q.QuestionText,
		InputType:    q.InputType,
	}
}

func toSubmissionResponse(s *model.Submission) submissionResponse {
	return submissionResponse{
		ID:            s.ID,
		CompanyID:     s.CompanyID,
		ReportingYear: s.ReportingYear,
		Status:        string(s.Status),
		Deadline:      s.Deadline,
		SubmittedAt:   s.SubmittedAt,
		ApprovedAt:    s.ApprovedAt,
	}
}

func toAnswerResponse(rw *model.ResponseWithQuestion) answerResponse {
	return answerResponse{
		ID:            rw.ID,
		SubmissionID:  rw.SubmissionID,
		QuestionID:    rw.QuestionID,
		QuestionCode:  rw.QuestionCode,
		QuestionText:  rw.QuestionText,
		Section:       string(rw.Section),
		InputType:     rw.InputType,
		ValueText:     rw.ValueText,
		LastYearValue: rw.LastYearValue,
		Comments:      rw.Comments,
		ReviewStatus:  string(rw.ReviewStatus),
		ReviewedAt:    rw.ReviewedAt,
	}
}

func toAttachmentResponse(a *model.Attachment) attachmentResponse {
	return attachmentResponse{
		ID:          a.ID,
		ResponseID:  a.ResponseID,
		FileName:    a.FileName,
		FileSize:    a.FileSize,
		ContentType: a.ContentType,
		CreatedAt:   a.CreatedAt,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをJSONとして解析する。
// 解析に失敗した場合は400レスポンスを書き込み、falseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return false
	}
	return true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	middleware.WriteServiceError(w, err)
}

// requireProfile はコンテキストから認証済みプロフィールを取得する。
// 取得できない場合は401レスポンスを書き込み、nilを返す。
func requireProfile(w http.ResponseWriter, r *http.Request) *model.Profile {
	profile, err := middleware.ProfileFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return nil
	}
	return profile
}
