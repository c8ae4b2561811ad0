package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kondo/esgportal/internal/admin"
	"github.com/kondo/esgportal/internal/middleware"
	"github.com/kondo/esgportal/internal/model"
)

// AdminServiceInterface は管理ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	ListCompanies(ctx context.Context) ([]*model.Company, error)
	CreateCompany(ctx context.Context, input admin.CompanyInput) (*model.Company, error)
	UpdateCompany(ctx context.Context, id string, input admin.CompanyInput) (*model.Company, error)
	DeleteCompany(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]*model.Profile, error)
	CreateUser(ctx context.Context, input admin.CreateUserInput) (*model.Profile, error)
	UpdateUser(ctx context.Context, id string, input admin.UpdateUserInput) (*model.Profile, error)
	DeleteUser(ctx context.Context, id string) error
	GetSubmission(ctx context.Context, submissionID string) (*model.Submission, error)
	ListSubmissions(ctx context.Context) ([]*model.Submission, error)
	SetDeadline(ctx context.Context, submissionID string, deadline time.Time) (*model.Submission, error)
}

// AdminHandler は企業・ユーザー・提出期限管理のHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// companyRequest は企業作成・更新リクエストのボディ。
type companyRequest struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Region string `json:"region"`
	Sector string `json:"sector"`
}

// createUserRequest はユーザー作成リクエストのボディ。
type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id"`
}

// updateUserRequest はユーザー更新リクエストのボディ。
// Passwordが空の場合はパスワードを変更しない。
type updateUserRequest struct {
	Role      string `json:"role"`
	CompanyID string `json:"company_id"`
	Password  string `json:"password"`
}

// setDeadlineRequest は提出期限設定リクエストのボディ。
type setDeadlineRequest struct {
	Deadline time.Time `json:"deadline"`
}

// ListCompanies は企業一覧を返す。
// GET /api/admin/companies
func (h *AdminHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
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

// CreateCompany は企業を作成する。
// POST /api/admin/companies
func (h *AdminHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" || req.Name == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "企業コードと企業名は必須です。",
			Category: "validation",
			Action:   "codeとnameを指定してください。",
		})
		return
	}

	company, err := h.service.CreateCompany(r.Context(), admin.CompanyInput{
		Code:   req.Code,
		Name:   req.Name,
		Region: req.Region,
		Sector: req.Sector,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompanyResponse(company))
}

// UpdateCompany は企業情報を更新する。
// PUT /api/admin/companies/{id}
func (h *AdminHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	company, err := h.service.UpdateCompany(r.Context(), chi.URLParam(r, "id"), admin.CompanyInput{
		Code:   req.Code,
		Name:   req.Name,
		Region: req.Region,
		Sector: req.Sector,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyResponse(company))
}

// DeleteCompany は企業を削除する。
// DELETE /api/admin/companies/{id}
func (h *AdminHandler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCompany(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers はユーザー一覧を返す。
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]profileResponse, len(users))
	for i, u := range users {
		results[i] = toProfileResponse(u)
	}
	writeJSON(w, http.StatusOK, results)
}

// CreateUser はユーザーを作成する。
// POST /api/admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "メールアドレスとパスワードは必須です。",
			Category: "validation",
			Action:   "emailとpasswordを指定してください。",
		})
		return
	}

	user, err := h.service.CreateUser(r.Context(), admin.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		Role:      model.Role(req.Role),
		CompanyID: req.CompanyID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProfileResponse(user))
}

// UpdateUser はユーザーのロール・所属企業・パスワードを更新する。
// PUT /api/admin/users/{id}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), admin.UpdateUserInput{
		Role:      model.Role(req.Role),
		CompanyID: req.CompanyID,
		Password:  req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(user))
}

// DeleteUser はユーザーを削除する。
// DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSubmissions は全提出物を返す。
// GET /api/admin/submissions
func (h *AdminHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.service.ListSubmissions(r.Context())
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

// GetDeadline は提出物を期限情報付きで返す。
// GET /api/admin/deadlines/{submissionID}
func (h *AdminHandler) GetDeadline(w http.ResponseWriter, r *http.Request) {
	submission, err := h.service.GetSubmission(r.Context(), chi.URLParam(r, "submissionID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponse(submission))
}

// SetDeadline は提出期限を設定し、期限リマインド通知を即時実行する。
// PUT /api/admin/deadlines/{submissionID}
func (h *AdminHandler) SetDeadline(w http.ResponseWriter, r *http.Request) {
	var req setDeadlineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Deadline.IsZero() {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "期限日時は必須です。",
			Category: "validation",
			Action:   "deadlineをRFC 3339形式で指定してください。",
		})
		return
	}

	submission, err := h.service.SetDeadline(r.Context(), chi.URLParam(r, "submissionID"), req.Deadline)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponse(submission))
}
