package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kondo/esgportal/internal/admin"
	"github.com/kondo/esgportal/internal/assessment"
	"github.com/kondo/esgportal/internal/middleware"
	"github.com/kondo/esgportal/internal/model"
	"github.com/kondo/esgportal/internal/review"
)

// --- スタブサービス ---

type stubAssessmentService struct{}

func (stubAssessmentService) ListSections(_ context.Context) ([]assessment.SectionSummary, error) {
	return []assessment.SectionSummary{{Section: model.SectionEnvironmental, QuestionCount: 2}}, nil
}

func (stubAssessmentService) ListQuestions(_ context.Context, _ model.Section, _, _ int) (*assessment.QuestionPage, error) {
	return &assessment.QuestionPage{Page: 1, PerPage: 5, TotalPages: 1}, nil
}

func (stubAssessmentService) CurrentSubmission(_ context.Context, _ *model.Profile) (*model.Submission, error) {
	return &model.Submission{ID: "submission-1", Status: model.SubmissionDraft}, nil
}

func (stubAssessmentService) SaveResponse(_ context.Context, _ *model.Profile, _ string, _ assessment.SaveResponseInput) (*model.Response, error) {
	return &model.Response{ID: "response-1"}, nil
}

func (stubAssessmentService) ListResponses(_ context.Context, _ *model.Profile) ([]*model.ResponseWithQuestion, error) {
	return nil, nil
}

func (stubAssessmentService) Submit(_ context.Context, _ *model.Profile) (*model.Submission, error) {
	return &model.Submission{ID: "submission-1", Status: model.SubmissionSubmitted}, nil
}

func (stubAssessmentService) SaveLiveDraft(_ context.Context, _, _ string, _ []byte) error { return nil }

func (stubAssessmentService) RestoreDraft(_ context.Context, _ string) (*model.Draft, error) {
	return nil, nil
}

func (stubAssessmentService) DiscardDraft(_ context.Context, _ string) error { return nil }

func (stubAssessmentService) AddAttachment(_ context.Context, _ *model.Profile, _ assessment.AddAttachmentInput) (*model.Attachment, string, error) {
	return &model.Attachment{ID: "attachment-1"}, "https://example.com/upload", nil
}

func (stubAssessmentService) AttachmentURL(_ context.Context, _ *model.Profile, _ string) (string, error) {
	return "https://example.com/download", nil
}

func (stubAssessmentService) ListAttachments(_ context.Context, _ *model.Profile, _ string) ([]*model.Attachment, error) {
	return nil, nil
}

func (stubAssessmentService) DeleteAttachment(_ context.Context, _ *model.Profile, _ string) error {
	return nil
}

type stubReviewService struct{}

func (stubReviewService) ListCompanies(_ context.Context) ([]*model.Company, error) { return nil, nil }

func (stubReviewService) ListSubmissions(_ context.Context, _ string) ([]*model.Submission, error) {
	return nil, nil
}

func (stubReviewService) SubmissionDetail(_ context.Context, _ string) (*review.SubmissionDetail, error) {
	return &review.SubmissionDetail{Submission: &model.Submission{ID: "submission-1"}}, nil
}

func (stubReviewService) SaveReview(_ context.Context, _, _ string, _ []review.Decision) (*model.Submission, error) {
	return &model.Submission{ID: "submission-1", Status: model.SubmissionApproved}, nil
}

type stubAdminService struct{}

func (stubAdminService) ListCompanies(_ context.Context) ([]*model.Company, error) { return nil, nil }

func (stubAdminService) CreateCompany(_ context.Context, input admin.CompanyInput) (*model.Company, error) {
	return &model.Company{ID: "company-1", Code: input.Code, Name: input.Name}, nil
}

func (stubAdminService) UpdateCompany(_ context.Context, id string, _ admin.CompanyInput) (*model.Company, error) {
	return &model.Company{ID: id}, nil
}

func (stubAdminService) DeleteCompany(_ context.Context, _ string) error { return nil }

func (stubAdminService) ListUsers(_ context.Context) ([]*model.Profile, error) { return nil, nil }

func (stubAdminService) CreateUser(_ context.Context, input admin.CreateUserInput) (*model.Profile, error) {
	return &model.Profile{ID: "user-1", Email: input.Email, Role: input.Role}, nil
}

func (stubAdminService) UpdateUser(_ context.Context, id string, _ admin.UpdateUserInput) (*model.Profile, error) {
	return &model.Profile{ID: id}, nil
}

func (stubAdminService) DeleteUser(_ context.Context, _ string) error { return nil }

func (stubAdminService) GetSubmission(_ context.Context, id string) (*model.Submission, error) {
	return &model.Submission{ID: id}, nil
}

func (stubAdminService) ListSubmissions(_ context.Context) ([]*model.Submission, error) {
	return nil, nil
}

func (stubAdminService) SetDeadline(_ context.Context, id string, deadline time.Time) (*model.Submission, error) {
	return &model.Submission{ID: id, Deadline: &deadline}, nil
}

// sessionRoleResolver はセッションIDをロール別プロフィールに解決するスタブ。
type sessionRoleResolver struct{}

func (sessionRoleResolver) CurrentProfile(_ context.Context, sessionID string) (*model.Profile, error) {
	switch sessionID {
	case "submitter-session":
		return &model.Profile{ID: "user-s", Role: model.RoleSubmitter, CompanyID: "company-1"}, nil
	case "reviewer-session":
		return &model.Profile{ID: "user-r", Role: model.RoleReviewer}, nil
	case "admin-session":
		return &model.Profile{ID: "user-a", Role: model.RoleAdmin}, nil
	}
	return nil, nil
}

type noopToucher struct{}

func (noopToucher) Touch(_ string) {}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		ProfileResolver:   sessionRoleResolver{},
		IdleToucher:       noopToucher{},
		CORSAllowedOrigin: "http://localhost:5173",
		RateLimiter:       rl,
		AuthService:       &mockAuthService{},
		IdleState:         &mockIdleState{},
		AuthConfig:        AuthHandlerConfig{SessionMaxAge: 3600},
		AssessmentService: stubAssessmentService{},
		ReviewService:     stubReviewService{},
		AdminService:      stubAdminService{},
	})
}

func routerGet(t *testing.T, router http.Handler, path, sessionID string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Result()
}

// --- テスト ---

func TestRouter_Health_NoAuthRequired(t *testing.T) {
	router := newTestRouter(t)

	resp := routerGet(t, router, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestRouter_Session_NoAuthRequired(t *testing.T) {
	router := newTestRouter(t)

	resp := routerGet(t, router, "/auth/session", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestRouter_APIWithoutSession_Returns401(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/api/sections", "/api/review/companies", "/api/admin/companies"} {
		resp := routerGet(t, router, path, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want %d", path, resp.StatusCode, http.StatusUnauthorized)
		}
	}
}

func TestRouter_SubmitterRoutes_RequireSubmitterRole(t *testing.T) {
	router := newTestRouter(t)

	if resp := routerGet(t, router, "/api/sections", "submitter-session"); resp.StatusCode != http.StatusOK {
		t.Errorf("submitter: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if resp := routerGet(t, router, "/api/sections", "reviewer-session"); resp.StatusCode != http.StatusForbidden {
		t.Errorf("reviewer: status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestRouter_ReviewerRoutes_RequireReviewerRole(t *testing.T) {
	router := newTestRouter(t)

	if resp := routerGet(t, router, "/api/review/companies", "reviewer-session"); resp.StatusCode != http.StatusOK {
		t.Errorf("reviewer: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if resp := routerGet(t, router, "/api/review/companies", "submitter-session"); resp.StatusCode != http.StatusForbidden {
		t.Errorf("submitter: status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestRouter_AdminRoutes_RequireAdminRole(t *testing.T) {
	router := newTestRouter(t)

	if resp := routerGet(t, router, "/api/admin/companies", "admin-session"); resp.StatusCode != http.StatusOK {
		t.Errorf("admin: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if resp := routerGet(t, router, "/api/admin/companies", "reviewer-session"); resp.StatusCode != http.StatusForbidden {
		t.Errorf("reviewer: status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestRouter_MutatingRequest_RequiresCSRFToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/submissions/current/submit", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "submitter-session"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestRouter_MutatingRequest_WithCSRFToken_Succeeds(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/submissions/current/submit", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "submitter-session"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-1"})
	req.Header.Set("X-CSRF-Token", "token-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_SecurityHeaders_Present(t *testing.T) {
	router := newTestRouter(t)

	resp := routerGet(t, router, "/health", "")
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}
