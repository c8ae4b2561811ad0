package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kondo/esgportal/internal/metrics"
	"github.com/kondo/esgportal/internal/middleware"
	"github.com/kondo/esgportal/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	ProfileResolver   middleware.ProfileResolver
	IdleToucher       middleware.IdleToucher
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector
	Gatherer          prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	IdleState   IdleStateInterface
	AuthConfig  AuthHandlerConfig

	// ドメインサービス
	AssessmentService AssessmentServiceInterface
	ReviewService     ReviewServiceInterface
	AdminService      AdminServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → CSRF
//
// 認証ルート（/auth/*）と/health・/metricsはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Collector != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Collector))
	}
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.IdleState, deps.Collector, deps.AuthConfig)
	assessmentHandler := NewAssessmentHandler(deps.AssessmentService)
	reviewHandler := NewReviewHandler(deps.ReviewService)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.Mount("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		// サインイン試行はIP単位のレート制限を追加
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session（無操作タイマーのリセット込み） → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.ProfileResolver, deps.IdleToucher))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 質問票回答（Submitter）
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleSubmitter))

			r.Route("/api/sections", func(r chi.Router) {
				r.Get("/", assessmentHandler.ListSections)
				r.Get("/{section}/questions", assessmentHandler.ListQuestions)
			})

			r.Route("/api/submissions/current", func(r chi.Router) {
				r.Get("/", assessmentHandler.CurrentSubmission)
				r.Post("/submit", assessmentHandler.Submit)
			})

			r.Route("/api/responses", func(r chi.Router) {
				r.Get("/", assessmentHandler.ListResponses)
				r.Put("/{questionID}", assessmentHandler.SaveResponse)
				r.Get("/{id}/attachments", assessmentHandler.ListAttachments)
			})

			r.Route("/api/drafts", func(r chi.Router) {
				r.Put("/live", assessmentHandler.SaveLiveDraft)
				r.Get("/draft", assessmentHandler.RestoreDraft)
				r.Delete("/draft", assessmentHandler.DiscardDraft)
			})

			r.Route("/api/attachments", func(r chi.Router) {
				r.Post("/", assessmentHandler.AddAttachment)
				r.Get("/{id}/url", assessmentHandler.AttachmentURL)
				r.Delete("/{id}", assessmentHandler.DeleteAttachment)
			})
		})

		// レビュー（Reviewer）
		r.Route("/api/review", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleReviewer))

			r.Get("/companies", reviewHandler.ListCompanies)
			r.Get("/companies/{id}/submissions", reviewHandler.ListSubmissions)
			r.Get("/submissions/{id}/responses", reviewHandler.SubmissionDetail)
			r.Put("/submissions/{id}", reviewHandler.SaveReview)
		})

		// 管理（Admin）
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))

			r.Route("/companies", func(r chi.Router) {
				r.Get("/", adminHandler.ListCompanies)
				r.Post("/", adminHandler.CreateCompany)
				r.Put("/{id}", adminHandler.UpdateCompany)
				r.Delete("/{id}", adminHandler.DeleteCompany)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", adminHandler.ListUsers)
				r.Post("/", adminHandler.CreateUser)
				r.Put("/{id}", adminHandler.UpdateUser)
				r.Delete("/{id}", adminHandler.DeleteUser)
			})

			r.Get("/submissions", adminHandler.ListSubmissions)

			r.Route("/deadlines/{submissionID}", func(r chi.Router) {
				r.Get("/", adminHandler.GetDeadline)
				r.Put("/", adminHandler.SetDeadline)
			})
		})
	})

	return r
}
