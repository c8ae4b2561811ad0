package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kondo/esgportal/internal/metrics"
	"github.com/kondo/esgportal/internal/model"
)

const sessionCookieName = "session_id"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignIn(ctx context.Context, email, password string) (*model.Session, *model.Profile, error)
	SignOut(ctx context.Context, sessionID string) error
	CurrentProfile(ctx context.Context, sessionID string) (*model.Profile, error)
}

// IdleStateInterface はセッションの無操作状態を参照するインターフェース。
// idle.Monitorの部分集合として定義する。
type IdleStateInterface interface {
	Warning(sessionID string) bool
	Expired(sessionID string) bool
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はサインイン・サインアウト・セッション照会のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	idleState IdleStateInterface
	collector metrics.MetricsCollector
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, idleState IdleStateInterface, collector metrics.MetricsCollector, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:   service,
		idleState: idleState,
		collector: collector,
		config:    config,
	}
}

// loginRequest はサインインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionStateResponse はセッション状態のAPIレスポンス。
type sessionStateResponse struct {
	Authenticated bool             `json:"authenticated"`
	Profile       *profileResponse `json:"profile,omitempty"`
	Warning       bool             `json:"warning"`
	Expired       bool             `json:"expired"`
}

// Login はメールアドレスとパスワードでサインインする。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		if h.collector != nil {
			h.collector.RecordLoginFailure()
		}
		handleServiceError(w, model.NewInvalidCredentialsError())
		return
	}

	session, profile, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.collector != nil {
			h.collector.RecordLoginFailure()
		}
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordLoginSuccess(string(profile.Role))
	}

	// セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	resp := toProfileResponse(profile)
	writeJSON(w, http.StatusOK, &resp)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if signOutErr := h.service.SignOut(r.Context(), cookie.Value); signOutErr != nil {
			slog.Error("failed to sign out", slog.String("error", signOutErr.Error()))
			// サインアウト失敗してもCookieはクリアする
		}
	}

	// セッションCookieをクリア
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Session は現在のセッション状態を返す。
// GET /auth/session
// セッションが復元できない場合も401ではなくauthenticated=falseで応答する。
// 無操作ログアウト済みのセッションはexpired=trueを一度だけ報告する。
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusOK, sessionStateResponse{})
		return
	}

	profile, err := h.service.CurrentProfile(r.Context(), cookie.Value)
	if err != nil || profile == nil {
		resp := sessionStateResponse{}
		if h.idleState != nil {
			resp.Expired = h.idleState.Expired(cookie.Value)
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	p := toProfileResponse(profile)
	resp := sessionStateResponse{
		Authenticated: true,
		Profile:       &p,
	}
	if h.idleState != nil {
		resp.Warning = h.idleState.Warning(cookie.Value)
	}
	writeJSON(w, http.StatusOK, resp)
}
