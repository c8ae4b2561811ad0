// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kondo/esgportal/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// profileContextKey はリクエストコンテキストに認証済みプロフィールを格納するためのキー。
var profileContextKey = contextKey("profile")

// sessionIDContextKey はリクエストコンテキストにセッションIDを格納するためのキー。
var sessionIDContextKey = contextKey("session_id")

// ProfileResolver はセッションIDから認証済みプロフィールを復元するインターフェース。
// auth.Serviceの部分集合として定義する。
// プロフィールが復元できない場合（セッション不在・期限切れ・孤児セッション・
// 一時的な照会失敗による劣化）は (nil, nil) を返す契約とする。
type ProfileResolver interface {
	CurrentProfile(ctx context.Context, sessionID string) (*model.Profile, error)
}

// IdleToucher はリクエスト到着時に無操作タイマーをリセットするインターフェース。
// idle.Monitorの部分集合として定義する。
type IdleToucher interface {
	Touch(sessionID string)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// プロフィールを復元するミドルウェアを返す。
// 復元したプロフィールとセッションIDをリクエストコンテキストに注入し、
// 併せて無操作タイマーをリセットする。
// 復元できないリクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(resolver ProfileResolver, toucher IdleToucher) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. CookieからセッションIDを取得
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. プロフィールを復元
			// CurrentProfileは一時的な失敗を未認証に劣化させるため、
			// errが返ることは通常ない。
			profile, err := resolver.CurrentProfile(r.Context(), cookie.Value)
			if err != nil || profile == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 認証済みリクエストは無操作タイマーをリセット
			if toucher != nil {
				toucher.Touch(cookie.Value)
			}

			// 4. プロフィールとセッションIDをコンテキストに注入
			ctx := context.WithValue(r.Context(), profileContextKey, profile)
			ctx = context.WithValue(ctx, sessionIDContextKey, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileFromContext はリクエストコンテキストから認証済みプロフィールを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func ProfileFromContext(ctx context.Context) (*model.Profile, error) {
	profile, ok := ctx.Value(profileContextKey).(*model.Profile)
	if !ok || profile == nil {
		return nil, fmt.Errorf("profile not found in context")
	}
	return profile, nil
}

// SessionIDFromContext はリクエストコンテキストからセッションIDを取得する。
func SessionIDFromContext(ctx context.Context) (string, error) {
	sessionID, ok := ctx.Value(sessionIDContextKey).(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("session ID not found in context")
	}
	return sessionID, nil
}

// ContextWithProfile はコンテキストにプロフィールとセッションIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithProfile(ctx context.Context, profile *model.Profile, sessionID string) context.Context {
	ctx = context.WithValue(ctx, profileContextKey, profile)
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}
