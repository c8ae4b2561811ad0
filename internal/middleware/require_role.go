package middleware

import (
	"log/slog"
	"net/http"

	"github.com/kondo/esgportal/internal/model"
)

// RequireRole は認証済みプロフィールのロールを検査するミドルウェアを返す。
// 許可ロールのいずれにも該当しないリクエストには403 Forbiddenを返す。
// SessionMiddlewareの後に配置すること。
func RequireRole(roles ...model.Role) func(next http.Handler) http.Handler {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, err := ProfileFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if _, ok := allowed[profile.Role]; !ok {
				slog.Warn("role check failed",
					slog.String("user_id", profile.ID),
					slog.String("role", string(profile.Role)),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
