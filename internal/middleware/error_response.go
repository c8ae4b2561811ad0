package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kondo/esgportal/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// WriteServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIErrorの場合はエラーコードに応じたステータスコードで返し、
// それ以外は500として扱う。
func WriteServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteErrorResponse(w, statusForAPIError(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	WriteInternalServerError(w)
}

// statusForAPIError はAPIエラーコードをHTTPステータスコードにマッピングする。
func statusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidCredentials, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeNoCompanyAssignment:
		return http.StatusForbidden
	case model.ErrCodeProfileNotFound,
		model.ErrCodeQuestionNotFound,
		model.ErrCodeSubmissionNotFound,
		model.ErrCodeResponseNotFound,
		model.ErrCodeCompanyNotFound,
		model.ErrCodeUserNotFound,
		model.ErrCodeAttachmentNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateCompany, model.ErrCodeDuplicateUser:
		return http.StatusConflict
	case model.ErrCodeSubmissionLocked, model.ErrCodeNotReviewable:
		return http.StatusConflict
	case model.ErrCodeInvalidRole,
		model.ErrCodeInvalidSection,
		model.ErrCodeInvalidDeadline,
		model.ErrCodeInvalidReviewStatus:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
