package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, assessment, review, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeProfileNotFound     = "PROFILE_NOT_FOUND"
	ErrCodeInvalidRole         = "INVALID_ROLE"
	ErrCodeInvalidSection      = "INVALID_SECTION"
	ErrCodeQuestionNotFound    = "QUESTION_NOT_FOUND"
	ErrCodeSubmissionNotFound  = "SUBMISSION_NOT_FOUND"
	ErrCodeSubmissionLocked    = "SUBMISSION_LOCKED"
	ErrCodeResponseNotFound    = "RESPONSE_NOT_FOUND"
	ErrCodeCompanyNotFound     = "COMPANY_NOT_FOUND"
	ErrCodeDuplicateCompany    = "DUPLICATE_COMPANY"
	ErrCodeDuplicateUser       = "DUPLICATE_USER"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeAttachmentNotFound  = "ATTACHMENT_NOT_FOUND"
	ErrCodeInvalidDeadline     = "INVALID_DEADLINE"
	ErrCodeNoCompanyAssignment = "NO_COMPANY_ASSIGNMENT"
	ErrCodeInvalidReviewStatus = "INVALID_REVIEW_STATUS"
	ErrCodeNotReviewable       = "NOT_REVIEWABLE"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
)

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// 既存セッションには影響しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewProfileNotFoundError はプロフィール未解決エラーを生成する。
// 有効な認証セッションに対応するプロフィール行が存在しない（孤児セッション）
// 場合に使用し、該当セッションは強制サインアウトされる。
func NewProfileNotFoundError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  fmt.Sprintf("ユーザープロフィールが見つかりません: %s", email),
		Category: "auth",
		Action:   "管理者にアカウントの登録状況を確認してください。",
	}
}

// NewInvalidRoleError は無効なロールエラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効なロールです: %s", role),
		Category: "validation",
		Action:   "ロールには Submitter、Reviewer、Admin のいずれかを指定してください。",
	}
}

// NewInvalidSectionError は無効なセクションエラーを生成する。
func NewInvalidSectionError(section string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSection,
		Message:  fmt.Sprintf("無効なセクションです: %s", section),
		Category: "validation",
		Action:   "セクションには environmental、social、governance のいずれかを指定してください。",
	}
}

// NewSubmissionNotFoundError は提出物未検出エラーを生成する。
func NewSubmissionNotFoundError(submissionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSubmissionNotFound,
		Message:  fmt.Sprintf("指定された提出物が見つかりません: %s", submissionID),
		Category: "assessment",
		Action:   "提出物IDを確認してください。",
	}
}

// NewSubmissionLockedError は編集不可状態の提出物への書き込みエラーを生成する。
func NewSubmissionLockedError(status SubmissionStatus) *APIError {
	return &APIError{
		Code:     ErrCodeSubmissionLocked,
		Message:  fmt.Sprintf("この提出物は編集できません（状態: %s）。", status),
		Category: "assessment",
		Action:   "レビュー結果が差戻しになった場合のみ再編集できます。",
	}
}

// NewQuestionNotFoundError は設問未検出エラーを生成する。
func NewQuestionNotFoundError(questionID string) *APIError {
	return &APIError{
		Code:     ErrCodeQuestionNotFound,
		Message:  fmt.Sprintf("指定された設問が見つかりません: %s", questionID),
		Category: "assessment",
		Action:   "設問IDを確認してください。",
	}
}

// NewResponseNotFoundError は回答未検出エラーを生成する。
func NewResponseNotFoundError(responseID string) *APIError {
	return &APIError{
		Code:     ErrCodeResponseNotFound,
		Message:  fmt.Sprintf("指定された回答が見つかりません: %s", responseID),
		Category: "review",
		Action:   "回答IDを確認してください。",
	}
}

// NewCompanyNotFoundError は企業未検出エラーを生成する。
func NewCompanyNotFoundError(companyID string) *APIError {
	return &APIError{
		Code:     ErrCodeCompanyNotFound,
		Message:  fmt.Sprintf("指定された企業が見つかりません: %s", companyID),
		Category: "validation",
		Action:   "企業IDを確認してください。",
	}
}

// NewDuplicateCompanyError は企業コード重複エラーを生成する。
func NewDuplicateCompanyError(code string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateCompany,
		Message:  fmt.Sprintf("企業コードが既に使用されています: %s", code),
		Category: "validation",
		Action:   "別の企業コードを指定してください。",
	}
}

// NewDuplicateUserError はメールアドレス重複エラーを生成する。
func NewDuplicateUserError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  fmt.Sprintf("メールアドレスが既に登録されています: %s", email),
		Category: "validation",
		Action:   "別のメールアドレスを指定してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewAttachmentNotFoundError は添付ファイル未検出エラーを生成する。
func NewAttachmentNotFoundError(attachmentID string) *APIError {
	return &APIError{
		Code:     ErrCodeAttachmentNotFound,
		Message:  fmt.Sprintf("指定された添付ファイルが見つかりません: %s", attachmentID),
		Category: "assessment",
		Action:   "添付ファイルIDを確認してください。",
	}
}

// NewInvalidDeadlineError は無効な提出期限エラーを生成する。
func NewInvalidDeadlineError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDeadline,
		Message:  fmt.Sprintf("無効な提出期限です: %s", reason),
		Category: "validation",
		Action:   "YYYY-MM-DD形式の未来日付を指定してください。",
	}
}

// NewInvalidReviewStatusError は無効なレビュー判定エラーを生成する。
func NewInvalidReviewStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidReviewStatus,
		Message:  fmt.Sprintf("無効なレビュー判定です: %s", status),
		Category: "review",
		Action:   "判定には approved または rejected を指定してください。",
	}
}

// NewNotReviewableError はレビュー不可状態の提出物への判定エラーを生成する。
func NewNotReviewableError(status SubmissionStatus) *APIError {
	return &APIError{
		Code:     ErrCodeNotReviewable,
		Message:  fmt.Sprintf("この提出物はレビューできません（状態: %s）。", status),
		Category: "review",
		Action:   "提出済み（submitted）の提出物のみレビューできます。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
// セッションが存在しない、期限切れ、または復元に失敗した場合に使用する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証されていません。",
		Category: "auth",
		Action:   "再度サインインしてください。",
	}
}

// NewForbiddenError はロール不足による権限エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "必要なロールを持つアカウントでサインインしてください。",
	}
}

// NewNoCompanyAssignmentError は企業未所属エラーを生成する。
// Submitterロールのユーザーが企業に紐づいていない場合に使用する。
func NewNoCompanyAssignmentError() *APIError {
	return &APIError{
		Code:     ErrCodeNoCompanyAssignment,
		Message:  "所属企業が設定されていません。",
		Category: "auth",
		Action:   "管理者に所属企業の設定を依頼してください。",
	}
}
