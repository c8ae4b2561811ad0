// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/kondo/esgportal/internal/model"
)

// ProfileRepository はユーザープロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByEmail は指定メールアドレスのプロフィールを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)

	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// ListByCompanyID は指定企業に所属するプロフィール一覧を返す。
	ListByCompanyID(ctx context.Context, companyID string) ([]*model.Profile, error)

	// List は全プロフィールをメールアドレス昇順で返す。
	List(ctx context.Context) ([]*model.Profile, error)

	// Create はプロフィールを作成する。
	Create(ctx context.Context, profile *model.Profile) error

	// Update はロール・所属企業・パスワードハッシュを更新する。
	Update(ctx context.Context, profile *model.Profile) error

	// DeleteByID は指定IDのプロフィールを削除する。
	// 関連するdraftsはCASCADE削除される。sessionsは外部キーを持たないため残存する。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByEmail は指定メールアドレスの全セッションを削除する。
	DeleteByEmail(ctx context.Context, email string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// CompanyRepository は企業データの永続化インターフェース。
type CompanyRepository interface {
	// FindByID は指定IDの企業を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Company, error)

	// FindByCode は企業コードで企業を検索する。見つからない場合はnilを返す。
	FindByCode(ctx context.Context, code string) (*model.Company, error)

	// List は全企業を企業名昇順で返す。
	List(ctx context.Context) ([]*model.Company, error)

	// Create は企業を作成する。
	Create(ctx context.Context, company *model.Company) error

	// Update は企業情報を更新する。
	Update(ctx context.Context, company *model.Company) error

	// DeleteByID は指定IDの企業を削除する。関連submissionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// QuestionRepository は設問データの永続化インターフェース。
type QuestionRepository interface {
	// FindByID は指定IDの設問を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Question, error)

	// ListBySection は指定セクションの設問をコード昇順で返す。
	ListBySection(ctx context.Context, section model.Section) ([]*model.Question, error)

	// CountBySection はセクションごとの設問数を返す。
	CountBySection(ctx context.Context) (map[model.Section]int, error)
}

// SubmissionRepository は提出物データの永続化インターフェース。
type SubmissionRepository interface {
	// FindByID は指定IDの提出物を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Submission, error)

	// FindByCompanyAndYear は企業IDと報告年度で提出物を検索する。見つからない場合はnilを返す。
	FindByCompanyAndYear(ctx context.Context, companyID string, year int) (*model.Submission, error)

	// ListByCompanyID は企業の提出物一覧を報告年度降順で返す。
	// statusesが空でない場合は指定状態のみに絞り込む。
	ListByCompanyID(ctx context.Context, companyID string, statuses []model.SubmissionStatus) ([]*model.Submission, error)

	// List は全提出物を報告年度降順で返す。
	List(ctx context.Context) ([]*model.Submission, error)

	// ListDeadlineWithin は期限が現在からwithin以内で未提出の提出物を返す。
	ListDeadlineWithin(ctx context.Context, within time.Duration) ([]*model.Submission, error)

	// Create は提出物を作成する。
	Create(ctx context.Context, submission *model.Submission) error

	// UpdateStatus は提出物の状態と時刻を更新する。
	UpdateStatus(ctx context.Context, submission *model.Submission) error

	// UpdateDeadline は提出期限を更新する。
	UpdateDeadline(ctx context.Context, id string, deadline time.Time) error
}

// ResponseRepository は回答データの永続化インターフェース。
type ResponseRepository interface {
	// FindByID は指定IDの回答を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Response, error)

	// Upsert は提出物と設問の組み合わせで回答を冪等にUPSERTする。
	Upsert(ctx context.Context, response *model.Response) (*model.Response, error)

	// ListBySubmission は提出物の回答一覧を設問情報とJOINしてセクション・コード順に返す。
	ListBySubmission(ctx context.Context, submissionID string) ([]*model.ResponseWithQuestion, error)

	// UpdateReviewStatus は回答のレビュー状態を更新する。
	UpdateReviewStatus(ctx context.Context, responseID string, status model.ReviewStatus, reviewerID string, reviewedAt time.Time) error

	// CountBySubmission は提出物の回答数とレビュー済み件数を返す。
	CountBySubmission(ctx context.Context, submissionID string) (total int, reviewed int, err error)
}

// AttachmentRepository は添付ファイルメタデータの永続化インターフェース。
type AttachmentRepository interface {
	// FindByID は指定IDの添付ファイルを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Attachment, error)

	// ListByResponseID は回答の添付ファイル一覧を作成日時降順で返す。
	ListByResponseID(ctx context.Context, responseID string) ([]*model.Attachment, error)

	// Create は添付ファイルメタデータを作成する。
	Create(ctx context.Context, attachment *model.Attachment) error

	// DeleteByID は指定IDの添付ファイルメタデータを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// DraftRepository はフォーム下書きの永続化インターフェース。
type DraftRepository interface {
	// Find はユーザーIDと種別で下書きを取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, userID string, kind model.DraftKind) (*model.Draft, error)

	// Upsert は下書きを冪等にUPSERTする。
	Upsert(ctx context.Context, draft *model.Draft) error

	// Promote はliveの下書きをdraftキーに退避する。liveが存在しない場合は何もしない。
	Promote(ctx context.Context, userID string) error

	// Delete はユーザーIDと種別で下書きを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, userID string, kind model.DraftKind) error

	// DeleteStale は更新からretentionを超過したdraft種別の下書きを削除し、削除件数を返す。
	DeleteStale(ctx context.Context, retention time.Duration) (int64, error)
}
