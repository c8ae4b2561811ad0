package model

import "time"

// Section は質問票のセクションを表す。
type Section string

const (
	SectionEnvironmental Section = "environmental"
	SectionSocial        Section = "social"
	SectionGovernance    Section = "governance"
)

// Valid はSectionが定義済みの値かどうかを返す。
func (s Section) Valid() bool {
	switch s {
	case SectionEnvironmental, SectionSocial, SectionGovernance:
		return true
	}
	return false
}

// Question はESG質問票の設問を表す。
type Question struct {
	ID           string
	Code         string
	Section      Section
	QuestionText string
	InputType    string // "number", "percentage", "text"
}

// SubmissionStatus は提出物のライフサイクル状態を表す。
type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "draft"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionApproved  SubmissionStatus = "approved"
	SubmissionRejected  SubmissionStatus = "rejected"
)

// Submission は企業の年次ESG自己評価の提出物を表す。
// 企業と報告年度の組み合わせごとに1件。
type Submission struct {
	ID            string
	CompanyID     string
	ReportingYear int
	Status        SubmissionStatus
	Deadline      *time.Time
	SubmittedAt   *time.Time
	ApprovedAt    *time.Time
	CreatedAt     time.Time
}

// ReviewStatus は回答ごとのレビュー状態を表す。
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Response は設問1件に対する回答を表す。提出物と設問の組み合わせごとに1件。
type Response struct {
	ID            string
	SubmissionID  string
	QuestionID    string
	ValueText     string
	LastYearValue string
	Comments      string
	ReviewStatus  ReviewStatus
	ReviewedBy    string // レビューしたユーザーID。未レビューの場合は空
	ReviewedAt    *time.Time
	UpdatedAt     time.Time
}

// ResponseWithQuestion は回答と設問情報をJOINした読み取り用の構造体。
// レビュー画面と質問票画面のどちらもこの形で回答を受け取る。
type ResponseWithQuestion struct {
	Response
	QuestionCode string
	QuestionText string
	Section      Section
	InputType    string
}

// Attachment は回答に添付された証憑ファイルのメタデータを表す。
// ファイル本体はS3互換オブジェクトストレージに保存される。
type Attachment struct {
	ID          string
	ResponseID  string
	FileName    string
	FilePath    string
	FileSize    int64
	ContentType string
	CreatedAt   time.Time
}

// DraftKind は下書きの種別を表す。
type DraftKind string

const (
	// DraftLive は編集中のフォーム状態。サインアウト時に消去される。
	DraftLive DraftKind = "live"
	// DraftSaved は無操作ログアウト時に退避された復元用の下書き。
	// liveキーとは明確に区別され、再ログイン後に復元できる。
	DraftSaved DraftKind = "draft"
)

// Draft はユーザーごとのフォーム下書き状態を表す。
type Draft struct {
	UserID    string
	Kind      DraftKind
	Page      string
	Payload   []byte // JSON
	UpdatedAt time.Time
}
