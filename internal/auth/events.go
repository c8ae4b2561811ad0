package auth

// EventType はセッションライフサイクルイベントの種別。
type EventType string

const (
	// EventSignedIn はサインイン成功時に発火する。
	EventSignedIn EventType = "signed_in"
	// EventSignedOut はサインアウト時（手動・強制とも）に発火する。
	EventSignedOut EventType = "signed_out"
)

// Event はセッションライフサイクルイベント。
// 孤児セッションの強制サインアウトではUserIDが空になり得る。
type Event struct {
	Type      EventType
	SessionID string
	UserID    string
	Email     string
}

// Listener はセッションライフサイクルイベントの購読者。
// 通知はイベント発生スレッド上で同期的に行われるため、重い処理は
// Listener側で非同期化すること。
type Listener interface {
	OnSessionEvent(e Event)
}
