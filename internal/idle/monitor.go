// Package idle は無操作セッションの検出と強制サインアウトを提供する。
//
// セッションごとに警告タイマーとログアウトタイマーの対を持ち、認証済み
// リクエストのたびにTouchで両方を張り直す。ログアウト発火時はliveドラフトを
// 退避したうえで、手動ログアウトと同一のSignOut経路でセッションを破棄する。
package idle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kondo/esgportal/internal/auth"
	"github.com/kondo/esgportal/internal/metrics"
	"github.com/kondo/esgportal/internal/repository"
)

// 強制サインアウト処理（ドラフト退避 + セッション削除）の上限時間。
const logoutGraceTimeout = 10 * time.Second

// 消費されなかった期限切れ通知の保持期間。
const expiryNoticeRetention = time.Hour

// Config は無操作モニターの設定。
type Config struct {
	Timeout     time.Duration // 無操作ログアウトまでの時間
	WarningTime time.Duration // ログアウト前の警告リードタイム
}

// SignOuter はモニターが駆動するサインアウト経路。
type SignOuter interface {
	SignOut(ctx context.Context, sessionID string) error
}

// sessionState は監視中セッションのタイマー対。
// genは張り直しのたびに進む世代番号で、停止済みタイマーの遅延発火を弾く。
type sessionState struct {
	userID      string
	gen         uint64
	warnTimer   *time.Timer
	logoutTimer *time.Timer
	warned      bool
}

// Monitor はセッションごとの無操作タイマーを管理する。
// auth.Listenerとしてサインイン/サインアウトイベントを購読し、
// 存在しないセッションに対しては完全に不活性。
type Monitor struct {
	signOuter SignOuter
	draftRepo repository.DraftRepository
	collector metrics.MetricsCollector
	config    Config

	mu       sync.Mutex
	sessions map[string]*sessionState
	expired  map[string]time.Time
	closed   bool
}

// NewMonitor はMonitorを生成する。
// WarningTimeがTimeout以上の場合は警告が一度も発火しないためエラーを返す。
func NewMonitor(
	signOuter SignOuter,
	draftRepo repository.DraftRepository,
	collector metrics.MetricsCollector,
	config Config,
) (*Monitor, error) {
	if config.Timeout <= 0 {
		return nil, fmt.Errorf("inactivity timeout must be positive, got %v", config.Timeout)
	}
	if config.WarningTime <= 0 || config.WarningTime >= config.Timeout {
		return nil, fmt.Errorf("warning time %v must be positive and shorter than timeout %v",
			config.WarningTime, config.Timeout)
	}
	return &Monitor{
		signOuter: signOuter,
		draftRepo: draftRepo,
		collector: collector,
		config:    config,
		sessions:  make(map[string]*sessionState),
		expired:   make(map[string]time.Time),
	}, nil
}

var _ auth.Listener = (*Monitor)(nil)

// OnSessionEvent はセッションライフサイクルイベントを受けてタイマーを着脱する。
func (m *Monitor) OnSessionEvent(e auth.Event) {
	switch e.Type {
	case auth.EventSignedIn:
		m.arm(e.SessionID, e.UserID)
	case auth.EventSignedOut:
		m.disarm(e.SessionID)
	}
}

// Touch は対象セッションの活動を記録し、警告・ログアウトの両期限を張り直す。
// 監視対象外のセッションIDに対しては何もしない。
func (m *Monitor) Touch(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	st, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	m.scheduleLocked(sessionID, st)
}

// Warning は対象セッションに未消化の無操作警告があるかを返す。
func (m *Monitor) Warning(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[sessionID]
	return ok && st.warned
}

// Expired は対象セッションが無操作で強制終了されたかを返し、通知を消費する。
func (m *Monitor) Expired(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.expired[sessionID]
	if ok {
		delete(m.expired, sessionID)
	}
	for id, at := range m.expired {
		if time.Since(at) > expiryNoticeRetention {
			delete(m.expired, id)
		}
	}
	return ok
}

// Close は全タイマーを停止し、以降のコールバック実行を禁止する。
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for id, st := range m.sessions {
		m.stopTimersLocked(st)
		delete(m.sessions, id)
	}
}

func (m *Monitor) arm(sessionID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	st, ok := m.sessions[sessionID]
	if !ok {
		st = &sessionState{userID: userID}
		m.sessions[sessionID] = st
	}
	m.scheduleLocked(sessionID, st)
}

func (m *Monitor) disarm(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	m.stopTimersLocked(st)
	delete(m.sessions, sessionID)
}

// scheduleLocked は既存タイマーを止めてから新しい対を張る。
// 停止が先であるため、連打されてもログアウトタイマーが複数同時に
// 生きることはない。
func (m *Monitor) scheduleLocked(sessionID string, st *sessionState) {
	m.stopTimersLocked(st)
	st.gen++
	st.warned = false
	gen := st.gen

	st.warnTimer = time.AfterFunc(m.config.Timeout-m.config.WarningTime, func() {
		m.fireWarning(sessionID, gen)
	})
	st.logoutTimer = time.AfterFunc(m.config.Timeout, func() {
		m.fireLogout(sessionID, gen)
	})
}

func (m *Monitor) stopTimersLocked(st *sessionState) {
	if st.warnTimer != nil {
		st.warnTimer.Stop()
	}
	if st.logoutTimer != nil {
		st.logoutTimer.Stop()
	}
}

// fireWarning は警告を記録するのみで、ログアウト期限には影響しない。
func (m *Monitor) fireWarning(sessionID string, gen uint64) {
	m.mu.Lock()
	st, ok := m.sessions[sessionID]
	if m.closed || !ok || st.gen != gen {
		m.mu.Unlock()
		return
	}
	st.warned = true
	m.mu.Unlock()

	if m.collector != nil {
		m.collector.RecordIdleWarning()
	}
	slog.Info("inactivity warning issued", slog.String("session_id", sessionID))
}

func (m *Monitor) fireLogout(sessionID string, gen uint64) {
	m.mu.Lock()
	st, ok := m.sessions[sessionID]
	if m.closed || !ok || st.gen != gen {
		m.mu.Unlock()
		return
	}
	m.stopTimersLocked(st)
	delete(m.sessions, sessionID)
	m.expired[sessionID] = time.Now()
	userID := st.userID
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), logoutGraceTimeout)
	defer cancel()

	// ログアウト前にliveドラフトを退避する。失敗してもログアウトは続行。
	if userID != "" {
		if err := m.draftRepo.Promote(ctx, userID); err != nil {
			slog.Warn("failed to preserve draft before idle logout",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := m.signOuter.SignOut(ctx, sessionID); err != nil {
		slog.Error("idle logout failed", slog.String("error", err.Error()))
		return
	}

	if m.collector != nil {
		m.collector.RecordIdleLogout()
	}
	slog.Info("session expired due to inactivity", slog.String("session_id", sessionID))
}
