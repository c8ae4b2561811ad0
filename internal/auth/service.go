// Package auth はパスワード認証、セッション管理、プロフィール解決を提供する。
//
// セッション・プロフィール状態の唯一の所有者であり、サインアウト経路は
// 手動・無操作・孤児セッション検出のいずれもSignOutの1本に集約される。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kondo/esgportal/internal/model"
	"github.com/kondo/esgportal/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge  int           // セッション有効期間（秒）
	ProfileTimeout time.Duration // プロフィール解決1回あたりのタイムアウト
	InitDeadline   time.Duration // セッション復元全体のフォールバック期限
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	draftRepo   repository.DraftRepository
	config      ServiceConfig

	mu        sync.Mutex
	listeners []Listener
	// profiles はセッションID単位の解決済みプロフィールキャッシュ。
	// セッションのメールアドレスが変わらない限り再取得をスキップする。
	profiles map[string]*model.Profile
}

// NewService はServiceを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	draftRepo repository.DraftRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		draftRepo:   draftRepo,
		config:      config,
		profiles:    make(map[string]*model.Profile),
	}
}

// Subscribe はセッションライフサイクルイベントの購読を登録する。
func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Unsubscribe は購読を解除する。未登録のListenerに対しては何もしない。
func (s *Service) Unsubscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, reg := range s.listeners {
		if reg == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Service) notify(e Event) {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.OnSessionEvent(e)
	}
}

// SignIn はメールアドレスとパスワードで認証し、セッションを発行する。
// 認証失敗時はAPIErrorを返し、セッション状態への副作用を一切持たない。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, *model.Profile, error) {
	profile, err := s.profileRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil || !VerifyPassword(profile.PasswordHash, password) {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.mu.Lock()
	s.profiles[session.ID] = profile
	s.mu.Unlock()

	slog.Info("user signed in",
		slog.String("user_id", profile.ID),
		slog.String("role", string(profile.Role)),
	)
	s.notify(Event{Type: EventSignedIn, SessionID: session.ID, UserID: profile.ID, Email: email})

	return session, profile, nil
}

// ResolveProfile はメールアドレスでプロフィールを解決する。
// ドライバ既定値とは独立した専用タイムアウト（ProfileTimeout）を持ち、
// DBが応答しなくても呼び出しは必ず期限内に返る。
//
// 戻り値の規約:
//   - (profile, nil): 解決成功
//   - (nil, nil):     行が確定的に存在しない（孤児セッションの根拠）
//   - (nil, err):     一時的な失敗またはタイムアウト（セッションを失効させる根拠にはならない）
func (s *Service) ResolveProfile(ctx context.Context, email string) (*model.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.ProfileTimeout)
	defer cancel()

	type result struct {
		profile *model.Profile
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := s.profileRepo.FindByEmail(ctx, email)
		ch <- result{profile: p, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("failed to resolve profile: %w", r.err)
		}
		return r.profile, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("profile resolution timed out: %w", ctx.Err())
	}
}

// CurrentProfile はセッションIDから現在のプロフィールを復元する。
// 全体がInitDeadlineで打ち切られ、期限超過時は未認証として返る。
//
// 有効なセッションに対応するプロフィール行が確定的に存在しない場合、
// そのセッションは孤児とみなし強制サインアウトする。一時的な失敗や
// タイムアウトではセッションを失効させず、未認証に退避するのみ。
// 戻り値 (nil, nil) は未認証を意味し、エラーは内部障害のみを表す。
func (s *Service) CurrentProfile(ctx context.Context, sessionID string) (*model.Profile, error) {
	if sessionID == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.InitDeadline)
	defer cancel()

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		slog.Warn("session lookup failed, treating as unauthenticated",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	if session == nil {
		return nil, nil
	}

	// メールアドレスが変わらない限りキャッシュを信頼する。並行する
	// サインアウトとの競合でキャッシュが一世代古い結果を返し得るが、
	// 次回呼び出しで収束する既知の挙動として許容する。
	s.mu.Lock()
	cached := s.profiles[sessionID]
	s.mu.Unlock()
	if cached != nil && cached.Email == session.Email {
		return cached, nil
	}

	profile, err := s.ResolveProfile(ctx, session.Email)
	if err != nil {
		slog.Warn("profile resolution degraded to unauthenticated",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	if profile == nil {
		// 有効なセッション + プロフィール行なし = 孤児セッション
		slog.Warn("orphaned session detected, forcing sign-out",
			slog.String("session_id", sessionID),
			slog.String("email", session.Email),
		)
		if err := s.SignOut(ctx, sessionID); err != nil {
			slog.Error("forced sign-out failed", slog.String("error", err.Error()))
		}
		return nil, nil
	}

	s.mu.Lock()
	s.profiles[sessionID] = profile
	s.mu.Unlock()

	return profile, nil
}

// SignOut はセッションを破棄する。冪等であり、存在しないセッションIDに
// 対してもエラーを返さない。削除前にユーザーのliveドラフト行を
// ベストエフォートで消去する（失敗はログのみ）。
// EventSignedOutは実在したセッションに対してのみ発火する。再送された
// サインアウト（失効Cookieの再POST、手動ログアウト直後の無操作ログアウト）で
// 二重に発火するとアクティブセッション数のゲージが狂うため。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		slog.Warn("session lookup failed during sign-out", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	profile, cached := s.profiles[sessionID]
	delete(s.profiles, sessionID)
	s.mu.Unlock()

	// セッション行かプロフィールキャッシュのどちらかが残っていれば実在とみなす。
	// 行の照会が一時障害で失敗してもキャッシュ側でイベント欠落を防ぐ。
	existed := session != nil || cached

	var email string
	if session != nil {
		email = session.Email
	}

	// サーバー側に残るセンシティブな一時データの消去
	if profile == nil && email != "" {
		if p, err := s.profileRepo.FindByEmail(ctx, email); err == nil {
			profile = p
		}
	}
	if profile != nil {
		if err := s.draftRepo.Delete(ctx, profile.ID, model.DraftLive); err != nil {
			slog.Warn("failed to clear live draft on sign-out",
				slog.String("user_id", profile.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if !existed {
		return nil
	}

	var userID string
	if profile != nil {
		userID = profile.ID
	}
	slog.Info("user signed out", slog.String("session_id", sessionID))
	s.notify(Event{Type: EventSignedOut, SessionID: sessionID, UserID: userID, Email: email})

	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, email string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		Email:     email,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
