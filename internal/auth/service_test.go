package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kondo/esgportal/internal/model"
	"github.com/kondo/esgportal/internal/repository"
)

// --- モック定義 ---

type mockProfileRepo struct {
	findByEmailFn     func(ctx context.Context, email string) (*model.Profile, error)
	findByIDFn        func(ctx context.Context, id string) (*model.Profile, error)
	listByCompanyIDFn func(ctx context.Context, companyID string) ([]*model.Profile, error)
	listFn            func(ctx context.Context) ([]*model.Profile, error)
	createFn          func(ctx context.Context, profile *model.Profile) error
	updateFn          func(ctx context.Context, profile *model.Profile) error
	deleteByIDFn      func(ctx context.Context, id string) error
}

func (m *mockProfileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProfileRepo) ListByCompanyID(ctx context.Context, companyID string) ([]*model.Profile, error) {
	if m.listByCompanyIDFn != nil {
		return m.listByCompanyIDFn(ctx, companyID)
	}
	return nil, nil
}

func (m *mockProfileRepo) List(ctx context.Context) ([]*model.Profile, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	if m.createFn != nil {
		return m.createFn(ctx, profile)
	}
	return nil
}

func (m *mockProfileRepo) Update(ctx context.Context, profile *model.Profile) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, profile)
	}
	return nil
}

func (m *mockProfileRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, session *model.Session) error
	findByIDFn      func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn    func(ctx context.Context, id string) error
	deleteByEmailFn func(ctx context.Context, email string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByEmail(ctx context.Context, email string) error {
	if m.deleteByEmailFn != nil {
		return m.deleteByEmailFn(ctx, email)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

type mockDraftRepo struct {
	findFn    func(ctx context.Context, userID string, kind model.DraftKind) (*model.Draft, error)
	upsertFn  func(ctx context.Context, draft *model.Draft) error
	promoteFn func(ctx context.Context, userID string) error
	deleteFn  func(ctx context.Context, userID string, kind model.DraftKind) error
}

func (m *mockDraftRepo) Find(ctx context.Context, userID string, kind model.DraftKind) (*model.Draft, error) {
	if m.findFn != nil {
		return m.findFn(ctx, userID, kind)
	}
	return nil, nil
}

func (m *mockDraftRepo) Upsert(ctx context.Context, draft *model.Draft) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, draft)
	}
	return nil
}

func (m *mockDraftRepo) Promote(ctx context.Context, userID string) error {
	if m.promoteFn != nil {
		return m.promoteFn(ctx, userID)
	}
	return nil
}

func (m *mockDraftRepo) Delete(ctx context.Context, userID string, kind model.DraftKind) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, kind)
	}
	return nil
}

func (m *mockDraftRepo) DeleteStale(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

type recordingListener struct {
	events []Event
}

func (l *recordingListener) OnSessionEvent(e Event) {
	l.events = append(l.events, e)
}

// --- compile-time interface checks ---
var _ repository.ProfileRepository = (*mockProfileRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ repository.DraftRepository = (*mockDraftRepo)(nil)
var _ Listener = (*recordingListener)(nil)

func testConfig() ServiceConfig {
	return ServiceConfig{
		SessionMaxAge:  86400,
		ProfileTimeout: 200 * time.Millisecond,
		InitDeadline:   500 * time.Millisecond,
	}
}

func submitterProfile(email string) *model.Profile {
	hash, _ := HashPassword("correct-password")
	return &model.Profile{
		ID:           "user-id-123",
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleSubmitter,
		CompanyID:    "company-id-1",
	}
}

// --- テスト ---

func TestSignIn_ValidCredentials_CreatesSessionAndEmitsEvent(t *testing.T) {
	ctx := context.Background()

	var createdSession *model.Session

	profileRepo := &mockProfileRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Profile, error) {
			return submitterProfile(email), nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(profileRepo, sessionRepo, &mockDraftRepo{}, testConfig())
	listener := &recordingListener{}
	svc.Subscribe(listener)

	session, profile, err := svc.SignIn(ctx, "user@example.com", "correct-password")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if session == nil || session.ID == "" {
		t.Fatal("expected non-empty session")
	}
	if session.Email != "user@example.com" {
		t.Errorf("session email = %q, want %q", session.Email, "user@example.com")
	}
	if profile == nil || profile.Role != model.RoleSubmitter {
		t.Fatalf("expected submitter profile, got %+v", profile)
	}

	if createdSession == nil {
		t.Fatal("expected session to be persisted")
	}
	if createdSession.ExpiresAt.Before(time.Now()) {
		t.Error("session should not be expired")
	}

	if len(listener.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(listener.events))
	}
	e := listener.events[0]
	if e.Type != EventSignedIn {
		t.Errorf("event type = %q, want %q", e.Type, EventSignedIn)
	}
	if e.SessionID != session.ID || e.UserID != "user-id-123" {
		t.Errorf("unexpected event payload: %+v", e)
	}
}

func TestSignIn_WrongPassword_ReturnsAPIErrorWithoutSideEffects(t *testing.T) {
	ctx := context.Background()

	sessionCreated := false

	profileRepo := &mockProfileRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Profile, error) {
			return submitterProfile(email), nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			sessionCreated = true
			return nil
		},
	}

	svc := NewService(profileRepo, sessionRepo, &mockDraftRepo{}, testConfig())
	listener := &recordingListener{}
	svc.Subscribe(listener)

	_, _, err := svc.SignIn(ctx, "user@example.com", "wrong-password")
	if err == nil {
		t.Fatal("expected error for wrong password")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}

	if sessionCreated {
		t.Error("session must not be created on failed sign-in")
	}
	if len(listener.events) != 0 {
		t.Errorf("expected no events, got %d", len(listener.events))
	}
}

func TestSignIn_UnknownEmail_ReturnsSameErrorAsWrongPassword(t *testing.T) {
	ctx := context.Background()

	svc := NewService(&mockProfileRepo{}, &mockSessionRepo{}, &mockDraftRepo{}, testConfig())

	_, _, err := svc.SignIn(ctx, "nobody@example.com", "any-password")
	if err == nil {
		t.Fatal("expected error for unknown email")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	wantErr := model.NewInvalidCredentialsError()
	if apiErr.Code != wantErr.Code {
		t.Errorf("error code = %q, want %q", apiErr.Code, wantErr.Code)
	}
}

func TestResolveProfile_Found_ReturnsProfile(t *testing.T) {
	ctx := context.Background()

	profileRepo := &mockProfileRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Profile, error) {
			return submitterProfile(email), nil
		},
	}

	svc := NewService(profileRepo, &mockSessionRepo{}, &mockDraftRepo{}, testConfig())

	profile, err := svc.ResolveProfile(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("ResolveProfile() error = %v", err)
	}
	if profile == nil {
		t.Fatal("expected non-nil profile")
	}
}

func TestResolveProfile_NotFound_ReturnsNilNil(t *testing.T) {
	ctx := context.Background()

	svc := NewService(&mockProfileRepo{}, &mockSessionRepo{}, &mockDraftRepo{}, testConfig())

	profile, err := svc.ResolveProfile(ctx, "gone@example.com")
	if err != nil {
		t.Fatalf("ResolveProfile() error = %v", err)
	}
	if profile != nil {
		t.Errorf("expected nil profile for missing row, got %+v", profile)
	}
}

func TestResolveProfile_RepoError_ReturnsError(t *testing.T) {
	ctx := context.Background()

	profileRepo := &mockProfileRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Profile, error) {
			return nil, errors.New("connection refused")
		},
	}

	svc := NewService(profileRepo, &mockSessionRepo{}, &mockDraftRepo{}, testConfig())

	_, err := svc.ResolveProfile(ctx, "user@example.com")
	if err == nil {
		t.Fatal("expected error for repo failure")
	}
}

func TestResolveProfile_HangingLookup_ReturnsWithinTimeout(t *testing.T) {
	ctx := context.Background()

	profileRepo := &mockProfileRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Profile, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	svc := NewService(profileRepo, &mockSessionRepo{}, &mockDraftRepo{}, ServiceConfig{
		SessionMaxAge:  86400,
		ProfileTimeout: 50 * time.Millisecond,
		InitDeadline:   time.Second,
	})

	start := time.Now()
	profile, err := svc.ResolveProfile(ctx, "user@example.com")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error")
	}
	if profile != nil {
		t.Errorf("expected nil profile on timeout, got %+v", profile)
	}
	if elapsed > time.Second {
		t.Errorf("ResolveProfile took %v, want bounded by timeout", elapsed)
	}
}

func TestCurrentProfile_ValidSession_ReturnsAndCachesProfile(t *testing.T) {
	ctx := context.Background()

	lookupCount := 0

	profileRepo := &mockProfileRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Profile, error) {
			lookupCount++
			return submitterProfile(email), nil
		},
	}
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        id,
				Email:     "user@example.com",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}

	svc := NewService(profileRepo, sessionRepo, &mockDraftRepo{}, testConfig())

	profile, err := svc.CurrentProfile(ctx, "session-1")
	if err != nil {
		t.Fatalf("CurrentProfile() error = %v", err)
	}
	if profile == nil {
		t.Fatal("expected non-nil profile")
	}
	if lookupCount != 1 {
		t.Fatalf("expected 1 profile lookup, got %d", lookupCount)
	}

	// 同一セッションの2回目はキャッシュから返り、再取得しない
	if _, err := svc.CurrentProfile(ctx, "session-1"); err != nil {
		t.Fatalf("CurrentProfile() second call error = %v", err)
	}
	if lookupCount != 1 {
		t.Errorf("expected cached profile on second call, lookups = %d", lookupCount)
	}
}

func TestCurrentProfile_UnknownSession_ReturnsUnauthenticated(t *testing.T) {
	ctx := context.Background()

	svc := NewService(&mockProfileRepo{}, &mockSessionRepo{}, &mockDraftRepo{}, testConfig())

	profile, err := svc.CurrentProfile(ctx, "no-such-session")
	if err != nil {
		t.Fatalf("CurrentProfile() error = %v", err)
	}
	if profile != nil {
		t.Errorf("expected nil profile, got %+v", profile)
	}
}

func TestCurrentProfile_OrphanedSession_ForcesSignOut(t *testing.T) {
	ctx := context.Background()

	deleted := false

	// セッションは有効だがプロフィール行が存在しない
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if deleted {
				return nil, nil
			}
			return &model.Session{
				ID:        id,
				Email:     "orphan@example.com",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}

	svc := NewService(&mockProfileRepo{}, sessionRepo, &mockDraftRepo{}, testConfig())
	listener := &recordingListener{}
	svc.Subscribe(listener)

	profile, err := svc.CurrentProfile(ctx, "orphan-session")
	if err != nil {
		t.Fatalf("CurrentProfile() error = %v", err)
	}
	if profile != nil {
		t.Errorf("expected unauthenticated result, got %+v", profile)
	}

	if !deleted {
		t.Error("orphaned session must be revoked")
	}
	if len(listener.events) != 1 || listener.events[0].Type != EventSignedOut {
		t.Errorf("expected single EventSignedOut, got %+v", listener.events)
	}
}

func TestCurrentProfile_TransientError_DegradesWithoutRevoking(t *testing.T) {
	ctx := context.Background()

	deleteCalled := false

	profileRepo := &mockProfileRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Profile, error) {
			return nil, errors.New("connection reset")
		},
	}
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        id,
				Email:     "user@example.com",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleteCalled = true
			return nil
		},
	}

	svc := NewService(profileRepo, sessionRepo, &mockDraftRepo{}, testConfig())

	profile, err := svc.CurrentProfile(ctx, "session-1")
	if err != nil {
		t.Fatalf("CurrentProfile() error = %v", err)
	}
	if profile != nil {
		t.Errorf("expected unauthenticated result, got %+v", profile)
	}
	if deleteCalled {
		t.Error("transient failure must not revoke the session")
	}
}

func TestSignOut_DeletesSessionClearsDraftAndEmitsEvent(t *testing.T) {
	ctx := context.Background()

	var deletedSessionID string
	var clearedUserID string
	var clearedKind model.DraftKind

	profileRepo := &mockProfileRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Profile, error) {
			return submitterProfile(email), nil
		},
	}
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        id,
				Email:     "user@example.com",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedSessionID = id
			return nil
		},
	}
	draftRepo := &mockDraftRepo{
		deleteFn: func(ctx context.Context, userID string, kind model.DraftKind) error {
			clearedUserID = userID
			clearedKind = kind
			return nil
		},
	}

	svc := NewService(profileRepo, sessionRepo, draftRepo, testConfig())
	listener := &recordingListener{}
	svc.Subscribe(listener)

	if err := svc.SignOut(ctx, "session-out"); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	if deletedSessionID != "session-out" {
		t.Errorf("deleted session ID = %q, want %q", deletedSessionID, "session-out")
	}
	if clearedUserID != "user-id-123" || clearedKind != model.DraftLive {
		t.Errorf("live draft not cleared: userID=%q kind=%q", clearedUserID, clearedKind)
	}
	if len(listener.events) != 1 || listener.events[0].Type != EventSignedOut {
		t.Errorf("expected single EventSignedOut, got %+v", listener.events)
	}
}

func TestSignOut_DraftClearFailure_IsSwallowed(t *testing.T) {
	ctx := context.Background()

	deleted := false

	profileRepo := &mockProfileRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Profile, error) {
			return submitterProfile(email), nil
		},
	}
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, Email: "user@example.com", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}
	draftRepo := &mockDraftRepo{
		deleteFn: func(ctx context.Context, userID string, kind model.DraftKind) error {
			return errors.New("draft table unavailable")
		},
	}

	svc := NewService(profileRepo, sessionRepo, draftRepo, testConfig())

	if err := svc.SignOut(ctx, "session-out"); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if !deleted {
		t.Error("session must still be deleted when the draft clear fails")
	}
}

func TestSignOut_UnknownSession_IsIdempotentNoOp(t *testing.T) {
	ctx := context.Background()

	svc := NewService(&mockProfileRepo{}, &mockSessionRepo{}, &mockDraftRepo{}, testConfig())
	listener := &recordingListener{}
	svc.Subscribe(listener)

	if err := svc.SignOut(ctx, "never-existed"); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	// 空のセッションIDも何もしない
	if err := svc.SignOut(ctx, ""); err != nil {
		t.Fatalf("SignOut(\"\") error = %v", err)
	}

	// 実在しなかったセッションに対してイベントを発火してはならない
	if len(listener.events) != 0 {
		t.Errorf("expected no events for unknown session, got %+v", listener.events)
	}
}

// 手動ログアウト直後に無操作ログアウトが重なるなど、同一セッションへの
// サインアウトが再送されてもEventSignedOutは1回しか発火しないことを検証する。
func TestSignOut_Repeated_EmitsSingleEvent(t *testing.T) {
	ctx := context.Background()

	row := &model.Session{
		ID:        "session-out",
		Email:     "user@example.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return row, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			row = nil
			return nil
		},
	}
	profileRepo := &mockProfileRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Profile, error) {
			return submitterProfile(email), nil
		},
	}

	svc := NewService(profileRepo, sessionRepo, &mockDraftRepo{}, testConfig())
	listener := &recordingListener{}
	svc.Subscribe(listener)

	if err := svc.SignOut(ctx, "session-out"); err != nil {
		t.Fatalf("first SignOut() error = %v", err)
	}
	if err := svc.SignOut(ctx, "session-out"); err != nil {
		t.Fatalf("second SignOut() error = %v", err)
	}

	if len(listener.events) != 1 || listener.events[0].Type != EventSignedOut {
		t.Fatalf("expected exactly one EventSignedOut, got %+v", listener.events)
	}
}

func TestUnsubscribe_StopsEventDelivery(t *testing.T) {
	ctx := context.Background()

	profileRepo := &mockProfileRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Profile, error) {
			return submitterProfile(email), nil
		},
	}

	svc := NewService(profileRepo, &mockSessionRepo{}, &mockDraftRepo{}, testConfig())
	listener := &recordingListener{}
	svc.Subscribe(listener)
	svc.Unsubscribe(listener)

	if _, _, err := svc.SignIn(ctx, "user@example.com", "correct-password"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if len(listener.events) != 0 {
		t.Errorf("expected no events after unsubscribe, got %d", len(listener.events))
	}
}
