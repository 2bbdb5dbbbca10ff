package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/contactman/internal/model"
	"github.com/hitoshi/contactman/internal/security"
)

// --- インメモリ実装 ---

type memAccountRepo struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*model.Account

	findErr   error
	createErr error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[int64]*model.Account)}
}

func (r *memAccountRepo) FindByID(_ context.Context, id int64) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if a, ok := r.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *memAccountRepo) FindByHandle(_ context.Context, handle string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.Handle == handle })
}

func (r *memAccountRepo) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.Email == email })
}

func (r *memAccountRepo) find(match func(*model.Account) bool) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, a := range r.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memAccountRepo) Create(_ context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	account.ID = r.nextID
	account.CreatedAt = time.Now()
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session

	createErr error
	deleteErr error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*model.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *memSessionRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteByAccountID(_ context.Context, accountID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.AccountID == accountID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.Expired(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type recordedCall struct {
	kind   string
	result string
}

type spyRecorder struct {
	calls []recordedCall
}

func (r *spyRecorder) RecordAuthAttempt(result string) {
	r.calls = append(r.calls, recordedCall{"auth", result})
}
func (r *spyRecorder) RecordRegistration(result string) {
	r.calls = append(r.calls, recordedCall{"register", result})
}
func (r *spyRecorder) RecordContactOperation(string, string) {}
func (r *spyRecorder) RecordHTTPStatus(int)                  {}
func (r *spyRecorder) RecordRequestDuration(time.Duration)   {}
func (r *spyRecorder) RecordSessionsCleaned(int64)           {}

// --- ヘルパー ---

type fixture struct {
	svc      *Service
	accounts *memAccountRepo
	sessions *memSessionRepo
	recorder *spyRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts: newMemAccountRepo(),
		sessions: newMemSessionRepo(),
		recorder: &spyRecorder{},
	}
	f.svc = NewService(
		f.accounts,
		f.sessions,
		security.NewPasswordHasher(bcrypt.MinCost),
		ServiceConfig{SessionMaxAge: 3600},
		f.recorder,
	)
	return f
}

func aliceInput() RegisterInput {
	return RegisterInput{
		Handle:          "alice",
		Password:        "pw1",
		ConfirmPassword: "pw1",
		Email:           "a@x.io",
	}
}

func mustRegister(t *testing.T, f *fixture, in RegisterInput) *model.Account {
	t.Helper()
	account, _, err := f.svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register(%s) error = %v", in.Handle, err)
	}
	return account
}

func assertCode(t *testing.T, err error, want string) {
	t.Helper()
	if got := model.ErrorCode(err); got != want {
		t.Fatalf("error code = %q (err = %v), want %q", got, err, want)
	}
}

// --- Register ---

func TestRegister_Success_PersistsAccountAndStartsSession(t *testing.T) {
	f := newFixture(t)

	account, session, err := f.svc.Register(context.Background(), aliceInput())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if account.ID == 0 {
		t.Error("account ID should be assigned")
	}
	if account.PasswordHash == "" || account.PasswordHash == "pw1" {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", account.PasswordHash)
	}
	if session == nil || session.AccountID != account.ID {
		t.Fatalf("session = %+v, want bound to account %d", session, account.ID)
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}
	if d := session.ExpiresAt.Sub(session.CreatedAt); d != time.Hour {
		t.Errorf("session lifetime = %v, want 1h", d)
	}
	if f.sessions.count() != 1 {
		t.Errorf("session count = %d, want 1", f.sessions.count())
	}
}

func TestRegister_ThenAuthenticate_Succeeds(t *testing.T) {
	f := newFixture(t)
	registered := mustRegister(t, f, aliceInput())

	account, session, err := f.svc.Authenticate(context.Background(), "alice", "pw1", "a@x.io")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if account.ID != registered.ID {
		t.Errorf("account ID = %d, want %d", account.ID, registered.ID)
	}
	if session.AccountID != registered.ID {
		t.Errorf("session account ID = %d, want %d", session.AccountID, registered.ID)
	}
}

func TestRegister_HandleTaken_RegardlessOfEmailAndPassword(t *testing.T) {
	f := newFixture(t)
	mustRegister(t, f, aliceInput())

	_, _, err := f.svc.Register(context.Background(), RegisterInput{
		Handle:          "alice",
		Password:        "other",
		ConfirmPassword: "different",
		Email:           "a@x.io",
	})
	assertCode(t, err, model.ErrCodeHandleTaken)
}

func TestRegister_EmailTaken_WinsOverPasswordMismatch(t *testing.T) {
	f := newFixture(t)
	mustRegister(t, f, aliceInput())

	_, _, err := f.svc.Register(context.Background(), RegisterInput{
		Handle:          "bob",
		Password:        "pw",
		ConfirmPassword: "nope",
		Email:           "a@x.io",
	})
	assertCode(t, err, model.ErrCodeEmailTaken)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.Register(context.Background(), RegisterInput{
		Handle:          "bob",
		Password:        "pw",
		ConfirmPassword: "pw2",
		Email:           "b@x.io",
	})
	assertCode(t, err, model.ErrCodePasswordMismatch)
	if f.sessions.count() != 0 {
		t.Error("no session should be created on failure")
	}
}

func TestRegister_TooLongInput_ReturnsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{
			name:  "handle",
			input: RegisterInput{Handle: strings.Repeat("h", 51), Email: "h@x.io"},
			field: "username",
		},
		{
			name:  "email",
			input: RegisterInput{Handle: "h", Email: strings.Repeat("e", 101)},
			field: "email",
		},
		{
			name: "password bytes",
			input: RegisterInput{
				Handle:          "h",
				Email:           "h@x.io",
				Password:        strings.Repeat("あ", 25),
				ConfirmPassword: strings.Repeat("あ", 25),
			},
			field: "password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, _, err := f.svc.Register(context.Background(), tt.input)
			assertCode(t, err, model.ErrCodeInvalidInput)
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should mention %s", err.Error(), tt.field)
			}
		})
	}
}

func TestRegister_RepositoryError_IsNotAppError(t *testing.T) {
	f := newFixture(t)
	f.accounts.findErr = errors.New("connection refused")

	_, _, err := f.svc.Register(context.Background(), aliceInput())
	if err == nil {
		t.Fatal("expected error")
	}
	if model.ErrorCode(err) != "" {
		t.Errorf("error code = %q, want none", model.ErrorCode(err))
	}
}

func TestRegister_ConcurrentInsertConflict_KeepsAppError(t *testing.T) {
	f := newFixture(t)
	f.accounts.createErr = model.NewEmailTakenError()

	_, _, err := f.svc.Register(context.Background(), aliceInput())
	assertCode(t, err, model.ErrCodeEmailTaken)
}

func TestRegister_SessionCreateError(t *testing.T) {
	f := newFixture(t)
	f.sessions.createErr = errors.New("db down")

	_, _, err := f.svc.Register(context.Background(), aliceInput())
	if err == nil || !strings.Contains(err.Error(), "failed to create session") {
		t.Errorf("err = %v, want session creation error", err)
	}
}

func TestRegister_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	mustRegister(t, f, aliceInput())
	_, _, _ = f.svc.Register(context.Background(), aliceInput())

	want := []recordedCall{{"register", "success"}, {"register", "handle_taken"}}
	if len(f.recorder.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", f.recorder.calls, want)
	}
	for i := range want {
		if f.recorder.calls[i] != want[i] {
			t.Errorf("calls[%d] = %v, want %v", i, f.recorder.calls[i], want[i])
		}
	}
}

// --- Authenticate ---

func TestAuthenticate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		handle   string
		password string
		email    string
		want     string
	}{
		{"unknown handle", "carol", "pw1", "a@x.io", model.ErrCodeUnknownHandle},
		{"unknown handle wins over bad password", "carol", "bad", "bad@x.io", model.ErrCodeUnknownHandle},
		{"bad password with correct email", "alice", "bad", "a@x.io", model.ErrCodeBadPassword},
		{"bad password wins over bad email", "alice", "bad", "bad@x.io", model.ErrCodeBadPassword},
		{"bad email", "alice", "pw1", "other@x.io", model.ErrCodeBadEmail},
		{"email compared exactly", "alice", "pw1", "A@x.io", model.ErrCodeBadEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			mustRegister(t, f, aliceInput())
			before := f.sessions.count()

			_, _, err := f.svc.Authenticate(context.Background(), tt.handle, tt.password, tt.email)
			assertCode(t, err, tt.want)
			if f.sessions.count() != before {
				t.Error("failed authentication must not create a session")
			}
		})
	}
}

func TestAuthenticate_RecordsResult(t *testing.T) {
	f := newFixture(t)
	mustRegister(t, f, aliceInput())
	f.recorder.calls = nil

	_, _, _ = f.svc.Authenticate(context.Background(), "alice", "bad", "a@x.io")

	if len(f.recorder.calls) != 1 || f.recorder.calls[0] != (recordedCall{"auth", "bad_password"}) {
		t.Errorf("calls = %v, want one bad_password auth attempt", f.recorder.calls)
	}
}

// --- EndSession / ResolveSession ---

func TestEndSession_DeletesSession(t *testing.T) {
	f := newFixture(t)
	_, session, err := f.svc.Register(context.Background(), aliceInput())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := f.svc.EndSession(context.Background(), session.ID); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	_, err = f.svc.ResolveSession(context.Background(), session.ID)
	assertCode(t, err, model.ErrCodeUnauthorized)
}

func TestEndSession_EmptyID_NoOp(t *testing.T) {
	f := newFixture(t)
	f.sessions.deleteErr = errors.New("should not be called")

	if err := f.svc.EndSession(context.Background(), ""); err != nil {
		t.Errorf("EndSession(\"\") error = %v, want nil", err)
	}
}

func TestEndSession_RepositoryError(t *testing.T) {
	f := newFixture(t)
	f.sessions.deleteErr = errors.New("db down")

	if err := f.svc.EndSession(context.Background(), "abc"); err == nil {
		t.Error("expected error")
	}
}

func TestResolveSession_ReturnsAccount(t *testing.T) {
	f := newFixture(t)
	registered := mustRegister(t, f, aliceInput())

	_, session, err := f.svc.Authenticate(context.Background(), "alice", "pw1", "a@x.io")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	account, err := f.svc.ResolveSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if account.ID != registered.ID || account.Handle != "alice" {
		t.Errorf("account = %+v, want alice", account)
	}
}

func TestResolveSession_Unauthorized(t *testing.T) {
	f := newFixture(t)
	registered := mustRegister(t, f, aliceInput())

	expired := &model.Session{
		ID:        "expired",
		AccountID: registered.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	orphan := &model.Session{
		ID:        "orphan",
		AccountID: 999,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	_ = f.sessions.Create(context.Background(), expired)
	_ = f.sessions.Create(context.Background(), orphan)

	for _, id := range []string{"", "missing", "expired", "orphan"} {
		t.Run(id, func(t *testing.T) {
			_, err := f.svc.ResolveSession(context.Background(), id)
			assertCode(t, err, model.ErrCodeUnauthorized)
		})
	}
}

// TestScenario_AliceLifecycle は登録からログアウトまでの一連の流れを検証する。
func TestScenario_AliceLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, first, err := f.svc.Register(ctx, aliceInput())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := f.svc.EndSession(ctx, first.ID); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	_, _, err = f.svc.Authenticate(ctx, "alice", "wrong", "a@x.io")
	assertCode(t, err, model.ErrCodeBadPassword)

	_, second, err := f.svc.Authenticate(ctx, "alice", "pw1", "a@x.io")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if second.ID == first.ID {
		t.Error("a new session ID should be issued on each login")
	}
}
