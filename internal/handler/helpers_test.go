package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/contactman/internal/account"
	"github.com/hitoshi/contactman/internal/contact"
	"github.com/hitoshi/contactman/internal/flash"
	"github.com/hitoshi/contactman/internal/middleware"
	"github.com/hitoshi/contactman/internal/model"
	"github.com/hitoshi/contactman/internal/view"
)

// --- モック定義 ---

type mockAccountService struct {
	registerFn     func(ctx context.Context, input account.RegisterInput) (*model.Account, *model.Session, error)
	authenticateFn func(ctx context.Context, handle, password, email string) (*model.Account, *model.Session, error)
	endSessionFn   func(ctx context.Context, sessionID string) error
}

func (m *mockAccountService) Register(ctx context.Context, input account.RegisterInput) (*model.Account, *model.Session, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return nil, nil, nil
}

func (m *mockAccountService) Authenticate(ctx context.Context, handle, password, email string) (*model.Account, *model.Session, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, handle, password, email)
	}
	return nil, nil, nil
}

func (m *mockAccountService) EndSession(ctx context.Context, sessionID string) error {
	if m.endSessionFn != nil {
		return m.endSessionFn(ctx, sessionID)
	}
	return nil
}

type mockContactService struct {
	createFn func(ctx context.Context, accountID int64, input contact.Input) (*model.Contact, error)
	updateFn func(ctx context.Context, accountID, id int64, input contact.Input) (*model.Contact, error)
	deleteFn func(ctx context.Context, accountID, id int64) error
	listFn   func(ctx context.Context, accountID int64) ([]*model.Contact, error)
	getFn    func(ctx context.Context, accountID, id int64) (*model.Contact, error)
}

func (m *mockContactService) Create(ctx context.Context, accountID int64, input contact.Input) (*model.Contact, error) {
	if m.createFn != nil {
		return m.createFn(ctx, accountID, input)
	}
	return &model.Contact{ID: 1, AccountID: accountID}, nil
}

func (m *mockContactService) Update(ctx context.Context, accountID, id int64, input contact.Input) (*model.Contact, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, accountID, id, input)
	}
	return &model.Contact{ID: id, AccountID: accountID}, nil
}

func (m *mockContactService) Delete(ctx context.Context, accountID, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, accountID, id)
	}
	return nil
}

func (m *mockContactService) ListForAccount(ctx context.Context, accountID int64) ([]*model.Contact, error) {
	if m.listFn != nil {
		return m.listFn(ctx, accountID)
	}
	return nil, nil
}

func (m *mockContactService) Get(ctx context.Context, accountID, id int64) (*model.Contact, error) {
	if m.getFn != nil {
		return m.getFn(ctx, accountID, id)
	}
	return &model.Contact{ID: id, AccountID: accountID}, nil
}

type mockSigner struct {
	signFn func(sessionID string, expiresAt time.Time) (string, error)
}

func (m *mockSigner) Sign(sessionID string, expiresAt time.Time) (string, error) {
	if m.signFn != nil {
		return m.signFn(sessionID, expiresAt)
	}
	return "signed." + sessionID, nil
}

// --- ヘルパー ---

func newTestRenderer(t *testing.T) *view.Renderer {
	t.Helper()
	r, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}

func newTestFlash() *flash.Store {
	return flash.NewStore(flash.Config{})
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func withAccount(req *http.Request, id int64) *http.Request {
	ctx := middleware.ContextWithAccount(req.Context(), &model.Account{ID: id, Handle: "alice"})
	return req.WithContext(ctx)
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, http.StatusSeeOther, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != location {
		t.Errorf("Location = %q, want %q", got, location)
	}
}
