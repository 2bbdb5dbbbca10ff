package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/contactman/internal/account"
	"github.com/hitoshi/contactman/internal/flash"
	"github.com/hitoshi/contactman/internal/middleware"
	"github.com/hitoshi/contactman/internal/model"
	"github.com/hitoshi/contactman/internal/view"
)

// AccountServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	Register(ctx context.Context, input account.RegisterInput) (*model.Account, *model.Session, error)
	Authenticate(ctx context.Context, handle, password, email string) (*model.Account, *model.Session, error)
	EndSession(ctx context.Context, sessionID string) error
}

// SessionTokenSigner はセッションIDを署名付きCookie値に変換する。
type SessionTokenSigner interface {
	Sign(sessionID string, expiresAt time.Time) (string, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はサインアップ・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	pages
	service AccountServiceInterface
	tokens  SessionTokenSigner
	flash   *flash.Store
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	service AccountServiceInterface,
	tokens SessionTokenSigner,
	renderer PageRenderer,
	flashStore *flash.Store,
	config AuthHandlerConfig,
) *AuthHandler {
	return &AuthHandler{
		pages:   pages{renderer: renderer},
		service: service,
		tokens:  tokens,
		flash:   flashStore,
		config:  config,
	}
}

// Index はトップページを表示する。ログイン済みの場合はホームへリダイレクトする。
// GET /
func (h *AuthHandler) Index(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.AccountFromContext(r.Context()); err == nil {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, view.PageIndex, view.Page{Flash: h.flash.Pop(w, r)})
}

// LoginForm はログインフォームを表示する。ログイン済みの場合はホームへリダイレクトする。
// GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.AccountFromContext(r.Context()); err == nil {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, view.PageLogin, view.Page{Title: "Login", Flash: h.flash.Pop(w, r)})
}

// Login はユーザー名・パスワード・メールアドレスで認証し、セッションCookieを発行する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	handle := r.PostFormValue("username")
	email := r.PostFormValue("email")

	_, session, err := h.service.Authenticate(r.Context(), handle, r.PostFormValue("password"), email)
	if err != nil {
		if appErr, ok := formError(err); ok {
			h.render(w, r, http.StatusOK, view.PageLogin, view.Page{
				Title: "Login",
				Flash: appErr.Message,
				Form:  map[string]string{"username": handle, "email": email},
			})
			return
		}
		h.renderError(w, r, err)
		return
	}

	h.endPreviousSession(r)
	if err := h.setSessionCookie(w, session); err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// SignUpForm はサインアップフォームを表示する。
// GET /sign_up
func (h *AuthHandler) SignUpForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.PageSignUp, view.Page{Title: "Sign up", Flash: h.flash.Pop(w, r)})
}

// SignUp はアカウントを登録し、そのままログイン状態にする。
// POST /sign_up
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	input := account.RegisterInput{
		Handle:          r.PostFormValue("username"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("password2"),
		Email:           r.PostFormValue("email"),
	}

	_, session, err := h.service.Register(r.Context(), input)
	if err != nil {
		if appErr, ok := formError(err); ok {
			h.render(w, r, http.StatusOK, view.PageSignUp, view.Page{
				Title: "Sign up",
				Flash: appErr.Message,
				Form:  map[string]string{"username": input.Handle, "email": input.Email},
			})
			return
		}
		h.renderError(w, r, err)
		return
	}

	h.endPreviousSession(r)
	if err := h.setSessionCookie(w, session); err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// Logout はセッションを破棄してトップページへリダイレクトする。
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if err := h.service.EndSession(r.Context(), sessionID); err != nil {
		// 失敗してもCookieはクリアする
		slog.Error("failed to end session", slog.String("error", err.Error()))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// endPreviousSession はリクエストに紐づく既存セッションを破棄する。
// 新しいセッションを発行する前に呼び、旧Cookieを再利用できないようにする。
func (h *AuthHandler) endPreviousSession(r *http.Request) {
	prev := middleware.SessionIDFromContext(r.Context())
	if prev == "" {
		return
	}
	if err := h.service.EndSession(r.Context(), prev); err != nil {
		slog.Error("failed to end previous session", slog.String("error", err.Error()))
	}
}

// setSessionCookie はセッションIDを署名してHTTP Only Cookieに設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *model.Session) error {
	token, err := h.tokens.Sign(session.ID, session.ExpiresAt)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
