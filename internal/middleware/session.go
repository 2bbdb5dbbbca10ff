// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/contactman/internal/model"
)

// SessionCookieName はセッションCookieの名前。値は署名付きのセッショントークン。
const SessionCookieName = "session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	accountContextKey   = contextKey("account")
	sessionIDContextKey = contextKey("session_id")
)

// SessionTokenParser はセッションCookieの署名を検証し、セッションIDを取り出す。
type SessionTokenParser interface {
	Parse(token string) (string, error)
}

// SessionResolver はセッションIDからアカウントを解決する。
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (*model.Account, error)
}

// NewSessionMiddleware はセッションCookieを読み取り、有効なセッションであれば
// アカウントとセッションIDをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証のリクエストもそのまま次のハンドラーに渡す。
func NewSessionMiddleware(tokens SessionTokenParser, resolver SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sessionID, err := tokens.Parse(cookie.Value)
			if err != nil {
				slog.Debug("invalid session token", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			account, err := resolver.ResolveSession(r.Context(), sessionID)
			if err != nil {
				if model.ErrorCode(err) != model.ErrCodeUnauthorized {
					slog.Error("failed to resolve session",
						slog.String("error", err.Error()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithAccount(r.Context(), account)
			ctx = ContextWithSessionID(ctx, sessionID)
			annotateAccount(ctx, account.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireAccountMiddleware は未認証リクエストをloginPathへ303でリダイレクトするミドルウェアを返す。
// NewSessionMiddlewareの後に配置する。
func NewRequireAccountMiddleware(loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := AccountFromContext(r.Context()); err != nil {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccountFromContext はリクエストコンテキストから認証済みアカウントを取得する。
func AccountFromContext(ctx context.Context) (*model.Account, error) {
	account, ok := ctx.Value(accountContextKey).(*model.Account)
	if !ok || account == nil {
		return nil, fmt.Errorf("account not found in context")
	}
	return account, nil
}

// AccountIDFromContext はリクエストコンテキストから認証済みアカウントのIDを取得する。
func AccountIDFromContext(ctx context.Context) (int64, error) {
	account, err := AccountFromContext(ctx)
	if err != nil {
		return 0, err
	}
	return account.ID, nil
}

// ContextWithAccount はコンテキストにアカウントを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// SessionIDFromContext は認証に使われたセッションIDを返す。未認証の場合は空文字列。
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey).(string)
	return id
}

// ContextWithSessionID はコンテキストにセッションIDを注入する。
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}
