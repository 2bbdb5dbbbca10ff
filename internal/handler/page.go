// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/contactman/internal/middleware"
	"github.com/hitoshi/contactman/internal/model"
	"github.com/hitoshi/contactman/internal/view"
)

// PageRenderer はHTMLページの描画インターフェース。
type PageRenderer interface {
	Render(w http.ResponseWriter, status int, name string, data view.Page) error
}

// pages はハンドラー共通の描画処理をまとめる。
type pages struct {
	renderer PageRenderer
}

// render はCSRFトークンと認証済みアカウントを補ってページを描画する。
func (p pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data view.Page) {
	data.CSRFToken = middleware.CSRFTokenFromContext(r.Context())
	if data.Account == nil {
		if account, err := middleware.AccountFromContext(r.Context()); err == nil {
			data.Account = account
		}
	}

	if err := p.renderer.Render(w, status, name, data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", name),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		http.Error(w, model.NewInternalError().Message, http.StatusInternalServerError)
	}
}

// renderStatus はステータスコードに対応するエラーページを描画する。
func (p pages) renderStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	p.render(w, r, status, view.PageError, view.Page{
		Title:   http.StatusText(status),
		Status:  status,
		Message: message,
	})
}

// renderError はエラーの種類に応じたエラーページを描画する。
// AppError以外の詳細はログにのみ出力し、画面には一般的なメッセージを表示する。
func (p pages) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case model.ErrCodeContactNotFound:
			p.renderStatus(w, r, http.StatusNotFound, appErr.Message)
			return
		case model.ErrCodeNotContactOwner:
			p.renderStatus(w, r, http.StatusForbidden, appErr.Message)
			return
		case model.ErrCodeUnauthorized:
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
	}

	slog.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	p.InternalError(w, r)
}

// NotFound は未定義ルートの404ページを描画する。
func (p pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderStatus(w, r, http.StatusNotFound, "The requested page was not found.")
}

// InternalError は一般的なメッセージの500ページを描画する。
func (p pages) InternalError(w http.ResponseWriter, r *http.Request) {
	p.renderStatus(w, r, http.StatusInternalServerError, model.NewInternalError().Message)
}

// MethodNotAllowed は405ページを描画する。
func (p pages) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	p.renderStatus(w, r, http.StatusMethodNotAllowed, "Method not allowed.")
}

// formError はフォームを再表示すべき入力・認証エラーであればそのAppErrorを返す。
func formError(err error) (*model.AppError, bool) {
	var appErr *model.AppError
	if !errors.As(err, &appErr) {
		return nil, false
	}
	switch appErr.Category {
	case "validation", "auth":
		return appErr, appErr.Code != model.ErrCodeUnauthorized
	default:
		return nil, false
	}
}

// parseID はURLパスの{id}を正の整数として解析する。
func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
