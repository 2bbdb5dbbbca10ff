// Package view はサーバー側で描画するHTMLテンプレートと静的ファイルを提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/hitoshi/contactman/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ページ名
const (
	PageIndex      = "index"
	PageLogin      = "login"
	PageSignUp     = "sign_up"
	PageHome       = "home"
	PageAddContact = "add_contact"
	PageEdit       = "edit"
	PageError      = "error"
)

var pages = []string{PageIndex, PageLogin, PageSignUp, PageHome, PageAddContact, PageEdit, PageError}

// Page はテンプレートに渡す値。ページごとに使う項目だけを設定する。
type Page struct {
	Title     string
	Flash     string
	CSRFToken string
	Account   *model.Account

	Contacts []*model.Contact
	Contact  *model.Contact
	Form     map[string]string // 検証エラー時に再表示する入力値

	Status  int
	Message string
}

// Renderer はページ名ごとにレイアウトと組み合わせたテンプレートを保持する。
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer は埋め込みテンプレートをすべて解析する。
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render はページを描画してstatusで書き込む。
// 途中まで書き込まれたレスポンスを返さないよう、バッファに描画してから送信する。
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data Page) error {
	t, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown template: %s", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler は/static/配下のファイルを配信するハンドラーを返す。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to open embedded static files: %v", err))
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
