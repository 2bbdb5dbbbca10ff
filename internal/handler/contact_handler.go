package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/contactman/internal/contact"
	"github.com/hitoshi/contactman/internal/flash"
	"github.com/hitoshi/contactman/internal/middleware"
	"github.com/hitoshi/contactman/internal/model"
	"github.com/hitoshi/contactman/internal/view"
)

// ContactServiceInterface は連絡先ハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	Create(ctx context.Context, accountID int64, input contact.Input) (*model.Contact, error)
	Update(ctx context.Context, accountID, id int64, input contact.Input) (*model.Contact, error)
	Delete(ctx context.Context, accountID, id int64) error
	ListForAccount(ctx context.Context, accountID int64) ([]*model.Contact, error)
	Get(ctx context.Context, accountID, id int64) (*model.Contact, error)
}

// ContactHandler は連絡先関連のHTTPハンドラー。
// すべてのルートはNewRequireAccountMiddlewareの後に配置する。
type ContactHandler struct {
	pages
	service ContactServiceInterface
	flash   *flash.Store
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(service ContactServiceInterface, renderer PageRenderer, flashStore *flash.Store) *ContactHandler {
	return &ContactHandler{
		pages:   pages{renderer: renderer},
		service: service,
		flash:   flashStore,
	}
}

// Home はログイン中のアカウントの連絡先一覧を表示する。
// GET /home
func (h *ContactHandler) Home(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	contacts, err := h.service.ListForAccount(r.Context(), accountID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, view.PageHome, view.Page{
		Title:    "Home",
		Flash:    h.flash.Pop(w, r),
		Contacts: contacts,
	})
}

// AddContactForm は連絡先の追加フォームを表示する。
// GET /add_contact
func (h *ContactHandler) AddContactForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.PageAddContact, view.Page{Title: "Add contact"})
}

// AddContact は連絡先を作成してホームへリダイレクトする。
// POST /add_contact
func (h *ContactHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	input := contactInput(r)
	if _, err := h.service.Create(r.Context(), accountID, input); err != nil {
		if appErr, ok := formError(err); ok {
			h.render(w, r, http.StatusBadRequest, view.PageAddContact, view.Page{
				Title: "Add contact",
				Flash: appErr.Message,
				Form: map[string]string{
					"fullname": input.FullName,
					"phone":    input.Phone,
					"email":    input.Email,
				},
			})
			return
		}
		h.renderError(w, r, err)
		return
	}

	h.flash.Set(w, "Contact added successfully")
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// EditForm は連絡先の編集フォームを表示する。
// GET /edit/{id}
func (h *ContactHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	c, err := h.service.Get(r.Context(), accountID, id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, view.PageEdit, view.Page{Title: "Edit contact", Contact: c})
}

// Edit は連絡先の全項目を更新してホームへリダイレクトする。
// POST /edit/{id}
func (h *ContactHandler) Edit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	input := contactInput(r)
	if _, err := h.service.Update(r.Context(), accountID, id, input); err != nil {
		if appErr, ok := formError(err); ok {
			h.render(w, r, http.StatusBadRequest, view.PageEdit, view.Page{
				Title: "Edit contact",
				Flash: appErr.Message,
				Contact: &model.Contact{
					ID:       id,
					FullName: input.FullName,
					Phone:    input.Phone,
					Email:    input.Email,
				},
			})
			return
		}
		h.renderError(w, r, err)
		return
	}

	h.flash.Set(w, "Contact updated successfully")
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// Delete は連絡先を削除してホームへリダイレクトする。
// GET /delete/{id}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	if err := h.service.Delete(r.Context(), accountID, id); err != nil {
		h.renderError(w, r, err)
		return
	}

	h.flash.Set(w, "Contact removed successfully")
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// accountID はコンテキストからアカウントIDを取り出す。未認証ならログインへリダイレクトする。
func (h *ContactHandler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return 0, false
	}
	return id, true
}

func contactInput(r *http.Request) contact.Input {
	return contact.Input{
		FullName: r.PostFormValue("fullname"),
		Phone:    r.PostFormValue("phone"),
		Email:    r.PostFormValue("email"),
	}
}
