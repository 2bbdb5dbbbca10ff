package view

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/contactman/internal/model"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}

func TestNewRenderer_ParsesAllPages(t *testing.T) {
	r := newTestRenderer(t)
	for _, name := range pages {
		if _, ok := r.templates[name]; !ok {
			t.Errorf("template %s not loaded", name)
		}
	}
}

func TestRender_AllPagesWithEmptyData(t *testing.T) {
	r := newTestRenderer(t)
	for _, name := range pages {
		t.Run(name, func(t *testing.T) {
			data := Page{}
			if name == PageEdit {
				data.Contact = &model.Contact{ID: 1}
			}
			w := httptest.NewRecorder()
			if err := r.Render(w, http.StatusOK, name, data); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestRender_HomeListsContactsEscaped(t *testing.T) {
	r := newTestRenderer(t)
	w := httptest.NewRecorder()

	err := r.Render(w, http.StatusOK, PageHome, Page{
		Account:   &model.Account{Handle: "alice"},
		CSRFToken: "tok123",
		Flash:     "Contact added successfully",
		Contacts: []*model.Contact{
			{ID: 5, FullName: "<script>alert(1)</script>", Phone: "555", Email: "c@x.io"},
		},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	body := w.Body.String()
	for _, want := range []string{"alice", `value="tok123"`, "Contact added successfully", "/edit/5", "/delete/5", "&lt;script&gt;"} {
		if !strings.Contains(body, want) {
			t.Errorf("body should contain %q", want)
		}
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("contact fields must be HTML-escaped")
	}
}

func TestRender_LoginKeepsFormValues(t *testing.T) {
	r := newTestRenderer(t)
	w := httptest.NewRecorder()

	err := r.Render(w, http.StatusOK, PageLogin, Page{
		Flash: "Wrong password",
		Form:  map[string]string{"username": "alice", "email": "a@x.io"},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	body := w.Body.String()
	if !strings.Contains(body, `value="alice"`) || !strings.Contains(body, "Wrong password") {
		t.Errorf("unexpected body:\n%s", body)
	}
}

func TestRender_ErrorPageUsesStatus(t *testing.T) {
	r := newTestRenderer(t)
	w := httptest.NewRecorder()

	if err := r.Render(w, http.StatusNotFound, PageError, Page{Status: 404, Message: "Not Found"}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	r := newTestRenderer(t)
	if err := r.Render(httptest.NewRecorder(), http.StatusOK, "missing", Page{}); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestStaticHandler_ServesAssets(t *testing.T) {
	srv := httptest.NewServer(StaticHandler())
	defer srv.Close()

	for _, path := range []string{"/static/js/main.js", "/static/css/style.css"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK || len(body) == 0 {
			t.Errorf("GET %s: status = %d, len = %d", path, resp.StatusCode, len(body))
		}
	}
}
