// Package flash はリダイレクト先の画面に一度だけ表示するメッセージをCookieで受け渡す。
package flash

import (
	"encoding/base64"
	"net/http"
)

const cookieName = "flash"

// Config はフラッシュCookieの属性。
type Config struct {
	CookieSecure bool
	CookieDomain string
}

// Store はフラッシュメッセージの書き込みと取り出しを行う。
type Store struct {
	config Config
}

// NewStore はStoreを生成する。
func NewStore(config Config) *Store {
	return &Store{config: config}
}

// Set は次のリクエストで表示するメッセージを設定する。
func (s *Store) Set(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		Domain:   s.config.CookieDomain,
		MaxAge:   300,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop はメッセージを取り出してCookieを削除する。メッセージがなければ空文字列を返す。
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	b, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(b)
}
