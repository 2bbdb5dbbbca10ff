package middleware

import (
	"net/http"
	"strings"
)

const contentSecurityPolicy = "default-src 'self'; frame-ancestors 'none'; form-action 'self'"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// 画面はすべてサーバー側で描画し、スクリプトとスタイルは自ホストの静的ファイルのみを許可する。
// httpsOnlyがtrueの場合はHSTSも付与する（BASE_URLがhttpsの場合）。
func NewSecurityHeadersMiddleware(httpsOnly bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "same-origin")
			h.Set("Content-Security-Policy", contentSecurityPolicy)
			// ログイン状態で内容が変わる画面をキャッシュさせない
			if !strings.HasPrefix(r.URL.Path, "/static/") {
				h.Set("Cache-Control", "no-store")
			}
			if httpsOnly {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
