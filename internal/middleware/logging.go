package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader はリクエストIDを受け渡すヘッダー名。
const RequestIDHeader = "X-Request-ID"

var requestLogContextKey = contextKey("request_log")

// requestLog は内側のミドルウェアがアクセスログに追記する情報を保持する。
type requestLog struct {
	requestID string
	accountID int64
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、request_id、account_id（認証済みの場合）を含む。
// リクエストIDは受信ヘッダーの値を引き継ぎ、なければUUIDを採番してレスポンスヘッダーに返す。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			entry := &requestLog{requestID: requestID}
			ctx := context.WithValue(r.Context(), requestLogContextKey, entry)

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
				slog.String("request_id", requestID),
			}
			if entry.accountID != 0 {
				args = append(args, slog.Int64("account_id", entry.accountID))
			}

			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(ctx, level, "http_request", args...)
		})
	}
}

// RequestIDFromContext はロギングミドルウェアが採番したリクエストIDを返す。
func RequestIDFromContext(ctx context.Context) string {
	if entry, ok := ctx.Value(requestLogContextKey).(*requestLog); ok {
		return entry.requestID
	}
	return ""
}

// annotateAccount はアクセスログに認証済みアカウントIDを記録する。
func annotateAccount(ctx context.Context, accountID int64) {
	if entry, ok := ctx.Value(requestLogContextKey).(*requestLog); ok {
		entry.accountID = accountID
	}
}
