// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/contactman/internal/model"
)

// 結果ラベル
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Recorder はメトリクス記録のインターフェース。
// サービス層・ミドルウェア・ワーカーから利用する。
type Recorder interface {
	RecordAuthAttempt(result string)
	RecordRegistration(result string)
	RecordContactOperation(op, result string)
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authAttempts    *prometheus.CounterVec
	registrations   *prometheus.CounterVec
	contactOps      *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
	sessionsCleaned prometheus.Counter
}

var _ Recorder = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contactman_auth_attempts_total",
			Help: "ログイン試行の結果別の合計数",
		}, []string{"result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contactman_registrations_total",
			Help: "アカウント登録の結果別の合計数",
		}, []string{"result"}),
		contactOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contactman_contact_operations_total",
			Help: "連絡先操作の種類・結果別の合計数",
		}, []string{"op", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contactman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contactman_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contactman_sessions_cleaned_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.registrations,
		c.contactOps,
		c.httpStatus,
		c.requestDuration,
		c.sessionsCleaned,
	)

	return c
}

// RecordAuthAttempt はログイン試行を記録する。
func (c *Collector) RecordAuthAttempt(result string) {
	c.authAttempts.WithLabelValues(result).Inc()
}

// RecordRegistration はアカウント登録を記録する。
func (c *Collector) RecordRegistration(result string) {
	c.registrations.WithLabelValues(result).Inc()
}

// RecordContactOperation は連絡先操作を記録する。
func (c *Collector) RecordContactOperation(op, result string) {
	c.contactOps.WithLabelValues(op, result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordSessionsCleaned は削除されたセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Result はerrを結果ラベルに変換する。
// AppErrorはコードを小文字にしたもの、それ以外のエラーは"error"になる。
func Result(err error) string {
	if err == nil {
		return ResultSuccess
	}
	if code := model.ErrorCode(err); code != "" {
		return strings.ToLower(code)
	}
	return ResultError
}

// Nop は何も記録しないRecorder。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordAuthAttempt(string)              {}
func (Nop) RecordRegistration(string)             {}
func (Nop) RecordContactOperation(string, string) {}
func (Nop) RecordHTTPStatus(int)                  {}
func (Nop) RecordRequestDuration(time.Duration)   {}
func (Nop) RecordSessionsCleaned(int64)           {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
