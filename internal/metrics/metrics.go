package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PointsPosted 积分记账笔数与积分量
	PointsPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_points_posted_total",
			Help: "Loyalty points posted to the ledger, by transaction type",
		},
		[]string{"type"},
	)

	// LedgerEntries 账本流水笔数
	LedgerEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_ledger_entries_total",
			Help: "Ledger entries appended, by transaction type",
		},
		[]string{"type"},
	)

	// CouponApplications 优惠券使用结果
	CouponApplications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_coupon_applications_total",
			Help: "Coupon applications, by result",
		},
		[]string{"result"}, // applied or rejected
	)

	// OrderProcessDuration POS 订单处理耗时
	OrderProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "loyalty_order_process_duration_seconds",
			Help: "Duration of POS order processing in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
			},
		},
		[]string{"status"}, // success, duplicate or failure
	)

	// JobRunDuration 每日任务耗时
	JobRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loyalty_job_run_duration_seconds",
			Help:    "Duration of the daily loyalty job in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
		[]string{"scope", "status"},
	)

	// JobErrors 每日任务错误数
	JobErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_job_errors_total",
			Help: "Per-customer and per-tenant errors recorded by the daily loyalty job",
		},
		[]string{"stage"},
	)
)

// RecordPoints 记录一笔积分流水
func RecordPoints(txnType string, points int64) {
	LedgerEntries.WithLabelValues(txnType).Inc()
	if points < 0 {
		points = -points
	}
	PointsPosted.WithLabelValues(txnType).Add(float64(points))
}

// RecordCouponApplication 记录优惠券使用结果
func RecordCouponApplication(result string) {
	CouponApplications.WithLabelValues(result).Inc()
}

// RecordOrderProcessDuration 记录订单处理耗时
func RecordOrderProcessDuration(status string, duration float64) {
	OrderProcessDuration.WithLabelValues(status).Observe(duration)
}

// RecordJobRun 记录每日任务耗时
func RecordJobRun(scope, status string, duration float64) {
	JobRunDuration.WithLabelValues(scope, status).Observe(duration)
}

// RecordJobError 记录任务错误
func RecordJobError(stage string) {
	JobErrors.WithLabelValues(stage).Inc()
}
