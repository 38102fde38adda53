package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DescribeMetrics 图片描述服务指标
type DescribeMetrics struct {
	// 单项处理相关指标
	ItemTotal    *prometheus.CounterVec   // 单项处理总数（按服务商、结果）
	ItemDuration *prometheus.HistogramVec // 外部描述服务调用耗时

	// 批处理相关指标
	BatchTotal     *prometheus.CounterVec // 批处理总数（按结果）
	BatchItems     prometheus.Histogram   // 每批图片数量
	ActiveSessions prometheus.Gauge       // 进行中的流式会话

	// 额度相关指标
	DeductTotal    *prometheus.CounterVec // 扣费总数（按结果）
	DeductDuration prometheus.Histogram   // 扣费耗时
	AdjustTotal    *prometheus.CounterVec // 管理员调整总数（按额度类型）
	DeductAmount   *prometheus.CounterVec // 扣除额度总量（按服务商）
	LedgerDrift    prometheus.Gauge       // 对账发现的余额与流水不一致用户数

	// 其他
	ArtifactTotal *prometheus.CounterVec   // 结果文件生成总数（按结果）
	EventPublish  *prometheus.CounterVec   // 批处理完成事件发送总数（按结果）
	LockAcquire   *prometheus.CounterVec   // 定时任务锁获取（按任务、结果）
	CronDuration  *prometheus.HistogramVec // 定时任务耗时
}

// NewDescribeMetrics 创建图片描述服务指标
func NewDescribeMetrics() *DescribeMetrics {
	return &DescribeMetrics{
		ItemTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "describe_item_total",
				Help: "Total number of processed batch items",
			},
			[]string{"provider", "result"}, // result: success/failed/insufficient_credits/cancelled
		),
		ItemDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "describe_item_duration_seconds",
				Help:    "Duration of external describe calls",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"provider"},
		),

		BatchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "describe_batch_total",
				Help: "Total number of batches",
			},
			[]string{"result"}, // result: complete/error
		),
		BatchItems: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "describe_batch_items",
				Help:    "Number of images submitted per batch",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),
		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "describe_active_sessions",
				Help: "Number of streaming sessions in progress",
			},
		),

		DeductTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "describe_credit_deduct_total",
				Help: "Total number of credit deductions",
			},
			[]string{"result"}, // result: ok/insufficient/error
		),
		DeductDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "describe_credit_deduct_duration_seconds",
				Help:    "Duration of credit deductions",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
		AdjustTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "describe_credit_adjust_total",
				Help: "Total number of admin credit adjustments",
			},
			[]string{"kind"},
		),
		DeductAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "describe_credit_deduct_amount_total",
				Help: "Total credits deducted",
			},
			[]string{"provider"},
		),
		LedgerDrift: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "describe_ledger_drift_users",
				Help: "Users whose balance differs from the sum of their transactions",
			},
		),
		ArtifactTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "describe_artifact_total",
				Help: "Total number of batch file generations",
			},
			[]string{"result"},
		),
		EventPublish: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "describe_event_publish_total",
				Help: "Total number of batch completed events published",
			},
			[]string{"result"},
		),
		LockAcquire: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "describe_lock_acquire_total",
				Help: "Total number of job lock acquisition attempts",
			},
			[]string{"job", "result"},
		),
		CronDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "describe_cron_duration_seconds",
				Help:    "Duration of scheduled jobs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),
	}
}

// 全局指标实例
var (
	defaultMetrics *DescribeMetrics
	once           sync.Once
)

// GetMetrics 获取全局指标实例
func GetMetrics() *DescribeMetrics {
	once.Do(func() {
		defaultMetrics = NewDescribeMetrics()
	})
	return defaultMetrics
}
