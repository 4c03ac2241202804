package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 帳本的 Prometheus 指標
// 所有方法在 nil receiver 上都是 no-op，方便測試時不注入
type Metrics struct {
	OperationsTotal    *prometheus.CounterVec
	CompensationsTotal *prometheus.CounterVec
	BusyRejections     *prometheus.CounterVec
	TransferDuration   *prometheus.HistogramVec
	TotalStaked        prometheus.Gauge
	TotalBorrowed      prometheus.Gauge
}

// NewMetrics 建立並註冊所有指標
// reg 傳 prometheus.DefaultRegisterer 或測試用的 prometheus.NewRegistry()
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by operation and result",
		}, []string{"operation", "result"}),
		CompensationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_compensations_total",
			Help: "Compensating entries applied after failed transfers",
		}, []string{"operation", "result"}),
		BusyRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_busy_rejections_total",
			Help: "Operations rejected because the account had an operation in flight",
		}, []string{"operation"}),
		TransferDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_transfer_duration_seconds",
			Help:    "Latency of calls to the external transfer service",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
		TotalStaked: f.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_total_staked",
			Help: "Sum of staked amounts across all accounts",
		}),
		TotalBorrowed: f.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_total_borrowed",
			Help: "Sum of borrowed amounts across all accounts",
		}),
	}
}

// ObserveOperation 記錄一次操作結果
func (m *Metrics) ObserveOperation(operation, result string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveCompensation 記錄一次補償
func (m *Metrics) ObserveCompensation(operation, result string) {
	if m == nil {
		return
	}
	m.CompensationsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveBusy 記錄一次 ErrBusy
func (m *Metrics) ObserveBusy(operation string) {
	if m == nil {
		return
	}
	m.BusyRejections.WithLabelValues(operation).Inc()
}

// ObserveTransfer 記錄外部轉帳延遲
func (m *Metrics) ObserveTransfer(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TransferDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// SetTotals 更新全域總額
func (m *Metrics) SetTotals(staked, borrowed uint64) {
	if m == nil {
		return
	}
	m.TotalStaked.Set(float64(staked))
	m.TotalBorrowed.Set(float64(borrowed))
}
