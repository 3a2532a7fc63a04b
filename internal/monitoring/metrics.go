package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tixledger/tixledger/internal/domain"
)

var (
	txSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_tx_submitted_total",
			Help: "Transactions accepted into the applier queue",
		},
		[]string{"type"},
	)

	txApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_tx_applied_total",
			Help: "Transactions applied, by terminal status",
		},
		[]string{"type", "status"},
	)

	applyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_tx_apply_duration_seconds",
			Help:    "Time spent applying and finalizing one transaction",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)

	ticketsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_tickets_sold_total",
			Help: "Tickets minted by confirmed purchases",
		},
	)

	pausedGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_paused",
			Help: "1 when the global pause switch is engaged",
		},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_applier_queue_depth",
			Help: "Transactions waiting in the applier queue",
		},
	)
)

func TxSubmitted(t domain.TxType) {
	txSubmitted.WithLabelValues(string(t)).Inc()
}

func TxApplied(t domain.TxType, status domain.TxStatus, d time.Duration) {
	txApplied.WithLabelValues(string(t), string(status)).Inc()
	applyDuration.Observe(d.Seconds())
}

func AddTicketsSold(n uint64) {
	ticketsSold.Add(float64(n))
}

func SetPaused(paused bool) {
	if paused {
		pausedGauge.Set(1)
		return
	}
	pausedGauge.Set(0)
}

func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}
