package metrics

import (
	"net/http"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes settlement metrics on its own registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	settlements     *prometheus.CounterVec
	refunds         prometheus.Counter
	feesCollected   prometheus.Counter
	rejects         *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_orders_total",
			Help: "Settlement orders committed, by resulting status.",
		}, []string{"status"}),
		refunds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_refunds_total",
			Help: "Orders refunded to their recipient.",
		}),
		feesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_fees_collected_total",
			Help: "Protocol fees paid out, in settlement asset base units.",
		}),
		rejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_rejects_total",
			Help: "Calls rejected, by error code.",
		}, []string{"code"}),
		processDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlement_process_duration_seconds",
			Help:    "Wall time of settlement processing calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(
		r.settlements,
		r.refunds,
		r.feesCollected,
		r.rejects,
		r.processDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveSettlement(status string) {
	if r == nil {
		return
	}
	r.settlements.WithLabelValues(status).Inc()
}

func (r *Recorder) ObserveRefund() {
	if r == nil {
		return
	}
	r.refunds.Inc()
}

func (r *Recorder) AddFees(amount uint64) {
	if r == nil || amount == 0 {
		return
	}
	r.feesCollected.Add(float64(amount))
}

// ObserveReject counts a rejected call; errors without a code count as "internal".
func (r *Recorder) ObserveReject(err error) {
	if r == nil || err == nil {
		return
	}
	label := "internal"
	if c, ok := codes.Of(err); ok {
		label = c.String()
	}
	r.rejects.WithLabelValues(label).Inc()
}

func (r *Recorder) ObserveProcessDuration(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.processDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
