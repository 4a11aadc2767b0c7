package realtime

import "github.com/prometheus/client_golang/prometheus"

var (
	subscribersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_subscribers",
			Help: "Number of currently registered live subscribers",
		},
	)
	broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_broadcast_sends_total",
			Help: "Total number of per-subscriber broadcast sends",
		},
		[]string{"result"},
	)
)

// InitMetrics registers the registry metrics. Call this from main.go
func InitMetrics() {
	prometheus.MustRegister(subscribersGauge)
	prometheus.MustRegister(broadcastsTotal)
}
