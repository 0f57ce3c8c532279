package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	sendTotal       *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	regressionTotal *prometheus.CounterVec
	expiredTotal    prometheus.Counter

	webhookIngestTotal  *prometheus.CounterVec
	webhookProcessTotal *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		sendTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signing",
			Name:      "send_total",
			Help:      "Total number of signature request dispatch attempts.",
		}, []string{"provider", "result"}),
		transitionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signing",
			Name:      "transition_total",
			Help:      "Total number of applied request status transitions.",
		}, []string{"provider", "to"}),
		regressionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signing",
			Name:      "regression_total",
			Help:      "Total number of rejected backwards signer transitions.",
		}, []string{"provider"}),
		expiredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "signing",
			Name:      "expired_total",
			Help:      "Total number of requests expired by the sweep.",
		}),
		webhookIngestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhook",
			Name:      "ingest_total",
			Help:      "Total number of webhook deliveries persisted.",
		}, []string{"provider"}),
		webhookProcessTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhook",
			Name:      "process_total",
			Help:      "Total number of webhook processing attempts.",
		}, []string{"provider", "result"}),
	}
})
