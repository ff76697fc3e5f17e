package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SettlementCreateTotal counts settlement creation outcomes per seller group.
	SettlementCreateTotal *prometheus.CounterVec
	// PayoutProcessTotal counts settlement payout processing outcomes.
	PayoutProcessTotal *prometheus.CounterVec
	// OrderPaidWebhookTotal counts inbound payment-confirmation webhook outcomes.
	OrderPaidWebhookTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SettlementCreateTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_create_total",
			Help:      "Count of per-seller settlement creation outcomes.",
		}, []string{"result"})
		PayoutProcessTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payout_process_total",
			Help:      "Count of settlement payout processing outcomes.",
		}, []string{"result"})
		OrderPaidWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_paid_webhook_total",
			Help:      "Count of processed payment-confirmation webhooks by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, SettlementCreateTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SettlementCreateTotal = v
			}
		})
		mustRegisterCollector(reg, PayoutProcessTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PayoutProcessTotal = v
			}
		})
		mustRegisterCollector(reg, OrderPaidWebhookTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderPaidWebhookTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
