package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		checkoutSessionsTotal,
		webhookEventsTotal,
		ordersCreatedTotal,
		ordersRevenueTotal,
		backorderedLinesTotal,
		planActivationsTotal,
		eventPublishFailuresTotal,
		paymentMismatchesTotal,
	)
}

var (
	checkoutSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Checkout sessions requested by kind (cart/plan) and result.",
		},
		[]string{"kind", "result"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Payment webhook deliveries by outcome.",
		},
		[]string{"outcome"},
	)

	ordersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created by source (webhook/direct).",
		},
		[]string{"source"},
	)

	ordersRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_revenue_total",
			Help: "Sum of order totals in major currency units.",
		},
		[]string{"currency"},
	)

	backorderedLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_lines_backordered_total",
			Help: "Order lines that could not be fulfilled from stock.",
		},
	)

	planActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_activations_total",
			Help: "Subscription plans activated by tier.",
		},
		[]string{"tier"},
	)

	eventPublishFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_failures_total",
			Help: "Domain events that could not be published, by topic.",
		},
		[]string{"topic"},
	)

	paymentMismatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_mismatches_total",
			Help: "Paid sessions whose amount or currency differs from the order created for them.",
		},
		[]string{"field"},
	)
)

func IncCheckoutSession(kind, result string) {
	checkoutSessionsTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}

func IncWebhookEvent(outcome string) {
	webhookEventsTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveOrder(source, currency string, total decimal.Decimal) {
	ordersCreatedTotal.WithLabelValues(norm(source)).Inc()
	ordersRevenueTotal.WithLabelValues(norm(currency)).Add(total.InexactFloat64())
}

func AddBackordered(n int) {
	if n > 0 {
		backorderedLinesTotal.Add(float64(n))
	}
}

func IncPlanActivation(tier string) {
	planActivationsTotal.WithLabelValues(tier).Inc()
}

func IncPublishFailure(topic string) {
	eventPublishFailuresTotal.WithLabelValues(norm(topic)).Inc()
}

func IncPaymentMismatch(field string) {
	paymentMismatchesTotal.WithLabelValues(norm(field)).Inc()
}
