package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listings_created_total",
		Help: "Total number of listings created",
	}, []string{"category"})

	ListingsActivatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listings_activated_total",
		Help: "Total number of listings activated by payment confirmation",
	}, []string{"category"})

	ListingsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_expired_total",
		Help: "Total number of listings expired on read",
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of webhook deliveries by outcome",
	}, []string{"outcome"})

	CheckoutSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Total number of checkout sessions created",
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Total number of service order transitions applied",
	}, []string{"to"})

	OrderTransitionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_rejected_total",
		Help: "Total number of rejected service order transitions",
	}, []string{"reason"})

	FeaturedPromotionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "featured_promotions_total",
		Help: "Total number of featured slot promotions",
	}, []string{"mode"})

	WagersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wagers_placed_total",
		Help: "Total number of wagers placed",
	})

	WagersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wagers_rejected_total",
		Help: "Total number of rejected wager placements",
	}, []string{"reason"})

	WagersSettledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wagers_settled_total",
		Help: "Total number of settled wagers",
	}, []string{"outcome"})

	HouseFeeTokensTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "house_fee_tokens_total",
		Help: "Total house fee tokens collected at wager placement",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
