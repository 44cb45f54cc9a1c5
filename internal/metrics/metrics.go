// Package metrics exposes Prometheus collectors for the matching engine
// and the HTTP façade. All collectors are registered on the default
// registry; the server mounts promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlaced counts accepted orders by shape.
	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daytrader",
		Name:      "orders_placed_total",
		Help:      "Accepted orders by type.",
	}, []string{"type"})

	// OrdersRejected counts orders refused before reaching the book.
	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daytrader",
		Name:      "orders_rejected_total",
		Help:      "Orders refused by validation or business rules.",
	}, []string{"reason"})

	// FillsTotal counts executed partial fills.
	FillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "daytrader",
		Name:      "fills_total",
		Help:      "Executed partial fills.",
	})

	// SharesTraded accumulates filled share quantity.
	SharesTraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "daytrader",
		Name:      "shares_traded_total",
		Help:      "Total shares moved by fills.",
	})

	// ValueTraded accumulates the cash value of fills.
	ValueTraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "daytrader",
		Name:      "value_traded_total",
		Help:      "Total cash value moved by fills.",
	})

	// CancelsTotal counts successful cancellations by side.
	CancelsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daytrader",
		Name:      "cancels_total",
		Help:      "Successful order cancellations by side.",
	}, []string{"side"})

	// QueuedBuys tracks market buys currently waiting for liquidity.
	QueuedBuys = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "daytrader",
		Name:      "queued_buys",
		Help:      "Market buy orders currently queued.",
	})
)
