// Prometheus metrics updated by the execution loops:
//   - trade_orders_total{type,side}        – orders submitted to the broker
//   - trade_orders_cancelled_total         – cancel requests sent
//   - trade_stops_placed_total             – stop orders submitted
//   - trade_loop_errors_total{program}     – recoverable cycle errors
//   - trade_executed_units{program,ticker} – cumulative executed amount
//
// Served at /metrics by the HTTP handler started in cmd/app.
package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_orders_total",
			Help: "Orders submitted to the broker",
		},
		[]string{"type", "side"}, // type: limit|market, side: buy|sell
	)

	OrdersCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trade_orders_cancelled_total",
			Help: "Cancel requests sent to the broker",
		},
	)

	StopsPlaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trade_stops_placed_total",
			Help: "Stop orders submitted to the broker",
		},
	)

	LoopErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_loop_errors_total",
			Help: "Recoverable errors caught inside execution cycles",
		},
		[]string{"program"},
	)

	ExecutedUnits = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trade_executed_units",
			Help: "Cumulative executed amount per target",
		},
		[]string{"program", "ticker"},
	)
)

// OrderSide converts a direction flag into a metric label.
func OrderSide(sell bool) string {
	if sell {
		return "sell"
	}
	return "buy"
}
