package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_checkouts_total",
		Help: "Total number of successful inventory checkouts.",
	})
	CheckinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_checkins_total",
		Help: "Total number of successful inventory checkins.",
	})
	StockAdjustmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_stock_adjustments_total",
		Help: "Total number of successful manual stock adjustments.",
	})
	LockConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_lock_conflicts_total",
		Help: "Total number of event edit lock acquisitions refused because another editor holds the lock.",
	})
	SignupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_helper_signups_total",
		Help: "Total number of helper slot signups by resulting status.",
	}, []string{"status"})
)

// Handler serves the default prometheus registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
