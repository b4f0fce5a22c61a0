package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Publishes counts successful file publishes.
	Publishes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pindrop_publishes_total",
		Help: "Number of files published.",
	})
	// Fetches counts download attempts by outcome (hit, miss).
	Fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pindrop_fetches_total",
		Help: "Number of download attempts by outcome.",
	}, []string{"outcome"})
	// Reaped counts expired records removed by the reaper.
	Reaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pindrop_reaped_records_total",
		Help: "Number of expired transfer records reclaimed.",
	})
	// PINCollisions counts allocation retries due to an occupied PIN.
	PINCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pindrop_pin_collisions_total",
		Help: "Number of PIN allocation attempts that hit an occupied PIN.",
	})
	// Evictions counts records evicted because their payload went missing.
	Evictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pindrop_dangling_evictions_total",
		Help: "Number of records evicted after their payload disappeared.",
	})
)

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
